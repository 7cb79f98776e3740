package cmd

import (
	"github.com/rustyeddy/papertrader/view"
	"github.com/spf13/cobra"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Show the static demo signal",
	Long: `Print a fixed list of closing prices and the signal from the last move:
BUY when the last close rose, SELL when it fell, HOLD otherwise.

Examples:
  papertrader demo
  papertrader demo --prices 10,11,12`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

var demoPrices []float64

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().Float64SliceVar(&demoPrices, "prices", nil, "closing prices to use instead of the built-in list")
}

func runDemo(cmd *cobra.Command, args []string) error {
	prices := view.DemoPrices
	if len(demoPrices) > 0 {
		prices = demoPrices
	}
	return view.WriteDemo(cmd.OutOrStdout(), view.BuildDemo(prices))
}
