package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/session"
	"github.com/rustyeddy/papertrader/view"
	"github.com/spf13/cobra"
)

var quoteCmd = &cobra.Command{
	Use:   "quote [ticker]",
	Short: "Fetch bars and show metrics, chart and recent history",
	Long: `Fetch historical bars for a ticker and print the last close, the change
from the previous close, a sparkline with SMA 20/50 overlays and the most
recent bars.

The ticker defaults to market.ticker from the config.

Examples:
  papertrader quote AAPL
  papertrader quote msft --period 6mo --interval 1wk`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuote,
}

var signalCmd = &cobra.Command{
	Use:   "signal [ticker]",
	Short: "Compute the BUY/SELL/HOLD signal for a ticker",
	Long: `Fetch historical bars and compute the moving-average crossover signal,
confirmed by RSI, with its confidence and rationale.

Examples:
  papertrader signal AAPL
  papertrader signal TSLA --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSignal,
}

var (
	fetchPeriod   string
	fetchInterval string
	jsonOut       bool
)

func init() {
	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(signalCmd)

	for _, c := range []*cobra.Command{quoteCmd, signalCmd} {
		c.Flags().StringVarP(&fetchPeriod, "period", "p", "", "lookback period (1mo, 3mo, 6mo, 1y, 2y, 5y)")
		c.Flags().StringVarP(&fetchInterval, "interval", "i", "", "bar interval (1d, 1wk, 1mo)")
		c.Flags().BoolVar(&jsonOut, "json", false, "print JSON instead of text")
	}
}

// fetchOnce runs a single fetch in a throwaway session.
func fetchOnce(ctx context.Context, args []string) (*session.Session, error) {
	ticker := cfg.Market.Ticker
	if len(args) > 0 {
		ticker = args[0]
	}
	p := fetchPeriod
	if p == "" {
		p = cfg.Market.Period
	}
	iv := fetchInterval
	if iv == "" {
		iv = cfg.Market.Interval
	}
	period, err := market.ParsePeriod(p)
	if err != nil {
		return nil, err
	}
	interval, err := market.ParseInterval(iv)
	if err != nil {
		return nil, err
	}

	provider, err := newProvider(cfg, logger)
	if err != nil {
		return nil, err
	}
	factory, err := sessionFactory(cfg, provider, journal.Nop{}, logger)
	if err != nil {
		return nil, err
	}
	s := factory("cli")
	if err := s.Fetch(ctx, ticker, period, interval); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ticker, err)
	}
	return s, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runQuote(cmd *cobra.Command, args []string) error {
	s, err := fetchOnce(cmd.Context(), args)
	if err != nil {
		return err
	}
	d := s.Dashboard()
	out := cmd.OutOrStdout()
	if jsonOut {
		return writeJSON(out, d)
	}

	if err := view.WriteMetrics(out, d.Ticker, *d.Metrics); err != nil {
		return err
	}
	fmt.Fprintln(out)
	if err := view.WriteChart(out, *d.Chart, 60); err != nil {
		return err
	}
	fmt.Fprintln(out)
	return view.WriteTail(out, d.Tail)
}

func runSignal(cmd *cobra.Command, args []string) error {
	s, err := fetchOnce(cmd.Context(), args)
	if err != nil {
		return err
	}
	d := s.Dashboard()
	if jsonOut {
		return writeJSON(cmd.OutOrStdout(), d.Signal)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %s)\n", d.Ticker, d.Period, d.Interval)
	return view.WriteSignal(cmd.OutOrStdout(), d.Signal)
}
