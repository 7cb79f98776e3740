package cmd

import (
	"fmt"

	"github.com/rustyeddy/papertrader/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Write or check papertrader config files",
	Long: `Manage configuration files.

Subcommands:
  init     - Write the defaults to a YAML or JSON file
  validate - Load a file, apply env overrides and check it

Examples:
  papertrader config init --output papertrader.yaml
  papertrader config validate --file papertrader.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load a config file and report what it sets",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "papertrader.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if err := config.Default().SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Created default configuration: %s\n", configInitOutput)
	fmt.Fprintln(out, "\nEdit the file and run with:")
	fmt.Fprintf(out, "  papertrader trade --config %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	c, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Configuration valid: %s\n", configValidatePath)
	fmt.Fprintf(out, "  Account: $%.2f starting cash\n", c.Account.StartingCash)
	fmt.Fprintf(out, "  Market: %s (%s %s %s)\n", c.Market.Provider, c.Market.Ticker, c.Market.Period, c.Market.Interval)
	fmt.Fprintf(out, "  Signal: SMA %d/%d, RSI %d (%.0f/%.0f)\n",
		c.Signal.FastPeriod, c.Signal.SlowPeriod, c.Signal.RSIPeriod, c.Signal.Oversold, c.Signal.Overbought)
	fmt.Fprintf(out, "  Valuation: %s\n", c.Valuation.Policy)
	fmt.Fprintf(out, "  Journal: %s\n", c.Journal.Type)
	return nil
}
