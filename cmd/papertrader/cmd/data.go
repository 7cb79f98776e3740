package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/market/csvfeed"
	"github.com/rustyeddy/papertrader/market/yahoo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Download market data for offline use",
	Long: `Manage the local bar files read by the csv provider
(market.provider: csv).

Subcommands:
  fetch - Download daily bars from Yahoo and save them as <TICKER>.csv.xz`,
}

var dataFetchCmd = &cobra.Command{
	Use:   "fetch <ticker>...",
	Short: "Download bars and save them to the data directory",
	Long: `Download daily bars for each ticker and write <dir>/<TICKER>.csv.xz.

Example:
  papertrader data fetch AAPL MSFT --dir ./data --period 5y`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDataFetch,
}

var (
	dataDir    string
	dataPeriod string
)

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataFetchCmd)

	dataFetchCmd.Flags().StringVarP(&dataDir, "dir", "d", "", "output directory (default market.data_dir, then ./data)")
	dataFetchCmd.Flags().StringVarP(&dataPeriod, "period", "p", string(market.Period5Y), "lookback period")
}

func runDataFetch(cmd *cobra.Command, args []string) error {
	dir := dataDir
	if dir == "" {
		dir = cfg.Market.DataDir
	}
	if dir == "" {
		dir = "./data"
	}
	period, err := market.ParsePeriod(dataPeriod)
	if err != nil {
		return err
	}

	timeout, err := cfg.Market.FetchTimeout()
	if err != nil {
		return err
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	yc := &yahoo.Client{BaseURL: cfg.Market.BaseURL, UserAgent: cfg.Market.UserAgent, Log: logger}

	for _, t := range args {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		bars, err := yc.Fetch(ctx, t, period, market.Interval1D)
		cancel()
		if err != nil {
			return fmt.Errorf("fetch %s: %w", t, err)
		}
		path, err := csvfeed.Save(dir, t, bars)
		if err != nil {
			return fmt.Errorf("save %s: %w", t, err)
		}
		logger.Info("saved bars", zap.String("ticker", t), zap.Int("bars", len(bars)), zap.String("path", path))
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %d bars -> %s\n", t, len(bars), path)
	}
	return nil
}
