package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/market/csvfeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args. The commands share package-level
// flag variables, so these tests do not run in parallel.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cfgFile, logLevel, logFormat = "", "", ""
	fetchPeriod, fetchInterval, jsonOut = "", "", false
	journalKind, journalPath, journalFormat = "", "", "table"
	journalFilter = journal.Filter{}

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// testConfig writes an UP ticker (30 flat closes, then a jump) to a csv
// data dir and returns a config that reads it and journals to sqlite.
func testConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]market.Bar, 31)
	for i := range bars {
		c := 100.0
		if i == 30 {
			c = 110
		}
		bars[i] = market.Bar{Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	_, err := csvfeed.Save(filepath.Join(dir, "data"), "UP", bars)
	require.NoError(t, err)

	path := filepath.Join(dir, "papertrader.yaml")
	yml := "market:\n" +
		"  provider: csv\n" +
		"  data_dir: " + filepath.Join(dir, "data") + "\n" +
		"journal:\n" +
		"  type: sqlite\n" +
		"  path: " + filepath.Join(dir, "fills.db") + "\n" +
		"log:\n" +
		"  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "papertrader version "+version)
}

func TestDemoCommand(t *testing.T) {
	out, err := execute(t, "", "demo", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Price data: [101, 102, 103, 102, 101, 100, 99, 98]")
	assert.Contains(t, out, "Sell signal triggered")
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")

	out, err := execute(t, "", "config", "init", "--output", path, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Created default configuration")

	out, err = execute(t, "", "config", "validate", "--file", path, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, "Signal: SMA 10/30, RSI 14 (40/60)")
}

func TestSignalCommand(t *testing.T) {
	cfgPath := testConfig(t)

	out, err := execute(t, "", "signal", "up", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "UP (1y, 1d)")
	assert.Contains(t, out, "Signal: BUY  confidence 68%")

	out, err = execute(t, "", "signal", "UP", "--json", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, `"action": "BUY"`)

	_, err = execute(t, "", "signal", "NOPE", "--config", cfgPath)
	assert.True(t, errors.Is(err, market.ErrNoData))
}

func TestQuoteCommand(t *testing.T) {
	cfgPath := testConfig(t)

	out, err := execute(t, "", "quote", "UP", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Last Close")
	assert.Contains(t, out, "$110.00")
	assert.Contains(t, out, "SMA 20")
	assert.Contains(t, out, "2024-01-31")

	_, err = execute(t, "", "quote", "UP", "--period", "7y", "--config", cfgPath)
	assert.True(t, errors.Is(err, market.ErrUnknownPeriod))
}

func TestTradeSessionAndJournal(t *testing.T) {
	cfgPath := testConfig(t)

	script := strings.Join([]string{
		"buy 1",
		"fetch up",
		"buy 10",
		"sell 4",
		"sell 100",
		"follow 2",
		"bogus",
		"show",
		"quit",
	}, "\n")
	out, err := execute(t, script, "trade", "--config", cfgPath)
	require.NoError(t, err)

	assert.Contains(t, out, "error: no ticker fetched")
	assert.Contains(t, out, "BUY 10 UP @ $110.00")
	assert.Contains(t, out, "SELL 4 UP @ $110.00")
	assert.Contains(t, out, "error: insufficient shares")
	assert.Contains(t, out, "BUY 2 UP @ $110.00")
	assert.Contains(t, out, `error: unknown command "bogus"`)
	assert.Contains(t, out, "Net Worth")

	out, err = execute(t, "", "journal", "list", "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, " UP "), out)

	out, err = execute(t, "", "journal", "list", "--format", "org", "--limit", "1", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "** BUY 10 UP @ 110.00")
	assert.NotContains(t, out, "SELL")
}

func TestTradeEOF(t *testing.T) {
	cfgPath := testConfig(t)

	out, err := execute(t, "fetch UP\n", "trade", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Signal: BUY")
}

func TestJournalNeedsQueryableKind(t *testing.T) {
	_, err := execute(t, "", "journal", "list", "--log-level", "error")
	assert.Error(t, err)
}

func TestFilterFills(t *testing.T) {
	all := []journal.FillRecord{
		{ID: "1", Account: "a", Ticker: "AAPL"},
		{ID: "2", Account: "b", Ticker: "MSFT"},
		{ID: "3", Account: "a", Ticker: "MSFT"},
	}

	assert.Len(t, filterFills(all, journal.Filter{}), 3)
	assert.Len(t, filterFills(all, journal.Filter{Ticker: "msft"}), 2)
	assert.Len(t, filterFills(all, journal.Filter{Account: "a", Ticker: "MSFT"}), 1)
	assert.Len(t, filterFills(all, journal.Filter{Limit: 2}), 2)
}
