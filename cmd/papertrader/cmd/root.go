package cmd

import (
	"fmt"
	"net/http"

	"github.com/rustyeddy/papertrader/config"
	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/ledger"
	"github.com/rustyeddy/papertrader/logging"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/market/csvfeed"
	"github.com/rustyeddy/papertrader/market/yahoo"
	"github.com/rustyeddy/papertrader/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "papertrader",
	Short: "A paper-trading toy: moving-average/RSI signals and a simulated portfolio",
	Long: `Papertrader fetches daily bars for a stock ticker, recommends BUY, SELL or
HOLD from a moving-average crossover confirmed by RSI, and keeps a simulated
cash-and-shares portfolio you can trade against.

Nothing here touches a real broker.

It provides:
  - A static demo of the last-move rule
  - Quotes, charts and signals for any ticker
  - An interactive trading session in the terminal
  - An HTTP/WebSocket server with one isolated session per client
  - CSV or SQLite trade journals`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var (
	cfgFile   string
	logLevel  string
	logFormat string

	cfg    *config.Config
	logger = zap.NewNop()
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override log.format (json, console)")
}

func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if logFormat != "" {
		c.Log.Format = logFormat
	}
	l, err := logging.New(c.Log.Level, c.Log.Format)
	if err != nil {
		return err
	}
	cfg, logger = c, l
	return nil
}

// newProvider builds the market data source named by market.provider.
func newProvider(c *config.Config, log *zap.Logger) (market.Provider, error) {
	timeout, err := c.Market.FetchTimeout()
	if err != nil {
		return nil, err
	}
	switch c.Market.Provider {
	case "csv":
		return csvfeed.New(c.Market.DataDir, log), nil
	case "yahoo", "":
		return &yahoo.Client{
			BaseURL:   c.Market.BaseURL,
			HTTP:      &http.Client{Timeout: timeout},
			UserAgent: c.Market.UserAgent,
			Log:       log,
		}, nil
	default:
		return nil, fmt.Errorf("unknown market provider %q", c.Market.Provider)
	}
}

// sessionFactory returns a factory whose sessions share provider and
// journal but own their ledgers.
func sessionFactory(c *config.Config, p market.Provider, j journal.Journal, log *zap.Logger) (session.Factory, error) {
	policy, err := ledger.ParsePolicy(c.Valuation.Policy)
	if err != nil {
		return nil, err
	}
	timeout, err := c.Market.FetchTimeout()
	if err != nil {
		return nil, err
	}
	return func(id string) *session.Session {
		sl := log.With(zap.String("session", id))
		l := ledger.New(
			ledger.WithStartingCash(c.Account.Cash()),
			ledger.WithPolicy(policy),
			ledger.WithJournal(j),
			ledger.WithAccount(id),
			ledger.WithLogger(sl),
		)
		return session.New(id, p,
			session.WithLedger(l),
			session.WithSignalConfig(c.Signal),
			session.WithTimeout(timeout),
			session.WithLogger(log),
		)
	}, nil
}
