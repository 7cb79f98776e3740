package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/ledger"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/pkg/id"
	"github.com/rustyeddy/papertrader/session"
	"github.com/rustyeddy/papertrader/view"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var tradeCmd = &cobra.Command{
	Use:   "trade",
	Short: "Trade interactively against a paper portfolio",
	Long: `Start an interactive session with a fresh $10,000 paper portfolio
(account.starting_cash). Commands:

  fetch TICKER [PERIOD] [INTERVAL]  load bars and compute the signal
  buy N | sell N                    trade N shares at the last close
  follow N                          trade N shares in the signal's direction
  reset                             restore starting cash, clear history
  show                              print the dashboard
  help                              list commands
  quit                              leave

Fills are written to the configured journal.

Example:
  papertrader trade --config papertrader.yaml`,
	Args: cobra.NoArgs,
	RunE: runTrade,
}

func init() {
	rootCmd.AddCommand(tradeCmd)
}

func runTrade(cmd *cobra.Command, args []string) error {
	provider, err := newProvider(cfg, logger)
	if err != nil {
		return err
	}
	j, err := journal.Open(cfg.Journal.Type, cfg.Journal.Path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	factory, err := sessionFactory(cfg, provider, j, logger)
	if err != nil {
		return err
	}
	s := factory(id.New())

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Paper trading session %s. Type 'help' for commands.\n", id.Short(s.ID()))
	return repl(cmd.Context(), cmd.InOrStdin(), out, s)
}

// repl reads one command per line until quit or EOF. Errors from a single
// command are printed and the loop continues.
func repl(ctx context.Context, in io.Reader, out io.Writer, s *session.Session) error {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}

		done, err := dispatch(ctx, out, s, fields)
		if err != nil {
			logger.Debug("command failed", zap.Strings("cmd", fields), zap.Error(err))
			fmt.Fprintf(out, "error: %v\n", err)
		}
		if done {
			return nil
		}
	}
}

func dispatch(ctx context.Context, out io.Writer, s *session.Session, fields []string) (bool, error) {
	verb, rest := strings.ToLower(fields[0]), fields[1:]
	switch verb {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		fmt.Fprintln(out, "commands: fetch TICKER [PERIOD] [INTERVAL], buy N, sell N, follow N, reset, show, quit")
		return false, nil
	case "show":
		return false, view.WriteDashboard(out, s.Dashboard())
	case "reset":
		s.Reset()
		fmt.Fprintln(out, "Portfolio reset.")
		return false, nil
	case "fetch":
		if len(rest) == 0 {
			return false, market.ErrEmptyTicker
		}
		var p, iv string
		if len(rest) > 1 {
			p = rest[1]
		}
		if len(rest) > 2 {
			iv = rest[2]
		}
		period, err := market.ParsePeriod(p)
		if err != nil {
			return false, err
		}
		interval, err := market.ParseInterval(iv)
		if err != nil {
			return false, err
		}
		if err := s.Fetch(ctx, rest[0], period, interval); err != nil {
			return false, err
		}
		return false, view.WriteDashboard(out, s.Dashboard())
	case "buy", "sell", "follow":
		qty, err := parseQty(rest)
		if err != nil {
			return false, err
		}
		var tr ledger.Trade
		switch verb {
		case "buy":
			tr, err = s.Buy(qty)
		case "sell":
			tr, err = s.Sell(qty)
		default:
			tr, err = s.Follow(qty)
		}
		if err != nil {
			return false, err
		}
		fmt.Fprintf(out, "%s %d %s @ %s\n", tr.Side, tr.Qty, tr.Ticker, view.Money(tr.Price))
		return false, view.WritePortfolio(out, view.BuildPortfolio(s.Ledger()))
	default:
		return false, fmt.Errorf("unknown command %q", verb)
	}
}

func parseQty(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, errors.New("quantity required")
	}
	n, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("quantity %q: %w", args[0], ledger.ErrInvalidQuantity)
	}
	return n, nil
}
