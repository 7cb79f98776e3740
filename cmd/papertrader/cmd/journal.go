package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/pkg/id"
	"github.com/rustyeddy/papertrader/view"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the trade journal",
	Long: `Query fills recorded by trade and serve sessions.

Subcommands:
  list  - List fills, optionally by ticker or account
  show  - Show one fill by ID (SQLite only)

The journal kind and path default to journal.type and journal.path.

Examples:
  papertrader journal list --ticker AAPL
  papertrader journal list --kind csv --path fills.csv --format org
  papertrader journal show 01HV6Z3J8Y9K0M1N2P3Q4R5S6T`,
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded fills",
	Args:  cobra.NoArgs,
	RunE:  runJournalList,
}

var journalShowCmd = &cobra.Command{
	Use:   "show <fill-id>",
	Short: "Show a single fill",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalShow,
}

var (
	journalKind   string
	journalPath   string
	journalFormat string
	journalFilter journal.Filter
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalShowCmd)

	journalCmd.PersistentFlags().StringVar(&journalKind, "kind", "", "journal kind (csv or sqlite)")
	journalCmd.PersistentFlags().StringVar(&journalPath, "path", "", "journal file")
	journalCmd.PersistentFlags().StringVar(&journalFormat, "format", "table", "output format (table or org)")

	journalListCmd.Flags().StringVar(&journalFilter.Ticker, "ticker", "", "only fills for this ticker")
	journalListCmd.Flags().StringVar(&journalFilter.Account, "account", "", "only fills for this account (session ID)")
	journalListCmd.Flags().IntVarP(&journalFilter.Limit, "limit", "n", 0, "at most this many fills")
}

func journalSource() (string, string, error) {
	kind, path := journalKind, journalPath
	if kind == "" {
		kind = cfg.Journal.Type
	}
	if path == "" {
		path = cfg.Journal.Path
	}
	kind = strings.ToLower(strings.TrimSpace(kind))
	switch kind {
	case journal.KindCSV, journal.KindSQLite:
	default:
		return "", "", fmt.Errorf("journal kind %q cannot be queried; use --kind csv or --kind sqlite", kind)
	}
	if path == "" {
		return "", "", fmt.Errorf("journal path required")
	}
	return kind, path, nil
}

func runJournalList(cmd *cobra.Command, args []string) error {
	kind, path, err := journalSource()
	if err != nil {
		return err
	}

	var fills []journal.FillRecord
	if kind == journal.KindSQLite {
		j, err := journal.NewSQLite(path)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer j.Close()
		if fills, err = j.ListFills(context.Background(), journalFilter); err != nil {
			return fmt.Errorf("query fills: %w", err)
		}
	} else {
		fh, err := os.Open(path)
		if err != nil {
			return err
		}
		defer fh.Close()
		all, err := journal.ReadCSV(fh)
		if err != nil {
			return err
		}
		fills = filterFills(all, journalFilter)
	}

	return writeFills(cmd.OutOrStdout(), fills)
}

func runJournalShow(cmd *cobra.Command, args []string) error {
	kind, path, err := journalSource()
	if err != nil {
		return err
	}
	if kind != journal.KindSQLite {
		return fmt.Errorf("show needs a sqlite journal")
	}

	j, err := journal.NewSQLite(path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	rec, err := j.GetFill(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("get fill: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatFillOrg(rec))
	return nil
}

func filterFills(all []journal.FillRecord, f journal.Filter) []journal.FillRecord {
	out := []journal.FillRecord{}
	for _, r := range all {
		if f.Ticker != "" && !strings.EqualFold(r.Ticker, f.Ticker) {
			continue
		}
		if f.Account != "" && r.Account != f.Account {
			continue
		}
		out = append(out, r)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

func writeFills(w io.Writer, fills []journal.FillRecord) error {
	switch journalFormat {
	case "org":
		_, err := fmt.Fprintln(w, journal.FormatFillsOrg(fills))
		return err
	case "table", "":
	default:
		return fmt.Errorf("unknown format %q", journalFormat)
	}

	if len(fills) == 0 {
		_, err := fmt.Fprintln(w, "No fills.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTime\tAccount\tSide\tTicker\tQty\tPrice\tRealized\tCash After")
	for _, r := range fills {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			id.Short(r.ID), r.Time.Format("2006-01-02 15:04:05"), id.Short(r.Account),
			r.Side, r.Ticker, r.Qty, view.Money(r.Price), view.Money(r.RealizedPL), view.Money(r.CashAfter))
	}
	return tw.Flush()
}
