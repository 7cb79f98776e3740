package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/papertrader/pkg/id"
)

// FormatFillOrg renders a fill as an Org-mode entry. Structured facts live in
// a PROPERTIES drawer so they stay searchable; the Notes heading is left for
// the trader to fill in.
func FormatFillOrg(r FillRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** %s %d %s @ %s (%s)\n", r.Side, r.Qty, r.Ticker, r.Price.StringFixed(2), id.Short(r.ID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":ID: %s\n", r.ID)
	if r.Account != "" {
		fmt.Fprintf(&b, ":ACCOUNT: %s\n", r.Account)
	}
	fmt.Fprintf(&b, ":SIDE: %s\n", r.Side)
	fmt.Fprintf(&b, ":TICKER: %s\n", r.Ticker)
	fmt.Fprintf(&b, ":QTY: %d\n", r.Qty)
	fmt.Fprintf(&b, ":PRICE: %s\n", r.Price.StringFixed(2))
	fmt.Fprintf(&b, ":NOTIONAL: %s\n", r.Notional().StringFixed(2))
	fmt.Fprintf(&b, ":REALIZED_PL: %s\n", r.RealizedPL.StringFixed(2))
	fmt.Fprintf(&b, ":CASH_AFTER: %s\n", r.CashAfter.StringFixed(2))
	fmt.Fprintf(&b, ":TIME: %s\n", r.Time.UTC().Format(time.RFC3339))
	b.WriteString(":END:\n")
	b.WriteString("\n*** Notes\n- \n")
	return b.String()
}

// FormatFillsOrg renders multiple fills separated by blank lines.
func FormatFillsOrg(fills []FillRecord) string {
	parts := make([]string, len(fills))
	for i, r := range fills {
		parts[i] = FormatFillOrg(r)
	}
	return strings.Join(parts, "\n")
}
