package view

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/rustyeddy/papertrader/ledger"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/pkg/id"
	"github.com/rustyeddy/papertrader/signals"
	"github.com/shopspring/decimal"
)

func newTab(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// Money formats d as dollars with thousands separators, e.g. -$1,234.50.
func Money(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	sign := ""
	if d.IsNegative() && !d.Round(2).IsZero() {
		sign = "-"
	}
	return sign + "$" + b.String() + "." + frac
}

func moneyf(f float64) string {
	return Money(decimal.NewFromFloat(f))
}

var sparks = []rune("▁▂▃▄▅▆▇█")

// Sparkline draws values as a one-line bar chart, sampling down to width.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}
	if len(values) > width {
		sampled := make([]float64, width)
		for i := range sampled {
			sampled[i] = values[i*len(values)/width]
		}
		sampled[width-1] = values[len(values)-1]
		values = sampled
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	out := make([]rune, len(values))
	for i, v := range values {
		idx := 0
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(len(sparks)-1))
		}
		out[i] = sparks[idx]
	}
	return string(out)
}

func WriteMetrics(w io.Writer, ticker string, q market.Quote) error {
	tw := newTab(w)
	fmt.Fprintf(tw, "%s\tLast Close\tChange\tBars\n", ticker)
	fmt.Fprintf(tw, "\t%s\t%s (%+.2f%%)\t%d\n", moneyf(q.Last), moneyf(q.Change), q.ChangePct, q.Bars)
	return tw.Flush()
}

func WriteChart(w io.Writer, c Chart, width int) error {
	if _, err := fmt.Fprintf(w, "%s %s\n", c.Kind, Sparkline(market.Closes(c.Candles), width)); err != nil {
		return err
	}
	tw := newTab(w)
	for _, o := range c.Overlays {
		if len(o.Points) == 0 {
			fmt.Fprintf(tw, "%s\t(warming up)\n", o.Name)
			continue
		}
		fmt.Fprintf(tw, "%s\t%.2f\n", o.Name, o.Points[len(o.Points)-1].Value)
	}
	return tw.Flush()
}

func WriteTail(w io.Writer, bars []market.Bar) error {
	tw := newTab(w)
	fmt.Fprintln(tw, "Date\tOpen\tHigh\tLow\tClose\tVolume")
	for _, b := range bars {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.0f\n",
			b.Time.Format("2006-01-02"), b.Open, b.High, b.Low, b.Close, b.Volume)
	}
	return tw.Flush()
}

func WriteSignal(w io.Writer, p SignalPanel) error {
	if p.Signal == nil {
		_, err := fmt.Fprintf(w, "Signal: %s\n", p.Note)
		return err
	}
	s := p.Signal
	_, err := fmt.Fprintf(w, "Signal: %s  confidence %d%%  RSI %.1f\n  %s\n", s.Action, s.Confidence, s.RSI, s.Rationale)
	return err
}

func WritePortfolio(w io.Writer, p Portfolio) error {
	tw := newTab(w)
	fmt.Fprintf(tw, "Cash\t%s\n", Money(p.Cash))
	if p.Error == "" {
		fmt.Fprintf(tw, "Positions\t%s\n", Money(p.PositionsValue))
		fmt.Fprintf(tw, "Net Worth\t%s\n", Money(p.NetWorth))
	} else {
		fmt.Fprintf(tw, "Net Worth\tunavailable (%s)\n", p.Error)
	}
	fmt.Fprintf(tw, "Realized P&L\t%s\n", Money(p.RealizedPL))
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(p.Positions) == 0 {
		_, err := fmt.Fprintln(w, "No open positions.")
		return err
	}

	tw = newTab(w)
	fmt.Fprintln(tw, "Ticker\tShares\tAvg Cost\tLast\tValue\tUnrealized")
	for _, pv := range p.Positions {
		last, value, upl := Money(pv.LastPrice), Money(pv.MarketValue), Money(pv.UnrealizedPL)
		if pv.Stale {
			if p.Error != "" {
				last, value, upl = "-", "-", "-"
			} else {
				last += "*"
			}
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n", pv.Ticker, pv.Shares, Money(pv.AvgCost), last, value, upl)
	}
	return tw.Flush()
}

func WriteHistory(w io.Writer, trades []ledger.Trade) error {
	if len(trades) == 0 {
		_, err := fmt.Fprintln(w, "No trades yet.")
		return err
	}
	tw := newTab(w)
	fmt.Fprintln(tw, "ID\tTime\tSide\tTicker\tQty\tPrice\tRealized")
	for _, t := range trades {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			id.Short(t.ID), t.Time.Format("2006-01-02 15:04:05"), t.Side, t.Ticker, t.Qty, Money(t.Price), Money(t.RealizedPL))
	}
	return tw.Flush()
}

// WriteDashboard renders every panel of d in order.
func WriteDashboard(w io.Writer, d Dashboard) error {
	if d.Metrics == nil {
		if _, err := fmt.Fprintln(w, "No data. Fetch a ticker first."); err != nil {
			return err
		}
	} else {
		if err := WriteMetrics(w, d.Ticker, *d.Metrics); err != nil {
			return err
		}
		fmt.Fprintln(w)
		if d.Chart != nil {
			if err := WriteChart(w, *d.Chart, 60); err != nil {
				return err
			}
			fmt.Fprintln(w)
		}
		if err := WriteTail(w, d.Tail); err != nil {
			return err
		}
	}

	fmt.Fprintln(w)
	if err := WriteSignal(w, d.Signal); err != nil {
		return err
	}
	fmt.Fprintln(w)
	if err := WritePortfolio(w, d.Portfolio); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return WriteHistory(w, d.History)
}

func WriteDemo(w io.Writer, d Demo) error {
	strs := make([]string, len(d.Prices))
	for i, p := range d.Prices {
		strs[i] = fmt.Sprintf("%g", p)
	}
	if _, err := fmt.Fprintf(w, "Price data: [%s]\n%s\n", strings.Join(strs, ", "), Sparkline(d.Prices, len(d.Prices))); err != nil {
		return err
	}
	if d.Signal == nil {
		_, err := fmt.Fprintf(w, "No signal: %s\n", d.Note)
		return err
	}
	var msg string
	switch d.Signal.Action {
	case signals.Buy:
		msg = "Buy signal triggered"
	case signals.Sell:
		msg = "Sell signal triggered"
	default:
		msg = "Hold position"
	}
	_, err := fmt.Fprintln(w, msg)
	return err
}
