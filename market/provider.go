package market

import (
	"context"
	"errors"
)

// ErrNoData is returned when a fetch yields no bars.
var ErrNoData = errors.New("no data available")

// Provider fetches historical bars for a ticker.
//
// Implementations return bars in chronological order and ErrNoData (possibly
// wrapped) when the ticker/period/interval combination produced nothing.
type Provider interface {
	Fetch(ctx context.Context, ticker string, period Period, interval Interval) ([]Bar, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, ticker string, period Period, interval Interval) ([]Bar, error)

func (f ProviderFunc) Fetch(ctx context.Context, ticker string, period Period, interval Interval) ([]Bar, error) {
	return f(ctx, ticker, period, interval)
}

// Quote is the metrics row shown above a chart.
type Quote struct {
	Last      float64 `json:"last"`
	Prev      float64 `json:"prev"`
	Change    float64 `json:"change"`
	ChangePct float64 `json:"change_pct"`
	Bars      int     `json:"bars"`
}

// Summarize computes last close, previous close and the change between them.
// With a single bar the previous close equals the last close.
func Summarize(bars []Bar) (Quote, error) {
	last, err := Last(bars)
	if err != nil {
		return Quote{}, err
	}

	prev := last.Close
	if len(bars) > 1 {
		prev = bars[len(bars)-2].Close
	}

	q := Quote{
		Last:   last.Close,
		Prev:   prev,
		Change: last.Close - prev,
		Bars:   len(bars),
	}
	if prev != 0 {
		q.ChangePct = q.Change / prev * 100
	}
	return q, nil
}
