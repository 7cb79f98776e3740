package session

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rustyeddy/papertrader/ledger"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/signals"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func barsOf(closes ...float64) []market.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]market.Bar, len(closes))
	for i, c := range closes {
		out[i] = market.Bar{Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return out
}

func flat(v float64, n int, last ...float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return append(out, last...)
}

// fakeProvider serves canned closes per ticker and counts calls.
type fakeProvider struct {
	mu     sync.Mutex
	data   map[string][]float64
	err    error
	calls  int
	params []market.Period
}

func (f *fakeProvider) Fetch(ctx context.Context, ticker string, period market.Period, interval market.Interval) ([]market.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.params = append(f.params, period)
	if f.err != nil {
		return nil, f.err
	}
	closes, ok := f.data[ticker]
	if !ok {
		return nil, nil
	}
	return barsOf(closes...), nil
}

func newFake() *fakeProvider {
	return &fakeProvider{data: map[string][]float64{
		"UP":    flat(100, 30, 110),
		"DOWN":  flat(100, 30, 90),
		"FLAT":  flat(100, 40),
		"SHORT": {10, 11, 12},
	}}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestFetchNormalizesAndMarks(t *testing.T) {
	t.Parallel()

	p := newFake()
	s := New("s1", p)

	require.NoError(t, s.Fetch(context.Background(), "  up ", "", ""))
	assert.Equal(t, "UP", s.Ticker())
	assert.Equal(t, []market.Period{market.DefaultPeriod}, p.params)

	last, ok := s.Ledger().LastPrice("UP")
	require.True(t, ok)
	assert.True(t, last.Equal(d("110")))

	sig, err := s.Signal()
	require.NoError(t, err)
	assert.Equal(t, signals.Buy, sig.Action)
	assert.Equal(t, 68, sig.Confidence)
}

func TestFetchEmptyTicker(t *testing.T) {
	t.Parallel()

	p := newFake()
	s := New("s1", p)
	err := s.Fetch(context.Background(), "   ", market.Period1Y, market.Interval1D)
	assert.True(t, errors.Is(err, market.ErrEmptyTicker))
	assert.Zero(t, p.calls)
}

func TestFetchNoDataKeepsState(t *testing.T) {
	t.Parallel()

	s := New("s1", newFake())
	require.NoError(t, s.Fetch(context.Background(), "UP", market.Period1Y, market.Interval1D))

	err := s.Fetch(context.Background(), "NOPE", market.Period1Y, market.Interval1D)
	assert.True(t, errors.Is(err, market.ErrNoData))
	assert.Equal(t, "UP", s.Ticker())

	d := s.Dashboard()
	assert.Equal(t, "UP", d.Ticker)
	require.NotNil(t, d.Metrics)
	assert.Equal(t, 110.0, d.Metrics.Last)
}

func TestFetchProviderError(t *testing.T) {
	t.Parallel()

	p := newFake()
	p.err = errors.New("network down")
	s := New("s1", p)

	err := s.Fetch(context.Background(), "UP", market.Period1Y, market.Interval1D)
	assert.EqualError(t, err, "network down")
	assert.Empty(t, s.Ticker())
}

func TestFetchShortHistoryHasNoSignal(t *testing.T) {
	t.Parallel()

	s := New("s1", newFake())
	require.NoError(t, s.Fetch(context.Background(), "SHORT", market.Period1Mo, market.Interval1D))

	_, err := s.Signal()
	assert.True(t, errors.Is(err, signals.ErrNotEnoughBars))

	dash := s.Dashboard()
	assert.Nil(t, dash.Signal.Signal)
	assert.Contains(t, dash.Signal.Note, "Not enough bars")

	_, err = s.Follow(1)
	assert.True(t, errors.Is(err, ErrNothingToFollow))
}

func TestTradeWithoutTicker(t *testing.T) {
	t.Parallel()

	s := New("s1", newFake())

	_, err := s.Buy(1)
	assert.True(t, errors.Is(err, ErrNoTicker))
	_, err = s.Sell(1)
	assert.True(t, errors.Is(err, ErrNoTicker))
	_, err = s.Follow(1)
	assert.True(t, errors.Is(err, ErrNoTicker))
	_, err = s.Signal()
	assert.True(t, errors.Is(err, ErrNoTicker))
}

func TestBuySellAtLastPrice(t *testing.T) {
	t.Parallel()

	s := New("s1", newFake())
	require.NoError(t, s.Fetch(context.Background(), "UP", market.Period1Y, market.Interval1D))

	tr, err := s.Buy(10)
	require.NoError(t, err)
	assert.True(t, tr.Price.Equal(d("110")))
	assert.True(t, s.Ledger().Cash().Equal(d("8900")))

	_, err = s.Sell(11)
	assert.True(t, errors.Is(err, ledger.ErrInsufficientShares))

	tr, err = s.Sell(4)
	require.NoError(t, err)
	assert.True(t, tr.RealizedPL.IsZero())

	_, err = s.Buy(0)
	assert.True(t, errors.Is(err, ledger.ErrInvalidQuantity))
}

func TestFollow(t *testing.T) {
	t.Parallel()

	s := New("s1", newFake())
	ctx := context.Background()

	require.NoError(t, s.Fetch(ctx, "UP", market.Period1Y, market.Interval1D))
	tr, err := s.Follow(5)
	require.NoError(t, err)
	assert.Equal(t, ledger.Buy, tr.Side)

	// a SELL signal on a ticker we do not hold fails closed
	require.NoError(t, s.Fetch(ctx, "DOWN", market.Period1Y, market.Interval1D))
	_, err = s.Follow(5)
	assert.True(t, errors.Is(err, ledger.ErrInsufficientShares))

	require.NoError(t, s.Fetch(ctx, "FLAT", market.Period1Y, market.Interval1D))
	_, err = s.Follow(5)
	assert.True(t, errors.Is(err, ErrNothingToFollow))

	assert.Len(t, s.Ledger().History(), 1)
}

func TestFollowSell(t *testing.T) {
	t.Parallel()

	p := newFake()
	s := New("s1", p)
	ctx := context.Background()

	require.NoError(t, s.Fetch(ctx, "DOWN", market.Period1Y, market.Interval1D))
	// mark 90, buy and then follow the SELL
	_, err := s.Buy(3)
	require.NoError(t, err)
	tr, err := s.Follow(3)
	require.NoError(t, err)
	assert.Equal(t, ledger.Sell, tr.Side)
	_, held := s.Ledger().Position("DOWN")
	assert.False(t, held)
}

func TestResetKeepsBarsAndMark(t *testing.T) {
	t.Parallel()

	s := New("s1", newFake(), WithLedger(ledger.New(ledger.WithStartingCash(d("1000")))))
	require.NoError(t, s.Fetch(context.Background(), "UP", market.Period1Y, market.Interval1D))
	_, err := s.Buy(5)
	require.NoError(t, err)

	s.Reset()

	assert.True(t, s.Ledger().Cash().Equal(d("1000")))
	assert.Empty(t, s.Ledger().History())
	assert.Equal(t, "UP", s.Ticker())

	// trading still works after reset because the last close is re-marked
	_, err = s.Buy(1)
	require.NoError(t, err)
}

func TestDashboardValuesPortfolio(t *testing.T) {
	t.Parallel()

	s := New("s1", newFake())
	require.NoError(t, s.Fetch(context.Background(), "UP", market.Period1Y, market.Interval1D))
	_, err := s.Buy(10)
	require.NoError(t, err)

	dash := s.Dashboard()
	assert.Equal(t, "s1", dash.SessionID)
	assert.Empty(t, dash.Portfolio.Error)
	assert.True(t, dash.Portfolio.NetWorth.Equal(d("10000")))
	require.Len(t, dash.Portfolio.Positions, 1)
	assert.Equal(t, "UP", dash.Portfolio.Positions[0].Ticker)
	assert.Len(t, dash.History, 1)
	require.NotNil(t, dash.Chart)
	assert.Len(t, dash.Chart.Candles, 31)
}

type slowProvider struct{}

func (slowProvider) Fetch(ctx context.Context, ticker string, period market.Period, interval market.Interval) ([]market.Bar, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestFetchTimeout(t *testing.T) {
	t.Parallel()

	s := New("s1", slowProvider{}, WithTimeout(10*time.Millisecond))
	err := s.Fetch(context.Background(), "UP", market.Period1Y, market.Interval1D)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestFetchNonFiniteCloseIsRejected(t *testing.T) {
	t.Parallel()

	for _, c := range []float64{math.NaN(), math.Inf(1), 0} {
		p := market.ProviderFunc(func(ctx context.Context, ticker string, period market.Period, interval market.Interval) ([]market.Bar, error) {
			return barsOf(100, c), nil
		})
		s := New("s1", p)

		err := s.Fetch(context.Background(), "BAD", market.Period1Y, market.Interval1D)
		assert.True(t, errors.Is(err, market.ErrBadBar), "close %v: %v", c, err)
		assert.Empty(t, s.Ticker())
		_, ok := s.Ledger().LastPrice("BAD")
		assert.False(t, ok)
	}
}

func TestFetchTinyCloseKeepsExactPrice(t *testing.T) {
	t.Parallel()

	p := market.ProviderFunc(func(ctx context.Context, ticker string, period market.Period, interval market.Interval) ([]market.Bar, error) {
		return barsOf(0.00002, 0.00001), nil
	})
	s := New("s1", p)

	require.NoError(t, s.Fetch(context.Background(), "DUST", market.Period1Y, market.Interval1D))
	last, ok := s.Ledger().LastPrice("DUST")
	require.True(t, ok)
	assert.True(t, last.Equal(d("0.00001")), last.String())

	_, err := s.Buy(1000)
	require.NoError(t, err)
}

func TestMark(t *testing.T) {
	t.Parallel()

	p, err := mark(123.456789)
	require.NoError(t, err)
	assert.True(t, p.Equal(d("123.456789")))

	_, err = mark(math.NaN())
	assert.True(t, errors.Is(err, market.ErrBadBar))
	_, err = mark(math.Inf(-1))
	assert.True(t, errors.Is(err, market.ErrBadBar))
}
