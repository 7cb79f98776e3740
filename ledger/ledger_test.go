package ledger

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/market"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "want %s, got %s", want, got)
}

type captureJournal struct {
	mu    sync.Mutex
	fills []journal.FillRecord
	err   error
}

func (c *captureJournal) RecordFill(r journal.FillRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fills = append(c.fills, r)
	return c.err
}

func (c *captureJournal) Close() error { return nil }

func TestNewLedger(t *testing.T) {
	t.Parallel()

	l := New()
	assertDec(t, "10000", l.Cash())
	assert.Empty(t, l.Positions())
	assert.Empty(t, l.History())

	l = New(WithStartingCash(d("2500.50")))
	assertDec(t, "2500.50", l.Cash())
	assertDec(t, "2500.50", l.StartingCash())
}

func TestBuyFromInitialState(t *testing.T) {
	t.Parallel()

	l := New()
	tr, err := l.Buy("AAPL", 10, d("100.00"))
	require.NoError(t, err)

	assertDec(t, "9000.00", l.Cash())
	pos, ok := l.Position("AAPL")
	require.True(t, ok)
	assert.Equal(t, int64(10), pos.Shares)
	assertDec(t, "100.00", pos.AvgCost)

	assert.Equal(t, Buy, tr.Side)
	assert.Equal(t, "AAPL", tr.Ticker)
	assert.NotEmpty(t, tr.ID)
	assert.True(t, tr.RealizedPL.IsZero())
	assert.Len(t, l.History(), 1)
}

func TestBuyAveragesCost(t *testing.T) {
	t.Parallel()

	l := New()
	_, err := l.Buy("AAPL", 10, d("100.00"))
	require.NoError(t, err)
	_, err = l.Buy("AAPL", 10, d("120.00"))
	require.NoError(t, err)

	pos, ok := l.Position("AAPL")
	require.True(t, ok)
	assert.Equal(t, int64(20), pos.Shares)
	assertDec(t, "110.00", pos.AvgCost)
	assertDec(t, "7800", l.Cash())
}

func TestBuyInsufficientFunds(t *testing.T) {
	t.Parallel()

	l := New()
	_, err := l.Buy("AAPL", 101, d("100"))
	assert.True(t, errors.Is(err, ErrInsufficientFunds))

	assertDec(t, "10000", l.Cash())
	assert.Empty(t, l.Positions())
	assert.Empty(t, l.History())

	// spending exactly all cash is allowed
	_, err = l.Buy("AAPL", 100, d("100"))
	require.NoError(t, err)
	assert.True(t, l.Cash().IsZero())
}

func TestSellMoreThanHeld(t *testing.T) {
	t.Parallel()

	l := New()
	_, err := l.Buy("AAPL", 10, d("100"))
	require.NoError(t, err)

	before := l.History()
	_, err = l.Sell("AAPL", 11, d("100"))
	assert.True(t, errors.Is(err, ErrInsufficientShares))

	assertDec(t, "9000", l.Cash())
	pos, _ := l.Position("AAPL")
	assert.Equal(t, int64(10), pos.Shares)
	assert.Equal(t, before, l.History())

	_, err = l.Sell("MSFT", 1, d("100"))
	assert.True(t, errors.Is(err, ErrInsufficientShares))
}

func TestSellPartialKeepsAverage(t *testing.T) {
	t.Parallel()

	l := New()
	_, err := l.Buy("AAPL", 10, d("100"))
	require.NoError(t, err)

	tr, err := l.Sell("AAPL", 4, d("110"))
	require.NoError(t, err)

	assert.Equal(t, Sell, tr.Side)
	assertDec(t, "40", tr.RealizedPL)
	assertDec(t, "9440", l.Cash())

	pos, ok := l.Position("AAPL")
	require.True(t, ok)
	assert.Equal(t, int64(6), pos.Shares)
	assertDec(t, "100", pos.AvgCost)
}

func TestSellAllRemovesPosition(t *testing.T) {
	t.Parallel()

	l := New()
	_, err := l.Buy("AAPL", 5, d("100"))
	require.NoError(t, err)
	tr, err := l.Sell("aapl", 5, d("90"))
	require.NoError(t, err)

	assertDec(t, "-50", tr.RealizedPL)
	_, ok := l.Position("AAPL")
	assert.False(t, ok)
	assert.Empty(t, l.Positions())
	assertDec(t, "9950", l.Cash())
}

func TestInvalidArguments(t *testing.T) {
	t.Parallel()

	l := New()

	_, err := l.Buy("AAPL", 0, d("1"))
	assert.True(t, errors.Is(err, ErrInvalidQuantity))
	_, err = l.Sell("AAPL", -3, d("1"))
	assert.True(t, errors.Is(err, ErrInvalidQuantity))
	_, err = l.Buy("AAPL", 1, decimal.Zero)
	assert.True(t, errors.Is(err, ErrInvalidPrice))
	_, err = l.Buy(" ", 1, d("1"))
	assert.True(t, errors.Is(err, market.ErrEmptyTicker))
	assert.True(t, errors.Is(l.MarkPrice("AAPL", d("-1")), ErrInvalidPrice))

	assertDec(t, "10000", l.Cash())
	assert.Empty(t, l.History())
}

func TestReset(t *testing.T) {
	t.Parallel()

	l := New(WithStartingCash(d("5000")))
	_, err := l.Buy("AAPL", 10, d("100"))
	require.NoError(t, err)
	require.NoError(t, l.MarkPrice("AAPL", d("105")))

	l.Reset()

	assertDec(t, "5000", l.Cash())
	assert.Empty(t, l.Positions())
	assert.Empty(t, l.History())
	_, ok := l.LastPrice("AAPL")
	assert.False(t, ok)
}

func TestPositionsSorted(t *testing.T) {
	t.Parallel()

	l := New()
	for _, tk := range []string{"MSFT", "AAPL", "GOOG"} {
		_, err := l.Buy(tk, 1, d("10"))
		require.NoError(t, err)
	}

	var got []string
	for _, p := range l.Positions() {
		got = append(got, p.Ticker)
	}
	assert.Equal(t, []string{"AAPL", "GOOG", "MSFT"}, got)
}

func TestHistoryIsACopy(t *testing.T) {
	t.Parallel()

	l := New()
	_, err := l.Buy("AAPL", 1, d("10"))
	require.NoError(t, err)

	h := l.History()
	h[0].Qty = 999
	assert.Equal(t, int64(1), l.History()[0].Qty)
}

func TestClockAndJournal(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)
	j := &captureJournal{}
	l := New(
		WithClock(func() time.Time { return ts }),
		WithJournal(j),
		WithAccount("sess-1"),
	)

	buy, err := l.Buy("AAPL", 10, d("100"))
	require.NoError(t, err)
	_, err = l.Sell("AAPL", 10, d("101"))
	require.NoError(t, err)

	assert.True(t, buy.Time.Equal(ts))
	require.Len(t, j.fills, 2)
	assert.Equal(t, buy.ID, j.fills[0].ID)
	assert.Equal(t, "sess-1", j.fills[0].Account)
	assertDec(t, "9000", j.fills[0].CashAfter)
	assert.Equal(t, "SELL", j.fills[1].Side)
	assertDec(t, "10", j.fills[1].RealizedPL)
	assertDec(t, "10010", j.fills[1].CashAfter)

	// failed trades never reach the journal
	_, err = l.Sell("AAPL", 1, d("1"))
	require.Error(t, err)
	assert.Len(t, j.fills, 2)
}

func TestJournalFailureKeepsFill(t *testing.T) {
	t.Parallel()

	j := &captureJournal{err: errors.New("disk full")}
	l := New(WithJournal(j))

	_, err := l.Buy("AAPL", 1, d("10"))
	require.NoError(t, err)
	assertDec(t, "9990", l.Cash())
	assert.Len(t, l.History(), 1)
}

func TestConcurrentBuysNeverOverspend(t *testing.T) {
	t.Parallel()

	l := New(WithStartingCash(d("1000")))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.Buy("AAPL", 1, d("30"))
		}()
	}
	wg.Wait()

	pos, ok := l.Position("AAPL")
	require.True(t, ok)
	assert.Equal(t, int64(33), pos.Shares)
	assertDec(t, "10", l.Cash())
	assert.Len(t, l.History(), 33)
}
