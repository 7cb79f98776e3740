package journal

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	return j, path
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='fills'`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "fills", name)
}

func TestSQLiteGetFill(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	ts := time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC)
	want := sampleFill("F123", "SELL", "AAPL", 5, "101.37", ts)
	want.RealizedPL = decimal.RequireFromString("6.85")
	require.NoError(t, j.RecordFill(want))

	got, err := j.GetFill(context.Background(), "F123")
	require.NoError(t, err)

	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Account, got.Account)
	assert.Equal(t, want.Side, got.Side)
	assert.Equal(t, want.Ticker, got.Ticker)
	assert.Equal(t, want.Qty, got.Qty)
	assert.True(t, want.Price.Equal(got.Price))
	assert.True(t, want.RealizedPL.Equal(got.RealizedPL))
	assert.True(t, want.CashAfter.Equal(got.CashAfter))
	assert.True(t, want.Time.Equal(got.Time))
}

func TestSQLiteGetFillNotFound(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	_, err := j.GetFill(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteDuplicateID(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	r := sampleFill("DUP", "BUY", "AAPL", 1, "1", time.Now())
	require.NoError(t, j.RecordFill(r))
	assert.Error(t, j.RecordFill(r))
}

func TestSQLiteListFills(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	fills := []FillRecord{
		sampleFill("F3", "BUY", "MSFT", 1, "300", base.Add(2*time.Hour)),
		sampleFill("F1", "BUY", "AAPL", 10, "100", base),
		sampleFill("F2", "SELL", "AAPL", 5, "110", base.Add(time.Hour)),
	}
	fills[0].Account = "acct-2"
	for _, f := range fills {
		require.NoError(t, j.RecordFill(f))
	}

	ctx := context.Background()

	all, err := j.ListFills(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"F1", "F2", "F3"}, []string{all[0].ID, all[1].ID, all[2].ID})

	aapl, err := j.ListFills(ctx, Filter{Ticker: "aapl"})
	require.NoError(t, err)
	assert.Len(t, aapl, 2)

	acct, err := j.ListFills(ctx, Filter{Account: "acct-2"})
	require.NoError(t, err)
	require.Len(t, acct, 1)
	assert.Equal(t, "MSFT", acct[0].Ticker)

	limited, err := j.ListFills(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "F1", limited[0].ID)
}
