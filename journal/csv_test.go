package journal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVJournalRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fills.csv")
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	j, err := NewCSV(path)
	require.NoError(t, err)

	buy := sampleFill("F1", "BUY", "AAPL", 10, "100", ts)
	sell := sampleFill("F2", "SELL", "AAPL", 4, "120.5", ts.Add(time.Minute))
	sell.RealizedPL = decimal.RequireFromString("82")
	require.NoError(t, j.RecordFill(buy))
	require.NoError(t, j.RecordFill(sell))
	require.NoError(t, j.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	got, err := ReadCSV(f)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "F1", got[0].ID)
	assert.Equal(t, "acct-1", got[0].Account)
	assert.Equal(t, int64(10), got[0].Qty)
	assert.True(t, got[0].Price.Equal(decimal.NewFromInt(100)))
	assert.True(t, got[0].Time.Equal(ts))

	assert.Equal(t, "SELL", got[1].Side)
	assert.True(t, got[1].Price.Equal(decimal.RequireFromString("120.5")))
	assert.True(t, got[1].RealizedPL.Equal(decimal.NewFromInt(82)))
}

func TestCSVJournalAppendsWithoutSecondHeader(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fills.csv")
	ts := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	for i, fid := range []string{"F1", "F2"} {
		j, err := NewCSV(path)
		require.NoError(t, err)
		require.NoError(t, j.RecordFill(sampleFill(fid, "BUY", "MSFT", int64(i+1), "50", ts)))
		require.NoError(t, j.Close())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "id,account,side"))

	got, err := ReadCSV(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestReadCSVBadRow(t *testing.T) {
	t.Parallel()

	in := strings.Join(csvHeader, ",") + "\nF1,a,BUY,AAPL,ten,1,0,0,2024-01-01T00:00:00Z\n"
	_, err := ReadCSV(strings.NewReader(in))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestNewCSVEmptyPath(t *testing.T) {
	t.Parallel()

	_, err := NewCSV("")
	assert.Error(t, err)
}
