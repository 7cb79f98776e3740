// Package csvfeed is an offline market.Provider backed by one CSV file per
// ticker. Files may be plain (.csv), xz (.csv.xz) or raw lzma (.csv.lzma)
// compressed.
//
// Files hold daily bars with the header time,open,high,low,close,volume.
// Fetch trims them to the requested period and resamples to the interval.
package csvfeed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/papertrader/market"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
	"go.uber.org/zap"
)

var header = []string{"time", "open", "high", "low", "close", "volume"}

// extensions in lookup order
var extensions = []string{".csv", ".csv.xz", ".csv.lzma"}

type Feed struct {
	Dir string
	Log *zap.Logger
}

var _ market.Provider = (*Feed)(nil)

func New(dir string, log *zap.Logger) *Feed {
	if log == nil {
		log = zap.NewNop()
	}
	return &Feed{Dir: dir, Log: log}
}

// Path returns the first existing data file for ticker.
func (f *Feed) Path(ticker string) (string, error) {
	for _, ext := range extensions {
		p := filepath.Join(f.Dir, ticker+ext)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s: no file in %s: %w", ticker, f.Dir, market.ErrNoData)
}

func (f *Feed) Fetch(ctx context.Context, ticker string, period market.Period, interval market.Interval) ([]market.Bar, error) {
	ticker, err := market.NormalizeTicker(ticker)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := f.Path(ticker)
	if err != nil {
		return nil, err
	}

	bars, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	bars = market.Resample(market.Trim(bars, period), interval)
	if f.Log != nil {
		f.Log.Debug("csv fetch",
			zap.String("ticker", ticker),
			zap.String("path", path),
			zap.Int("bars", len(bars)),
		)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: %w", ticker, market.ErrNoData)
	}
	return bars, nil
}

// ReadFile reads bars from path, decompressing by extension.
func ReadFile(path string) ([]market.Bar, error) {
	fh, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, market.ErrNoData)
		}
		return nil, err
	}
	defer fh.Close()

	var r io.Reader = fh
	switch {
	case strings.HasSuffix(path, ".xz"):
		r, err = xz.NewReader(fh)
	case strings.HasSuffix(path, ".lzma"):
		r, err = lzma.NewReader(fh)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	bars, err := Read(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bars, nil
}

// Read parses CSV bars and returns them sorted by time.
func Read(r io.Reader) ([]market.Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)
	cr.TrimLeadingSpace = true

	first, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	for i, h := range header {
		if !strings.EqualFold(strings.TrimSpace(first[i]), h) {
			return nil, fmt.Errorf("bad header %v, want %v", first, header)
		}
	}

	var bars []market.Bar
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, err
		}
		b, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, b)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func parseRow(row []string) (market.Bar, error) {
	ts, err := parseTime(row[0])
	if err != nil {
		return market.Bar{}, err
	}

	var v [5]float64
	for i := range v {
		v[i], err = strconv.ParseFloat(strings.TrimSpace(row[i+1]), 64)
		if err != nil {
			return market.Bar{}, fmt.Errorf("%s: %w", header[i+1], err)
		}
	}
	b := market.Bar{Time: ts, Open: v[0], High: v[1], Low: v[2], Close: v[3], Volume: v[4]}
	if err := b.Validate(); err != nil {
		return market.Bar{}, err
	}
	return b, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("time %q: want RFC3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

// Write emits bars in the format Read accepts.
func Write(w io.Writer, bars []market.Bar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, b := range bars {
		row := []string{
			b.Time.UTC().Format(time.RFC3339),
			ff(b.Open), ff(b.High), ff(b.Low), ff(b.Close), ff(b.Volume),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Save writes bars to <dir>/<TICKER>.csv.xz and returns the path.
func Save(dir, ticker string, bars []market.Bar) (string, error) {
	ticker, err := market.NormalizeTicker(ticker)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, ticker+".csv.xz")
	tmp := path + ".part"

	fh, err := os.Create(tmp)
	if err != nil {
		return "", err
	}
	xw, err := xz.NewWriter(fh)
	if err != nil {
		fh.Close()
		return "", err
	}
	if err := Write(xw, bars); err != nil {
		xw.Close()
		fh.Close()
		return "", err
	}
	if err := xw.Close(); err != nil {
		fh.Close()
		return "", err
	}
	if err := fh.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", err
	}
	return path, nil
}

func ff(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
