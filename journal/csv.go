package journal

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var csvHeader = []string{"id", "account", "side", "ticker", "qty", "price", "realized_pl", "cash_after", "time"}

// CSVJournal appends fills to a CSV file. The header is written only when
// the file is new or empty, so restarts keep appending to the same trail.
type CSVJournal struct {
	mu sync.Mutex
	w  *csv.Writer
	f  *os.File
}

func NewCSV(path string) (*CSVJournal, error) {
	if path == "" {
		return nil, errors.New("csv journal: empty path")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	w := csv.NewWriter(f)
	if st.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			f.Close()
			return nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, err
		}
	}
	return &CSVJournal{w: w, f: f}, nil
}

func (j *CSVJournal) RecordFill(r FillRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	err := j.w.Write([]string{
		r.ID,
		r.Account,
		r.Side,
		r.Ticker,
		strconv.FormatInt(r.Qty, 10),
		r.Price.String(),
		r.RealizedPL.String(),
		r.CashAfter.String(),
		r.Time.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	j.w.Flush()
	return j.w.Error()
}

func (j *CSVJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.w.Flush()
	if err := j.w.Error(); err != nil {
		j.f.Close()
		return err
	}
	return j.f.Close()
}

// ReadCSV loads every fill from a file written by CSVJournal.
func ReadCSV(r io.Reader) ([]FillRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var out []FillRecord
	for i, row := range rows[1:] {
		rec, err := parseCSVRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseCSVRow(row []string) (FillRecord, error) {
	qty, err := strconv.ParseInt(row[4], 10, 64)
	if err != nil {
		return FillRecord{}, fmt.Errorf("qty: %w", err)
	}
	price, err := decimal.NewFromString(row[5])
	if err != nil {
		return FillRecord{}, fmt.Errorf("price: %w", err)
	}
	pl, err := decimal.NewFromString(row[6])
	if err != nil {
		return FillRecord{}, fmt.Errorf("realized_pl: %w", err)
	}
	cash, err := decimal.NewFromString(row[7])
	if err != nil {
		return FillRecord{}, fmt.Errorf("cash_after: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, row[8])
	if err != nil {
		return FillRecord{}, fmt.Errorf("time: %w", err)
	}
	return FillRecord{
		ID:         row[0],
		Account:    row[1],
		Side:       row[2],
		Ticker:     row[3],
		Qty:        qty,
		Price:      price,
		RealizedPL: pl,
		CashAfter:  cash,
		Time:       ts,
	}, nil
}
