package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Filter narrows ListFills. Zero values mean no restriction.
type Filter struct {
	Ticker  string
	Account string
	Limit   int
}

const fillColumns = `id, account, side, ticker, qty, price, realized_pl, cash_after, time`

type scanner interface {
	Scan(dest ...any) error
}

func scanFill(s scanner) (FillRecord, error) {
	var rec FillRecord
	err := s.Scan(
		&rec.ID,
		&rec.Account,
		&rec.Side,
		&rec.Ticker,
		&rec.Qty,
		&rec.Price,
		&rec.RealizedPL,
		&rec.CashAfter,
		&rec.Time,
	)
	return rec, err
}

// GetFill returns a single fill by ID.
func (j *SQLite) GetFill(ctx context.Context, fillID string) (FillRecord, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+fillColumns+` FROM fills WHERE id = ?`, fillID)

	rec, err := scanFill(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return FillRecord{}, fmt.Errorf("%w: %q", ErrNotFound, fillID)
		}
		return FillRecord{}, err
	}
	return rec, nil
}

// ListFills returns fills in the order they were executed.
func (j *SQLite) ListFills(ctx context.Context, f Filter) ([]FillRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.Ticker != "" {
		where = append(where, "ticker = ?")
		args = append(args, strings.ToUpper(f.Ticker))
	}
	if f.Account != "" {
		where = append(where, "account = ?")
		args = append(args, f.Account)
	}

	q := `SELECT ` + fillColumns + ` FROM fills`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY time ASC, id ASC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FillRecord
	for rows.Next() {
		rec, err := scanFill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
