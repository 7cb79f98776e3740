// Package journal is an append-only audit trail of ledger fills.
//
// A journal only records; it is never read back into a ledger.
package journal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound    = errors.New("fill not found")
	ErrUnknownKind = errors.New("unknown journal kind")
)

// FillRecord is one executed BUY or SELL.
type FillRecord struct {
	ID         string          `json:"id"`
	Account    string          `json:"account"`
	Side       string          `json:"side"`
	Ticker     string          `json:"ticker"`
	Qty        int64           `json:"qty"`
	Price      decimal.Decimal `json:"price"`
	RealizedPL decimal.Decimal `json:"realized_pl"`
	CashAfter  decimal.Decimal `json:"cash_after"`
	Time       time.Time       `json:"time"`
}

// Notional is qty * price.
func (r FillRecord) Notional() decimal.Decimal {
	return r.Price.Mul(decimal.NewFromInt(r.Qty))
}

type Journal interface {
	RecordFill(FillRecord) error
	Close() error
}

// Nop discards every record.
type Nop struct{}

func (Nop) RecordFill(FillRecord) error { return nil }
func (Nop) Close() error                { return nil }

// Kinds accepted by Open.
const (
	KindNone   = "none"
	KindCSV    = "csv"
	KindSQLite = "sqlite"
)

// Open creates the journal named by kind. An empty kind is the same as
// KindNone.
func Open(kind, path string) (Journal, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindNone:
		return Nop{}, nil
	case KindCSV:
		return NewCSV(path)
	case KindSQLite:
		return NewSQLite(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}
