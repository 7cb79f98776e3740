package ledger

import (
	"time"

	"github.com/rustyeddy/papertrader/journal"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Option func(*Ledger)

// WithStartingCash overrides InitialCash. Reset returns to this amount.
func WithStartingCash(cash decimal.Decimal) Option {
	return func(l *Ledger) {
		if !cash.IsNegative() {
			l.start = cash
		}
	}
}

// WithJournal forwards every fill to j.
func WithJournal(j journal.Journal) Option {
	return func(l *Ledger) {
		if j != nil {
			l.journal = j
		}
	}
}

// WithAccount labels journal records so several ledgers can share one
// journal.
func WithAccount(name string) Option {
	return func(l *Ledger) { l.account = name }
}

func WithPolicy(p Policy) Option {
	return func(l *Ledger) { l.policy = p }
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log
		}
	}
}
