// Package ledger keeps a paper-trading account: cash, per-ticker positions
// with average cost, an append-only trade history and the last observed
// price of each ticker.
//
// All money is decimal. Every method takes the ledger's lock, and a call that
// returns an error leaves the ledger exactly as it was.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/pkg/id"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrPriceUnavailable   = errors.New("price unavailable")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrInvalidPrice       = errors.New("price must be positive")
)

// InitialCash is the default starting balance.
var InitialCash = decimal.NewFromInt(10000)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Position is an open holding. A ticker with zero shares has no Position.
type Position struct {
	Ticker  string          `json:"ticker"`
	Shares  int64           `json:"shares"`
	AvgCost decimal.Decimal `json:"avg_cost"`
}

// CostBasis is shares * average cost.
func (p Position) CostBasis() decimal.Decimal {
	return p.AvgCost.Mul(decimal.NewFromInt(p.Shares))
}

// Trade is one executed fill. RealizedPL is zero for buys.
type Trade struct {
	ID         string          `json:"id"`
	Side       Side            `json:"side"`
	Ticker     string          `json:"ticker"`
	Qty        int64           `json:"qty"`
	Price      decimal.Decimal `json:"price"`
	RealizedPL decimal.Decimal `json:"realized_pl"`
	Time       time.Time       `json:"time"`
}

// Notional is qty * price.
func (t Trade) Notional() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Qty))
}

type Ledger struct {
	mu        sync.Mutex
	start     decimal.Decimal
	cash      decimal.Decimal
	positions map[string]Position
	history   []Trade
	last      map[string]decimal.Decimal

	policy  Policy
	account string
	journal journal.Journal
	now     func() time.Time
	log     *zap.Logger
}

// New returns a ledger holding InitialCash unless WithStartingCash says
// otherwise.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		start:   InitialCash,
		policy:  PolicyRequire,
		journal: journal.Nop{},
		now:     time.Now,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.reset()
	return l
}

func (l *Ledger) reset() {
	l.cash = l.start
	l.positions = make(map[string]Position)
	l.history = nil
	l.last = make(map[string]decimal.Decimal)
}

func validate(ticker string, qty int64, price decimal.Decimal) (string, error) {
	t, err := market.NormalizeTicker(ticker)
	if err != nil {
		return "", err
	}
	if qty <= 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}
	if !price.IsPositive() {
		return "", fmt.Errorf("%w: %s", ErrInvalidPrice, price)
	}
	return t, nil
}

// Buy debits qty*price and folds the fill into the ticker's average cost.
func (l *Ledger) Buy(ticker string, qty int64, price decimal.Decimal) (Trade, error) {
	ticker, err := validate(ticker, qty, price)
	if err != nil {
		return Trade{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cost := price.Mul(decimal.NewFromInt(qty))
	if l.cash.LessThan(cost) {
		return Trade{}, fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, cost.StringFixed(2), l.cash.StringFixed(2))
	}

	pos := l.positions[ticker]
	shares := pos.Shares + qty
	pos.AvgCost = pos.CostBasis().Add(cost).Div(decimal.NewFromInt(shares))
	pos.Shares = shares
	pos.Ticker = ticker
	l.positions[ticker] = pos
	l.cash = l.cash.Sub(cost)

	return l.record(Buy, ticker, qty, price, decimal.Zero), nil
}

// Sell credits qty*price. Average cost is unchanged; the position is removed
// when its shares reach zero.
func (l *Ledger) Sell(ticker string, qty int64, price decimal.Decimal) (Trade, error) {
	ticker, err := validate(ticker, qty, price)
	if err != nil {
		return Trade{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[ticker]
	if !ok || pos.Shares < qty {
		return Trade{}, fmt.Errorf("%w: %s holds %d, asked %d", ErrInsufficientShares, ticker, pos.Shares, qty)
	}

	q := decimal.NewFromInt(qty)
	realized := price.Sub(pos.AvgCost).Mul(q)

	pos.Shares -= qty
	if pos.Shares == 0 {
		delete(l.positions, ticker)
	} else {
		l.positions[ticker] = pos
	}
	l.cash = l.cash.Add(price.Mul(q))

	return l.record(Sell, ticker, qty, price, realized), nil
}

// record appends the trade and forwards it to the journal. Caller holds mu.
func (l *Ledger) record(side Side, ticker string, qty int64, price, realized decimal.Decimal) Trade {
	ts := l.now().UTC()
	tr := Trade{
		ID:         id.NewAt(ts),
		Side:       side,
		Ticker:     ticker,
		Qty:        qty,
		Price:      price,
		RealizedPL: realized,
		Time:       ts,
	}
	l.history = append(l.history, tr)

	l.log.Info("fill",
		zap.String("id", tr.ID),
		zap.String("side", string(side)),
		zap.String("ticker", ticker),
		zap.Int64("qty", qty),
		zap.String("price", price.String()),
		zap.String("cash", l.cash.StringFixed(2)),
	)

	err := l.journal.RecordFill(journal.FillRecord{
		ID:         tr.ID,
		Account:    l.account,
		Side:       string(side),
		Ticker:     ticker,
		Qty:        qty,
		Price:      price,
		RealizedPL: realized,
		CashAfter:  l.cash,
		Time:       ts,
	})
	if err != nil {
		// the fill stands; the journal is only an audit trail
		l.log.Warn("journal fill", zap.String("id", tr.ID), zap.Error(err))
	}
	return tr
}

// Reset restores the starting cash and clears positions, history and the
// price cache.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.reset()
	l.log.Info("ledger reset", zap.String("cash", l.cash.StringFixed(2)))
}

// MarkPrice records the latest observed price for ticker.
func (l *Ledger) MarkPrice(ticker string, price decimal.Decimal) error {
	t, err := market.NormalizeTicker(ticker)
	if err != nil {
		return err
	}
	if !price.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidPrice, price)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.last[t] = price
	return nil
}

// LastPrice returns the latest mark for ticker.
func (l *Ledger) LastPrice(ticker string) (decimal.Decimal, bool) {
	t, err := market.NormalizeTicker(ticker)
	if err != nil {
		return decimal.Zero, false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.last[t]
	return p, ok
}

func (l *Ledger) Cash() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cash
}

func (l *Ledger) StartingCash() decimal.Decimal {
	return l.start
}

func (l *Ledger) Position(ticker string) (Position, bool) {
	t, err := market.NormalizeTicker(ticker)
	if err != nil {
		return Position{}, false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[t]
	return p, ok
}

// Positions returns the open positions sorted by ticker.
func (l *Ledger) Positions() []Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sortedPositions()
}

func (l *Ledger) sortedPositions() []Position {
	out := make([]Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}

// History returns a copy of the trade history, oldest first.
func (l *Ledger) History() []Trade {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Trade, len(l.history))
	copy(out, l.history)
	return out
}
