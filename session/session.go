// Package session holds one user's paper-trading state: a ledger, the
// selected ticker and the bars and signal from the last fetch. It executes
// the UI actions (fetch, buy, sell, follow, reset) against that state.
package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rustyeddy/papertrader/ledger"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/signals"
	"github.com/rustyeddy/papertrader/view"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrNoTicker        = errors.New("no ticker fetched")
	ErrNothingToFollow = errors.New("signal is HOLD; nothing to follow")
	ErrNotFound        = errors.New("session not found")
)

type Session struct {
	mu       sync.Mutex
	id       string
	created  time.Time
	lastUsed atomic.Int64 // unix nanos; read without mu

	provider  market.Provider
	ledger    *ledger.Ledger
	signalCfg signals.Config
	timeout   time.Duration
	chartKind view.ChartKind
	log       *zap.Logger

	ticker    string
	period    market.Period
	interval  market.Interval
	bars      []market.Bar
	signal    *signals.Signal
	signalErr error
}

type Option func(*Session)

// WithLedger replaces the default ledger.
func WithLedger(l *ledger.Ledger) Option {
	return func(s *Session) {
		if l != nil {
			s.ledger = l
		}
	}
}

func WithSignalConfig(cfg signals.Config) Option {
	return func(s *Session) { s.signalCfg = cfg }
}

// WithTimeout bounds each provider fetch.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) { s.timeout = d }
}

func WithChartKind(k view.ChartKind) Option {
	return func(s *Session) { s.chartKind = k }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

func New(id string, provider market.Provider, opts ...Option) *Session {
	now := time.Now()
	s := &Session{
		id:        id,
		created:   now,
		provider:  provider,
		signalCfg: signals.DefaultConfig(),
		chartKind: view.Candlestick,
		period:    market.DefaultPeriod,
		interval:  market.DefaultInterval,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastUsed.Store(now.UnixNano())
	s.log = s.log.With(zap.String("session", id))
	if s.ledger == nil {
		s.ledger = ledger.New(ledger.WithAccount(id), ledger.WithLogger(s.log))
	}
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Created() time.Time { return s.created }

func (s *Session) Ledger() *ledger.Ledger { return s.ledger }

func (s *Session) touch() { s.lastUsed.Store(time.Now().UnixNano()) }

// LastUsed is the time of the most recent action. It does not wait for an
// action in progress.
func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

// Ticker returns the currently selected ticker, empty before the first fetch.
func (s *Session) Ticker() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticker
}

// Fetch loads bars for ticker and recomputes the signal. A failed fetch
// leaves the previous ticker, bars and signal in place.
func (s *Session) Fetch(ctx context.Context, ticker string, period market.Period, interval market.Interval) error {
	ticker, err := market.NormalizeTicker(ticker)
	if err != nil {
		return err
	}
	if period == "" {
		period = market.DefaultPeriod
	}
	if interval == "" {
		interval = market.DefaultInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	defer s.touch()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	bars, err := s.provider.Fetch(ctx, ticker, period, interval)
	if err == nil && len(bars) == 0 {
		err = fmt.Errorf("%s: %w", ticker, market.ErrNoData)
	}
	if err != nil {
		s.log.Warn("fetch failed", zap.String("ticker", ticker), zap.Error(err))
		return err
	}

	last := bars[len(bars)-1]
	if err := last.Validate(); err != nil {
		err = fmt.Errorf("%s: last bar: %w", ticker, err)
		s.log.Warn("fetch failed", zap.String("ticker", ticker), zap.Error(err))
		return err
	}
	p, err := mark(last.Close)
	if err != nil {
		return err
	}
	if err := s.ledger.MarkPrice(ticker, p); err != nil {
		return err
	}

	s.ticker, s.period, s.interval, s.bars = ticker, period, interval, bars
	s.signal, s.signalErr = nil, nil
	sig, err := s.signalCfg.Compute(bars)
	if err != nil {
		s.signalErr = err
	} else {
		s.signal = &sig
	}

	s.log.Info("fetched",
		zap.String("ticker", ticker),
		zap.String("period", string(period)),
		zap.String("interval", string(interval)),
		zap.Int("bars", len(bars)),
		zap.Float64("close", last.Close),
	)
	return nil
}

// mark converts a float close to a ledger price without rounding, so
// sub-cent closes keep their value.
func mark(c float64) (decimal.Decimal, error) {
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return decimal.Zero, fmt.Errorf("%w: close is %v", market.ErrBadBar, c)
	}
	return decimal.NewFromFloat(c), nil
}

// price returns the current ticker and its mark. Caller holds mu.
func (s *Session) price() (string, decimal.Decimal, error) {
	if s.ticker == "" {
		return "", decimal.Zero, ErrNoTicker
	}
	p, ok := s.ledger.LastPrice(s.ticker)
	if !ok {
		return "", decimal.Zero, fmt.Errorf("%w: %s", ledger.ErrPriceUnavailable, s.ticker)
	}
	return s.ticker, p, nil
}

// Buy trades qty shares of the current ticker at its last observed price.
func (s *Session) Buy(qty int64) (ledger.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	ticker, p, err := s.price()
	if err != nil {
		return ledger.Trade{}, err
	}
	return s.ledger.Buy(ticker, qty, p)
}

// Sell trades qty shares of the current ticker at its last observed price.
func (s *Session) Sell(qty int64) (ledger.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	ticker, p, err := s.price()
	if err != nil {
		return ledger.Trade{}, err
	}
	return s.ledger.Sell(ticker, qty, p)
}

// Follow executes the current signal: BUY buys qty, SELL sells qty, HOLD
// (or no signal) trades nothing and returns ErrNothingToFollow.
func (s *Session) Follow(qty int64) (ledger.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	ticker, p, err := s.price()
	if err != nil {
		return ledger.Trade{}, err
	}
	if s.signal == nil {
		return ledger.Trade{}, ErrNothingToFollow
	}

	switch s.signal.Action {
	case signals.Buy:
		return s.ledger.Buy(ticker, qty, p)
	case signals.Sell:
		return s.ledger.Sell(ticker, qty, p)
	default:
		return ledger.Trade{}, ErrNothingToFollow
	}
}

// Reset restores the ledger to its starting state. Fetched bars are kept
// and the current ticker is re-marked at its last close.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	s.ledger.Reset()
	if s.ticker != "" && len(s.bars) > 0 {
		if p, err := mark(s.bars[len(s.bars)-1].Close); err == nil {
			_ = s.ledger.MarkPrice(s.ticker, p)
		}
	}
}

// Signal returns the signal from the last fetch, if there is one.
func (s *Session) Signal() (signals.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.signal != nil:
		return *s.signal, nil
	case s.signalErr != nil:
		return signals.Signal{}, s.signalErr
	default:
		return signals.Signal{}, ErrNoTicker
	}
}

// Dashboard snapshots the session for rendering.
func (s *Session) Dashboard() view.Dashboard {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sig *signals.Signal
	if s.signal != nil {
		cp := *s.signal
		sig = &cp
	}
	return view.Build(view.Input{
		SessionID: s.id,
		Ticker:    s.ticker,
		Period:    s.period,
		Interval:  s.interval,
		Bars:      s.bars,
		Signal:    sig,
		SignalErr: s.signalErr,
		Ledger:    s.ledger,
		ChartKind: s.chartKind,
	})
}
