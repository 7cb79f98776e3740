package view

import (
	"errors"

	"github.com/rustyeddy/papertrader/ledger"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/signals"
	"github.com/shopspring/decimal"
)

// TailSize is the number of rows in the recent-bars table.
const TailSize = 10

// Portfolio is the account panel. When valuation fails (a position has no
// mark under the require policy) Positions falls back to the unmarked
// holdings and Error says why.
type Portfolio struct {
	Cash           decimal.Decimal        `json:"cash"`
	Positions      []ledger.PositionValue `json:"positions"`
	PositionsValue decimal.Decimal        `json:"positions_value"`
	NetWorth       decimal.Decimal        `json:"net_worth"`
	RealizedPL     decimal.Decimal        `json:"realized_pl"`
	Error          string                 `json:"error,omitempty"`
}

// SignalPanel shows the recommendation, or a note when there is none.
type SignalPanel struct {
	Signal *signals.Signal `json:"signal,omitempty"`
	Note   string          `json:"note,omitempty"`
}

type Dashboard struct {
	SessionID string          `json:"session_id,omitempty"`
	Ticker    string          `json:"ticker,omitempty"`
	Period    market.Period   `json:"period,omitempty"`
	Interval  market.Interval `json:"interval,omitempty"`
	Metrics   *market.Quote   `json:"metrics,omitempty"`
	Chart     *Chart          `json:"chart,omitempty"`
	Tail      []market.Bar    `json:"tail,omitempty"`
	Signal    SignalPanel     `json:"signal"`
	Portfolio Portfolio       `json:"portfolio"`
	History   []ledger.Trade  `json:"history"`
}

// Input is everything a dashboard is built from.
type Input struct {
	SessionID string
	Ticker    string
	Period    market.Period
	Interval  market.Interval
	Bars      []market.Bar
	Signal    *signals.Signal
	SignalErr error
	Ledger    *ledger.Ledger
	ChartKind ChartKind
}

func Build(in Input) Dashboard {
	d := Dashboard{
		SessionID: in.SessionID,
		Ticker:    in.Ticker,
		Period:    in.Period,
		Interval:  in.Interval,
		History:   []ledger.Trade{},
	}

	if q, err := market.Summarize(in.Bars); err == nil {
		d.Metrics = &q
		c := NewChart(in.Ticker, in.Bars, in.ChartKind)
		d.Chart = &c
		d.Tail = market.Tail(in.Bars, TailSize)
	}

	d.Signal = signalPanel(in)

	if in.Ledger != nil {
		d.Portfolio = BuildPortfolio(in.Ledger)
		d.History = in.Ledger.History()
	}
	return d
}

func signalPanel(in Input) SignalPanel {
	switch {
	case in.Signal != nil:
		return SignalPanel{Signal: in.Signal}
	case errors.Is(in.SignalErr, signals.ErrNotEnoughBars):
		return SignalPanel{Note: "Not enough bars for a signal; choose a longer period."}
	case in.SignalErr != nil:
		return SignalPanel{Note: in.SignalErr.Error()}
	case len(in.Bars) == 0:
		return SignalPanel{Note: "Fetch a ticker to compute a signal."}
	default:
		return SignalPanel{}
	}
}

// BuildPortfolio values l for display.
func BuildPortfolio(l *ledger.Ledger) Portfolio {
	v, err := l.Valuate()
	if err == nil {
		return Portfolio{
			Cash:           v.Cash,
			Positions:      v.Positions,
			PositionsValue: v.PositionsValue,
			NetWorth:       v.NetWorth,
			RealizedPL:     v.RealizedPL,
		}
	}

	p := Portfolio{
		Cash:      l.Cash(),
		Positions: []ledger.PositionValue{},
		Error:     err.Error(),
	}
	for _, pos := range l.Positions() {
		p.Positions = append(p.Positions, ledger.PositionValue{
			Ticker:  pos.Ticker,
			Shares:  pos.Shares,
			AvgCost: pos.AvgCost,
			Stale:   true,
		})
	}
	for _, t := range l.History() {
		p.RealizedPL = p.RealizedPL.Add(t.RealizedPL)
	}
	return p
}

// Demo is the static view: a fixed close list and the last-move rule.
type Demo struct {
	Prices []float64       `json:"prices"`
	Signal *signals.Signal `json:"signal,omitempty"`
	Note   string          `json:"note,omitempty"`
}

// DemoPrices is the built-in close list.
var DemoPrices = []float64{101, 102, 103, 102, 101, 100, 99, 98}

func BuildDemo(prices []float64) Demo {
	d := Demo{Prices: prices}
	s, err := signals.LastMove(prices)
	if err != nil {
		d.Note = err.Error()
		return d
	}
	d.Signal = &s
	return d
}
