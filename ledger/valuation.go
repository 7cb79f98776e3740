package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Policy decides what Valuate does with a position that has no mark.
type Policy string

const (
	// PolicyRequire fails with ErrPriceUnavailable.
	PolicyRequire Policy = "require"
	// PolicyCost values the position at its average cost and flags it stale.
	PolicyCost Policy = "cost"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyRequire:
		return PolicyRequire, nil
	case PolicyCost:
		return PolicyCost, nil
	default:
		return "", fmt.Errorf("unknown valuation policy %q (want %q or %q)", s, PolicyRequire, PolicyCost)
	}
}

// PositionValue is one row of the portfolio table.
type PositionValue struct {
	Ticker       string          `json:"ticker"`
	Shares       int64           `json:"shares"`
	AvgCost      decimal.Decimal `json:"avg_cost"`
	LastPrice    decimal.Decimal `json:"last_price"`
	MarketValue  decimal.Decimal `json:"market_value"`
	UnrealizedPL decimal.Decimal `json:"unrealized_pl"`
	Stale        bool            `json:"stale,omitempty"`
}

type Valuation struct {
	Cash           decimal.Decimal `json:"cash"`
	Positions      []PositionValue `json:"positions"`
	PositionsValue decimal.Decimal `json:"positions_value"`
	NetWorth       decimal.Decimal `json:"net_worth"`
	RealizedPL     decimal.Decimal `json:"realized_pl"`
}

// Valuate marks every position to its last price. Net worth is cash plus
// the market value of all positions.
func (l *Ledger) Valuate() (Valuation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	v := Valuation{
		Cash:           l.cash,
		Positions:      []PositionValue{},
		PositionsValue: decimal.Zero,
		RealizedPL:     decimal.Zero,
	}

	for _, p := range l.sortedPositions() {
		pv := PositionValue{
			Ticker:  p.Ticker,
			Shares:  p.Shares,
			AvgCost: p.AvgCost,
		}

		last, ok := l.last[p.Ticker]
		if !ok {
			if l.policy != PolicyCost {
				return Valuation{}, fmt.Errorf("%w: %s", ErrPriceUnavailable, p.Ticker)
			}
			last = p.AvgCost
			pv.Stale = true
		}

		shares := decimal.NewFromInt(p.Shares)
		pv.LastPrice = last
		pv.MarketValue = last.Mul(shares)
		pv.UnrealizedPL = last.Sub(p.AvgCost).Mul(shares)

		v.Positions = append(v.Positions, pv)
		v.PositionsValue = v.PositionsValue.Add(pv.MarketValue)
	}

	for _, t := range l.history {
		v.RealizedPL = v.RealizedPL.Add(t.RealizedPL)
	}
	v.NetWorth = v.Cash.Add(v.PositionsValue)
	return v, nil
}
