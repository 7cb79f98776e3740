// Package signals turns a bar history into a BUY/SELL/HOLD recommendation.
//
// The rule set combines a fast/slow simple moving average crossover with an
// RSI filter. Compute is pure: the same bars always produce the same Signal.
package signals

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/papertrader/indicators"
	"github.com/rustyeddy/papertrader/market"
)

// ErrNotEnoughBars is returned when the history is shorter than the
// indicators' lookback.
var ErrNotEnoughBars = errors.New("not enough bars")

// Action is the recommended side.
type Action string

const (
	Buy  Action = "BUY"
	Sell Action = "SELL"
	Hold Action = "HOLD"
)

// Signal is a recommendation with a confidence in [0,100] and the RSI reading
// it was based on.
type Signal struct {
	Action     Action  `json:"action"`
	Confidence int     `json:"confidence"`
	Rationale  string  `json:"rationale"`
	RSI        float64 `json:"rsi"`
}

func (s Signal) String() string {
	return fmt.Sprintf("%s (%d%%) %s", s.Action, s.Confidence, s.Rationale)
}

// Config holds the lookbacks and RSI thresholds.
type Config struct {
	FastPeriod int     `json:"fast_period" yaml:"fast_period" mapstructure:"fast_period"`
	SlowPeriod int     `json:"slow_period" yaml:"slow_period" mapstructure:"slow_period"`
	RSIPeriod  int     `json:"rsi_period" yaml:"rsi_period" mapstructure:"rsi_period"`
	Oversold   float64 `json:"oversold" yaml:"oversold" mapstructure:"oversold"`
	Overbought float64 `json:"overbought" yaml:"overbought" mapstructure:"overbought"`
}

func DefaultConfig() Config {
	return Config{
		FastPeriod: 10,
		SlowPeriod: 30,
		RSIPeriod:  14,
		Oversold:   40,
		Overbought: 60,
	}
}

// Validate checks the periods and thresholds are usable.
func (c Config) Validate() error {
	if c.FastPeriod <= 0 || c.SlowPeriod <= 0 || c.RSIPeriod <= 0 {
		return fmt.Errorf("signal periods must be positive (fast=%d slow=%d rsi=%d)", c.FastPeriod, c.SlowPeriod, c.RSIPeriod)
	}
	if c.FastPeriod >= c.SlowPeriod {
		return fmt.Errorf("signal fast period (%d) must be shorter than slow period (%d)", c.FastPeriod, c.SlowPeriod)
	}
	if c.Oversold < 0 || c.Overbought > 100 || c.Oversold >= c.Overbought {
		return fmt.Errorf("signal thresholds must satisfy 0 <= oversold < overbought <= 100 (got %v/%v)", c.Oversold, c.Overbought)
	}
	return nil
}

// MinBars is the shortest history Compute accepts. The crossover looks one
// bar back on the slow average, so it needs SlowPeriod+1 bars.
func (c Config) MinBars() int {
	n := c.SlowPeriod + 1
	if r := c.RSIPeriod + 1; r > n {
		n = r
	}
	return n
}

// Compute evaluates bars with the default configuration.
func Compute(bars []market.Bar) (Signal, error) {
	return DefaultConfig().Compute(bars)
}

// Compute evaluates the latest bar of the history.
func (c Config) Compute(bars []market.Bar) (Signal, error) {
	if len(bars) < c.MinBars() {
		return Signal{}, fmt.Errorf("%w: need %d, got %d", ErrNotEnoughBars, c.MinBars(), len(bars))
	}

	closes := market.Closes(bars)

	rsi, err := indicators.RSI(closes, c.RSIPeriod)
	if err != nil {
		return Signal{}, err
	}
	fast, err := indicators.SMA(closes, c.FastPeriod)
	if err != nil {
		return Signal{}, err
	}
	slow, err := indicators.SMA(closes, c.SlowPeriod)
	if err != nil {
		return Signal{}, err
	}

	rsiNow, _ := rsi.Last()
	fastNow, _ := fast.At(0)
	fastPrev, _ := fast.At(1)
	slowNow, _ := slow.At(0)
	slowPrev, _ := slow.At(1)

	in := inputs{
		crossUp:    fastPrev <= slowPrev && fastNow > slowNow,
		crossDown:  fastPrev >= slowPrev && fastNow < slowNow,
		oversold:   rsiNow < c.Oversold,
		overbought: rsiNow > c.Overbought,
	}
	return decide(in, rsiNow), nil
}

type inputs struct {
	crossUp    bool
	crossDown  bool
	oversold   bool
	overbought bool
}

// decide applies the decision table; the first matching row wins.
func decide(in inputs, rsi float64) Signal {
	s := Signal{RSI: rsi}

	switch {
	case in.crossUp && in.oversold:
		s.Action, s.Confidence = Buy, 78
		s.Rationale = fmt.Sprintf("Fast MA crossed above slow MA and RSI %.1f is recovering from oversold.", rsi)
	case in.crossUp:
		s.Action, s.Confidence = Buy, 68
		s.Rationale = fmt.Sprintf("Fast MA crossed above slow MA; trend improving (RSI %.1f).", rsi)
	case in.crossDown && in.overbought:
		s.Action, s.Confidence = Sell, 78
		s.Rationale = fmt.Sprintf("Fast MA crossed below slow MA and RSI %.1f is cooling from overbought.", rsi)
	case in.crossDown:
		s.Action, s.Confidence = Sell, 68
		s.Rationale = fmt.Sprintf("Fast MA crossed below slow MA; trend weakening (RSI %.1f).", rsi)
	case in.oversold:
		s.Action, s.Confidence = Hold, 60
		s.Rationale = fmt.Sprintf("RSI %.1f looks cheap but there is no crossover to confirm.", rsi)
	case in.overbought:
		s.Action, s.Confidence = Hold, 60
		s.Rationale = fmt.Sprintf("RSI %.1f looks rich but there is no crossover to confirm.", rsi)
	default:
		s.Action, s.Confidence = Hold, 55
		s.Rationale = fmt.Sprintf("No strong edge (RSI %.1f).", rsi)
	}
	return s
}

// LastMove compares the last two closes: up is BUY, down is SELL, unchanged
// is HOLD. It backs the static demo view.
func LastMove(closes []float64) (Signal, error) {
	if len(closes) < 2 {
		return Signal{}, fmt.Errorf("%w: need 2, got %d", ErrNotEnoughBars, len(closes))
	}

	last, prev := closes[len(closes)-1], closes[len(closes)-2]
	switch {
	case last > prev:
		return Signal{Action: Buy, Confidence: 50, Rationale: fmt.Sprintf("Last close %.2f is above previous %.2f.", last, prev)}, nil
	case last < prev:
		return Signal{Action: Sell, Confidence: 50, Rationale: fmt.Sprintf("Last close %.2f is below previous %.2f.", last, prev)}, nil
	default:
		return Signal{Action: Hold, Confidence: 50, Rationale: fmt.Sprintf("Last close %.2f is unchanged.", last)}, nil
	}
}
