// Package indicators provides technical analysis indicators for trading
package indicators

import (
	"errors"
	"fmt"
	"math"
)

// ErrNotEnoughData is returned when a series is shorter than an indicator's warmup.
var ErrNotEnoughData = errors.New("not enough data")

// Series holds one indicator value per input element. Values inside the
// warmup window are NaN, never zero, so callers can tell "no value yet"
// apart from a real reading.
type Series []float64

// Valid reports whether index i holds a computed value.
func (s Series) Valid(i int) bool {
	return i >= 0 && i < len(s) && !math.IsNaN(s[i])
}

// Last returns the final value of the series and whether it is valid.
func (s Series) Last() (float64, bool) {
	if len(s) == 0 {
		return math.NaN(), false
	}
	v := s[len(s)-1]
	return v, !math.IsNaN(v)
}

// At returns the value n positions back from the end (At(0) == Last).
func (s Series) At(back int) (float64, bool) {
	i := len(s) - 1 - back
	if !s.Valid(i) {
		return math.NaN(), false
	}
	return s[i], true
}

func checkPeriod(n, period int) error {
	if period <= 0 {
		return fmt.Errorf("period must be positive, got %d", period)
	}
	if n < period {
		return fmt.Errorf("%w: need %d, got %d", ErrNotEnoughData, period, n)
	}
	return nil
}

func nanSeries(n int) Series {
	out := make(Series, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
