package market

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrBadBar marks a bar whose prices cannot be traded on.
var ErrBadBar = errors.New("bad bar")

// Bar represents one OHLCV observation for a ticker.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Validate rejects non-finite prices or volume and a non-positive close.
func (b Bar) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"open", b.Open}, {"high", b.High}, {"low", b.Low}, {"close", b.Close}, {"volume", b.Volume},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s is %v", ErrBadBar, f.name, f.v)
		}
	}
	if b.Close <= 0 {
		return fmt.Errorf("%w: close %v is not positive", ErrBadBar, b.Close)
	}
	return nil
}

// Closes returns the close prices of bars in order.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Tail returns the last n bars (or all of them when there are fewer).
func Tail(bars []Bar, n int) []Bar {
	if n <= 0 {
		return nil
	}
	if len(bars) <= n {
		return bars
	}
	return bars[len(bars)-n:]
}

// Last returns the most recent bar.
func Last(bars []Bar) (Bar, error) {
	if len(bars) == 0 {
		return Bar{}, ErrNoData
	}
	return bars[len(bars)-1], nil
}
