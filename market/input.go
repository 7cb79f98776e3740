package market

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrEmptyTicker     = errors.New("ticker is empty")
	ErrUnknownPeriod   = errors.New("unknown period")
	ErrUnknownInterval = errors.New("unknown interval")
)

// Period is the lookback window requested from a provider.
type Period string

const (
	Period1Mo Period = "1mo"
	Period3Mo Period = "3mo"
	Period6Mo Period = "6mo"
	Period1Y  Period = "1y"
	Period2Y  Period = "2y"
	Period5Y  Period = "5y"

	DefaultPeriod = Period1Y
)

// Interval is the bar size requested from a provider.
type Interval string

const (
	Interval1D  Interval = "1d"
	Interval1Wk Interval = "1wk"
	Interval1Mo Interval = "1mo"

	DefaultInterval = Interval1D
)

var periods = []Period{Period1Mo, Period3Mo, Period6Mo, Period1Y, Period2Y, Period5Y}

var intervals = []Interval{Interval1D, Interval1Wk, Interval1Mo}

// Periods lists the selectable periods in display order.
func Periods() []Period { return append([]Period(nil), periods...) }

// Intervals lists the selectable intervals in display order.
func Intervals() []Interval { return append([]Interval(nil), intervals...) }

// NormalizeTicker trims and upper-cases user input.
func NormalizeTicker(s string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(s))
	if t == "" {
		return "", ErrEmptyTicker
	}
	return t, nil
}

// ParsePeriod parses a period selection. The empty string selects DefaultPeriod.
func ParsePeriod(s string) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultPeriod, nil
	}
	for _, p := range periods {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
}

// ParseInterval parses an interval selection. The empty string selects DefaultInterval.
func ParseInterval(s string) (Interval, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultInterval, nil
	}
	for _, iv := range intervals {
		if string(iv) == s {
			return iv, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownInterval, s)
}

// Start returns the first instant covered by p when the window ends at end.
func (p Period) Start(end time.Time) time.Time {
	switch p {
	case Period1Mo:
		return end.AddDate(0, -1, 0)
	case Period3Mo:
		return end.AddDate(0, -3, 0)
	case Period6Mo:
		return end.AddDate(0, -6, 0)
	case Period2Y:
		return end.AddDate(-2, 0, 0)
	case Period5Y:
		return end.AddDate(-5, 0, 0)
	default:
		return end.AddDate(-1, 0, 0)
	}
}
