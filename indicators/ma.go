package indicators

import (
	"github.com/markcheno/go-talib"
)

// SMA calculates the Simple Moving Average series for the given period.
// The first period-1 entries are NaN.
func SMA(values []float64, period int) (Series, error) {
	if err := checkPeriod(len(values), period); err != nil {
		return nil, err
	}

	raw := talib.Sma(values, period)
	out := nanSeries(len(values))
	copy(out[period-1:], raw[period-1:])
	return out, nil
}

// MA calculates the latest Simple Moving Average value for the given period.
func MA(values []float64, period int) (float64, error) {
	if err := checkPeriod(len(values), period); err != nil {
		return 0, err
	}

	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}
