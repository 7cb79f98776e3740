package indicators

import (
	"github.com/markcheno/go-talib"
)

// RSI calculates the Relative Strength Index from the simple (non-smoothed)
// rolling mean of gains and losses over period close-to-close deltas.
//
// Index i of the result is valid once i >= period. A window with no losses
// reads 100; a window with no gains reads 0; a window with neither reads 50.
// Those cases are decided by counting nonzero deltas in the window, since
// talib's running sums leave a residue that scales with the price level.
func RSI(closes []float64, period int) (Series, error) {
	if err := checkPeriod(len(closes), period+1); err != nil {
		return nil, err
	}

	n := len(closes) - 1
	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gains[i-1] = d
		} else {
			losses[i-1] = -d
		}
	}

	avgGain := talib.Sma(gains, period)
	avgLoss := talib.Sma(losses, period)

	out := nanSeries(len(closes))
	up, down := 0, 0
	for j := 0; j < n; j++ {
		if gains[j] > 0 {
			up++
		}
		if losses[j] > 0 {
			down++
		}
		if k := j - period; k >= 0 {
			if gains[k] > 0 {
				up--
			}
			if losses[k] > 0 {
				down--
			}
		}
		if j >= period-1 {
			out[j+1] = rsiValue(avgGain[j], avgLoss[j], up, down)
		}
	}
	return out, nil
}

// rsiValue turns window averages into RSI. up and down count the nonzero
// gains and losses in the window.
func rsiValue(gain, loss float64, up, down int) float64 {
	switch {
	case up == 0 && down == 0:
		return 50
	case down == 0:
		return 100
	case up == 0:
		return 0
	}
	return 100 - 100/(1+gain/loss)
}
