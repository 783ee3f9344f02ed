package calculator

import (
	"errors"

	talib "github.com/markcheno/go-talib"
)

// CalculateSMA computes the simple moving average of the last period values.
func CalculateSMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}

// SMASeries returns the rolling simple moving average aligned with values.
// Null inputs are skipped by the window and stay null in the output, as do
// the first period-1 observations.
func SMASeries(values []float64, period int) []float64 {
	// nulls are dropped, so a window around a null spans period valid rows, not period rows
	vals, rows := compact(values)
	if period <= 0 || len(vals) < period {
		return nanSeries(len(values))
	}
	return scatter(len(values), rows, talib.Sma(vals, period), period-1)
}
