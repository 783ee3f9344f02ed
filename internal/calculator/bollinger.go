package calculator

import talib "github.com/markcheno/go-talib"

// Bands holds Bollinger band columns, aligned with the input.
type Bands struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// BollingerSeries computes SMA-based Bollinger bands with symmetric width k.
func BollingerSeries(values []float64, period int, k float64) Bands {
	n := len(values)
	vals, rows := compact(values)
	if period <= 1 || len(vals) < period {
		return Bands{Upper: nanSeries(n), Middle: nanSeries(n), Lower: nanSeries(n)}
	}

	upper, middle, lower := talib.BBands(vals, period, k, k, talib.SMA)
	return Bands{
		Upper:  scatter(n, rows, upper, period-1),
		Middle: scatter(n, rows, middle, period-1),
		Lower:  scatter(n, rows, lower, period-1),
	}
}
