package calculator

import talib "github.com/markcheno/go-talib"

// Standard MACD periods.
const (
	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9
)

// MACD holds the three MACD output columns, aligned with the input.
type MACD struct {
	Line   []float64
	Signal []float64
	Hist   []float64
}

// MACDSeries computes MACD(fast, slow, signal) on values.
// Rows before the combined lookback (slow-1 + signal-1) are NaN.
//
// Every EMA is seeded with the SMA of its first period valid inputs; the
// signal EMA only sees MACD values from row slow-1 on.
func MACDSeries(values []float64, fast, slow, signal int) MACD {
	n := len(values)
	vals, rows := compact(values)
	lookback := slow - 1 + signal - 1
	if fast <= 0 || slow <= fast || signal <= 0 || len(vals) <= lookback {
		return MACD{Line: nanSeries(n), Signal: nanSeries(n), Hist: nanSeries(n)}
	}

	fastEMA := talib.Ema(vals, fast)
	slowEMA := talib.Ema(vals, slow)
	line := make([]float64, len(vals))
	for i := slow - 1; i < len(vals); i++ {
		line[i] = fastEMA[i] - slowEMA[i]
	}

	sig := make([]float64, len(vals))
	hist := make([]float64, len(vals))
	valid := talib.Ema(line[slow-1:], signal)
	for k := signal - 1; k < len(valid); k++ {
		i := slow - 1 + k
		sig[i] = valid[k]
		hist[i] = line[i] - valid[k]
	}

	return MACD{
		Line:   scatter(n, rows, line, lookback),
		Signal: scatter(n, rows, sig, lookback),
		Hist:   scatter(n, rows, hist, lookback),
	}
}
