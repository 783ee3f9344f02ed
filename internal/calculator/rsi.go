package calculator

import "math"

// RSISeries returns Wilder RSI aligned with closes; the first period rows are NaN.
func RSISeries(closes []float64, period int) []float64 {
	vals, rows := compact(closes)
	if period <= 0 || len(vals) < period+1 {
		return nanSeries(len(closes))
	}
	return scatter(len(closes), rows, wilderRSI(vals, period), period)
}

func wilderRSI(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	for i := 0; i < period && i < len(out); i++ {
		out[i] = math.NaN()
	}

	// seed with the simple average of the first period changes
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiFrom(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiFrom(avgGain, avgLoss)
	}
	return out
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}
