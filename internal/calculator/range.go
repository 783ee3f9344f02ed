package calculator

import (
	"errors"
	"math"
)

// CalculateRange returns the highest high and lowest low over the last window rows.
// Null values are ignored; when highs or lows is nil, closes stand in for it.
func CalculateRange(highs, lows, closes []float64, window int) (high, low float64, err error) {
	if window <= 0 {
		return 0, 0, errors.New("window must be positive")
	}
	if highs == nil {
		highs = closes
	}
	if lows == nil {
		lows = closes
	}
	n := min(len(highs), len(lows))
	if n == 0 {
		return 0, 0, errors.New("no values provided")
	}
	start := max(n-window, 0)

	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < n; i++ {
		if h := highs[i]; !math.IsNaN(h) && h > high {
			high = h
		}
		if l := lows[i]; !math.IsNaN(l) && l < low {
			low = l
		}
	}
	if math.IsInf(high, 0) || math.IsInf(low, 0) {
		return 0, 0, errors.New("window holds no values")
	}
	return high, low, nil
}

// RangePosition returns where current sits within [low, high], clamped to 0.0~1.0.
func RangePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	return math.Max(0, math.Min(1, pos)), nil
}
