package model

import "math"

// Indicator column names.
const (
	ColSMA5        = "SMA_5"
	ColSMA10       = "SMA_10"
	ColSMA20       = "SMA_20"
	ColSMA60       = "SMA_60"
	ColMACD        = "MACD"
	ColMACDSignal  = "MACD_signal"
	ColMACDHist    = "MACD_hist"
	ColVolumeSMA60 = "VOLUME_SMA_60"
	ColBBLower     = "BBL_20"
	ColBBMiddle    = "BBM_20"
	ColBBUpper     = "BBU_20"
	ColRSI14       = "RSI_14"
)

// IndicatorFrame is a NormalizedSeries augmented with derived columns.
// Every column has one value per bar; rows inside a lookback are NaN.
type IndicatorFrame struct {
	Series  *NormalizedSeries
	Columns map[string][]float64
}

// NewIndicatorFrame wraps a series with an empty column set.
func NewIndicatorFrame(s *NormalizedSeries) *IndicatorFrame {
	return &IndicatorFrame{Series: s, Columns: make(map[string][]float64)}
}

// Len returns the number of rows.
func (f *IndicatorFrame) Len() int {
	return f.Series.Len()
}

// Set stores a derived column.
func (f *IndicatorFrame) Set(name string, values []float64) {
	f.Columns[name] = values
}

// At returns column name at row i, or NaN when the column or row is absent.
// Negative i counts from the end (-1 is the latest row).
func (f *IndicatorFrame) At(name string, i int) float64 {
	col, ok := f.Columns[name]
	if !ok {
		return math.NaN()
	}
	if i < 0 {
		i += len(col)
	}
	if i < 0 || i >= len(col) {
		return math.NaN()
	}
	return col[i]
}

// Bar returns bar i, counting from the end when negative.
func (f *IndicatorFrame) Bar(i int) PriceBar {
	bars := f.Series.Bars
	if i < 0 {
		i += len(bars)
	}
	return bars[i]
}

// Latest returns every column's value at the last row, skipping nulls.
func (f *IndicatorFrame) Latest() map[string]float64 {
	out := make(map[string]float64, len(f.Columns)+1)
	if f.Len() == 0 {
		return out
	}
	if c := f.Bar(-1).Close; !math.IsNaN(c) {
		out["close"] = c
	}
	for name := range f.Columns {
		if v := f.At(name, -1); !math.IsNaN(v) {
			out[name] = v
		}
	}
	return out
}
