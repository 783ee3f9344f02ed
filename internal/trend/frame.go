package trend

import (
	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/model"
)

// MinHistory is the longest indicator lookback (SMA_60 and VOLUME_SMA_60).
const MinHistory = 60

// BuildFrame derives every indicator column over the full series.
func BuildFrame(s *model.NormalizedSeries) *model.IndicatorFrame {
	f := model.NewIndicatorFrame(s)
	closes := s.Closes()

	f.Set(model.ColSMA5, calculator.SMASeries(closes, 5))
	f.Set(model.ColSMA10, calculator.SMASeries(closes, 10))
	f.Set(model.ColSMA20, calculator.SMASeries(closes, 20))
	f.Set(model.ColSMA60, calculator.SMASeries(closes, 60))

	macd := calculator.MACDSeries(closes, calculator.MACDFast, calculator.MACDSlow, calculator.MACDSignal)
	f.Set(model.ColMACD, macd.Line)
	f.Set(model.ColMACDSignal, macd.Signal)
	f.Set(model.ColMACDHist, macd.Hist)

	if s.HasVolume {
		f.Set(model.ColVolumeSMA60, calculator.SMASeries(s.Volumes(), 60))
	}

	bands := calculator.BollingerSeries(closes, 20, 2)
	f.Set(model.ColBBLower, bands.Lower)
	f.Set(model.ColBBMiddle, bands.Middle)
	f.Set(model.ColBBUpper, bands.Upper)

	f.Set(model.ColRSI14, calculator.RSISeries(closes, 14))
	return f
}

// Range indicator keys exposed in debug output.
const (
	KeyRangeHigh20 = "RANGE_HIGH_20"
	KeyRangeLow20  = "RANGE_LOW_20"
	KeyRangePos20  = "RANGE_POS_20"
	KeyVolumeRatio = "VOLUME_RATIO"
)

// Indicators flattens the latest indicator values for debug reports.
func Indicators(f *model.IndicatorFrame) map[string]float64 {
	if f == nil || f.Len() == 0 {
		return nil
	}
	out := f.Latest()

	s := f.Series
	var highs, lows []float64
	if s.HasHigh {
		highs = column(s, func(b model.PriceBar) float64 { return b.High })
	}
	if s.HasLow {
		lows = column(s, func(b model.PriceBar) float64 { return b.Low })
	}
	closes := s.Closes()
	if high, low, err := calculator.CalculateRange(highs, lows, closes, 20); err == nil {
		out[KeyRangeHigh20] = high
		out[KeyRangeLow20] = low
		if c, ok := out["close"]; ok {
			if pos, err := calculator.RangePosition(c, high, low); err == nil {
				out[KeyRangePos20] = pos
			}
		}
	}
	if ratio, ok := volumeRatio(f); ok {
		out[KeyVolumeRatio] = ratio
	}
	return out
}

func column(s *model.NormalizedSeries, pick func(model.PriceBar) float64) []float64 {
	out := make([]float64, s.Len())
	for i, b := range s.Bars {
		out[i] = pick(b)
	}
	return out
}
