package trend

import (
	"math"

	"TrendSentinel/internal/model"
)

// ClassifyStatus maps the latest close, SMA_20 and SMA_60 onto a TrendStatus.
// A close sitting exactly on SMA_20 counts as the up branch.
func ClassifyStatus(f *model.IndicatorFrame) model.TrendStatus {
	close := f.Bar(-1).Close
	sma20 := f.At(model.ColSMA20, -1)
	sma60 := f.At(model.ColSMA60, -1)
	return classify(close, sma20, sma60)
}

func classify(close, sma20, sma60 float64) model.TrendStatus {
	if math.IsNaN(close) || math.IsNaN(sma20) || math.IsNaN(sma60) {
		return model.StatusSideways
	}
	if close >= sma20 {
		if sma20 > sma60 {
			return model.StatusStrongUptrend
		}
		return model.StatusUptrend
	}
	if sma20 < sma60 {
		return model.StatusStrongDowntrend
	}
	return model.StatusDowntrend
}
