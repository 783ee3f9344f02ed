package strategy

import (
	"fmt"
	"math"

	"TrendSentinel/internal/intraday"
	"TrendSentinel/internal/model"
)

// FactorScore is one weighted component of the rule score.
type FactorScore struct {
	Name       string
	RawScore   float64 // -2.0 to +2.0
	Weight     float64
	Weighted   float64
	Commentary string
}

func factor(name string, raw, weight float64, commentary string) FactorScore {
	return FactorScore{Name: name, RawScore: raw, Weight: weight, Weighted: raw * weight, Commentary: commentary}
}

// scoreTrendStatus maps the daily classification onto the factor scale.
// Weight: 0.35
func scoreTrendStatus(status model.TrendStatus) FactorScore {
	var score float64
	switch status {
	case model.StatusStrongUptrend:
		score = 2.0
	case model.StatusUptrend:
		score = 1.0
	case model.StatusDowntrend:
		score = -1.0
	case model.StatusStrongDowntrend:
		score = -2.0
	}
	commentary := status.Label()
	if status.Terminal() {
		commentary = "日线数据不可用"
	}
	return factor("日线趋势", score, 0.35, commentary)
}

// scoreMA20Deviation rewards a price modestly above SMA_20 and penalizes
// both breakdowns and overextension.
// Weight: 0.20
func scoreMA20Deviation(ind map[string]float64) FactorScore {
	c, okC := ind["close"]
	ma, okMA := ind[model.ColSMA20]
	if !okC || !okMA || ma == 0 {
		return factor("MA20偏离度", 0, 0.20, "MA20不可用")
	}
	deviation := (c - ma) / ma * 100

	var score float64
	switch {
	case deviation <= -5:
		score = -1.5
	case deviation <= -2:
		score = -1.0
	case deviation <= 0:
		score = -0.5
	case deviation <= 3:
		score = 1.0
	case deviation <= 8:
		score = 0.5
	default:
		score = -0.5
	}
	return factor("MA20偏离度", score, 0.20, fmt.Sprintf("偏离 %+.1f%%", deviation))
}

// scoreDailyRSI scores based on the daily RSI(14).
// Weight: 0.15
func scoreDailyRSI(ind map[string]float64) FactorScore {
	rsi, ok := ind[model.ColRSI14]
	if !ok {
		return factor("日线RSI", 0, 0.15, "RSI不可用")
	}
	var score float64
	switch {
	case rsi <= 25:
		score = 2.0
	case rsi <= 30:
		score = 1.5
	case rsi <= 40:
		score = 1.0
	case rsi <= 45:
		score = 0.5
	case rsi <= 55:
		score = 0
	case rsi <= 60:
		score = -0.5
	case rsi <= 70:
		score = -1.0
	case rsi <= 80:
		score = -1.5
	default:
		score = -2.0
	}
	return factor("日线RSI", score, 0.15, fmt.Sprintf("RSI=%.0f", rsi))
}

// scoreMACD combines the histogram sign with the MACD line's side of zero.
// Weight: 0.15
func scoreMACD(ind map[string]float64) FactorScore {
	hist, okH := ind[model.ColMACDHist]
	line, okL := ind[model.ColMACD]
	if !okH || !okL {
		return factor("MACD", 0, 0.15, "MACD不可用")
	}

	var score float64
	var commentary string
	switch {
	case hist > 0 && line > 0:
		score, commentary = 1.5, "红柱+零轴上方"
	case hist > 0:
		score, commentary = 1.0, "红柱+零轴下方"
	case hist < 0 && line < 0:
		score, commentary = -1.5, "绿柱+零轴下方"
	case hist < 0:
		score, commentary = -1.0, "绿柱+零轴上方"
	default:
		commentary = "柱线为零"
	}
	return factor("MACD", score, 0.15, commentary)
}

// scoreIntraday follows the session move, amplified when turnover spikes.
// Weight: 0.15
func scoreIntraday(sig model.IntradaySignal) FactorScore {
	score := math.Max(-2, math.Min(2, sig.ChangePct/1.25))
	commentary := fmt.Sprintf("涨跌 %+.2f%%", sig.ChangePct)
	for _, t := range sig.Tags {
		if t == intraday.TagVolumeSpike {
			score = math.Max(-2, math.Min(2, score*1.5))
			commentary += "+放量"
			break
		}
	}
	return factor("盘中动量", score, 0.15, commentary)
}
