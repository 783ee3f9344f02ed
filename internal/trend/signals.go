package trend

import (
	"fmt"
	"math"

	"TrendSentinel/internal/model"
)

// Category groups signal statements by the rule that produced them.
type Category string

const (
	CatMAStack   Category = "ma_stack"
	CatPriceVsMA Category = "price_vs_ma"
	CatCrossover Category = "ma_cross"
	CatMASlope   Category = "ma_slope"
	CatMACD      Category = "macd"
	CatVolume    Category = "volume"
	CatBollinger Category = "bollinger"
	CatRSI       Category = "rsi"
)

type signal struct {
	cat  Category
	text string
}

type maWindow struct {
	col   string
	label string
}

var maWindows = []maWindow{
	{model.ColSMA5, "MA5"},
	{model.ColSMA10, "MA10"},
	{model.ColSMA20, "MA20"},
	{model.ColSMA60, "MA60"},
}

var crossPairs = [][2]int{{0, 1}, {1, 2}, {2, 3}}

func extractSignals(f *model.IndicatorFrame) []signal {
	var out []signal
	emit := func(cat Category, text string) {
		out = append(out, signal{cat: cat, text: text})
	}

	emit(CatMAStack, maStack(f))
	for _, w := range maWindows {
		emit(CatPriceVsMA, priceVsMA(f, w.col, w.label))
	}
	for _, p := range crossPairs {
		emit(CatCrossover, crossover(f, maWindows[p[0]], maWindows[p[1]]))
	}
	emit(CatMASlope, maSlope(f))
	for _, text := range macdSignals(f) {
		emit(CatMACD, text)
	}
	emit(CatVolume, volumeSignal(f))
	emit(CatBollinger, bollingerSignal(f))
	emit(CatRSI, rsiSignal(f))
	return out
}

func anyNaN(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

func maStack(f *model.IndicatorFrame) string {
	m5 := f.At(model.ColSMA5, -1)
	m10 := f.At(model.ColSMA10, -1)
	m20 := f.At(model.ColSMA20, -1)
	m60 := f.At(model.ColSMA60, -1)
	switch {
	case anyNaN(m5, m10, m20, m60):
		return "均线数据缺失，无法判断排列"
	case m5 > m10 && m10 > m20 && m20 > m60:
		return "均线多头排列 (MA5>MA10>MA20>MA60)"
	case m5 < m10 && m10 < m20 && m20 < m60:
		return "均线空头排列 (MA5<MA10<MA20<MA60)"
	default:
		return "均线交织，方向不明"
	}
}

func priceVsMA(f *model.IndicatorFrame, col, label string) string {
	close := f.Bar(-1).Close
	ma := f.At(col, -1)
	if anyNaN(close, ma) {
		return label + "数据缺失，无法比较价格位置"
	}
	if close >= ma {
		return "价格位于" + label + "上方"
	}
	return "价格位于" + label + "下方"
}

// CrossKind is the relationship of two series across the latest two rows.
type CrossKind int

const (
	CrossMissing CrossKind = iota
	CrossUp
	CrossDown
	AboveContinuing
	BelowContinuing
	Level
)

// DetectCross compares short against long now and one row earlier.
func DetectCross(shortPrev, longPrev, shortNow, longNow float64) CrossKind {
	switch {
	case anyNaN(shortPrev, longPrev, shortNow, longNow):
		return CrossMissing
	case shortNow > longNow && shortPrev <= longPrev:
		return CrossUp
	case shortNow < longNow && shortPrev >= longPrev:
		return CrossDown
	case shortNow > longNow:
		return AboveContinuing
	case shortNow < longNow:
		return BelowContinuing
	default:
		return Level
	}
}

func crossover(f *model.IndicatorFrame, short, long maWindow) string {
	kind := DetectCross(
		f.At(short.col, -2), f.At(long.col, -2),
		f.At(short.col, -1), f.At(long.col, -1),
	)
	pair := short.label + "/" + long.label
	switch kind {
	case CrossUp:
		return fmt.Sprintf("%s上穿%s，形成金叉", short.label, long.label)
	case CrossDown:
		return fmt.Sprintf("%s下穿%s，形成死叉", short.label, long.label)
	case AboveContinuing:
		return fmt.Sprintf("%s位于%s上方，多头延续", short.label, long.label)
	case BelowContinuing:
		return fmt.Sprintf("%s位于%s下方，空头延续", short.label, long.label)
	case Level:
		return fmt.Sprintf("%s与%s持平", short.label, long.label)
	default:
		return pair + "数据缺失，无法判断交叉"
	}
}

func maSlope(f *model.IndicatorFrame) string {
	now := f.At(model.ColSMA60, -1)
	prev := f.At(model.ColSMA60, -2)
	switch {
	case anyNaN(now, prev):
		return "MA60数据缺失，无法判断斜率"
	case now > prev:
		return "MA60趋势向上"
	case now < prev:
		return "MA60趋势向下"
	default:
		return "MA60走平"
	}
}

// MACDIncomplete is the single statement emitted when any MACD input is null.
const MACDIncomplete = "MACD数据不完整"

func macdSignals(f *model.IndicatorFrame) []string {
	line := f.At(model.ColMACD, -1)
	sig := f.At(model.ColMACDSignal, -1)
	hist := f.At(model.ColMACDHist, -1)
	linePrev := f.At(model.ColMACD, -2)
	sigPrev := f.At(model.ColMACDSignal, -2)
	histPrev := f.At(model.ColMACDHist, -2)
	if anyNaN(line, sig, hist, linePrev, sigPrev, histPrev) {
		return []string{MACDIncomplete}
	}

	var cross string
	switch DetectCross(linePrev, sigPrev, line, sig) {
	case CrossUp:
		cross = "MACD金叉 (DIF上穿DEA)"
	case CrossDown:
		cross = "MACD死叉 (DIF下穿DEA)"
	case AboveContinuing:
		cross = "DIF位于DEA上方"
	case BelowContinuing:
		cross = "DIF位于DEA下方"
	default:
		cross = "DIF与DEA重合"
	}

	var zero string
	switch {
	case line > 0:
		zero = "MACD位于零轴上方"
	case line < 0:
		zero = "MACD位于零轴下方"
	default:
		zero = "MACD位于零轴附近"
	}

	return []string{cross, zero, histogramMomentum(hist, histPrev)}
}

func histogramMomentum(hist, prev float64) string {
	switch {
	case hist > 0 && hist > prev:
		return "MACD红柱放大，多头动能增强"
	case hist > 0 && hist < prev:
		return "MACD红柱缩短，多头动能减弱"
	case hist > 0:
		return "MACD红柱持平"
	case hist < 0 && hist < prev:
		return "MACD绿柱放大，空头动能增强"
	case hist < 0 && hist > prev:
		return "MACD绿柱缩短，空头动能减弱"
	case hist < 0:
		return "MACD绿柱持平"
	default:
		return "MACD多空平衡"
	}
}

// VolumeBand is a bucket of the latest volume over its 60-day average.
type VolumeBand int

const (
	VolumeNormal VolumeBand = iota
	VolumeSurge
	VolumeExpanded
	VolumeContracted
	VolumeCollapse
)

// BandFor buckets a positive volume ratio. The buckets are exclusive and
// together cover every ratio.
func BandFor(ratio float64) VolumeBand {
	switch {
	case ratio >= 2.0:
		return VolumeSurge
	case ratio <= 0.5:
		return VolumeCollapse
	case ratio >= 1.5:
		return VolumeExpanded
	case ratio <= 0.75:
		return VolumeContracted
	default:
		return VolumeNormal
	}
}

var bandText = map[VolumeBand]string{
	VolumeSurge:      "成交量显著放大",
	VolumeExpanded:   "成交量放大",
	VolumeNormal:     "成交量正常",
	VolumeContracted: "成交量萎缩",
	VolumeCollapse:   "成交量显著萎缩",
}

func volumeRatio(f *model.IndicatorFrame) (float64, bool) {
	vol := f.Bar(-1).Volume
	avg := f.At(model.ColVolumeSMA60, -1)
	if anyNaN(vol, avg) || avg <= 0 {
		return 0, false
	}
	return vol / avg, true
}

func volumeSignal(f *model.IndicatorFrame) string {
	ratio, ok := volumeRatio(f)
	if !ok {
		return "成交量数据缺失，无法计算量比"
	}
	return fmt.Sprintf("%s (量比 %.2f)", bandText[BandFor(ratio)], ratio)
}

func bollingerSignal(f *model.IndicatorFrame) string {
	close := f.Bar(-1).Close
	upper := f.At(model.ColBBUpper, -1)
	middle := f.At(model.ColBBMiddle, -1)
	lower := f.At(model.ColBBLower, -1)
	switch {
	case anyNaN(close, upper, middle, lower):
		return "布林带数据缺失"
	case close > upper:
		return "价格突破布林上轨"
	case close < lower:
		return "价格跌破布林下轨"
	case close >= middle:
		return "价格运行于布林中轨上方"
	default:
		return "价格运行于布林中轨下方"
	}
}

func rsiSignal(f *model.IndicatorFrame) string {
	rsi := f.At(model.ColRSI14, -1)
	switch {
	case math.IsNaN(rsi):
		return "RSI数据缺失"
	case rsi >= 70:
		return fmt.Sprintf("RSI超买 (%.1f)", rsi)
	case rsi <= 30:
		return fmt.Sprintf("RSI超卖 (%.1f)", rsi)
	default:
		return fmt.Sprintf("RSI中性 (%.1f)", rsi)
	}
}
