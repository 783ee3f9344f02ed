package calculator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestCalculateSMA(t *testing.T) {
	v, err := CalculateSMA([]float64{1, 2, 3, 4, 5}, 3)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, v, 1e-9)

	_, err = CalculateSMA([]float64{1, 2}, 3)
	assert.Error(t, err)
	_, err = CalculateSMA([]float64{1, 2}, 0)
	assert.Error(t, err)
}

func TestSMASeries_AlignsWithInput(t *testing.T) {
	out := SMASeries([]float64{1, 2, 3, 4, 5}, 3)
	require.Len(t, out, 5)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2.0, out[2], 1e-9)
	assert.InDelta(t, 3.0, out[3], 1e-9)
	assert.InDelta(t, 4.0, out[4], 1e-9)
}

func TestSMASeries_SkipsNulls(t *testing.T) {
	out := SMASeries([]float64{1, 2, math.NaN(), 3, 4}, 2)
	assert.True(t, math.IsNaN(out[0]))
	assert.InDelta(t, 1.5, out[1], 1e-9)
	assert.True(t, math.IsNaN(out[2]))
	assert.InDelta(t, 2.5, out[3], 1e-9)
	assert.InDelta(t, 3.5, out[4], 1e-9)
}

func TestSMASeries_ShortInputIsAllNull(t *testing.T) {
	out := SMASeries([]float64{1, 2}, 5)
	require.Len(t, out, 2)
	for _, v := range out {
		assert.True(t, math.IsNaN(v))
	}
}

func TestMACDSeries(t *testing.T) {
	closes := ramp(60, 10, 0.5)
	m := MACDSeries(closes, MACDFast, MACDSlow, MACDSignal)
	require.Len(t, m.Line, 60)

	assert.True(t, math.IsNaN(m.Line[32]))
	assert.False(t, math.IsNaN(m.Line[33]))
	// steady uptrend: fast EMA above slow EMA
	assert.Greater(t, m.Line[59], 0.0)
	assert.InDelta(t, m.Line[59]-m.Signal[59], m.Hist[59], 1e-9)

	short := MACDSeries(ramp(20, 1, 1), MACDFast, MACDSlow, MACDSignal)
	assert.True(t, math.IsNaN(short.Hist[19]))
}

// smaSeededEMA is the textbook EMA: seeded with the SMA of the first period
// values, NaN before that.
func smaSeededEMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	k := 2.0 / float64(period+1)
	sum := 0.0
	for i, v := range values {
		switch {
		case i < period-1:
			sum += v
			out[i] = math.NaN()
		case i == period-1:
			sum += v
			out[i] = sum / float64(period)
		default:
			out[i] = out[i-1] + k*(v-out[i-1])
		}
	}
	return out
}

func TestMACDSeries_MatchesSMASeededReference(t *testing.T) {
	for _, n := range []int{40, 60, 120} {
		closes := make([]float64, n)
		for i := range closes {
			closes[i] = 10 + 2*math.Sin(float64(i)/5) + float64(i)*0.03
		}

		fast := smaSeededEMA(closes, MACDFast)
		slow := smaSeededEMA(closes, MACDSlow)
		line := make([]float64, 0, n)
		for i := MACDSlow - 1; i < n; i++ {
			line = append(line, fast[i]-slow[i])
		}
		signal := smaSeededEMA(line, MACDSignal)

		m := MACDSeries(closes, MACDFast, MACDSlow, MACDSignal)
		last := len(line) - 1
		assert.InDelta(t, line[last], m.Line[n-1], 1e-9, "line n=%d", n)
		assert.InDelta(t, signal[last], m.Signal[n-1], 1e-9, "signal n=%d", n)
		assert.InDelta(t, line[last]-signal[last], m.Hist[n-1], 1e-9, "hist n=%d", n)
	}
}

func TestBollingerSeries(t *testing.T) {
	flat := make([]float64, 25)
	for i := range flat {
		flat[i] = 5
	}
	b := BollingerSeries(flat, 20, 2)
	assert.True(t, math.IsNaN(b.Middle[18]))
	assert.InDelta(t, 5.0, b.Middle[24], 1e-9)
	assert.InDelta(t, 5.0, b.Upper[24], 1e-9)
	assert.InDelta(t, 5.0, b.Lower[24], 1e-9)

	rising := BollingerSeries(ramp(25, 1, 1), 20, 2)
	assert.Greater(t, rising.Upper[24], rising.Middle[24])
	assert.Less(t, rising.Lower[24], rising.Middle[24])
}

func TestRSISeries_Extremes(t *testing.T) {
	down := RSISeries(ramp(20, 50, -1), 14)
	assert.InDelta(t, 0.0, down[19], 1e-9)

	short := RSISeries([]float64{1, 2}, 14)
	assert.True(t, math.IsNaN(short[1]))
}

func TestRSISeries(t *testing.T) {
	out := RSISeries(ramp(20, 1, 1), 14)
	assert.True(t, math.IsNaN(out[13]))
	assert.Equal(t, 100.0, out[14])
	assert.Equal(t, 100.0, out[19])
}

func TestCalculateRange(t *testing.T) {
	highs := []float64{5, 9, 7, math.NaN(), 6}
	lows := []float64{1, 3, 2, math.NaN(), 4}

	h, l, err := CalculateRange(highs, lows, nil, 3)
	require.NoError(t, err)
	assert.Equal(t, 7.0, h)
	assert.Equal(t, 2.0, l)

	h, l, err = CalculateRange(nil, nil, []float64{3, 1, 2}, 10)
	require.NoError(t, err)
	assert.Equal(t, 3.0, h)
	assert.Equal(t, 1.0, l)

	_, _, err = CalculateRange(nil, nil, nil, 3)
	assert.Error(t, err)
}

func TestRangePosition(t *testing.T) {
	pos, err := RangePosition(15, 20, 10)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, pos, 1e-9)

	pos, _ = RangePosition(25, 20, 10)
	assert.Equal(t, 1.0, pos)

	pos, _ = RangePosition(5, 5, 5)
	assert.Equal(t, 0.5, pos)

	_, err = RangePosition(1, 1, 2)
	assert.Error(t, err)
}
