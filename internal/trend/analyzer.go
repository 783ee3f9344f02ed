// Package trend classifies one instrument's daily history into a trend status
// and an ordered list of technical signal statements.
package trend

import (
	"errors"
	"fmt"
	"math"

	"TrendSentinel/internal/model"
	"TrendSentinel/internal/series"
)

// Explanations attached to short-circuit results.
const (
	SignalNoHistory     = "历史数据为空或无法获取。"
	SignalMissingClose  = "获取到的历史数据缺少必要的'close'列。"
	SignalFewerThan60   = "历史数据不足60天，部分长期指标无法计算。"
	SignalFewerThan2    = "历史数据不足2天，无法进行趋势分析。"
	SignalAllCloseNull  = "'close' 列数据全为空值，无法计算指标。"
	signalFailurePrefix = "数据获取或分析过程中出现错误："
)

// buildFrame is swapped in tests to exercise the failure boundary.
var buildFrame = BuildFrame

// AnalyzeTable normalizes a vendor table and analyzes the result.
// A nil or empty table is treated as insufficient history.
func AnalyzeTable(inst model.Instrument, t *model.RawTable) (result model.DailyTrend) {
	defer recoverInto(inst, &result)

	s, err := series.Normalize(t)
	switch {
	case errors.Is(err, series.ErrMissingRequiredColumn):
		return shortCircuit(inst, model.StatusMissingColumns, SignalMissingClose, err)
	case err != nil:
		return shortCircuit(inst, model.StatusInsufficientData, SignalNoHistory, err)
	}
	return analyze(inst, s)
}

// Analyze classifies a normalized series. It never panics; any failure is
// reported as StatusAnalysisFailed.
func Analyze(inst model.Instrument, s *model.NormalizedSeries) (result model.DailyTrend) {
	defer recoverInto(inst, &result)
	return analyze(inst, s)
}

func analyze(inst model.Instrument, s *model.NormalizedSeries) model.DailyTrend {
	n := s.Len()
	if n == 0 {
		return shortCircuit(inst, model.StatusInsufficientData, SignalNoHistory, series.ErrEmptySeries)
	}
	if n < MinHistory {
		return shortCircuit(inst, model.StatusInsufficientData, SignalFewerThan60,
			fmt.Errorf("%d rows, need %d: %w", n, MinHistory, model.ErrInsufficientHistory))
	}
	// unreachable while MinHistory >= 2, kept so the two-row requirement is explicit
	if n < 2 {
		return shortCircuit(inst, model.StatusInsufficientData, SignalFewerThan2,
			fmt.Errorf("%d rows, need 2: %w", n, model.ErrInsufficientHistory))
	}
	if allCloseNull(s) {
		return shortCircuit(inst, model.StatusAnalysisFailed, SignalAllCloseNull,
			fmt.Errorf("close column is entirely null: %w", model.ErrDataUnavailable))
	}

	frame := buildFrame(s)
	sigs := extractSignals(frame)
	texts := make([]string, len(sigs))
	for i, sg := range sigs {
		texts[i] = sg.text
	}

	return model.DailyTrend{
		Instrument: inst,
		Status:     ClassifyStatus(frame),
		Signals:    texts,
		Frame:      frame,
	}
}

func allCloseNull(s *model.NormalizedSeries) bool {
	for _, b := range s.Bars {
		if !math.IsNaN(b.Close) {
			return false
		}
	}
	return true
}

func shortCircuit(inst model.Instrument, status model.TrendStatus, text string, err error) model.DailyTrend {
	return model.DailyTrend{
		Instrument: inst,
		Status:     status,
		Signals:    []string{text},
		Err:        err,
	}
}

func recoverInto(inst model.Instrument, result *model.DailyTrend) {
	r := recover()
	if r == nil {
		return
	}
	*result = model.DailyTrend{
		Instrument: inst,
		Status:     model.StatusAnalysisFailed,
		Signals:    []string{fmt.Sprintf("%s%v", signalFailurePrefix, r)},
		Err:        fmt.Errorf("%v: %w", r, model.ErrUnexpectedFailure),
	}
}
