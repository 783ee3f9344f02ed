package model

import (
	"errors"
	"time"
)

// TrendStatus is the coarse daily classification of one instrument.
type TrendStatus string

const (
	StatusInsufficientData TrendStatus = "insufficient_data"
	StatusMissingColumns   TrendStatus = "missing_columns"
	StatusAnalysisFailed   TrendStatus = "analysis_failed"
	StatusStrongUptrend    TrendStatus = "strong_uptrend"
	StatusUptrend          TrendStatus = "uptrend"
	StatusSideways         TrendStatus = "sideways"
	StatusDowntrend        TrendStatus = "downtrend"
	StatusStrongDowntrend  TrendStatus = "strong_downtrend"
	// StatusUnknown is used when no daily result exists for an instrument.
	StatusUnknown TrendStatus = "unknown"
)

var statusLabels = map[TrendStatus]string{
	StatusInsufficientData: "🟡 数据不足",
	StatusMissingColumns:   "🟡 数据列缺失",
	StatusAnalysisFailed:   "❌ 分析失败",
	StatusStrongUptrend:    "🟢 强势上涨",
	StatusUptrend:          "🟢 上涨趋势",
	StatusSideways:         "⚪ 横盘震荡",
	StatusDowntrend:        "🔴 下跌趋势",
	StatusStrongDowntrend:  "🔴 强势下跌",
	StatusUnknown:          "未知",
}

// Label returns the display label.
func (s TrendStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Terminal reports whether the status is a short-circuit outcome rather than a trend.
func (s TrendStatus) Terminal() bool {
	switch s {
	case StatusInsufficientData, StatusMissingColumns, StatusAnalysisFailed, StatusUnknown:
		return true
	}
	return false
}

// Failure kinds. Every per-instrument failure wraps exactly one of these.
var (
	ErrDataUnavailable     = errors.New("data unavailable")
	ErrSchemaMismatch      = errors.New("schema mismatch")
	ErrInsufficientHistory = errors.New("insufficient history")
	ErrScoringFailure      = errors.New("scoring failure")
	ErrUnexpectedFailure   = errors.New("unexpected failure")
)

// DailyTrend is the Daily Trend Analyzer result for one instrument.
// Frame is nil whenever analysis short-circuited before indicator derivation.
type DailyTrend struct {
	Instrument
	Status  TrendStatus
	Signals []string
	Frame   *IndicatorFrame
	Err     error
}

// IntradaySignal is the momentary view of one instrument from the realtime snapshot.
type IntradaySignal struct {
	Code      string
	Name      string
	Price     float64
	ChangePct float64
	Tags      []string
}

// ReportEntry is one ranked line of the final report.
type ReportEntry struct {
	Code         string
	Name         string
	Price        float64
	ChangePct    float64
	InSnapshot   bool
	IntradayTags []string
	DailyStatus  TrendStatus
	DailySignals []string
	Score        float64
	Scored       bool
	Comment      string
	Indicators   map[string]float64
}

// Report is the output of one orchestration pass.
type Report struct {
	RunID       string
	Pool        PoolKind
	GeneratedAt time.Time
	Debug       bool
	Failed      bool
	Entries     []ReportEntry
}

// FetchFailedComment is the sentinel entry comment when the realtime fetch fails.
const FetchFailedComment = "获取实时数据失败，无法分析。"

// FetchFailureEntry is the single sentinel entry returned when the realtime fetch fails outright.
func FetchFailureEntry() ReportEntry {
	return ReportEntry{
		Name:        "错误",
		DailyStatus: StatusUnknown,
		Comment:     FetchFailedComment,
	}
}
