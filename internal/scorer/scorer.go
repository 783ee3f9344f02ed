// Package scorer rates one instrument's merged signal bundle via an external model.
package scorer

import (
	"context"

	"TrendSentinel/internal/model"
)

// Comments returned when no usable score is available.
const (
	CommentEmpty        = "模型未提供有效分析。"
	CommentBadFormat    = "LLM返回格式错误"
	CommentServiceError = "LLM分析服务异常"
	CommentNotEnabled   = "LLM服务未配置或初始化失败。"
)

// NeutralScore is used when the model answers without a numeric score.
const NeutralScore = 50.0

// Request is the bundle sent for one instrument.
type Request struct {
	Instrument   model.Instrument
	Intraday     model.IntradaySignal
	DailyStatus  model.TrendStatus
	DailySignals []string
	// Indicators holds the latest daily indicator values keyed by column name.
	Indicators map[string]float64
}

// Result is a score in [0,100] or nil, plus commentary.
type Result struct {
	Score   *float64
	Comment string
}

// Scorer rates instruments.
type Scorer interface {
	Score(ctx context.Context, req Request) (Result, error)
}

// NoopScorer stands in when no model is configured.
type NoopScorer struct{}

func (NoopScorer) Score(context.Context, Request) (Result, error) {
	return Result{Comment: CommentNotEnabled}, nil
}

func scoreOf(v float64) *float64 {
	v = max(0, min(100, v))
	return &v
}
