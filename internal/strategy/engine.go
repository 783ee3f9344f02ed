// Package strategy scores instruments with fixed weighted rules. It stands in
// for the LLM scorer when no model endpoint is configured.
package strategy

import (
	"context"
	"fmt"
	"strings"

	"TrendSentinel/internal/model"
	"TrendSentinel/internal/scorer"
)

// Evaluation is the full factor breakdown for one instrument.
type Evaluation struct {
	Factors    []FactorScore
	TotalScore float64 // -2.0 to +2.0
	Score      float64 // 0 to 100, 50 neutral
	WarningMsg string
}

// Evaluate computes every factor from a scoring request.
func Evaluate(req scorer.Request) *Evaluation {
	ind := req.Indicators
	if ind == nil {
		ind = map[string]float64{}
	}
	factors := []FactorScore{
		scoreTrendStatus(req.DailyStatus),
		scoreMA20Deviation(ind),
		scoreDailyRSI(ind),
		scoreMACD(ind),
		scoreIntraday(req.Intraday),
	}

	total := 0.0
	for _, f := range factors {
		total += f.Weighted
	}

	ev := &Evaluation{
		Factors:    factors,
		TotalScore: total,
		Score:      toPercent(total),
	}
	if rsi, ok := ind[model.ColRSI14]; ok && rsi > 85 {
		ev.WarningMsg = "RSI > 85 超买预警"
	}
	return ev
}

func toPercent(total float64) float64 {
	return max(0, min(100, scorer.NeutralScore+total*25))
}

// Comment renders the factor breakdown as one line of commentary.
func (e *Evaluation) Comment() string {
	parts := make([]string, 0, len(e.Factors)+1)
	for _, f := range e.Factors {
		parts = append(parts, fmt.Sprintf("%s: %s (%+.1f)", f.Name, f.Commentary, f.RawScore))
	}
	if e.WarningMsg != "" {
		parts = append(parts, "⚠️ "+e.WarningMsg)
	}
	return "规则评分 | " + strings.Join(parts, " | ")
}

// RuleScorer is a scorer.Scorer backed by Evaluate.
type RuleScorer struct{}

var _ scorer.Scorer = (*RuleScorer)(nil)

// NewRuleScorer creates a RuleScorer.
func NewRuleScorer() *RuleScorer { return &RuleScorer{} }

func (*RuleScorer) Score(ctx context.Context, req scorer.Request) (scorer.Result, error) {
	if err := ctx.Err(); err != nil {
		return scorer.Result{}, err
	}
	ev := Evaluate(req)
	score := ev.Score
	return scorer.Result{Score: &score, Comment: ev.Comment()}, nil
}
