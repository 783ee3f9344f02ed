package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"TrendSentinel/internal/app"
	"TrendSentinel/internal/model"
	"TrendSentinel/internal/notifier"
	"TrendSentinel/internal/trend"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <code>",
	Short: "Run the daily trend analysis for one instrument",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

var analyzePool string

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzePool, "pool", "etf", "Pool whose data source serves the code (etf|stock)")
}

type analyzeOutput struct {
	Code       string             `json:"code"`
	Name       string             `json:"name"`
	Status     model.TrendStatus  `json:"status"`
	Signals    []string           `json:"signals"`
	Indicators map[string]float64 `json:"indicators,omitempty"`
	Error      string             `json:"error,omitempty"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	kind, ok := model.ParsePoolKind(analyzePool)
	if !ok {
		return fmt.Errorf("unknown pool %q", analyzePool)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	engines, err := app.Build(ctx, cfg, nil, app.Options{Mock: useMock, NoScorer: true})
	if err != nil {
		return err
	}
	defer engines.Close()

	res := engines.For(kind).AnalyzeOne(ctx, args[0])
	if outFormat == "json" {
		out := analyzeOutput{
			Code:       res.Code,
			Name:       res.Name,
			Status:     res.Status,
			Signals:    res.Signals,
			Indicators: trend.Indicators(res.Frame),
		}
		if res.Err != nil {
			out.Error = res.Err.Error()
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	fmt.Fprintln(cmd.OutOrStdout(), notifier.FormatDailyTrend(res))
	return nil
}
