package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"TrendSentinel/internal/app"
	"TrendSentinel/internal/metrics"
	"TrendSentinel/internal/model"
	"TrendSentinel/internal/notifier"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a ranked report for one pool",
	RunE:  runReport,
}

var (
	reportPool  string
	reportDebug bool
)

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportPool, "pool", "etf", "Watch-list to report on (etf|stock)")
	reportCmd.Flags().BoolVar(&reportDebug, "debug", false, "Skip scoring and print raw indicators")
}

func runReport(cmd *cobra.Command, _ []string) error {
	kind, ok := model.ParsePoolKind(reportPool)
	if !ok {
		return fmt.Errorf("unknown pool %q", reportPool)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	engines, err := app.Build(ctx, cfg, metrics.New(), app.Options{Mock: useMock, NoScorer: reportDebug})
	if err != nil {
		return err
	}
	defer engines.Close()

	o := engines.For(kind)
	var rep *model.Report
	if reportDebug {
		rep, err = o.GenerateDebug(ctx)
	} else {
		rep, err = o.Generate(ctx)
	}
	if err != nil {
		return fmt.Errorf("generate %s report: %w", kind, err)
	}

	if outFormat == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	if reportDebug {
		fmt.Fprintln(cmd.OutOrStdout(), notifier.FormatDebugReport(rep))
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), notifier.FormatReport(rep))
	}
	return nil
}
