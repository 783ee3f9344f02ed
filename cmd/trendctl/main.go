package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"TrendSentinel/internal/config"
	"TrendSentinel/internal/logger"
)

var (
	configPath string
	useMock    bool
	outFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "trendctl",
	Short: "Run TrendSentinel reports from the command line",
	Long: `trendctl runs the same trend and signal pipeline as the bot and prints
the result to stdout instead of sending it to Telegram.

Examples:
  trendctl report --pool etf
  trendctl report --pool stock --debug --format json
  trendctl analyze 510300`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&useMock, "mock", false, "Use generated data instead of live sources")
	rootCmd.PersistentFlags().StringVar(&outFormat, "format", "text", "Output format (text|json)")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	if outFormat != "text" && outFormat != "json" {
		return nil, fmt.Errorf("unknown format %q", outFormat)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
