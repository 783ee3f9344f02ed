package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"TrendSentinel/internal/app"
	"TrendSentinel/internal/config"
	"TrendSentinel/internal/logger"
	"TrendSentinel/internal/metrics"
	"TrendSentinel/internal/model"
	"TrendSentinel/internal/notifier"
	"TrendSentinel/internal/scheduler"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("load config: %v", err)
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("TrendSentinel starting...")
	if err := cfg.ValidateBot(); err != nil {
		logger.Fatal("config validation: %v", err)
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := metrics.New()
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, reg); err != nil {
				logger.Error("metrics server: %v", err)
			}
		}()
	}

	engines, err := app.Build(ctx, cfg, reg, app.Options{})
	if err != nil {
		logger.Fatal("build engines: %v", err)
	}
	defer engines.Close()

	// Init Telegram notifier
	tn, err := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	if err != nil {
		logger.Fatal("init telegram: %v", err)
	}

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, tn, engines.ETF, engines.Stock)
	if err := sched.RegisterAll(cfg.Schedule.ETFReportCron, cfg.Schedule.StockReportCron, cfg.Schedule.IntradayCron); err != nil {
		logger.Fatal("register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	go tn.StartPolling(ctx, sched.HandleCommand)
	logger.Info("telegram polling started")

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		logger.Info("RUN_ON_START enabled, executing ETF report now")
		go sched.RunReportNow(model.PoolETF)
	}

	logger.Info("TrendSentinel is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutdown signal received, stopping...")
	cancel()
}
