// Package app wires configuration into ready-to-run report engines.
package app

import (
	"context"

	"TrendSentinel/internal/collector"
	"TrendSentinel/internal/config"
	"TrendSentinel/internal/intraday"
	"TrendSentinel/internal/logger"
	"TrendSentinel/internal/metrics"
	"TrendSentinel/internal/model"
	"TrendSentinel/internal/report"
	"TrendSentinel/internal/scorer"
	"TrendSentinel/internal/strategy"
)

// Engines holds one orchestrator per pool plus anything that must be closed.
type Engines struct {
	ETF     *report.Orchestrator
	Stock   *report.Orchestrator
	closers []func() error
}

// For returns the orchestrator for kind.
func (e *Engines) For(kind model.PoolKind) *report.Orchestrator {
	if kind == model.PoolStock {
		return e.Stock
	}
	return e.ETF
}

// Close releases shared connections.
func (e *Engines) Close() {
	for _, c := range e.closers {
		if err := c(); err != nil {
			logger.Warn("close: %v", err)
		}
	}
}

// Options selects optional wiring.
type Options struct {
	// Mock replaces the upstream sources with generated data.
	Mock bool
	// NoScorer skips LLM scoring even when it is configured.
	NoScorer bool
}

// Build constructs the engines described by cfg.
func Build(ctx context.Context, cfg *config.Config, m *metrics.Registry, opts Options) (*Engines, error) {
	e := &Engines{}

	var store collector.SnapshotStore
	if cfg.Cache.RedisAddr != "" && !opts.Mock {
		client, err := collector.DialRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			logger.Warn("redis unavailable, snapshot cache is in-process only: %v", err)
		} else {
			store = collector.NewRedisSnapshotStore(client)
			e.closers = append(e.closers, client.Close)
			logger.Info("snapshot cache shared via redis at %s", cfg.Cache.RedisAddr)
		}
	}

	sc := buildScorer(cfg, opts)
	ropts := report.Options{
		HistoryPause: pacer(cfg.Pacing.History),
		ScorePause:   pacer(cfg.Pacing.Score),
		DebugPause:   pacer(cfg.Pacing.Debug),
	}
	if opts.Mock {
		ropts = report.Options{}
	}
	icfg := intraday.Config{
		SharpMovePct:    cfg.Intraday.SharpMovePct,
		SpikeMultiplier: cfg.Intraday.SpikeMultiplier,
		Window:          cfg.Intraday.Window,
		MinSamples:      cfg.Intraday.MinSamples,
	}

	for _, kind := range []model.PoolKind{model.PoolETF, model.PoolStock} {
		pool := cfg.Pool(kind)
		var p collector.Provider
		if opts.Mock {
			p = &collector.MockProvider{
				PoolKind:  kind,
				Snapshot:  collector.MockSnapshot(kind, pool, 10, 0.8),
				Bars:      120,
				BasePrice: 10,
			}
		} else {
			p = collector.NewCachedProvider(buildProvider(cfg, kind, m), cfg.Cache.SnapshotTTL, store, m)
		}
		o := report.New(p, pool, sc, intraday.NewGenerator(icfg), m, ropts)
		if kind == model.PoolStock {
			e.Stock = o
		} else {
			e.ETF = o
		}
		logger.Info("%s pool: %d instruments via %s", kind, len(pool), p.Name())
	}
	return e, nil
}

func buildProvider(cfg *config.Config, kind model.PoolKind, m *metrics.Registry) collector.Provider {
	em := collector.NewEastMoneyClient(cfg.Proxy, cfg.DataSource.Timeout, cfg.DataSource.RequestsPerSecond)
	em.Metrics = m

	var history collector.HistorySource = em
	if cfg.DataSource.HistorySource == "yahoo" {
		y := collector.NewYahooClient(cfg.Proxy, cfg.DataSource.Timeout)
		y.Metrics = m
		history = y
	}
	retry := collector.RetryPolicy{Attempts: cfg.DataSource.MaxRetries, Delay: cfg.DataSource.RetryDelay}
	return collector.NewProvider(kind, em, history, retry)
}

func buildScorer(cfg *config.Config, opts Options) scorer.Scorer {
	if opts.NoScorer {
		return scorer.NoopScorer{}
	}
	if !cfg.LLMEnabled() {
		if cfg.LLM.Fallback == "rules" {
			logger.Info("LLM not configured, scoring with local rules")
			return strategy.NewRuleScorer()
		}
		logger.Warn("LLM scorer disabled, reports will carry no scores")
		return scorer.NoopScorer{}
	}
	return scorer.NewLLMScorer(scorer.LLMConfig{
		BaseURL:  cfg.LLM.BaseURL,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		Timeout:  cfg.LLM.Timeout,
		ProxyURL: cfg.Proxy,
	})
}

func pacer(r config.PauseRange) report.Pacer {
	return report.Pacer{Min: r.Min, Max: r.Max}
}
