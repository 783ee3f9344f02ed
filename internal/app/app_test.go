package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendSentinel/internal/collector"
	"TrendSentinel/internal/config"
	"TrendSentinel/internal/metrics"
	"TrendSentinel/internal/model"
	"TrendSentinel/internal/scorer"
	"TrendSentinel/internal/strategy"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("does-not-exist.yaml")
	require.NoError(t, err)
	cfg.LLM.BaseURL = ""
	cfg.LLM.APIKey = ""
	cfg.LLM.Fallback = ""
	cfg.Cache.RedisAddr = ""
	return cfg
}

func TestBuild_Mock(t *testing.T) {
	cfg := testConfig(t)
	e, err := Build(context.Background(), cfg, metrics.New(), Options{Mock: true})
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, model.PoolETF, e.For(model.PoolETF).Pool())
	assert.Equal(t, model.PoolStock, e.For(model.PoolStock).Pool())

	rep, err := e.For(model.PoolStock).Generate(context.Background())
	require.NoError(t, err)
	assert.False(t, rep.Failed)
	assert.Len(t, rep.Entries, len(cfg.Pools.Stock))
	for _, entry := range rep.Entries {
		assert.False(t, entry.Scored)
		assert.Equal(t, scorer.CommentNotEnabled, entry.Comment)
	}
}

func TestBuild_LiveProvidersAreCached(t *testing.T) {
	cfg := testConfig(t)
	cfg.DataSource.HistorySource = "yahoo"
	e, err := Build(context.Background(), cfg, nil, Options{})
	require.NoError(t, err)
	defer e.Close()

	require.NotNil(t, e.ETF)
	require.NotNil(t, e.Stock)
	assert.IsType(t, &collector.StockProvider{}, buildProvider(cfg, model.PoolStock, nil))
}

func TestBuildScorer(t *testing.T) {
	cfg := testConfig(t)
	assert.IsType(t, scorer.NoopScorer{}, buildScorer(cfg, Options{}))

	cfg.LLM.Fallback = "rules"
	assert.IsType(t, &strategy.RuleScorer{}, buildScorer(cfg, Options{}))

	cfg.LLM.BaseURL = "http://localhost:1"
	cfg.LLM.APIKey = "key"
	assert.IsType(t, &scorer.LLMScorer{}, buildScorer(cfg, Options{}))
	assert.IsType(t, scorer.NoopScorer{}, buildScorer(cfg, Options{NoScorer: true}))
}
