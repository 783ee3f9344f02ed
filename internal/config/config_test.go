package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendSentinel/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "eastmoney", cfg.DataSource.HistorySource)
	assert.Equal(t, 3, cfg.DataSource.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.DataSource.RetryDelay)
	assert.Equal(t, 60*time.Second, cfg.Cache.SnapshotTTL)
	assert.Equal(t, 20, cfg.Intraday.Window)
	assert.Equal(t, 2.5, cfg.Intraday.SharpMovePct)
	assert.Equal(t, PauseRange{Min: time.Second, Max: 2500 * time.Millisecond}, cfg.Pacing.Score)
	assert.Len(t, cfg.Pools.ETF, 15)
	assert.Len(t, cfg.Pools.Stock, 4)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
telegram:
  bot_token: from-file
cache:
  snapshot_ttl: 30s
pools:
  etf:
    - code: "510300"
      name: 沪深300ETF
`)
	t.Setenv("TELEGRAM_TOKEN", "from-env")
	t.Setenv("CACHE_EXPIRE_SECONDS", "90")
	t.Setenv("LLM_MODEL_NAME", "gpt-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Telegram.BotToken)
	assert.Equal(t, 90*time.Second, cfg.Cache.SnapshotTTL)
	assert.Equal(t, "gpt-test", cfg.LLM.Model)
	assert.Equal(t, []model.Instrument{{Code: "510300", Name: "沪深300ETF"}}, cfg.Pool(model.PoolETF))
	assert.Len(t, cfg.Pool(model.PoolStock), 4)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "telegram: [unclosed"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		cfg.applyDefaults()
		return cfg
	}

	cfg := base()
	cfg.DataSource.HistorySource = "bloomberg"
	assert.ErrorContains(t, cfg.Validate(), "history_source")

	cfg = base()
	cfg.Pools.ETF = []model.Instrument{{Code: "510050"}, {Code: "510050"}}
	assert.ErrorContains(t, cfg.Validate(), "duplicate")

	cfg = base()
	cfg.Pacing.History = PauseRange{Min: 2 * time.Second, Max: time.Second}
	assert.ErrorContains(t, cfg.Validate(), "pacing.history")

	cfg = base()
	cfg.LLM.Fallback = "coinflip"
	assert.ErrorContains(t, cfg.Validate(), "llm.fallback")
	cfg.LLM.Fallback = "rules"
	assert.NoError(t, cfg.Validate())

	cfg = base()
	assert.ErrorContains(t, cfg.ValidateBot(), "bot_token")
	cfg.Telegram.BotToken = "t"
	cfg.Telegram.ChatID = "1"
	assert.NoError(t, cfg.ValidateBot())
}

func TestLLMEnabled(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.LLMEnabled())
	cfg.LLM.BaseURL = "https://api.example.com/v1"
	cfg.LLM.APIKey = "k"
	assert.True(t, cfg.LLMEnabled())
}
