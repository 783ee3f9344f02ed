package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"TrendSentinel/internal/model"
)

// PauseRange is a randomized pause window between sequential upstream calls.
type PauseRange struct {
	Min time.Duration `yaml:"min"`
	Max time.Duration `yaml:"max"`
}

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		HistorySource     string        `yaml:"history_source"`
		Timeout           time.Duration `yaml:"timeout"`
		MaxRetries        int           `yaml:"max_retries"`
		RetryDelay        time.Duration `yaml:"retry_delay"`
		RequestsPerSecond float64       `yaml:"requests_per_second"`
	} `yaml:"data_source"`
	Cache struct {
		SnapshotTTL   time.Duration `yaml:"snapshot_ttl"`
		RedisAddr     string        `yaml:"redis_addr"`
		RedisPassword string        `yaml:"redis_password"`
		RedisDB       int           `yaml:"redis_db"`
	} `yaml:"cache"`
	LLM struct {
		BaseURL string        `yaml:"base_url"`
		APIKey  string        `yaml:"api_key"`
		Model   string        `yaml:"model"`
		Timeout time.Duration `yaml:"timeout"`
		// Fallback is "rules" to score locally when no endpoint is configured.
		Fallback string `yaml:"fallback"`
	} `yaml:"llm"`
	Pacing struct {
		History PauseRange `yaml:"history"`
		Score   PauseRange `yaml:"score"`
		Debug   PauseRange `yaml:"debug"`
	} `yaml:"pacing"`
	Intraday struct {
		Window          int     `yaml:"window"`
		MinSamples      int     `yaml:"min_samples"`
		SpikeMultiplier float64 `yaml:"spike_multiplier"`
		SharpMovePct    float64 `yaml:"sharp_move_pct"`
	} `yaml:"intraday"`
	Pools struct {
		ETF   []model.Instrument `yaml:"etf"`
		Stock []model.Instrument `yaml:"stock"`
	} `yaml:"pools"`
	Schedule struct {
		ETFReportCron   string `yaml:"etf_report_cron"`
		StockReportCron string `yaml:"stock_report_cron"`
		IntradayCron    string `yaml:"intraday_cron"`
	} `yaml:"schedule"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Proxy string `yaml:"proxy"`
}

// DefaultETFPool is the ETF watch-list used when none is configured.
func DefaultETFPool() []model.Instrument {
	return []model.Instrument{
		{Code: "510050", Name: "上证50ETF"},
		{Code: "510300", Name: "沪深300ETF"},
		{Code: "510500", Name: "中证500ETF"},
		{Code: "159919", Name: "创业板50ETF"},
		{Code: "588000", Name: "科创50ETF"},
		{Code: "512000", Name: "券商ETF"},
		{Code: "159995", Name: "芯片ETF"},
		{Code: "512690", Name: "酒ETF"},
		{Code: "512010", Name: "医药ETF"},
		{Code: "513050", Name: "中概互联ETF"},
		{Code: "512800", Name: "银行ETF"},
		{Code: "159992", Name: "创新药ETF"},
		{Code: "515030", Name: "新能源车ETF"},
		{Code: "159825", Name: "农业ETF"},
		{Code: "518880", Name: "黄金ETF"},
	}
}

// DefaultStockPool is the stock watch-list used when none is configured.
func DefaultStockPool() []model.Instrument {
	return []model.Instrument{
		{Code: "603298", Name: "杭叉集团"},
		{Code: "930901", Name: "动漫游戏指数"},
		{Code: "000819", Name: "有色金属"},
		{Code: "161129", Name: "原油LOF易方达"},
	}
}

// Load reads config from a YAML file, then applies .env and environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env never overrides variables already present in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("LLM_API_BASE"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_MODEL_NAME"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("LLM_FALLBACK"); v != "" {
		c.LLM.Fallback = v
	}
	if v := os.Getenv("CACHE_EXPIRE_SECONDS"); v != "" {
		if secs, err := cast.ToIntE(v); err == nil && secs > 0 {
			c.Cache.SnapshotTTL = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("HISTORY_SOURCE"); v != "" {
		c.DataSource.HistorySource = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
}

func (c *Config) applyDefaults() {
	if c.DataSource.HistorySource == "" {
		c.DataSource.HistorySource = "eastmoney"
	}
	if c.DataSource.Timeout == 0 {
		c.DataSource.Timeout = 15 * time.Second
	}
	if c.DataSource.MaxRetries == 0 {
		c.DataSource.MaxRetries = 3
	}
	if c.DataSource.RetryDelay == 0 {
		c.DataSource.RetryDelay = 2 * time.Second
	}
	if c.DataSource.RequestsPerSecond == 0 {
		c.DataSource.RequestsPerSecond = 2
	}
	if c.Cache.SnapshotTTL == 0 {
		c.Cache.SnapshotTTL = 60 * time.Second
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "sonar-pro"
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 60 * time.Second
	}
	defaultPause(&c.Pacing.History, time.Second, 2*time.Second)
	defaultPause(&c.Pacing.Score, time.Second, 2500*time.Millisecond)
	defaultPause(&c.Pacing.Debug, 500*time.Millisecond, time.Second)
	if c.Intraday.Window == 0 {
		c.Intraday.Window = 20
	}
	if c.Intraday.MinSamples == 0 {
		c.Intraday.MinSamples = 5
	}
	if c.Intraday.SpikeMultiplier == 0 {
		c.Intraday.SpikeMultiplier = 3
	}
	if c.Intraday.SharpMovePct == 0 {
		c.Intraday.SharpMovePct = 2.5
	}
	if len(c.Pools.ETF) == 0 {
		c.Pools.ETF = DefaultETFPool()
	}
	if len(c.Pools.Stock) == 0 {
		c.Pools.Stock = DefaultStockPool()
	}
	if c.Schedule.ETFReportCron == "" {
		c.Schedule.ETFReportCron = "0 40 14 * * 1-5"
	}
	if c.Schedule.StockReportCron == "" {
		c.Schedule.StockReportCron = "0 45 14 * * 1-5"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

func defaultPause(p *PauseRange, min, max time.Duration) {
	if p.Min == 0 && p.Max == 0 {
		p.Min, p.Max = min, max
	}
}

// Pool returns the watch-list for the given pool kind.
func (c *Config) Pool(kind model.PoolKind) []model.Instrument {
	if kind == model.PoolStock {
		return c.Pools.Stock
	}
	return c.Pools.ETF
}

// LLMEnabled reports whether the scorer has enough configuration to be used.
func (c *Config) LLMEnabled() bool {
	return c.LLM.BaseURL != "" && c.LLM.APIKey != ""
}

// Validate checks the fields every entry point needs.
func (c *Config) Validate() error {
	switch c.DataSource.HistorySource {
	case "eastmoney", "yahoo":
	default:
		return fmt.Errorf("data_source.history_source must be eastmoney or yahoo, got %q", c.DataSource.HistorySource)
	}
	switch c.LLM.Fallback {
	case "", "none", "rules":
	default:
		return fmt.Errorf("llm.fallback must be none or rules, got %q", c.LLM.Fallback)
	}
	if c.DataSource.MaxRetries < 1 {
		return fmt.Errorf("data_source.max_retries must be at least 1")
	}
	if c.Cache.SnapshotTTL < 0 {
		return fmt.Errorf("cache.snapshot_ttl must not be negative")
	}
	for name, p := range map[string]PauseRange{
		"history": c.Pacing.History,
		"score":   c.Pacing.Score,
		"debug":   c.Pacing.Debug,
	} {
		if p.Min < 0 || p.Max < p.Min {
			return fmt.Errorf("pacing.%s: invalid range %s..%s", name, p.Min, p.Max)
		}
	}
	if c.Intraday.Window <= c.Intraday.MinSamples {
		return fmt.Errorf("intraday.window must exceed intraday.min_samples")
	}
	if err := validatePool("pools.etf", c.Pools.ETF); err != nil {
		return err
	}
	return validatePool("pools.stock", c.Pools.Stock)
}

// ValidateBot additionally requires the Telegram credentials.
func (c *Config) ValidateBot() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	return nil
}

func validatePool(field string, pool []model.Instrument) error {
	seen := make(map[string]bool, len(pool))
	for i, inst := range pool {
		code := strings.TrimSpace(inst.Code)
		if code == "" {
			return fmt.Errorf("%s[%d]: code is required", field, i)
		}
		if seen[code] {
			return fmt.Errorf("%s: duplicate code %s", field, code)
		}
		seen[code] = true
	}
	return nil
}
