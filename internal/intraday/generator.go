// Package intraday derives momentary signal tags from realtime snapshots.
package intraday

import (
	"sync"
	"time"

	"TrendSentinel/internal/calculator"
	"TrendSentinel/internal/model"
)

// Tags emitted by the generator.
const (
	TagSharpGain   = "日内大幅上涨"
	TagSharpLoss   = "日内大幅下跌"
	TagVolumeSpike = "成交额异常放大"
	TagStable      = "盘中信号平稳"
)

// Config tunes the generator thresholds.
type Config struct {
	SharpMovePct    float64
	SpikeMultiplier float64
	Window          int
	MinSamples      int
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{SharpMovePct: 2.5, SpikeMultiplier: 3, Window: 20, MinSamples: 5}
}

type history struct {
	ring   *TurnoverRing
	lastAt time.Time
}

// Generator turns snapshot rows into IntradaySignals and keeps a rolling
// turnover history per instrument across calls. Construct once and reuse.
type Generator struct {
	cfg Config

	mu      sync.Mutex
	history map[string]*history
}

// NewGenerator creates a generator with cfg.
func NewGenerator(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.SharpMovePct <= 0 {
		cfg.SharpMovePct = def.SharpMovePct
	}
	if cfg.SpikeMultiplier <= 0 {
		cfg.SpikeMultiplier = def.SpikeMultiplier
	}
	if cfg.Window <= 1 {
		cfg.Window = def.Window
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = def.MinSamples
	}
	return &Generator{cfg: cfg, history: make(map[string]*history)}
}

// Generate returns one signal per watch-list instrument present in snap, in
// watch-list order. Instruments absent from snap are skipped.
func (g *Generator) Generate(watch []model.Instrument, snap *model.Snapshot) []model.IntradaySignal {
	if snap.Empty() {
		return nil
	}
	out := make([]model.IntradaySignal, 0, len(watch))
	for _, inst := range watch {
		q, ok := snap.Lookup(inst.Code)
		if !ok {
			continue
		}
		out = append(out, g.Signal(inst, q, snap.FetchedAt))
	}
	return out
}

// Signal derives tags for a single quote observed at the given time.
func (g *Generator) Signal(inst model.Instrument, q model.Quote, at time.Time) model.IntradaySignal {
	var tags []string
	if q.ChangePct > g.cfg.SharpMovePct {
		tags = append(tags, TagSharpGain)
	}
	if q.ChangePct < -g.cfg.SharpMovePct {
		tags = append(tags, TagSharpLoss)
	}
	if g.observe(inst.Code, q.Amount, at) {
		tags = append(tags, TagVolumeSpike)
	}
	if len(tags) == 0 {
		tags = []string{TagStable}
	}

	name := inst.Name
	if name == "" {
		name = q.Name
	}
	return model.IntradaySignal{
		Code:      inst.Code,
		Name:      name,
		Price:     q.Price,
		ChangePct: q.ChangePct,
		Tags:      tags,
	}
}

// observe records amount for code and reports whether the latest turnover
// increment is a spike. A sample is only recorded when at is newer than the
// previous one; a drop in cumulative turnover starts a new session.
func (g *Generator) observe(code string, amount float64, at time.Time) bool {
	if amount <= 0 {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	h, ok := g.history[code]
	if !ok {
		h = &history{ring: NewTurnoverRing(g.cfg.Window)}
		g.history[code] = h
	}
	if at.IsZero() || at.After(h.lastAt) {
		if last, ok := h.ring.Last(); ok && amount < last {
			h.ring.Reset()
		}
		h.ring.Push(amount)
		h.lastAt = at
	}

	if h.ring.Len() <= g.cfg.MinSamples {
		return false
	}
	inc := h.ring.Increments()
	mean, err := calculator.CalculateSMA(inc, len(inc))
	if err != nil || mean <= 0 {
		return false
	}
	return inc[len(inc)-1] > g.cfg.SpikeMultiplier*mean
}

// Samples returns how many turnover samples are held for code.
func (g *Generator) Samples(code string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if h, ok := g.history[code]; ok {
		return h.ring.Len()
	}
	return 0
}
