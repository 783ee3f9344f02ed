// Package report runs one batch pass over a watch-list and assembles the ranked report.
package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"TrendSentinel/internal/collector"
	"TrendSentinel/internal/intraday"
	"TrendSentinel/internal/logger"
	"TrendSentinel/internal/metrics"
	"TrendSentinel/internal/model"
	"TrendSentinel/internal/scorer"
	"TrendSentinel/internal/trend"
)

// Comments attached by the orchestrator itself.
const (
	CommentScoringCrashed = "处理时发生未知错误。"
	CommentNotInSnapshot  = "实时行情缺失"
)

// Options holds the pauses between sequential upstream calls.
type Options struct {
	HistoryPause Pacer
	ScorePause   Pacer
	DebugPause   Pacer
}

// DefaultOptions returns the standard pacing.
func DefaultOptions() Options {
	return Options{
		HistoryPause: Pacer{Min: time.Second, Max: 2 * time.Second},
		ScorePause:   Pacer{Min: time.Second, Max: 2500 * time.Millisecond},
		DebugPause:   Pacer{Min: 500 * time.Millisecond, Max: time.Second},
	}
}

// Orchestrator produces reports for one pool.
type Orchestrator struct {
	provider collector.Provider
	pool     []model.Instrument
	scorer   scorer.Scorer
	intraday *intraday.Generator
	metrics  *metrics.Registry
	opts     Options
	now      func() time.Time
}

// New creates an orchestrator. gen is kept for the orchestrator's lifetime so
// its turnover history accumulates across passes; sc and m may be nil.
func New(provider collector.Provider, pool []model.Instrument, sc scorer.Scorer, gen *intraday.Generator, m *metrics.Registry, opts Options) *Orchestrator {
	if sc == nil {
		sc = scorer.NoopScorer{}
	}
	if gen == nil {
		gen = intraday.NewGenerator(intraday.DefaultConfig())
	}
	return &Orchestrator{
		provider: provider,
		pool:     pool,
		scorer:   sc,
		intraday: gen,
		metrics:  m,
		opts:     opts,
		now:      time.Now,
	}
}

// Pool returns the pool kind served.
func (o *Orchestrator) Pool() model.PoolKind { return o.provider.Kind() }

type gathered struct {
	snap     *model.Snapshot
	snapErr  error
	trends   map[string]model.DailyTrend
	sweepErr error
}

// gather runs the realtime fetch and the daily sweep concurrently and joins both.
func (o *Orchestrator) gather(ctx context.Context, log zerolog.Logger) gathered {
	var g gathered
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		g.snap, g.snapErr = o.provider.FetchRealtimeSnapshot(ctx)
	}()
	go func() {
		defer wg.Done()
		g.trends, g.sweepErr = o.dailySweep(ctx, log)
	}()
	wg.Wait()
	return g
}

func (o *Orchestrator) dailySweep(ctx context.Context, log zerolog.Logger) (map[string]model.DailyTrend, error) {
	out := make(map[string]model.DailyTrend, len(o.pool))
	for i, inst := range o.pool {
		if i > 0 {
			if err := o.opts.HistoryPause.Wait(ctx); err != nil {
				return out, err
			}
		}
		out[inst.Code] = o.analyze(ctx, inst, log)
	}
	return out, nil
}

func (o *Orchestrator) analyze(ctx context.Context, inst model.Instrument, log zerolog.Logger) model.DailyTrend {
	table, err := o.provider.FetchDailyHistory(ctx, inst.Code)
	if err != nil {
		log.Warn().Str("code", inst.Code).Err(err).Msg("daily history unavailable")
		table = nil
	}
	res := trend.AnalyzeTable(inst, table)
	if err != nil {
		res.Err = errors.Join(res.Err, err)
	}
	o.metrics.ObserveAnalysis(string(res.Status))
	log.Debug().Str("code", inst.Code).Str("status", string(res.Status)).Int("signals", len(res.Signals)).Msg("daily trend")
	return res
}

func (o *Orchestrator) newReport(debug bool) (*model.Report, zerolog.Logger) {
	id := uuid.NewString()
	rep := &model.Report{
		RunID:       id,
		Pool:        o.Pool(),
		GeneratedAt: o.now(),
		Debug:       debug,
	}
	return rep, logger.With("run_id", id)
}

func failed(rep *model.Report) *model.Report {
	rep.Failed = true
	rep.Entries = []model.ReportEntry{model.FetchFailureEntry()}
	return rep
}

// Generate runs a full scored pass. Every watch-list instrument appears once,
// ranked by score descending with ties in watch-list order. A failed or empty
// realtime fetch yields a single sentinel entry and no scorer calls.
func (o *Orchestrator) Generate(ctx context.Context) (*model.Report, error) {
	rep, log := o.newReport(false)
	start := time.Now()
	defer func() { o.metrics.ObserveReport(string(rep.Pool), "full", time.Since(start)) }()
	log.Info().Str("pool", string(rep.Pool)).Int("instruments", len(o.pool)).Msg("report pass started")

	g := o.gather(ctx, log)
	if g.sweepErr != nil {
		return nil, g.sweepErr
	}
	if g.snapErr != nil || g.snap.Empty() {
		log.Error().Err(g.snapErr).Msg("realtime snapshot unavailable")
		return failed(rep), nil
	}

	signals := indexSignals(o.intraday.Generate(o.pool, g.snap))
	scored := 0
	for _, inst := range o.pool {
		sig, ok := signals[inst.Code]
		if !ok {
			rep.Entries = append(rep.Entries, missingEntry(inst, g.trends[inst.Code]))
			continue
		}
		if scored > 0 {
			if err := o.opts.ScorePause.Wait(ctx); err != nil {
				return nil, err
			}
		}
		scored++
		log.Info().Str("code", inst.Code).Msgf("scoring %s (%d/%d)", inst.Name, scored, len(signals))
		rep.Entries = append(rep.Entries, o.score(ctx, inst, sig, g.trends, log))
	}

	Rank(rep.Entries)
	log.Info().Int("entries", len(rep.Entries)).Msg("report pass finished")
	return rep, nil
}

func (o *Orchestrator) score(ctx context.Context, inst model.Instrument, sig model.IntradaySignal, trends map[string]model.DailyTrend, log zerolog.Logger) model.ReportEntry {
	daily, ok := trends[inst.Code]
	if !ok {
		daily = model.DailyTrend{Instrument: inst, Status: model.StatusUnknown}
	}
	entry := baseEntry(sig, daily)

	res, err := o.safeScore(ctx, scorer.Request{
		Instrument:   inst,
		Intraday:     sig,
		DailyStatus:  daily.Status,
		DailySignals: daily.Signals,
		Indicators:   trend.Indicators(daily.Frame),
	})
	o.metrics.ObserveScorer(err)
	if err != nil {
		log.Error().Str("code", inst.Code).Err(err).Msg("scoring failed")
		entry.Comment = res.Comment
		if entry.Comment == "" {
			entry.Comment = CommentScoringCrashed
		}
		return entry
	}
	if res.Score != nil {
		entry.Score = *res.Score
		entry.Scored = true
	}
	entry.Comment = res.Comment
	return entry
}

func (o *Orchestrator) safeScore(ctx context.Context, req scorer.Request) (res scorer.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = scorer.Result{}
			err = fmt.Errorf("scorer panic: %v: %w", r, model.ErrUnexpectedFailure)
		}
	}()
	return o.scorer.Score(ctx, req)
}

// GenerateDebug runs the pass without the scorer and attaches raw indicator
// values to every entry. Entries keep watch-list order.
func (o *Orchestrator) GenerateDebug(ctx context.Context) (*model.Report, error) {
	rep, log := o.newReport(true)
	start := time.Now()
	defer func() { o.metrics.ObserveReport(string(rep.Pool), "debug", time.Since(start)) }()
	log.Info().Str("pool", string(rep.Pool)).Msg("debug pass started")

	g := o.gather(ctx, log)
	if g.sweepErr != nil {
		return nil, g.sweepErr
	}
	if g.snapErr != nil || g.snap.Empty() {
		log.Error().Err(g.snapErr).Msg("realtime snapshot unavailable")
		return failed(rep), nil
	}

	signals := indexSignals(o.intraday.Generate(o.pool, g.snap))
	for i, inst := range o.pool {
		if i > 0 {
			if err := o.opts.DebugPause.Wait(ctx); err != nil {
				return nil, err
			}
		}
		daily, ok := g.trends[inst.Code]
		if !ok {
			daily = model.DailyTrend{Instrument: inst, Status: model.StatusUnknown}
		}
		var entry model.ReportEntry
		if sig, ok := signals[inst.Code]; ok {
			entry = baseEntry(sig, daily)
		} else {
			entry = missingEntry(inst, daily)
		}
		entry.Indicators = trend.Indicators(daily.Frame)
		rep.Entries = append(rep.Entries, entry)
	}
	return rep, nil
}

// ScanIntraday fetches the snapshot and derives intraday signals only. Each
// call feeds the generator's rolling turnover history.
func (o *Orchestrator) ScanIntraday(ctx context.Context) ([]model.IntradaySignal, error) {
	snap, err := o.provider.FetchRealtimeSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("realtime snapshot: %w", err)
	}
	if snap.Empty() {
		return nil, fmt.Errorf("realtime snapshot: %w", model.ErrDataUnavailable)
	}
	signals := o.intraday.Generate(o.pool, snap)
	for _, s := range signals {
		o.metrics.ObserveTags(s.Tags)
	}
	return signals, nil
}

// AnalyzeOne runs the daily trend analysis for a single code. Codes outside
// the watch-list are analyzed with an empty name.
func (o *Orchestrator) AnalyzeOne(ctx context.Context, code string) model.DailyTrend {
	inst := model.Instrument{Code: code}
	for _, p := range o.pool {
		if p.Code == code {
			inst = p
			break
		}
	}
	return o.analyze(ctx, inst, logger.With("code", code))
}

func indexSignals(signals []model.IntradaySignal) map[string]model.IntradaySignal {
	out := make(map[string]model.IntradaySignal, len(signals))
	for _, s := range signals {
		out[s.Code] = s
	}
	return out
}

func baseEntry(sig model.IntradaySignal, daily model.DailyTrend) model.ReportEntry {
	return model.ReportEntry{
		Code:         sig.Code,
		Name:         sig.Name,
		Price:        sig.Price,
		ChangePct:    sig.ChangePct,
		InSnapshot:   true,
		IntradayTags: sig.Tags,
		DailyStatus:  daily.Status,
		DailySignals: daily.Signals,
	}
}

func missingEntry(inst model.Instrument, daily model.DailyTrend) model.ReportEntry {
	status := daily.Status
	if status == "" {
		status = model.StatusUnknown
	}
	return model.ReportEntry{
		Code:         inst.Code,
		Name:         inst.Name,
		DailyStatus:  status,
		DailySignals: daily.Signals,
		Comment:      CommentNotInSnapshot,
	}
}

// Rank sorts entries by score descending; equal scores keep their order.
func Rank(entries []model.ReportEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
}
