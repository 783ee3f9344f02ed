package report

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendSentinel/internal/collector"
	"TrendSentinel/internal/intraday"
	"TrendSentinel/internal/model"
	"TrendSentinel/internal/scorer"
	"TrendSentinel/internal/trend"
)

var pool = []model.Instrument{
	{Code: "510050", Name: "上证50ETF"},
	{Code: "510300", Name: "沪深300ETF"},
	{Code: "510500", Name: "中证500ETF"},
	{Code: "159919", Name: "创业板50ETF"},
	{Code: "588000", Name: "科创50ETF"},
}

type fakeScorer struct {
	mu     sync.Mutex
	scores map[string]float64
	fail   map[string]bool
	calls  []string
}

func (f *fakeScorer) Score(_ context.Context, req scorer.Request) (scorer.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req.Instrument.Code)
	if f.fail[req.Instrument.Code] {
		return scorer.Result{}, errors.New("upstream timeout")
	}
	v, ok := f.scores[req.Instrument.Code]
	if !ok {
		return scorer.Result{Comment: "no score"}, nil
	}
	return scorer.Result{Score: &v, Comment: "ok " + req.Instrument.Code}, nil
}

type panicScorer struct{}

func (panicScorer) Score(context.Context, scorer.Request) (scorer.Result, error) {
	panic("nil map")
}

func newOrchestrator(p collector.Provider, sc scorer.Scorer) *Orchestrator {
	return New(p, pool, sc, intraday.NewGenerator(intraday.DefaultConfig()), nil, Options{})
}

func mockProvider() *collector.MockProvider {
	return &collector.MockProvider{
		Snapshot: collector.MockSnapshot(model.PoolETF, pool, 2.0, 0.5),
		Bars:     90,
	}
}

func codes(entries []model.ReportEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Code
	}
	return out
}

func TestGenerate_ScorerFailureIsIsolated(t *testing.T) {
	sc := &fakeScorer{
		scores: map[string]float64{"510050": 40, "510500": 90, "159919": 65, "588000": 70},
		fail:   map[string]bool{"510300": true},
	}
	rep, err := newOrchestrator(mockProvider(), sc).Generate(context.Background())
	require.NoError(t, err)

	require.Len(t, rep.Entries, 5)
	assert.False(t, rep.Failed)
	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, []string{"510500", "588000", "159919", "510050", "510300"}, codes(rep.Entries))

	failedEntry := rep.Entries[4]
	assert.Equal(t, 0.0, failedEntry.Score)
	assert.False(t, failedEntry.Scored)
	assert.Equal(t, CommentScoringCrashed, failedEntry.Comment)

	assert.Equal(t, "ok 510500", rep.Entries[0].Comment)
	assert.Len(t, sc.calls, 5)
}

func TestGenerate_RealtimeFailureYieldsSentinel(t *testing.T) {
	p := mockProvider()
	p.SnapshotErr = errors.New("connection refused")
	sc := &fakeScorer{}

	rep, err := newOrchestrator(p, sc).Generate(context.Background())
	require.NoError(t, err)

	require.Len(t, rep.Entries, 1)
	assert.True(t, rep.Failed)
	assert.Equal(t, "错误", rep.Entries[0].Name)
	assert.Equal(t, model.FetchFailedComment, rep.Entries[0].Comment)
	assert.Empty(t, sc.calls)
}

func TestGenerate_EmptySnapshotYieldsSentinel(t *testing.T) {
	p := mockProvider()
	p.Snapshot = &model.Snapshot{}
	sc := &fakeScorer{}

	rep, err := newOrchestrator(p, sc).Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Entries, 1)
	assert.Empty(t, sc.calls)
}

func TestGenerate_InstrumentMissingFromSnapshot(t *testing.T) {
	p := mockProvider()
	p.Snapshot = collector.MockSnapshot(model.PoolETF, pool[:4], 2.0, 0.5)
	sc := &fakeScorer{scores: map[string]float64{"510050": 10, "510300": 20, "510500": 30, "159919": 40}}

	rep, err := newOrchestrator(p, sc).Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Entries, 5)

	last := rep.Entries[4]
	assert.Equal(t, "588000", last.Code)
	assert.False(t, last.InSnapshot)
	assert.Equal(t, CommentNotInSnapshot, last.Comment)
	assert.NotEqual(t, model.StatusUnknown, last.DailyStatus, "daily trend still reported")
	assert.NotContains(t, sc.calls, "588000")
}

func TestGenerate_TiesKeepWatchListOrder(t *testing.T) {
	sc := &fakeScorer{scores: map[string]float64{"510500": 80}}
	rep, err := newOrchestrator(mockProvider(), sc).Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"510500", "510050", "510300", "159919", "588000"}, codes(rep.Entries))
}

func TestGenerate_HistoryFailureDegradesOneInstrument(t *testing.T) {
	p := mockProvider()
	p.HistoryErr = map[string]error{"510300": errors.New("giving up")}
	p.Histories = map[string]*model.RawTable{"510500": collector.GenerateMockTable(2, 30)}
	sc := &fakeScorer{scores: map[string]float64{"510050": 50, "510300": 50, "510500": 50, "159919": 50, "588000": 50}}

	rep, err := newOrchestrator(p, sc).Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Entries, 5)

	byCode := map[string]model.ReportEntry{}
	for _, e := range rep.Entries {
		byCode[e.Code] = e
	}
	assert.Equal(t, model.StatusInsufficientData, byCode["510300"].DailyStatus)
	assert.Equal(t, []string{trend.SignalNoHistory}, byCode["510300"].DailySignals)
	assert.Equal(t, model.StatusInsufficientData, byCode["510500"].DailyStatus)
	assert.Equal(t, []string{trend.SignalFewerThan60}, byCode["510500"].DailySignals)
	assert.False(t, byCode["510050"].DailyStatus.Terminal())
	assert.Len(t, p.HistoryCalls(), 5)
}

func TestGenerate_ScorerPanicIsContained(t *testing.T) {
	rep, err := newOrchestrator(mockProvider(), panicScorer{}).Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Entries, 5)
	for _, e := range rep.Entries {
		assert.Equal(t, CommentScoringCrashed, e.Comment)
		assert.Equal(t, 0.0, e.Score)
	}
}

func TestGenerate_NoScorerConfigured(t *testing.T) {
	o := New(mockProvider(), pool, nil, nil, nil, Options{})
	rep, err := o.Generate(context.Background())
	require.NoError(t, err)
	for _, e := range rep.Entries {
		assert.Equal(t, scorer.CommentNotEnabled, e.Comment)
		assert.False(t, e.Scored)
	}
}

func TestGenerateDebug(t *testing.T) {
	p := mockProvider()
	sc := &fakeScorer{}
	rep, err := newOrchestrator(p, sc).GenerateDebug(context.Background())
	require.NoError(t, err)

	assert.True(t, rep.Debug)
	assert.Equal(t, codes(rep.Entries), []string{"510050", "510300", "510500", "159919", "588000"})
	assert.Empty(t, sc.calls)
	for _, e := range rep.Entries {
		assert.Contains(t, e.Indicators, model.ColSMA20)
		assert.NotEmpty(t, e.DailySignals)
	}
}

func TestScanIntraday_FeedsHistory(t *testing.T) {
	p := mockProvider()
	gen := intraday.NewGenerator(intraday.DefaultConfig())
	o := New(p, pool, nil, gen, nil, Options{})

	base := time.Date(2024, 5, 6, 9, 30, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		snap := collector.MockSnapshot(model.PoolETF, pool, 2.0, 3.0)
		snap.FetchedAt = base.Add(time.Duration(i) * time.Minute)
		for j := range snap.Quotes {
			snap.Quotes[j].Amount = float64(i+1) * 1e6
		}
		p.Snapshot = snap
		signals, err := o.ScanIntraday(context.Background())
		require.NoError(t, err)
		require.Len(t, signals, 5)
		assert.Contains(t, signals[0].Tags, intraday.TagSharpGain)
	}
	assert.Equal(t, 3, gen.Samples("510050"))

	p.SnapshotErr = errors.New("down")
	_, err := o.ScanIntraday(context.Background())
	assert.Error(t, err)
}

func TestAnalyzeOne(t *testing.T) {
	o := newOrchestrator(mockProvider(), nil)
	res := o.AnalyzeOne(context.Background(), "510300")
	assert.Equal(t, "沪深300ETF", res.Name)
	require.NotNil(t, res.Frame)

	res = o.AnalyzeOne(context.Background(), "600000")
	assert.Equal(t, "600000", res.Code)
	assert.Empty(t, res.Name)
}

func TestPacer(t *testing.T) {
	p := Pacer{Min: 10 * time.Millisecond, Max: 20 * time.Millisecond}
	for i := 0; i < 50; i++ {
		d := p.next()
		assert.GreaterOrEqual(t, d, p.Min)
		assert.LessOrEqual(t, d, p.Max)
	}
	assert.NoError(t, Pacer{}.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Pacer{Min: time.Hour, Max: 2 * time.Hour}.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerate_CancelledDuringPause(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := New(mockProvider(), pool, &fakeScorer{}, nil, nil, Options{HistoryPause: Pacer{Min: time.Hour, Max: time.Hour}})
	_, err := o.Generate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRank(t *testing.T) {
	entries := []model.ReportEntry{{Code: "a", Score: 1}, {Code: "b", Score: 3}, {Code: "c", Score: 1}, {Code: "d"}}
	Rank(entries)
	assert.Equal(t, []string{"b", "a", "c", "d"}, codes(entries))
}
