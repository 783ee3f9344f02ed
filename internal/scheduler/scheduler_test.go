package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendSentinel/internal/intraday"
	"TrendSentinel/internal/model"
)

type fakeEngine struct {
	kind      model.PoolKind
	report    *model.Report
	reportErr error
	signals   []model.IntradaySignal
	scanErr   error
	block     chan struct{}
	analyzed  []string
}

func (f *fakeEngine) Pool() model.PoolKind { return f.kind }

func (f *fakeEngine) Generate(context.Context) (*model.Report, error) {
	if f.block != nil {
		<-f.block
	}
	return f.report, f.reportErr
}

func (f *fakeEngine) GenerateDebug(context.Context) (*model.Report, error) {
	if f.reportErr != nil {
		return nil, f.reportErr
	}
	rep := *f.report
	rep.Debug = true
	return &rep, nil
}

func (f *fakeEngine) ScanIntraday(context.Context) ([]model.IntradaySignal, error) {
	return f.signals, f.scanErr
}

func (f *fakeEngine) AnalyzeOne(_ context.Context, code string) model.DailyTrend {
	f.analyzed = append(f.analyzed, code)
	return model.DailyTrend{Instrument: model.Instrument{Code: code}, Status: model.StatusUptrend}
}

type fakeSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	f.sent = append(f.sent, text)
	f.mu.Unlock()
	return nil
}

type replies struct {
	mu  sync.Mutex
	out []string
}

func (r *replies) reply(text string) {
	r.mu.Lock()
	r.out = append(r.out, text)
	r.mu.Unlock()
}

func (r *replies) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.out...)
}

func etfReport() *model.Report {
	return &model.Report{
		Pool: model.PoolETF,
		Entries: []model.ReportEntry{
			{Code: "510300", Name: "沪深300ETF", InSnapshot: true, DailyStatus: model.StatusUptrend, Score: 70, Scored: true, Comment: "稳健"},
		},
	}
}

func TestHandleCommand_Analyze(t *testing.T) {
	etf := &fakeEngine{kind: model.PoolETF, report: etfReport()}
	s := NewScheduler(context.Background(), &fakeSender{}, etf)
	r := &replies{}

	s.HandleCommand("/analyze", r.reply)

	out := r.all()
	require.Len(t, out, 2)
	assert.Equal(t, "好的，正在为您启动ETF分析引擎...", out[0])
	assert.Contains(t, out[1], "沪深300ETF (510300)")
}

func TestHandleCommand_AnalyzeFailure(t *testing.T) {
	etf := &fakeEngine{kind: model.PoolETF, reportErr: errors.New("boom")}
	s := NewScheduler(context.Background(), &fakeSender{}, etf)
	r := &replies{}

	s.HandleCommand("/analyze", r.reply)

	out := r.all()
	require.Len(t, out, 2)
	assert.Equal(t, "未能生成ETF AI分析报告，请稍后再试。", out[1])
}

func TestHandleCommand_PoolNotConfigured(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeSender{}, &fakeEngine{kind: model.PoolETF, report: etfReport()})
	r := &replies{}

	s.HandleCommand("/analyze_stocks", r.reply)

	assert.Equal(t, []string{"股票池未启用。"}, r.all())
}

func TestHandleCommand_Debug(t *testing.T) {
	etf := &fakeEngine{kind: model.PoolETF, report: etfReport()}
	s := NewScheduler(context.Background(), &fakeSender{}, etf)
	r := &replies{}

	s.HandleCommand("/debug", r.reply)

	out := r.all()
	require.Len(t, out, 2)
	assert.Contains(t, out[1], "技术指标调试报告")
}

func TestHandleCommand_RejectsConcurrentRun(t *testing.T) {
	etf := &fakeEngine{kind: model.PoolETF, report: etfReport(), block: make(chan struct{})}
	s := NewScheduler(context.Background(), &fakeSender{}, etf)
	first := &replies{}
	done := make(chan struct{})
	go func() {
		s.HandleCommand("/analyze", first.reply)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(first.all()) == 1 }, time.Second, 5*time.Millisecond)

	second := &replies{}
	s.HandleCommand("/analyze", second.reply)
	assert.Equal(t, []string{"上一个分析任务仍在运行，请稍候。"}, second.all())

	close(etf.block)
	<-done
	assert.Len(t, first.all(), 2)
}

func TestHandleCommand_Intraday(t *testing.T) {
	etf := &fakeEngine{kind: model.PoolETF, signals: []model.IntradaySignal{
		{Code: "512000", Name: "券商ETF", ChangePct: 3.1, Tags: []string{intraday.TagSharpGain}},
	}}
	stock := &fakeEngine{kind: model.PoolStock, scanErr: errors.New("timeout")}
	s := NewScheduler(context.Background(), &fakeSender{}, etf, stock)
	r := &replies{}

	s.HandleCommand("/intraday", r.reply)

	out := r.all()
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "券商ETF (512000)")
	assert.Contains(t, out[0], "股票池实时行情获取失败")
}

func TestHandleCommand_IntradayQuiet(t *testing.T) {
	etf := &fakeEngine{kind: model.PoolETF, signals: []model.IntradaySignal{
		{Code: "510300", Tags: []string{intraday.TagStable}},
	}}
	s := NewScheduler(context.Background(), &fakeSender{}, etf)
	r := &replies{}

	s.HandleCommand("/intraday", r.reply)

	assert.Equal(t, []string{"✅ 当前没有盘中异动。"}, r.all())
}

func TestHandleCommand_Trend(t *testing.T) {
	etf := &fakeEngine{kind: model.PoolETF}
	stock := &fakeEngine{kind: model.PoolStock}
	s := NewScheduler(context.Background(), &fakeSender{}, etf, stock)
	r := &replies{}

	s.HandleCommand("/trend 603298 stock", r.reply)
	s.HandleCommand("/trend 510300", r.reply)
	s.HandleCommand("/trend", r.reply)
	s.HandleCommand("/trend 510300 bonds", r.reply)

	assert.Equal(t, []string{"603298"}, stock.analyzed)
	assert.Equal(t, []string{"510300"}, etf.analyzed)
	out := r.all()
	require.Len(t, out, 4)
	assert.Contains(t, out[0], "(603298)")
	assert.Contains(t, out[2], "用法")
	assert.Contains(t, out[3], "未知的标的池")
}

func TestHandleCommand_Help(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeSender{})
	r := &replies{}

	s.HandleCommand("/start", r.reply)
	s.HandleCommand("/help", r.reply)

	out := r.all()
	require.Len(t, out, 2)
	for _, text := range out {
		assert.Contains(t, text, "/analyze_stocks")
	}
}

func TestReportTask_SendsReport(t *testing.T) {
	sender := &fakeSender{}
	etf := &fakeEngine{kind: model.PoolETF, report: etfReport()}
	s := NewScheduler(context.Background(), sender, etf)

	s.RunReportNow(model.PoolETF)
	s.RunReportNow(model.PoolStock)

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "核心ETF池AI分析报告")
}

func TestIntradayTask_AlertsOnlyNotable(t *testing.T) {
	sender := &fakeSender{}
	etf := &fakeEngine{kind: model.PoolETF, signals: []model.IntradaySignal{
		{Code: "510300", Tags: []string{intraday.TagStable}},
	}}
	stock := &fakeEngine{kind: model.PoolStock, signals: []model.IntradaySignal{
		{Code: "603298", Name: "杭叉集团", Tags: []string{intraday.TagVolumeSpike}},
	}}
	s := NewScheduler(context.Background(), sender, etf, stock)

	s.intradayTask()

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "股票池盘中异动")
}

func TestRegisterAll(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeSender{})

	require.NoError(t, s.RegisterAll("0 40 14 * * 1-5", "0 45 14 * * 1-5", ""))
	assert.Len(t, s.Cron.Entries(), 2)

	require.NoError(t, s.RegisterAll("0 40 14 * * 1-5", "0 45 14 * * 1-5", "0 */5 10-14 * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 5)

	assert.Error(t, s.RegisterAll("not a cron", "0 45 14 * * 1-5", ""))
}
