package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"TrendSentinel/internal/intraday"
	"TrendSentinel/internal/logger"
	"TrendSentinel/internal/model"
	"TrendSentinel/internal/notifier"
)

// Engine is one pool's report pipeline. *report.Orchestrator satisfies it.
type Engine interface {
	Pool() model.PoolKind
	Generate(ctx context.Context) (*model.Report, error)
	GenerateDebug(ctx context.Context) (*model.Report, error)
	ScanIntraday(ctx context.Context) ([]model.IntradaySignal, error)
	AnalyzeOne(ctx context.Context, code string) model.DailyTrend
}

// Sender delivers a message to the configured chat.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler runs the cron jobs and answers bot commands.
type Scheduler struct {
	Cron     *cron.Cron
	Notifier Sender
	Ctx      context.Context

	engines map[model.PoolKind]Engine

	mu      sync.Mutex
	running map[string]bool
}

type cronLogger struct{}

func (cronLogger) Printf(format string, args ...interface{}) {
	logger.Debug("cron: "+format, args...)
}

// NewScheduler creates a Scheduler over one engine per pool.
func NewScheduler(ctx context.Context, n Sender, engines ...Engine) *Scheduler {
	l := cron.PrintfLogger(cronLogger{})
	s := &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		),
		Notifier: n,
		Ctx:      ctx,
		engines:  make(map[model.PoolKind]Engine, len(engines)),
		running:  make(map[string]bool),
	}
	for _, e := range engines {
		s.engines[e.Pool()] = e
	}
	return s
}

// RegisterAll registers the pool report jobs and, when intradayCron is set,
// the intraday scan.
func (s *Scheduler) RegisterAll(etfCron, stockCron, intradayCron string) error {
	if _, err := s.Cron.AddFunc(etfCron, func() { s.reportTask(model.PoolETF) }); err != nil {
		return fmt.Errorf("register etf report: %w", err)
	}
	if _, err := s.Cron.AddFunc(stockCron, func() { s.reportTask(model.PoolStock) }); err != nil {
		return fmt.Errorf("register stock report: %w", err)
	}
	if intradayCron != "" {
		if _, err := s.Cron.AddFunc(intradayCron, s.intradayTask); err != nil {
			return fmt.Errorf("register intraday scan: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	logger.Info("scheduler started with %d jobs", len(s.Cron.Entries()))
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	logger.Info("scheduler stopped")
}

// RunReportNow executes the report job for kind immediately.
func (s *Scheduler) RunReportNow(kind model.PoolKind) {
	s.reportTask(kind)
}

func (s *Scheduler) reportTask(kind model.PoolKind) {
	e, ok := s.engines[kind]
	if !ok {
		return
	}
	logger.Info("running scheduled %s report", kind)
	rep, err := e.Generate(s.Ctx)
	if err != nil {
		logger.Error("%s report: %v", kind, err)
		s.trySend(failureText(kind))
		return
	}
	s.trySend(notifier.FormatReport(rep))
}

func (s *Scheduler) intradayTask() {
	for _, kind := range []model.PoolKind{model.PoolETF, model.PoolStock} {
		e, ok := s.engines[kind]
		if !ok {
			continue
		}
		signals, err := e.ScanIntraday(s.Ctx)
		if err != nil {
			logger.Warn("%s intraday scan: %v", kind, err)
			continue
		}
		if alert := notifier.FormatIntradayAlert(kind, signals, intraday.TagStable); alert != "" {
			s.trySend(alert)
		}
	}
}

// HandleCommand processes a bot command and answers through reply.
func (s *Scheduler) HandleCommand(command string, reply notifier.ReplyFunc) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		reply(notifier.HelpText())
		return
	}

	switch fields[0] {
	case "/analyze":
		s.runReport(model.PoolETF, false, reply)
	case "/analyze_stocks":
		s.runReport(model.PoolStock, false, reply)
	case "/debug":
		s.runReport(model.PoolETF, true, reply)
	case "/debug_stocks":
		s.runReport(model.PoolStock, true, reply)
	case "/intraday":
		s.runIntraday(reply)
	case "/trend":
		s.runTrend(fields[1:], reply)
	default:
		reply(notifier.HelpText())
	}
}

func (s *Scheduler) runReport(kind model.PoolKind, debug bool, reply notifier.ReplyFunc) {
	e, ok := s.engines[kind]
	if !ok {
		reply(fmt.Sprintf("%s池未启用。", kind.Label()))
		return
	}
	job := fmt.Sprintf("%s:%t", kind, debug)
	if !s.acquire(job) {
		reply("上一个分析任务仍在运行，请稍候。")
		return
	}
	defer s.release(job)

	if debug {
		reply(fmt.Sprintf("好的，正在生成%s池技术指标调试报告...", kind.Label()))
		rep, err := e.GenerateDebug(s.Ctx)
		if err != nil {
			logger.Error("%s debug report: %v", kind, err)
			reply(fmt.Sprintf("未能生成%s调试报告，请稍后再试。", kind.Label()))
			return
		}
		reply(notifier.FormatDebugReport(rep))
		return
	}

	reply(fmt.Sprintf("好的，正在为您启动%s分析引擎...", kind.Label()))
	rep, err := e.Generate(s.Ctx)
	if err != nil {
		logger.Error("%s report: %v", kind, err)
		reply(failureText(kind))
		return
	}
	reply(notifier.FormatReport(rep))
}

func (s *Scheduler) runIntraday(reply notifier.ReplyFunc) {
	var parts []string
	for _, kind := range []model.PoolKind{model.PoolETF, model.PoolStock} {
		e, ok := s.engines[kind]
		if !ok {
			continue
		}
		signals, err := e.ScanIntraday(s.Ctx)
		if err != nil {
			logger.Warn("%s intraday scan: %v", kind, err)
			parts = append(parts, fmt.Sprintf("❌ %s池实时行情获取失败。", kind.Label()))
			continue
		}
		if alert := notifier.FormatIntradayAlert(kind, signals, intraday.TagStable); alert != "" {
			parts = append(parts, alert)
		}
	}
	if len(parts) == 0 {
		reply("✅ 当前没有盘中异动。")
		return
	}
	reply(strings.Join(parts, "\n\n"))
}

func (s *Scheduler) runTrend(args []string, reply notifier.ReplyFunc) {
	if len(args) == 0 {
		reply("用法: /trend &lt;代码&gt; [etf|stock]")
		return
	}
	kind := model.PoolETF
	if len(args) > 1 {
		k, ok := model.ParsePoolKind(args[1])
		if !ok {
			reply("未知的标的池: " + args[1])
			return
		}
		kind = k
	}
	e, ok := s.engines[kind]
	if !ok {
		reply(fmt.Sprintf("%s池未启用。", kind.Label()))
		return
	}
	reply(notifier.FormatDailyTrend(e.AnalyzeOne(s.Ctx, args[0])))
}

func (s *Scheduler) acquire(job string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[job] {
		return false
	}
	s.running[job] = true
	return true
}

func (s *Scheduler) release(job string) {
	s.mu.Lock()
	delete(s.running, job)
	s.mu.Unlock()
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		logger.Error("send notification: %v", err)
	}
}

func failureText(kind model.PoolKind) string {
	return fmt.Sprintf("未能生成%s AI分析报告，请稍后再试。", kind.Label())
}
