package notifier

import (
	"fmt"
	"html"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"TrendSentinel/internal/model"
)

const divider = "----------------------------------\n"

// FormatReport renders a ranked report as a Telegram HTML message.
func FormatReport(rep *model.Report) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🤖 <b>核心%s池AI分析报告</b>\n", rep.Pool.Label()))
	b.WriteString(fmt.Sprintf("(按AI综合评分排序) | %s\n", rep.GeneratedAt.Format("2006-01-02 15:04")))
	b.WriteString(divider)

	if rep.Failed {
		for _, e := range rep.Entries {
			b.WriteString(fmt.Sprintf("\n❌ %s: %s\n", html.EscapeString(e.Name), html.EscapeString(e.Comment)))
		}
		return b.String()
	}

	for i, e := range rep.Entries {
		b.WriteString(fmt.Sprintf("\n🏅 #%d <b>%s (%s)</b>\n", i+1, html.EscapeString(e.Name), e.Code))
		writeQuote(&b, e)
		b.WriteString(fmt.Sprintf("  - 日线趋势: %s\n", e.DailyStatus.Label()))
		if len(e.IntradayTags) > 0 {
			b.WriteString(fmt.Sprintf("  - 盘中信号: %s\n", html.EscapeString(strings.Join(e.IntradayTags, "、"))))
		}
		b.WriteString(fmt.Sprintf("  - AI评分: <b>%s</b>\n", formatScore(e)))
		b.WriteString(fmt.Sprintf("  - AI点评: <i>%s</i>\n", html.EscapeString(e.Comment)))
	}
	return b.String()
}

// FormatDebugReport renders an unscored report with every daily signal and indicator.
func FormatDebugReport(rep *model.Report) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔧 <b>%s池技术指标调试报告</b>\n", rep.Pool.Label()))
	b.WriteString(fmt.Sprintf("%s | run %s\n", rep.GeneratedAt.Format("2006-01-02 15:04:05"), shortID(rep.RunID)))
	b.WriteString(divider)

	if rep.Failed {
		for _, e := range rep.Entries {
			b.WriteString(fmt.Sprintf("\n❌ %s: %s\n", html.EscapeString(e.Name), html.EscapeString(e.Comment)))
		}
		return b.String()
	}

	for _, e := range rep.Entries {
		b.WriteString(fmt.Sprintf("\n<b>%s (%s)</b>\n", html.EscapeString(e.Name), e.Code))
		writeQuote(&b, e)
		b.WriteString(fmt.Sprintf("  - 日线趋势: %s\n", e.DailyStatus.Label()))
		for _, s := range e.DailySignals {
			b.WriteString(fmt.Sprintf("    · %s\n", html.EscapeString(s)))
		}
		if len(e.IntradayTags) > 0 {
			b.WriteString(fmt.Sprintf("  - 盘中信号: %s\n", html.EscapeString(strings.Join(e.IntradayTags, "、"))))
		}
		if len(e.Indicators) > 0 {
			b.WriteString("  - 指标: <code>" + formatIndicators(e.Indicators) + "</code>\n")
		}
	}
	return b.String()
}

// FormatDailyTrend renders a single Daily Trend Analyzer result.
func FormatDailyTrend(res model.DailyTrend) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>%s (%s)</b> 日线趋势\n", html.EscapeString(res.Name), res.Code))
	b.WriteString(fmt.Sprintf("状态: %s\n", res.Status.Label()))
	for _, s := range res.Signals {
		b.WriteString(fmt.Sprintf("  · %s\n", html.EscapeString(s)))
	}
	if res.Frame != nil {
		if latest := res.Frame.Latest(); len(latest) > 0 {
			b.WriteString("<code>" + formatIndicators(latest) + "</code>\n")
		}
	}
	return b.String()
}

// FormatIntradayAlert lists the signals carrying a notable tag. It returns ""
// when every signal is stable.
func FormatIntradayAlert(pool model.PoolKind, signals []model.IntradaySignal, stableTag string) string {
	var lines []string
	for _, s := range signals {
		notable := make([]string, 0, len(s.Tags))
		for _, t := range s.Tags {
			if t != stableTag {
				notable = append(notable, t)
			}
		}
		if len(notable) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("⚡ <b>%s (%s)</b> %.3f (%+.2f%%) %s",
			html.EscapeString(s.Name), s.Code, s.Price, s.ChangePct, html.EscapeString(strings.Join(notable, "、"))))
	}
	if len(lines) == 0 {
		return ""
	}
	return fmt.Sprintf("🚨 <b>%s池盘中异动</b>\n%s", pool.Label(), strings.Join(lines, "\n"))
}

// HelpText lists the supported bot commands.
func HelpText() string {
	return "你好！我是A股趋势分析机器人。\n\n" +
		"可用命令:\n" +
		"/analyze - 生成核心ETF池AI分析报告\n" +
		"/analyze_stocks - 生成个股池AI分析报告\n" +
		"/debug - ETF池技术指标调试报告 (不调用AI)\n" +
		"/debug_stocks - 个股池技术指标调试报告\n" +
		"/intraday - 扫描盘中异动\n" +
		"/trend &lt;代码&gt; - 单个标的日线趋势\n" +
		"/help - 显示此帮助信息"
}

// Paginate splits text into pages of at most limit characters, breaking on
// line boundaries. Tags still open at a break are closed on that page and
// reopened on the next, so every page parses as HTML on its own. A line that
// cannot fit on one page is split by character, never inside a tag or entity.
func Paginate(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	p := &pager{limit: limit}
	p.start()
	for _, unit := range strings.SplitAfter(text, "\n") {
		for unit != "" {
			after := applyTags(p.open, unit)
			if p.curLen+utf8.RuneCountInString(unit)+closeLen(after) <= limit {
				p.write(unit, after)
				break
			}
			if p.curLen > p.prefixLen {
				p.flush()
				continue
			}
			head, rest := p.cut(unit)
			p.write(head, applyTags(p.open, head))
			unit = rest
		}
	}
	if p.curLen > p.prefixLen {
		p.flush()
	}
	return p.pages
}

var tagPattern = regexp.MustCompile(`</?([a-z]+)>`)

type pager struct {
	limit     int
	pages     []string
	cur       strings.Builder
	curLen    int
	prefixLen int
	open      []string
}

func (p *pager) start() {
	p.cur.Reset()
	for _, tag := range p.open {
		p.cur.WriteString("<" + tag + ">")
	}
	p.prefixLen = openLen(p.open)
	p.curLen = p.prefixLen
}

func (p *pager) write(s string, after []string) {
	p.cur.WriteString(s)
	p.curLen += utf8.RuneCountInString(s)
	p.open = after
}

func (p *pager) flush() {
	for i := len(p.open) - 1; i >= 0; i-- {
		p.cur.WriteString("</" + p.open[i] + ">")
	}
	p.pages = append(p.pages, p.cur.String())
	p.start()
}

// cut returns the longest head of s that fits on a fresh page without
// splitting a tag or entity.
func (p *pager) cut(s string) (head, rest string) {
	r := []rune(s)
	for k := min(len(r), p.limit-p.curLen); k > 0; k-- {
		h := string(r[:k])
		if !safeCut(h) {
			continue
		}
		if p.curLen+k+closeLen(applyTags(p.open, h)) <= p.limit {
			return h, string(r[k:])
		}
	}
	return string(r[:1]), string(r[1:])
}

func safeCut(s string) bool {
	if strings.LastIndex(s, "<") > strings.LastIndex(s, ">") {
		return false
	}
	return strings.LastIndex(s, "&") <= strings.LastIndex(s, ";")
}

// applyTags returns the open-tag stack after s.
func applyTags(open []string, s string) []string {
	out := append([]string(nil), open...)
	for _, m := range tagPattern.FindAllStringSubmatch(s, -1) {
		tag := m[1]
		if !strings.HasPrefix(m[0], "</") {
			out = append(out, tag)
			continue
		}
		for i := len(out) - 1; i >= 0; i-- {
			if out[i] == tag {
				out = append(out[:i], out[i+1:]...)
				break
			}
		}
	}
	return out
}

func openLen(open []string) int {
	n := 0
	for _, tag := range open {
		n += len(tag) + 2
	}
	return n
}

func closeLen(open []string) int {
	return openLen(open) + len(open)
}

func writeQuote(b *strings.Builder, e model.ReportEntry) {
	if !e.InSnapshot {
		return
	}
	b.WriteString(fmt.Sprintf("  - 现价: %.3f (%+.2f%%)\n", e.Price, e.ChangePct))
}

func formatScore(e model.ReportEntry) string {
	if !e.Scored {
		return "N/A"
	}
	return fmt.Sprintf("%.1f / 100", e.Score)
}

func formatIndicators(values map[string]float64) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := values[k]
		if math.IsNaN(v) {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%.4f", k, v))
	}
	return html.EscapeString(strings.Join(parts, " "))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
