package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"TrendSentinel/internal/logger"
	"TrendSentinel/internal/model"
)

const systemPrompt = "你是一个专业的金融数据分析工具。请基于用户提供的JSON数据，客观地总结投资标的的状态，" +
	"特别注意结合日线级别整体趋势、盘中技术信号以及详细的技术指标分析。" +
	"详细技术指标分析包含：均线的整体排列形态（如多头/空头排列/纠缠），股价与5日、10日、20日、60日均线关系，" +
	"均线之间的金叉/死叉，60日均线趋势方向，以及MACD指标（金叉/死叉、零轴位置、红绿柱增减），" +
	"以及60日成交量均线关系（如成交量较60日均量显著放大/萎缩）。" +
	"综合这些信息，给出一个综合评分（0-100，50为中性）以及对每一个指标的点评。" +
	"请严格以JSON格式返回，包含'score'和'comment'两个键。"

// LLMConfig configures an OpenAI-compatible chat completions endpoint.
type LLMConfig struct {
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
	ProxyURL string
}

// LLMScorer scores instruments with an OpenAI-compatible chat model.
// Calls pass through a circuit breaker so a failing endpoint is skipped quickly.
type LLMScorer struct {
	cfg     LLMConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewLLMScorer creates a scorer for cfg.
func NewLLMScorer(cfg LLMConfig) *LLMScorer {
	transport := &http.Transport{}
	if cfg.ProxyURL != "" {
		if u, err := url.Parse(cfg.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Model == "" {
		cfg.Model = "sonar-pro"
	}
	st := gobreaker.Settings{
		Name:     "llm",
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker %s: %s -> %s", name, from, to)
		},
	}
	return &LLMScorer{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout, Transport: transport},
		breaker: gobreaker.NewCircuitBreaker(st),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

var responseFormat = map[string]any{
	"type": "json_schema",
	"json_schema": map[string]any{
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"score":   map[string]any{"type": "number", "description": "0到100分的综合评分"},
				"comment": map[string]any{"type": "string", "description": "各指标得出的交易点评"},
			},
			"required": []string{"score", "comment"},
		},
	},
}

// promptPayload keeps the user message keys in the language the prompt is written in.
type promptPayload struct {
	Name         string   `json:"名称"`
	Code         string   `json:"代码"`
	Change       string   `json:"日内涨跌幅"`
	DailyStatus  string   `json:"日线级别大趋势"`
	DailySignals []string `json:"日线技术指标"`
	Intraday     []string `json:"盘中技术信号"`
}

// Score asks the model for a rating. Transport and decode failures return a
// Result carrying CommentServiceError together with an ErrScoringFailure error.
func (s *LLMScorer) Score(ctx context.Context, req Request) (Result, error) {
	payload, err := json.MarshalIndent(promptPayload{
		Name:         req.Instrument.Name,
		Code:         req.Instrument.Code,
		Change:       fmt.Sprintf("%.2f%%", req.Intraday.ChangePct),
		DailyStatus:  req.DailyStatus.Label(),
		DailySignals: req.DailySignals,
		Intraday:     req.Intraday.Tags,
	}, "", "  ")
	if err != nil {
		return Result{Comment: CommentServiceError}, fmt.Errorf("encode prompt: %w", err)
	}

	out, err := s.breaker.Execute(func() (interface{}, error) {
		return s.complete(ctx, string(payload))
	})
	if err != nil {
		return Result{Comment: CommentServiceError}, fmt.Errorf("llm %s: %w: %w", req.Instrument.Code, model.ErrScoringFailure, err)
	}

	content := out.(string)
	if strings.TrimSpace(content) == "" {
		logger.Warn("llm returned empty content for %s", req.Instrument.Name)
		return Result{Score: scoreOf(NeutralScore), Comment: CommentEmpty}, nil
	}
	res, err := ParseContent(content)
	if err != nil {
		return Result{Comment: CommentServiceError}, fmt.Errorf("llm %s: %w: %w", req.Instrument.Code, model.ErrScoringFailure, err)
	}
	return res, nil
}

func (s *LLMScorer) complete(ctx context.Context, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: s.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: user},
		},
		ResponseFormat: responseFormat,
	})
	if err != nil {
		return "", err
	}

	endpoint := strings.TrimRight(s.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat completions: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completions: status %d, body: %s", resp.StatusCode, raw)
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", nil
	}
	return cr.Choices[0].Message.Content, nil
}

// ParseContent interprets the model's message content. A list is accepted
// and its first element used; a non-numeric score falls back to NeutralScore.
func ParseContent(content string) (Result, error) {
	content = stripFence(content)

	var parsed any
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return Result{}, fmt.Errorf("decode content: %w", err)
	}
	if list, ok := parsed.([]any); ok && len(list) > 0 {
		parsed = list[0]
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return Result{Comment: CommentBadFormat}, nil
	}

	score := NeutralScore
	if v, ok := obj["score"].(float64); ok {
		score = v
	}
	comment, _ := obj["comment"].(string)
	return Result{Score: scoreOf(score), Comment: comment}, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
