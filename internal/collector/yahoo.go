package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"TrendSentinel/internal/metrics"
	"TrendSentinel/internal/model"
)

const defaultYahooURL = "https://query1.finance.yahoo.com/v8/finance/chart/"

// YahooClient is an alternative daily-history source backed by the Yahoo Finance chart API.
type YahooClient struct {
	BaseURL   string
	Client    *http.Client
	Range     string
	SymbolMap map[string]string // overrides for codes the suffix rule gets wrong
	Metrics   *metrics.Registry
}

// NewYahooClient creates a Yahoo Finance history source.
func NewYahooClient(proxyURL string, timeout time.Duration) *YahooClient {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &YahooClient{
		BaseURL:   defaultYahooURL,
		Client:    &http.Client{Timeout: timeout, Transport: transport},
		Range:     "1y",
		SymbolMap: map[string]string{},
	}
}

func (f *YahooClient) Name() string { return "yahoo" }

// Ticker maps an A-share code to a Yahoo ticker (.SS for Shanghai, .SZ for Shenzhen).
func (f *YahooClient) Ticker(code string) string {
	if mapped, ok := f.SymbolMap[code]; ok {
		return mapped
	}
	if strings.Contains(code, ".") {
		return code
	}
	if strings.HasPrefix(SecID(code), "1.") {
		return code + ".SS"
	}
	return code + ".SZ"
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []any `json:"open"`
					High   []any `json:"high"`
					Low    []any `json:"low"`
					Close  []any `json:"close"`
					Volume []any `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// DailyHistory returns Date/Open/High/Low/Close/Volume rows. Null cells are
// passed through as nil for the normalizer to handle.
func (f *YahooClient) DailyHistory(ctx context.Context, code string) (table *model.RawTable, err error) {
	defer func() { f.Metrics.ObserveUpstream(f.Name(), err) }()

	u := fmt.Sprintf("%s%s?interval=1d&range=%s", f.BaseURL, url.PathEscape(f.Ticker(code)), f.Range)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: no data for %s: %w", code, model.ErrDataUnavailable)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	table = &model.RawTable{
		Columns: []string{"Date", "Open", "High", "Low", "Close", "Volume"},
		Rows:    make([][]any, 0, len(result.Timestamp)),
	}
	for i, ts := range result.Timestamp {
		table.Rows = append(table.Rows, []any{
			time.Unix(ts, 0).In(shanghai),
			cell(quote.Open, i),
			cell(quote.High, i),
			cell(quote.Low, i),
			cell(quote.Close, i),
			cell(quote.Volume, i),
		})
	}
	return table, nil
}

var shanghai = time.FixedZone("CST", 8*3600)

func cell(col []any, i int) any {
	if i < len(col) {
		return col[i]
	}
	return nil
}
