package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"golang.org/x/time/rate"

	"TrendSentinel/internal/metrics"
	"TrendSentinel/internal/model"
)

// Segment selects a market list on the EastMoney spot endpoint.
type Segment string

const (
	SegmentETF   Segment = "etf"
	SegmentStock Segment = "stock"
)

var segmentFilters = map[Segment]string{
	SegmentETF:   "b:MK0021,b:MK0022,b:MK0023,b:MK0024",
	SegmentStock: "m:0 t:6,m:0 t:80,m:1 t:2,m:1 t:23,m:0 t:81 s:2048",
}

// Column names of the kline table, matching the vendor's Chinese headers.
var klineColumns = []string{"日期", "开盘", "收盘", "最高", "最低", "成交量", "成交额", "振幅", "涨跌幅", "涨跌额", "换手率"}

const (
	defaultSpotURL  = "https://88.push2.eastmoney.com/api/qt/clist/get"
	defaultKlineURL = "https://push2his.eastmoney.com/api/qt/stock/kline/get"
	spotPageSize    = 100
)

// EastMoneyClient fetches spot lists and daily klines from EastMoney's public API.
type EastMoneyClient struct {
	SpotURL  string
	KlineURL string
	Client   *http.Client
	Limiter  *rate.Limiter
	Metrics  *metrics.Registry
	now      func() time.Time
}

// NewEastMoneyClient creates a client limited to rps requests per second.
func NewEastMoneyClient(proxyURL string, timeout time.Duration, rps float64) *EastMoneyClient {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &EastMoneyClient{
		SpotURL:  defaultSpotURL,
		KlineURL: defaultKlineURL,
		Client:   &http.Client{Timeout: timeout, Transport: transport},
		Limiter:  rate.NewLimiter(limit, 1),
		now:      time.Now,
	}
}

func (c *EastMoneyClient) Name() string { return "eastmoney" }

func (c *EastMoneyClient) get(ctx context.Context, endpoint string, params url.Values, out any) (err error) {
	defer func() { c.Metrics.ObserveUpstream(c.Name(), err) }()

	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Referer", "https://quote.eastmoney.com/")

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("eastmoney fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("eastmoney read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("eastmoney: status %d, body: %s", resp.StatusCode, truncate(string(body), 200))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("eastmoney decode: %w", err)
	}
	return nil
}

type spotResponse struct {
	Data *struct {
		Total int              `json:"total"`
		Diff  []map[string]any `json:"diff"`
	} `json:"data"`
}

// Spot fetches every page of the segment's realtime list.
// Change percent is derived from price and previous close; rows lacking
// price, previous close or turnover are dropped.
func (c *EastMoneyClient) Spot(ctx context.Context, segment Segment) (*model.Snapshot, error) {
	fs, ok := segmentFilters[segment]
	if !ok {
		return nil, fmt.Errorf("eastmoney: unknown segment %q", segment)
	}

	snap := &model.Snapshot{Segment: string(segment)}
	for page := 1; ; page++ {
		params := url.Values{
			"pn":     {strconv.Itoa(page)},
			"pz":     {strconv.Itoa(spotPageSize)},
			"po":     {"1"},
			"np":     {"1"},
			"fltt":   {"2"},
			"invt":   {"2"},
			"fid":    {"f12"},
			"fs":     {fs},
			"fields": {"f2,f3,f6,f12,f14,f18"},
		}
		var resp spotResponse
		if err := c.get(ctx, c.SpotURL, params, &resp); err != nil {
			return nil, err
		}
		if resp.Data == nil || len(resp.Data.Diff) == 0 {
			break
		}
		for _, row := range resp.Data.Diff {
			if q, ok := quoteFromRow(row); ok {
				snap.Quotes = append(snap.Quotes, q)
			}
		}
		if page*spotPageSize >= resp.Data.Total {
			break
		}
	}

	if len(snap.Quotes) == 0 {
		return nil, fmt.Errorf("eastmoney: empty %s snapshot: %w", segment, model.ErrDataUnavailable)
	}
	snap.FetchedAt = c.clock()
	return snap, nil
}

func quoteFromRow(row map[string]any) (model.Quote, bool) {
	code := cast.ToString(row["f12"])
	price, okP := vendorFloat(row["f2"])
	prev, okC := vendorFloat(row["f18"])
	amount, okA := vendorFloat(row["f6"])
	if code == "" || !okP || !okC || !okA {
		return model.Quote{}, false
	}
	q := model.Quote{
		Code:      code,
		Name:      cast.ToString(row["f14"]),
		Price:     price,
		PrevClose: prev,
		Amount:    amount,
	}
	if prev != 0 {
		q.ChangePct = (price - prev) / prev * 100
	}
	return q, true
}

// vendorFloat converts a JSON cell; the vendor sends "-" for missing values.
func vendorFloat(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	if s, ok := v.(string); ok && (s == "-" || strings.TrimSpace(s) == "") {
		return 0, false
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

type klineResponse struct {
	Data *struct {
		Code   string   `json:"code"`
		Name   string   `json:"name"`
		Klines []string `json:"klines"`
	} `json:"data"`
}

// SecID maps an A-share code to EastMoney's market-prefixed id.
func SecID(code string) string {
	if strings.HasPrefix(code, "5") || strings.HasPrefix(code, "6") || strings.HasPrefix(code, "9") {
		return "1." + code
	}
	return "0." + code
}

// DailyHistory fetches forward-adjusted daily klines.
func (c *EastMoneyClient) DailyHistory(ctx context.Context, code string) (*model.RawTable, error) {
	params := url.Values{
		"fields1": {"f1,f2,f3,f4,f5,f6"},
		"fields2": {"f51,f52,f53,f54,f55,f56,f57,f58,f59,f60,f61"},
		"klt":     {"101"},
		"fqt":     {"1"},
		"secid":   {SecID(code)},
		"beg":     {"0"},
		"end":     {"20500000"},
	}
	var resp klineResponse
	if err := c.get(ctx, c.KlineURL, params, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil || len(resp.Data.Klines) == 0 {
		return nil, fmt.Errorf("eastmoney: no klines for %s: %w", code, model.ErrDataUnavailable)
	}

	table := &model.RawTable{Columns: klineColumns, Rows: make([][]any, 0, len(resp.Data.Klines))}
	for _, line := range resp.Data.Klines {
		fields := strings.Split(line, ",")
		row := make([]any, len(klineColumns))
		for i := range row {
			if i < len(fields) {
				row[i] = fields[i]
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func (c *EastMoneyClient) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
