package collector

import (
	"context"

	"TrendSentinel/internal/model"
)

// Provider supplies realtime snapshots and daily history for one watch-list pool.
type Provider interface {
	Name() string
	Kind() model.PoolKind
	FetchRealtimeSnapshot(ctx context.Context) (*model.Snapshot, error)
	FetchDailyHistory(ctx context.Context, code string) (*model.RawTable, error)
}

// HistorySource fetches one instrument's daily bars as a vendor table.
type HistorySource interface {
	Name() string
	DailyHistory(ctx context.Context, code string) (*model.RawTable, error)
}

// SpotSource fetches a whole-market realtime snapshot for a segment.
type SpotSource interface {
	Spot(ctx context.Context, segment Segment) (*model.Snapshot, error)
}

type baseProvider struct {
	kind    model.PoolKind
	segment Segment
	spot    SpotSource
	history HistorySource
	retry   RetryPolicy
}

func (p *baseProvider) Kind() model.PoolKind { return p.kind }

func (p *baseProvider) FetchRealtimeSnapshot(ctx context.Context) (*model.Snapshot, error) {
	return p.spot.Spot(ctx, p.segment)
}

// FetchDailyHistory retries transient failures per the provider's RetryPolicy.
func (p *baseProvider) FetchDailyHistory(ctx context.Context, code string) (*model.RawTable, error) {
	var table *model.RawTable
	err := p.retry.Do(ctx, p.history.Name()+" "+code, func(ctx context.Context) error {
		t, err := p.history.DailyHistory(ctx, code)
		if err != nil {
			return err
		}
		table = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return table, nil
}

// ETFProvider serves the exchange-traded fund pool.
type ETFProvider struct{ baseProvider }

// NewETFProvider wires spot and history sources for ETFs.
func NewETFProvider(spot SpotSource, history HistorySource, retry RetryPolicy) *ETFProvider {
	return &ETFProvider{baseProvider{
		kind:    model.PoolETF,
		segment: SegmentETF,
		spot:    spot,
		history: history,
		retry:   retry,
	}}
}

func (p *ETFProvider) Name() string { return "etf/" + p.history.Name() }

// StockProvider serves the A-share stock pool.
type StockProvider struct{ baseProvider }

// NewStockProvider wires spot and history sources for stocks.
func NewStockProvider(spot SpotSource, history HistorySource, retry RetryPolicy) *StockProvider {
	return &StockProvider{baseProvider{
		kind:    model.PoolStock,
		segment: SegmentStock,
		spot:    spot,
		history: history,
		retry:   retry,
	}}
}

func (p *StockProvider) Name() string { return "stock/" + p.history.Name() }

// NewProvider returns the provider variant for kind.
func NewProvider(kind model.PoolKind, spot SpotSource, history HistorySource, retry RetryPolicy) Provider {
	if kind == model.PoolStock {
		return NewStockProvider(spot, history, retry)
	}
	return NewETFProvider(spot, history, retry)
}
