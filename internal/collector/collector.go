package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TrendSentinel/internal/model"
)

// MockProvider returns controllable fixed data for development and testing.
type MockProvider struct {
	PoolKind    model.PoolKind
	Snapshot    *model.Snapshot
	SnapshotErr error
	Histories   map[string]*model.RawTable
	HistoryErr  map[string]error
	// Bars is the generated history length for codes without a fixed table.
	Bars      int
	BasePrice float64

	mu            sync.Mutex
	snapshotCalls int
	historyCalls  []string
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Kind() model.PoolKind {
	if m.PoolKind == "" {
		return model.PoolETF
	}
	return m.PoolKind
}

func (m *MockProvider) FetchRealtimeSnapshot(_ context.Context) (*model.Snapshot, error) {
	m.mu.Lock()
	m.snapshotCalls++
	m.mu.Unlock()
	if m.SnapshotErr != nil {
		return nil, m.SnapshotErr
	}
	return m.Snapshot, nil
}

func (m *MockProvider) FetchDailyHistory(_ context.Context, code string) (*model.RawTable, error) {
	m.mu.Lock()
	m.historyCalls = append(m.historyCalls, code)
	m.mu.Unlock()

	if err, ok := m.HistoryErr[code]; ok {
		return nil, err
	}
	if t, ok := m.Histories[code]; ok {
		return t, nil
	}
	if m.Bars > 0 {
		base := m.BasePrice
		if base == 0 {
			base = 1
		}
		return GenerateMockTable(base, m.Bars), nil
	}
	return nil, fmt.Errorf("mock: no history for %s: %w", code, model.ErrDataUnavailable)
}

// SnapshotCalls returns how many realtime fetches were made.
func (m *MockProvider) SnapshotCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotCalls
}

// HistoryCalls returns the codes requested, in order.
func (m *MockProvider) HistoryCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.historyCalls...)
}

// GenerateMockTable builds count daily rows in the vendor's Chinese column layout.
func GenerateMockTable(basePrice float64, count int) *model.RawTable {
	table := &model.RawTable{Columns: []string{"日期", "开盘", "收盘", "最高", "最低", "成交量"}}
	end := time.Now()
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		table.Rows = append(table.Rows, []any{
			end.AddDate(0, 0, -(count - i)).Format("2006-01-02"),
			p * 0.999,
			p,
			p * 1.005,
			p * 0.995,
			1000000 + float64(i%7)*50000,
		})
	}
	return table
}

// MockSnapshot quotes every instrument at basePrice with the given change.
func MockSnapshot(kind model.PoolKind, pool []model.Instrument, basePrice, changePct float64) *model.Snapshot {
	snap := &model.Snapshot{Segment: string(kind), FetchedAt: time.Now()}
	prev := basePrice / (1 + changePct/100)
	for _, inst := range pool {
		snap.Quotes = append(snap.Quotes, model.Quote{
			Code:      inst.Code,
			Name:      inst.Name,
			Price:     basePrice,
			PrevClose: prev,
			ChangePct: changePct,
			Amount:    1e8,
		})
	}
	return snap
}
