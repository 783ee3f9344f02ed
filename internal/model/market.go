package model

import (
	"strings"
	"time"
)

// PoolKind distinguishes the two watch-lists.
type PoolKind string

const (
	PoolETF   PoolKind = "etf"
	PoolStock PoolKind = "stock"
)

// Label returns the Chinese display name of the pool.
func (k PoolKind) Label() string {
	if k == PoolStock {
		return "股票"
	}
	return "ETF"
}

// ParsePoolKind maps user input onto a PoolKind.
func ParsePoolKind(s string) (PoolKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "etf", "etfs":
		return PoolETF, true
	case "stock", "stocks":
		return PoolStock, true
	}
	return "", false
}

// Instrument is a watch-list member.
type Instrument struct {
	Code string `yaml:"code" json:"code"`
	Name string `yaml:"name" json:"name"`
}

// RawTable is an untyped bar table exactly as a history source returned it.
// Column names follow whatever convention the vendor uses.
type RawTable struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows.
func (t *RawTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// PriceBar represents a single daily bar. NaN marks a null field.
type PriceBar struct {
	Date   time.Time
	Close  float64
	High   float64
	Low    float64
	Volume float64
}

// NormalizedSeries holds bars in ascending date order under canonical names.
type NormalizedSeries struct {
	Bars      []PriceBar
	HasDate   bool
	HasHigh   bool
	HasLow    bool
	HasVolume bool
}

// Len returns the number of bars.
func (s *NormalizedSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Closes returns the close column.
func (s *NormalizedSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Volumes returns the volume column.
func (s *NormalizedSeries) Volumes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Volume
	}
	return out
}

// Quote is one row of a realtime snapshot. ChangePct is always in percent.
type Quote struct {
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	PrevClose float64 `json:"prev_close"`
	ChangePct float64 `json:"change_pct"`
	Amount    float64 `json:"amount"`
}

// Snapshot is a whole-market realtime table for one market segment.
type Snapshot struct {
	Segment   string    `json:"segment"`
	Quotes    []Quote   `json:"quotes"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Lookup finds the quote for code.
func (s *Snapshot) Lookup(code string) (Quote, bool) {
	if s == nil {
		return Quote{}, false
	}
	for _, q := range s.Quotes {
		if q.Code == code {
			return q, true
		}
	}
	return Quote{}, false
}

// Empty reports whether the snapshot carries no quotes.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Quotes) == 0
}
