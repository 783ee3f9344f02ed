// Package series converts vendor bar tables into a canonical NormalizedSeries.
package series

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"

	"TrendSentinel/internal/model"
)

var (
	ErrEmptySeries           = fmt.Errorf("empty series: %w", model.ErrDataUnavailable)
	ErrMissingRequiredColumn = fmt.Errorf("missing required column close: %w", model.ErrSchemaMismatch)
)

// Candidate names per canonical field, canonical name first.
var columnVariants = map[string][]string{
	"close":  {"close", "收盘", "Close"},
	"high":   {"high", "最高", "High"},
	"low":    {"low", "最低", "Low"},
	"volume": {"volume", "成交量", "Volume"},
	"date":   {"date", "日期", "Date"},
}

var dateLayouts = []string{
	"2006-01-02",
	"20060102",
	"2006/01/02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

type columnIndex struct {
	close, high, low, volume, date int
}

func resolveColumns(cols []string) columnIndex {
	pos := make(map[string]int, len(cols))
	for i, c := range cols {
		name := strings.TrimSpace(c)
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}
	find := func(field string) int {
		for _, name := range columnVariants[field] {
			if i, ok := pos[name]; ok {
				return i
			}
		}
		return -1
	}
	return columnIndex{
		close:  find("close"),
		high:   find("high"),
		low:    find("low"),
		volume: find("volume"),
		date:   find("date"),
	}
}

// Normalize maps t onto canonical columns and returns bars in ascending date order.
// Rows with an unparseable date are dropped and duplicate dates keep the last row.
// t is not modified.
func Normalize(t *model.RawTable) (*model.NormalizedSeries, error) {
	if t.Len() == 0 {
		return nil, ErrEmptySeries
	}

	idx := resolveColumns(t.Columns)
	if idx.close < 0 {
		return nil, ErrMissingRequiredColumn
	}

	out := &model.NormalizedSeries{
		HasDate:   idx.date >= 0,
		HasHigh:   idx.high >= 0,
		HasLow:    idx.low >= 0,
		HasVolume: idx.volume >= 0,
	}

	bars := make([]model.PriceBar, 0, len(t.Rows))
	for _, row := range t.Rows {
		bar := model.PriceBar{
			Close:  numberAt(row, idx.close),
			High:   numberAt(row, idx.high),
			Low:    numberAt(row, idx.low),
			Volume: numberAt(row, idx.volume),
		}
		if out.HasDate {
			d, err := parseDate(cellAt(row, idx.date))
			if err != nil {
				continue
			}
			bar.Date = d
		}
		bars = append(bars, bar)
	}

	if out.HasDate {
		bars = sortAndDedupe(bars)
	}
	if len(bars) == 0 {
		return nil, ErrEmptySeries
	}
	out.Bars = bars
	return out, nil
}

func sortAndDedupe(bars []model.PriceBar) []model.PriceBar {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	deduped := bars[:0]
	for _, b := range bars {
		if n := len(deduped); n > 0 && deduped[n-1].Date.Equal(b.Date) {
			deduped[n-1] = b
			continue
		}
		deduped = append(deduped, b)
	}
	return deduped
}

func cellAt(row []any, i int) any {
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}

func numberAt(row []any, i int) float64 {
	v := cellAt(row, i)
	if v == nil {
		return math.NaN()
	}
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" || s == "-" {
			return math.NaN()
		}
		v = s
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsInf(f, 0) {
		return math.NaN()
	}
	return f
}

var errBadDate = errors.New("unparseable date")

func parseDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case nil:
		return time.Time{}, errBadDate
	case time.Time:
		return dayOf(d), nil
	case string:
		s := strings.TrimSpace(d)
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
				return dayOf(t), nil
			}
		}
		return time.Time{}, errBadDate
	}
	t, err := cast.ToTimeE(v)
	if err != nil {
		return time.Time{}, errBadDate
	}
	return dayOf(t), nil
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
