package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendSentinel/internal/model"
	"TrendSentinel/internal/series"
)

func newTestEastMoney(srv *httptest.Server) *EastMoneyClient {
	c := NewEastMoneyClient("", time.Second, 0)
	c.SpotURL = srv.URL + "/spot"
	c.KlineURL = srv.URL + "/kline"
	c.now = func() time.Time { return time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC) }
	return c
}

func TestEastMoney_SpotPagesAndDerivesChange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/spot", r.URL.Path)
		assert.Equal(t, segmentFilters[SegmentETF], r.URL.Query().Get("fs"))
		switch r.URL.Query().Get("pn") {
		case "1":
			rows := ""
			for i := 0; i < spotPageSize; i++ {
				if i > 0 {
					rows += ","
				}
				rows += fmt.Sprintf(`{"f12":"5%05d","f14":"ETF%d","f2":1.0,"f18":1.0,"f6":100}`, i, i)
			}
			fmt.Fprintf(w, `{"data":{"total":%d,"diff":[%s]}}`, spotPageSize+2, rows)
		default:
			fmt.Fprint(w, `{"data":{"total":102,"diff":[
				{"f12":"510300","f14":"沪深300ETF","f2":4.12,"f18":4.0,"f6":123456789.0},
				{"f12":"159999","f14":"停牌","f2":"-","f18":1.2,"f6":"-"}
			]}}`)
		}
	}))
	defer srv.Close()

	snap, err := newTestEastMoney(srv).Spot(context.Background(), SegmentETF)
	require.NoError(t, err)
	assert.Len(t, snap.Quotes, spotPageSize+1, "suspended row dropped")
	assert.Equal(t, "etf", snap.Segment)
	assert.False(t, snap.FetchedAt.IsZero())

	q, ok := snap.Lookup("510300")
	require.True(t, ok)
	assert.Equal(t, "沪深300ETF", q.Name)
	assert.InDelta(t, 3.0, q.ChangePct, 1e-9)
	assert.Equal(t, 123456789.0, q.Amount)
}

func TestEastMoney_SpotEmptyIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"rc":0,"data":null}`)
	}))
	defer srv.Close()

	_, err := newTestEastMoney(srv).Spot(context.Background(), SegmentStock)
	assert.ErrorIs(t, err, model.ErrDataUnavailable)
}

func TestEastMoney_SpotHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "busy", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestEastMoney(srv).Spot(context.Background(), SegmentETF)
	assert.ErrorContains(t, err, "status 502")
}

func TestEastMoney_DailyHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1.510050", r.URL.Query().Get("secid"))
		assert.Equal(t, "101", r.URL.Query().Get("klt"))
		fmt.Fprint(w, `{"data":{"code":"510050","name":"上证50ETF","klines":[
			"2024-01-02,2.50,2.52,2.55,2.49,1000,2520.0,2.4,0.8,0.02,0.1",
			"2024-01-03,2.52,2.48,2.53,2.47,1200,2976.0,2.4,-1.59,-0.04,0.12"
		]}}`)
	}))
	defer srv.Close()

	table, err := newTestEastMoney(srv).DailyHistory(context.Background(), "510050")
	require.NoError(t, err)
	assert.Equal(t, klineColumns, table.Columns)
	require.Len(t, table.Rows, 2)

	s, err := series.Normalize(table)
	require.NoError(t, err)
	assert.Equal(t, 2.48, s.Bars[1].Close)
	assert.Equal(t, 1200.0, s.Bars[1].Volume)
	assert.True(t, s.HasHigh && s.HasLow && s.HasDate)
}

func TestEastMoney_DailyHistoryNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"data":null}`)
	}))
	defer srv.Close()

	_, err := newTestEastMoney(srv).DailyHistory(context.Background(), "000001")
	assert.ErrorIs(t, err, model.ErrDataUnavailable)
}

func TestSecID(t *testing.T) {
	assert.Equal(t, "1.510050", SecID("510050"))
	assert.Equal(t, "1.603298", SecID("603298"))
	assert.Equal(t, "1.930901", SecID("930901"))
	assert.Equal(t, "0.159919", SecID("159919"))
	assert.Equal(t, "0.000819", SecID("000819"))
}

func TestVendorFloat(t *testing.T) {
	_, ok := vendorFloat("-")
	assert.False(t, ok)
	_, ok = vendorFloat(nil)
	assert.False(t, ok)
	v, ok := vendorFloat("3.5")
	assert.True(t, ok)
	assert.Equal(t, 3.5, v)
}
