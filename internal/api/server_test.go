package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/liqwatch/liqhub/internal/broker"
	"github.com/liqwatch/liqhub/internal/domain"
	"github.com/liqwatch/liqhub/internal/store"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, domain.EventTZ)

// newTestServer builds a server over a seeded store with a frozen clock.
func newTestServer(t *testing.T, events ...domain.Event) *Server {
	t.Helper()

	st := store.New(store.DefaultRetention)
	for _, e := range events {
		st.Append(e)
	}
	br := broker.New(zap.NewNop())

	return NewServer(Config{Now: func() time.Time { return testNow }}, st, br, zap.NewNop())
}

func apiEvent(minsAgo int, symbol string, exchange domain.Exchange, direction domain.Direction, price, amount float64) domain.Event {
	return domain.Event{
		Time:      testNow.Add(-time.Duration(minsAgo) * time.Minute),
		Symbol:    symbol,
		Exchange:  exchange,
		Price:     price,
		Direction: direction,
		Amount:    amount,
	}
}

func doGET(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_HandleData(t *testing.T) {
	s := newTestServer(t,
		apiEvent(1, "BTC", domain.ExchangeBinance, domain.LongLiquidated, 40000, 100),
		apiEvent(2, "BTC", domain.ExchangeBinance, domain.LongLiquidated, 40000, 100),
		apiEvent(10, "ETH", domain.ExchangeOKX, domain.ShortLiquidated, 3000, 500),
	)

	rec := doGET(t, s, "/data")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var body map[string]struct {
		TopLong      map[string]float64 `json:"top_long"`
		TopShort     map[string]float64 `json:"top_short"`
		BinanceLong  float64            `json:"binance_long"`
		BinanceShort float64            `json:"binance_short"`
		OkxLong      float64            `json:"okx_long"`
		OkxShort     float64            `json:"okx_short"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	require.Contains(t, body, "3")
	require.Contains(t, body, "15")
	require.Contains(t, body, "60")
	require.Contains(t, body, "240")
	require.Contains(t, body, "1440")

	assert.Equal(t, float64(200), body["3"].TopLong["BTC"])
	assert.NotContains(t, body["3"].TopShort, "ETH")
	assert.Equal(t, float64(500), body["15"].TopShort["ETH"])
	assert.Equal(t, float64(200), body["15"].BinanceLong)
	assert.Equal(t, float64(500), body["15"].OkxShort)
}

func TestServer_HandleLatest(t *testing.T) {
	events := make([]domain.Event, 0, 60)
	for i := 60; i > 0; i-- {
		events = append(events, apiEvent(i, "BTC", domain.ExchangeBinance, domain.LongLiquidated, 40000, 100))
	}
	s := newTestServer(t, events...)

	rec := doGET(t, s, "/latest_liquidations")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body, store.DefaultLatestLimit)

	// Oldest first; the last entry is the newest event.
	last := body[len(body)-1]
	assert.Equal(t, testNow.Add(-time.Minute).Format(domain.TimeLayout), last["datetime"])
	assert.Equal(t, "BTC", last["symbol"])
}

func TestServer_HandleHistory(t *testing.T) {
	s := newTestServer(t,
		apiEvent(30, "BTC", domain.ExchangeBinance, domain.LongLiquidated, 40000, 100),
		apiEvent(20, "ETH", domain.ExchangeOKX, domain.ShortLiquidated, 3000, 200),
		apiEvent(10, "BTC", domain.ExchangeOKX, domain.LongLiquidated, 40100, 300),
	)

	t.Run("filters by symbol", func(t *testing.T) {
		rec := doGET(t, s, "/history?symbols=BTC")
		require.Equal(t, http.StatusOK, rec.Code)

		var body []map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body, 2)
		assert.Equal(t, "BTC", body[0]["symbol"])
	})

	t.Run("filters by exchange and limit", func(t *testing.T) {
		rec := doGET(t, s, "/history?exchanges=OKX&limit=1")
		require.Equal(t, http.StatusOK, rec.Code)

		var body []map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body, 1)
		assert.Equal(t, float64(300), body[0]["amount"])
	})

	t.Run("bad params are a 400", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, doGET(t, s, "/history?since=banana").Code)
		assert.Equal(t, http.StatusBadRequest, doGET(t, s, "/history?exchanges=Bitmex").Code)
		assert.Equal(t, http.StatusBadRequest, doGET(t, s, "/history?limit=ten").Code)
	})
}

func TestServer_HandleSymbolStats(t *testing.T) {
	s := newTestServer(t,
		apiEvent(1, "BTC", domain.ExchangeBinance, domain.LongLiquidated, 40000, 100),
		apiEvent(2, "BTC", domain.ExchangeBinance, domain.LongLiquidated, 41000, 300),
		apiEvent(1, "ETH", domain.ExchangeOKX, domain.ShortLiquidated, 3000, 200),
	)

	rec := doGET(t, s, "/symbol_stats?symbols=BTC")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]map[string]struct {
		LongTotal  float64  `json:"long_total"`
		ShortTotal float64  `json:"short_total"`
		LongVWAP   *float64 `json:"long_vwap"`
		ShortVWAP  *float64 `json:"short_vwap"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	require.Contains(t, body, "BTC")
	assert.NotContains(t, body, "ETH")

	btc := body["BTC"]["3"]
	assert.Equal(t, float64(400), btc.LongTotal)
	require.NotNil(t, btc.LongVWAP)
	assert.InDelta(t, 40750, *btc.LongVWAP, 1e-9)
	// No shorts in the window: total zero, VWAP null.
	assert.Zero(t, btc.ShortTotal)
	assert.Nil(t, btc.ShortVWAP)
}

func TestServer_HandleHealth(t *testing.T) {
	t.Run("unseen exchanges report nulls", func(t *testing.T) {
		s := newTestServer(t)

		rec := doGET(t, s, "/health")
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]struct {
			LastSeen   *string  `json:"last_seen"`
			LagSeconds *float64 `json:"lag_seconds"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

		require.Contains(t, body, "Binance")
		require.Contains(t, body, "OKX")
		assert.Nil(t, body["Binance"].LastSeen)
		assert.Nil(t, body["Binance"].LagSeconds)
	})

	t.Run("seen exchange reports timestamp and lag", func(t *testing.T) {
		s := newTestServer(t,
			apiEvent(5, "BTC", domain.ExchangeBinance, domain.LongLiquidated, 40000, 100),
		)

		rec := doGET(t, s, "/health")
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]struct {
			LastSeen   *string  `json:"last_seen"`
			LagSeconds *float64 `json:"lag_seconds"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

		require.NotNil(t, body["Binance"].LastSeen)
		assert.Equal(t, testNow.Add(-5*time.Minute).Format(domain.TimeLayout), *body["Binance"].LastSeen)
		require.NotNil(t, body["Binance"].LagSeconds)
		assert.InDelta(t, 300, *body["Binance"].LagSeconds, 1e-9)

		assert.Nil(t, body["OKX"].LastSeen)
	})
}

func TestServer_CORS(t *testing.T) {
	s := newTestServer(t)

	rec := doGET(t, s, "/health")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodOptions, "/data", nil)
	pre := httptest.NewRecorder()
	s.Handler().ServeHTTP(pre, req)
	assert.Equal(t, http.StatusNoContent, pre.Code)
	assert.Equal(t, "*", pre.Header().Get("Access-Control-Allow-Origin"))
}
