package marketdata_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alejandrodnm/backscan/internal/adapters/marketdata"
	"github.com/alejandrodnm/backscan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const klinesBody = `[
  [1709287200000, "100.0", "105.0", "99.0", "104.0", "1234.5", 1709290799999, "0", 10, "0", "0", "0"],
  [1709290800000, "104.0", "106.0", "103.0", "105.5", "987.1", 1709294399999, "0", 12, "0", "0", "0"]
]`

func TestClient_FetchCandles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1h", r.URL.Query().Get("interval"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(klinesBody))
	}))
	defer srv.Close()

	client := marketdata.NewClient(srv.URL)
	series, err := client.FetchCandles(context.Background(), "BTCUSDT", "1h", 2)
	require.NoError(t, err)

	require.Equal(t, 2, series.Len())
	require.NoError(t, series.Validate())

	first := series.Candles[0]
	assert.Equal(t, time.UnixMilli(1709287200000).UTC(), first.Timestamp)
	assert.InDelta(t, 100.0, first.Open, 1e-9)
	assert.InDelta(t, 105.0, first.High, 1e-9)
	assert.InDelta(t, 99.0, first.Low, 1e-9)
	assert.InDelta(t, 104.0, first.Close, 1e-9)
	assert.InDelta(t, 1234.5, first.Volume, 1e-9)
}

func TestClient_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := marketdata.NewClient(srv.URL)
	_, err := client.FetchCandles(context.Background(), "BTCUSDT", "1h", 10)
	assert.ErrorIs(t, err, domain.ErrNoData)
}

func TestClient_ClientErrorNotRetried(t *testing.T) {
	// Un 400 es definitivo: una sola request, sin retries.
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	client := marketdata.NewClient(srv.URL)
	_, err := client.FetchCandles(context.Background(), "NOPE", "1h", 10)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid symbol")
	assert.Equal(t, 1, hits)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	// Los 5xx se reintentan hasta que el servidor responde bien.
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits < 3 {
			http.Error(w, "upstream down", http.StatusBadGateway)
			return
		}
		w.Write([]byte(klinesBody))
	}))
	defer srv.Close()

	client := marketdata.NewClient(srv.URL)
	series, err := client.FetchCandles(context.Background(), "BTCUSDT", "1h", 2)

	require.NoError(t, err)
	assert.Equal(t, 3, hits)
	assert.Equal(t, 2, series.Len())
}

func TestClient_MalformedKline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[[1709287200000, "100.0"]]`))
	}))
	defer srv.Close()

	client := marketdata.NewClient(srv.URL)
	_, err := client.FetchCandles(context.Background(), "BTCUSDT", "1h", 1)
	assert.Error(t, err)
}
