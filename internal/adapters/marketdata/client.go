package marketdata

// client.go — cliente HTTP de velas estilo exchange (endpoint klines).
// Rate limiting con golang.org/x/time y retries con backoff exponencial
// y jitter. Devuelve series ascendentes listas para validar.

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alejandrodnm/backscan/internal/domain"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.binance.com"

	// Límite público de klines ~1200 weight/min; nos quedamos muy por debajo.
	klinesRatePerSec = 10

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Client obtiene velas históricas de un API REST estilo Binance.
type Client struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
}

// NewClient crea un Client para el base URL dado.
// Con baseURL vacío usa el API público de producción.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		limiter: rate.NewLimiter(klinesRatePerSec, 5),
	}
}

// FetchCandles implementa ports.CandleProvider.
// Devuelve hasta limit velas ascendentes por timestamp.
func (c *Client) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) (domain.CandleSeries, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", timeframe)
	q.Set("limit", strconv.Itoa(limit))
	endpoint := c.baseURL + "/api/v3/klines?" + q.Encode()

	var raw [][]any
	if err := c.get(ctx, endpoint, &raw); err != nil {
		return domain.CandleSeries{}, fmt.Errorf("marketdata.FetchCandles %s: %w", symbol, err)
	}
	if len(raw) == 0 {
		return domain.CandleSeries{}, fmt.Errorf("marketdata.FetchCandles %s: %w", symbol, domain.ErrNoData)
	}

	candles := make([]domain.Candle, 0, len(raw))
	for i, k := range raw {
		candle, err := parseKline(k)
		if err != nil {
			return domain.CandleSeries{}, fmt.Errorf("marketdata.FetchCandles %s: kline %d: %w", symbol, i, err)
		}
		candles = append(candles, candle)
	}

	return domain.CandleSeries{
		Symbol:    symbol,
		Timeframe: timeframe,
		Candles:   candles,
	}, nil
}

// parseKline convierte una fila kline [openTime, open, high, low, close,
// volume, ...] en una vela. Los precios vienen como strings.
func parseKline(k []any) (domain.Candle, error) {
	if len(k) < 6 {
		return domain.Candle{}, fmt.Errorf("kline has %d fields, want >= 6", len(k))
	}

	openTime, ok := k[0].(float64)
	if !ok {
		return domain.Candle{}, fmt.Errorf("open time is %T, want number", k[0])
	}

	vals := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		s, ok := k[i].(string)
		if !ok {
			return domain.Candle{}, fmt.Errorf("field %d is %T, want string", i, k[i])
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.Candle{}, fmt.Errorf("field %d: %w", i, err)
		}
		vals[i-1] = v
	}

	return domain.Candle{
		Timestamp: time.UnixMilli(int64(openTime)).UTC(),
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
	}, nil
}

// get hace un GET con rate limiting y retries.
func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by API", "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial y jitter, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	wait += time.Duration(rand.Int63n(int64(baseRetryWait)))
	select {
	case <-ctx.Done():
	case <-time.After(wait):
	}
}
