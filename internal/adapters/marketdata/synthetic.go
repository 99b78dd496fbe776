package marketdata

// synthetic.go — generador de velas sintéticas para demos y tests.
//
// Es un proveedor explícito y separado del path de datos reales: se
// selecciona solo con el flag -synthetic o por config, NUNCA como
// fallback silencioso cuando el fetch real falla.

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/alejandrodnm/backscan/internal/domain"
)

// Synthetic genera series OHLCV deterministas por símbolo mediante un
// random walk sembrado con el nombre del símbolo: mismo símbolo,
// misma serie en cada ejecución.
type Synthetic struct {
	basePrice  float64
	volatility float64
	start      time.Time
}

// NewSynthetic crea un generador con precio base y volatilidad por paso.
// Valores no positivos caen a defaults razonables.
func NewSynthetic(basePrice, volatility float64) *Synthetic {
	if basePrice <= 0 {
		basePrice = 100
	}
	if volatility <= 0 {
		volatility = 0.02
	}
	return &Synthetic{
		basePrice:  basePrice,
		volatility: volatility,
		start:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// FetchCandles implementa ports.CandleProvider con datos sintéticos.
func (s *Synthetic) FetchCandles(_ context.Context, symbol, timeframe string, limit int) (domain.CandleSeries, error) {
	if limit <= 0 {
		return domain.CandleSeries{}, fmt.Errorf("marketdata.Synthetic %s: %w", symbol, domain.ErrNoData)
	}

	step, err := timeframeDuration(timeframe)
	if err != nil {
		return domain.CandleSeries{}, fmt.Errorf("marketdata.Synthetic %s: %w", symbol, err)
	}

	rng := rand.New(rand.NewSource(seedFor(symbol)))
	price := s.basePrice * (0.5 + rng.Float64()) // nivel inicial propio de cada símbolo

	candles := make([]domain.Candle, 0, limit)
	ts := s.start
	for i := 0; i < limit; i++ {
		// Random walk con leve drift alcista
		change := rng.NormFloat64()*s.volatility + 0.0002
		open := price
		close := open * (1 + change)
		if close <= 0 {
			close = open * 0.5
		}

		high := math.Max(open, close) * (1 + rng.Float64()*s.volatility/2)
		low := math.Min(open, close) * (1 - rng.Float64()*s.volatility/2)
		if low <= 0 {
			low = math.Min(open, close) * 0.9
		}

		candles = append(candles, domain.Candle{
			Timestamp: ts,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    1000 + rng.Float64()*9000,
		})

		price = close
		ts = ts.Add(step)
	}

	return domain.CandleSeries{
		Symbol:    symbol,
		Timeframe: timeframe,
		Candles:   candles,
	}, nil
}

// seedFor deriva una semilla estable del nombre del símbolo.
func seedFor(symbol string) int64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	return int64(h.Sum64())
}

// timeframeDuration mapea los timeframes estilo exchange a duraciones.
func timeframeDuration(tf string) (time.Duration, error) {
	switch tf {
	case "1m":
		return time.Minute, nil
	case "5m":
		return 5 * time.Minute, nil
	case "15m":
		return 15 * time.Minute, nil
	case "1h":
		return time.Hour, nil
	case "4h":
		return 4 * time.Hour, nil
	case "1d":
		return 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown timeframe %q", tf)
	}
}
