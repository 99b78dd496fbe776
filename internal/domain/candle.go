package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoData indica que el proveedor no devolvió velas para el símbolo.
var ErrNoData = errors.New("no candle data")

// MinCandles es el mínimo de velas necesarias para simular algo con sentido.
const MinCandles = 2

// Candle es una barra OHLCV de un símbolo en un timeframe fijo.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// CandleSeries es la secuencia ordenada de velas de un símbolo.
// Las velas deben estar en orden ascendente estricto de timestamp.
type CandleSeries struct {
	Symbol    string
	Timeframe string
	Candles   []Candle
}

// Len devuelve el número de velas de la serie.
func (s CandleSeries) Len() int { return len(s.Candles) }

// Last devuelve la última vela de la serie.
// ok es false si la serie está vacía.
func (s CandleSeries) Last() (Candle, bool) {
	if len(s.Candles) == 0 {
		return Candle{}, false
	}
	return s.Candles[len(s.Candles)-1], true
}

// Span devuelve la ventana temporal cubierta por la serie.
func (s CandleSeries) Span() time.Duration {
	if len(s.Candles) < 2 {
		return 0
	}
	return s.Candles[len(s.Candles)-1].Timestamp.Sub(s.Candles[0].Timestamp)
}

// Validate verifica las invariantes de la serie: suficientes velas,
// timestamps estrictamente crecientes, precios positivos y el sobre
// high/low coherente con open/close.
func (s CandleSeries) Validate() error {
	if len(s.Candles) == 0 {
		return fmt.Errorf("series %q: %w", s.Symbol, ErrNoData)
	}
	if len(s.Candles) < MinCandles {
		return fmt.Errorf("series %q: %d candles, need at least %d: %w",
			s.Symbol, len(s.Candles), MinCandles, ErrNoData)
	}

	var prev time.Time
	for i, c := range s.Candles {
		if err := c.validate(); err != nil {
			return fmt.Errorf("series %q: candle %d: %w", s.Symbol, i, err)
		}
		if i > 0 && !c.Timestamp.After(prev) {
			return fmt.Errorf("series %q: candle %d: timestamp %s not after %s",
				s.Symbol, i, c.Timestamp.Format(time.RFC3339), prev.Format(time.RFC3339))
		}
		prev = c.Timestamp
	}
	return nil
}

// validate verifica las invariantes de una vela individual.
func (c Candle) validate() error {
	if c.Timestamp.IsZero() {
		return errors.New("zero timestamp")
	}
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return fmt.Errorf("non-positive price (o=%v h=%v l=%v c=%v)", c.Open, c.High, c.Low, c.Close)
	}
	if c.High < c.Open || c.High < c.Close {
		return fmt.Errorf("high %v below open/close", c.High)
	}
	if c.Low > c.Open || c.Low > c.Close {
		return fmt.Errorf("low %v above open/close", c.Low)
	}
	return nil
}
