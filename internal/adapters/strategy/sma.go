package strategy

// sma.go — estrategia de cruce de medias móviles simples.
// Señal Buy cuando la media rápida cruza por encima de la lenta,
// Sell cuando cruza por debajo. Cada señal va alineada al timestamp de
// la vela que completa el cruce: solo usa velas ya cerradas.

import (
	"fmt"

	"github.com/alejandrodnm/backscan/internal/domain"
)

// SMACross implementa ports.Strategy con un cruce de SMAs.
type SMACross struct {
	Fast int
	Slow int
}

// NewSMACross crea la estrategia con los periodos dados.
func NewSMACross(fast, slow int) (*SMACross, error) {
	if fast <= 0 || slow <= 0 || fast >= slow {
		return nil, fmt.Errorf("strategy.NewSMACross: need 0 < fast < slow, got %d/%d", fast, slow)
	}
	return &SMACross{Fast: fast, Slow: slow}, nil
}

// Name implementa ports.Strategy.
func (s *SMACross) Name() string {
	return fmt.Sprintf("sma-cross-%d-%d", s.Fast, s.Slow)
}

// GenerateSignals implementa ports.Strategy.
func (s *SMACross) GenerateSignals(series domain.CandleSeries) ([]domain.Signal, error) {
	candles := series.Candles
	if len(candles) <= s.Slow {
		return nil, fmt.Errorf("strategy %s: %d candles, need more than %d: %w",
			s.Name(), len(candles), s.Slow, domain.ErrNoData)
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	var signals []domain.Signal
	for i := s.Slow; i < len(candles); i++ {
		fastNow := sma(closes, i, s.Fast)
		slowNow := sma(closes, i, s.Slow)
		fastPrev := sma(closes, i-1, s.Fast)
		slowPrev := sma(closes, i-1, s.Slow)

		var action domain.Action
		switch {
		case fastPrev <= slowPrev && fastNow > slowNow:
			action = domain.ActionBuy
		case fastPrev >= slowPrev && fastNow < slowNow:
			action = domain.ActionSell
		default:
			continue
		}

		signals = append(signals, domain.Signal{
			Timestamp:  candles[i].Timestamp,
			Action:     action,
			Price:      candles[i].Close,
			Confidence: crossStrength(fastNow, slowNow),
		})
	}
	return signals, nil
}

// sma calcula la media simple de los `period` cierres hasta el índice i inclusive.
func sma(closes []float64, i, period int) float64 {
	var sum float64
	for j := i - period + 1; j <= i; j++ {
		sum += closes[j]
	}
	return sum / float64(period)
}

// crossStrength aproxima la confianza como separación relativa de las medias.
func crossStrength(fast, slow float64) float64 {
	if slow == 0 {
		return 0
	}
	d := (fast - slow) / slow
	if d < 0 {
		d = -d
	}
	if d > 1 {
		d = 1
	}
	return d
}
