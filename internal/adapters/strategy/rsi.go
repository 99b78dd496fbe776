package strategy

// rsi.go — estrategia de reversión a la media sobre RSI de Wilder.
// Buy al salir de sobreventa, Exit al entrar en sobrecompra.

import (
	"fmt"

	"github.com/alejandrodnm/backscan/internal/domain"
)

// RSIReversion implementa ports.Strategy con umbrales de RSI.
type RSIReversion struct {
	Period     int
	Oversold   float64
	Overbought float64
}

// NewRSIReversion crea la estrategia con el periodo y umbrales dados.
func NewRSIReversion(period int, oversold, overbought float64) (*RSIReversion, error) {
	if period <= 1 {
		return nil, fmt.Errorf("strategy.NewRSIReversion: period %d, need > 1", period)
	}
	if oversold <= 0 || overbought >= 100 || oversold >= overbought {
		return nil, fmt.Errorf("strategy.NewRSIReversion: need 0 < oversold < overbought < 100, got %v/%v",
			oversold, overbought)
	}
	return &RSIReversion{Period: period, Oversold: oversold, Overbought: overbought}, nil
}

// Name implementa ports.Strategy.
func (s *RSIReversion) Name() string {
	return fmt.Sprintf("rsi-%d-%.0f-%.0f", s.Period, s.Oversold, s.Overbought)
}

// GenerateSignals implementa ports.Strategy.
func (s *RSIReversion) GenerateSignals(series domain.CandleSeries) ([]domain.Signal, error) {
	candles := series.Candles
	if len(candles) <= s.Period+1 {
		return nil, fmt.Errorf("strategy %s: %d candles, need more than %d: %w",
			s.Name(), len(candles), s.Period+1, domain.ErrNoData)
	}

	rsi := wilderRSI(candles, s.Period)

	var signals []domain.Signal
	for i := s.Period + 1; i < len(candles); i++ {
		prev, now := rsi[i-1], rsi[i]

		var action domain.Action
		switch {
		case prev <= s.Oversold && now > s.Oversold:
			action = domain.ActionBuy
		case prev < s.Overbought && now >= s.Overbought:
			action = domain.ActionExit
		default:
			continue
		}

		signals = append(signals, domain.Signal{
			Timestamp: candles[i].Timestamp,
			Action:    action,
			Price:     candles[i].Close,
		})
	}
	return signals, nil
}

// wilderRSI calcula el RSI suavizado de Wilder para toda la serie.
// Los índices < period quedan en 50 (neutral) para no emitir señales
// antes de tener datos suficientes.
func wilderRSI(candles []domain.Candle, period int) []float64 {
	rsi := make([]float64, len(candles))
	for i := range rsi {
		rsi[i] = 50
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := candles[i].Close - candles[i-1].Close
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss += -delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	rsi[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(candles); i++ {
		delta := candles[i].Close - candles[i-1].Close
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		rsi[i] = rsiValue(avgGain, avgLoss)
	}
	return rsi
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
