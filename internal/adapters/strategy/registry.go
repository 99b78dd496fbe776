package strategy

import (
	"fmt"

	"github.com/alejandrodnm/backscan/internal/ports"
)

// FromName construye la estrategia identificada por nombre con sus
// parámetros por defecto. Nuevas estrategias se registran aquí: el
// motor solo conoce el puerto, nunca implementaciones concretas.
func FromName(name string) (ports.Strategy, error) {
	switch name {
	case "sma-cross", "sma":
		return NewSMACross(10, 30)
	case "rsi":
		return NewRSIReversion(14, 30, 70)
	default:
		return nil, fmt.Errorf("strategy.FromName: unknown strategy %q (want sma-cross|rsi)", name)
	}
}
