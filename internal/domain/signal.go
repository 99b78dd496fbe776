package domain

import (
	"fmt"
	"time"
)

// Action es la acción discreta que emite una estrategia.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
	ActionExit Action = "EXIT"
)

// Signal es la salida de una estrategia en un instante concreto.
// El timestamp debe corresponder a una vela ya cerrada (sin lookahead).
type Signal struct {
	Timestamp  time.Time
	Action     Action
	Price      float64
	Confidence float64 // opcional, 0 si la estrategia no lo informa
}

// Validate verifica que la señal sea bien formada por sí sola:
// acción conocida y precio positivo para las acciones que operan.
func (s Signal) Validate() error {
	switch s.Action {
	case ActionBuy, ActionSell, ActionHold, ActionExit:
	default:
		return fmt.Errorf("unknown action %q", s.Action)
	}
	if s.Timestamp.IsZero() {
		return fmt.Errorf("signal %s: zero timestamp", s.Action)
	}
	if s.Action != ActionHold && s.Price <= 0 {
		return fmt.Errorf("signal %s at %s: non-positive price %v",
			s.Action, s.Timestamp.Format(time.RFC3339), s.Price)
	}
	return nil
}

// Opens devuelve true si la acción abre posición estando flat.
func (a Action) Opens() bool { return a == ActionBuy || a == ActionSell }
