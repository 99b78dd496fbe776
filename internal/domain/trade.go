package domain

import (
	"time"

	"github.com/google/uuid"
)

// Outcome clasifica el resultado de un trade cerrado.
type Outcome string

const (
	OutcomeWin       Outcome = "WIN"
	OutcomeLoss      Outcome = "LOSS"
	OutcomeBreakeven Outcome = "BREAKEVEN"
)

// Razones de salida estándar que usa el motor de simulación.
const (
	ReasonSignal     = "Exit Signal"
	ReasonStopLoss   = "Stop Loss"
	ReasonTakeProfit = "Take Profit"
	ReasonEndOfData  = "End of Data"
)

// Trade es un round-trip completado. Inmutable una vez creado:
// solo se construye cerrando una Position existente.
type Trade struct {
	ID         string
	Symbol     string
	Side       Side
	EntryPrice float64
	EntryTime  time.Time
	ExitPrice  float64
	ExitTime   time.Time
	Quantity   float64
	PnLAbs     float64
	PnLPct     float64
	Duration   time.Duration
	Outcome    Outcome
	ExitReason string
}

// CloseTrade convierte una posición abierta en un Trade cerrado al
// precio y momento dados. El PnL depende del lado:
// Long: (salida - entrada) × qty. Short: (entrada - salida) × qty.
func CloseTrade(pos Position, exitPrice float64, exitTime time.Time, reason string) Trade {
	pnlAbs := pos.UnrealizedPnL(exitPrice)

	pnlPct := 0.0
	if basis := pos.CostBasis(); basis != 0 {
		pnlPct = pnlAbs / basis * 100
	}

	outcome := OutcomeBreakeven
	switch {
	case pnlAbs > 0:
		outcome = OutcomeWin
	case pnlAbs < 0:
		outcome = OutcomeLoss
	}

	return Trade{
		ID:         uuid.NewString(),
		Symbol:     pos.Symbol,
		Side:       pos.Side,
		EntryPrice: pos.EntryPrice,
		EntryTime:  pos.EntryTime,
		ExitPrice:  exitPrice,
		ExitTime:   exitTime,
		Quantity:   pos.Quantity,
		PnLAbs:     pnlAbs,
		PnLPct:     pnlPct,
		Duration:   exitTime.Sub(pos.EntryTime),
		Outcome:    outcome,
		ExitReason: reason,
	}
}
