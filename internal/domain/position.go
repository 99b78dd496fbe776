package domain

import "time"

// Side es la dirección de una exposición abierta.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Position es la exposición abierta en un símbolo.
// Invariante: como máximo una posición abierta por símbolo
// (sin piramidación ni netting).
type Position struct {
	Symbol     string
	Side       Side
	EntryPrice float64
	EntryTime  time.Time
	Quantity   float64
}

// CostBasis devuelve el capital comprometido en la posición.
func (p Position) CostBasis() float64 {
	return p.EntryPrice * p.Quantity
}

// UnrealizedPnL devuelve el PnL absoluto sin cerrar al precio dado.
// Long: (actual - entrada) × qty. Short: (entrada - actual) × qty.
func (p Position) UnrealizedPnL(current float64) float64 {
	if p.Side == SideShort {
		return (p.EntryPrice - current) * p.Quantity
	}
	return (current - p.EntryPrice) * p.Quantity
}

// UnrealizedPnLPct devuelve el PnL sin cerrar como % del coste de entrada.
func (p Position) UnrealizedPnLPct(current float64) float64 {
	basis := p.CostBasis()
	if basis == 0 {
		return 0
	}
	return p.UnrealizedPnL(current) / basis * 100
}
