package engine

import "github.com/alejandrodnm/backscan/internal/domain"

// Ledger es el registro append-only de trades cerrados.
// Solo el Tracker apendea (vía Close); los trades nunca se mutan.
type Ledger struct {
	trades []domain.Trade
}

// NewLedger crea un ledger vacío.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Append añade un trade cerrado al final del ledger.
func (l *Ledger) Append(trade domain.Trade) {
	l.trades = append(l.trades, trade)
}

// Len devuelve el número de trades registrados.
func (l *Ledger) Len() int { return len(l.trades) }

// Trades devuelve una copia de los trades en orden de cierre.
func (l *Ledger) Trades() []domain.Trade {
	out := make([]domain.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// NetPnL devuelve la suma del PnL absoluto de todos los trades.
func (l *Ledger) NetPnL() float64 {
	var net float64
	for _, t := range l.trades {
		net += t.PnLAbs
	}
	return net
}
