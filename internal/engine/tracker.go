package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/backscan/internal/domain"
)

// Violaciones del contrato de posiciones. Se devuelven al caller sin
// tragarse: abrir dos veces o cerrar sin posición es un bug de la
// estrategia o del orquestador, no una condición operativa normal.
var (
	ErrPositionAlreadyOpen = errors.New("position already open")
	ErrNoOpenPosition      = errors.New("no open position")
	ErrInvalidPrice        = errors.New("invalid price")
	ErrInvalidQuantity     = errors.New("invalid quantity")
)

// Tracker mantiene como máximo una posición abierta por símbolo y
// convierte cierres en trades del ledger. Es una máquina de estados
// pura en memoria: ninguna operación hace I/O ni bloquea.
type Tracker struct {
	open   map[string]domain.Position
	ledger *Ledger
}

// NewTracker crea un Tracker que apendea los cierres al ledger dado.
func NewTracker(ledger *Ledger) *Tracker {
	return &Tracker{
		open:   make(map[string]domain.Position),
		ledger: ledger,
	}
}

// Open abre una posición para el símbolo.
// Falla con ErrPositionAlreadyOpen si ya existe una, y con
// ErrInvalidPrice/ErrInvalidQuantity si precio o cantidad no son positivos.
func (t *Tracker) Open(symbol string, side domain.Side, price float64, at time.Time, quantity float64) (domain.Position, error) {
	if price <= 0 {
		return domain.Position{}, fmt.Errorf("tracker.Open %s: price %v: %w", symbol, price, ErrInvalidPrice)
	}
	if quantity <= 0 {
		return domain.Position{}, fmt.Errorf("tracker.Open %s: quantity %v: %w", symbol, quantity, ErrInvalidQuantity)
	}
	if _, exists := t.open[symbol]; exists {
		return domain.Position{}, fmt.Errorf("tracker.Open %s: %w", symbol, ErrPositionAlreadyOpen)
	}

	pos := domain.Position{
		Symbol:     symbol,
		Side:       side,
		EntryPrice: price,
		EntryTime:  at,
		Quantity:   quantity,
	}
	t.open[symbol] = pos
	return pos, nil
}

// Close cierra la posición abierta del símbolo al precio dado.
// La posición se elimina y el Trade resultante se apendea al ledger.
func (t *Tracker) Close(symbol string, price float64, at time.Time, reason string) (domain.Trade, error) {
	if price <= 0 {
		return domain.Trade{}, fmt.Errorf("tracker.Close %s: price %v: %w", symbol, price, ErrInvalidPrice)
	}
	pos, exists := t.open[symbol]
	if !exists {
		return domain.Trade{}, fmt.Errorf("tracker.Close %s: %w", symbol, ErrNoOpenPosition)
	}

	trade := domain.CloseTrade(pos, price, at, reason)
	delete(t.open, symbol)
	t.ledger.Append(trade)
	return trade, nil
}

// Position devuelve la posición abierta del símbolo, si existe.
func (t *Tracker) Position(symbol string) (domain.Position, bool) {
	pos, ok := t.open[symbol]
	return pos, ok
}

// HasOpen devuelve true si hay posición abierta para el símbolo.
func (t *Tracker) HasOpen(symbol string) bool {
	_, ok := t.open[symbol]
	return ok
}

// UnrealizedPnLPct devuelve el PnL sin cerrar como % del coste de entrada,
// o 0 si no hay posición abierta.
func (t *Tracker) UnrealizedPnLPct(symbol string, current float64) float64 {
	pos, ok := t.open[symbol]
	if !ok {
		return 0
	}
	return pos.UnrealizedPnLPct(current)
}

// UnrealizedPnL devuelve el PnL absoluto sin cerrar, o 0 si no hay posición.
func (t *Tracker) UnrealizedPnL(symbol string, current float64) float64 {
	pos, ok := t.open[symbol]
	if !ok {
		return 0
	}
	return pos.UnrealizedPnL(current)
}
