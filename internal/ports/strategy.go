package ports

import "github.com/alejandrodnm/backscan/internal/domain"

// Strategy produce señales discretas a partir de una serie de velas.
// Contrato: las señales van alineadas a timestamps de velas ya cerradas
// (sin lookahead) y en orden ascendente.
type Strategy interface {
	// Name identifica la estrategia en reports y almacenamiento.
	Name() string

	// GenerateSignals recorre la serie y devuelve las señales ordenadas.
	GenerateSignals(series domain.CandleSeries) ([]domain.Signal, error)
}
