package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/backscan/internal/domain"
)

// Storage persiste el histórico de runs de backtest.
type Storage interface {
	// SaveBatch guarda los reports y trades de un batch completo.
	SaveBatch(ctx context.Context, batch domain.BatchResult) error

	// GetReports devuelve los reports guardados en el rango dado,
	// ordenados por retorno total descendente.
	GetReports(ctx context.Context, from, to time.Time) ([]domain.Report, error)

	Close() error
}
