package ports

import (
	"context"

	"github.com/alejandrodnm/backscan/internal/domain"
)

// Notifier presenta los resultados de un batch al usuario.
type Notifier interface {
	// Notify muestra los runs exitosos y la lista de fallos.
	// En la implementación de consola, imprime tablas formateadas.
	Notify(ctx context.Context, batch domain.BatchResult) error
}
