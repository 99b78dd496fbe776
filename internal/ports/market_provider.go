package ports

import (
	"context"

	"github.com/alejandrodnm/backscan/internal/domain"
)

// CandleProvider obtiene velas históricas de una fuente de datos de mercado.
type CandleProvider interface {
	// FetchCandles devuelve hasta limit velas para el símbolo y timeframe
	// dados, ordenadas ascendentemente por timestamp.
	FetchCandles(ctx context.Context, symbol, timeframe string, limit int) (domain.CandleSeries, error)
}
