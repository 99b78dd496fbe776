package engine

// concurrent.go — worker pool para backtests de N símbolos en paralelo.
//
// Cada símbolo es independiente: su serie, sus señales, su tracker y su
// curva de equity pertenecen en exclusiva a la goroutine que lo procesa.
// El único punto de estado compartido es el merge de resultados, que
// ocurre en el consumidor del channel de resultados.

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/alejandrodnm/backscan/internal/domain"
)

// outcome es el resultado (éxito o fallo) de un símbolo.
type outcome struct {
	result  *domain.RunResult
	failure *domain.RunFailure
}

// RunBatch ejecuta el backtest de todos los símbolos con un pool acotado
// de workers. Un fallo en un símbolo no aborta el batch: se registra en
// Failures y el resto continúa. La cancelación del contexto detiene los
// símbolos en vuelo y conserva los resultados ya completados.
func (e *Engine) RunBatch(ctx context.Context, symbols []string, timeframe string, limit int) domain.BatchResult {
	start := time.Now().UTC()

	workers := e.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(symbols) {
		workers = len(symbols)
	}

	workCh := make(chan string, len(symbols))
	resultCh := make(chan outcome, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range workCh {
				select {
				case <-ctx.Done():
					return
				default:
				}
				resultCh <- e.runOne(ctx, symbol, timeframe, limit)
			}
		}()
	}

	for _, symbol := range symbols {
		workCh <- symbol
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// Merge: único acceso a estado compartido, serializado por el channel.
	batch := domain.BatchResult{StartedAt: start}
	for out := range resultCh {
		if out.result != nil {
			batch.Results = append(batch.Results, *out.result)
		}
		if out.failure != nil {
			batch.Failures = append(batch.Failures, *out.failure)
		}
	}
	batch.Duration = time.Since(start)

	slog.Info("batch complete",
		"symbols", len(symbols),
		"ok", len(batch.Results),
		"failed", len(batch.Failures),
		"workers", workers,
		"duration", batch.Duration.Round(time.Millisecond),
	)
	return batch
}

// runOne ejecuta un símbolo con su presupuesto de tiempo propio y
// clasifica el fallo por etapa para el report del batch.
func (e *Engine) runOne(ctx context.Context, symbol, timeframe string, limit int) outcome {
	symCtx := ctx
	if e.cfg.SymbolTimeout > 0 {
		var cancel context.CancelFunc
		symCtx, cancel = context.WithTimeout(ctx, e.cfg.SymbolTimeout)
		defer cancel()
	}

	result, err := e.RunSymbol(symCtx, symbol, timeframe, limit)
	if err != nil {
		stage := classifyStage(err)
		slog.Warn("symbol failed", "symbol", symbol, "stage", stage, "err", err)
		return outcome{failure: &domain.RunFailure{Symbol: symbol, Stage: stage, Err: err}}
	}

	slog.Debug("symbol complete",
		"symbol", symbol,
		"trades", result.Report.TotalTrades,
		"return_pct", result.Report.TotalReturnPct,
	)
	return outcome{result: &result}
}

// classifyStage mapea el error de un símbolo a la etapa que falló.
func classifyStage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, domain.ErrNoData):
		return "data"
	default:
		return "run"
	}
}
