package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/backscan/internal/adapters/storage"
	"github.com/alejandrodnm/backscan/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStorage(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// makeResult construye un RunResult mínimo pero coherente para persistir.
func makeResult(symbol string, returnPct float64) domain.RunResult {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)
	runID := uuid.NewString()

	trade := domain.Trade{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Side:       domain.SideLong,
		EntryPrice: 100,
		EntryTime:  start,
		ExitPrice:  100 + returnPct,
		ExitTime:   end,
		Quantity:   10,
		PnLAbs:     returnPct * 10,
		PnLPct:     returnPct,
		Duration:   48 * time.Hour,
		Outcome:    domain.OutcomeWin,
		ExitReason: domain.ReasonSignal,
	}

	return domain.RunResult{
		RunID:     runID,
		Symbol:    symbol,
		Strategy:  "sma-cross-10-30",
		Timeframe: "1h",
		StartedAt: time.Now().UTC(),
		Trades:    []domain.Trade{trade},
		Report: domain.Report{
			Symbol:           symbol,
			Strategy:         "sma-cross-10-30",
			Timeframe:        "1h",
			Start:            start,
			End:              end,
			DurationDays:     2,
			InitialCapital:   100_000,
			EquityFinal:      100_000 + returnPct*10,
			EquityPeak:       100_000 + returnPct*10,
			TotalReturnPct:   returnPct,
			TotalTrades:      1,
			WinningTrades:    1,
			WinRatePct:       100,
			MaxTradeDuration: 48 * time.Hour,
			AvgTradeDuration: 48 * time.Hour,
			ProfitFactor:     2.5,
		},
	}
}

func TestSQLiteStorage_SaveAndGetReports(t *testing.T) {
	store := openTestStorage(t)
	ctx := context.Background()

	batch := domain.BatchResult{
		StartedAt: time.Now().UTC(),
		Duration:  3 * time.Second,
		Results: []domain.RunResult{
			makeResult("BTCUSDT", 5.5),
			makeResult("ETHUSDT", 12.0),
		},
	}
	require.NoError(t, store.SaveBatch(ctx, batch))

	now := time.Now().UTC()
	reports, err := store.GetReports(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, reports, 2)

	// Ordenado por retorno total descendente
	assert.Equal(t, "ETHUSDT", reports[0].Symbol)
	assert.InDelta(t, 12.0, reports[0].TotalReturnPct, 1e-9)
	assert.Equal(t, "BTCUSDT", reports[1].Symbol)

	r := reports[0]
	assert.Equal(t, "sma-cross-10-30", r.Strategy)
	assert.Equal(t, "1h", r.Timeframe)
	assert.Equal(t, 1, r.TotalTrades)
	assert.InDelta(t, 100.0, r.WinRatePct, 1e-9)
	assert.InDelta(t, 2.5, r.ProfitFactor, 1e-9)
	assert.Equal(t, 48*time.Hour, r.AvgTradeDuration)

	// Las fechas DATETIME deben sobrevivir el round-trip, no quedarse
	// en cero si el driver cambia de formato.
	wantStart := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, r.Start.Equal(wantStart), "start: got %s", r.Start)
	assert.True(t, r.End.Equal(wantStart.Add(48*time.Hour)), "end: got %s", r.End)
}

func TestSQLiteStorage_UpsertKeepsLastRun(t *testing.T) {
	// Dos batches de la misma combinación símbolo/estrategia/timeframe:
	// queda una sola fila con los datos del último run.
	store := openTestStorage(t)
	ctx := context.Background()

	first := makeResult("BTCUSDT", 3.0)
	require.NoError(t, store.SaveBatch(ctx, domain.BatchResult{
		StartedAt: time.Now().UTC(),
		Results:   []domain.RunResult{first},
	}))

	second := makeResult("BTCUSDT", 9.0)
	require.NoError(t, store.SaveBatch(ctx, domain.BatchResult{
		StartedAt: time.Now().UTC(),
		Results:   []domain.RunResult{second},
	}))

	now := time.Now().UTC()
	reports, err := store.GetReports(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)

	require.Len(t, reports, 1)
	assert.InDelta(t, 9.0, reports[0].TotalReturnPct, 1e-9)
}

func TestSQLiteStorage_EmptyRange(t *testing.T) {
	store := openTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveBatch(ctx, domain.BatchResult{
		StartedAt: time.Now().UTC(),
		Results:   []domain.RunResult{makeResult("BTCUSDT", 1.0)},
	}))

	past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	reports, err := store.GetReports(ctx, past, past.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestSQLiteStorage_FailuresOnlyBatch(t *testing.T) {
	// Un batch sin resultados también se registra sin error.
	store := openTestStorage(t)

	batch := domain.BatchResult{
		StartedAt: time.Now().UTC(),
		Failures: []domain.RunFailure{
			{Symbol: "BTCUSDT", Stage: "data", Err: domain.ErrNoData},
		},
	}
	assert.NoError(t, store.SaveBatch(context.Background(), batch))
}
