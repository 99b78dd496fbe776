package engine_test

import (
	"math"
	"testing"
	"time"

	"github.com/alejandrodnm/backscan/internal/domain"
	"github.com/alejandrodnm/backscan/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() engine.ReportParams {
	return engine.ReportParams{
		Symbol:         "BTCUSDT",
		Strategy:       "sma-cross-10-30",
		Timeframe:      "1h",
		InitialCapital: 100_000,
	}
}

// closeRoundTrip abre y cierra una posición Long, devolviendo el trade
// vía tracker para que el ledger quede igual que en una simulación real.
func closeRoundTrip(tracker *engine.Tracker, entry, exit, qty float64, at time.Time, hold time.Duration) domain.Trade {
	tracker.Open("BTCUSDT", domain.SideLong, entry, at, qty)
	trade, _ := tracker.Close("BTCUSDT", exit, at.Add(hold), domain.ReasonSignal)
	return trade
}

func TestComputeReport_TwoTrades(t *testing.T) {
	// Escenario: [{entry 100, exit 110, qty 10}, {entry 200, exit 180, qty 5}]
	// → pnl_abs [+100, -100], 2 trades, 1 ganador, win rate 50%, neto 0.
	ledger := engine.NewLedger()
	tracker := engine.NewTracker(ledger)

	first := closeRoundTrip(tracker, 100, 110, 10, t0, time.Hour)
	second := closeRoundTrip(tracker, 200, 180, 5, t0.Add(2*time.Hour), time.Hour)

	assert.InDelta(t, 100.0, first.PnLAbs, 1e-9)
	assert.InDelta(t, -100.0, second.PnLAbs, 1e-9)

	curve := engine.NewEquityCurve()
	addHourly(curve, t0, 100_000, 100_100, 100_100, 100_000)

	report := engine.ComputeReport(testParams(), ledger, curve)

	assert.Equal(t, 2, report.TotalTrades)
	assert.Equal(t, 1, report.WinningTrades)
	assert.Equal(t, 1, report.LosingTrades)
	assert.InDelta(t, 50.0, report.WinRatePct, 1e-9)
	assert.InDelta(t, 100_000.0, report.EquityFinal, 1e-9, "pnl neto 0 → equity final = inicial")

	// total_return_pct = +10% - 10% = 0 (suma sin componer)
	assert.InDelta(t, 0.0, report.TotalReturnPct, 1e-9)
	// profit factor = 100/100 = 1
	assert.InDelta(t, 1.0, report.ProfitFactor, 1e-9)
	assert.InDelta(t, 10.0, report.BestTradePct, 1e-9)
	assert.InDelta(t, -10.0, report.WorstTradePct, 1e-9)
	assert.Equal(t, time.Hour, report.AvgTradeDuration)
}

func TestComputeReport_ZeroTrades_Defaults(t *testing.T) {
	// Cero trades: todo campo numérico resuelve a su default, nunca panic.
	ledger := engine.NewLedger()
	curve := engine.NewEquityCurve()

	report := engine.ComputeReport(testParams(), ledger, curve)

	assert.Zero(t, report.TotalTrades)
	assert.Zero(t, report.WinRatePct)
	assert.Zero(t, report.TotalReturnPct)
	assert.Zero(t, report.ProfitFactor)
	assert.Zero(t, report.SortinoRatio)
	assert.Zero(t, report.SharpeRatio)
	assert.Zero(t, report.MaxDrawdownPct)
	assert.Equal(t, 100_000.0, report.EquityFinal)
	assert.Equal(t, 100_000.0, report.EquityPeak)
	assert.False(t, math.IsNaN(report.CAGRPct))
	assert.False(t, math.IsNaN(report.ExpectancyPct))
}

func TestComputeReport_ProfitFactorSentinels(t *testing.T) {
	// Solo ganadores → +Inf; solo perdedores → 0.
	winners := engine.NewLedger()
	trackerW := engine.NewTracker(winners)
	closeRoundTrip(trackerW, 100, 110, 1, t0, time.Hour)
	closeRoundTrip(trackerW, 100, 105, 1, t0.Add(2*time.Hour), time.Hour)

	curve := engine.NewEquityCurve()
	addHourly(curve, t0, 100_000, 100_010, 100_015)

	report := engine.ComputeReport(testParams(), winners, curve)
	assert.True(t, math.IsInf(report.ProfitFactor, 1), "sin perdedores: PF = +Inf")
	assert.True(t, math.IsInf(report.SortinoRatio, 1), "sin perdedores: sortino = +Inf")

	losers := engine.NewLedger()
	trackerL := engine.NewTracker(losers)
	closeRoundTrip(trackerL, 100, 90, 1, t0, time.Hour)

	report = engine.ComputeReport(testParams(), losers, curve)
	assert.Zero(t, report.ProfitFactor, "sin ganadores: PF = 0")
}

func TestComputeReport_Idempotent(t *testing.T) {
	ledger := engine.NewLedger()
	tracker := engine.NewTracker(ledger)
	closeRoundTrip(tracker, 100, 120, 10, t0, time.Hour)
	closeRoundTrip(tracker, 120, 110, 10, t0.Add(2*time.Hour), 3*time.Hour)

	curve := engine.NewEquityCurve()
	addHourly(curve, t0, 100_000, 100_200, 100_200, 100_100)

	first := engine.ComputeReport(testParams(), ledger, curve)
	second := engine.ComputeReport(testParams(), ledger, curve)

	require.Equal(t, first, second, "mismos inputs → output idéntico")
}

func TestComputeReport_WinRateBounds(t *testing.T) {
	ledger := engine.NewLedger()
	tracker := engine.NewTracker(ledger)
	for i := 0; i < 5; i++ {
		closeRoundTrip(tracker, 100, 101, 1, t0.Add(time.Duration(i*2)*time.Hour), time.Hour)
	}

	curve := engine.NewEquityCurve()
	addHourly(curve, t0, 100_000, 100_005)

	report := engine.ComputeReport(testParams(), ledger, curve)
	assert.GreaterOrEqual(t, report.WinRatePct, 0.0)
	assert.LessOrEqual(t, report.WinRatePct, 100.0)
	assert.InDelta(t, 100.0, report.WinRatePct, 1e-9)
}

func TestComputeReport_DurationFloor(t *testing.T) {
	// Trades en la misma hora: duration_days sube al mínimo de 1.
	ledger := engine.NewLedger()
	tracker := engine.NewTracker(ledger)
	closeRoundTrip(tracker, 100, 101, 1, t0, time.Minute)

	curve := engine.NewEquityCurve()
	addHourly(curve, t0, 100_000, 100_001)

	report := engine.ComputeReport(testParams(), ledger, curve)
	assert.Equal(t, 1.0, report.DurationDays)
	assert.False(t, math.IsNaN(report.CAGRPct))
	assert.False(t, math.IsInf(report.CAGRPct, 0))
}

func TestComputeReport_CalmarZeroWhenNoDrawdown(t *testing.T) {
	ledger := engine.NewLedger()
	tracker := engine.NewTracker(ledger)
	closeRoundTrip(tracker, 100, 110, 1, t0, time.Hour)

	curve := engine.NewEquityCurve()
	addHourly(curve, t0, 100_000, 100_010)

	report := engine.ComputeReport(testParams(), ledger, curve)
	assert.Zero(t, report.CalmarRatio, "sin drawdown el calmar degrada a 0")
}
