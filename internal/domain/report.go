package domain

import "time"

// Report es el resumen de rendimiento de un run de backtest.
//
// Todos los campos son recalculables de forma determinista a partir del
// ledger de trades y la curva de equity. Los casos degenerados nunca
// producen NaN ni null: los ratios usan 0 o +Inf como centinelas
// definidos (profit factor y sortino son +Inf cuando no hay trades
// perdedores; el resto degrada a 0).
//
// Nota de contabilidad: TotalReturnPct es la SUMA de los retornos
// porcentuales por trade (agregado sin componer), mientras que
// EquityFinal sale del PnL absoluto acumulado. Ambas vistas pueden
// divergir y se reportan las dos a propósito.
type Report struct {
	// Identidad del run
	Symbol    string
	Strategy  string
	Timeframe string

	// Ventana temporal
	Start        time.Time
	End          time.Time
	DurationDays float64

	// Capital y retorno
	InitialCapital float64
	EquityFinal    float64
	EquityPeak     float64
	TotalReturnPct float64
	ReturnAnnPct   float64
	CAGRPct        float64

	// Riesgo
	VolatilityAnnPct float64
	SharpeRatio      float64
	SortinoRatio     float64
	CalmarRatio      float64

	// Drawdown
	MaxDrawdownPct      float64
	AvgDrawdownPct      float64
	MaxDrawdownDuration time.Duration
	AvgDrawdownDuration time.Duration

	// Estadísticas de trades
	TotalTrades      int
	WinningTrades    int
	LosingTrades     int
	WinRatePct       float64
	BestTradePct     float64
	WorstTradePct    float64
	AvgTradePct      float64
	MaxTradeDuration time.Duration
	AvgTradeDuration time.Duration
	ProfitFactor     float64
	ExpectancyPct    float64
	ExposureTimePct  float64
}

// RunResult es el resultado completo de simular un símbolo:
// trades cerrados, curva de equity y el report derivado.
type RunResult struct {
	RunID     string
	Symbol    string
	Strategy  string
	Timeframe string
	StartedAt time.Time
	Trades    []Trade
	Equity    []EquityPoint
	Report    Report
}

// RunFailure registra el fallo aislado de un símbolo dentro de un batch.
// El batch nunca aborta por el fallo de un símbolo individual.
type RunFailure struct {
	Symbol string
	Stage  string // timeout | canceled | data | run
	Err    error
}

// BatchResult agrega los runs exitosos y los fallos de un batch completo.
type BatchResult struct {
	StartedAt time.Time
	Duration  time.Duration
	Results   []RunResult
	Failures  []RunFailure
}
