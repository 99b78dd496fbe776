package engine

// kpi.go — cálculo del report de rendimiento a partir del ledger y la
// curva de equity. Función pura e idempotente: mismos inputs, output
// bit a bit idéntico. Nunca devuelve error: los casos degenerados
// (cero trades, cero perdedores, curva vacía) resuelven a los
// centinelas definidos (0 o +Inf), jamás NaN.

import (
	"math"
	"time"

	"github.com/alejandrodnm/backscan/internal/domain"
)

// annualizationFactor son los días de trading por año usados para
// anualizar la volatilidad por convención.
const annualizationFactor = 252

// daysPerYear usa el año juliano medio para CAGR.
const daysPerYear = 365.25

// ReportParams identifica el run y fija los parámetros contables.
type ReportParams struct {
	Symbol         string
	Strategy       string
	Timeframe      string
	InitialCapital float64
	RiskFreePct    float64 // retorno anual libre de riesgo para Sharpe/Sortino
}

// ComputeReport deriva el report completo del ledger y la curva de equity.
func ComputeReport(params ReportParams, ledger *Ledger, curve *EquityCurve) domain.Report {
	trades := ledger.Trades()
	points := curve.Points()

	r := domain.Report{
		Symbol:         params.Symbol,
		Strategy:       params.Strategy,
		Timeframe:      params.Timeframe,
		InitialCapital: params.InitialCapital,
		EquityFinal:    params.InitialCapital,
		EquityPeak:     params.InitialCapital,
	}

	// Equity: último y pico de la curva.
	if last, ok := curve.Last(); ok {
		r.EquityFinal = last.Equity
		r.EquityPeak = last.RunningPeak
	}

	// Ventana temporal: del primer entry al último exit; si no hubo
	// trades, la ventana de la curva.
	switch {
	case len(trades) > 0:
		r.Start = trades[0].EntryTime
		r.End = trades[len(trades)-1].ExitTime
	case len(points) > 0:
		r.Start = points[0].Timestamp
		r.End = points[len(points)-1].Timestamp
	}

	r.DurationDays = r.End.Sub(r.Start).Hours() / 24
	if r.DurationDays < 1 {
		r.DurationDays = 1
	}
	years := math.Max(r.DurationDays/daysPerYear, 1/daysPerYear)

	// CAGR sobre el equity absoluto. ReturnAnnPct = CAGR: es la vista
	// anualizada consistente con EquityFinal, y la que alimenta los
	// ratios ajustados por riesgo.
	if params.InitialCapital > 0 && r.EquityFinal > 0 {
		r.CAGRPct = (math.Pow(r.EquityFinal/params.InitialCapital, 1/years) - 1) * 100
	}
	r.ReturnAnnPct = r.CAGRPct

	// Drawdown
	r.MaxDrawdownPct = curve.MaxDrawdownPct()
	r.AvgDrawdownPct = curve.AvgDrawdownPct()
	r.MaxDrawdownDuration, r.AvgDrawdownDuration = curve.DrawdownDurations()

	fillTradeStats(&r, trades)

	// Volatilidad anualizada de los retornos por trade.
	returns := make([]float64, len(trades))
	for i, t := range trades {
		returns[i] = t.PnLPct
	}
	r.VolatilityAnnPct = sampleStdDev(returns) * math.Sqrt(annualizationFactor)

	// Sharpe: exceso de retorno anual sobre volatilidad total.
	if r.VolatilityAnnPct != 0 {
		r.SharpeRatio = (r.ReturnAnnPct - params.RiskFreePct) / r.VolatilityAnnPct
	}

	// Sortino: mismo numerador, denominador solo con retornos negativos.
	// +Inf si no hay trades perdedores (riesgo a la baja nulo).
	if len(trades) > 0 && r.LosingTrades == 0 {
		r.SortinoRatio = math.Inf(1)
	} else {
		var downside []float64
		for _, ret := range returns {
			if ret < 0 {
				downside = append(downside, ret)
			}
		}
		downsideAnn := sampleStdDev(downside) * math.Sqrt(annualizationFactor)
		if downsideAnn != 0 {
			r.SortinoRatio = (r.ReturnAnnPct - params.RiskFreePct) / downsideAnn
		}
	}

	// Calmar: retorno anual sobre drawdown máximo.
	if r.MaxDrawdownPct != 0 {
		r.CalmarRatio = r.ReturnAnnPct / math.Abs(r.MaxDrawdownPct)
	}

	// Exposición: tiempo en mercado sobre la ventana de la curva.
	r.ExposureTimePct = exposurePct(trades, points)

	return r
}

// fillTradeStats rellena los campos derivados únicamente del ledger.
func fillTradeStats(r *domain.Report, trades []domain.Trade) {
	r.TotalTrades = len(trades)
	if len(trades) == 0 {
		return
	}

	var grossProfit, grossLoss, sumPct float64
	var totalDur time.Duration
	best := math.Inf(-1)
	worst := math.Inf(1)

	for _, t := range trades {
		sumPct += t.PnLPct
		totalDur += t.Duration

		switch {
		case t.PnLAbs > 0:
			r.WinningTrades++
			grossProfit += t.PnLAbs
		case t.PnLAbs < 0:
			r.LosingTrades++
			grossLoss += -t.PnLAbs
		}

		if t.PnLPct > best {
			best = t.PnLPct
		}
		if t.PnLPct < worst {
			worst = t.PnLPct
		}
		if t.Duration > r.MaxTradeDuration {
			r.MaxTradeDuration = t.Duration
		}
	}

	n := float64(len(trades))
	r.WinRatePct = float64(r.WinningTrades) / n * 100
	r.TotalReturnPct = sumPct
	r.ExpectancyPct = sumPct / n
	r.AvgTradePct = sumPct / n
	r.BestTradePct = best
	r.WorstTradePct = worst
	r.AvgTradeDuration = totalDur / time.Duration(len(trades))

	// Profit factor: +Inf si hay ganancias y cero pérdidas; 0 si no
	// hay ganancias.
	switch {
	case grossLoss > 0:
		r.ProfitFactor = grossProfit / grossLoss
	case grossProfit > 0:
		r.ProfitFactor = math.Inf(1)
	}
}

// sampleStdDev devuelve la desviación estándar muestral (n-1).
// 0 si hay menos de dos valores.
func sampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)-1))
}

// exposurePct mide el tiempo con posición abierta como % de la ventana
// total de la simulación, acotado a [0, 100].
func exposurePct(trades []domain.Trade, points []domain.EquityPoint) float64 {
	if len(points) < 2 {
		return 0
	}
	span := points[len(points)-1].Timestamp.Sub(points[0].Timestamp)
	if span <= 0 {
		return 0
	}

	var held time.Duration
	for _, t := range trades {
		held += t.Duration
	}

	pct := float64(held) / float64(span) * 100
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct
}
