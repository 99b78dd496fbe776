package engine

// engine.go — loop de simulación por símbolo.
//
// Máquina de estados {Flat, Open} sobre la serie de velas:
//   Flat → Open  con señal Buy/Sell si pasa el check de capital.
//   Open → Flat  por stop-loss/take-profit (se evalúan ANTES que la
//                señal de la estrategia), por señal Exit/opuesta, o por
//                cierre forzoso al agotarse los datos ("End of Data").
// En cada vela se empuja exactamente un punto de equity mark-to-market.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/backscan/internal/domain"
	"github.com/alejandrodnm/backscan/internal/ports"
	"github.com/google/uuid"
)

// Config controla la contabilidad y la ejecución del motor.
type Config struct {
	InitialCapital  float64
	PositionSizePct float64 // % del capital disponible por posición
	StopLossPct     float64 // % de pérdida no realizada que fuerza cierre (0 = off)
	TakeProfitPct   float64 // % de ganancia no realizada que fuerza cierre (0 = off)
	RiskFreePct     float64

	// MarkToMarket incluye el PnL no realizado de la posición abierta
	// en cada punto de equity. Con false (default) la curva solo
	// refleja PnL realizado y se cumple
	// equity_final == initial + Σ pnl_abs. La elección es fija por run.
	MarkToMarket bool

	Workers       int           // goroutines del batch (0 = NumCPU)
	SymbolTimeout time.Duration // presupuesto por símbolo, fetch incluido
}

// DefaultConfig devuelve una configuración conservadora.
func DefaultConfig() Config {
	return Config{
		InitialCapital:  100_000,
		PositionSizePct: 100,
		StopLossPct:     0,
		TakeProfitPct:   0,
		RiskFreePct:     0,
		MarkToMarket:    false,
		Workers:         4,
		SymbolTimeout:   30 * time.Second,
	}
}

// Engine orquesta la simulación: velas → señales → trades → equity → report.
type Engine struct {
	cfg      Config
	candles  ports.CandleProvider
	strategy ports.Strategy
}

// New crea un Engine con las dependencias inyectadas.
// La estrategia y el proveedor de datos se deciden fuera (cmd/).
func New(cfg Config, candles ports.CandleProvider, strategy ports.Strategy) *Engine {
	return &Engine{cfg: cfg, candles: candles, strategy: strategy}
}

// RunSymbol ejecuta el backtest completo de un símbolo:
// fetch → validate → señales → simulación → report.
func (e *Engine) RunSymbol(ctx context.Context, symbol, timeframe string, limit int) (domain.RunResult, error) {
	series, err := e.candles.FetchCandles(ctx, symbol, timeframe, limit)
	if err != nil {
		return domain.RunResult{}, fmt.Errorf("engine.RunSymbol %s: fetch: %w", symbol, err)
	}
	if err := series.Validate(); err != nil {
		return domain.RunResult{}, fmt.Errorf("engine.RunSymbol %s: validate: %w", symbol, err)
	}

	signals, err := e.strategy.GenerateSignals(series)
	if err != nil {
		return domain.RunResult{}, fmt.Errorf("engine.RunSymbol %s: signals: %w", symbol, err)
	}

	return e.simulate(series, signals), nil
}

// simulate recorre la serie aplicando señales y devuelve el resultado.
func (e *Engine) simulate(series domain.CandleSeries, signals []domain.Signal) domain.RunResult {
	symbol := series.Symbol
	ledger := NewLedger()
	tracker := NewTracker(ledger)
	curve := NewEquityCurve()

	sigIdx := 0
	var prevSigTS time.Time
	dropped := 0

	for i, candle := range series.Candles {
		last := i == len(series.Candles)-1

		// 1. Stop-loss / take-profit tienen precedencia sobre la señal.
		if pos, ok := tracker.Position(symbol); ok {
			unreal := pos.UnrealizedPnLPct(candle.Close)
			switch {
			case e.cfg.StopLossPct > 0 && unreal <= -e.cfg.StopLossPct:
				if _, err := tracker.Close(symbol, candle.Close, candle.Timestamp, domain.ReasonStopLoss); err != nil {
					slog.Warn("stop-loss close failed", "symbol", symbol, "err", err)
				}
			case e.cfg.TakeProfitPct > 0 && unreal >= e.cfg.TakeProfitPct:
				if _, err := tracker.Close(symbol, candle.Close, candle.Timestamp, domain.ReasonTakeProfit); err != nil {
					slog.Warn("take-profit close failed", "symbol", symbol, "err", err)
				}
			}
		}

		// 2. Consumir las señales alineadas a esta vela.
		for sigIdx < len(signals) && !signals[sigIdx].Timestamp.After(candle.Timestamp) {
			sig := signals[sigIdx]
			sigIdx++

			if !sig.Timestamp.Equal(candle.Timestamp) {
				// Señal desalineada con la serie: se descarta, no aborta.
				dropped++
				slog.Warn("signal not aligned to candle, dropping",
					"symbol", symbol, "action", sig.Action, "ts", sig.Timestamp)
				continue
			}
			if err := sig.Validate(); err != nil {
				dropped++
				slog.Warn("invalid signal, dropping", "symbol", symbol, "err", err)
				continue
			}
			if !prevSigTS.IsZero() && sig.Timestamp.Before(prevSigTS) {
				dropped++
				slog.Warn("non-monotonic signal timestamp, dropping",
					"symbol", symbol, "ts", sig.Timestamp, "prev", prevSigTS)
				continue
			}
			prevSigTS = sig.Timestamp

			e.applySignal(tracker, ledger, symbol, sig)
		}

		// 3. Cierre forzoso al agotarse los datos.
		if last && tracker.HasOpen(symbol) {
			if _, err := tracker.Close(symbol, candle.Close, candle.Timestamp, domain.ReasonEndOfData); err != nil {
				slog.Warn("end-of-data close failed", "symbol", symbol, "err", err)
			}
		}

		// 4. Un punto de equity por vela, pase lo que pase.
		equity := e.cfg.InitialCapital + ledger.NetPnL()
		if e.cfg.MarkToMarket {
			equity += tracker.UnrealizedPnL(symbol, candle.Close)
		}
		curve.AddPoint(candle.Timestamp, equity)
	}

	if dropped > 0 {
		slog.Debug("signals dropped during simulation", "symbol", symbol, "dropped", dropped)
	}

	report := ComputeReport(ReportParams{
		Symbol:         symbol,
		Strategy:       e.strategy.Name(),
		Timeframe:      series.Timeframe,
		InitialCapital: e.cfg.InitialCapital,
		RiskFreePct:    e.cfg.RiskFreePct,
	}, ledger, curve)

	return domain.RunResult{
		RunID:     uuid.NewString(),
		Symbol:    symbol,
		Strategy:  e.strategy.Name(),
		Timeframe: series.Timeframe,
		StartedAt: time.Now().UTC(),
		Trades:    ledger.Trades(),
		Equity:    curve.Points(),
		Report:    report,
	}
}

// applySignal ejecuta una transición de la máquina de estados para una señal.
func (e *Engine) applySignal(tracker *Tracker, ledger *Ledger, symbol string, sig domain.Signal) {
	pos, open := tracker.Position(symbol)

	if open {
		switch {
		case sig.Action == domain.ActionExit,
			sig.Action == domain.ActionBuy && pos.Side == domain.SideShort,
			sig.Action == domain.ActionSell && pos.Side == domain.SideLong:
			if _, err := tracker.Close(symbol, sig.Price, sig.Timestamp, domain.ReasonSignal); err != nil {
				slog.Warn("close failed", "symbol", symbol, "err", err)
			}
		}
		return
	}

	if !sig.Action.Opens() {
		return
	}

	side := domain.SideLong
	if sig.Action == domain.ActionSell {
		side = domain.SideShort
	}

	// Check de capital: el tamaño sale del capital disponible
	// (inicial + realizado); si no alcanza, no se abre.
	available := e.cfg.InitialCapital + ledger.NetPnL()
	budget := available * e.cfg.PositionSizePct / 100
	if budget <= 0 {
		slog.Debug("no capital available, skipping entry", "symbol", symbol, "available", available)
		return
	}

	quantity := budget / sig.Price
	if _, err := tracker.Open(symbol, side, sig.Price, sig.Timestamp, quantity); err != nil {
		slog.Warn("open failed", "symbol", symbol, "err", err)
	}
}
