package export

// csv.go — export plano del ledger y los reports.
//
// Contrato de tipos: fechas como ISO-8601, porcentajes y ratios como
// floats, conteos como enteros. Los centinelas +Inf se serializan como
// "INF" — nunca NaN ni campos vacíos en casos degenerados.

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/alejandrodnm/backscan/internal/domain"
)

// TradeHeader son las columnas del export de trades, una fila por trade.
var TradeHeader = []string{
	"symbol", "side", "entry_time", "exit_time", "entry_price", "exit_price",
	"quantity", "pnl_abs", "pnl_pct", "duration", "outcome", "exit_reason",
}

// ReportHeader son las columnas del export de reports, una fila por run.
var ReportHeader = []string{
	"symbol", "strategy", "timeframe", "start", "end", "duration_days",
	"initial_capital", "equity_final", "equity_peak",
	"total_return_pct", "return_ann_pct", "cagr_pct", "volatility_ann_pct",
	"sharpe_ratio", "sortino_ratio", "calmar_ratio",
	"max_drawdown_pct", "avg_drawdown_pct", "max_drawdown_duration", "avg_drawdown_duration",
	"total_trades", "winning_trades", "losing_trades", "win_rate_pct",
	"best_trade_pct", "worst_trade_pct", "avg_trade_pct",
	"max_trade_duration", "avg_trade_duration",
	"profit_factor", "expectancy_pct", "exposure_time_pct",
}

// WriteTrades escribe el ledger completo como CSV, header incluido.
func WriteTrades(w io.Writer, trades []domain.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TradeHeader); err != nil {
		return fmt.Errorf("export.WriteTrades: header: %w", err)
	}
	for _, t := range trades {
		record := []string{
			t.Symbol,
			string(t.Side),
			isoTime(t.EntryTime),
			isoTime(t.ExitTime),
			num(t.EntryPrice),
			num(t.ExitPrice),
			num(t.Quantity),
			num(t.PnLAbs),
			num(t.PnLPct),
			t.Duration.String(),
			string(t.Outcome),
			t.ExitReason,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("export.WriteTrades: trade %s: %w", t.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteReports escribe un report por fila como CSV, header incluido.
func WriteReports(w io.Writer, reports []domain.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ReportHeader); err != nil {
		return fmt.Errorf("export.WriteReports: header: %w", err)
	}
	for _, r := range reports {
		if err := cw.Write(reportRecord(r)); err != nil {
			return fmt.Errorf("export.WriteReports: %s/%s: %w", r.Symbol, r.Strategy, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func reportRecord(r domain.Report) []string {
	return []string{
		r.Symbol, r.Strategy, r.Timeframe,
		isoTime(r.Start), isoTime(r.End), num(r.DurationDays),
		num(r.InitialCapital), num(r.EquityFinal), num(r.EquityPeak),
		num(r.TotalReturnPct), num(r.ReturnAnnPct), num(r.CAGRPct), num(r.VolatilityAnnPct),
		num(r.SharpeRatio), num(r.SortinoRatio), num(r.CalmarRatio),
		num(r.MaxDrawdownPct), num(r.AvgDrawdownPct),
		r.MaxDrawdownDuration.String(), r.AvgDrawdownDuration.String(),
		strconv.Itoa(r.TotalTrades), strconv.Itoa(r.WinningTrades), strconv.Itoa(r.LosingTrades),
		num(r.WinRatePct),
		num(r.BestTradePct), num(r.WorstTradePct), num(r.AvgTradePct),
		r.MaxTradeDuration.String(), r.AvgTradeDuration.String(),
		num(r.ProfitFactor), num(r.ExpectancyPct), num(r.ExposureTimePct),
	}
}

// num formatea un float con el centinela INF visible y sin NaN.
func num(v float64) string {
	if math.IsInf(v, 1) {
		return "INF"
	}
	if math.IsInf(v, -1) {
		return "-INF"
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func isoTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
