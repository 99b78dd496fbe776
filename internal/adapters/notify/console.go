package notify

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/alejandrodnm/backscan/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier.
type Console struct {
	out    io.Writer
	table  bool
	detail bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table, detail bool) *Console {
	return &Console{out: os.Stdout, table: table, detail: detail}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table, detail bool) *Console {
	return &Console{out: w, table: table, detail: detail}
}

// Notify imprime el resultado del batch en el modo configurado.
func (c *Console) Notify(_ context.Context, batch domain.BatchResult) error {
	if len(batch.Results) == 0 && len(batch.Failures) == 0 {
		fmt.Fprintf(c.out, "[%s] no symbols processed\n", time.Now().Format("15:04:05"))
		return nil
	}

	results := rankByReturn(batch.Results)

	if c.table {
		c.printFull(results)
	} else {
		c.printCompact(results)
	}

	if c.detail {
		for _, r := range results {
			c.printDetail(r)
		}
	}

	c.printFailures(batch.Failures)
	return nil
}

// printCompact imprime lo esencial en 1-2 líneas.
func (c *Console) printCompact(results []domain.RunResult) {
	now := time.Now().Format("15:04:05")
	profitable := countProfitable(results)

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d runs → %d profitable", now, len(results), profitable)

	shown := 0
	for _, r := range results {
		if shown >= 4 {
			break
		}
		rep := r.Report
		fmt.Fprintf(&sb, " | %s ret%+.1f%% dd%.1f%% t%d w%.0f%%",
			r.Symbol, rep.TotalReturnPct, rep.MaxDrawdownPct,
			rep.TotalTrades, rep.WinRatePct)
		shown++
	}

	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime la tabla completa de KPIs por símbolo.
func (c *Console) printFull(results []domain.RunResult) {
	now := time.Now().Format("15:04:05")
	fmt.Fprintf(c.out, "\n[%s] %d runs — %d profitable\n",
		now, len(results), countProfitable(results))

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Symbol", "Strategy", "Trades", "Win%", "Ret%", "CAGR%", "Sharpe", "Sortino", "PF", "MaxDD%", "Expos%")

	for i, r := range results {
		rep := r.Report
		table.Append(
			fmt.Sprintf("%d", i+1),
			r.Symbol,
			r.Strategy,
			fmt.Sprintf("%d", rep.TotalTrades),
			fmt.Sprintf("%.1f", rep.WinRatePct),
			fmt.Sprintf("%+.2f", rep.TotalReturnPct),
			fmt.Sprintf("%+.2f", rep.CAGRPct),
			fmt.Sprintf("%.2f", rep.SharpeRatio),
			ratioLabel(rep.SortinoRatio),
			ratioLabel(rep.ProfitFactor),
			fmt.Sprintf("%.2f", rep.MaxDrawdownPct),
			fmt.Sprintf("%.1f", rep.ExposureTimePct),
		)
	}
	table.Render()

	fmt.Fprintln(c.out, "  Ret% = suma de retornos por trade (sin componer) | CAGR% = compuesto sobre equity")
	fmt.Fprintln(c.out, "  PF/Sortino = INF cuando no hay trades perdedores")
}

// printDetail imprime el report completo y el ledger de un run.
func (c *Console) printDetail(result domain.RunResult) {
	rep := result.Report

	fmt.Fprintf(c.out, "\n--- %s  [%s @ %s] ---\n", result.Symbol, result.Strategy, result.Timeframe)
	fmt.Fprintf(c.out, "  Period:        %s → %s (%.1f days)\n",
		isoDate(rep.Start), isoDate(rep.End), rep.DurationDays)
	fmt.Fprintf(c.out, "  Equity:        $%.2f → $%.2f (peak $%.2f)\n",
		rep.InitialCapital, rep.EquityFinal, rep.EquityPeak)
	fmt.Fprintf(c.out, "  Return:        %+.2f%% (sum)  CAGR %+.2f%%  ann.vol %.2f%%\n",
		rep.TotalReturnPct, rep.CAGRPct, rep.VolatilityAnnPct)
	fmt.Fprintf(c.out, "  Ratios:        sharpe %.2f  sortino %s  calmar %.2f\n",
		rep.SharpeRatio, ratioLabel(rep.SortinoRatio), rep.CalmarRatio)
	fmt.Fprintf(c.out, "  Drawdown:      max %.2f%%  avg %.2f%%  longest %s\n",
		rep.MaxDrawdownPct, rep.AvgDrawdownPct, rep.MaxDrawdownDuration.Round(time.Minute))
	fmt.Fprintf(c.out, "  Trades:        %d (%dW/%dL)  win %.1f%%  pf %s  expectancy %+.2f%%\n",
		rep.TotalTrades, rep.WinningTrades, rep.LosingTrades,
		rep.WinRatePct, ratioLabel(rep.ProfitFactor), rep.ExpectancyPct)
	fmt.Fprintf(c.out, "  Best/Worst:    %+.2f%% / %+.2f%%  avg hold %s\n",
		rep.BestTradePct, rep.WorstTradePct, rep.AvgTradeDuration.Round(time.Minute))

	if len(result.Trades) == 0 {
		return
	}

	tbl := tablewriter.NewWriter(c.out)
	tbl.Header("Side", "Entry", "Exit", "In$", "Out$", "PnL$", "PnL%", "Outcome", "Reason")
	for _, t := range result.Trades {
		tbl.Append(
			string(t.Side),
			t.EntryTime.Format("01-02 15:04"),
			t.ExitTime.Format("01-02 15:04"),
			fmt.Sprintf("%.2f", t.EntryPrice),
			fmt.Sprintf("%.2f", t.ExitPrice),
			fmt.Sprintf("%+.2f", t.PnLAbs),
			fmt.Sprintf("%+.2f", t.PnLPct),
			string(t.Outcome),
			t.ExitReason,
		)
	}
	tbl.Render()
}

// PrintReports imprime reports guardados (histórico) como tabla KPI.
// Vienen ya ordenados por retorno total descendente desde storage.
func (c *Console) PrintReports(reports []domain.Report) {
	if len(reports) == 0 {
		fmt.Fprintln(c.out, "no stored reports in range")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Symbol", "Strategy", "TF", "Period", "Trades", "Win%", "Ret%", "CAGR%", "PF", "MaxDD%")

	for i, r := range reports {
		table.Append(
			fmt.Sprintf("%d", i+1),
			r.Symbol,
			r.Strategy,
			r.Timeframe,
			fmt.Sprintf("%s → %s", isoDate(r.Start), isoDate(r.End)),
			fmt.Sprintf("%d", r.TotalTrades),
			fmt.Sprintf("%.1f", r.WinRatePct),
			fmt.Sprintf("%+.2f", r.TotalReturnPct),
			fmt.Sprintf("%+.2f", r.CAGRPct),
			ratioLabel(r.ProfitFactor),
			fmt.Sprintf("%.2f", r.MaxDrawdownPct),
		)
	}
	table.Render()
}

// printFailures lista los símbolos fallidos; el batch nunca los oculta.
func (c *Console) printFailures(failures []domain.RunFailure) {
	if len(failures) == 0 {
		return
	}
	fmt.Fprintf(c.out, "\n  %d symbol(s) failed:\n", len(failures))
	for _, f := range failures {
		fmt.Fprintf(c.out, "    %-12s [%s] %v\n", f.Symbol, f.Stage, f.Err)
	}
	fmt.Fprintln(c.out)
}

// --- helpers ---

// ratioLabel formatea un ratio con el centinela INF visible.
func ratioLabel(v float64) string {
	if math.IsInf(v, 1) {
		return "INF"
	}
	return fmt.Sprintf("%.2f", v)
}

func isoDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

func countProfitable(results []domain.RunResult) int {
	n := 0
	for _, r := range results {
		if r.Report.EquityFinal > r.Report.InitialCapital {
			n++
		}
	}
	return n
}

// rankByReturn ordena por retorno total descendente, sin mutar la entrada.
func rankByReturn(results []domain.RunResult) []domain.RunResult {
	out := make([]domain.RunResult, len(results))
	copy(out, results)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Report.TotalReturnPct > out[j].Report.TotalReturnPct
	})
	return out
}
