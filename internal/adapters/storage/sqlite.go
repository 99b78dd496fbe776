package storage

// sqlite.go — histórico de runs de backtest en SQLite (pure Go, sin CGo).
//
// Estrategia:
//   - `batches`: resumen ligero por batch (símbolos ok/fallidos, duración).
//   - `reports`: UNA fila por (symbol, strategy, timeframe) con el último
//     report completo (UPSERT). El histórico fino no aporta señal: lo que
//     interesa es el último resultado de cada combinación.
//   - `trades`: los trades del último run de cada combinación, para poder
//     auditar el report fila a fila.
//   - Prune automático al arrancar: batches y reports no vistos en 30d.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/backscan/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Resumen ligero por batch
CREATE TABLE IF NOT EXISTS batches (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at  DATETIME NOT NULL,
    duration_ms INTEGER  NOT NULL DEFAULT 0,
    ok          INTEGER  NOT NULL DEFAULT 0,
    failed      INTEGER  NOT NULL DEFAULT 0
);

-- Último report por combinación símbolo/estrategia/timeframe
CREATE TABLE IF NOT EXISTS reports (
    symbol                TEXT NOT NULL,
    strategy              TEXT NOT NULL,
    timeframe             TEXT NOT NULL,
    run_id                TEXT NOT NULL,
    started_at            DATETIME NOT NULL,
    start_at              DATETIME,
    end_at                DATETIME,
    duration_days         REAL NOT NULL DEFAULT 0,
    initial_capital       REAL NOT NULL DEFAULT 0,
    equity_final          REAL NOT NULL DEFAULT 0,
    equity_peak           REAL NOT NULL DEFAULT 0,
    total_return_pct      REAL NOT NULL DEFAULT 0,
    return_ann_pct        REAL NOT NULL DEFAULT 0,
    cagr_pct              REAL NOT NULL DEFAULT 0,
    volatility_ann_pct    REAL NOT NULL DEFAULT 0,
    sharpe_ratio          REAL NOT NULL DEFAULT 0,
    sortino_ratio         REAL NOT NULL DEFAULT 0,
    calmar_ratio          REAL NOT NULL DEFAULT 0,
    max_drawdown_pct      REAL NOT NULL DEFAULT 0,
    avg_drawdown_pct      REAL NOT NULL DEFAULT 0,
    max_dd_duration_ms    INTEGER NOT NULL DEFAULT 0,
    avg_dd_duration_ms    INTEGER NOT NULL DEFAULT 0,
    total_trades          INTEGER NOT NULL DEFAULT 0,
    winning_trades        INTEGER NOT NULL DEFAULT 0,
    losing_trades         INTEGER NOT NULL DEFAULT 0,
    win_rate_pct          REAL NOT NULL DEFAULT 0,
    best_trade_pct        REAL NOT NULL DEFAULT 0,
    worst_trade_pct       REAL NOT NULL DEFAULT 0,
    avg_trade_pct         REAL NOT NULL DEFAULT 0,
    max_trade_duration_ms INTEGER NOT NULL DEFAULT 0,
    avg_trade_duration_ms INTEGER NOT NULL DEFAULT 0,
    profit_factor         REAL NOT NULL DEFAULT 0,
    expectancy_pct        REAL NOT NULL DEFAULT 0,
    exposure_time_pct     REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (symbol, strategy, timeframe)
);

-- Trades del último run de cada combinación
CREATE TABLE IF NOT EXISTS trades (
    id          TEXT PRIMARY KEY,
    run_id      TEXT NOT NULL,
    symbol      TEXT NOT NULL,
    side        TEXT NOT NULL,
    entry_time  DATETIME NOT NULL,
    exit_time   DATETIME NOT NULL,
    entry_price REAL NOT NULL,
    exit_price  REAL NOT NULL,
    quantity    REAL NOT NULL,
    pnl_abs     REAL NOT NULL,
    pnl_pct     REAL NOT NULL,
    duration_ms INTEGER NOT NULL,
    outcome     TEXT NOT NULL,
    exit_reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_batches_at    ON batches(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_reports_at    ON reports(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_reports_ret   ON reports(total_return_pct DESC);
CREATE INDEX IF NOT EXISTS idx_trades_run    ON trades(run_id);
`

const retention = 30 * 24 * time.Hour

// SQLiteStorage implementa ports.Storage usando SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia datos antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveBatch persiste el resumen del batch, hace upsert de cada report y
// reemplaza los trades del run correspondiente, todo en una transacción.
func (s *SQLiteStorage) SaveBatch(ctx context.Context, batch domain.BatchResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveBatch: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO batches (started_at, duration_ms, ok, failed) VALUES (?, ?, ?, ?)`,
		batch.StartedAt, batch.Duration.Milliseconds(), len(batch.Results), len(batch.Failures),
	); err != nil {
		return fmt.Errorf("storage.SaveBatch: insert batch: %w", err)
	}

	for _, result := range batch.Results {
		if err := s.upsertReport(ctx, tx, result); err != nil {
			return err
		}
		if err := s.replaceTrades(ctx, tx, result); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveBatch: commit: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) upsertReport(ctx context.Context, tx *sql.Tx, result domain.RunResult) error {
	r := result.Report
	_, err := tx.ExecContext(ctx, `
		INSERT INTO reports
			(symbol, strategy, timeframe, run_id, started_at, start_at, end_at,
			 duration_days, initial_capital, equity_final, equity_peak,
			 total_return_pct, return_ann_pct, cagr_pct, volatility_ann_pct,
			 sharpe_ratio, sortino_ratio, calmar_ratio,
			 max_drawdown_pct, avg_drawdown_pct, max_dd_duration_ms, avg_dd_duration_ms,
			 total_trades, winning_trades, losing_trades, win_rate_pct,
			 best_trade_pct, worst_trade_pct, avg_trade_pct,
			 max_trade_duration_ms, avg_trade_duration_ms,
			 profit_factor, expectancy_pct, exposure_time_pct)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, strategy, timeframe) DO UPDATE SET
			run_id                = excluded.run_id,
			started_at            = excluded.started_at,
			start_at              = excluded.start_at,
			end_at                = excluded.end_at,
			duration_days         = excluded.duration_days,
			initial_capital       = excluded.initial_capital,
			equity_final          = excluded.equity_final,
			equity_peak           = excluded.equity_peak,
			total_return_pct      = excluded.total_return_pct,
			return_ann_pct        = excluded.return_ann_pct,
			cagr_pct              = excluded.cagr_pct,
			volatility_ann_pct    = excluded.volatility_ann_pct,
			sharpe_ratio          = excluded.sharpe_ratio,
			sortino_ratio         = excluded.sortino_ratio,
			calmar_ratio          = excluded.calmar_ratio,
			max_drawdown_pct      = excluded.max_drawdown_pct,
			avg_drawdown_pct      = excluded.avg_drawdown_pct,
			max_dd_duration_ms    = excluded.max_dd_duration_ms,
			avg_dd_duration_ms    = excluded.avg_dd_duration_ms,
			total_trades          = excluded.total_trades,
			winning_trades        = excluded.winning_trades,
			losing_trades         = excluded.losing_trades,
			win_rate_pct          = excluded.win_rate_pct,
			best_trade_pct        = excluded.best_trade_pct,
			worst_trade_pct       = excluded.worst_trade_pct,
			avg_trade_pct         = excluded.avg_trade_pct,
			max_trade_duration_ms = excluded.max_trade_duration_ms,
			avg_trade_duration_ms = excluded.avg_trade_duration_ms,
			profit_factor         = excluded.profit_factor,
			expectancy_pct        = excluded.expectancy_pct,
			exposure_time_pct     = excluded.exposure_time_pct
	`,
		r.Symbol, r.Strategy, r.Timeframe, result.RunID, result.StartedAt,
		r.Start.UTC(), r.End.UTC(),
		r.DurationDays, r.InitialCapital, r.EquityFinal, r.EquityPeak,
		r.TotalReturnPct, r.ReturnAnnPct, r.CAGRPct, r.VolatilityAnnPct,
		r.SharpeRatio, r.SortinoRatio, r.CalmarRatio,
		r.MaxDrawdownPct, r.AvgDrawdownPct,
		r.MaxDrawdownDuration.Milliseconds(), r.AvgDrawdownDuration.Milliseconds(),
		r.TotalTrades, r.WinningTrades, r.LosingTrades, r.WinRatePct,
		r.BestTradePct, r.WorstTradePct, r.AvgTradePct,
		r.MaxTradeDuration.Milliseconds(), r.AvgTradeDuration.Milliseconds(),
		r.ProfitFactor, r.ExpectancyPct, r.ExposureTimePct,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveBatch: upsert report %s/%s: %w", r.Symbol, r.Strategy, err)
	}
	return nil
}

func (s *SQLiteStorage) replaceTrades(ctx context.Context, tx *sql.Tx, result domain.RunResult) error {
	// Fuera los trades de runs anteriores de este símbolo: solo se
	// audita el último run.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM trades WHERE symbol = ? AND run_id != ?`,
		result.Symbol, result.RunID,
	); err != nil {
		return fmt.Errorf("storage.SaveBatch: clear trades %s: %w", result.Symbol, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades
			(id, run_id, symbol, side, entry_time, exit_time, entry_price,
			 exit_price, quantity, pnl_abs, pnl_pct, duration_ms, outcome, exit_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveBatch: prepare trades: %w", err)
	}
	defer stmt.Close()

	for _, t := range result.Trades {
		if _, err := stmt.ExecContext(ctx,
			t.ID, result.RunID, t.Symbol, string(t.Side),
			t.EntryTime.UTC(), t.ExitTime.UTC(),
			t.EntryPrice, t.ExitPrice, t.Quantity,
			t.PnLAbs, t.PnLPct, t.Duration.Milliseconds(),
			string(t.Outcome), t.ExitReason,
		); err != nil {
			return fmt.Errorf("storage.SaveBatch: insert trade %s: %w", t.ID, err)
		}
	}
	return nil
}

// GetReports devuelve los reports guardados cuyo started_at cae en el
// rango dado, ordenados por retorno total descendente.
func (s *SQLiteStorage) GetReports(ctx context.Context, from, to time.Time) ([]domain.Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, strategy, timeframe, start_at, end_at,
		       duration_days, initial_capital, equity_final, equity_peak,
		       total_return_pct, return_ann_pct, cagr_pct, volatility_ann_pct,
		       sharpe_ratio, sortino_ratio, calmar_ratio,
		       max_drawdown_pct, avg_drawdown_pct, max_dd_duration_ms, avg_dd_duration_ms,
		       total_trades, winning_trades, losing_trades, win_rate_pct,
		       best_trade_pct, worst_trade_pct, avg_trade_pct,
		       max_trade_duration_ms, avg_trade_duration_ms,
		       profit_factor, expectancy_pct, exposure_time_pct
		FROM reports
		WHERE started_at BETWEEN ? AND ?
		ORDER BY total_return_pct DESC
	`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("storage.GetReports: query: %w", err)
	}
	defer rows.Close()

	var reports []domain.Report
	for rows.Next() {
		var r domain.Report
		var startStr, endStr string
		var maxDD, avgDD, maxTD, avgTD int64

		if err := rows.Scan(
			&r.Symbol, &r.Strategy, &r.Timeframe, &startStr, &endStr,
			&r.DurationDays, &r.InitialCapital, &r.EquityFinal, &r.EquityPeak,
			&r.TotalReturnPct, &r.ReturnAnnPct, &r.CAGRPct, &r.VolatilityAnnPct,
			&r.SharpeRatio, &r.SortinoRatio, &r.CalmarRatio,
			&r.MaxDrawdownPct, &r.AvgDrawdownPct, &maxDD, &avgDD,
			&r.TotalTrades, &r.WinningTrades, &r.LosingTrades, &r.WinRatePct,
			&r.BestTradePct, &r.WorstTradePct, &r.AvgTradePct,
			&maxTD, &avgTD,
			&r.ProfitFactor, &r.ExpectancyPct, &r.ExposureTimePct,
		); err != nil {
			return nil, fmt.Errorf("storage.GetReports: scan row: %w", err)
		}

		r.Start, _ = time.Parse(time.RFC3339, startStr)
		r.End, _ = time.Parse(time.RFC3339, endStr)
		r.MaxDrawdownDuration = time.Duration(maxDD) * time.Millisecond
		r.AvgDrawdownDuration = time.Duration(avgDD) * time.Millisecond
		r.MaxTradeDuration = time.Duration(maxTD) * time.Millisecond
		r.AvgTradeDuration = time.Duration(avgTD) * time.Millisecond
		reports = append(reports, r)
	}

	return reports, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pruneOld elimina datos antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retention)
	s.db.ExecContext(ctx, `DELETE FROM batches WHERE started_at < ?`, cutoff)
	s.db.ExecContext(ctx, `DELETE FROM trades WHERE run_id IN
		(SELECT run_id FROM reports WHERE started_at < ?)`, cutoff)
	s.db.ExecContext(ctx, `DELETE FROM reports WHERE started_at < ?`, cutoff)
}
