package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alejandrodnm/backscan/config"
	"github.com/alejandrodnm/backscan/internal/adapters/export"
	"github.com/alejandrodnm/backscan/internal/adapters/marketdata"
	"github.com/alejandrodnm/backscan/internal/adapters/notify"
	"github.com/alejandrodnm/backscan/internal/adapters/storage"
	strategies "github.com/alejandrodnm/backscan/internal/adapters/strategy"
	"github.com/alejandrodnm/backscan/internal/domain"
	"github.com/alejandrodnm/backscan/internal/engine"
	"github.com/alejandrodnm/backscan/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	symbolsFlag := flag.String("symbols", "", "comma-separated symbols (overrides config)")
	strategyFlag := flag.String("strategy", "", "strategy name: sma-cross|rsi (overrides config)")
	timeframe := flag.String("timeframe", "", "candle timeframe (overrides config)")
	synthetic := flag.Bool("synthetic", false, "use the synthetic data generator instead of the real API")
	table := flag.Bool("table", false, "print full KPI table (default: compact 1-line)")
	detail := flag.Bool("detail", false, "print per-symbol report + trade ledger")
	csvOut := flag.String("csv", "", "write report CSV to this path (trades CSV goes next to it)")
	historyDays := flag.Int("history", 0, "print reports stored in the last N days and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	if *historyDays > 0 {
		os.Exit(showHistory(cfg.Storage.DSN, *historyDays))
	}

	if *symbolsFlag != "" {
		cfg.Backtest.Symbols = splitCSV(*symbolsFlag)
	}
	if *strategyFlag != "" {
		cfg.Backtest.Strategy = *strategyFlag
	}
	if *timeframe != "" {
		cfg.Data.Timeframe = *timeframe
	}
	if *synthetic {
		cfg.Data.Synthetic = true
	}

	if len(cfg.Backtest.Symbols) == 0 {
		slog.Error("no symbols configured (use -symbols or config)")
		os.Exit(1)
	}

	slog.Info("backscan starting",
		"config", *configPath,
		"symbols", len(cfg.Backtest.Symbols),
		"strategy", cfg.Backtest.Strategy,
		"timeframe", cfg.Data.Timeframe,
		"synthetic", cfg.Data.Synthetic,
		"mark_to_market", cfg.Backtest.MarkToMarket,
	)

	strat, err := strategies.FromName(cfg.Backtest.Strategy)
	if err != nil {
		slog.Error("failed to build strategy", "err", err)
		os.Exit(1)
	}

	var provider ports.CandleProvider
	if cfg.Data.Synthetic {
		provider = marketdata.NewSynthetic(100, 0.02)
	} else {
		provider = marketdata.NewClient(cfg.Data.BaseURL)
	}

	engCfg := engine.DefaultConfig()
	engCfg.InitialCapital = cfg.Backtest.InitialCapital
	engCfg.PositionSizePct = cfg.Backtest.PositionSizePct
	engCfg.StopLossPct = cfg.Backtest.StopLossPct
	engCfg.TakeProfitPct = cfg.Backtest.TakeProfitPct
	engCfg.RiskFreePct = cfg.Backtest.RiskFreePct
	engCfg.MarkToMarket = cfg.Backtest.MarkToMarket
	engCfg.Workers = cfg.Backtest.Workers
	engCfg.SymbolTimeout = cfg.SymbolTimeout()

	eng := engine.New(engCfg, provider, strat)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	batch := eng.RunBatch(ctx, cfg.Backtest.Symbols, cfg.Data.Timeframe, cfg.Data.CandleLimit)

	notifier := notify.NewConsole(*table || *detail, *detail)
	if err := notifier.Notify(ctx, batch); err != nil {
		slog.Warn("notifier error", "err", err)
	}

	if cfg.Storage.DSN != "" {
		saveBatch(ctx, cfg.Storage.DSN, batch)
	}

	if *csvOut != "" {
		writeCSV(*csvOut, batch)
	}

	if len(batch.Results) == 0 {
		slog.Error("all symbols failed", "failures", len(batch.Failures))
		os.Exit(1)
	}
	slog.Info("backscan finished",
		"ok", len(batch.Results),
		"failed", len(batch.Failures),
	)
}

// showHistory imprime los reports guardados en los últimos days días.
func showHistory(dsn string, days int) int {
	store, err := storage.NewSQLiteStorage(dsn)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", dsn)
		return 1
	}
	defer store.Close()

	now := time.Now().UTC()
	reports, err := store.GetReports(context.Background(), now.AddDate(0, 0, -days), now)
	if err != nil {
		slog.Error("failed to read reports", "err", err)
		return 1
	}

	notify.NewConsole(true, false).PrintReports(reports)
	return 0
}

// saveBatch persiste el batch; un error de storage no tumba el proceso.
func saveBatch(ctx context.Context, dsn string, batch domain.BatchResult) {
	store, err := storage.NewSQLiteStorage(dsn)
	if err != nil {
		slog.Warn("failed to open storage", "err", err, "dsn", dsn)
		return
	}
	defer store.Close()

	if err := store.SaveBatch(ctx, batch); err != nil {
		slog.Warn("storage error", "err", err)
	}
}

// writeCSV vuelca reports y trades a disco en dos archivos hermanos.
func writeCSV(path string, batch domain.BatchResult) {
	reports := make([]domain.Report, 0, len(batch.Results))
	var trades []domain.Trade
	for _, r := range batch.Results {
		reports = append(reports, r.Report)
		trades = append(trades, r.Trades...)
	}

	if err := writeFile(path, func(f *os.File) error {
		return export.WriteReports(f, reports)
	}); err != nil {
		slog.Warn("report CSV export failed", "err", err, "path", path)
	}

	tradesPath := strings.TrimSuffix(path, ".csv") + "_trades.csv"
	if err := writeFile(tradesPath, func(f *os.File) error {
		return export.WriteTrades(f, trades)
	}); err != nil {
		slog.Warn("trades CSV export failed", "err", err, "path", tradesPath)
	}
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return write(f)
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
