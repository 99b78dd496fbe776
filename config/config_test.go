package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
backtest:
  initial_capital: 50000
  position_size_pct: 25
  stop_loss_pct: 5
  take_profit_pct: 10
  workers: 8
  timeout_seconds: 60
  symbols: [BTCUSDT, ETHUSDT]
  strategy: rsi
data:
  timeframe: 4h
  candle_limit: 1000
storage:
  dsn: /tmp/test.db
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 50_000.0, cfg.Backtest.InitialCapital)
	assert.Equal(t, 25.0, cfg.Backtest.PositionSizePct)
	assert.Equal(t, 5.0, cfg.Backtest.StopLossPct)
	assert.Equal(t, 8, cfg.Backtest.Workers)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, cfg.Backtest.Symbols)
	assert.Equal(t, "rsi", cfg.Backtest.Strategy)
	assert.Equal(t, "4h", cfg.Data.Timeframe)
	assert.Equal(t, 1000, cfg.Data.CandleLimit)
	assert.Equal(t, "/tmp/test.db", cfg.Storage.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, time.Minute, cfg.SymbolTimeout())
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{}`))
	require.NoError(t, err)

	assert.Equal(t, 100_000.0, cfg.Backtest.InitialCapital)
	assert.Equal(t, 100.0, cfg.Backtest.PositionSizePct)
	assert.Equal(t, 30*time.Second, cfg.SymbolTimeout())
	assert.Equal(t, "sma-cross", cfg.Backtest.Strategy)
	assert.Equal(t, "1h", cfg.Data.Timeframe)
	assert.Equal(t, 500, cfg.Data.CandleLimit)
	assert.Equal(t, "backscan.db", cfg.Storage.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.False(t, cfg.Backtest.MarkToMarket)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("DATA_BASE_URL", "http://localhost:9999")
	t.Setenv("SYMBOLS", "SOLUSDT, ADAUSDT,")

	cfg, err := Load(writeConfig(t, `
log:
  level: info
data:
  base_url: https://api.binance.com
backtest:
  symbols: [BTCUSDT]
`))
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "http://localhost:9999", cfg.Data.BaseURL)
	assert.Equal(t, []string{"SOLUSDT", "ADAUSDT"}, cfg.Backtest.Symbols)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "backtest: [not: a: map"))
	assert.Error(t, err)
}
