package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del backtester.
type Config struct {
	Backtest BacktestConfig `yaml:"backtest"`
	Data     DataConfig     `yaml:"data"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// BacktestConfig controla la contabilidad y la ejecución del motor.
type BacktestConfig struct {
	InitialCapital  float64  `yaml:"initial_capital"`
	PositionSizePct float64  `yaml:"position_size_pct"` // % del capital disponible por posición
	StopLossPct     float64  `yaml:"stop_loss_pct"`     // 0 = desactivado
	TakeProfitPct   float64  `yaml:"take_profit_pct"`   // 0 = desactivado
	RiskFreePct     float64  `yaml:"risk_free_pct"`
	MarkToMarket    bool     `yaml:"mark_to_market"` // incluir PnL no realizado en la curva
	Workers         int      `yaml:"workers"`        // 0 = NumCPU
	TimeoutSeconds  int      `yaml:"timeout_seconds"`
	Symbols         []string `yaml:"symbols"`
	Strategy        string   `yaml:"strategy"`
}

// DataConfig contiene la fuente de datos de mercado.
type DataConfig struct {
	BaseURL     string `yaml:"base_url"`
	Timeframe   string `yaml:"timeframe"`
	CandleLimit int    `yaml:"candle_limit"`
	// Synthetic activa el generador de datos sintéticos para demos.
	// Es una elección explícita: nunca sustituye al fetch real al fallar.
	Synthetic bool `yaml:"synthetic"`
}

// StorageConfig controla dónde se persiste el histórico de runs.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// SymbolTimeout devuelve el presupuesto por símbolo como time.Duration.
func (c *Config) SymbolTimeout() time.Duration {
	return time.Duration(c.Backtest.TimeoutSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("DATA_BASE_URL"); v != "" {
		cfg.Data.BaseURL = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		cfg.Backtest.Symbols = splitSymbols(v)
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Backtest.InitialCapital <= 0 {
		cfg.Backtest.InitialCapital = 100_000
	}
	if cfg.Backtest.PositionSizePct <= 0 {
		cfg.Backtest.PositionSizePct = 100
	}
	if cfg.Backtest.TimeoutSeconds <= 0 {
		cfg.Backtest.TimeoutSeconds = 30
	}
	if cfg.Backtest.Strategy == "" {
		cfg.Backtest.Strategy = "sma-cross"
	}
	if cfg.Data.Timeframe == "" {
		cfg.Data.Timeframe = "1h"
	}
	if cfg.Data.CandleLimit <= 0 {
		cfg.Data.CandleLimit = 500
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "backscan.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// splitSymbols parte una lista separada por comas y descarta vacíos.
func splitSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
