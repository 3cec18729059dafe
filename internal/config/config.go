// Package config loads and validates the bot configuration from YAML with
// environment overrides for secrets.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Exchange selects the market data and order endpoints.
type Exchange struct {
	// Provider is one of "stub", "clob", or "ws".
	Provider string `yaml:"provider"`
	GammaURL string `yaml:"gamma_url"`
	ClobURL  string `yaml:"clob_url"`
	WSURL    string `yaml:"ws_url"`
	// APIKey authorizes live order submission. The CLOB_API_KEY environment
	// variable overrides the file value so the key stays out of configs.
	APIKey string `yaml:"api_key"`
}

// Strategy tunes the decision engine.
type Strategy struct {
	// Mode is one of "rsi", "macd", or "momentum".
	Mode                 string  `yaml:"mode"`
	TrendThreshold       float64 `yaml:"trend_threshold"`
	ProfitThreshold      float64 `yaml:"profit_threshold"`
	StopLossThreshold    float64 `yaml:"stop_loss_threshold"`
	Lookback             int     `yaml:"lookback"`
	MACDFast             int     `yaml:"macd_fast"`
	MACDSlow             int     `yaml:"macd_slow"`
	MACDSignal           int     `yaml:"macd_signal"`
	MomentumThresholdPct float64 `yaml:"momentum_threshold_pct"`
	PositionSize         float64 `yaml:"position_size"`
}

// Trading controls the evaluation loop.
type Trading struct {
	// Mode is "sim" or "live".
	Mode            string   `yaml:"mode"`
	Markets         []string `yaml:"markets"`
	CheckIntervalMs int      `yaml:"check_interval_ms"`
	FetchTimeoutMs  int      `yaml:"fetch_timeout_ms"`
	SubmitRetries   int      `yaml:"submit_retries"`
	WindowSize      int      `yaml:"window_size"`
	// EntryCutoffSec blocks new entries when fewer than this many seconds
	// remain in the 15-minute market. Exits are never blocked.
	EntryCutoffSec int `yaml:"entry_cutoff_sec"`
}

// Risk caps exposure.
type Risk struct {
	MaxNotionalPerTrade float64 `yaml:"max_notional_per_trade"`
	MaxOpenPositions    int     `yaml:"max_open_positions"`
}

// Paper configures the simulated account.
type Paper struct {
	StartingCash float64 `yaml:"starting_cash"`
	TradesPath   string  `yaml:"trades_path"`
}

// Config is the root configuration document.
type Config struct {
	LogLevel    string   `yaml:"log_level"`
	MetricsAddr string   `yaml:"metrics_addr"`
	Exchange    Exchange `yaml:"exchange"`
	Strategy    Strategy `yaml:"strategy"`
	Trading     Trading  `yaml:"trading"`
	Risk        Risk     `yaml:"risk"`
	Paper       Paper    `yaml:"paper"`
}

// Default returns a runnable simulation configuration against the stub
// provider.
func Default() Config {
	return Config{
		LogLevel:    "info",
		MetricsAddr: ":9100",
		Exchange: Exchange{
			Provider: "stub",
			GammaURL: "https://gamma-api.polymarket.com",
			ClobURL:  "https://clob.polymarket.com",
			WSURL:    "wss://ws-subscriptions-clob.polymarket.com/ws/market",
		},
		Strategy: Strategy{
			Mode:                 "rsi",
			TrendThreshold:       70,
			ProfitThreshold:      0.05,
			StopLossThreshold:    0.05,
			Lookback:             14,
			MACDFast:             12,
			MACDSlow:             26,
			MACDSignal:           9,
			MomentumThresholdPct: 5,
			PositionSize:         10,
		},
		Trading: Trading{
			Mode:            "sim",
			Markets:         []string{"bitcoin"},
			CheckIntervalMs: 5000,
			FetchTimeoutMs:  3000,
			SubmitRetries:   3,
			WindowSize:      60,
			EntryCutoffSec:  120,
		},
		Risk: Risk{
			MaxNotionalPerTrade: 100,
			MaxOpenPositions:    3,
		},
		Paper: Paper{
			StartingCash: 1000,
			TradesPath:   "trades.jsonl",
		},
	}
}

// Load reads path, layers it over the defaults, applies environment
// overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if key := os.Getenv("CLOB_API_KEY"); key != "" {
		cfg.Exchange.APIKey = key
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes the configuration to path as YAML.
func Save(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects configurations the loop cannot run with.
func (c Config) Validate() error {
	switch c.Trading.Mode {
	case "sim", "live":
	default:
		return fmt.Errorf("trading.mode %q: want sim or live", c.Trading.Mode)
	}
	switch c.Strategy.Mode {
	case "rsi", "macd", "momentum":
	default:
		return fmt.Errorf("strategy.mode %q: want rsi, macd, or momentum", c.Strategy.Mode)
	}
	switch c.Exchange.Provider {
	case "stub", "clob", "ws":
	default:
		return fmt.Errorf("exchange.provider %q: want stub, clob, or ws", c.Exchange.Provider)
	}
	if len(c.Trading.Markets) == 0 {
		return fmt.Errorf("trading.markets is empty")
	}
	if c.Trading.CheckIntervalMs <= 0 {
		return fmt.Errorf("trading.check_interval_ms must be positive")
	}
	if c.Trading.WindowSize < 2 {
		return fmt.Errorf("trading.window_size must be at least 2")
	}
	if c.Strategy.TrendThreshold <= 50 || c.Strategy.TrendThreshold >= 100 {
		return fmt.Errorf("strategy.trend_threshold %v: want a value in (50,100)", c.Strategy.TrendThreshold)
	}
	if c.Strategy.PositionSize <= 0 {
		return fmt.Errorf("strategy.position_size must be positive")
	}
	if c.Strategy.ProfitThreshold < 0 || c.Strategy.StopLossThreshold < 0 {
		return fmt.Errorf("strategy thresholds must not be negative")
	}
	if c.Strategy.Mode == "macd" && c.Strategy.MACDFast >= c.Strategy.MACDSlow {
		return fmt.Errorf("strategy.macd_fast must be below macd_slow")
	}
	if c.Trading.Mode == "live" && c.Exchange.APIKey == "" {
		return fmt.Errorf("live trading requires exchange.api_key or CLOB_API_KEY")
	}
	if c.Paper.StartingCash <= 0 {
		return fmt.Errorf("paper.starting_cash must be positive")
	}
	return nil
}
