package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the marlin trading client.
type Config struct {
	Storage Storage       `yaml:"storage"`
	Alpaca  Alpaca        `yaml:"alpaca"`
	Logging Logging       `yaml:"logging"`
	Trading TradingConfig `yaml:"trading"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Alpaca holds credentials and endpoints for the Alpaca broker API.
type Alpaca struct {
	APIKey          string `yaml:"api_key"`
	APISecret       string `yaml:"api_secret"`
	BaseURL         string `yaml:"base_url"`
	SubmitPerMinute int    `yaml:"submit_per_minute"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TradingConfig defines risk limits and rebalancing parameters.
type TradingConfig struct {
	MaxPositionSize       float64            `yaml:"max_position_size"`
	MaxDailyLoss          float64            `yaml:"max_daily_loss"`
	InitialPortfolioValue float64            `yaml:"initial_portfolio_value"`
	RebalanceThreshold    float64            `yaml:"rebalance_threshold"`
	TargetAllocation      map[string]float64 `yaml:"target_allocation"`
	PaperMode             bool               `yaml:"paper_mode"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns a Config with the standard risk limits and local storage
// paths filled in.
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataDir:    "data",
			SQLitePath: "data/marlin.db",
		},
		Alpaca: Alpaca{
			BaseURL:         "https://paper-api.alpaca.markets",
			SubmitPerMinute: 200,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		Trading: TradingConfig{
			MaxPositionSize:       10000,
			MaxDailyLoss:          1000,
			InitialPortfolioValue: 100000,
			RebalanceThreshold:    0.05,
			PaperMode:             true,
		},
	}
}

// Load reads the YAML configuration file at the given path over the
// defaults, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects limits that would disable the risk gate in surprising
// ways.
func (c *Config) Validate() error {
	if c.Trading.MaxPositionSize <= 0 {
		return fmt.Errorf("trading.max_position_size must be positive, got %v", c.Trading.MaxPositionSize)
	}
	if c.Trading.MaxDailyLoss <= 0 {
		return fmt.Errorf("trading.max_daily_loss must be positive, got %v", c.Trading.MaxDailyLoss)
	}
	if c.Trading.InitialPortfolioValue <= 0 {
		return fmt.Errorf("trading.initial_portfolio_value must be positive, got %v", c.Trading.InitialPortfolioValue)
	}
	if c.Trading.RebalanceThreshold < 0 || c.Trading.RebalanceThreshold > 1 {
		return fmt.Errorf("trading.rebalance_threshold must be in [0, 1], got %v", c.Trading.RebalanceThreshold)
	}
	var total float64
	for symbol, weight := range c.Trading.TargetAllocation {
		if weight < 0 || weight > 1 {
			return fmt.Errorf("trading.target_allocation[%s] must be in [0, 1], got %v", symbol, weight)
		}
		total += weight
	}
	if total > 1+1e-9 {
		return fmt.Errorf("trading.target_allocation weights sum to %v, must not exceed 1", total)
	}
	return nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("PAPER_MODE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Trading.PaperMode = b
		}
	}

	// Standard Alpaca env vars (highest priority — canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
