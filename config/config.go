package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/ledger"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/signals"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. PAPERTRADER_SERVER_ADDR.
const EnvPrefix = "PAPERTRADER"

// Config is the complete application configuration.
type Config struct {
	Account   AccountConfig   `json:"account" yaml:"account" mapstructure:"account"`
	Market    MarketConfig    `json:"market" yaml:"market" mapstructure:"market"`
	Signal    signals.Config  `json:"signal" yaml:"signal" mapstructure:"signal"`
	Valuation ValuationConfig `json:"valuation" yaml:"valuation" mapstructure:"valuation"`
	Journal   JournalConfig   `json:"journal" yaml:"journal" mapstructure:"journal"`
	Server    ServerConfig    `json:"server" yaml:"server" mapstructure:"server"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
}

// AccountConfig sets up each new ledger.
type AccountConfig struct {
	StartingCash float64 `json:"starting_cash" yaml:"starting_cash" mapstructure:"starting_cash"`
}

// MarketConfig selects the data provider and the defaults shown in the UI.
type MarketConfig struct {
	Provider  string `json:"provider" yaml:"provider" mapstructure:"provider"` // "yahoo" or "csv"
	BaseURL   string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`
	UserAgent string `json:"user_agent,omitempty" yaml:"user_agent,omitempty" mapstructure:"user_agent"`
	DataDir   string `json:"data_dir,omitempty" yaml:"data_dir,omitempty" mapstructure:"data_dir"`
	Timeout   string `json:"timeout" yaml:"timeout" mapstructure:"timeout"` // e.g. "10s"
	Ticker    string `json:"ticker" yaml:"ticker" mapstructure:"ticker"`
	Period    string `json:"period" yaml:"period" mapstructure:"period"`
	Interval  string `json:"interval" yaml:"interval" mapstructure:"interval"`
}

type ValuationConfig struct {
	Policy string `json:"policy" yaml:"policy" mapstructure:"policy"` // "require" or "cost"
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type string `json:"type" yaml:"type" mapstructure:"type"` // "none", "csv" or "sqlite"
	Path string `json:"path,omitempty" yaml:"path,omitempty" mapstructure:"path"`
}

type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"` // "json" or "console"
}

// FetchTimeout parses Market.Timeout. Empty means no timeout.
func (m MarketConfig) FetchTimeout() (time.Duration, error) {
	if m.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(m.Timeout)
}

// Cash returns the starting cash rounded to cents.
func (a AccountConfig) Cash() decimal.Decimal {
	return decimal.NewFromFloat(a.StartingCash).Round(2)
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			StartingCash: 10000,
		},
		Market: MarketConfig{
			Provider: "yahoo",
			Timeout:  "15s",
			Ticker:   "AAPL",
			Period:   string(market.DefaultPeriod),
			Interval: string(market.DefaultInterval),
		},
		Signal: signals.DefaultConfig(),
		Valuation: ValuationConfig{
			Policy: string(ledger.PolicyRequire),
		},
		Journal: JournalConfig{
			Type: journal.KindNone,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// setDefaults registers every key so environment overrides reach Unmarshal
// even when the file omits them.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("account.starting_cash", d.Account.StartingCash)
	v.SetDefault("market.provider", d.Market.Provider)
	v.SetDefault("market.base_url", d.Market.BaseURL)
	v.SetDefault("market.user_agent", d.Market.UserAgent)
	v.SetDefault("market.data_dir", d.Market.DataDir)
	v.SetDefault("market.timeout", d.Market.Timeout)
	v.SetDefault("market.ticker", d.Market.Ticker)
	v.SetDefault("market.period", d.Market.Period)
	v.SetDefault("market.interval", d.Market.Interval)
	v.SetDefault("signal.fast_period", d.Signal.FastPeriod)
	v.SetDefault("signal.slow_period", d.Signal.SlowPeriod)
	v.SetDefault("signal.rsi_period", d.Signal.RSIPeriod)
	v.SetDefault("signal.oversold", d.Signal.Oversold)
	v.SetDefault("signal.overbought", d.Signal.Overbought)
	v.SetDefault("valuation.policy", d.Valuation.Policy)
	v.SetDefault("journal.type", d.Journal.Type)
	v.SetDefault("journal.path", d.Journal.Path)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load reads path (YAML or JSON by extension) over the defaults and applies
// PAPERTRADER_* environment overrides. An empty path loads defaults and
// environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext == "" {
			v.SetConfigType("yaml")
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile is Load for a path that must exist.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Load(path)
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.StartingCash < 0 {
		return fmt.Errorf("account.starting_cash must not be negative")
	}

	switch c.Market.Provider {
	case "yahoo":
	case "csv":
		if c.Market.DataDir == "" {
			return fmt.Errorf("market.data_dir required for csv provider")
		}
	default:
		return fmt.Errorf("market.provider must be 'yahoo' or 'csv'")
	}
	if _, err := c.Market.FetchTimeout(); err != nil {
		return fmt.Errorf("market.timeout: %w", err)
	}
	if _, err := market.ParsePeriod(c.Market.Period); err != nil {
		return fmt.Errorf("market.period: %w", err)
	}
	if _, err := market.ParseInterval(c.Market.Interval); err != nil {
		return fmt.Errorf("market.interval: %w", err)
	}

	if err := c.Signal.Validate(); err != nil {
		return err
	}
	if _, err := ledger.ParsePolicy(c.Valuation.Policy); err != nil {
		return fmt.Errorf("valuation.policy: %w", err)
	}

	switch c.Journal.Type {
	case "", journal.KindNone:
	case journal.KindCSV, journal.KindSQLite:
		if c.Journal.Path == "" {
			return fmt.Errorf("journal.path required for %s journal", c.Journal.Type)
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("log.format must be 'json' or 'console'")
	}
	return nil
}
