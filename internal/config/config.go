package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"
)

// Config holds all bopt configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Engine     EngineConfig     `toml:"engine"`
	Daemon     DaemonConfig     `toml:"daemon"`
	ML         MLConfig         `toml:"ml"`
	Account    AccountConfig    `toml:"account"`
	Appearance AppearanceConfig `toml:"appearance"`
	Fees       FeeOverrides     `toml:"fees"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	StorePath string `toml:"store_path,omitempty"`
	OwnerID   string `toml:"owner_id,omitempty"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// EngineConfig tunes the ledger and optimizer.
type EngineConfig struct {
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
	NearLimitPercent    float64 `toml:"near_limit_percent"`
	AutoCreateLimits    bool    `toml:"auto_create_limits"`
	AutoRevertExceeded  bool    `toml:"auto_revert_exceeded"`
}

// DaemonConfig holds background sweeper settings.
type DaemonConfig struct {
	Addr          string `toml:"addr"`
	SweepInterval string `toml:"sweep_interval"`
	EventsBuffer  int    `toml:"events_buffer"`
}

// MLConfig points at the external optimization service.
type MLConfig struct {
	BaseURL           string  `toml:"base_url"`
	APIKey            string  `toml:"api_key,omitempty"`
	Timeout           string  `toml:"timeout"`
	MaxRetries        int     `toml:"max_retries"`
	DefaultConfidence float64 `toml:"default_confidence"`
}

// AccountConfig holds the user's account tier.
type AccountConfig struct {
	Tier string `toml:"tier"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// FeeOverrides replaces the default fee percentage for specific payment methods.
type FeeOverrides struct {
	Overrides map[string]float64 `toml:"overrides,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			LogLevel:  "info",
			LogFormat: "console",
		},
		Engine: EngineConfig{
			ConfidenceThreshold: 0.7,
			NearLimitPercent:    80,
			AutoCreateLimits:    true,
			AutoRevertExceeded:  true,
		},
		Daemon: DaemonConfig{
			Addr:          "127.0.0.1:8787",
			SweepInterval: "1m",
			EventsBuffer:  200,
		},
		ML: MLConfig{
			BaseURL:           "http://localhost:8000",
			Timeout:           "15s",
			MaxRetries:        3,
			DefaultConfidence: 0.85,
		},
		Account: AccountConfig{
			Tier: "USER",
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "bopt")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "bopt")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DataDir returns the XDG-compliant data directory.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "bopt")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "bopt")
}

// StorePath returns the configured database path or the default under DataDir.
func StorePath(cfg Config) string {
	if cfg.General.StorePath != "" {
		return cfg.General.StorePath
	}
	return filepath.Join(DataDir(), "bopt.db")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads the config at path, returning defaults if it doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path is the user's own config file
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	if c.Engine.ConfidenceThreshold < 0 || c.Engine.ConfidenceThreshold > 1 {
		return fmt.Errorf("engine.confidence_threshold %g outside [0, 1]", c.Engine.ConfidenceThreshold)
	}
	if c.Engine.NearLimitPercent <= 0 {
		return fmt.Errorf("engine.near_limit_percent must be positive")
	}
	if _, err := time.ParseDuration(c.Daemon.SweepInterval); err != nil {
		return fmt.Errorf("daemon.sweep_interval: %w", err)
	}
	if _, err := time.ParseDuration(c.ML.Timeout); err != nil {
		return fmt.Errorf("ml.timeout: %w", err)
	}
	for method, pct := range c.Fees.Overrides {
		if pct < 0 {
			return fmt.Errorf("fees.overrides.%s must not be negative", method)
		}
	}
	return nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

// SaveTo writes the config to path, creating parent directories.
func SaveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // user config path
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// GetMLAPIKey returns the API key from env var or config, in that order.
func GetMLAPIKey(cfg Config) string {
	if key := os.Getenv("BOPT_ML_API_KEY"); key != "" {
		return key
	}
	return cfg.ML.APIKey
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// NearLimit returns the near-limit threshold as a decimal percentage.
func (e EngineConfig) NearLimit() decimal.Decimal {
	return decimal.NewFromFloat(e.NearLimitPercent)
}

// SweepEvery parses the sweep interval, defaulting to one minute.
func (d DaemonConfig) SweepEvery() time.Duration {
	v, err := time.ParseDuration(d.SweepInterval)
	if err != nil || v <= 0 {
		return time.Minute
	}
	return v
}

// RequestTimeout parses the ML timeout, defaulting to 15s.
func (m MLConfig) RequestTimeout() time.Duration {
	v, err := time.ParseDuration(m.Timeout)
	if err != nil || v <= 0 {
		return 15 * time.Second
	}
	return v
}
