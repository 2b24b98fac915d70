// Package config loads the service configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Market  MarketConfig  `yaml:"market"`
	Agent   AgentConfig   `yaml:"agent"`
	Reward  RewardConfig  `yaml:"reward"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// StorageConfig selects the snapshot backend.
type StorageConfig struct {
	// Backend is one of memory, file, postgres.
	Backend string `yaml:"backend"`
	// Path is the snapshot file location for the file backend.
	Path string `yaml:"path"`
	// DSN is the connection string for the postgres backend.
	DSN string `yaml:"dsn"`
	// RecordID pins the snapshot row for the postgres backend.
	RecordID string `yaml:"record_id"`
}

// MarketConfig controls the market data gateway.
type MarketConfig struct {
	UpstreamURL string        `yaml:"upstream_url"`
	Currency    string        `yaml:"currency"`
	PageSize    int           `yaml:"page_size"`
	Timeout     time.Duration `yaml:"timeout"`
}

// AgentConfig controls the AI commentary gateway.
type AgentConfig struct {
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	Model     string        `yaml:"model"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
	Referer   string        `yaml:"referer"`
	Title     string        `yaml:"title"`
}

// RewardConfig tunes the reward state machine.
type RewardConfig struct {
	InvitePrefix         string          `yaml:"invite_prefix"`
	TimerDurationSeconds int64           `yaml:"timer_duration_seconds"`
	TimerRewardPoints    int64           `yaml:"timer_reward_points"`
	ReferralThreshold    int64           `yaml:"referral_threshold"`
	ReferralBonusPoints  int64           `yaml:"referral_bonus_points"`
	PassPrices           map[int64]int64 `yaml:"pass_prices"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			AllowedOrigins: []string{"*"},
		},
		Storage: StorageConfig{
			Backend: "file",
			Path:    "data/reward-state.json",
		},
		Market: MarketConfig{
			UpstreamURL: "https://api.coingecko.com/api/v3/coins/markets",
			Currency:    "usd",
			PageSize:    10,
			Timeout:     5 * time.Second,
		},
		Agent: AgentConfig{
			BaseURL:   "https://openrouter.ai/api/v1",
			Model:     "meta-llama/llama-4-maverick",
			MaxTokens: 500,
			Timeout:   30 * time.Second,
		},
		Reward: RewardConfig{
			InvitePrefix:         "TRDN",
			TimerDurationSeconds: 21600,
			TimerRewardPoints:    2000,
			ReferralThreshold:    5,
			ReferralBonusPoints:  5000,
			PassPrices:           map[int64]int64{1: 500, 5: 2000},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the configuration from path, falling back to defaults when the
// file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// Defaults apply.
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file values from the environment. TRADON_AGENT_API_KEY
// is the usual way to supply the upstream key without writing it to disk.
func (c *Config) applyEnv() {
	if v := os.Getenv("TRADON_HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("TRADON_STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("TRADON_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("TRADON_STORAGE_DSN"); v != "" {
		c.Storage.DSN = v
	}
	if v := os.Getenv("TRADON_MARKET_URL"); v != "" {
		c.Market.UpstreamURL = v
	}
	if v := os.Getenv("TRADON_AGENT_URL"); v != "" {
		c.Agent.BaseURL = v
	}
	if v := os.Getenv("TRADON_AGENT_API_KEY"); v != "" {
		c.Agent.APIKey = v
	}
	if v := os.Getenv("TRADON_AGENT_MODEL"); v != "" {
		c.Agent.Model = v
	}
	if v := os.Getenv("TRADON_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Storage.Backend)) {
	case "memory":
	case "file":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the file backend")
		}
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unsupported storage backend: %s", c.Storage.Backend)
	}

	if c.Market.PageSize <= 0 {
		return fmt.Errorf("market.page_size must be positive")
	}
	if c.Reward.TimerDurationSeconds <= 0 {
		return fmt.Errorf("reward.timer_duration_seconds must be positive")
	}
	return nil
}
