package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/im-Prabhasha/VolumeTracker/internal/providers/coingecko"
)

// Config is the top-level voltracker configuration, loaded from YAML
// with zero values filled in by defaults and a couple of environment
// overrides (HTTP_PORT, COINGECKO_API_KEY).
type Config struct {
	API     APIConfig     `yaml:"api"`
	Refresh RefreshConfig `yaml:"refresh"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
}

// APIConfig configures the upstream market-data adapter.
type APIConfig struct {
	BaseURL        string  `yaml:"base_url"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	PerPage        int     `yaml:"per_page"`
	Page           int     `yaml:"page"`
	RPS            float64 `yaml:"rps"`
	Burst          int     `yaml:"burst"`
}

// RefreshConfig configures the auto-refresh loop.
type RefreshConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host                string `yaml:"host"`
	Port                int    `yaml:"port"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	IdleTimeoutSeconds  int    `yaml:"idle_timeout_seconds"`
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads the config file at path, or returns pure defaults when path
// is empty. Unset fields fall back to defaults either way.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := coingecko.DefaultConfig()
	if c.API.BaseURL == "" {
		c.API.BaseURL = def.BaseURL
	}
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = int(def.Timeout / time.Second)
	}
	if c.API.PerPage <= 0 {
		c.API.PerPage = def.PerPage
	}
	if c.API.Page <= 0 {
		c.API.Page = def.Page
	}
	if c.API.RPS <= 0 {
		c.API.RPS = def.RPS
	}
	if c.API.Burst <= 0 {
		c.API.Burst = def.Burst
	}

	if c.Refresh.IntervalSeconds <= 0 {
		c.Refresh.IntervalSeconds = 300
	}

	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1" // local-only by default
	}
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeoutSeconds <= 0 {
		c.Server.ReadTimeoutSeconds = 10
	}
	if c.Server.WriteTimeoutSeconds <= 0 {
		c.Server.WriteTimeoutSeconds = 10
	}
	if c.Server.IdleTimeoutSeconds <= 0 {
		c.Server.IdleTimeoutSeconds = 60
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) applyEnv() {
	if portStr := os.Getenv("HTTP_PORT"); portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil {
			c.Server.Port = p
		}
	}
}

// Provider maps the API section onto the adapter config, pulling the API
// key from the environment so it never lands in a config file.
func (c Config) Provider() coingecko.Config {
	return coingecko.Config{
		BaseURL: c.API.BaseURL,
		Timeout: time.Duration(c.API.TimeoutSeconds) * time.Second,
		PerPage: c.API.PerPage,
		Page:    c.API.Page,
		APIKey:  os.Getenv("COINGECKO_API_KEY"),
		RPS:     c.API.RPS,
		Burst:   c.API.Burst,
	}
}

// Interval returns the auto-refresh period.
func (c Config) Interval() time.Duration {
	return time.Duration(c.Refresh.IntervalSeconds) * time.Second
}
