// Package config loads the insight core's configuration: defaults, an
// optional YAML file, then environment overrides. The service base URLs are
// environment-supplied in deployment; the file mainly serves local runs.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables honoured after the file is applied.
const (
	EnvAPIURL    = "INSIGHTS_API_URL"
	EnvWSURL     = "INSIGHTS_WS_URL"
	EnvAuthToken = "INSIGHTS_AUTH_TOKEN"
)

type Config struct {
	API      APIConfig      `yaml:"api"`
	Realtime RealtimeConfig `yaml:"realtime"`
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

type RealtimeConfig struct {
	BaseURL    string        `yaml:"base_url"`
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
}

func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://127.0.0.1:8000",
			Timeout: 10 * time.Second,
		},
		Realtime: RealtimeConfig{
			BaseURL:    "ws://127.0.0.1:8000",
			MaxRetries: 5,
			BaseDelay:  3 * time.Second,
			MaxDelay:   48 * time.Second,
		},
	}
}

// Load reads the config file at path on top of the defaults, then applies
// environment overrides. An empty path skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv(EnvAPIURL); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv(EnvWSURL); v != "" {
		cfg.Realtime.BaseURL = v
	}
	if v := os.Getenv(EnvAuthToken); v != "" {
		cfg.API.Token = v
	}
	return cfg, nil
}
