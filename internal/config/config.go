// Package config loads client configuration from an optional YAML file and
// FEIRA_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds runtime configuration for the client.
type Config struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	PageSize int           `mapstructure:"page_size"`
	DataDir  string        `mapstructure:"data_dir"` // token storage dir, empty selects the default
}

// Load reads configFile when non-empty (missing file is an error), otherwise
// builds the config from defaults and environment only. Environment variables
// use the FEIRA_ prefix with underscores (FEIRA_BASE_URL, FEIRA_TIMEOUT, ...).
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetDefault("base_url", "http://localhost:3000")
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("page_size", 10)
	v.SetDefault("data_dir", "")

	v.SetEnvPrefix("FEIRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	// typed getters so env-var strings coerce cleanly
	cfg := &Config{
		BaseURL:  v.GetString("base_url"),
		Timeout:  v.GetDuration("timeout"),
		PageSize: v.GetInt("page_size"),
		DataDir:  v.GetString("data_dir"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no component could run with.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url must not be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.PageSize < 1 {
		return fmt.Errorf("page_size must be at least 1")
	}
	return nil
}
