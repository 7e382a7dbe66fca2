package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything supplied from outside the process: listen
// address, cross-origin policy and the maintenance sweep knobs.
type Config struct {
	HTTPAddr       string
	AllowedOrigins []string
	SweepInterval  time.Duration
	SessionMaxAge  time.Duration
}

func setDefaults() {
	viper.SetDefault("server.addr", ":5000")
	viper.SetDefault("server.allowedOrigins", []string{"http://localhost:3000"})

	viper.SetDefault("sweep.interval", "30m")
	viper.SetDefault("sweep.maxAge", "24h")
}

// Load reads configuration from an optional config.yaml and CHESSROOM_*
// environment variables, falling back to defaults.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("CHESSROOM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config file error: %w", err)
		}
	}

	cfg := &Config{
		HTTPAddr:       viper.GetString("server.addr"),
		AllowedOrigins: viper.GetStringSlice("server.allowedOrigins"),
		SweepInterval:  viper.GetDuration("sweep.interval"),
		SessionMaxAge:  viper.GetDuration("sweep.maxAge"),
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("server.addr must not be empty")
	}
	if c.SweepInterval <= 0 {
		return errors.New("sweep.interval must be positive")
	}
	if c.SessionMaxAge <= 0 {
		return errors.New("sweep.maxAge must be positive")
	}
	return nil
}
