// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/hammamikhairi/gridvoice/internal/logger"
)

// Prefix is prepended to every variable name: GRIDVOICE_SYMBOL, ...
const Prefix = "GRIDVOICE"

// Config holds process-level settings. User preferences that change at
// runtime (interval, voice, language) live in the settings file instead.
type Config struct {
	FeedBase       string        `split_words:"true" default:"wss://stream.binance.com:9443"`
	Symbol         string        `default:"BTCUSDT"`
	ReconnectDelay time.Duration `split_words:"true" default:"5s"`
	StopTimeout    time.Duration `split_words:"true" default:"1s"`

	CacheDir  string `split_words:"true" default:".gridvoice-cache"`
	DiskCache bool   `split_words:"true" default:"true"`

	// Redis is optional; leave the address empty to skip it.
	RedisAddr     string        `split_words:"true"`
	RedisPassword string        `split_words:"true"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	RedisTTL      time.Duration `envconfig:"REDIS_TTL" default:"720h"`

	// Unprefixed names are accepted too, matching the Azure docs.
	AzureSpeechKey    string `envconfig:"AZURE_SPEECH_KEY"`
	AzureSpeechRegion string `envconfig:"AZURE_SPEECH_REGION"`

	SettingsFile string `split_words:"true" default:"gridvoice-settings.json"`
	LogLevel     string `split_words:"true" default:"normal"`
	LogFile      string `split_words:"true" default:".gridvoice-logs/gridvoice.log"`
}

// Load reads .env (if present) into the environment, then maps the
// environment onto Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that have no safe interpretation.
func (c *Config) Validate() error {
	var errs []error
	if c.Symbol == "" {
		errs = append(errs, errors.New("symbol must not be empty"))
	}
	if c.ReconnectDelay <= 0 {
		errs = append(errs, fmt.Errorf("reconnect delay must be positive, got %s", c.ReconnectDelay))
	}
	if c.StopTimeout <= 0 {
		errs = append(errs, fmt.Errorf("stop timeout must be positive, got %s", c.StopTimeout))
	}
	if c.RedisTTL < 0 {
		errs = append(errs, fmt.Errorf("redis ttl must not be negative, got %s", c.RedisTTL))
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// HasAzure reports whether both speech credentials are set.
func (c *Config) HasAzure() bool {
	return c.AzureSpeechKey != "" && c.AzureSpeechRegion != ""
}
