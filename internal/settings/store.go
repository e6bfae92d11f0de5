// Package settings persists user preferences in a JSON file.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"

	"github.com/hammamikhairi/gridvoice/internal/domain"
	"github.com/hammamikhairi/gridvoice/internal/logger"
	"github.com/hammamikhairi/gridvoice/internal/phrase"
	"github.com/hammamikhairi/gridvoice/internal/speech"
)

// Setting keys as they appear in the file.
const (
	KeyInterval    = "interval"
	KeyVoice       = "voice"
	KeyLanguage    = "language"
	KeyAlwaysOnTop = "always_on_top"
	KeyMuted       = "muted"
	KeyTickerMode  = "ticker_mode"
)

// Settings is a snapshot of the user's preferences.
type Settings struct {
	Interval    float64 `mapstructure:"interval"`
	Voice       string  `mapstructure:"voice"`
	Language    string  `mapstructure:"language"`
	AlwaysOnTop bool    `mapstructure:"always_on_top"`
	Muted       bool    `mapstructure:"muted"`
	TickerMode  bool    `mapstructure:"ticker_mode"`
}

// Defaults returns the settings used when the file is missing or unreadable.
func Defaults() Settings {
	return Settings{
		Interval:    50,
		Voice:       speech.DefaultVoice,
		Language:    phrase.LangKorean,
		AlwaysOnTop: true,
	}
}

// Store wraps a viper instance bound to one settings file. Safe for
// concurrent use.
type Store struct {
	mu   sync.Mutex
	v    *viper.Viper
	path string
	log  *logger.Logger
}

// Open loads the settings file at path. A missing file yields defaults; a
// corrupt file is logged and also yields defaults. Neither is an error.
func Open(path string, log *logger.Logger) *Store {
	s := &Store{path: path, log: log}
	s.v = newViper(path)

	if err := s.v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Info("settings: %s not found, using defaults", path)
		} else {
			log.Error("settings: reading %s: %v (using defaults)", path, err)
		}
		s.v = newViper(path)
		return s
	}

	s.sanitize()
	log.Info("settings loaded from %s", path)
	return s
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	d := Defaults()
	v.SetDefault(KeyInterval, d.Interval)
	v.SetDefault(KeyVoice, d.Voice)
	v.SetDefault(KeyLanguage, d.Language)
	v.SetDefault(KeyAlwaysOnTop, d.AlwaysOnTop)
	v.SetDefault(KeyMuted, d.Muted)
	v.SetDefault(KeyTickerMode, d.TickerMode)
	return v
}

// sanitize replaces invalid values read from disk with defaults.
func (s *Store) sanitize() {
	d := Defaults()
	if err := validate(KeyInterval, s.v.Get(KeyInterval)); err != nil {
		s.log.Warn("settings: %v, using %v", err, d.Interval)
		s.v.Set(KeyInterval, d.Interval)
	}
	if err := validate(KeyLanguage, s.v.Get(KeyLanguage)); err != nil {
		s.log.Warn("settings: %v, using %s", err, d.Language)
		s.v.Set(KeyLanguage, d.Language)
	}
	if s.v.GetString(KeyVoice) == "" {
		s.v.Set(KeyVoice, d.Voice)
	}
}

// Path returns the settings file location.
func (s *Store) Path() string { return s.path }

// Get returns the current settings.
func (s *Store) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Settings{
		Interval:    s.v.GetFloat64(KeyInterval),
		Voice:       s.v.GetString(KeyVoice),
		Language:    s.v.GetString(KeyLanguage),
		AlwaysOnTop: s.v.GetBool(KeyAlwaysOnTop),
		Muted:       s.v.GetBool(KeyMuted),
		TickerMode:  s.v.GetBool(KeyTickerMode),
	}
}

// Set validates and stores one value, then writes the file.
func (s *Store) Set(key string, value any) error {
	return s.Update(map[string]any{key: value})
}

// Update validates every value first, stores them all, then writes the
// file once. Nothing is applied if any value is invalid.
func (s *Store) Update(values map[string]any) error {
	for k, val := range values {
		if err := validate(k, val); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, val := range values {
		s.v.Set(k, val)
	}
	return s.save()
}

func (s *Store) save() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating settings dir: %w", err)
		}
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	s.log.Debug("settings saved to %s", s.path)
	return nil
}

func validate(key string, value any) error {
	switch key {
	case KeyInterval:
		f, ok := toFloat(value)
		if !ok || f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: %v", domain.ErrInvalidInterval, value)
		}
	case KeyLanguage:
		name, _ := value.(string)
		if _, err := phrase.Code(name); err != nil {
			return err
		}
	case KeyVoice:
		if name, _ := value.(string); name == "" {
			return errors.New("voice must not be empty")
		}
	case KeyAlwaysOnTop, KeyMuted, KeyTickerMode:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%s must be a bool, got %T", key, value)
		}
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
