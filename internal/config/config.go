// Package config loads the application configuration from an optional YAML
// file, REVISA_-prefixed environment variables, and command-line flags, in
// that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/mfreire/revisa/internal/leitner"
)

const envPrefix = "REVISA_"

// Config is the application configuration.
type Config struct {
	Listen    string    `koanf:"listen" validate:"required"`
	DB        string    `koanf:"db" validate:"required"`
	ReposDir  string    `koanf:"repos_dir" validate:"required"`
	Scheduler Scheduler `koanf:"scheduler"`
}

// Scheduler holds the interval-table override for the review scheduler.
// Intervals must have exactly MaxBox entries and strictly increase.
type Scheduler struct {
	MaxBox    int             `koanf:"max_box" validate:"gte=1"`
	Intervals []time.Duration `koanf:"intervals"`
}

// Leitner converts the section into a scheduler config.
func (s Scheduler) Leitner() leitner.Config {
	return leitner.Config{
		MaxBox:    s.MaxBox,
		Intervals: s.Intervals,
	}
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Listen:   ":8080",
		DB:       "revisa.db",
		ReposDir: "repos",
		Scheduler: Scheduler{
			MaxBox:    leitner.DefaultMaxBox,
			Intervals: leitner.DefaultIntervals,
		},
	}
}

// Load builds the configuration by layering the YAML file at path (if it
// exists), environment variables, and the given flag set over the defaults.
// Either path or flags may be empty/nil. The result is validated; an invalid
// configuration is rejected here, before any scheduling call is made.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("loading config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("checking config file %s: %w", path, err)
		}
	}

	// REVISA_LISTEN=:9090, REVISA_SCHEDULER__MAX_BOX=7, ...
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.TrimPrefix(s, envPrefix)
		return strings.ReplaceAll(strings.ToLower(key), "__", ".")
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, fmt.Errorf("loading flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks structural constraints plus the interval-table invariants.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if len(c.Scheduler.Intervals) != c.Scheduler.MaxBox {
		return fmt.Errorf("invalid config: %d intervals for %d boxes",
			len(c.Scheduler.Intervals), c.Scheduler.MaxBox)
	}
	for i, d := range c.Scheduler.Intervals {
		if d <= 0 {
			return fmt.Errorf("invalid config: interval for box %d is not positive", i+1)
		}
		if i > 0 && d <= c.Scheduler.Intervals[i-1] {
			return fmt.Errorf("invalid config: intervals must strictly increase (box %d)", i+1)
		}
	}
	return nil
}
