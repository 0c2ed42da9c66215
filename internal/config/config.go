// Package config loads amarictl settings from YAML with environment
// overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "AMARI_"

type Config struct {
	Log     LogConfig     `yaml:"log"`
	Store   StoreConfig   `yaml:"store"`
	Server  ServerConfig  `yaml:"server"`
	Batch   BatchConfig   `yaml:"batch"`
	Tracing TracingConfig `yaml:"tracing"`
}

type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	// Format is text, json, or auto (text on a terminal).
	Format string `yaml:"format" validate:"oneof=auto text json"`
}

type StoreConfig struct {
	Kind string `yaml:"kind" validate:"oneof=memory sqlite badger"`
	// Path is the sqlite file or badger directory. An empty badger path
	// keeps everything in memory.
	Path string `yaml:"path"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required,hostname_port"`
	// RateLimit is requests per second per client; 0 disables limiting.
	RateLimit float64 `yaml:"rate_limit" validate:"min=0"`
	Burst     int     `yaml:"burst" validate:"min=0"`
	// MaxBodyBytes bounds request payloads.
	MaxBodyBytes int64 `yaml:"max_body_bytes" validate:"min=1024"`
}

type BatchConfig struct {
	// Workers is the default batch concurrency; 0 means GOMAXPROCS.
	Workers int `yaml:"workers" validate:"min=0,max=256"`
}

type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name" validate:"required"`
	// Exporter is stdout or none.
	Exporter string `yaml:"exporter" validate:"oneof=stdout none"`
}

func Default() Config {
	return Config{
		Log:   LogConfig{Level: "info", Format: "auto"},
		Store: StoreConfig{Kind: "memory"},
		Server: ServerConfig{
			Addr:         "127.0.0.1:8080",
			RateLimit:    50,
			Burst:        100,
			MaxBodyBytes: 8 << 20,
		},
		Tracing: TracingConfig{ServiceName: "amari", Exporter: "stdout"},
	}
}

var validate = validator.New()

// Load reads path over the defaults, applies AMARI_* overrides from the
// process environment and validates the result. An empty path skips the
// file.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

func LoadWithEnv(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Marshal renders the config as YAML, for `amarictl config`.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("STORE_KIND", &cfg.Store.Kind)
	str("STORE_PATH", &cfg.Store.Path)
	str("SERVER_ADDR", &cfg.Server.Addr)
	str("TRACING_EXPORTER", &cfg.Tracing.Exporter)

	if v, ok := lookup(EnvPrefix + "RATE_LIMIT"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sRATE_LIMIT: %w", EnvPrefix, err)
		}
		cfg.Server.RateLimit = f
	}
	for key, dst := range map[string]*int{
		"RATE_BURST":    &cfg.Server.Burst,
		"BATCH_WORKERS": &cfg.Batch.Workers,
	} {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
	}
	if v, ok := lookup(EnvPrefix + "TRACING"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sTRACING: %w", EnvPrefix, err)
		}
		cfg.Tracing.Enabled = b
	}
	return nil
}

// SlogLevel maps Log.Level onto slog; unknown values fall back to info.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
