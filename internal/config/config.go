package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aretw0/logicbridge/internal/logging"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix marks environment overrides: LOGICBRIDGE_STORE_KIND=redis sets store.kind.
const EnvPrefix = "LOGICBRIDGE_"

// Config is the runtime configuration of the CLI and servers.
type Config struct {
	Session  SessionConfig `mapstructure:"session"`
	Log      LogConfig     `mapstructure:"log"`
	Store    StoreConfig   `mapstructure:"store"`
	HTTP     ServerConfig  `mapstructure:"http"`
	Metrics  ServerConfig  `mapstructure:"metrics"`
	Programs []string      `mapstructure:"programs"`
}

type SessionConfig struct {
	Name       string `mapstructure:"name"`
	BufferSize int    `mapstructure:"buffer_size"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StoreConfig selects the program store. Kind is one of memory, file, redis or sqlite.
type StoreConfig struct {
	Kind     string        `mapstructure:"kind"`
	Path     string        `mapstructure:"path"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`

	// EncryptionKey is a base64 AES-256 key. When set, programs are sealed before storage.
	EncryptionKey string   `mapstructure:"encryption_key"`
	FallbackKeys  []string `mapstructure:"fallback_keys"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Session: SessionConfig{BufferSize: 4096},
		Log:     LogConfig{Level: "info", Format: "text"},
		Store:   StoreConfig{Kind: "memory"},
		HTTP:    ServerConfig{Addr: ":8080"},
	}
}

// Load reads the YAML file at path (optional) and applies environment overrides.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.Environ())
}

// LoadWithEnv is Load with an explicit environment, as KEY=VALUE pairs.
func LoadWithEnv(path string, environ []string) (Config, error) {
	raw := map[string]any{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if raw == nil {
			raw = map[string]any{}
		}
	}
	applyEnv(raw, environ)

	cfg := Default()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return Config{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, cfg.Validate()
}

// applyEnv merges LOGICBRIDGE_SECTION_KEY variables into raw.
// The first underscore separates the section from the key.
func applyEnv(raw map[string]any, environ []string) {
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		path := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
		section, key, nested := strings.Cut(path, "_")
		if !nested {
			raw[path] = value
			continue
		}
		m, ok := raw[section].(map[string]any)
		if !ok {
			m = map[string]any{}
			raw[section] = m
		}
		m[key] = value
	}
}

// Validate checks values that decoding alone cannot.
func (c Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	switch c.Store.Kind {
	case "", "memory", "file", "sqlite":
	case "redis":
		if c.Store.Addr == "" {
			errs = append(errs, errors.New("store.addr is required for redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store kind %q", c.Store.Kind))
	}
	if c.Session.BufferSize < 0 {
		errs = append(errs, errors.New("session.buffer_size must not be negative"))
	}
	return errors.Join(errs...)
}
