// Package config loads the Bookflow runtime configuration: defaults, then an
// optional YAML file, then BOOKFLOW_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "BOOKFLOW_"

type Config struct {
	Log     LogConfig     `yaml:"log"`
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Session SessionConfig `yaml:"session"`
	Engine  EngineConfig  `yaml:"engine"`
	Redis   RedisConfig   `yaml:"redis"`
	NATS    NATSConfig    `yaml:"nats"`
	LLM     LLMConfig     `yaml:"llm"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

// StoreConfig selects the bookstore backend: "memory" or "sqlite".
type StoreConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	Seed     bool   `yaml:"seed"`
	SeedFile string `yaml:"seed_file"`
}

// SessionConfig selects the session backend: "memory" or "redis".
type SessionConfig struct {
	Backend       string        `yaml:"backend"`
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	HistoryLimit  int           `yaml:"history_limit"`
	Redact        []string      `yaml:"redact"`
}

// EngineConfig tunes turn handling. A zero DefaultQuantity makes add_to_cart
// ask for the quantity instead of assuming one.
type EngineConfig struct {
	DefaultQuantity int `yaml:"default_quantity"`
	SearchLimit     int `yaml:"search_limit"`
	MaxInputSize    int `yaml:"max_input_size"`
}

type RedisConfig struct {
	URL    string `yaml:"url"`
	Prefix string `yaml:"prefix"`
	Lock   bool   `yaml:"lock"`
}

// NATSConfig enables the NATS transport when URL is set.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
	Queue   string `yaml:"queue"`
}

// LLMConfig enables generated replies when Provider is set.
type LLMConfig struct {
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model"`
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Default returns a configuration that runs entirely in memory.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Store: StoreConfig{Driver: "memory", Path: "bookflow.db", Seed: true},
		Session: SessionConfig{
			Backend:       "memory",
			TTL:           30 * time.Minute,
			SweepInterval: 5 * time.Minute,
			HistoryLimit:  50,
		},
		Engine: EngineConfig{DefaultQuantity: 1, SearchLimit: 5, MaxInputSize: 4096},
		Redis:  RedisConfig{URL: "redis://localhost:6379/0", Prefix: "bookflow:session:"},
		NATS:   NATSConfig{Subject: "bookflow.turn", Queue: "bookflow"},
		LLM:    LLMConfig{Timeout: 8 * time.Second},
	}
}

// Load builds the configuration. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		if err := Decode(f, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Decode overlays YAML from r onto cfg. Unknown keys are rejected.
func Decode(r io.Reader, cfg *Config) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// Validate checks enumerations and bounds.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case "memory", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver))
	}
	if c.Store.Driver == "sqlite" && c.Store.Path == "" {
		errs = append(errs, errors.New("store.path: required for sqlite"))
	}
	switch c.Session.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("session.backend: unknown backend %q", c.Session.Backend))
	}
	switch c.LLM.Provider {
	case "", "openai", "ollama":
	default:
		errs = append(errs, fmt.Errorf("llm.provider: unknown provider %q", c.LLM.Provider))
	}
	if c.Session.TTL < 0 {
		errs = append(errs, errors.New("session.ttl: must not be negative"))
	}
	if c.Session.HistoryLimit < 0 {
		errs = append(errs, errors.New("session.history_limit: must not be negative"))
	}
	if c.Engine.DefaultQuantity < 0 {
		errs = append(errs, errors.New("engine.default_quantity: must not be negative"))
	}
	return errors.Join(errs...)
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(string) (string, bool)

// ApplyEnv overlays BOOKFLOW_* variables onto cfg.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	e := envReader{lookup: lookup}

	e.str("LOG_LEVEL", &cfg.Log.Level)
	e.str("LOG_FORMAT", &cfg.Log.Format)

	e.str("ADDR", &cfg.Server.Addr)
	e.duration("READ_TIMEOUT", &cfg.Server.ReadTimeout)
	e.duration("WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	e.duration("SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	e.list("CORS_ORIGINS", &cfg.Server.CORSOrigins)

	e.str("STORE_DRIVER", &cfg.Store.Driver)
	e.str("STORE_PATH", &cfg.Store.Path)
	e.boolean("STORE_SEED", &cfg.Store.Seed)
	e.str("STORE_SEED_FILE", &cfg.Store.SeedFile)

	e.str("SESSION_BACKEND", &cfg.Session.Backend)
	e.duration("SESSION_TTL", &cfg.Session.TTL)
	e.duration("SESSION_SWEEP_INTERVAL", &cfg.Session.SweepInterval)
	e.integer("SESSION_HISTORY_LIMIT", &cfg.Session.HistoryLimit)

	e.integer("DEFAULT_QUANTITY", &cfg.Engine.DefaultQuantity)
	e.integer("SEARCH_LIMIT", &cfg.Engine.SearchLimit)
	e.integer("MAX_INPUT_SIZE", &cfg.Engine.MaxInputSize)

	e.str("REDIS_URL", &cfg.Redis.URL)
	e.str("REDIS_PREFIX", &cfg.Redis.Prefix)
	e.boolean("REDIS_LOCK", &cfg.Redis.Lock)

	e.str("NATS_URL", &cfg.NATS.URL)
	e.str("NATS_SUBJECT", &cfg.NATS.Subject)
	e.str("NATS_QUEUE", &cfg.NATS.Queue)

	e.str("LLM_PROVIDER", &cfg.LLM.Provider)
	e.str("LLM_MODEL", &cfg.LLM.Model)
	e.str("LLM_BASE_URL", &cfg.LLM.BaseURL)
	e.str("LLM_API_KEY", &cfg.LLM.APIKey)
	e.duration("LLM_TIMEOUT", &cfg.LLM.Timeout)

	return errors.Join(e.errs...)
}

type envReader struct {
	lookup LookupFunc
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(EnvPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *envReader) fail(key, v string, err error) {
	e.errs = append(e.errs, fmt.Errorf("%s%s=%q: %w", EnvPrefix, key, v, err))
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) list(key string, dst *[]string) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func (e *envReader) integer(key string, dst *int) {
	if v, ok := e.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	if v, ok := e.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = b
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if v, ok := e.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = d
	}
}
