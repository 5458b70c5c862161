package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service and the CLI.
// Precedence is Default < file < environment < flags.
type Config struct {
	Addr             string   `json:"addr" yaml:"addr" toml:"addr"`
	DefinitionsDir   string   `json:"definitions_dir" yaml:"definitions_dir" toml:"definitions_dir"`
	SupportedFormats []string `json:"supported_formats" yaml:"supported_formats" toml:"supported_formats"`
	MemoryBudgetMB   int      `json:"memory_budget_mb" yaml:"memory_budget_mb" toml:"memory_budget_mb"`
	MemoryMarginMB   int      `json:"memory_margin_mb" yaml:"memory_margin_mb" toml:"memory_margin_mb"`
	CacheSize        int      `json:"cache_size" yaml:"cache_size" toml:"cache_size"`
	Watch            bool     `json:"watch" yaml:"watch" toml:"watch"`
	// Debounce window for watch reloads in milliseconds.
	WatchDebounceMS int    `json:"watch_debounce_ms" yaml:"watch_debounce_ms" toml:"watch_debounce_ms"`
	LogLevel        string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat       string `json:"log_format" yaml:"log_format" toml:"log_format"`
	MaxBodyBytes    int64  `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	// Requests accepted by one /resolve/batch call.
	MaxBatchSize int `json:"max_batch_size" yaml:"max_batch_size" toml:"max_batch_size"`
	// Concurrent resolutions per batch; 0 means GOMAXPROCS.
	Parallelism int `json:"parallelism" yaml:"parallelism" toml:"parallelism"`

	CORSEnabled        bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`
	CORSAllowedMethods []string `json:"cors_allowed_methods" yaml:"cors_allowed_methods" toml:"cors_allowed_methods"`
	CORSAllowedHeaders []string `json:"cors_allowed_headers" yaml:"cors_allowed_headers" toml:"cors_allowed_headers"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:             ":8080",
		DefinitionsDir:   "~/.modelyaml/models",
		SupportedFormats: []string{"gguf", "safetensors"},
		CacheSize:        256,
		WatchDebounceMS:  250,
		LogLevel:         "info",
		LogFormat:        "console",
		MaxBodyBytes:     1 << 20,
		MaxBatchSize:     256,
	}
}

// Load reads a configuration file based on its extension on top of Default.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from MODELYAML_* environment variables.
// Malformed numeric or boolean values are reported and leave the field unchanged.
func (c *Config) ApplyEnv() error {
	var errs []string
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v := os.Getenv(key); v != "" {
			*dst = SplitCSV(v)
		}
	}
	num := func(key string, set func(int64)) {
		v := os.Getenv(key)
		if v == "" {
			return
		}
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = append(errs, key)
			return
		}
		set(n)
	}
	flag := func(key string, dst *bool) {
		v := os.Getenv(key)
		if v == "" {
			return
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, key)
			return
		}
		*dst = b
	}

	str("MODELYAML_ADDR", &c.Addr)
	str("MODELYAML_DEFINITIONS_DIR", &c.DefinitionsDir)
	list("MODELYAML_SUPPORTED_FORMATS", &c.SupportedFormats)
	num("MODELYAML_MEMORY_BUDGET_MB", func(n int64) { c.MemoryBudgetMB = int(n) })
	num("MODELYAML_MEMORY_MARGIN_MB", func(n int64) { c.MemoryMarginMB = int(n) })
	num("MODELYAML_CACHE_SIZE", func(n int64) { c.CacheSize = int(n) })
	flag("MODELYAML_WATCH", &c.Watch)
	num("MODELYAML_WATCH_DEBOUNCE_MS", func(n int64) { c.WatchDebounceMS = int(n) })
	str("MODELYAML_LOG_LEVEL", &c.LogLevel)
	str("MODELYAML_LOG_FORMAT", &c.LogFormat)
	num("MODELYAML_MAX_BODY_BYTES", func(n int64) { c.MaxBodyBytes = n })
	num("MODELYAML_MAX_BATCH_SIZE", func(n int64) { c.MaxBatchSize = int(n) })
	num("MODELYAML_PARALLELISM", func(n int64) { c.Parallelism = int(n) })
	flag("MODELYAML_CORS_ENABLED", &c.CORSEnabled)
	list("MODELYAML_CORS_ALLOWED_ORIGINS", &c.CORSAllowedOrigins)
	list("MODELYAML_CORS_ALLOWED_METHODS", &c.CORSAllowedMethods)
	list("MODELYAML_CORS_ALLOWED_HEADERS", &c.CORSAllowedHeaders)

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment values: %s", strings.Join(errs, ", "))
	}
	return nil
}

// SplitCSV splits a comma-separated list, trimming blanks and dropping empty items.
func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
