// Package config loads the printquote configuration file and applies
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/philipparndt/printquote/pkg/pricing"
	"github.com/philipparndt/printquote/pkg/thumbnail"
)

const (
	EnvAPIURL    = "PRINTQUOTE_API_URL"
	EnvAPIToken  = "PRINTQUOTE_API_TOKEN"
	EnvCachePath = "PRINTQUOTE_CACHE_PATH"
	EnvListen    = "PRINTQUOTE_LISTEN_ADDR"

	defaultAPITimeout    = 30 * time.Second
	defaultListenAddr    = ":8080"
	defaultReadTimeout   = 15 * time.Second
	defaultWriteTimeout  = 60 * time.Second
	defaultThumbCache    = 100
	defaultOpenSCAD      = "openscad"
	defaultWatchDebounce = 500 * time.Millisecond
)

// Cache drivers
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config captures all runtime configuration organised by concern
type Config struct {
	API       APIConfig        `yaml:"api"`
	Cache     CacheConfig      `yaml:"cache"`
	Server    ServerConfig     `yaml:"server"`
	Thumbnail ThumbnailConfig  `yaml:"thumbnail"`
	OpenSCAD  OpenSCADConfig   `yaml:"openscad"`
	Watch     WatchConfig      `yaml:"watch"`
	Defaults  pricing.Settings `yaml:"defaults"`
	Catalog   pricing.Catalog  `yaml:"catalog"`
}

// APIConfig points at the business backend
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// CacheConfig selects the pricing cache implementation
type CacheConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// AllowLocalFiles lets /api/thumbnail read paths on the server's disk
	AllowLocalFiles bool `yaml:"allow_local_files"`
}

// ThumbnailConfig holds render defaults and the cache size
type ThumbnailConfig struct {
	CacheSize int               `yaml:"cache_size"`
	Options   thumbnail.Options `yaml:"options"`
}

// OpenSCADConfig locates the openscad binary
type OpenSCADConfig struct {
	Binary string `yaml:"binary"`
}

// WatchConfig controls the inbox watcher
type WatchConfig struct {
	Debounce   time.Duration `yaml:"debounce"`
	Thumbnails bool          `yaml:"thumbnails"`
}

// ValidationError lists the fields that failed validation
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: invalid fields [%s]", strings.Join(e.Fields, ", "))
}

// Default returns the configuration used when no file exists
func Default() Config {
	return Config{
		API: APIConfig{Timeout: defaultAPITimeout},
		Cache: CacheConfig{
			Driver: DriverMemory,
		},
		Server: ServerConfig{
			Addr:         defaultListenAddr,
			ReadTimeout:  defaultReadTimeout,
			WriteTimeout: defaultWriteTimeout,
		},
		Thumbnail: ThumbnailConfig{CacheSize: defaultThumbCache},
		OpenSCAD:  OpenSCADConfig{Binary: defaultOpenSCAD},
		Watch:     WatchConfig{Debounce: defaultWatchDebounce},
		Defaults:  pricing.DefaultSettings(),
		Catalog:   pricing.DefaultCatalog(),
	}
}

// DefaultPath returns ~/.printquote/config.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".printquote", "config.yaml")
	}
	return filepath.Join(home, ".printquote", "config.yaml")
}

// Option customises Load behaviour
type Option func(*loaderOptions)

type loaderOptions struct {
	env func(string) string
}

// WithEnv replaces the process environment as the source of overrides
func WithEnv(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.env = func(key string) string { return values[key] }
	}
}

// Load reads the YAML file at path (DefaultPath when empty) on top of the
// defaults, then applies environment overrides. A missing file is not an
// error. Catalog tables in the file are merged into the default tables by key.
func Load(path string, opts ...Option) (Config, error) {
	options := loaderOptions{env: os.Getenv}
	for _, opt := range opts {
		opt(&options)
	}
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		// Decode catalog tables on their own so keys merge case-insensitively
		defaults := cfg.Catalog
		cfg.Catalog = pricing.Catalog{}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		cfg.Catalog = defaults.Merge(cfg.Catalog)
	}

	cfg.applyEnv(options.env)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(env func(string) string) {
	if v := strings.TrimSpace(env(EnvAPIURL)); v != "" {
		c.API.BaseURL = v
	}
	if v := strings.TrimSpace(env(EnvAPIToken)); v != "" {
		c.API.Token = v
	}
	if v := strings.TrimSpace(env(EnvCachePath)); v != "" {
		c.Cache.Path = v
		c.Cache.Driver = DriverSQLite
	}
	if v := strings.TrimSpace(env(EnvListen)); v != "" {
		c.Server.Addr = v
	}
}

// Validate checks the loaded values
func (c Config) Validate() error {
	var fields []string
	if c.API.Timeout <= 0 {
		fields = append(fields, "api.timeout")
	}
	switch c.Cache.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Cache.Path == "" {
			fields = append(fields, "cache.path")
		}
	default:
		fields = append(fields, "cache.driver")
	}
	if c.Server.Addr == "" {
		fields = append(fields, "server.addr")
	}
	if c.Thumbnail.CacheSize < 1 {
		fields = append(fields, "thumbnail.cache_size")
	}
	if c.Defaults.Quantity < 1 {
		fields = append(fields, "defaults.quantity")
	}
	if err := c.Catalog.Validate(); err != nil {
		fields = append(fields, "catalog")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Save writes the configuration as YAML, creating the parent directory
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
