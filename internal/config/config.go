// Package config handles layered YAML configuration with environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ProjectDir is the per-workspace directory holding config.yaml and
// template overrides.
const ProjectDir = ".compview"

// Config holds all compview configuration.
type Config struct {
	Trigger Trigger `yaml:"trigger"`
	Search  Search  `yaml:"search"`
	Catalog Catalog `yaml:"catalog"`
	Watch   Watch   `yaml:"watch"`
	Log     Log     `yaml:"log"`
	Metrics Metrics `yaml:"metrics"`
}

// Trigger holds cursor-trigger settings.
type Trigger struct {
	Debounce  time.Duration `yaml:"debounce"`
	Languages []string      `yaml:"languages"` // document extensions, e.g. ".tsx"
}

// Search holds workspace search settings.
type Search struct {
	Exclude       string `yaml:"exclude"`
	ImportScanner string `yaml:"import_scanner"` // "regexp" | "treesitter"
}

// Catalog holds component catalog settings.
type Catalog struct {
	Pattern string `yaml:"pattern"`
	Limit   int    `yaml:"limit"`
}

// Watch holds filesystem watcher settings.
type Watch struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"` // coalescing window for raw events
}

// Log holds logging settings.
type Log struct {
	Level string `yaml:"level"` // "debug" | "info" | "warn" | "error"
}

// Metrics holds the Prometheus endpoint settings.
type Metrics struct {
	Addr string `yaml:"addr"` // empty disables /metrics
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Trigger: Trigger{
			Debounce:  150 * time.Millisecond,
			Languages: []string{".tsx", ".ts", ".jsx", ".js", ".astro", ".vue", ".svelte", ".mdx"},
		},
		Search: Search{
			Exclude:       "**/node_modules/**",
			ImportScanner: "regexp",
		},
		Catalog: Catalog{
			Pattern: "**/*.tsx",
			Limit:   500,
		},
		Watch: Watch{
			Enabled:  true,
			Debounce: 100 * time.Millisecond,
		},
		Log: Log{
			Level: "info",
		},
	}
}

// UserPath returns the per-user config file path, or "" when the home
// directory is unknown.
func UserPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "compview", "config.yaml")
}

// ProjectPath returns the config file path inside a workspace root.
func ProjectPath(root string) string {
	return filepath.Join(root, ProjectDir, "config.yaml")
}

// TemplatesDir returns the template override directory inside a workspace root.
func TemplatesDir(root string) string {
	return filepath.Join(root, ProjectDir, "templates")
}

// Load reads a single YAML config file at path and returns a Config.
// For merging multiple config sources, use LoadLayered instead.
// If the file does not exist, defaults are returned without error.
// If the file contains invalid YAML or unknown fields, an error is returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return &cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		// Comment-only YAML files produce EOF with no decoded content.
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &cfg, nil
}

// LoadLayered loads config from multiple paths with increasing priority.
// Later paths override earlier ones. Missing files and empty paths are skipped.
func LoadLayered(paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		layer, err := loadLayer(path)
		if err != nil {
			return nil, err
		}
		if layer == nil {
			continue
		}
		cfg.merge(layer)
	}

	return &cfg, nil
}

// Validate checks that config values are usable.
func (c *Config) Validate() error {
	if c.Trigger.Debounce < 0 {
		return fmt.Errorf("config: trigger.debounce must be non-negative, got %v", c.Trigger.Debounce)
	}
	for _, lang := range c.Trigger.Languages {
		if !strings.HasPrefix(lang, ".") {
			return fmt.Errorf("config: trigger.languages entries must start with \".\", got %q", lang)
		}
	}
	if c.Search.ImportScanner == "" {
		return errors.New("config: search.import_scanner cannot be empty")
	}
	if c.Catalog.Pattern == "" {
		return errors.New("config: catalog.pattern cannot be empty")
	}
	if c.Catalog.Limit <= 0 {
		return fmt.Errorf("config: catalog.limit must be positive, got %d", c.Catalog.Limit)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("config: watch.debounce must be non-negative, got %v", c.Watch.Debounce)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a log.level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("config: log.level must be debug, info, warn or error, got %q", s)
	}
}

// ApplyEnv applies environment variable overrides to the config.
// Supported variables: COMPVIEW_DEBOUNCE, COMPVIEW_LOG_LEVEL,
// COMPVIEW_METRICS_ADDR, COMPVIEW_IMPORT_SCANNER.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("COMPVIEW_DEBOUNCE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid COMPVIEW_DEBOUNCE %q: %w", v, err)
		}
		c.Trigger.Debounce = d
	}
	if v := os.Getenv("COMPVIEW_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("COMPVIEW_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	if v := os.Getenv("COMPVIEW_IMPORT_SCANNER"); v != "" {
		c.Search.ImportScanner = v
	}
	return nil
}

// rawConfig mirrors Config but uses pointers to distinguish set vs unset fields.
type rawConfig struct {
	Trigger *rawTrigger `yaml:"trigger"`
	Search  *rawSearch  `yaml:"search"`
	Catalog *rawCatalog `yaml:"catalog"`
	Watch   *rawWatch   `yaml:"watch"`
	Log     *rawLog     `yaml:"log"`
	Metrics *rawMetrics `yaml:"metrics"`
}

type rawTrigger struct {
	Debounce  *time.Duration `yaml:"debounce"`
	Languages *[]string      `yaml:"languages"`
}

type rawSearch struct {
	Exclude       *string `yaml:"exclude"`
	ImportScanner *string `yaml:"import_scanner"`
}

type rawCatalog struct {
	Pattern *string `yaml:"pattern"`
	Limit   *int    `yaml:"limit"`
}

type rawWatch struct {
	Enabled  *bool          `yaml:"enabled"`
	Debounce *time.Duration `yaml:"debounce"`
}

type rawLog struct {
	Level *string `yaml:"level"`
}

type rawMetrics struct {
	Addr *string `yaml:"addr"`
}

// loadLayer reads a single config file into a rawConfig for selective merging.
// Returns nil if the file does not exist. Rejects unknown fields.
func loadLayer(path string) (*rawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return nil, nil
	}

	var raw rawConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &raw, nil
}

// merge applies non-nil fields from a rawConfig layer onto this Config.
func (c *Config) merge(layer *rawConfig) {
	if t := layer.Trigger; t != nil {
		if t.Debounce != nil {
			c.Trigger.Debounce = *t.Debounce
		}
		if t.Languages != nil {
			c.Trigger.Languages = append([]string(nil), (*t.Languages)...)
		}
	}
	if s := layer.Search; s != nil {
		if s.Exclude != nil {
			c.Search.Exclude = *s.Exclude
		}
		if s.ImportScanner != nil {
			c.Search.ImportScanner = *s.ImportScanner
		}
	}
	if cat := layer.Catalog; cat != nil {
		if cat.Pattern != nil {
			c.Catalog.Pattern = *cat.Pattern
		}
		if cat.Limit != nil {
			c.Catalog.Limit = *cat.Limit
		}
	}
	if w := layer.Watch; w != nil {
		if w.Enabled != nil {
			c.Watch.Enabled = *w.Enabled
		}
		if w.Debounce != nil {
			c.Watch.Debounce = *w.Debounce
		}
	}
	if l := layer.Log; l != nil && l.Level != nil {
		c.Log.Level = *l.Level
	}
	if m := layer.Metrics; m != nil && m.Addr != nil {
		c.Metrics.Addr = *m.Addr
	}
}
