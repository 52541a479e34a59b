// Package config provides configuration loading and structs for the RSVP server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Source    SourceConfig    `yaml:"source"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Messages  MessagesConfig  `yaml:"messages"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ClientIDHeader string        `yaml:"client_id_header"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// StorageConfig holds the path of the RSVP database.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// SourceConfig describes where the guest list comes from and how its columns are laid out.
// Exactly one of Path and URL is expected. A negative RefreshInterval rebuilds the
// directory on every request.
type SourceConfig struct {
	Path            string        `yaml:"path"`
	URL             string        `yaml:"url"`
	Format          string        `yaml:"format"`
	Sheet           string        `yaml:"sheet"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout"`
	Watch           bool          `yaml:"watch"`
	Columns         ColumnsConfig `yaml:"columns"`
	FamilyMatching  string        `yaml:"family_matching"`
}

// ColumnsConfig holds 0-based column positions. Unset positions take the default layout
// (A english name, B family group, C arabic name, D table number).
// An ArabicName of -1 means column A carries both names.
type ColumnsConfig struct {
	EnglishName *int `yaml:"english_name"`
	FamilyGroup *int `yaml:"family_group"`
	ArabicName  *int `yaml:"arabic_name"`
	TableNumber *int `yaml:"table_number"`
}

// Columns is a resolved column layout.
type Columns struct {
	EnglishName int
	FamilyGroup int
	ArabicName  int
	TableNumber int
}

// Combined reports whether both names live in the english name column.
func (c Columns) Combined() bool {
	return c.ArabicName < 0
}

// DefaultColumns is the layout used for unset positions.
var DefaultColumns = Columns{EnglishName: 0, FamilyGroup: 1, ArabicName: 2, TableNumber: 3}

// Resolve returns the layout with defaults filled in.
func (c ColumnsConfig) Resolve() Columns {
	pick := func(p *int, def int) int {
		if p != nil {
			return *p
		}
		return def
	}
	return Columns{
		EnglishName: pick(c.EnglishName, DefaultColumns.EnglishName),
		FamilyGroup: pick(c.FamilyGroup, DefaultColumns.FamilyGroup),
		ArabicName:  pick(c.ArabicName, DefaultColumns.ArabicName),
		TableNumber: pick(c.TableNumber, DefaultColumns.TableNumber),
	}
}

// RateLimitConfig holds the search quota policy and where its state lives.
type RateLimitConfig struct {
	Enabled       *bool         `yaml:"enabled"`
	MaxSearches   int           `yaml:"max_searches"`
	Window        time.Duration `yaml:"window"`
	Backend       string        `yaml:"backend"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	KeyPrefix     string        `yaml:"key_prefix"`
}

// EnabledOrDefault returns whether the quota applies; defaults to true when unset.
func (r *RateLimitConfig) EnabledOrDefault() bool {
	if r.Enabled != nil {
		return *r.Enabled
	}
	return true
}

// MessagesConfig overrides the localized confirmation texts. Empty fields keep the built-in text.
type MessagesConfig struct {
	AttendingEN string `yaml:"attending_en"`
	DecliningEN string `yaml:"declining_en"`
	AttendingAR string `yaml:"attending_ar"`
	DecliningAR string `yaml:"declining_ar"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	if cfg.Source.Path != "" {
		cfg.Source.Path = expandPath(cfg.Source.Path, configDir)
	}

	return &cfg, nil
}

// Validate reports configuration that would prevent the server from starting.
func (c *Config) Validate() error {
	if c.Source.Path == "" && c.Source.URL == "" {
		return fmt.Errorf("source: one of path or url is required")
	}
	if c.Source.Path != "" && c.Source.URL != "" {
		return fmt.Errorf("source: path and url are mutually exclusive")
	}
	switch c.Source.FamilyMatching {
	case "exact", "normalized", "folded":
	default:
		return fmt.Errorf("source: unknown family_matching %q", c.Source.FamilyMatching)
	}
	cols := c.Source.Columns.Resolve()
	if cols.EnglishName < 0 || cols.FamilyGroup < 0 {
		return fmt.Errorf("source: english_name and family_group columns must be >= 0")
	}
	switch c.RateLimit.Backend {
	case "sqlite", "memory":
	case "redis":
		if c.RateLimit.RedisAddr == "" {
			return fmt.Errorf("rate_limit: redis backend requires redis_addr")
		}
	default:
		return fmt.Errorf("rate_limit: unknown backend %q", c.RateLimit.Backend)
	}
	if c.RateLimit.MaxSearches < 1 {
		return fmt.Errorf("rate_limit: max_searches must be >= 1")
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
