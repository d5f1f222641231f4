package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables that override file values,
// e.g. SCHOOLCAL_LISTEN or SCHOOLCAL_STORE_DRIVER.
const EnvPrefix = "SCHOOLCAL_"

var (
	ErrEmptyPath = errors.New("config path is empty")
	ErrNilConfig = errors.New("config is nil")
)

// FeedConfig describes a calendar export that is imported on a schedule.
type FeedConfig struct {
	// ID is an internal identifier used for logging and cache keys.
	ID string `yaml:"id" json:"id" koanf:"id"`
	// Source selects the row mapping: "nswdoe", "sentral" or "json".
	Source string `yaml:"source" json:"source" koanf:"source"`
	// URL is fetched over HTTP with conditional requests. Takes precedence over Path.
	URL string `yaml:"url,omitempty" json:"url,omitempty" koanf:"url"`
	// Path is a local file read on every pass.
	Path string `yaml:"path,omitempty" json:"path,omitempty" koanf:"path"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API and printable pages.
	Listen string `yaml:"listen" json:"listen" koanf:"listen"`

	// Timezone is the IANA timezone that defines "local calendar day".
	// Empty means the process local zone.
	Timezone string `yaml:"timezone" json:"timezone" koanf:"timezone"`

	// DataDir holds the sqlite database, preferences and the feed cache.
	DataDir string `yaml:"data_dir" json:"data_dir" koanf:"data_dir"`

	// StoreDriver is one of "sqlite", "postgres" or "memory".
	StoreDriver string `yaml:"store_driver" json:"store_driver" koanf:"store_driver"`

	// StoreDSN is the database location. For sqlite an empty DSN means
	// <data_dir>/schoolcal.db.
	StoreDSN string `yaml:"store_dsn,omitempty" json:"store_dsn,omitempty" koanf:"store_dsn"`

	LogLevel string `yaml:"log_level" json:"log_level" koanf:"log_level"`
	LogFile  string `yaml:"log_file,omitempty" json:"log_file,omitempty" koanf:"log_file"`

	// RefreshCron is a cron-style schedule string (e.g. "0 */6 * * *")
	// used for periodic feed imports while serving.
	RefreshCron string `yaml:"refresh" json:"refresh" koanf:"refresh"`

	// DefaultView is "term" or "day".
	DefaultView string `yaml:"default_view" json:"default_view" koanf:"default_view"`

	// ImportRatePerSec and ImportBurst bound HTTP import requests server-wide.
	// A rate of zero leaves imports unlimited.
	ImportRatePerSec float64 `yaml:"import_rate_per_sec" json:"import_rate_per_sec" koanf:"import_rate_per_sec"`
	ImportBurst      int     `yaml:"import_burst" json:"import_burst" koanf:"import_burst"`

	Feeds []FeedConfig `yaml:"feeds" json:"feeds" koanf:"feeds"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:           "127.0.0.1:8080",
		DataDir:          "./var",
		StoreDriver:      "sqlite",
		LogLevel:         "info",
		RefreshCron:      "0 */6 * * *",
		DefaultView:      "term",
		ImportRatePerSec: 1,
		ImportBurst:      5,
		Feeds:            []FeedConfig{},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	// Unknown drivers are kept so store.Open can reject them.
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	if c.StoreDriver == "" {
		c.StoreDriver = def.StoreDriver
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	switch c.DefaultView {
	case "term", "day":
	default:
		c.DefaultView = def.DefaultView
	}
	// Zero disables the import limiter.
	if c.ImportRatePerSec < 0 {
		c.ImportRatePerSec = 0
	}
	if c.ImportBurst <= 0 {
		c.ImportBurst = def.ImportBurst
	}
	if c.Feeds == nil {
		c.Feeds = []FeedConfig{}
	}
	for i := range c.Feeds {
		c.Feeds[i].Source = strings.ToLower(strings.TrimSpace(c.Feeds[i].Source))
		if c.Feeds[i].ID == "" {
			c.Feeds[i].ID = c.Feeds[i].Source
		}
	}
}

// SQLitePath is the database file used when StoreDriver is sqlite.
func (c *Config) SQLitePath() string {
	if c.StoreDSN != "" {
		return c.StoreDSN
	}
	return filepath.Join(c.DataDir, "schoolcal.db")
}

// Load loads configuration from the given YAML path and applies
// SCHOOLCAL_* environment overrides.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (parent directory 0700) and used as the file layer.
//   - Environment variables override file values, keys are lower-cased
//     with the prefix removed (SCHOOLCAL_STORE_DRIVER -> store_driver).
//   - The result is normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		// First run: create default config file.
		if err := Save(path, DefaultConfig()); err != nil {
			// Even if save fails, return defaults with error so caller can decide.
			return DefaultConfig(), err
		}
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), kyaml.Parser()); err != nil {
		return nil, err
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return ErrEmptyPath
	}
	if cfg == nil {
		return ErrNilConfig
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".schoolcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
