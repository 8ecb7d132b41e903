package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	StateBackendFile   = "file"
	StateBackendSQLite = "sqlite"
)

type Config struct {
	DataDir       string        `yaml:"data_dir" env:"COMPANION_DATA_DIR"`
	DBPath        string        `yaml:"db_path" env:"COMPANION_DB_PATH"`
	StateBackend  string        `yaml:"state_backend" env:"COMPANION_STATE_BACKEND"`
	ExportDir     string        `yaml:"export_dir" env:"COMPANION_EXPORT_DIR"`
	TickInterval  time.Duration `yaml:"tick_interval" env:"COMPANION_TICK_INTERVAL"`
	LogLevel      string        `yaml:"log_level" env:"COMPANION_LOG_LEVEL"`
	PrecachePlug  string        `yaml:"precache_plugin" env:"COMPANION_PRECACHE_PLUGIN"`
	AudioCacheDir string        `yaml:"audio_cache_dir" env:"COMPANION_AUDIO_CACHE_DIR"`
	CatalogPath   string        `yaml:"catalog" env:"COMPANION_CATALOG"`
	Notifications bool          `yaml:"notifications" env:"COMPANION_NOTIFICATIONS"`
}

// New returns the defaults rooted at dataDir.
func New(dataDir string) (Config, error) {
	if strings.TrimSpace(dataDir) == "" {
		return Config{}, fmt.Errorf("data dir is required")
	}
	return Config{
		DataDir:       dataDir,
		DBPath:        filepath.Join(dataDir, ".companion", "companion.db"),
		StateBackend:  StateBackendFile,
		ExportDir:     filepath.Join(dataDir, "sessions"),
		TickInterval:  30 * time.Second,
		LogLevel:      "info",
		AudioCacheDir: filepath.Join(dataDir, ".companion", "audio"),
		CatalogPath:   filepath.Join(dataDir, ".companion", "catalog.yaml"),
		Notifications: true,
	}, nil
}

// Load layers defaults, an optional yaml file, then COMPANION_* environment
// variables. A missing file is not an error when path was not given explicitly.
func Load(dataDir, path string) (Config, error) {
	cfg, err := New(dataDir)
	if err != nil {
		return Config{}, err
	}
	explicit := path != ""
	if !explicit {
		path = filepath.Join(dataDir, ".companion", "config.yaml")
	}
	if err := loadFile(path, &cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) || explicit {
			return Config{}, err
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	switch c.StateBackend {
	case StateBackendFile, StateBackendSQLite:
	default:
		return fmt.Errorf("unsupported state backend %q", c.StateBackend)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive")
	}
	return nil
}
