package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"simman/internal/fsutil"
)

const ConfigVersion = 1

func DefaultConfig() Config {
	return Config{
		Version: ConfigVersion,
		Storage: StorageConfig{Root: "~/simulations"},
		Runs:    RunConfig{WriteProtect: true},
	}
}

// Ensure loads the config at path, writing the defaults first if no
// file exists yet.
func Ensure(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}
	cfg = DefaultConfig()
	if err := Save(path, cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("CFG_PARSE: %w", err)
	}
	cfg = Normalize(cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Save(path string, cfg Config) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	cfg = Normalize(cfg)
	if err := Validate(cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	blob, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("CFG_ENCODE: %w", err)
	}
	return fsutil.AtomicWrite(path, blob, 0o644)
}

// Normalize fills omitted fields with their defaults.
func Normalize(cfg Config) Config {
	if cfg.Version == 0 {
		cfg.Version = ConfigVersion
	}
	if cfg.Storage.Root == "" {
		cfg.Storage.Root = DefaultConfig().Storage.Root
	}
	return cfg
}

// Validate rejects configs this version cannot honor.
func Validate(cfg Config) error {
	if cfg.Version != ConfigVersion {
		return fmt.Errorf("CFG_VERSION: unsupported config version %d", cfg.Version)
	}
	if cfg.Storage.Root == "" {
		return fmt.Errorf("CFG_STORAGE: storage root is required")
	}
	return nil
}
