package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".simman/config.toml"
	}
	return filepath.Join(home, ".simman", "config.toml")
}

func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", errors.New("empty path")
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return home, nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
	}
	return path, nil
}

// ResolveRoot expands and cleans the configured storage root. The
// SIMMAN_ROOT environment variable overrides the config value, so
// cluster jobs can point one script at different trees.
func ResolveRoot(cfg Config) (string, error) {
	root := cfg.Storage.Root
	if env := os.Getenv("SIMMAN_ROOT"); env != "" {
		root = env
	}
	expanded, err := ExpandPath(root)
	if err != nil {
		return "", err
	}
	return filepath.Clean(expanded), nil
}
