package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnsureWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Ensure(path)
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if cfg.Version != ConfigVersion {
		t.Fatalf("unexpected version %d", cfg.Version)
	}
	if !cfg.Runs.WriteProtect {
		t.Fatalf("defaults should write-protect on release")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	// Second ensure loads the written file rather than rewriting it.
	again, err := Ensure(path)
	if err != nil {
		t.Fatalf("second ensure failed: %v", err)
	}
	if again != cfg {
		t.Fatalf("ensure round-trip mismatch: %+v vs %+v", again, cfg)
	}
}

func TestLoadRejectsUnsupportedVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("version = 99\n[storage]\nroot = \"/tmp/runs\"\n"), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "CFG_VERSION") {
		t.Fatalf("expected CFG_VERSION error, got %v", err)
	}
}

func TestNormalizeFillsRoot(t *testing.T) {
	cfg := Normalize(Config{})
	if cfg.Storage.Root == "" {
		t.Fatalf("normalize left storage root empty")
	}
}

func TestResolveRootEnvOverride(t *testing.T) {
	t.Setenv("SIMMAN_ROOT", "/data/override")
	root, err := ResolveRoot(Config{Storage: StorageConfig{Root: "~/simulations"}})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if root != "/data/override" {
		t.Fatalf("env override ignored: %q", root)
	}
}

func TestExpandPathTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	got, err := ExpandPath("~/runs")
	if err != nil {
		t.Fatalf("expand failed: %v", err)
	}
	if got != filepath.Join(home, "runs") {
		t.Fatalf("expanded to %q", got)
	}
}
