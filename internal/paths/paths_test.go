package paths

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"simman/internal/params"
)

func TestResolveOutputDirIsDeterministic(t *testing.T) {
	root := t.TempDir()
	set := params.Set{"alpha": 0.5, "seed": 7}
	first, err := ResolveOutputDir(root, "decay", set)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	second, err := ResolveOutputDir(root, "decay", set)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if first != second {
		t.Fatalf("same inputs resolved differently: %q vs %q", first, second)
	}
	if want := filepath.Join(root, "decay", "alpha-0.50-seed-7"); first != want {
		t.Fatalf("resolved %q, want %q", first, want)
	}
	if _, err := os.Stat(first); !os.IsNotExist(err) {
		t.Fatalf("resolve created the directory")
	}
}

func TestResolveOutputDirMissingRoot(t *testing.T) {
	_, err := ResolveOutputDir(filepath.Join(t.TempDir(), "nope"), "run", nil)
	if !errors.Is(err, ErrRootMissing) {
		t.Fatalf("expected ErrRootMissing, got %v", err)
	}
}

func TestResolveOutputDirRootIsFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "rootfile")
	if err := os.WriteFile(root, nil, 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if _, err := ResolveOutputDir(root, "run", nil); !errors.Is(err, ErrRootMissing) {
		t.Fatalf("expected ErrRootMissing for non-directory root, got %v", err)
	}
}

func TestEnsureSubdirIdempotent(t *testing.T) {
	out := t.TempDir()
	first, err := EnsureSubdir(out, LogsDir)
	if err != nil {
		t.Fatalf("first ensure failed: %v", err)
	}
	second, err := EnsureSubdir(out, LogsDir)
	if err != nil {
		t.Fatalf("second ensure failed: %v", err)
	}
	if first != second {
		t.Fatalf("ensure returned different paths: %q vs %q", first, second)
	}
	info, err := os.Stat(first)
	if err != nil || !info.IsDir() {
		t.Fatalf("subdirectory missing: %v", err)
	}
}

func TestSubdirAccessorsCreateLazily(t *testing.T) {
	out := t.TempDir()
	p, err := New(out, "v1")
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	for name, get := range map[string]func() (string, error){
		SimulationDir: p.Simulation,
		LogsDir:       p.Logs,
		DataDir:       p.Data,
		ResultsDir:    p.Results,
	} {
		if _, err := os.Stat(filepath.Join(out, name)); !os.IsNotExist(err) {
			t.Fatalf("%s existed before access", name)
		}
		dir, err := get()
		if err != nil {
			t.Fatalf("%s accessor failed: %v", name, err)
		}
		if dir != filepath.Join(out, name) {
			t.Fatalf("%s accessor returned %q", name, dir)
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("%s not created: %v", name, err)
		}
	}
}

func TestNewRejectsMissingOutputDir(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "absent"), ""); err == nil {
		t.Fatalf("expected error for missing output directory")
	}
}

func TestResultFileNaming(t *testing.T) {
	out := t.TempDir()
	p, err := New(out, "trial3")
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	path, err := p.ResultFile("spectrum", "png", params.Set{"channel": 2})
	if err != nil {
		t.Fatalf("result file failed: %v", err)
	}
	if want := filepath.Join(out, ResultsDir, "spectrum-channel-2-trial3.png"); path != want {
		t.Fatalf("result file %q, want %q", path, want)
	}

	// Empty extra parameters still yield a stable placeholder segment.
	path, err = p.ResultFile("summary", "csv", nil)
	if err != nil {
		t.Fatalf("result file failed: %v", err)
	}
	if want := filepath.Join(out, ResultsDir, "summary-default-trial3.csv"); path != want {
		t.Fatalf("result file %q, want %q", path, want)
	}
}
