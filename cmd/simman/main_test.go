package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"simman/internal/manager"
	"simman/internal/params"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	fn()
	_ = w.Close()
	os.Stdout = old
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	_ = r.Close()
	return buf.String()
}

func TestNewRootCmdIncludesCoreCommands(t *testing.T) {
	cmd := newRootCmd()
	got := map[string]bool{}
	for _, c := range cmd.Commands() {
		got[c.Name()] = true
	}
	for _, want := range []string{"init", "list", "clean", "describe", "doctor", "version"} {
		if !got[want] {
			t.Fatalf("expected command %q", want)
		}
	}
}

func seedRuns(t *testing.T, root string) (abortedDir string) {
	t.Helper()
	m, err := manager.New(manager.Options{
		Name: "decay", Params: params.Set{"seed": 1}, RootDir: root,
	})
	if err != nil {
		t.Fatalf("new manager failed: %v", err)
	}
	if _, err := m.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	_ = m.Release(errors.New("crashed"))
	return m.OutputDir()
}

func TestListCommandJSON(t *testing.T) {
	root := t.TempDir()
	seedRuns(t, root)

	loadRoot := func() (string, error) { return root, nil }
	jsonOutput := true
	cmd := newListCmd(loadRoot, &jsonOutput)
	cmd.SetArgs([]string{})

	out := captureStdout(t, func() {
		if err := cmd.Execute(); err != nil {
			t.Errorf("list failed: %v", err)
		}
	})
	var infos []manager.OutputDirInfo
	if err := json.Unmarshal([]byte(out), &infos); err != nil {
		t.Fatalf("list output is not JSON: %v\n%s", err, out)
	}
	if len(infos) != 1 || infos[0].Status != manager.StatusAborted {
		t.Fatalf("unexpected listing: %+v", infos)
	}
}

func TestCleanCommandRemovesAborted(t *testing.T) {
	root := t.TempDir()
	dir := seedRuns(t, root)

	loadRoot := func() (string, error) { return root, nil }
	jsonOutput := false
	cmd := newCleanCmd(loadRoot, &jsonOutput)
	cmd.SetArgs([]string{"decay"})

	out := captureStdout(t, func() {
		if err := cmd.Execute(); err != nil {
			t.Errorf("clean failed: %v", err)
		}
	})
	if !strings.Contains(out, "removed "+dir) {
		t.Fatalf("clean output missing removal: %q", out)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("aborted directory still present")
	}
}

func TestDescribeCommandMissingDir(t *testing.T) {
	jsonOutput := false
	cmd := newDescribeCmd(&jsonOutput)
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "absent")})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}
