package tee

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// swapStdout points os.Stdout at a pipe so the test can observe what the
// echo path actually writes.
func swapStdout(t *testing.T) (read func() string) {
	t.Helper()
	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe failed: %v", err)
	}
	os.Stdout = w
	t.Cleanup(func() { os.Stdout = orig })
	return func() string {
		_ = w.Close()
		blob, _ := io.ReadAll(r)
		return string(blob)
	}
}

func TestCaptureWritesBothSinks(t *testing.T) {
	readStdout := swapStdout(t)
	path := filepath.Join(t.TempDir(), "stdout.log")

	red, err := Capture(path)
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	fmt.Println("hello from the run")
	if err := red.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log failed: %v", err)
	}
	if !strings.Contains(string(blob), "hello from the run") {
		t.Fatalf("log missing output: %q", string(blob))
	}
	if !strings.Contains(readStdout(), "hello from the run") {
		t.Fatalf("original stdout missing output")
	}
}

func TestRedirectWritesFileOnly(t *testing.T) {
	readStdout := swapStdout(t)
	path := filepath.Join(t.TempDir(), "stdout.log")

	red, err := Redirect(path)
	if err != nil {
		t.Fatalf("redirect failed: %v", err)
	}
	fmt.Println("quiet line")
	if err := red.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log failed: %v", err)
	}
	if !strings.Contains(string(blob), "quiet line") {
		t.Fatalf("log missing output: %q", string(blob))
	}
	if strings.Contains(readStdout(), "quiet line") {
		t.Fatalf("redirected output leaked to stdout")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	_ = swapStdout(t)
	red, err := Discard()
	if err != nil {
		t.Fatalf("discard failed: %v", err)
	}
	fmt.Println("into the void")
	if err := red.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := red.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
}
