// Package tee duplicates or redirects the process stdout at the file
// descriptor level, so output from subprocesses is captured too.
package tee

import (
	"fmt"
	"io"
	"os"
)

// Capture sends everything written to stdout both to the original
// stdout and to the file at path (appended). Close restores stdout.
func Capture(path string) (*Redirection, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("TEE_OPEN: %w", err)
	}
	return redirect(f, true)
}

// Redirect sends stdout to the file at path only (truncated).
func Redirect(path string) (*Redirection, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("TEE_OPEN: %w", err)
	}
	return redirect(f, false)
}

// Discard drops stdout entirely.
func Discard() (*Redirection, error) {
	f, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("TEE_OPEN: %w", err)
	}
	return redirect(f, false)
}

// Redirection is an active stdout replacement. It must be closed to
// restore the original stream and flush the pipe.
type Redirection struct {
	orig *os.File
	w    *os.File
	file *os.File
	done chan struct{}
}

func redirect(file *os.File, echo bool) (*Redirection, error) {
	r, w, err := os.Pipe()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("TEE_PIPE: %w", err)
	}
	red := &Redirection{orig: os.Stdout, w: w, file: file, done: make(chan struct{})}
	var sink io.Writer = file
	if echo {
		sink = io.MultiWriter(red.orig, file)
	}
	go func() {
		defer close(red.done)
		_, _ = io.Copy(sink, r)
		_ = r.Close()
	}()
	os.Stdout = w
	return red, nil
}

// Close restores the original stdout, waits for buffered output to
// drain, and closes the capture file. Idempotent.
func (t *Redirection) Close() error {
	if t.w == nil {
		return nil
	}
	os.Stdout = t.orig
	err := t.w.Close()
	t.w = nil
	<-t.done
	if cerr := t.file.Close(); err == nil {
		err = cerr
	}
	return err
}
