// Package audit records run lifecycle events as JSON lines.
//
// One line is appended per transition (acquire, metadata, release,
// abort) so a root directory carries a durable trail of who touched
// which output directory and how each run ended.
package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Phases recorded by the lifecycle manager.
const (
	PhaseAcquire  = "acquire"
	PhaseMetadata = "metadata"
	PhaseRelease  = "release"
	PhaseAbort    = "abort"
)

// Event is one lifecycle transition of one run.
type Event struct {
	Timestamp string            `json:"timestamp"`
	Run       string            `json:"run"`
	Params    string            `json:"params,omitempty"`
	Dir       string            `json:"dir,omitempty"`
	Phase     string            `json:"phase"`
	Status    string            `json:"status"`
	Message   string            `json:"message,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// Logger appends events to a single file. Safe for concurrent use
// within one process; cross-process interleaving relies on O_APPEND.
type Logger struct {
	path string
	mu   sync.Mutex
}

// New returns a logger writing to path. A nil logger or empty path
// discards events, so callers never need to guard their Log calls.
func New(path string) *Logger {
	return &Logger{path: path}
}

func (l *Logger) Log(ev Event) error {
	if l == nil || l.path == "" {
		return nil
	}
	ev.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	blob, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(blob, '\n'))
	return err
}
