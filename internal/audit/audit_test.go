package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLogAppendsOneLinePerEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "events.log")
	l := New(path)
	events := []Event{
		{Run: "decay", Params: "seed-7", Phase: PhaseAcquire, Status: "ok"},
		{Run: "decay", Params: "seed-7", Phase: PhaseAbort, Status: "error", Message: "solver diverged"},
	}
	for _, ev := range events {
		if err := l.Log(ev); err != nil {
			t.Fatalf("log failed: %v", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer f.Close()
	var got []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("line is not valid JSON: %v", err)
		}
		got = append(got, ev)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Phase != PhaseAcquire || got[1].Phase != PhaseAbort {
		t.Fatalf("unexpected phases: %+v", got)
	}
	if got[0].Timestamp == "" {
		t.Fatalf("timestamp not stamped")
	}
	if got[1].Message != "solver diverged" {
		t.Fatalf("message lost: %+v", got[1])
	}
}

func TestNilLoggerDiscards(t *testing.T) {
	var l *Logger
	if err := l.Log(Event{Run: "x", Phase: PhaseRelease, Status: "ok"}); err != nil {
		t.Fatalf("nil logger errored: %v", err)
	}
	if err := New("").Log(Event{Run: "x", Phase: PhaseRelease, Status: "ok"}); err != nil {
		t.Fatalf("pathless logger errored: %v", err)
	}
}
