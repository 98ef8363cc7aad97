// Package manager implements the output-directory lifecycle: acquire a
// uniquely named directory for one parameter combination, hold it
// exclusively while the run writes into it, and release it exactly once
// with distinct clean and aborted outcomes.
//
// Exclusivity is advisory and filesystem-local. The lock is a marker
// file created with an exclusive create, so the at-most-one-writer
// guarantee holds across cooperating processes on one machine without
// any in-process mutex.
package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"simman/internal/audit"
	"simman/internal/fsutil"
	"simman/internal/params"
	"simman/internal/paths"
)

// Marker files coordinating ownership of an output directory.
const (
	// LockMarker signals a process currently holds the directory for
	// writing. Its exclusive creation is the sole admission gate.
	LockMarker = ".write_in_progress"
	// AbortedMarker signals the previous occupant exited via an error
	// path and the contents may be discarded by a future acquirer.
	AbortedMarker = ".contains_aborted_simulation"
)

var (
	// ErrAlreadyInUse reports another process holds the directory.
	ErrAlreadyInUse = errors.New("output directory already in use")
	// ErrUnrecognizedDir reports an existing directory carrying neither
	// marker. The manager refuses to adopt directories it did not
	// create rather than risk destroying unrelated data.
	ErrUnrecognizedDir = errors.New("output directory not managed by this tool")
	// ErrRollback reports that undoing a partial acquisition or
	// completing a release itself failed, leaving the directory in a
	// state a future acquirer cannot trust.
	ErrRollback = errors.New("cleanup failed")
	// ErrRootMissing mirrors the resolver's error for callers matching
	// against this package only.
	ErrRootMissing = paths.ErrRootMissing
)

// MetadataFunc populates reproducibility metadata right after the
// directory is acquired. A failure rolls the acquisition back.
type MetadataFunc func(ctx context.Context, outputDir string) error

// Options configures a Manager.
type Options struct {
	// Name is the run name, the directory level under the root.
	Name string
	// Params identifies this run's configuration; its encoding becomes
	// the leaf path segment. Copied at construction.
	Params params.Set
	// Suffix is appended to result filenames.
	Suffix string
	// RootDir must already exist.
	RootDir string
	// CreateClean wipes prior contents of a reclaimed directory,
	// leaving only the fresh lock marker.
	CreateClean bool
	// WriteProtect strips write permission from simulation, logs, and
	// data (never results) on clean release.
	WriteProtect bool
	// Metadata is invoked once after acquisition; nil skips capture.
	Metadata MetadataFunc
	// Audit receives one event per lifecycle transition; nil discards.
	Audit *audit.Logger
}

type state int

const (
	stateUnacquired state = iota
	stateActive
	stateReleasedClean
	stateReleasedAborted
)

// Manager is a scoped resource: Acquire and Release must be paired
// exactly once. Run wraps both around a protected function and
// guarantees the release on every exit path.
type Manager struct {
	opts      Options
	encoded   string
	st        state
	outputDir string
	p         *paths.Paths

	// how the directory was obtained, for rollback
	createdFresh  bool
	createdRunDir bool
	reclaimed     bool
}

// New validates options and copies the parameter combination.
func New(opts Options) (*Manager, error) {
	if opts.Name == "" {
		return nil, errors.New("MGR_OPTS: run name is required")
	}
	if opts.RootDir == "" {
		return nil, errors.New("MGR_OPTS: root directory is required")
	}
	opts.Params = opts.Params.Clone()
	return &Manager{
		opts:    opts,
		encoded: params.Encode(opts.Params, params.DefaultDelimiter),
	}, nil
}

// OutputDir returns the resolved output directory; empty before Acquire.
func (m *Manager) OutputDir() string { return m.outputDir }

// Paths returns the path accessor for the held directory; nil before
// Acquire.
func (m *Manager) Paths() *paths.Paths { return m.p }

// Acquire claims the output directory for this run.
//
// Policy, in order:
//  1. directory absent: create it (with parents) and take the lock
//  2. directory carries the aborted marker: consume the marker, take
//     the lock, reclaiming the abandoned directory
//  3. directory exists with a live lock: fail with ErrAlreadyInUse
//  4. directory exists with neither marker: fail with ErrUnrecognizedDir
//  5. with CreateClean, a reclaimed or fresh directory is emptied of
//     everything but the new lock
//
// Any failure after a directory or marker was created undoes that work:
// a fresh directory is removed entirely, a reclaimed one gets its
// aborted marker back. Acquisition never blocks waiting for a lock.
func (m *Manager) Acquire(ctx context.Context) (*paths.Paths, error) {
	if m.st != stateUnacquired {
		return nil, fmt.Errorf("MGR_STATE: acquire called twice")
	}
	dir, err := paths.ResolveOutputDir(m.opts.RootDir, m.opts.Name, m.opts.Params)
	if err != nil {
		return nil, err
	}
	m.outputDir = dir

	lockPath := filepath.Join(dir, LockMarker)
	abortedPath := filepath.Join(dir, AbortedMarker)

	if !fsutil.Exists(dir) {
		m.createdRunDir = !fsutil.Exists(filepath.Join(m.opts.RootDir, m.opts.Name))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("MGR_ACQUIRE: create output dir: %w", err)
		}
		m.createdFresh = true
	} else if fsutil.Exists(abortedPath) {
		if err := fsutil.RemoveIfPresent(abortedPath); err != nil {
			return nil, fmt.Errorf("MGR_ACQUIRE: consume aborted marker: %w", err)
		}
		m.reclaimed = true
	} else {
		if fsutil.Exists(lockPath) {
			return nil, m.failAcquire(fmt.Errorf("MGR_ACQUIRE: %q: %w", dir, ErrAlreadyInUse))
		}
		return nil, m.failAcquire(fmt.Errorf("MGR_ACQUIRE: %q: %w", dir, ErrUnrecognizedDir))
	}

	taken, err := fsutil.CreateExclusive(lockPath)
	if err != nil {
		return nil, m.rollback(fmt.Errorf("MGR_ACQUIRE: create lock: %w", err))
	}
	if !taken {
		// Lost the race after the marker check. Nothing of ours is in
		// the directory, so there is nothing to undo.
		m.createdFresh = false
		m.reclaimed = false
		return nil, m.failAcquire(fmt.Errorf("MGR_ACQUIRE: %q: %w", dir, ErrAlreadyInUse))
	}

	if m.opts.CreateClean {
		if err := fsutil.ClearDirExcept(dir, LockMarker); err != nil {
			return nil, m.rollback(fmt.Errorf("MGR_ACQUIRE: clean directory: %w", err))
		}
	}

	p, err := paths.New(dir, m.opts.Suffix)
	if err != nil {
		return nil, m.rollback(err)
	}

	if m.opts.Metadata != nil {
		if err := m.opts.Metadata(ctx, dir); err != nil {
			m.logEvent(audit.PhaseMetadata, "error", err.Error())
			return nil, m.rollback(err)
		}
		m.logEvent(audit.PhaseMetadata, "ok", "")
	}

	m.p = p
	m.st = stateActive
	m.logEvent(audit.PhaseAcquire, "ok", "")
	return p, nil
}

// Release ends the run. With a nil runErr the lock is removed and the
// run's artifact directories optionally write-protected; a non-nil
// runErr swaps the lock for the aborted marker and is returned to the
// caller unchanged (release-side failures are attached, never
// substituted). Must be called exactly once after a successful Acquire.
func (m *Manager) Release(runErr error) error {
	if m.st != stateActive {
		return fmt.Errorf("MGR_STATE: release without active acquisition")
	}
	lockPath := filepath.Join(m.outputDir, LockMarker)

	if runErr != nil {
		m.st = stateReleasedAborted
		var relErr error
		if err := fsutil.RemoveIfPresent(lockPath); err != nil {
			relErr = fmt.Errorf("MGR_ABORT: remove lock: %w: %w", err, ErrRollback)
		}
		if err := os.WriteFile(filepath.Join(m.outputDir, AbortedMarker), nil, 0o644); err != nil {
			relErr = errors.Join(relErr, fmt.Errorf("MGR_ABORT: write aborted marker: %w: %w", err, ErrRollback))
		}
		m.logEvent(audit.PhaseAbort, "error", runErr.Error())
		if relErr != nil {
			return errors.Join(runErr, relErr)
		}
		return runErr
	}

	m.st = stateReleasedClean
	if err := fsutil.RemoveIfPresent(lockPath); err != nil {
		return fmt.Errorf("MGR_RELEASE: remove lock: %w: %w", err, ErrRollback)
	}
	if m.opts.WriteProtect {
		for _, name := range []string{paths.SimulationDir, paths.LogsDir, paths.DataDir} {
			sub := filepath.Join(m.outputDir, name)
			if !fsutil.Exists(sub) {
				continue
			}
			if err := fsutil.RemoveWriteAccess(sub); err != nil {
				return fmt.Errorf("MGR_RELEASE: write-protect %s: %w: %w", name, err, ErrRollback)
			}
		}
	}
	m.logEvent(audit.PhaseRelease, "ok", "")
	return nil
}

// Run acquires the directory, invokes fn with its paths, and releases
// on every exit path. A panic inside fn records an aborted release and
// re-panics; an error from fn triggers the aborted release and is
// returned verbatim.
func (m *Manager) Run(ctx context.Context, fn func(*paths.Paths) error) error {
	p, err := m.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			_ = m.Release(fmt.Errorf("MGR_PANIC: %v", r))
			panic(r)
		}
	}()
	return m.Release(fn(p))
}

// failAcquire records a refused acquisition that left nothing behind.
func (m *Manager) failAcquire(err error) error {
	m.logEvent(audit.PhaseAcquire, "error", err.Error())
	return err
}

// rollback undoes a partial acquisition so the filesystem returns to a
// state a future acquirer can handle: a fresh directory disappears
// entirely, a reclaimed one becomes reclaimable again. Rollback
// failures are surfaced alongside the original error, never hidden.
func (m *Manager) rollback(cause error) error {
	var rbErr error
	switch {
	case m.createdFresh:
		victim := m.outputDir
		if m.createdRunDir {
			// The run level did not exist before this acquisition
			// either; removing it restores the tree exactly.
			victim = filepath.Join(m.opts.RootDir, m.opts.Name)
		}
		if err := os.RemoveAll(victim); err != nil {
			rbErr = fmt.Errorf("MGR_ROLLBACK: remove fresh dir: %w: %w", err, ErrRollback)
		}
	case m.reclaimed:
		if err := fsutil.RemoveIfPresent(filepath.Join(m.outputDir, LockMarker)); err != nil {
			rbErr = fmt.Errorf("MGR_ROLLBACK: remove lock: %w: %w", err, ErrRollback)
		}
		if err := os.WriteFile(filepath.Join(m.outputDir, AbortedMarker), nil, 0o644); err != nil {
			rbErr = errors.Join(rbErr, fmt.Errorf("MGR_ROLLBACK: restore aborted marker: %w: %w", err, ErrRollback))
		}
	}
	m.logEvent(audit.PhaseAcquire, "error", cause.Error())
	if rbErr != nil {
		return errors.Join(cause, rbErr)
	}
	return cause
}

func (m *Manager) logEvent(phase, status, message string) {
	_ = m.opts.Audit.Log(audit.Event{
		Run:     m.opts.Name,
		Params:  m.encoded,
		Dir:     m.outputDir,
		Phase:   phase,
		Status:  status,
		Message: message,
	})
}
