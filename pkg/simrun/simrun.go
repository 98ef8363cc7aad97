// Package simrun is the public face of the simulation output manager.
//
// A run claims one output directory per parameter combination under a
// root, captures reproducibility metadata into it, and releases it with
// distinct clean and aborted outcomes:
//
//	err := simrun.Do(ctx, simrun.Options{
//		Name:    "decay",
//		Params:  simrun.Params{"alpha": 0.5, "seed": 7},
//		RootDir: "/data/simulations",
//	}, func(p *simrun.Paths) error {
//		sim, err := p.Simulation()
//		if err != nil {
//			return err
//		}
//		return runSolver(sim)
//	})
//
// The protected function's error is returned unchanged; the directory
// is marked aborted so a later invocation can reclaim it.
package simrun

import (
	"context"

	"simman/internal/audit"
	"simman/internal/config"
	"simman/internal/manager"
	"simman/internal/metadata"
	"simman/internal/params"
	"simman/internal/paths"
)

// Params is a flat parameter combination identifying one run.
type Params = params.Set

// Paths exposes the subdirectories of an acquired output directory.
type Paths = paths.Paths

// Error kinds surfaced by acquisition and release.
var (
	ErrRootMissing     = manager.ErrRootMissing
	ErrAlreadyInUse    = manager.ErrAlreadyInUse
	ErrUnrecognizedDir = manager.ErrUnrecognizedDir
	ErrRollback        = manager.ErrRollback
)

// Options configures one run.
type Options struct {
	// Name of the run; the directory level under RootDir.
	Name string
	// Params become the leaf path segment. An empty set maps to a
	// fixed placeholder segment.
	Params Params
	// Suffix is appended to result filenames.
	Suffix string
	// RootDir must exist already.
	RootDir string
	// CreateClean wipes a reclaimed directory before reuse.
	CreateClean bool
	// WriteProtect makes simulation, logs, and data read-only on clean
	// release. Results always stays writable.
	WriteProtect bool
	// SkipMetadata disables reproducibility capture (tests, throwaway
	// runs). The default captures command line, commit id, and patch.
	SkipMetadata bool
	// SourceDir is a path inside the source repository; empty means
	// the working directory.
	SourceDir string
	// EventLog, when set, receives one JSON line per lifecycle
	// transition.
	EventLog string
}

// FromConfig builds Options for one run from the config file at path
// (the default location when empty), applying the configured storage
// root and run policy. The config file is created with defaults if it
// does not exist yet.
func FromConfig(path, name string, p Params) (Options, error) {
	cfg, err := config.Ensure(path)
	if err != nil {
		return Options{}, err
	}
	root, err := config.ResolveRoot(cfg)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Name:         name,
		Params:       p,
		Suffix:       cfg.Runs.Suffix,
		RootDir:      root,
		CreateClean:  cfg.Runs.CreateClean,
		WriteProtect: cfg.Runs.WriteProtect,
		SourceDir:    cfg.Runs.SourceDir,
		EventLog:     cfg.Logging.Events,
	}, nil
}

// Run is an acquired output directory. Finish must be called exactly
// once; Do handles that pairing automatically.
type Run struct {
	m *manager.Manager
	p *paths.Paths
}

// Start acquires the run's output directory and populates metadata.
func Start(ctx context.Context, opts Options) (*Run, error) {
	m, err := newManager(opts)
	if err != nil {
		return nil, err
	}
	p, err := m.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &Run{m: m, p: p}, nil
}

// Paths returns the path accessor for the held directory.
func (r *Run) Paths() *Paths { return r.p }

// OutputDir returns the held output directory.
func (r *Run) OutputDir() string { return r.m.OutputDir() }

// Finish releases the directory. Pass the run's error (nil for
// success); a non-nil error marks the directory aborted and is
// returned unchanged.
func (r *Run) Finish(runErr error) error { return r.m.Release(runErr) }

// Do runs fn inside an acquired output directory and guarantees the
// release on every exit path, including panics.
func Do(ctx context.Context, opts Options, fn func(*Paths) error) error {
	m, err := newManager(opts)
	if err != nil {
		return err
	}
	return m.Run(ctx, fn)
}

func newManager(opts Options) (*manager.Manager, error) {
	var md manager.MetadataFunc
	if !opts.SkipMetadata {
		svc := &metadata.Service{SourceDir: opts.SourceDir}
		md = svc.Populate
	}
	return manager.New(manager.Options{
		Name:         opts.Name,
		Params:       opts.Params,
		Suffix:       opts.Suffix,
		RootDir:      opts.RootDir,
		CreateClean:  opts.CreateClean,
		WriteProtect: opts.WriteProtect,
		Metadata:     md,
		Audit:        audit.New(opts.EventLog),
	})
}
