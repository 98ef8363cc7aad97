package manager

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"simman/internal/fsutil"
)

// Status of an output directory as read from its markers.
type Status string

const (
	// StatusActive: a lock marker is present, some process holds it.
	StatusActive Status = "active"
	// StatusAborted: the previous run failed; safe to reclaim.
	StatusAborted Status = "aborted"
	// StatusReleased: no markers; the run completed and released.
	StatusReleased Status = "released"
)

// OutputDirInfo describes one output directory found under a root.
type OutputDirInfo struct {
	Run    string `json:"run"`
	Params string `json:"params"`
	Path   string `json:"path"`
	Status Status `json:"status"`
}

// Scan walks rootDir and reports every output directory with its
// marker-derived status, sorted by run then parameter segment.
func Scan(rootDir string) ([]OutputDirInfo, error) {
	runs, err := os.ReadDir(rootDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("MGR_SCAN: %q: %w", rootDir, ErrRootMissing)
		}
		return nil, err
	}
	var out []OutputDirInfo
	for _, run := range runs {
		if !run.IsDir() {
			continue
		}
		infos, err := ScanRun(rootDir, run.Name())
		if err != nil {
			return nil, err
		}
		out = append(out, infos...)
	}
	return out, nil
}

// ScanRun reports the output directories of a single run.
func ScanRun(rootDir, runName string) ([]OutputDirInfo, error) {
	runDir := filepath.Join(rootDir, runName)
	entries, err := os.ReadDir(runDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []OutputDirInfo
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(runDir, e.Name())
		out = append(out, OutputDirInfo{
			Run:    runName,
			Params: e.Name(),
			Path:   dir,
			Status: classify(dir),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Run != out[j].Run {
			return out[i].Run < out[j].Run
		}
		return out[i].Params < out[j].Params
	})
	return out, nil
}

// CleanAborted removes every aborted output directory under one run and
// returns the removed paths.
func CleanAborted(rootDir, runName string) ([]string, error) {
	infos, err := ScanRun(rootDir, runName)
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, info := range infos {
		if info.Status != StatusAborted {
			continue
		}
		// Aborted runs may have had subtrees write-protected by an
		// earlier clean release; restore access so removal succeeds.
		if err := fsutil.RestoreWriteAccess(info.Path); err != nil {
			return removed, fmt.Errorf("MGR_CLEAN: %s: %w", info.Path, err)
		}
		if err := os.RemoveAll(info.Path); err != nil {
			return removed, fmt.Errorf("MGR_CLEAN: %s: %w", info.Path, err)
		}
		removed = append(removed, info.Path)
	}
	return removed, nil
}

func classify(dir string) Status {
	switch {
	case fsutil.Exists(filepath.Join(dir, LockMarker)):
		return StatusActive
	case fsutil.Exists(filepath.Join(dir, AbortedMarker)):
		return StatusAborted
	default:
		return StatusReleased
	}
}
