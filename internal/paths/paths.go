// Package paths derives the on-disk layout of a run's output directory.
//
// An output directory lives at <root>/<run>/<encoded-params> and holds
// four fixed subdirectories: simulation, logs, data, and results. The
// first three hold artifacts written during the run; results collects
// post-run analysis and is the only one meant to stay writable after the
// run completes.
package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"simman/internal/params"
)

// ErrRootMissing reports that the configured root directory does not
// exist. The resolver never creates the root: pointing a run at a typo
// should fail, not silently build a new tree.
var ErrRootMissing = errors.New("root directory does not exist")

// Fixed subdirectory names under every output directory.
const (
	SimulationDir = "simulation"
	LogsDir       = "logs"
	DataDir       = "data"
	ResultsDir    = "results"
)

// ResolveOutputDir derives the canonical output directory for one
// parameter combination. Pure: identical inputs always produce an
// identical path, and nothing is created.
func ResolveOutputDir(rootDir, runName string, set params.Set) (string, error) {
	info, err := os.Stat(rootDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("PTH_ROOT: %q: %w", rootDir, ErrRootMissing)
		}
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("PTH_ROOT: %q is not a directory: %w", rootDir, ErrRootMissing)
	}
	return filepath.Join(rootDir, runName, params.Encode(set, params.DefaultDelimiter)), nil
}

// Paths exposes the subdirectories of one output directory, creating
// each lazily on first access.
type Paths struct {
	outputDir string
	suffix    string
}

// New wraps an existing output directory. The directory must already
// exist; creation is the lifecycle manager's job.
func New(outputDir, suffix string) (*Paths, error) {
	info, err := os.Stat(outputDir)
	if err != nil {
		return nil, fmt.Errorf("PTH_OUTPUT: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("PTH_OUTPUT: %q is not a directory", outputDir)
	}
	return &Paths{outputDir: outputDir, suffix: suffix}, nil
}

// OutputDir returns the output directory itself.
func (p *Paths) OutputDir() string { return p.outputDir }

// Suffix returns the filename suffix appended by ResultFile.
func (p *Paths) Suffix() string { return p.suffix }

// Simulation returns the simulation subdirectory, creating it if needed.
func (p *Paths) Simulation() (string, error) { return EnsureSubdir(p.outputDir, SimulationDir) }

// Logs returns the logs subdirectory, creating it if needed.
func (p *Paths) Logs() (string, error) { return EnsureSubdir(p.outputDir, LogsDir) }

// Data returns the data subdirectory, creating it if needed.
func (p *Paths) Data() (string, error) { return EnsureSubdir(p.outputDir, DataDir) }

// Results returns the results subdirectory, creating it if needed.
func (p *Paths) Results() (string, error) { return EnsureSubdir(p.outputDir, ResultsDir) }

// ResultFile returns results/<name>-<encoded extra>-<suffix>.<ext>.
// Only the parameters passed here are encoded into the filename; the
// run's own combination is never merged in implicitly. Callers wanting
// it included pass it (or a params.Merge of both) explicitly.
func (p *Paths) ResultFile(name, ext string, extra params.Set) (string, error) {
	results, err := p.Results()
	if err != nil {
		return "", err
	}
	encoded := params.Encode(extra, params.DefaultDelimiter)
	return filepath.Join(results, fmt.Sprintf("%s-%s-%s.%s", name, encoded, p.suffix, ext)), nil
}

// EnsureSubdir creates outputDir/name if absent and returns its path.
// Idempotent, and tolerant of another cooperating process creating the
// same directory between the check and the mkdir.
func EnsureSubdir(outputDir, name string) (string, error) {
	path := filepath.Join(outputDir, name)
	if err := os.Mkdir(path, 0o755); err != nil && !os.IsExist(err) {
		return "", fmt.Errorf("PTH_SUBDIR: %w", err)
	}
	return path, nil
}
