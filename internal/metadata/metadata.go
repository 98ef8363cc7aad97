// Package metadata writes the files needed to reproduce a run into its
// output directory: a description template, the exact command line, the
// checked-out commit id, and a recursive patch of uncommitted changes.
package metadata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"simman/internal/fsutil"
)

// Filenames written into the output directory.
const (
	DescriptionFile = "DESCRIPTION.yaml"
	CommandFile     = ".command"
	CommitIDFile    = ".commit_id"
	PatchFile       = ".patch"
)

// Description is the free-form run annotation template. It is written
// with empty fields for the experimenter to fill in afterwards.
type Description struct {
	Title    string `yaml:"title"`
	Reason   string `yaml:"reason"`
	Result   string `yaml:"result"`
	Keywords string `yaml:"keywords"`
}

// ReadDescription loads DESCRIPTION.yaml from an output directory.
func ReadDescription(outputDir string) (Description, error) {
	blob, err := os.ReadFile(filepath.Join(outputDir, DescriptionFile))
	if err != nil {
		return Description{}, err
	}
	var d Description
	if err := yaml.Unmarshal(blob, &d); err != nil {
		return Description{}, fmt.Errorf("MD_DESC_PARSE: %w", err)
	}
	return d, nil
}

// Service captures reproducibility metadata for one source tree.
type Service struct {
	// SourceDir is any path inside the repository containing the
	// simulation code. Defaults to the current working directory.
	SourceDir string
	Git       *GitClient

	// Args overrides the captured command line; nil means os.Args.
	Args []string
}

// Populate writes all four metadata files into outputDir. Called once,
// immediately after the lifecycle manager reaches its active state; any
// failure here makes the manager roll the acquisition back.
func (s *Service) Populate(ctx context.Context, outputDir string) error {
	git := s.Git
	if git == nil {
		git = NewGitClient()
	}
	sourceDir := s.SourceDir
	if sourceDir == "" {
		sourceDir = "."
	}
	repo, err := git.TopLevel(ctx, sourceDir)
	if err != nil {
		return err
	}
	head, err := git.Head(ctx, repo)
	if err != nil {
		return err
	}
	patch, err := git.RecursivePatch(ctx, repo)
	if err != nil {
		return err
	}

	blob, err := yaml.Marshal(Description{})
	if err != nil {
		return fmt.Errorf("MD_DESC_ENCODE: %w", err)
	}
	files := map[string][]byte{
		DescriptionFile: blob,
		CommandFile:     []byte(CommandLine(s.args())),
		CommitIDFile:    []byte(head),
		PatchFile:       []byte(patch),
	}
	for name, content := range files {
		if err := fsutil.AtomicWrite(filepath.Join(outputDir, name), content, 0o644); err != nil {
			return fmt.Errorf("MD_WRITE: %s: %w", name, err)
		}
	}
	return nil
}

func (s *Service) args() []string {
	if s.Args != nil {
		return s.Args
	}
	return os.Args
}

// CommandLine renders argv as a single shell-safe line.
func CommandLine(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = shellQuote(a)
	}
	return strings.Join(quoted, " ")
}

// shellQuote wraps an argument in single quotes when it contains
// anything a POSIX shell would interpret, escaping embedded quotes.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n\"'`$\\!*?[]{}()<>|&;~#") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
