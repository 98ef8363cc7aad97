// Package doctor checks that the environment can support reproducible
// runs: a valid config, a writable storage root, and a git new enough
// for recursive submodule capture.
package doctor

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"

	"simman/internal/config"
	"simman/internal/manager"
	"simman/internal/metadata"
)

// MinGitVersion is the oldest git whose `submodule foreach --recursive`
// behaves the way the patch capture needs.
const MinGitVersion = "v2.13.0"

type Finding struct {
	Code    string `json:"code"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

type Report struct {
	Healthy    bool      `json:"healthy"`
	Findings   []Finding `json:"findings"`
	GitVersion string    `json:"gitVersion,omitempty"`
}

// GitVersioner answers the single git question the doctor asks.
type GitVersioner interface {
	Version(ctx context.Context) (string, error)
}

type Service struct {
	ConfigPath string
	Git        GitVersioner
}

func (s *Service) Run(ctx context.Context) Report {
	findings := []Finding{}
	gitVersion := ""

	var root string
	if _, err := os.Stat(configPath(s.ConfigPath)); err != nil {
		findings = append(findings, Finding{Code: "DOC_CONFIG_MISSING", Level: "error", Message: err.Error()})
	} else if cfg, err := config.Load(s.ConfigPath); err != nil {
		findings = append(findings, Finding{Code: "DOC_CONFIG_INVALID", Level: "error", Message: err.Error()})
	} else if root, err = config.ResolveRoot(cfg); err != nil {
		findings = append(findings, Finding{Code: "DOC_ROOT_INVALID", Level: "error", Message: err.Error()})
	}

	if root != "" {
		findings = append(findings, checkRoot(root)...)
	}

	var git GitVersioner = s.Git
	if git == nil {
		git = metadata.NewGitClient()
	}
	raw, err := git.Version(ctx)
	if err != nil {
		findings = append(findings, Finding{Code: "DOC_GIT_MISSING", Level: "error", Message: err.Error()})
	} else {
		gitVersion = raw
		v := parseGitVersion(raw)
		if v == "" {
			findings = append(findings, Finding{Code: "DOC_GIT_VERSION", Level: "warn",
				Message: "could not parse " + raw})
		} else if semver.Compare(v, MinGitVersion) < 0 {
			findings = append(findings, Finding{Code: "DOC_GIT_OLD", Level: "error",
				Message: raw + " is older than supported minimum " + strings.TrimPrefix(MinGitVersion, "v")})
		}
	}

	healthy := true
	for _, f := range findings {
		if f.Level == "error" {
			healthy = false
			break
		}
	}
	return Report{Healthy: healthy, Findings: findings, GitVersion: gitVersion}
}

func checkRoot(root string) []Finding {
	var findings []Finding
	info, err := os.Stat(root)
	switch {
	case err != nil:
		findings = append(findings, Finding{Code: "DOC_ROOT_MISSING", Level: "error", Message: err.Error()})
		return findings
	case !info.IsDir():
		findings = append(findings, Finding{Code: "DOC_ROOT_NOT_DIR", Level: "error", Message: root + " is not a directory"})
		return findings
	}
	probe := filepath.Join(root, ".simman_probe")
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		findings = append(findings, Finding{Code: "DOC_ROOT_READONLY", Level: "error", Message: err.Error()})
	} else {
		_ = os.Remove(probe)
	}
	infos, err := manager.Scan(root)
	if err != nil {
		findings = append(findings, Finding{Code: "DOC_SCAN_FAIL", Level: "warn", Message: err.Error()})
		return findings
	}
	for _, i := range infos {
		if i.Status == manager.StatusActive {
			findings = append(findings, Finding{Code: "DOC_LOCK_HELD", Level: "warn",
				Message: i.Path + " holds a write-in-progress marker (run active or crashed hard)"})
		}
	}
	return findings
}

// parseGitVersion turns "git version 2.39.2" into a comparable "v2.39.2".
func parseGitVersion(raw string) string {
	var candidate string
	for _, f := range strings.Fields(raw) {
		if f[0] >= '0' && f[0] <= '9' {
			candidate = f
			break
		}
	}
	if candidate == "" {
		return ""
	}
	// Strip vendor suffixes like "2.39.2.windows.1".
	parts := strings.Split(candidate, ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	v := "v" + strings.Join(parts, ".")
	if !semver.IsValid(v) {
		return ""
	}
	return v
}

func configPath(path string) string {
	if path == "" {
		return config.DefaultConfigPath()
	}
	return path
}
