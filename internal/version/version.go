package version

import (
	"os/exec"
	"strings"
)

// Set at release time with -ldflags "-X github.com/fmueller/whisperjson/internal/version.Version=...".
var (
	Version = "0.1.0"
	Commit  = "unknown"
)

// Resolve returns the version string. Binaries run from a git checkout whose
// HEAD is not a release tag get the describe output appended.
func Resolve() string {
	return resolveVersion(Version, Commit, runGit)
}

type gitRunner func(args ...string) (string, error)

func resolveVersion(base, commit string, git gitRunner) string {
	if base == "" {
		base = "0.0.0"
	}

	if suffix := gitSuffix(base, git); suffix != "" {
		return base + "-" + suffix
	}

	if commit != "" && commit != "unknown" {
		return base + "+" + shortCommit(commit)
	}
	return base
}

func gitSuffix(base string, git gitRunner) string {
	if _, err := git("rev-parse", "--git-dir"); err != nil {
		return ""
	}

	if _, err := git("describe", "--tags", "--exact-match"); err == nil {
		return ""
	}

	desc, err := git("describe", "--tags", "--dirty", "--always")
	if err != nil {
		return ""
	}

	return strings.TrimPrefix(desc, "v"+base+"-")
}

func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}

func runGit(args ...string) (string, error) {
	out, err := exec.Command("git", args...).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
