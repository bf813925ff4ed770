package version

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

var errNoTag = errors.New("no tag")

func fakeGit(describe string, exactErr, descErr error) gitRunner {
	return func(args ...string) (string, error) {
		switch {
		case len(args) == 0:
			return "", errors.New("no args")
		case args[0] == "rev-parse":
			return ".git", nil
		case args[0] == "describe" && slices.Contains(args, "--exact-match"):
			return "v0.1.0", exactErr
		case args[0] == "describe":
			return describe, descErr
		default:
			return "", errors.New("unexpected git subcommand")
		}
	}
}

func notARepo(...string) (string, error) {
	return "", errors.New("not a git repository")
}

func TestResolveVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		base   string
		commit string
		git    gitRunner
		want   string
	}{
		{name: "tagged release", base: "0.1.0", git: fakeGit("", nil, nil), want: "0.1.0"},
		{name: "commits after tag", base: "0.1.0", git: fakeGit("v0.1.0-3-gabcdef", errNoTag, nil), want: "0.1.0-3-gabcdef"},
		{name: "dirty tree", base: "0.1.0", git: fakeGit("v0.1.0-3-gabcdef-dirty", errNoTag, nil), want: "0.1.0-3-gabcdef-dirty"},
		{name: "no tags", base: "0.1.0", git: fakeGit("abcdef", errNoTag, nil), want: "0.1.0-abcdef"},
		{name: "describe fails", base: "0.1.0", git: fakeGit("", errNoTag, errors.New("boom")), want: "0.1.0"},
		{name: "outside repo", base: "0.1.0", git: notARepo, want: "0.1.0"},
		{name: "outside repo with commit", base: "0.1.0", commit: "0123456789abcdef", git: notARepo, want: "0.1.0+0123456"},
		{name: "empty base", base: "", git: notARepo, want: "0.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, resolveVersion(tt.base, tt.commit, tt.git))
		})
	}
}
