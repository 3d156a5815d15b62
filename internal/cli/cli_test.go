package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/modbisect/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newProfile creates a game directory with an empty mods folder.
func newProfile(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "mods"), 0o755))
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, logs bytes.Buffer
	err := Execute(context.Background(), args, &out, &logs)
	if testing.Verbose() {
		t.Log(logs.String())
	}
	return out.String(), err
}

func TestExecute_Help(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{nil, {"--help"}, {"mods", "--help"}} {
		out, err := execute(t, args...)
		require.NoError(t, err, "args %v", args)
		assert.Contains(t, out, "Usage:")
	}

	out, _ := execute(t, "--help")
	for _, sub := range []string{"find-error", "mod-info", "validate", "why-depends", "mods", "clean"} {
		assert.Contains(t, out, sub)
	}
}

func TestExecute_UsageErrors(t *testing.T) {
	t.Parallel()
	profile := newProfile(t)

	testCases := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown flag", args: []string{"--bogus", "validate"}, want: "unknown flag"},
		{name: "unknown command", args: []string{"frobnicate"}, want: "unknown command"},
		{name: "find-error without symptom", args: []string{"-p", profile, "find-error"}, want: "accepts 1 arg"},
		{name: "validate with an argument", args: []string{"-p", profile, "validate", "extra"}, want: "unknown command"},
		{name: "bad log level", args: []string{"-p", profile, "--log-level", "loud", "validate"}, want: "invalid log-level"},
		{name: "bad log format", args: []string{"-p", profile, "--log-format", "xml", "validate"}, want: "invalid log-format"},
		{name: "bad status port", args: []string{"-p", profile, "--status-port", "70000", "validate"}, want: "invalid status-port"},
		{name: "missing config file", args: []string{"-c", filepath.Join(profile, "nope.hcl"), "validate"}, want: "config file"},
		{name: "malformed override", args: []string{"-p", profile, "--override-versions", "novalue", "validate"}, want: "novalue"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := execute(t, tc.args...)
			require.Error(t, err)

			var exitErr *ExitError
			require.True(t, errors.As(err, &exitErr), "expected an ExitError, got %T", err)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.want)
		})
	}
}

func TestExecute_Validate(t *testing.T) {
	t.Parallel()
	profile := newProfile(t)

	out, err := execute(t, "--profile-dir", profile, "--log-format", "text", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "[PASS]")
}

func TestExecute_RuntimeErrorsExitWithOne(t *testing.T) {
	t.Parallel()
	profile := newProfile(t)

	_, err := execute(t, "-p", profile, "why-depends", "ghost")
	require.Error(t, err)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 1, exitErr.Code)
	assert.Contains(t, exitErr.Message, "ghost")
}

func TestExitError_UnwrapsCause(t *testing.T) {
	t.Parallel()

	err := &ExitError{Code: 1, Message: "pack has problems: 2", Err: app.ErrProblems}
	assert.True(t, errors.Is(err, app.ErrProblems))
	assert.Equal(t, "pack has problems: 2", err.Error())
}

func TestExecute_Clean(t *testing.T) {
	t.Parallel()
	profile := newProfile(t)
	require.NoError(t, os.WriteFile(filepath.Join(profile, "mods", "left.jar.tempdisabled"), nil, 0o644))

	out, err := execute(t, "-p", profile, "clean")
	require.NoError(t, err)
	assert.Contains(t, out, "1 mod file(s) restored.")
	assert.FileExists(t, filepath.Join(profile, "mods", "left.jar"))
}
