package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestRun_ExportsEnvAndDir(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	var out bytes.Buffer

	r := &Runner{
		Dir:    dir,
		Env:    map[string]string{"DYNPKG_IDENTITY": "abc123"},
		Stdout: &out,
	}
	err := r.Run(context.Background(), []string{"sh", "-c", `echo "$DYNPKG_IDENTITY"; pwd`})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "abc123", lines[0])
	assert.Contains(t, lines[1], dir[strings.LastIndex(dir, "/")+1:])
}

func TestRun_ExitCode(t *testing.T) {
	requireShell(t)
	r := &Runner{Dir: t.TempDir()}

	err := r.Run(context.Background(), []string{"sh", "-c", "exit 3"})
	require.Error(t, err)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.ExitCode)
	assert.Equal(t, "sh exited with code 3", err.Error())
}

func TestRun_Errors(t *testing.T) {
	r := &Runner{Dir: t.TempDir()}

	t.Run("empty command", func(t *testing.T) {
		err := r.Run(context.Background(), nil)
		assert.EqualError(t, err, "command array is empty")
	})

	t.Run("missing binary", func(t *testing.T) {
		err := r.Run(context.Background(), []string{"definitely-not-a-real-binary-dynpkg"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to start")
	})
}
