// Package runner executes the external packaging command once the
// workspace has been prepared.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// ExitError reports a packaging command that ran but failed.
type ExitError struct {
	Command  string
	ExitCode int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
}

// Runner runs a command in the workspace with identity details exported
// as DYNPKG_* environment variables.
type Runner struct {
	Dir    string
	Env    map[string]string
	Stdout io.Writer
	Stderr io.Writer
}

// Run executes argv and waits for it. Output is streamed, not captured.
func (r *Runner) Run(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command array is empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.Dir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	cmd.Env = os.Environ()
	for k, v := range r.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if ctx.Err() != nil {
				return fmt.Errorf("%s interrupted: %w", argv[0], ctx.Err())
			}
			return &ExitError{Command: argv[0], ExitCode: exitErr.ExitCode()}
		}
		return fmt.Errorf("failed to start %s: %w", argv[0], err)
	}
	return nil
}
