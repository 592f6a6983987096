// Package execute runs external tools synchronously with an enforced
// wall-clock timeout and captured, sanitized output. Every external
// invocation in the pipeline goes through this package.
package execute

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	shellquote "github.com/kballard/go-shellquote"
	"github.com/rs/zerolog"

	setuperr "github.com/arthur-debert/reposetup/pkg/errors"
	"github.com/arthur-debert/reposetup/pkg/logging"
	"github.com/arthur-debert/reposetup/pkg/sanitize"
)

const (
	// DefaultTimeout bounds every tool invocation except clone.
	DefaultTimeout = 600 * time.Second
	// CloneTimeout bounds remote repository clones.
	CloneTimeout = 300 * time.Second
)

// Command describes one external invocation.
type Command struct {
	Argv []string
	Dir  string
	// Env entries are appended to the current environment.
	Env []string
	// Timeout defaults to DefaultTimeout when zero.
	Timeout time.Duration
}

// Result captures the output of a completed invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes commands and translates failures into sanitized,
// structured errors.
type Runner struct {
	sanitizer *sanitize.Sanitizer
	logger    zerolog.Logger
}

// NewRunner returns a Runner that sanitizes all surfaced output with s.
func NewRunner(s *sanitize.Sanitizer) *Runner {
	if s == nil {
		s = sanitize.New("")
	}
	return &Runner{
		sanitizer: s,
		logger:    logging.GetLogger("execute"),
	}
}

// LookPath reports whether the named tool is available on PATH.
func (r *Runner) LookPath(tool string) bool {
	_, err := exec.LookPath(tool)
	return err == nil
}

// Execute runs the command to completion, timeout, or failure. A non-zero
// exit yields ErrCommandFailed carrying sanitized stderr; exceeding the
// timeout yields ErrCommandTimeout. The returned Result is valid in both
// cases. Empty stdout or stderr is not an error.
func (r *Runner) Execute(ctx context.Context, cmd Command) (Result, error) {
	if len(cmd.Argv) == 0 {
		return Result{}, setuperr.New(setuperr.ErrInvalidInput, "empty command")
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r.logger.Debug().
		Str("command", r.sanitizer.Sanitize(shellquote.Join(cmd.Argv...))).
		Str("dir", cmd.Dir).
		Dur("timeout", timeout).
		Msg("Executing command")

	execCmd := exec.CommandContext(runCtx, cmd.Argv[0], cmd.Argv[1:]...)
	execCmd.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		execCmd.Env = append(os.Environ(), cmd.Env...)
	}

	var stdout, stderr bytes.Buffer
	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr

	start := time.Now()
	runErr := execCmd.Run()
	logging.LogDuration(start, "command "+cmd.Argv[0])

	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if execCmd.ProcessState != nil {
		result.ExitCode = execCmd.ProcessState.ExitCode()
	}

	if runErr == nil {
		return result, nil
	}

	if runCtx.Err() == context.DeadlineExceeded {
		return result, setuperr.Newf(setuperr.ErrCommandTimeout,
			"command %s timed out after %s", cmd.Argv[0], timeout).
			WithDetail("argv", cmd.Argv)
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		message := strings.TrimSpace(r.sanitizer.Sanitize(result.Stderr))
		if message == "" {
			message = fmt.Sprintf("command failed with exit code %d", result.ExitCode)
		}
		return result, setuperr.Newf(setuperr.ErrCommandFailed, "%s", message).
			WithDetail("tool", cmd.Argv[0]).
			WithDetail("exitCode", result.ExitCode)
	}

	return result, setuperr.Wrapf(runErr, setuperr.ErrCommandFailed,
		"failed to run %s", cmd.Argv[0])
}
