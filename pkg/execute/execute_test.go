package execute

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	setuperr "github.com/arthur-debert/reposetup/pkg/errors"
	"github.com/arthur-debert/reposetup/pkg/sanitize"
)

func TestExecuteCapturesOutput(t *testing.T) {
	r := NewRunner(nil)

	result, err := r.Execute(context.Background(), Command{
		Argv: []string{"sh", "-c", "echo out; echo err >&2"},
	})

	require.NoError(t, err)
	assert.Equal(t, "out\n", result.Stdout)
	assert.Equal(t, "err\n", result.Stderr)
	assert.Equal(t, 0, result.ExitCode)
}

func TestExecuteToleratesEmptyOutput(t *testing.T) {
	r := NewRunner(nil)

	result, err := r.Execute(context.Background(), Command{
		Argv: []string{"true"},
	})

	require.NoError(t, err)
	assert.Empty(t, result.Stdout)
	assert.Empty(t, result.Stderr)
}

func TestExecuteNonZeroExit(t *testing.T) {
	r := NewRunner(nil)

	result, err := r.Execute(context.Background(), Command{
		Argv: []string{"sh", "-c", "echo broken >&2; exit 3"},
	})

	require.Error(t, err)
	assert.True(t, setuperr.IsErrorCode(err, setuperr.ErrCommandFailed))
	assert.Contains(t, err.Error(), "broken")
	assert.Equal(t, 3, result.ExitCode)
}

func TestExecuteNonZeroExitEmptyStderr(t *testing.T) {
	r := NewRunner(nil)

	_, err := r.Execute(context.Background(), Command{
		Argv: []string{"sh", "-c", "exit 2"},
	})

	require.Error(t, err)
	assert.True(t, setuperr.IsErrorCode(err, setuperr.ErrCommandFailed))
	assert.Contains(t, err.Error(), "exit code 2")
}

func TestExecuteTimeout(t *testing.T) {
	r := NewRunner(nil)

	_, err := r.Execute(context.Background(), Command{
		Argv:    []string{"sleep", "5"},
		Timeout: 100 * time.Millisecond,
	})

	require.Error(t, err)
	assert.True(t, setuperr.IsErrorCode(err, setuperr.ErrCommandTimeout))
}

func TestExecuteSanitizesStderr(t *testing.T) {
	r := NewRunner(sanitize.New("supersecret"))

	_, err := r.Execute(context.Background(), Command{
		Argv: []string{"sh", "-c", "echo 'auth supersecret rejected' >&2; exit 1"},
	})

	require.Error(t, err)
	assert.NotContains(t, err.Error(), "supersecret")
	assert.Contains(t, err.Error(), sanitize.RedactionMarker)
}

func TestExecuteEnvOverride(t *testing.T) {
	r := NewRunner(nil)

	result, err := r.Execute(context.Background(), Command{
		Argv: []string{"sh", "-c", "echo $SETUP_TEST_VAR"},
		Env:  []string{"SETUP_TEST_VAR=hello"},
	})

	require.NoError(t, err)
	assert.Equal(t, "hello\n", result.Stdout)
}

func TestExecuteEmptyArgv(t *testing.T) {
	r := NewRunner(nil)

	_, err := r.Execute(context.Background(), Command{})

	require.Error(t, err)
	assert.True(t, setuperr.IsErrorCode(err, setuperr.ErrInvalidInput))
}

func TestLookPath(t *testing.T) {
	r := NewRunner(nil)

	assert.True(t, r.LookPath("sh"))
	assert.False(t, r.LookPath("definitely-not-a-real-tool-xyz"))
}
