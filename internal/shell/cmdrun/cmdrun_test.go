package cmdrun

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_CapturesStdout(t *testing.T) {
	r := NewExecRunner()

	stdout, stderr, err := r.Run(context.Background(), "", nil, "sh", "-c", "echo hello")

	require.NoError(t, err)
	assert.Equal(t, "hello", stdout)
	assert.Empty(t, stderr)
}

func TestRun_CapturesStderrOnFailure(t *testing.T) {
	r := NewExecRunner()

	_, stderr, err := r.Run(context.Background(), "", nil, "sh", "-c", "echo boom >&2; exit 3")

	require.Error(t, err)
	assert.Equal(t, "boom", stderr)
}

func TestRun_HonorsWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	r := NewExecRunner()

	stdout, _, err := r.Run(context.Background(), dir, nil, "pwd")

	require.NoError(t, err)
	assert.Contains(t, stdout, dir)
}

func TestRun_AppendsEnvironment(t *testing.T) {
	r := NewExecRunner()

	stdout, _, err := r.Run(context.Background(), "", []string{"SHIPWARD_TEST_VAR=42"}, "sh", "-c", "echo $SHIPWARD_TEST_VAR")

	require.NoError(t, err)
	assert.Equal(t, "42", stdout)
}

func TestRun_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewExecRunner()
	_, _, err := r.Run(ctx, "", nil, "sleep", "10")

	assert.Error(t, err)
}
