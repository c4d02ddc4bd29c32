package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunCapturesOutput(t *testing.T) {
	res := Run(context.Background(), 5*time.Second, "sh", "-c", "echo out; echo err >&2")
	assert.True(t, res.OK())
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.TimedOut)
}

func TestRunNonZeroExit(t *testing.T) {
	res := Run(context.Background(), 5*time.Second, "sh", "-c", "exit 3")
	assert.False(t, res.OK())
	assert.Equal(t, 3, res.ExitCode)
	assert.NoError(t, res.Err, "a clean non-zero exit is not an error")
}

func TestRunTimeout(t *testing.T) {
	start := time.Now()
	res := Run(context.Background(), 200*time.Millisecond, "sleep", "10")
	assert.True(t, res.TimedOut)
	assert.False(t, res.OK())
	assert.Less(t, time.Since(start), 5*time.Second, "must not wait for the full sleep")
}

func TestRunMissingBinary(t *testing.T) {
	res := Run(context.Background(), time.Second, "definitely-not-a-real-binary")
	assert.Error(t, res.Err)
	assert.False(t, res.OK())
}
