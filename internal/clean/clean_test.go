package clean

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/ratbuild/internal/codes"
	"github.com/Norgate-AV/ratbuild/internal/logging"
	"github.com/Norgate-AV/ratbuild/internal/proc"
)

func TestNew(t *testing.T) {
	c := New(&proc.FakeRunner{}, logging.Nop(), "", "/ws", []string{"rake", "clean"}, "ruby")

	assert.Equal(t, "cargo clean", c.Primary.String())
	assert.Equal(t, "/ws", c.Primary.Dir)
	require.NotNil(t, c.Secondary)
	assert.Equal(t, "rake clean", c.Secondary.String())
	assert.Equal(t, "/ws/ruby", c.Secondary.Dir)

	assert.Nil(t, New(&proc.FakeRunner{}, logging.Nop(), "cargo", "/ws", nil, "").Secondary)
}

func TestRun_Success(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "libipasirratsat.a")
	require.NoError(t, os.WriteFile(present, []byte("x"), 0o644))

	runner := &proc.FakeRunner{}
	c := New(runner, logging.Nop(), "cargo", dir, []string{"rake", "clean"}, "ruby")
	c.Artifacts = []string{present, filepath.Join(dir, "missing")}

	summary, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{present}, summary.Removed)
	assert.NoError(t, summary.SecondaryErr)
	assert.NoFileExists(t, present)

	calls := runner.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "cargo", calls[0].Path)
	assert.Equal(t, "rake", calls[1].Path)
}

func TestRun_SecondaryFailureTolerated(t *testing.T) {
	var buf bytes.Buffer
	runner := &proc.FakeRunner{Handler: func(_ context.Context, cmd proc.ShellCommand) (*proc.Result, error) {
		if cmd.Path == "rake" {
			return &proc.Result{ExitCode: 1, Output: "rake aborted!"}, nil
		}
		return &proc.Result{}, nil
	}}

	c := New(runner, logging.NewJSON(&buf, false), "cargo", "/ws", []string{"rake", "clean"}, "ruby")

	summary, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.EqualError(t, summary.SecondaryErr, "exit code 1")

	out := buf.String()
	assert.Contains(t, out, `"tolerated":true`)
	assert.Contains(t, out, "secondary cleanup failed")
	assert.Contains(t, out, `"level":"warn"`)
}

func TestRun_SecondaryMissingTool(t *testing.T) {
	runner := &proc.FakeRunner{Handler: func(_ context.Context, cmd proc.ShellCommand) (*proc.Result, error) {
		if cmd.Path == "rake" {
			return nil, errors.New("executable file not found in $PATH")
		}
		return &proc.Result{}, nil
	}}

	c := New(runner, logging.Nop(), "cargo", "/ws", []string{"rake", "clean"}, "ruby")

	summary, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Error(t, summary.SecondaryErr)
}

func TestRun_PrimaryFailure(t *testing.T) {
	runner := &proc.FakeRunner{Handler: func(context.Context, proc.ShellCommand) (*proc.Result, error) {
		return &proc.Result{ExitCode: 101}, nil
	}}

	c := New(runner, logging.Nop(), "cargo", "/ws", []string{"rake", "clean"}, "ruby")

	_, err := c.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited with code 101")
	assert.Len(t, runner.Calls(), 1, "secondary does not run after primary failure")
	assert.Equal(t, codes.ExitUsage, codes.ExitCode(err))
}

func TestRun_Interrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &proc.FakeRunner{Handler: func(ctx context.Context, _ proc.ShellCommand) (*proc.Result, error) {
		return nil, ctx.Err()
	}}

	_, err := New(runner, logging.Nop(), "cargo", "/ws", nil, "").Run(ctx)
	assert.True(t, codes.IsKind(err, codes.Interrupted))
}
