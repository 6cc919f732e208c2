package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/cnosuke/commando/config"
	"github.com/cnosuke/commando/executor"
	"github.com/cnosuke/commando/scheduler"
	"github.com/cnosuke/commando/types"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func testSetup(t *testing.T) (*config.Config, executor.CommandExecutor, scheduler.Scheduler) {
	t.Helper()
	undo := zap.ReplaceGlobals(zaptest.NewLogger(t))
	t.Cleanup(undo)

	cfg := config.Default()
	cfg.Progress.InitialDelayMs = 20
	cfg.Progress.IntervalMs = 20
	cfg.Progress.ClearDelayMs = 20

	cmdExecutor, err := executor.NewCommandExecutor(cfg)
	require.NoError(t, err)

	loop := scheduler.NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = loop.Run(ctx) }()
	t.Cleanup(cancel)

	return cfg, cmdExecutor, loop
}

func TestRunWithProgress_Success(t *testing.T) {
	cfg, cmdExecutor, sched := testSetup(t)
	var panel, status bytes.Buffer

	res, err := runWithProgress(cfg, cmdExecutor, sched, types.CommandSpec{
		Argv:       []string{"sh", "-c", "sleep 0.2; echo finished"},
		WorkingDir: t.TempDir(),
	}, &panel, &status)

	require.NoError(t, err)
	assert.False(t, res.IsError())
	assert.Equal(t, "finished\n", panel.String())
	assert.Contains(t, status.String(), "sh -c sleep 0.2; echo finished: Running")
	assert.Contains(t, status.String(), "sh -c sleep 0.2; echo finished: Done!")
}

func TestRunWithProgress_Failure(t *testing.T) {
	cfg, cmdExecutor, sched := testSetup(t)
	var panel, status bytes.Buffer

	res, err := runWithProgress(cfg, cmdExecutor, sched, types.CommandSpec{
		Argv:       []string{"sh", "-c", "echo nope; exit 3"},
		WorkingDir: t.TempDir(),
	}, &panel, &status)

	require.NoError(t, err)
	assert.True(t, errors.Is(res.Err, executor.ErrCommandFailed))
	assert.Equal(t, "Error\n-----\n$ sh -c echo nope; exit 3\nnope\n", panel.String())
}

func TestRunWithProgress_BlankOutputNotRendered(t *testing.T) {
	cfg, cmdExecutor, sched := testSetup(t)
	var panel, status bytes.Buffer

	res, err := runWithProgress(cfg, cmdExecutor, sched, types.CommandSpec{
		Argv:       []string{"sh", "-c", "printf '  \\n'"},
		WorkingDir: t.TempDir(),
	}, &panel, &status)

	require.NoError(t, err)
	assert.False(t, res.IsError())
	assert.Equal(t, "  \n", res.Output)
	assert.Empty(t, panel.String())
}

func TestRunWithProgress_MissingDirectory(t *testing.T) {
	cfg, cmdExecutor, sched := testSetup(t)
	var panel, status bytes.Buffer

	res, err := runWithProgress(cfg, cmdExecutor, sched, types.CommandSpec{
		Argv:       []string{"echo", "hi"},
		WorkingDir: filepath.Join(t.TempDir(), "nope"),
	}, &panel, &status)

	require.NoError(t, err)
	assert.True(t, errors.Is(res.Err, executor.ErrWorkingDirNotFound))
	assert.Equal(t, "Error\n-----\nWorking directory not found!\n", panel.String())
	assert.Empty(t, status.String(), "fast failures show no progress")
}

func TestRunCommand_ViaApp(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer

	app := NewApp("commando", "0.0.1", "test")
	app.Writer = &stdout
	app.ErrWriter = &stderr

	err := app.Run([]string{"commando", "run",
		"--config", filepath.Join(dir, "missing.yml"),
		"--dir", dir,
		"--env", "COMMANDO_CLI=from-flag",
		"--", "sh", "-c", `echo "$COMMANDO_CLI"`})
	require.NoError(t, err)
	assert.Equal(t, "from-flag\n", stdout.String())

	stdout.Reset()
	err = app.Run([]string{"commando", "run", "--config", filepath.Join(dir, "missing.yml"), "--dir", dir, "--", "false"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, executor.ErrCommandFailed))
	assert.Contains(t, stdout.String(), "Error\n-----\n$ false")
}

func TestRunCommand_NoArgs(t *testing.T) {
	app := NewApp("commando", "0.0.1", "test")
	err := app.Run([]string{"commando", "run"})
	assert.ErrorContains(t, err, "no command given")
}

func TestParseEnvFlags(t *testing.T) {
	env, err := parseEnvFlags([]string{"A=1", "B=x=y", "C="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "B": "x=y", "C": ""}, env)

	env, err = parseEnvFlags(nil)
	require.NoError(t, err)
	assert.Nil(t, env)

	_, err = parseEnvFlags([]string{"NOEQUALS"})
	assert.Error(t, err)
	_, err = parseEnvFlags([]string{"=v"})
	assert.Error(t, err)
}

func TestStatusLine(t *testing.T) {
	var buf bytes.Buffer
	s := newStatusLine(&buf)

	s.SetStatus("k", "abc: Running.  ")
	s.SetStatus("k", "abc: Done!")
	s.SetStatus("k", "")

	assert.Equal(t, "\rabc: Running.  \rabc: Done!     \r          \r", buf.String())
}

func TestStatusLine_CountsRunesNotBytes(t *testing.T) {
	var buf bytes.Buffer
	s := newStatusLine(&buf)

	s.SetStatus("k", "écho: Done!")
	s.SetStatus("k", "")

	assert.Equal(t, "\récho: Done!\r           \r", buf.String())
}
