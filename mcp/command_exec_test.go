package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cnosuke/commando/config"
	"github.com/cnosuke/commando/executor"
	"github.com/cnosuke/commando/scheduler"
	"github.com/cnosuke/commando/types"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockNotifier - records notifications sent to the client
type MockNotifier struct {
	mock.Mock
	mu   sync.Mutex
	data []string
}

func (m *MockNotifier) SendNotificationToClient(ctx context.Context, method string, params map[string]any) error {
	m.mu.Lock()
	if s, ok := params["data"].(string); ok {
		m.data = append(m.data, s)
	}
	m.mu.Unlock()
	args := m.Called(ctx, method, params)
	return args.Error(0)
}

func setup(t *testing.T, allowed ...string) (*config.Config, executor.CommandExecutor, scheduler.Scheduler) {
	t.Helper()
	// watchers keep ticking after the handler returns, so no zaptest logger here
	undo := zap.ReplaceGlobals(zap.NewNop())
	t.Cleanup(undo)

	cfg := config.Default()
	cfg.CommandExec.AllowedCommands = allowed
	cfg.CommandExec.DefaultWorkingDir = t.TempDir()
	cfg.Progress.InitialDelayMs = 10
	cfg.Progress.IntervalMs = 10
	cfg.Progress.ClearDelayMs = 10

	cmdExecutor, err := executor.NewCommandExecutor(cfg)
	require.NoError(t, err)

	loop := scheduler.NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = loop.Run(ctx) }()
	t.Cleanup(cancel)

	return cfg, cmdExecutor, loop
}

func callTool(t *testing.T, handler server.ToolHandlerFunc, args map[string]any) (*mcp.CallToolResult, string) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = ToolName
	req.Params.Arguments = args

	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return result, text.Text
}

func TestRegisterAllTools(t *testing.T) {
	cfg, cmdExecutor, sched := setup(t, "echo")
	mcpServer := server.NewMCPServer("commando-test", "0.0.1", server.WithToolCapabilities(true))

	err := RegisterAllTools(mcpServer, cmdExecutor, sched, cfg)
	assert.NoError(t, err)
}

func TestCommandExecHandler_Success(t *testing.T) {
	cfg, cmdExecutor, sched := setup(t, "sh")
	notifier := new(MockNotifier)
	notifier.On("SendNotificationToClient", mock.Anything, "notifications/message", mock.Anything).Return(nil).Maybe()

	handler := newCommandExecHandler(notifier, cmdExecutor, sched, cfg)
	result, text := callTool(t, handler, map[string]any{
		"command": []any{"sh", "-c", `echo "$GREETING"`},
		"env":     map[string]any{"GREETING": "hello", "IGNORED": 42},
	})

	assert.False(t, result.IsError)

	var got types.ExecutionResult
	require.NoError(t, json.Unmarshal([]byte(text), &got))
	assert.Equal(t, "hello\n", got.Output)
	assert.Equal(t, 0, got.ExitCode)
	assert.Equal(t, cmdExecutor.GetDefaultWorkingDir(), got.WorkingDir)
	assert.Empty(t, got.Error)
}

func TestCommandExecHandler_Failure(t *testing.T) {
	cfg, cmdExecutor, sched := setup(t, "sh")
	notifier := new(MockNotifier)
	notifier.On("SendNotificationToClient", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	handler := newCommandExecHandler(notifier, cmdExecutor, sched, cfg)
	result, text := callTool(t, handler, map[string]any{
		"command": []any{"sh", "-c", "echo bad; exit 2"},
	})

	assert.True(t, result.IsError)

	var got types.ExecutionResult
	require.NoError(t, json.Unmarshal([]byte(text), &got))
	assert.Equal(t, 2, got.ExitCode)
	assert.Equal(t, "$ sh -c echo bad; exit 2\nbad\n", got.Diagnostic)
	assert.Contains(t, got.Error, "command failed")
}

func TestCommandExecHandler_MissingWorkingDir(t *testing.T) {
	cfg, cmdExecutor, sched := setup(t, "echo")
	notifier := new(MockNotifier)
	notifier.On("SendNotificationToClient", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	handler := newCommandExecHandler(notifier, cmdExecutor, sched, cfg)
	result, text := callTool(t, handler, map[string]any{
		"command":     "echo hi",
		"working_dir": filepath.Join(t.TempDir(), "missing"),
	})

	assert.True(t, result.IsError)
	var got types.ExecutionResult
	require.NoError(t, json.Unmarshal([]byte(text), &got))
	assert.Equal(t, "Working directory not found!", got.Output)
}

func TestCommandExecHandler_Rejections(t *testing.T) {
	cfg, _, sched := setup(t, "echo")
	cfg.CommandExec.AllowedDirs = []string{"/srv/only-here"}
	cfg.CommandExec.DefaultWorkingDir = ""
	cmdExecutor, err := executor.NewCommandExecutor(cfg)
	require.NoError(t, err)

	handler := newCommandExecHandler(new(MockNotifier), cmdExecutor, sched, cfg)

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{name: "missing command", args: map[string]any{}, want: "empty command provided"},
		{name: "non-string item", args: map[string]any{"command": []any{"echo", 1}}, want: "empty command provided"},
		{name: "not allowed", args: map[string]any{"command": []any{"rm", "-rf", "/"}}, want: "command not allowed: rm"},
		{name: "dir not allowed", args: map[string]any{"command": []any{"echo"}, "working_dir": "/etc"}, want: "access to directory not allowed: /etc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, text := callTool(t, handler, tt.args)
			assert.True(t, result.IsError)
			assert.Equal(t, tt.want, text)
		})
	}
}

func TestCommandExecHandler_ReportsProgress(t *testing.T) {
	cfg, cmdExecutor, sched := setup(t, "sleep")
	notifier := new(MockNotifier)
	notifier.On("SendNotificationToClient", mock.Anything, "notifications/message",
		mock.MatchedBy(func(p map[string]any) bool {
			return p["logger"] == "commando-command" && p["level"] == "info"
		})).Return(nil)

	handler := newCommandExecHandler(notifier, cmdExecutor, sched, cfg)
	result, _ := callTool(t, handler, map[string]any{"command": []any{"sleep", "0.2"}})
	assert.False(t, result.IsError)

	require.Eventually(t, func() bool {
		notifier.mu.Lock()
		defer notifier.mu.Unlock()
		n := len(notifier.data)
		return n >= 2 && notifier.data[n-1] == ""
	}, 5*time.Second, 10*time.Millisecond)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	assert.Contains(t, notifier.data[0], "sleep 0.2: Running")
	assert.Equal(t, "sleep 0.2: Done!", notifier.data[len(notifier.data)-2])
}

func TestParseArgv(t *testing.T) {
	assert.Equal(t, []string{"git", "status"}, parseArgv("git  status"))
	assert.Equal(t, []string{"a", "b c"}, parseArgv([]any{"a", "b c"}))
	assert.Equal(t, []string{"x"}, parseArgv([]string{"x"}))
	assert.Nil(t, parseArgv(42))
	assert.Nil(t, parseArgv([]any{"a", false}))
}
