package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cnosuke/commando/config"
	"github.com/cnosuke/commando/executor"
	"github.com/cnosuke/commando/progress"
	"github.com/cnosuke/commando/scheduler"
	"github.com/cnosuke/commando/types"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// ToolName is the name the command execution tool is registered under
const ToolName = "command_exec"

// Notifier sends notifications to the MCP client that issued the current request
type Notifier interface {
	SendNotificationToClient(ctx context.Context, method string, params map[string]any) error
}

// notificationSink forwards status lines as MCP log notifications
type notificationSink struct {
	ctx      context.Context
	notifier Notifier
}

// SetStatus implements progress.StatusSink
func (s notificationSink) SetStatus(key, text string) {
	err := s.notifier.SendNotificationToClient(s.ctx, "notifications/message", map[string]any{
		"level":  "info",
		"logger": key,
		"data":   text,
	})
	if err != nil {
		zap.S().Debugw("failed to send status notification",
			"key", key,
			"error", err)
	}
}

// RegisterCommandExecTool registers the command execution tool
func RegisterCommandExecTool(mcpServer *server.MCPServer, cmdExecutor executor.CommandExecutor, sched scheduler.Scheduler, cfg *config.Config) error {
	zap.S().Debugw("registering command_exec tool")

	description := fmt.Sprint(
		"Execute a system command from a predefined allowed list and return its combined output. ",
		"Progress is reported as log notifications while the command runs. ",
		"Recommended to specify the directory to execute the command in using the `working_dir` parameter. ",
		"Allowed commands: ",
		strings.Join(cmdExecutor.GetAllowedCommands(), ", "))

	commandExecTool := mcp.NewTool(ToolName,
		mcp.WithDescription(description),
		mcp.WithArray("command",
			mcp.Required(),
			mcp.Description("Program and arguments, e.g. [\"git\", \"status\"]"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("working_dir",
			mcp.Description("Optional working directory for this command only"),
		),
		mcp.WithObject("env",
			mcp.Description("Optional environment variables for this command only"),
		),
	)

	mcpServer.AddTool(commandExecTool, newCommandExecHandler(mcpServer, cmdExecutor, sched, cfg))
	return nil
}

func newCommandExecHandler(notifier Notifier, cmdExecutor executor.CommandExecutor, sched scheduler.Scheduler, cfg *config.Config) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		argv := parseArgv(args["command"])
		workingDir, _ := args["working_dir"].(string)
		env := parseEnv(args["env"])

		zap.S().Debugw("executing command_exec",
			"argv", argv,
			"working_dir", workingDir)

		if len(argv) == 0 {
			zap.S().Warnw("empty command provided")
			return mcp.NewToolResultError("empty command provided"), nil
		}

		if !cmdExecutor.IsCommandAllowed(argv) {
			zap.S().Warnw("command not allowed",
				"argv", argv)
			return mcp.NewToolResultError(fmt.Sprintf("command not allowed: %s", argv[0])), nil
		}

		if workingDir == "" {
			workingDir = cmdExecutor.GetDefaultWorkingDir()
		}
		if !cmdExecutor.IsDirectoryAllowed(workingDir) {
			zap.S().Warnw("directory not allowed",
				"working_dir", workingDir)
			return mcp.NewToolResultError(fmt.Sprintf("access to directory not allowed: %s", workingDir)), nil
		}

		spec := types.CommandSpec{Argv: argv, WorkingDir: workingDir, Env: env}
		runner, err := cmdExecutor.NewRunner(spec, nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		sink := notificationSink{ctx: context.WithoutCancel(ctx), notifier: notifier}
		watcher := progress.NewWatcher(runner, spec.CommandLine(), sched, sink,
			progress.WithStatusKey(cfg.Progress.StatusKey),
			progress.WithTiming(cfg.InitialDelay(), cfg.Interval(), cfg.ClearDelay()))

		runner.Start()
		watcher.Start()

		result, err := runner.Wait(ctx)
		if err != nil {
			zap.S().Warnw("stopped waiting for command",
				"command", spec.CommandLine(),
				"error", err)
			return mcp.NewToolResultError(fmt.Sprintf("stopped waiting for command: %s", err.Error())), nil
		}

		if result.IsError() {
			zap.S().Errorw("failed to execute command",
				"command", result.Command,
				"error", result.Err)
		}

		jsonBytes, err := json.Marshal(result)
		if err != nil {
			zap.S().Errorw("failed to marshal result to JSON", "error", err)
			return mcp.NewToolResultError("failed to marshal result to JSON"), nil
		}

		toolResult := mcp.NewToolResultText(string(jsonBytes))
		toolResult.IsError = result.IsError()
		return toolResult, nil
	}
}

// parseArgv accepts either an array of strings or a single command line string
func parseArgv(v any) []string {
	switch val := v.(type) {
	case string:
		return strings.Fields(val)
	case []string:
		return val
	case []any:
		argv := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil
			}
			argv = append(argv, s)
		}
		return argv
	default:
		return nil
	}
}

func parseEnv(v any) map[string]string {
	envVal, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	env := make(map[string]string, len(envVal))
	for k, v := range envVal {
		if strVal, ok := v.(string); ok {
			env[k] = strVal
		}
	}
	return env
}
