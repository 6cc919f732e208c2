package mcp

import (
	"github.com/cnosuke/commando/config"
	"github.com/cnosuke/commando/executor"
	"github.com/cnosuke/commando/scheduler"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterAllTools registers all tools to the server
func RegisterAllTools(mcpServer *server.MCPServer, cmdExecutor executor.CommandExecutor, sched scheduler.Scheduler, cfg *config.Config) error {
	if err := RegisterCommandExecTool(mcpServer, cmdExecutor, sched, cfg); err != nil {
		return err
	}

	return nil
}
