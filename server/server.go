package server

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/cnosuke/commando/config"
	"github.com/cnosuke/commando/executor"
	"github.com/cnosuke/commando/mcp"
	"github.com/cnosuke/commando/scheduler"
)

// Server - MCP server exposing the asynchronous command runner
type Server struct {
	cfg       *config.Config
	executor  executor.CommandExecutor
	loop      *scheduler.Loop
	mcpServer *server.MCPServer
}

// NewServer - Create the MCP server and register its tools
func NewServer(cfg *config.Config, name, version string) (*Server, error) {
	zap.S().Debugw("creating Command Executor",
		"allowed_commands", cfg.CommandExec.AllowedCommands,
		"search_paths", cfg.CommandExec.SearchPaths,
		"path_behavior", cfg.CommandExec.PathBehavior)

	cmdExecutor, err := executor.NewCommandExecutor(cfg)
	if err != nil {
		zap.S().Errorw("failed to create Command Executor", "error", err)
		return nil, errors.Wrap(err, "failed to create command executor")
	}

	loop := scheduler.NewLoop()
	mcpServer := server.NewMCPServer(name, version,
		server.WithToolCapabilities(true),
		server.WithLogging(),
	)

	zap.S().Debugw("registering tools")
	if err := mcp.RegisterAllTools(mcpServer, cmdExecutor, loop, cfg); err != nil {
		zap.S().Errorw("failed to register tools", "error", err)
		return nil, errors.Wrap(err, "failed to register tools")
	}

	return &Server{
		cfg:       cfg,
		executor:  cmdExecutor,
		loop:      loop,
		mcpServer: mcpServer,
	}, nil
}

// Start - Serve MCP over stdio until the client disconnects
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := s.loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zap.S().Errorw("scheduler loop stopped", "error", err)
		}
	}()
	defer s.loop.Stop()

	zap.S().Infow("starting MCP server over stdio")
	if err := server.ServeStdio(s.mcpServer); err != nil {
		zap.S().Errorw("failed to serve", "error", err)
		return errors.Wrap(err, "failed to serve")
	}

	zap.S().Infow("server shutting down")
	return nil
}
