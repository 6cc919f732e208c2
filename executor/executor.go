package executor

import (
	"github.com/cnosuke/commando/config"
	"github.com/cnosuke/commando/output"
	"github.com/cnosuke/commando/types"
)

// CommandExecutor is the main interface for command execution
type CommandExecutor interface {
	// NewRunner creates a Runner for spec carrying the configured environment
	NewRunner(spec types.CommandSpec, deliverer output.Deliverer, opts ...RunOption) (*Runner, error)

	// IsCommandAllowed checks if the program in argv is in the allowed list
	IsCommandAllowed(argv []string) bool

	// GetAllowedCommands returns the list of allowed commands
	GetAllowedCommands() []string

	// GetDefaultWorkingDir returns the directory used when a request names none
	GetDefaultWorkingDir() string

	// IsDirectoryAllowed checks if directory access is allowed
	IsDirectoryAllowed(dir string) bool
}

// NewCommandExecutor creates a new instance of CommandExecutor
func NewCommandExecutor(cfg *config.Config) (CommandExecutor, error) {
	return newCommandExecutor(cfg)
}
