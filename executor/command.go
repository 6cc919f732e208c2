package executor

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cnosuke/commando/config"
	"github.com/cnosuke/commando/output"
	"github.com/cnosuke/commando/types"
	"go.uber.org/zap"
)

// commandExecutor implements the CommandExecutor interface
type commandExecutor struct {
	allowedCommands   []string
	defaultWorkingDir string
	allowedDirs       []string
	env               Environment
}

// newCommandExecutor creates a new instance of commandExecutor
func newCommandExecutor(cfg *config.Config) (*commandExecutor, error) {
	zap.S().Infow("creating new Command Executor",
		"allowed_commands", cfg.CommandExec.AllowedCommands)

	workingDir := cfg.CommandExec.DefaultWorkingDir
	if workingDir == "" {
		// Use the HOME environment variable or a default value
		if home := os.Getenv("HOME"); home != "" {
			workingDir = home
		} else {
			workingDir = os.TempDir()
		}
	}

	// Fall back to the temp dir if the default does not exist
	if !isDirectory(workingDir) {
		zap.S().Warnw("default working directory does not exist, falling back to temp dir",
			"original_dir", workingDir)
		workingDir = os.TempDir()
	}

	pathBehavior := cfg.CommandExec.PathBehavior
	if pathBehavior != PathPrepend && pathBehavior != PathReplace && pathBehavior != PathAppend {
		zap.S().Warnw("invalid path_behavior setting, using default 'prepend'",
			"value", pathBehavior)
		pathBehavior = PathPrepend
	}

	return &commandExecutor{
		allowedCommands:   cfg.CommandExec.AllowedCommands,
		defaultWorkingDir: workingDir,
		allowedDirs:       cfg.CommandExec.AllowedDirs,
		env: Environment{
			Defaults:     cfg.CommandExec.Environment,
			SearchPaths:  cfg.CommandExec.SearchPaths,
			PathBehavior: pathBehavior,
		},
	}, nil
}

// NewRunner creates a Runner. Options passed here are applied after the configured ones.
func (e *commandExecutor) NewRunner(spec types.CommandSpec, deliverer output.Deliverer, opts ...RunOption) (*Runner, error) {
	all := append([]RunOption{WithEnvironment(e.env)}, opts...)
	return NewRunner(spec, deliverer, all...)
}

// IsCommandAllowed checks if the command is in the allowed list
func (e *commandExecutor) IsCommandAllowed(argv []string) bool {
	if len(argv) == 0 {
		return false
	}
	programName := strings.TrimSpace(argv[0])
	if programName == "" {
		return false
	}

	for _, allowed := range e.allowedCommands {
		if programName == allowed {
			return true
		}
	}
	return false
}

// GetAllowedCommands returns the list of allowed commands
func (e *commandExecutor) GetAllowedCommands() []string {
	return e.allowedCommands
}

// GetDefaultWorkingDir returns the default working directory
func (e *commandExecutor) GetDefaultWorkingDir() string {
	return e.defaultWorkingDir
}

// IsDirectoryAllowed checks if directory access is allowed
func (e *commandExecutor) IsDirectoryAllowed(dir string) bool {
	// Allow all if the allowed list is empty
	if len(e.allowedDirs) == 0 {
		return true
	}

	dir = filepath.Clean(dir)
	for _, allowedDir := range e.allowedDirs {
		allowedDir = filepath.Clean(allowedDir)
		if dir == allowedDir || strings.HasPrefix(dir, allowedDir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
