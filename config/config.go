package config

import (
	"os"
	"strings"
	"time"

	"github.com/jinzhu/configor"
)

// Default allowed commands for the MCP tool
var defaultAllowedCommands = []string{
	"git",
	"ls",
	"mkdir",
	"go",
	"make",
	"cat",
	"find",
	"grep",
	"pwd",
	"echo",
}

// Config - Application configuration
type Config struct {
	Debug bool   `yaml:"debug" env:"DEBUG"`
	Log   string `yaml:"log" env:"LOG_PATH"`

	CommandExec struct {
		AllowedCommands []string `yaml:"allowed_commands"`
		// Working directory settings
		DefaultWorkingDir string   `yaml:"default_working_dir" env:"DEFAULT_WORKING_DIR"`
		AllowedDirs       []string `yaml:"allowed_dirs"`
		// Environment applied to every command, below per-command overrides
		Environment map[string]string `yaml:"environment"`
		// Search path settings
		SearchPaths  []string `yaml:"search_paths"`
		PathBehavior string   `yaml:"path_behavior" default:"prepend"`
	} `yaml:"command_exec"`

	Progress struct {
		StatusKey      string `yaml:"status_key" default:"commando-command"`
		InitialDelayMs int    `yaml:"initial_delay_ms" default:"500"`
		IntervalMs     int    `yaml:"interval_ms" default:"200"`
		ClearDelayMs   int    `yaml:"clear_delay_ms" default:"3000"`
	} `yaml:"progress"`
}

// InitialDelay returns the delay before the first progress check
func (c *Config) InitialDelay() time.Duration {
	return time.Duration(c.Progress.InitialDelayMs) * time.Millisecond
}

// Interval returns the progress polling interval
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Progress.IntervalMs) * time.Millisecond
}

// ClearDelay returns how long "Done!" stays before the status is cleared
func (c *Config) ClearDelay() time.Duration {
	return time.Duration(c.Progress.ClearDelayMs) * time.Millisecond
}

// Default returns a configuration populated with the built-in defaults only
func Default() *Config {
	cfg := &Config{}
	cfg.CommandExec.AllowedCommands = defaultAllowedCommands
	cfg.CommandExec.PathBehavior = "prepend"
	cfg.Progress.StatusKey = "commando-command"
	cfg.Progress.InitialDelayMs = 500
	cfg.Progress.IntervalMs = 200
	cfg.Progress.ClearDelayMs = 3000
	return cfg
}

// LoadConfig - Load configuration file
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	// Values from the file (if present) override the defaults
	var files []string
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			files = append(files, path)
		}
	}
	err := configor.New(&configor.Config{
		Debug:      false,
		Verbose:    false,
		Silent:     true,
		AutoReload: false,
	}).Load(cfg, files...)

	// Override the allowed command list from the environment if set
	if envAllowedCmd := os.Getenv("ALLOWED_COMMANDS"); envAllowedCmd != "" {
		cfg.CommandExec.AllowedCommands = strings.Split(envAllowedCmd, ",")
	}

	return cfg, err
}
