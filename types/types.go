package types

import "strings"

// CommandSpec - Immutable description of a command to run
type CommandSpec struct {
	Argv       []string          `json:"argv"`
	WorkingDir string            `json:"working_dir"`
	Env        map[string]string `json:"env,omitempty"`
}

// CommandLine returns argv joined by spaces
func (s CommandSpec) CommandLine() string {
	return strings.Join(s.Argv, " ")
}

// ExecutionResult - Terminal outcome of a Runner
type ExecutionResult struct {
	Command    string `json:"command"`
	WorkingDir string `json:"working_dir"`
	Output     string `json:"output"`
	Diagnostic string `json:"diagnostic,omitempty"`
	ExitCode   int    `json:"exit_code"`
	Error      string `json:"error,omitempty"`

	// Err carries the classified cause of a failure. Nil on success.
	Err error `json:"-"`
}

// IsError reports whether the result is a Failure
func (r ExecutionResult) IsError() bool {
	return r.Err != nil
}

// Text returns what a host should render: the diagnostic on failure, the output otherwise
func (r ExecutionResult) Text() string {
	if r.IsError() {
		return r.Diagnostic
	}
	return r.Output
}

// RunnerState - Lifecycle of a Runner
type RunnerState int32

const (
	NotStarted RunnerState = iota
	Running
	Completed
)

func (s RunnerState) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Running:
		return "running"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}
