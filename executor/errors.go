package executor

import "github.com/cockroachdb/errors"

// WorkingDirNotFoundMessage is reported verbatim when the working directory is unusable
const WorkingDirNotFoundMessage = "Working directory not found!"

var (
	// ErrEmptyCommand - argv has no program
	ErrEmptyCommand = errors.New("empty command")

	// ErrWorkingDirNotFound - working directory is missing or not a directory; nothing was launched
	ErrWorkingDirNotFound = errors.New("working directory not found")

	// ErrCommandFailed - the process ran and exited non-zero
	ErrCommandFailed = errors.New("command failed")

	// ErrLaunchFailed - the process could not be started
	ErrLaunchFailed = errors.New("failed to launch command")
)
