package executor

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// LaunchRequest is everything needed to start one child process
type LaunchRequest struct {
	Argv []string
	Dir  string
	Env  []string
}

// Launcher starts a process and waits for it.
// A non-zero exit is reported through exitCode with a nil error; err is reserved for
// processes that could not be started at all.
type Launcher interface {
	Launch(req LaunchRequest) (combined []byte, exitCode int, err error)
}

// execLauncher launches real processes with os/exec
type execLauncher struct{}

// NewExecLauncher returns the os/exec backed Launcher
func NewExecLauncher() Launcher {
	return execLauncher{}
}

// Launch implements Launcher
func (execLauncher) Launch(req LaunchRequest) ([]byte, int, error) {
	if len(req.Argv) == 0 {
		return nil, -1, ErrEmptyCommand
	}

	pathEnv, _ := lookupEnv(req.Env, "PATH")
	binaryPath, err := resolveBinaryPath(req.Argv[0], pathEnv, req.Dir)
	if err != nil {
		return nil, -1, err
	}

	zap.S().Debugw("executing binary",
		"binary_path", binaryPath,
		"args", req.Argv[1:],
		"working_dir", req.Dir)

	// The child gets its own working directory; the process cwd is left alone.
	cmd := exec.Command(binaryPath, req.Argv[1:]...)
	cmd.Dir = req.Dir
	cmd.Env = req.Env

	out, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return out, exitErr.ExitCode(), nil
		}
		return out, -1, err
	}
	return out, 0, nil
}

// resolveBinaryPath finds name on the PATH the child will see, not the parent's.
// Relative program paths and relative PATH entries are taken relative to dir.
// The returned path is absolute, so exec.Cmd never resolves it a second time.
func resolveBinaryPath(name, pathEnv, dir string) (string, error) {
	if name == "" {
		return "", ErrEmptyCommand
	}

	if strings.ContainsRune(name, os.PathSeparator) {
		path := inDir(dir, name)
		if err := checkExecutable(path); err != nil {
			return "", err
		}
		return path, nil
	}

	for _, entry := range filepath.SplitList(pathEnv) {
		path := inDir(dir, filepath.Join(entry, name))
		if checkExecutable(path) == nil {
			return path, nil
		}
	}

	return "", errors.Newf("command not found: %s", name)
}

// inDir anchors a relative path at dir and makes it absolute
func inDir(dir, path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(err, "command not found: %s", path)
	}
	if info.IsDir() || info.Mode()&0111 == 0 {
		return errors.Newf("not executable: %s", path)
	}
	return nil
}
