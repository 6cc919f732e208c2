package executor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cnosuke/commando/output"
	"github.com/cnosuke/commando/scheduler"
	"github.com/cnosuke/commando/types"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// PromptMarker precedes the command line in failure diagnostics
const PromptMarker = "$ "

// Runner runs one command in the background and reports its result once.
//
// State is written only by the Runner's goroutine and may be read from anywhere.
// There is no cancellation: once started the command runs to completion.
type Runner struct {
	spec      types.CommandSpec
	deliverer output.Deliverer
	launcher  Launcher
	env       Environment
	dispatch  scheduler.Scheduler

	state     atomic.Int32
	result    atomic.Pointer[types.ExecutionResult]
	done      chan struct{}
	startOnce sync.Once
}

// RunOption configures a Runner
type RunOption func(*Runner)

// WithLauncher replaces the os/exec launcher, mostly for tests
func WithLauncher(l Launcher) RunOption {
	return func(r *Runner) {
		if l != nil {
			r.launcher = l
		}
	}
}

// WithEnvironment sets how the child environment is assembled
func WithEnvironment(env Environment) RunOption {
	return func(r *Runner) {
		r.env = env
	}
}

// WithDispatcher delivers the result on s instead of the Runner's goroutine
func WithDispatcher(s scheduler.Scheduler) RunOption {
	return func(r *Runner) {
		r.dispatch = s
	}
}

// NewRunner creates a Runner for spec. deliverer may be nil.
func NewRunner(spec types.CommandSpec, deliverer output.Deliverer, opts ...RunOption) (*Runner, error) {
	if len(spec.Argv) == 0 || strings.TrimSpace(spec.Argv[0]) == "" {
		return nil, ErrEmptyCommand
	}

	r := &Runner{
		spec:      copySpec(spec),
		deliverer: deliverer,
		launcher:  NewExecLauncher(),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Spec returns the command the Runner was built for
func (r *Runner) Spec() types.CommandSpec {
	return r.spec
}

// Start begins execution on a new goroutine. Subsequent calls do nothing.
func (r *Runner) Start() {
	r.startOnce.Do(func() {
		r.state.Store(int32(types.Running))
		go r.run()
	})
}

// State returns the current lifecycle state
func (r *Runner) State() types.RunnerState {
	return types.RunnerState(r.state.Load())
}

// Done is closed once the result is available
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Result returns the terminal result and true once the Runner has completed
func (r *Runner) Result() (types.ExecutionResult, bool) {
	res := r.result.Load()
	if res == nil {
		return types.ExecutionResult{}, false
	}
	return *res, true
}

// Wait blocks until the Runner completes or ctx is done.
// Giving up on ctx does not stop the command.
func (r *Runner) Wait(ctx context.Context) (types.ExecutionResult, error) {
	select {
	case <-r.done:
		res, _ := r.Result()
		return res, nil
	case <-ctx.Done():
		return types.ExecutionResult{}, ctx.Err()
	}
}

func (r *Runner) run() {
	res := r.execute()

	// result first, then state: readers that see Completed always see the result
	r.result.Store(&res)
	r.state.Store(int32(types.Completed))
	close(r.done)

	if r.deliverer == nil {
		return
	}
	deliver := func() {
		r.deliverer.Deliver(res.Text(), res.IsError())
	}
	if r.dispatch != nil {
		r.dispatch.Post(deliver)
		return
	}
	deliver()
}

func (r *Runner) execute() types.ExecutionResult {
	commandLine := r.spec.CommandLine()
	result := types.ExecutionResult{
		Command:    commandLine,
		WorkingDir: r.spec.WorkingDir,
	}

	if !isDirectory(r.spec.WorkingDir) {
		zap.S().Warnw("working directory not found",
			"command", commandLine,
			"working_dir", r.spec.WorkingDir)
		return fail(result, WorkingDirNotFoundMessage, WorkingDirNotFoundMessage, -1,
			errors.Wrapf(ErrWorkingDirNotFound, "%q", r.spec.WorkingDir))
	}

	zap.S().Debugw("launching command",
		"command", commandLine,
		"working_dir", r.spec.WorkingDir,
		"env_overrides", len(r.spec.Env))

	// exec.Cmd resolves a relative program path against Dir, so Dir must not be relative
	dir, err := filepath.Abs(r.spec.WorkingDir)
	if err != nil {
		launchErr := errors.Mark(errors.Wrap(err, "failed to resolve working directory"), ErrLaunchFailed)
		return fail(result, "", PromptMarker+commandLine+"\n"+launchErr.Error(), -1, launchErr)
	}

	out, exitCode, err := r.launcher.Launch(LaunchRequest{
		Argv: r.spec.Argv,
		Dir:  dir,
		Env:  r.env.Build(r.spec.Env),
	})
	text := decode(out)

	if err != nil {
		zap.S().Warnw("failed to launch command",
			"command", commandLine,
			"error", err)
		launchErr := errors.Mark(errors.Wrap(err, "failed to launch command"), ErrLaunchFailed)
		return fail(result, text, PromptMarker+commandLine+"\n"+launchErr.Error(), -1, launchErr)
	}

	if exitCode != 0 {
		zap.S().Debugw("command exited non-zero",
			"command", commandLine,
			"exit_code", exitCode)
		return fail(result, text, PromptMarker+commandLine+"\n"+text, exitCode,
			errors.Wrapf(ErrCommandFailed, "exit status %d", exitCode))
	}

	zap.S().Debugw("command completed",
		"command", commandLine,
		"output_bytes", len(out))
	result.Output = text
	return result
}

func fail(res types.ExecutionResult, out, diagnostic string, exitCode int, err error) types.ExecutionResult {
	res.Output = out
	res.Diagnostic = diagnostic
	res.ExitCode = exitCode
	res.Err = err
	res.Error = err.Error()
	return res
}

// decode turns captured bytes into text, replacing invalid UTF-8
func decode(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

func isDirectory(dir string) bool {
	if dir == "" {
		return false
	}
	stat, err := os.Stat(dir)
	return err == nil && stat.IsDir()
}

func copySpec(spec types.CommandSpec) types.CommandSpec {
	out := types.CommandSpec{
		Argv:       append([]string(nil), spec.Argv...),
		WorkingDir: spec.WorkingDir,
	}
	if spec.Env != nil {
		out.Env = make(map[string]string, len(spec.Env))
		for k, v := range spec.Env {
			out.Env[k] = v
		}
	}
	return out
}
