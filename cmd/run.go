package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/cnosuke/commando/config"
	"github.com/cnosuke/commando/executor"
	"github.com/cnosuke/commando/logger"
	"github.com/cnosuke/commando/output"
	"github.com/cnosuke/commando/progress"
	"github.com/cnosuke/commando/scheduler"
	"github.com/cnosuke/commando/types"
	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// NewRunCommand creates the run command
func NewRunCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Aliases:   []string{"r"},
		Usage:     "Run a command in the background, showing progress until it finishes",
		ArgsUsage: "[--] program [args...]",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "working directory (default: current directory)",
			},
			&cli.StringSliceFlag{
				Name:    "env",
				Aliases: []string{"e"},
				Usage:   "environment override as KEY=VALUE, repeatable",
			},
		},
		Action: runCommand,
	}
}

func runCommand(c *cli.Context) error {
	argv := c.Args().Slice()
	if len(argv) == 0 {
		return errors.New("no command given")
	}

	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return errors.Wrap(err, "failed to load configuration file")
	}

	if err := logger.InitLogger(cfg.Debug, cfg.Log); err != nil {
		return errors.Wrap(err, "failed to initialize logger")
	}
	defer logger.Sync()

	env, err := parseEnvFlags(c.StringSlice("env"))
	if err != nil {
		return err
	}

	workingDir := c.String("dir")
	if workingDir == "" {
		if workingDir, err = os.Getwd(); err != nil {
			return errors.Wrap(err, "failed to get current directory")
		}
	}

	cmdExecutor, err := executor.NewCommandExecutor(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to create command executor")
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	loop := scheduler.NewLoop()
	go func() { _ = loop.Run(ctx) }()

	res, err := runWithProgress(cfg, cmdExecutor, loop, types.CommandSpec{
		Argv:       argv,
		WorkingDir: workingDir,
		Env:        env,
	}, c.App.Writer, c.App.ErrWriter)
	if err != nil {
		return err
	}
	if res.IsError() {
		return errors.Wrap(res.Err, "command failed")
	}
	return nil
}

// runWithProgress runs spec, rendering progress to status and the result to panel.
// It returns once the result has been shown and the watcher has finished.
func runWithProgress(cfg *config.Config, cmdExecutor executor.CommandExecutor, sched scheduler.Scheduler, spec types.CommandSpec, panel, status io.Writer) (types.ExecutionResult, error) {
	// errors get the panel heading, plain output is shown as is
	routed := output.Route(output.NewPanel(panel), nil)
	delivered := make(chan struct{})
	deliverer := output.DelivererFunc(func(out string, isError bool) {
		routed.Deliver(out, isError)
		close(delivered)
	})

	runner, err := cmdExecutor.NewRunner(spec, deliverer, executor.WithDispatcher(sched))
	if err != nil {
		return types.ExecutionResult{}, err
	}

	watcher := progress.NewWatcher(runner, spec.CommandLine(), sched, newStatusLine(status),
		progress.WithStatusKey(cfg.Progress.StatusKey),
		progress.WithTiming(cfg.InitialDelay(), cfg.Interval(), cfg.ClearDelay()))

	zap.S().Debugw("running command",
		"command", spec.CommandLine(),
		"working_dir", spec.WorkingDir)

	runner.Start()
	watcher.Start()

	<-delivered
	<-watcher.Done()

	res, _ := runner.Result()
	return res, nil
}

func parseEnvFlags(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(values))
	for _, kv := range values {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, errors.Newf("invalid --env value %q, expected KEY=VALUE", kv)
		}
		env[parts[0]] = parts[1]
	}
	return env, nil
}

// statusLine renders status text on a single terminal line. Keys share the line.
type statusLine struct {
	mu    sync.Mutex
	w     io.Writer
	width int
}

func newStatusLine(w io.Writer) *statusLine {
	return &statusLine{w: w}
}

// SetStatus implements progress.StatusSink
func (s *statusLine) SetStatus(_ string, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	width := utf8.RuneCountInString(text)
	pad := ""
	if n := s.width - width; n > 0 {
		pad = strings.Repeat(" ", n)
	}
	if text == "" {
		fmt.Fprintf(s.w, "\r%s\r", pad)
	} else {
		fmt.Fprintf(s.w, "\r%s%s", text, pad)
	}
	s.width = width
}
