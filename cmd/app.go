package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/conneroisu/pressify/internal/archive"
	"github.com/conneroisu/pressify/internal/config"
	"github.com/conneroisu/pressify/internal/console"
	"github.com/conneroisu/pressify/internal/environment"
	"github.com/conneroisu/pressify/internal/logging"
	"github.com/conneroisu/pressify/internal/pipeline"
	"github.com/conneroisu/pressify/internal/platform"
	"github.com/conneroisu/pressify/internal/provision"
	"github.com/conneroisu/pressify/internal/task"
	"github.com/conneroisu/pressify/internal/workflow"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app holds the components one command invocation works with.
type app struct {
	cfg       *config.Config
	logger    logging.Logger
	closers   []func() error
	console   *console.Console
	fs        afero.Fs
	adapter   platform.Adapter
	env       *environment.Controller
	scheduler *task.Scheduler
	workflow  *workflow.Workflow
}

// newApp loads the configuration and wires the components for cmd.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	// afero's base path fs needs an absolute base
	if cfg.Project.Root, err = filepath.Abs(cfg.Project.Root); err != nil {
		return nil, fmt.Errorf("project root: %w", err)
	}

	a := &app{cfg: cfg}
	if err := a.initLogger(cmd); err != nil {
		return nil, err
	}

	a.console = console.New(cmd.ErrOrStderr(), console.Options{Quiet: viper.GetBool("quiet")})
	a.fs = afero.NewBasePathFs(afero.NewOsFs(), cfg.Project.Root)
	a.adapter = platform.Detect(platform.Options{HostAddress: cfg.Environment.HostAddress})

	runner, err := environment.NewComposeRunner(cfg.Environment.ComposeCommand, cfg.Project.Root, a.logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	runner.SetOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())

	provisioner := provision.New(a.fs, a.adapter, a.logger, provision.FromConfig(cfg)...)
	a.env = environment.NewController(runner, provisioner, a.logger)
	a.scheduler = task.NewScheduler(a.logger, a.console)
	a.workflow = workflow.New(cfg, a.env, pipeline.New(a.fs, a.logger), archive.New(a.fs, a.logger), a.console, a.logger)

	return a, nil
}

func (a *app) initLogger(cmd *cobra.Command) error {
	level, err := logging.ParseLevel(a.cfg.Logging.Level)
	if err != nil {
		return err
	}

	logCfg := &logging.LoggerConfig{
		Level:  level,
		Format: a.cfg.Logging.Format,
		Output: cmd.ErrOrStderr(),
	}
	a.logger = logging.NewLogger(logCfg)

	if a.cfg.Logging.Dir == "" {
		return nil
	}
	fileLogger, err := logging.NewFileLogger(logCfg, a.cfg.Path(a.cfg.Logging.Dir))
	if err != nil {
		return fmt.Errorf("log directory: %w", err)
	}
	a.closers = append(a.closers, fileLogger.Close)
	a.logger = logging.NewMultiLogger(a.logger, fileLogger)
	return nil
}

// Close releases the log file, if any.
func (a *app) Close() {
	for _, closer := range a.closers {
		_ = closer()
	}
}

// run executes node. Pipeline failures have already been reported by the
// console and do not fail the command.
func (a *app) run(ctx context.Context, node task.Node) error {
	result := a.scheduler.Run(ctx, node)
	if result.Err != nil {
		return result.Err
	}
	if len(result.Failures) > 0 {
		a.logger.Warn(ctx, result.Failures[0], "Finished with pipeline failures",
			"task", result.Task, "failures", len(result.Failures))
	}
	a.logger.Info(ctx, "Finished", "task", result.Task, "duration", result.Duration.Round(time.Millisecond).String())
	return nil
}

// withApp adapts a function taking an app to a cobra RunE.
func withApp(fn func(cmd *cobra.Command, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, a)
	}
}
