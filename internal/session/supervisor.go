package session

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/conneroisu/pressify/internal/dispatch"
	"github.com/conneroisu/pressify/internal/logging"
	"github.com/conneroisu/pressify/internal/task"
)

// Environment is the part of environment.Controller the supervisor drives.
type Environment interface {
	Provision(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Server serves the project and pushes reloads. reload.Server implements
// it.
type Server interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
	URL() string
}

// Watcher feeds change events to the dispatcher. watcher.FileWatcher
// implements it.
type Watcher interface {
	dispatch.Source
	Stop() error
}

// Dispatcher is the part of dispatch.Dispatcher the supervisor drives.
type Dispatcher interface {
	SetObserver(o dispatch.Observer)
	Start(ctx context.Context, source dispatch.Source) error
}

// Announcer prints the dev server banner.
type Announcer interface {
	DevServerReady(url string)
}

// Config wires a Supervisor.
type Config struct {
	Environment Environment
	Runner      dispatch.Runner
	Build       task.Node
	Dispatcher  Dispatcher
	Watcher     Watcher
	Server      Server
	Announcer   Announcer

	// Exit ends the process after an interrupt. Defaults to os.Exit.
	Exit func(code int)
	// Notify and StopNotify default to signal.Notify and signal.Stop.
	Notify     func(c chan<- os.Signal, sig ...os.Signal)
	StopNotify func(c chan<- os.Signal)
}

// Supervisor runs a dev session from provisioning to teardown. It owns the
// process's interrupt handling.
type Supervisor struct {
	cfg         Config
	session     *Session
	coordinator *Coordinator
	logger      logging.Logger
}

// NewSupervisor creates a supervisor for one dev session.
func NewSupervisor(cfg Config, logger logging.Logger) *Supervisor {
	if logger == nil {
		logger = logging.Discard()
	}
	if cfg.Exit == nil {
		cfg.Exit = os.Exit
	}
	if cfg.Notify == nil {
		cfg.Notify = signal.Notify
	}
	if cfg.StopNotify == nil {
		cfg.StopNotify = signal.Stop
	}

	s := New(logger)
	return &Supervisor{
		cfg:         cfg,
		session:     s,
		coordinator: NewCoordinator(s, cfg.Environment, cfg.Exit, logger),
		logger:      logger.WithComponent("supervisor"),
	}
}

// Session returns the supervised session.
func (s *Supervisor) Session() *Session {
	return s.session
}

// Coordinator returns the interrupt coordinator.
func (s *Supervisor) Coordinator() *Coordinator {
	return s.coordinator
}

// Dev provisions and starts the environment, runs the initial build and
// serves until interrupted. It returns nil after an interrupt and the
// fatal error otherwise.
func (s *Supervisor) Dev(ctx context.Context) error {
	s.session.SetPhase(ctx, PhaseProvisioning)
	if err := s.cfg.Environment.Provision(ctx); err != nil {
		s.session.SetPhase(ctx, PhaseTerminated)
		return err
	}

	s.session.SetPhase(ctx, PhaseEnvironmentStarting)
	if err := s.cfg.Environment.Start(ctx); err != nil {
		s.session.SetPhase(ctx, PhaseTerminated)
		return err
	}
	s.session.SetPhase(ctx, PhaseEnvironmentReady)

	completion, err := s.session.Begin()
	if err != nil {
		return s.abort(ctx, err)
	}

	signals := make(chan os.Signal, 1)
	s.cfg.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer s.cfg.StopNotify(signals)

	go func() {
		select {
		case <-signals:
			s.coordinator.OnInterrupt(context.WithoutCancel(ctx))
		case <-completion.Done():
		}
	}()

	s.session.SetPhase(ctx, PhaseInitialBuild)
	result := s.cfg.Runner.Run(ctx, s.cfg.Build)
	if result.Err != nil {
		return s.abort(ctx, result.Err)
	}
	if completion.Resolved() {
		<-s.coordinator.Stopped()
		s.session.SetPhase(ctx, PhaseTerminated)
		return nil
	}
	if len(result.Failures) > 0 {
		s.logger.Warn(ctx, result.Failures[0], "Initial build finished with pipeline failures",
			"failures", len(result.Failures))
	}

	if err := s.cfg.Server.Start(ctx); err != nil {
		return s.abort(ctx, err)
	}
	defer func() {
		if err := s.cfg.Server.Shutdown(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn(ctx, err, "Failed to shut down reload server")
		}
	}()

	s.cfg.Dispatcher.SetObserver(s.session)
	if err := s.cfg.Dispatcher.Start(ctx, s.cfg.Watcher); err != nil {
		return s.abort(ctx, err)
	}
	defer func() {
		if err := s.cfg.Watcher.Stop(); err != nil {
			s.logger.Warn(ctx, err, "Failed to stop watcher")
		}
	}()

	s.session.SetPhase(ctx, PhaseServing)
	if s.cfg.Announcer != nil {
		s.cfg.Announcer.DevServerReady(s.cfg.Server.URL())
	}

	select {
	case <-completion.Done():
	case <-ctx.Done():
		s.coordinator.OnInterrupt(context.WithoutCancel(ctx))
	}
	<-s.coordinator.Stopped()

	s.session.SetPhase(ctx, PhaseTerminated)
	return nil
}

// abort stops the environment after a fatal error and returns err.
func (s *Supervisor) abort(ctx context.Context, err error) error {
	s.session.SetPhase(ctx, PhaseTeardown)
	s.session.Resolve()

	stopCtx := context.WithoutCancel(ctx)
	if stopErr := s.cfg.Environment.Stop(stopCtx); stopErr != nil {
		s.logger.Error(ctx, stopErr, "Failed to stop environment after error")
	}

	s.session.SetPhase(ctx, PhaseTerminated)
	return err
}
