package task

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/conneroisu/pressify/internal/errors"
	"github.com/conneroisu/pressify/internal/logging"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one scheduler run.
type Result struct {
	Task     string
	Err      error
	Failures []error
	Duration time.Duration
}

// Succeeded reports whether the run had neither a fatal error nor a
// pipeline failure.
func (r *Result) Succeeded() bool {
	return r.Err == nil && len(r.Failures) == 0
}

// Reporter is told about every tolerated pipeline failure.
type Reporter interface {
	ReportFailure(ctx context.Context, err error)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, err error)

// ReportFailure calls f.
func (f ReporterFunc) ReportFailure(ctx context.Context, err error) { f(ctx, err) }

// Scheduler executes task graphs.
type Scheduler struct {
	logger   logging.Logger
	reporter Reporter
}

// NewScheduler creates a scheduler. reporter may be nil.
func NewScheduler(logger logging.Logger, reporter Reporter) *Scheduler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scheduler{
		logger:   logger.WithComponent("scheduler"),
		reporter: reporter,
	}
}

// run carries the failures collected across one Run.
type run struct {
	mu       sync.Mutex
	failures []error
}

func (r *run) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, err)
}

func (r *run) snapshot() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.failures...)
}

type runKey struct{}

// Failures returns the pipeline failures recorded so far by the run that
// invoked the action holding ctx. Outside a run it returns nil.
func Failures(ctx context.Context) []error {
	state, ok := ctx.Value(runKey{}).(*run)
	if !ok {
		return nil
	}
	return state.snapshot()
}

// Run executes node and blocks until it has finished. In-flight actions are
// never aborted; a done ctx only stops a Series from starting its next
// member.
func (s *Scheduler) Run(ctx context.Context, node Node) *Result {
	start := time.Now()
	state := &run{}

	err := s.runNode(context.WithValue(ctx, runKey{}, state), node, state)

	result := &Result{
		Task:     node.Name(),
		Err:      err,
		Failures: state.failures,
		Duration: time.Since(start),
	}
	s.logger.Debug(ctx, "Run finished",
		"task", result.Task,
		"duration_ms", result.Duration.Milliseconds(),
		"failures", len(result.Failures),
		"fatal", err != nil,
	)
	return result
}

func (s *Scheduler) runNode(ctx context.Context, node Node, state *run) error {
	switch n := node.(type) {
	case *Task:
		return s.runTask(ctx, n, state)
	case *Composite:
		if n.mode == ModeParallel {
			return s.runParallel(ctx, n, state)
		}
		return s.runSeries(ctx, n, state)
	default:
		return errors.NewInternalError("UNKNOWN_NODE", fmt.Sprintf("unknown node type %T", node), nil)
	}
}

func (s *Scheduler) runSeries(ctx context.Context, c *Composite, state *run) error {
	for _, member := range c.members {
		if err := ctx.Err(); err != nil {
			s.logger.Debug(ctx, "Series interrupted", "task", c.name, "skipped", member.Name())
			return err
		}
		if err := s.runNode(ctx, member, state); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) runParallel(ctx context.Context, c *Composite, state *run) error {
	var g errgroup.Group
	for _, member := range c.members {
		g.Go(func() error {
			err := s.runNode(ctx, member, state)
			if err != nil {
				s.logger.Error(ctx, err, "Parallel member failed", "task", c.name, "member", member.Name())
			}
			return err
		})
	}
	return g.Wait()
}

func (s *Scheduler) runTask(ctx context.Context, t *Task, state *run) (err error) {
	op := logging.StartOperation(s.logger, t.name)
	defer func() {
		if r := recover(); r != nil {
			err = errors.NewInternalError("TASK_PANIC", fmt.Sprintf("task panicked: %v", r), nil).WithTask(t.name)
		}
		if err != nil {
			op.EndWithError(ctx, err)
		} else {
			op.End(ctx)
		}
	}()

	actionErr := t.action(ctx)
	if actionErr == nil {
		return nil
	}

	if t.kind == KindStream {
		failure := errors.WrapPipeline(actionErr, t.name)
		state.fail(failure)
		if s.reporter != nil {
			s.reporter.ReportFailure(ctx, failure)
		}
		return nil
	}

	return withTask(actionErr, t.name)
}

// withTask records the failing task on typed errors.
func withTask(err error, name string) error {
	var e *errors.Error
	if stderrors.As(err, &e) {
		if e.Task == "" {
			e.Task = name
		}
		return err
	}
	return fmt.Errorf("task %s: %w", name, err)
}
