// Package dispatch maps file changes to the task that rebuilds them and
// to the browser refresh that follows.
//
// Each binding runs at most one task at a time. Changes arriving while its
// task is running are folded into a single follow-up run.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/conneroisu/pressify/internal/glob"
	"github.com/conneroisu/pressify/internal/logging"
	"github.com/conneroisu/pressify/internal/reload"
	"github.com/conneroisu/pressify/internal/task"
	"github.com/conneroisu/pressify/internal/watcher"
)

// Binding ties a watch pattern to a task and a reload mode.
type Binding struct {
	// Pattern is matched against project-relative, slash-separated paths.
	Pattern string
	Task    task.Node
	Mode    reload.Mode
	// Reload is the pattern sent with the reload signal. Empty means
	// Pattern.
	Reload string
}

func (b Binding) reloadPattern() string {
	if b.Reload != "" {
		return b.Reload
	}
	return b.Pattern
}

// Runner runs a task graph. task.Scheduler implements it.
type Runner interface {
	Run(ctx context.Context, node task.Node) *task.Result
}

// Observer is told when a binding's run starts and finishes.
type Observer interface {
	RunStarted(ctx context.Context, b Binding)
	RunFinished(ctx context.Context, b Binding, result *task.Result)
}

// Source delivers batches of change events. watcher.FileWatcher
// implements it.
type Source interface {
	AddHandler(handler watcher.ChangeHandler)
	Start(ctx context.Context) error
}

type slot struct {
	binding Binding
	running bool
	pending bool
}

// Dispatcher routes change events to bindings.
type Dispatcher struct {
	mu       sync.Mutex
	slots    []*slot
	runner   Runner
	notifier reload.Notifier
	observer Observer
	wg       sync.WaitGroup
	logger   logging.Logger
}

// New creates a dispatcher.
func New(runner Runner, notifier reload.Notifier, logger logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Dispatcher{
		runner:   runner,
		notifier: notifier,
		logger:   logger.WithComponent("dispatch"),
	}
}

// SetObserver installs o. It must be called before Start.
func (d *Dispatcher) SetObserver(o Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observer = o
}

// Register adds a binding.
func (d *Dispatcher) Register(b Binding) error {
	if b.Pattern == "" {
		return fmt.Errorf("binding pattern cannot be empty")
	}
	if b.Task == nil {
		return fmt.Errorf("binding %s has no task", b.Pattern)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.slots = append(d.slots, &slot{binding: b})
	return nil
}

// Bindings returns the registered bindings in registration order.
func (d *Dispatcher) Bindings() []Binding {
	d.mu.Lock()
	defer d.mu.Unlock()
	bindings := make([]Binding, len(d.slots))
	for i, s := range d.slots {
		bindings[i] = s.binding
	}
	return bindings
}

// Start subscribes to source and starts it.
func (d *Dispatcher) Start(ctx context.Context, source Source) error {
	source.AddHandler(func(events []watcher.ChangeEvent) error {
		for _, event := range events {
			d.Dispatch(ctx, event.Path)
		}
		return nil
	})
	return source.Start(ctx)
}

// Dispatch handles a change of path and returns how many bindings it
// triggered. It does not wait for the triggered runs.
func (d *Dispatcher) Dispatch(ctx context.Context, path string) int {
	if ctx.Err() != nil {
		return 0
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	triggered := 0
	for _, s := range d.slots {
		if !glob.Match(s.binding.Pattern, path) {
			continue
		}
		triggered++

		if s.running {
			s.pending = true
			continue
		}
		s.running = true
		d.wg.Add(1)
		go d.loop(ctx, s)
	}

	if triggered == 0 {
		d.logger.Debug(ctx, "No binding for change", "path", path)
	}
	return triggered
}

// Wait blocks until no binding is running.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) loop(ctx context.Context, s *slot) {
	defer d.wg.Done()

	for {
		d.runOnce(ctx, s.binding)

		d.mu.Lock()
		if s.pending && ctx.Err() == nil {
			s.pending = false
			d.mu.Unlock()
			continue
		}
		s.pending = false
		s.running = false
		d.mu.Unlock()
		return
	}
}

func (d *Dispatcher) runOnce(ctx context.Context, b Binding) {
	d.mu.Lock()
	observer := d.observer
	d.mu.Unlock()

	if observer != nil {
		observer.RunStarted(ctx, b)
	}

	result := d.runner.Run(ctx, b.Task)

	switch {
	case result.Err != nil:
		d.logger.Error(ctx, result.Err, "Rebuild failed", "pattern", b.Pattern, "task", b.Task.Name())
	case len(result.Failures) > 0:
		d.logger.Warn(ctx, result.Failures[0], "Rebuild had pipeline failures, browsers not reloaded",
			"pattern", b.Pattern, "task", b.Task.Name(), "failures", len(result.Failures))
	default:
		d.logger.Info(ctx, "Rebuilt", "task", b.Task.Name(), "duration_ms", result.Duration.Milliseconds())
		if d.notifier != nil {
			d.notifier.Notify(ctx, b.Mode, b.reloadPattern())
		}
	}

	if observer != nil {
		observer.RunFinished(ctx, b, result)
	}
}
