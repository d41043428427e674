// Package session tracks the lifecycle of one dev session: the phase it
// is in, the completion the supervisor waits on and the interrupt that
// ends it.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/conneroisu/pressify/internal/dispatch"
	"github.com/conneroisu/pressify/internal/logging"
	"github.com/conneroisu/pressify/internal/task"
)

// Phase is the top-level state of a dev session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseProvisioning
	PhaseEnvironmentStarting
	PhaseEnvironmentReady
	PhaseInitialBuild
	PhaseServing
	PhaseRebuilding
	PhaseTeardown
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseProvisioning:
		return "provisioning"
	case PhaseEnvironmentStarting:
		return "environment-starting"
	case PhaseEnvironmentReady:
		return "environment-ready"
	case PhaseInitialBuild:
		return "initial-build"
	case PhaseServing:
		return "serving"
	case PhaseRebuilding:
		return "rebuilding"
	case PhaseTeardown:
		return "teardown"
	case PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Completion is a resolve-once handle. Resolving it unblocks everything
// waiting on Done.
type Completion struct {
	once sync.Once
	done chan struct{}
}

func newCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

// Resolve closes Done. Later calls do nothing.
func (c *Completion) Resolve() {
	c.once.Do(func() { close(c.done) })
}

// Done is closed once the completion is resolved.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Resolved reports whether Resolve has been called.
func (c *Completion) Resolved() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Session owns the phase and the single outstanding completion. It
// implements dispatch.Observer so rebuilds show up as PhaseRebuilding.
type Session struct {
	mu      sync.Mutex
	phase   Phase
	pending *Completion
	active  int
	logger  logging.Logger
}

var _ dispatch.Observer = (*Session)(nil)

// New creates an idle session.
func New(logger logging.Logger) *Session {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Session{logger: logger.WithComponent("session")}
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// SetPhase moves the session to p.
func (s *Session) SetPhase(ctx context.Context, p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setPhase(ctx, p)
}

func (s *Session) setPhase(ctx context.Context, p Phase) {
	if s.phase == p {
		return
	}
	s.logger.Debug(ctx, "Session phase changed", "from", s.phase.String(), "to", p.String())
	s.phase = p
}

// Begin creates the session's pending completion. It fails while an
// earlier completion is still unresolved.
func (s *Session) Begin() (*Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil && !s.pending.Resolved() {
		return nil, fmt.Errorf("session already has a pending completion")
	}
	s.pending = newCompletion()
	return s.pending, nil
}

// Resolve resolves the pending completion, if any, and reports whether
// there was one.
func (s *Session) Resolve() bool {
	s.mu.Lock()
	pending := s.pending
	s.mu.Unlock()

	if pending == nil {
		return false
	}
	pending.Resolve()
	return true
}

// RunStarted moves a serving session to PhaseRebuilding.
func (s *Session) RunStarted(ctx context.Context, _ dispatch.Binding) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active++
	if s.phase == PhaseServing {
		s.setPhase(ctx, PhaseRebuilding)
	}
}

// RunFinished returns to PhaseServing once no rebuild is running.
func (s *Session) RunFinished(ctx context.Context, _ dispatch.Binding, _ *task.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active > 0 {
		s.active--
	}
	if s.active == 0 && s.phase == PhaseRebuilding {
		s.setPhase(ctx, PhaseServing)
	}
}
