package session

import (
	"context"
	"sync"

	"github.com/conneroisu/pressify/internal/logging"
)

// Stopper stops the container environment. environment.Controller
// implements it.
type Stopper interface {
	Stop(ctx context.Context) error
}

// Coordinator turns an interrupt into an orderly shutdown: the pending
// completion is resolved, then the environment is stopped, then the
// process exits with status 0.
type Coordinator struct {
	once    sync.Once
	session *Session
	env     Stopper
	exit    func(code int)
	stopped chan struct{}
	logger  logging.Logger
}

// NewCoordinator creates a coordinator. exit is normally os.Exit.
func NewCoordinator(session *Session, env Stopper, exit func(code int), logger logging.Logger) *Coordinator {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Coordinator{
		session: session,
		env:     env,
		exit:    exit,
		stopped: make(chan struct{}),
		logger:  logger.WithComponent("interrupt"),
	}
}

// OnInterrupt runs the shutdown sequence. Only the first call has an
// effect.
func (c *Coordinator) OnInterrupt(ctx context.Context) {
	c.once.Do(func() {
		c.logger.Info(ctx, "Interrupt received, stopping environment")
		c.session.SetPhase(ctx, PhaseTeardown)
		c.session.Resolve()

		if err := c.env.Stop(ctx); err != nil {
			c.logger.Error(ctx, err, "Failed to stop environment")
		}

		if c.exit != nil {
			c.exit(0)
		}
		close(c.stopped)
	})
}

// Stopped is closed once the shutdown sequence has run. With os.Exit as
// the exit function it is never closed.
func (c *Coordinator) Stopped() <-chan struct{} {
	return c.stopped
}
