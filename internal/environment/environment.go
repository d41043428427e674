// Package environment drives the external container environment through
// the compose CLI and tracks its lifecycle state.
//
// Controller is the only writer of State. Its operations are serialized
// by a mutex; a failed external call leaves the state as it was before the
// call and is neither retried nor rolled back.
package environment

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/conneroisu/pressify/internal/errors"
	"github.com/conneroisu/pressify/internal/logging"
)

// State is the lifecycle state of the container environment.
type State int

const (
	StateUnprovisioned State = iota
	StateStopped
	StateRunning
)

// String returns the string representation of the State
func (s State) String() string {
	switch s {
	case StateUnprovisioned:
		return "unprovisioned"
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Provisioner is the subset of provision.Provisioner the controller needs.
type Provisioner interface {
	EnsureAll(ctx context.Context) (int, error)
	Provisioned() bool
	Clean(ctx context.Context) error
}

// serviceNamePattern validates compose service names: lowercase letters,
// digits, hyphens and underscores.
var serviceNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// startHint is shown when an operation needs a provisioned or running
// environment.
const startHint = "pressify env:start"

// Controller runs lifecycle operations against the compose environment.
type Controller struct {
	mu          sync.Mutex
	runner      Runner
	provisioner Provisioner
	state       State
	logger      logging.Logger
}

// NewController creates a controller. The initial state is Stopped when
// every resource is already provisioned, Unprovisioned otherwise.
func NewController(runner Runner, provisioner Provisioner, logger logging.Logger) *Controller {
	if logger == nil {
		logger = logging.Discard()
	}
	state := StateUnprovisioned
	if provisioner.Provisioned() {
		state = StateStopped
	}
	return &Controller{
		runner:      runner,
		provisioner: provisioner,
		state:       state,
		logger:      logger.WithComponent("environment"),
	}
}

// State returns the last known state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Provision ensures every environment resource exists. A running
// environment stays running.
func (c *Controller) Provision(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	op := logging.StartOperation(c.logger, "provision")
	created, err := c.provisioner.EnsureAll(ctx)
	if err != nil {
		op.EndWithError(ctx, err)
		return err
	}
	op.End(ctx)

	if c.state == StateUnprovisioned {
		c.setState(ctx, StateStopped)
	}
	c.logger.Info(ctx, "Environment provisioned", "created", created)
	return nil
}

// Start brings the environment up in the background.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireProvisioned(); err != nil {
		return err
	}
	if _, err := c.runner.Run(ctx, "up", "-d"); err != nil {
		return err
	}
	c.setState(ctx, StateRunning)
	return nil
}

// Build builds the images without starting containers.
func (c *Controller) Build(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireProvisioned(); err != nil {
		return err
	}
	if _, err := c.runner.Run(ctx, "up", "--build", "--no-start"); err != nil {
		return err
	}
	c.setState(ctx, StateStopped)
	return nil
}

// Rebuild rebuilds the images and recreates the containers.
func (c *Controller) Rebuild(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireProvisioned(); err != nil {
		return err
	}
	if _, err := c.runner.Run(ctx, "up", "-d", "--build", "--force-recreate"); err != nil {
		return err
	}
	c.setState(ctx, StateRunning)
	return nil
}

// Restart restarts one service of a running environment.
func (c *Controller) Restart(ctx context.Context, service string) error {
	if !serviceNamePattern.MatchString(service) {
		return errors.NewConfigError("INVALID_SERVICE_NAME", fmt.Sprintf("invalid service name %q", service))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRunning {
		running, err := c.runningServices(ctx)
		if err != nil {
			return err
		}
		if !running[service] {
			return errors.NewMissingPrerequisiteError("NOT_RUNNING",
				fmt.Sprintf("service %s is not running", service), startHint)
		}
		c.setState(ctx, StateRunning)
	}

	_, err := c.runner.Run(ctx, "restart", service)
	return err
}

// Stop brings the environment down. It is valid in any state.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.runner.Run(ctx, "down"); err != nil {
		return err
	}
	if c.provisioner.Provisioned() {
		c.setState(ctx, StateStopped)
	} else {
		c.setState(ctx, StateUnprovisioned)
	}
	return nil
}

// TeardownAndClean brings the environment down and removes every
// provisioned resource.
func (c *Controller) TeardownAndClean(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.runner.Run(ctx, "down"); err != nil {
		return err
	}
	// down succeeded, so the containers are gone even if cleaning fails
	c.setState(ctx, StateStopped)

	if err := c.provisioner.Clean(ctx); err != nil {
		return err
	}
	c.setState(ctx, StateUnprovisioned)
	return nil
}

func (c *Controller) requireProvisioned() error {
	if c.provisioner.Provisioned() {
		return nil
	}
	return errors.NewMissingPrerequisiteError("NOT_PROVISIONED",
		"environment resources are missing", startHint)
}

func (c *Controller) runningServices(ctx context.Context) (map[string]bool, error) {
	result, err := c.runner.Output(ctx, "ps", "--services", "--filter", "status=running")
	if err != nil {
		return nil, err
	}
	services := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(result.Output))
	for scanner.Scan() {
		if name := bytes.TrimSpace(scanner.Bytes()); len(name) > 0 {
			services[string(name)] = true
		}
	}
	return services, nil
}

func (c *Controller) setState(ctx context.Context, s State) {
	if c.state == s {
		return
	}
	c.logger.Debug(ctx, "Environment state changed", "from", c.state.String(), "to", s.String())
	c.state = s
}
