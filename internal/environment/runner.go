package environment

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/conneroisu/pressify/internal/errors"
	"github.com/conneroisu/pressify/internal/logging"
)

// Result describes one finished external invocation.
type Result struct {
	Args     []string
	ExitCode int
	Output   []byte
	Duration time.Duration
}

// Runner executes compose subcommands. Run streams the command's output
// to the terminal, Output captures it. A non-zero exit is returned as an
// ErrorTypeExternalProcess error together with the Result.
type Runner interface {
	Run(ctx context.Context, args ...string) (*Result, error)
	Output(ctx context.Context, args ...string) (*Result, error)
}

// allowedCommands is the allow-list for the first word of the compose
// command.
var allowedCommands = map[string]bool{
	"docker-compose": true,
	"docker":         true,
	"podman-compose": true,
	"podman":         true,
}

// ComposeRunner runs the configured compose command in the project root.
type ComposeRunner struct {
	command []string
	dir     string
	stdout  io.Writer
	stderr  io.Writer
	logger  logging.Logger
}

// NewComposeRunner creates a runner for command, e.g. ["docker", "compose"].
func NewComposeRunner(command []string, dir string, logger logging.Logger) (*ComposeRunner, error) {
	if len(command) == 0 {
		return nil, errors.NewConfigError("COMPOSE_COMMAND_EMPTY", "compose command cannot be empty")
	}
	if !allowedCommands[command[0]] {
		return nil, errors.NewConfigError("COMPOSE_COMMAND_NOT_ALLOWED", fmt.Sprintf("command '%s' is not allowed", command[0]))
	}
	for _, arg := range command[1:] {
		if err := validateArgument(arg); err != nil {
			return nil, errors.NewConfigError("COMPOSE_COMMAND_INVALID", fmt.Sprintf("invalid argument '%s': %v", arg, err))
		}
	}
	if logger == nil {
		logger = logging.Discard()
	}

	return &ComposeRunner{
		command: append([]string(nil), command...),
		dir:     dir,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		logger:  logger.WithComponent("compose"),
	}, nil
}

// SetOutput redirects the streamed output of Run.
func (r *ComposeRunner) SetOutput(stdout, stderr io.Writer) {
	r.stdout = stdout
	r.stderr = stderr
}

// Run executes the command with its output streamed. The combined output is
// also kept so a failure can report its tail.
func (r *ComposeRunner) Run(ctx context.Context, args ...string) (*Result, error) {
	var captured bytes.Buffer
	return r.exec(ctx, args, io.MultiWriter(r.stdout, &captured), io.MultiWriter(r.stderr, &captured), &captured)
}

// Output executes the command and captures its standard output.
func (r *ComposeRunner) Output(ctx context.Context, args ...string) (*Result, error) {
	var stdout, stderr bytes.Buffer
	result, err := r.exec(ctx, args, &stdout, &stderr, &stdout)
	if err != nil && result != nil {
		result.Output = append(result.Output, stderr.Bytes()...)
	}
	return result, err
}

func (r *ComposeRunner) exec(ctx context.Context, args []string, stdout, stderr io.Writer, captured *bytes.Buffer) (*Result, error) {
	for _, arg := range args {
		if err := validateArgument(arg); err != nil {
			return nil, errors.NewInternalError("INVALID_ARGUMENT", fmt.Sprintf("invalid argument '%s'", arg), err)
		}
	}

	full := append(append([]string(nil), r.command...), args...)
	cmd := exec.CommandContext(ctx, full[0], full[1:]...)
	cmd.Dir = r.dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	r.logger.Debug(ctx, "Running compose command", "args", strings.Join(full, " "))

	start := time.Now()
	runErr := cmd.Run()
	result := &Result{
		Args:     full,
		Duration: time.Since(start),
		Output:   captured.Bytes(),
	}

	if runErr != nil {
		result.ExitCode = -1
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, errors.NewExternalProcessError(full, result.ExitCode, result.Output, runErr)
	}

	return result, nil
}

// validateArgument rejects shell metacharacters. Arguments never pass
// through a shell, but service names and flags come from user input.
func validateArgument(arg string) error {
	if strings.ContainsAny(arg, ";&|$`()<>\\\"'") {
		return fmt.Errorf("contains dangerous character")
	}
	if strings.Contains(arg, "..") {
		return fmt.Errorf("contains path traversal")
	}
	return nil
}
