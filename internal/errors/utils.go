package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Wrap wraps an error with additional context, creating an *Error if the
// input is not already one.
func Wrap(err error, errType ErrorType, code, message string) *Error {
	if err == nil {
		return nil
	}

	// Keep the inner task/path/hint so the outermost error still prints them
	var inner *Error
	if errors.As(err, &inner) {
		return &Error{
			Type:        errType,
			Code:        code,
			Message:     message,
			Cause:       inner,
			Task:        inner.Task,
			Path:        inner.Path,
			Hint:        inner.Hint,
			Recoverable: errType == ErrorTypePipeline,
		}
	}

	return &Error{
		Type:        errType,
		Code:        code,
		Message:     message,
		Cause:       err,
		Recoverable: errType == ErrorTypePipeline,
	}
}

// WrapPipeline wraps a transform failure raised by the named task.
func WrapPipeline(err error, task string) *Error {
	e := Wrap(err, ErrorTypePipeline, "PIPELINE_FAILED", "pipeline step failed")
	if e != nil {
		e.Task = task
	}
	return e
}

// ExternalProcessError describes a non-zero result from an external
// command. The command is not retried and no rollback is attempted.
type ExternalProcessError struct {
	Args     []string
	ExitCode int
	Output   string
	Cause    error
}

// Error implements the error interface.
func (e *ExternalProcessError) Error() string {
	msg := fmt.Sprintf("%q exited with status %d", strings.Join(e.Args, " "), e.ExitCode)
	if e.Cause != nil && e.ExitCode < 0 {
		msg = fmt.Sprintf("%q could not run: %v", strings.Join(e.Args, " "), e.Cause)
	}
	if tail := lastLines(e.Output, 5); tail != "" {
		msg += "\n" + tail
	}
	return msg
}

// Unwrap returns the underlying exec error.
func (e *ExternalProcessError) Unwrap() error {
	return e.Cause
}

// NewExternalProcessError wraps a failed external invocation as a fatal error.
func NewExternalProcessError(args []string, exitCode int, output []byte, cause error) *Error {
	return &Error{
		Type:    ErrorTypeExternalProcess,
		Code:    "EXTERNAL_PROCESS_FAILED",
		Message: "environment command failed",
		Cause: &ExternalProcessError{
			Args:     append([]string(nil), args...),
			ExitCode: exitCode,
			Output:   string(output),
			Cause:    cause,
		},
		Recoverable: false,
	}
}

func lastLines(s string, n int) string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
