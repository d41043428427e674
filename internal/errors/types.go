package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeMissingPrerequisite ErrorType = "missing_prerequisite"
	ErrorTypeExternalProcess     ErrorType = "external_process"
	ErrorTypePipeline            ErrorType = "pipeline"
	ErrorTypeProvisioning        ErrorType = "provisioning"
	ErrorTypeConfig              ErrorType = "config"
	ErrorTypeIO                  ErrorType = "io"
	ErrorTypeInternal            ErrorType = "internal"
)

// Error is a structured error type with context.
//
// Only pipeline errors are recoverable: they are reported at the task
// boundary and never unwind past the scheduler. Every other type is fatal
// and propagates to process exit.
type Error struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Task        string
	Path        string
	Hint        string
	Recoverable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Task != "" {
		parts = append(parts, "task:"+e.Task)
	}

	if e.Path != "" {
		parts = append(parts, e.Path)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithTask records the task the error was raised in.
func (e *Error) WithTask(name string) *Error {
	e.Task = name

	return e
}

// WithPath records the file the error concerns.
func (e *Error) WithPath(path string) *Error {
	e.Path = path

	return e
}

// WithHint attaches a user-facing remedy, e.g. the command to run first.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint

	return e
}

// NewMissingPrerequisiteError creates an error for an operation whose
// required provisioning or build step has not run yet.
func NewMissingPrerequisiteError(code, message, hint string) *Error {
	return &Error{
		Type:        ErrorTypeMissingPrerequisite,
		Code:        code,
		Message:     message,
		Hint:        hint,
		Recoverable: false,
	}
}

// NewPipelineError creates a recoverable file-transform error.
func NewPipelineError(code, message string, cause error) *Error {
	return &Error{
		Type:        ErrorTypePipeline,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewProvisioningError creates a provisioning error.
func NewProvisioningError(code, message string, cause error) *Error {
	return &Error{
		Type:        ErrorTypeProvisioning,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *Error {
	return &Error{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *Error {
	return &Error{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *Error {
	return &Error{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Recoverable
	}

	return false
}

// IsType reports whether err is, or wraps, an *Error of the given type.
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == errType
	}

	return false
}

// HintFor returns the first hint found along the error chain.
func HintFor(err error) string {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return ""
		}
		if e.Hint != "" {
			return e.Hint
		}
		err = e.Cause
	}

	return ""
}
