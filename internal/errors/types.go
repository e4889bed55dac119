// Package errors provides the typed errors used across assetsmith tasks.
//
// Two kinds of failure exist. A TaskError aborts the task that produced it and is
// reported to the invoking process. A CompileError describes a stylesheet that
// failed to compile; those are logged and collected, and the task carries on
// with the remaining files.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeConfig   ErrorType = "config"
	ErrorTypeIO       ErrorType = "io"
	ErrorTypeNetwork  ErrorType = "network"
	ErrorTypeBuild    ErrorType = "build"
	ErrorTypeTask     ErrorType = "task"
	ErrorTypeInternal ErrorType = "internal"
)

// Error codes shared by the task implementations.
const (
	CodeUnknownTask    = "ERR_UNKNOWN_TASK"
	CodeDuplicateTask  = "ERR_DUPLICATE_TASK"
	CodeTaskCycle      = "ERR_TASK_CYCLE"
	CodeTaskFailed     = "ERR_TASK_FAILED"
	CodeInvalidConfig  = "ERR_INVALID_CONFIG"
	CodeReadFailed     = "ERR_READ_FAILED"
	CodeWriteFailed    = "ERR_WRITE_FAILED"
	CodeTransformFail  = "ERR_TRANSFORM_FAILED"
	CodeRequestFailed  = "ERR_REQUEST_FAILED"
	CodeInvalidSVG     = "ERR_INVALID_SVG"
	CodeMissingSources = "ERR_MISSING_SOURCES"
)

// TaskError is a structured error with the task and file it belongs to.
type TaskError struct {
	Type     ErrorType
	Code     string
	Task     string
	FilePath string
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	if e.Task != "" {
		parts = append(parts, fmt.Sprintf("'%s'", e.Task))
	}
	if e.FilePath != "" {
		parts = append(parts, e.FilePath)
	}
	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *TaskError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a TaskError of the same type and code.
func (e *TaskError) Is(target error) bool {
	var t *TaskError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithTask sets the task name.
func (e *TaskError) WithTask(task string) *TaskError {
	e.Task = task

	return e
}

// WithFile sets the file the error refers to.
func (e *TaskError) WithFile(path string) *TaskError {
	e.FilePath = path

	return e
}

// WithCause sets the underlying error.
func (e *TaskError) WithCause(err error) *TaskError {
	e.Cause = err

	return e
}

// NewConfigError creates a configuration error.
func NewConfigError(message string) *TaskError {
	return &TaskError{Type: ErrorTypeConfig, Code: CodeInvalidConfig, Message: message}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *TaskError {
	return &TaskError{Type: ErrorTypeIO, Code: code, Message: message, Cause: cause}
}

// NewBuildError creates an error for a failed transformation step.
func NewBuildError(code, message string, cause error) *TaskError {
	return &TaskError{Type: ErrorTypeBuild, Code: code, Message: message, Cause: cause}
}

// NewNetworkError creates an error for a failed remote call.
func NewNetworkError(message string, cause error) *TaskError {
	return &TaskError{Type: ErrorTypeNetwork, Code: CodeRequestFailed, Message: message, Cause: cause}
}

// NewTaskError creates an orchestration error.
func NewTaskError(code, task, message string, cause error) *TaskError {
	return &TaskError{Type: ErrorTypeTask, Code: code, Task: task, Message: message, Cause: cause}
}

// ErrUnknownTask reports a task name nobody registered.
func ErrUnknownTask(name string) *TaskError {
	return NewTaskError(CodeUnknownTask, name, "task is not defined", nil)
}

// ErrTaskCycle reports a prerequisite cycle, path lists the names in the cycle.
func ErrTaskCycle(path []string) *TaskError {
	return NewTaskError(CodeTaskCycle, path[0], "dependency cycle: "+strings.Join(path, " -> "), nil)
}

// IsType reports whether err is a TaskError of type t.
func IsType(err error, t ErrorType) bool {
	var te *TaskError
	if errors.As(err, &te) {
		return te.Type == t
	}

	return false
}

// HasCode reports whether err is a TaskError carrying code.
func HasCode(err error, code string) bool {
	var te *TaskError
	if errors.As(err, &te) {
		return te.Code == code
	}

	return false
}

// Re-exports so callers importing this package do not also need the stdlib one.
var (
	Is   = errors.Is
	As   = errors.As
	New  = errors.New
	Join = errors.Join
)
