// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ErrorCategory classifies command errors.
type ErrorCategory string

const (
	// CategoryValidation indicates the caller provided invalid input:
	// unknown flags, bad flag values, too many arguments.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound indicates a named input does not exist.
	CategoryNotFound ErrorCategory = "not_found"

	// CategorySetup indicates the environment cannot host the
	// explorer: no terminal to draw on or read keys from.
	CategorySetup ErrorCategory = "setup"
)

// ToolError is a categorized error returned by the command. It wraps
// an inner error, preserving the chain for errors.Is and errors.As.
// Use the category constructors rather than building one directly.
type ToolError struct {
	// Category classifies the error.
	Category ErrorCategory

	// Err is the underlying error with the human-readable message.
	Err error

	// Hint is optional remediation advice, printed after the message
	// separated by a blank line.
	Hint string
}

// Error returns the message, followed by the hint when one is set.
func (e *ToolError) Error() string {
	if e.Hint == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + "\n\n" + e.Hint
}

// Unwrap returns the underlying error.
func (e *ToolError) Unwrap() error { return e.Err }

// WithHint sets the remediation hint and returns the receiver so it
// can be chained onto a constructor.
func (e *ToolError) WithHint(hint string) *ToolError {
	e.Hint = hint
	return e
}

// ExitCode maps the category to the process exit status. Every
// category currently exits 1; the method exists so main can treat
// ToolError and ExitError uniformly.
func (e *ToolError) ExitCode() int {
	return 1
}

// Validation creates a validation error: the caller provided bad input.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error: a named input does not exist.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Setup creates a setup error: terminal display or input control
// could not be acquired.
func Setup(format string, args ...any) *ToolError {
	return &ToolError{Category: CategorySetup, Err: fmt.Errorf(format, args...)}
}
