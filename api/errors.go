// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-fs.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrWouldBlock       = fmt.Errorf("operation would block")
	ErrConnectionClosed = fmt.Errorf("connection closed by peer")
	ErrWriteZero        = fmt.Errorf("zero-length write")
	ErrServerClosed     = fmt.Errorf("server closed")
	ErrInvalidArgument  = fmt.Errorf("invalid argument")
	ErrNotSupported     = fmt.Errorf("operation not supported")
	ErrAlreadyRunning   = fmt.Errorf("server already running")
)

// ErrorCode classifies protocol errors reported back to the client.
type ErrorCode int

const (
	ErrCodeMissingArgument ErrorCode = iota + 1
	ErrCodeNotFound
	ErrCodeUnknownCommand
)

// Error is a recoverable protocol error. Message is sent verbatim on the ERR line.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// AsProtocolError reports whether err carries a protocol *Error.
func AsProtocolError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
