package coreif

import (
	"errors"
	"fmt"
)

// Status is the result code of a foreign call.
type Status int

const (
	StatusOK Status = iota
	StatusNotImplemented
	StatusRejected
	StatusInvalidParameters
	StatusFailed
	StatusUnknown
)

// String returns the human readable description of the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "no error"
	case StatusNotImplemented:
		return "not implemented"
	case StatusRejected:
		return "rejected by the client"
	case StatusInvalidParameters:
		return "invalid parameters for this method"
	case StatusFailed:
		return "the command failed"
	default:
		return "unknown error"
	}
}

// CallError is the result of a foreign call that did not succeed.
type CallError struct {
	Call   string
	Status Status
	Detail string
}

// Error implements error.
func (e *CallError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Call, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Call, e.Status)
}

// Fail builds a *CallError for call with the given status.
func Fail(call string, status Status) *CallError {
	return &CallError{Call: call, Status: status}
}

// Failf builds a *CallError with a formatted detail message.
func Failf(call string, status Status, format string, args ...any) *CallError {
	return &CallError{Call: call, Status: status, Detail: fmt.Sprintf(format, args...)}
}

// StatusOf returns the status carried by err. nil maps to StatusOK and errors
// without a *CallError in their chain to StatusUnknown.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Status
	}
	return StatusUnknown
}
