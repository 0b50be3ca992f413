package core

import (
	"fmt"
	"strings"
)

// UnknownEndpointError is returned when an endpoint identifier is not in the catalog.
type UnknownEndpointError struct {
	Endpoint string
}

func (e *UnknownEndpointError) Error() string {
	if e == nil {
		return "unknown endpoint"
	}
	return fmt.Sprintf("unknown endpoint: %s", e.Endpoint)
}

// MissingFieldError is returned when a required field resolved to nothing.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	if e == nil {
		return "missing required field"
	}
	return "missing required field " + e.Field
}

// NetworkError wraps a transport-level failure (dial, TLS, timeout, reset).
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	if e == nil || e.Err == nil {
		return "network error"
	}
	if strings.TrimSpace(e.Op) == "" {
		return "network error: " + e.Err.Error()
	}
	return fmt.Sprintf("network error: op=%s: %s", e.Op, e.Err.Error())
}

func (e *NetworkError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// RemoteError wraps a non-success status or an unparseable response from the remote service.
type RemoteError struct {
	Err error
}

func (e *RemoteError) Error() string {
	if e == nil || e.Err == nil {
		return "remote error"
	}
	return e.Err.Error()
}

func (e *RemoteError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// FieldError wraps a failure returned by a FieldResolver.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	if e == nil || e.Err == nil {
		return "resolve field"
	}
	return fmt.Sprintf("resolve field %s: %s", e.Field, e.Err.Error())
}

func (e *FieldError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
