// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Neuract.
// Copyright 2024-present Neuract, Inc.

// Package errs defines the agent-wide error taxonomy. Every error that crosses
// a component boundary carries one of the codes below so callers can decide
// between local recovery (transport, storage) and surfacing to the operator
// (config, conflict).
package errs

import (
	"errors"
	"fmt"
)

// Code identifies an error class.
type Code string

const (
	// TransportError covers Modbus/OPC UA socket, timeout or protocol errors.
	TransportError Code = "TRANSPORT_ERROR"
	// DecodeError means a register/node value could not be coerced to the
	// declared data type.
	DecodeError Code = "DECODE_ERROR"
	// StorageError covers DDL and insert failures on a storage target.
	StorageError Code = "STORAGE_ERROR"
	// ConfigError means a mapping, device config or address is incoherent.
	ConfigError Code = "CONFIG_ERROR"
	// NotFound means a catalog identifier is unknown.
	NotFound Code = "NOT_FOUND"
	// Conflict means the requested lifecycle transition is not allowed, for
	// example starting an already-running job.
	Conflict Code = "CONFLICT"
)

// Error is a coded agent error.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New returns a coded error with a formatted message.
func New(code Code, format string, params ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, params...)}
}

// Wrap returns a coded error wrapping cause.
func Wrap(code Code, cause error, format string, params ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, params...), Cause: cause}
}

// CodeOf extracts the code from an error chain, or "" if the chain carries no
// coded error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether the error chain carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
