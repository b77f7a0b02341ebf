// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package ilo

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorKind classifies a failed command
type ErrorKind int

const (
	// InvalidParameter is a client-side validation failure; no network activity took place
	InvalidParameter ErrorKind = iota + 1

	// ConnectionError means the TCP connect or TLS handshake failed
	ConnectionError

	// TransmitError means the request could not be written completely
	TransmitError

	// NoResponseError means zero bytes were read before the peer closed or the deadline passed
	NoResponseError

	// ParseError means the response was not well-formed XML
	ParseError

	// RemoteError means the response was well-formed but reported a non-success STATUS
	RemoteError

	// UnsupportedDeviceError means neither dialect probe succeeded
	UnsupportedDeviceError

	// AuthError means the server rejected the login credentials
	AuthError
)

// String returns the name of the error kind
func (k ErrorKind) String() string {
	switch k {
	case InvalidParameter:
		return "InvalidParameter"
	case ConnectionError:
		return "ConnectionError"
	case TransmitError:
		return "TransmitError"
	case NoResponseError:
		return "NoResponseError"
	case ParseError:
		return "ParseError"
	case RemoteError:
		return "RemoteError"
	case UnsupportedDeviceError:
		return "UnsupportedDeviceError"
	case AuthError:
		return "AuthError"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Code returns the canonical gRPC status code for the error kind
//
// This allows services that front an iLO with a gRPC API to pass failures
// through without their own mapping table.
func (k ErrorKind) Code() codes.Code {
	switch k {
	case InvalidParameter:
		return codes.InvalidArgument
	case ConnectionError, TransmitError, NoResponseError:
		return codes.Unavailable
	case ParseError:
		return codes.DataLoss
	case RemoteError:
		return codes.FailedPrecondition
	case UnsupportedDeviceError:
		return codes.Unimplemented
	case AuthError:
		return codes.Unauthenticated
	default:
		return codes.Unknown
	}
}

// Transport reports whether the kind is raised by the transport layer
func (k ErrorKind) Transport() bool {
	return k == ConnectionError || k == TransmitError || k == NoResponseError
}

// Sentinel errors for use with errors.Is
//
// Example:
//
//	_, err := client.Execute(ctx, "get_network_settings", nil)
//	if errors.Is(err, ilo.ErrAuth) {
//	    // credentials rejected
//	}
var (
	ErrInvalidParameter  = &IloError{Kind: InvalidParameter}
	ErrConnection        = &IloError{Kind: ConnectionError}
	ErrTransmit          = &IloError{Kind: TransmitError}
	ErrNoResponse        = &IloError{Kind: NoResponseError}
	ErrParse             = &IloError{Kind: ParseError}
	ErrRemote            = &IloError{Kind: RemoteError}
	ErrUnsupportedDevice = &IloError{Kind: UnsupportedDeviceError}
	ErrAuth              = &IloError{Kind: AuthError}
)

// IloError represents a structured iLO error with operation context
type IloError struct {
	// Operation is the logical command name that failed
	Operation string

	// Kind classifies the failure
	Kind ErrorKind

	// Human-readable error message (MESSAGE attribute for remote errors)
	Message string

	// InternalMsg contains detailed error information for internal logging
	InternalMsg string

	// Status is the raw STATUS attribute value for remote errors
	Status string

	// Err is the underlying cause, if any
	Err error
}

// Error implements the error interface
func (e *IloError) Error() string {
	op := e.Operation
	if op == "" {
		op = "command"
	}
	if e.Status != "" {
		return fmt.Sprintf("ilo: %s failed: %s: %s (status %s)", op, e.Kind, e.Message, e.Status)
	}
	return fmt.Sprintf("ilo: %s failed: %s: %s", op, e.Kind, e.Message)
}

// DetailedError returns the full error message including internal details
//
// This should only be used in secure logging contexts where sensitive information
// disclosure is acceptable (e.g., server-side logs, debug output).
func (e *IloError) DetailedError() string {
	if e.InternalMsg == "" {
		return e.Error()
	}
	return fmt.Sprintf("%s (internal: %s)", e.Error(), e.InternalMsg)
}

// Unwrap returns the underlying cause
func (e *IloError) Unwrap() error {
	return e.Err
}

// Is matches another *IloError of the same kind, so the Err* sentinels
// work with errors.Is
func (e *IloError) Is(target error) bool {
	t, ok := target.(*IloError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// GRPCStatus returns the error as a gRPC status
//
// status.FromError and status.Code recognise this method.
func (e *IloError) GRPCStatus() *status.Status {
	return status.New(e.Kind.Code(), e.Error())
}

// Model converts the error into an ErrorModel for Result.Errors
func (e *IloError) Model() ErrorModel {
	return ErrorModel{
		Code:    uint32(e.Kind.Code()),
		Kind:    e.Kind,
		Message: e.Message,
		Status:  e.Status,
		Details: e.InternalMsg,
	}
}

// ErrorModel represents a failure entry on a Result
type ErrorModel struct {
	// Code is the canonical gRPC status code for Kind
	Code uint32

	// Kind classifies the failure
	Kind ErrorKind

	// Message is the error message
	Message string

	// Status is the raw STATUS attribute for remote errors
	Status string

	// Details contains additional error information
	Details string
}

// KindOf returns the ErrorKind of err, or 0 if err is not an *IloError
func KindOf(err error) ErrorKind {
	var ie *IloError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return 0
}

func newError(op string, kind ErrorKind, msg string, cause error) *IloError {
	e := &IloError{
		Operation: op,
		Kind:      kind,
		Message:   msg,
		Err:       cause,
	}
	if cause != nil {
		e.InternalMsg = cause.Error()
	}
	return e
}

// invalidParam builds an InvalidParameter error
func invalidParam(op, format string, args ...any) *IloError {
	return &IloError{
		Operation: op,
		Kind:      InvalidParameter,
		Message:   fmt.Sprintf(format, args...),
	}
}
