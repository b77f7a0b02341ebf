// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package ilo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// TestIloError_Error tests error message formatting
func TestIloError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *IloError
		want string
	}{
		{
			name: "remote error with status",
			err:  &IloError{Operation: "set_host_power", Kind: RemoteError, Message: "Server is not powered on.", Status: "0x0002"},
			want: "ilo: set_host_power failed: RemoteError: Server is not powered on. (status 0x0002)",
		},
		{
			name: "transport error",
			err:  &IloError{Operation: "get_network_settings", Kind: ConnectionError, Message: "cannot connect"},
			want: "ilo: get_network_settings failed: ConnectionError: cannot connect",
		},
		{
			name: "no operation",
			err:  &IloError{Kind: ParseError, Message: "XML syntax error"},
			want: "ilo: command failed: ParseError: XML syntax error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestIloError_DetailedError tests internal detail exposure
func TestIloError_DetailedError(t *testing.T) {
	plain := &IloError{Kind: AuthError, Message: "Login failed."}
	if plain.DetailedError() != plain.Error() {
		t.Errorf("DetailedError() without internal message = %q", plain.DetailedError())
	}

	detailed := newError("get_user", ConnectionError, "cannot connect", errors.New("dial tcp 10.0.0.5:443: i/o timeout"))
	got := detailed.DetailedError()
	if !strings.Contains(got, "(internal: dial tcp 10.0.0.5:443: i/o timeout)") {
		t.Errorf("DetailedError() = %q", got)
	}
	if strings.Contains(detailed.Error(), "i/o timeout") {
		t.Error("Error() exposes internal message")
	}
}

// TestIloError_Is tests sentinel matching and unwrapping
func TestIloError_Is(t *testing.T) {
	cause := context.DeadlineExceeded
	err := fmt.Errorf("refresh: %w", newError("get_embedded_health", NoResponseError, "no response", cause))

	if !errors.Is(err, ErrNoResponse) {
		t.Error("expected match with ErrNoResponse")
	}
	if errors.Is(err, ErrConnection) {
		t.Error("unexpected match with ErrConnection")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected cause to be reachable")
	}
	var ie *IloError
	if !errors.As(err, &ie) || ie.Operation != "get_embedded_health" {
		t.Errorf("errors.As = %+v", ie)
	}
	if KindOf(err) != NoResponseError {
		t.Errorf("KindOf = %v", KindOf(err))
	}
	if KindOf(errors.New("other")) != 0 || KindOf(nil) != 0 {
		t.Error("KindOf of a foreign error must be 0")
	}
}

// TestErrorKind tests names, codes and transport classification
func TestErrorKind(t *testing.T) {
	tests := []struct {
		kind      ErrorKind
		name      string
		code      codes.Code
		transport bool
	}{
		{InvalidParameter, "InvalidParameter", codes.InvalidArgument, false},
		{ConnectionError, "ConnectionError", codes.Unavailable, true},
		{TransmitError, "TransmitError", codes.Unavailable, true},
		{NoResponseError, "NoResponseError", codes.Unavailable, true},
		{ParseError, "ParseError", codes.DataLoss, false},
		{RemoteError, "RemoteError", codes.FailedPrecondition, false},
		{UnsupportedDeviceError, "UnsupportedDeviceError", codes.Unimplemented, false},
		{AuthError, "AuthError", codes.Unauthenticated, false},
		{ErrorKind(99), "ErrorKind(99)", codes.Unknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.name {
				t.Errorf("String() = %q, want %q", got, tt.name)
			}
			if got := tt.kind.Code(); got != tt.code {
				t.Errorf("Code() = %v, want %v", got, tt.code)
			}
			if got := tt.kind.Transport(); got != tt.transport {
				t.Errorf("Transport() = %v, want %v", got, tt.transport)
			}
		})
	}
}

// TestIloError_GRPCStatus tests the gRPC status bridge
func TestIloError_GRPCStatus(t *testing.T) {
	var err error = &IloError{Operation: "get_all_users", Kind: AuthError, Message: "Login failed."}
	wrapped := fmt.Errorf("inventory: %w", err)

	st, ok := status.FromError(wrapped)
	if !ok {
		t.Fatal("status.FromError did not recognise the error")
	}
	if st.Code() != codes.Unauthenticated {
		t.Errorf("Code = %v, want Unauthenticated", st.Code())
	}
	if !strings.Contains(st.Message(), "Login failed.") {
		t.Errorf("Message = %q", st.Message())
	}
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("status.Code = %v", status.Code(err))
	}
}

// TestErrorModel tests the Result.Errors mirror
func TestErrorModel(t *testing.T) {
	err := &IloError{
		Operation:   "mod_network_settings",
		Kind:        RemoteError,
		Message:     "Invalid IP address.",
		Status:      "0x0004",
		InternalMsg: "element RESPONSE reported STATUS=0x0004",
	}
	model := err.Model()
	want := ErrorModel{
		Code:    uint32(codes.FailedPrecondition),
		Kind:    RemoteError,
		Message: "Invalid IP address.",
		Status:  "0x0004",
		Details: "element RESPONSE reported STATUS=0x0004",
	}
	if model != want {
		t.Errorf("Model() = %+v, want %+v", model, want)
	}
}
