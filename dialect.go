// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package ilo

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Dialect is the XML tag/attribute convention spoken by a firmware generation
type Dialect int

const (
	// DialectUnknown means the dialect has not been resolved yet
	DialectUnknown Dialect = iota

	// DialectLegacy is the older RIBCL 2.0 generation
	DialectLegacy

	// DialectCurrent is the current RIBCL generation
	DialectCurrent
)

// String returns the configuration name of the dialect
func (d Dialect) String() string {
	switch d {
	case DialectUnknown:
		return "unknown"
	case DialectLegacy:
		return "legacy"
	case DialectCurrent:
		return "current"
	default:
		return fmt.Sprintf("Dialect(%d)", int(d))
	}
}

// Version returns the RIBCL VERSION attribute used in envelopes for the dialect
func (d Dialect) Version() string {
	if d == DialectCurrent {
		return "2.23"
	}
	return "2.0"
}

// other returns the dialect tried second for d
func (d Dialect) other() Dialect {
	if d == DialectCurrent {
		return DialectLegacy
	}
	return DialectCurrent
}

// ParseDialect parses unknown, legacy or current (case-insensitive).
// An empty string is unknown.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unknown", "auto":
		return DialectUnknown, nil
	case "legacy":
		return DialectLegacy, nil
	case "current":
		return DialectCurrent, nil
	default:
		return DialectUnknown, fmt.Errorf("invalid dialect: %s (valid values: unknown, legacy, current)", s)
	}
}

// MarshalText implements encoding.TextMarshaler
func (d Dialect) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Dialect) UnmarshalText(text []byte) error {
	parsed, err := ParseDialect(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// probeCommand is the low-risk read used to detect the dialect
const probeCommand = "get_fw_version"

// Status codes the firmware uses for rejected logins
var authFailureStatus = []uint64{0x005F, 0x000A}

// Message fragments identifying rejected credentials
var authFailureSignatures = []string{
	"login failed",
	"login credentials rejected",
	"user login name was not found",
	"invalid password",
}

// Message fragments identifying a command the firmware does not know
var unknownCommandSignatures = []string{
	"syntax error",
	"unknown command",
	"unrecognized command",
	"not supported",
}

// Dialect returns the dialect used for this client, probing the server once
// if it was not configured explicitly
//
// Resolution order:
//  1. An explicitly configured dialect is returned unchanged.
//  2. A previously detected dialect is returned without network activity.
//  3. The firmware version query is sent with the legacy envelope. If the
//     server answers with an unknown-command failure the query is repeated
//     once with the current envelope.
//
// Rejected credentials fail with AuthError without trying a second dialect.
// Transport failures are returned unchanged. Any other failure of both
// probes is reported as UnsupportedDeviceError.
func (c *Client) Dialect(ctx context.Context) (Dialect, error) {
	if c.dialect != DialectUnknown {
		return c.dialect, nil
	}

	if ie := checkCredentials(probeCommand, c.username, c.password); ie != nil {
		return DialectUnknown, ie
	}

	c.logger.Debug(ctx, "Probing iLO dialect", "address", c.address)

	var lastErr *IloError
	for _, d := range []Dialect{DialectLegacy, DialectCurrent} {
		node, err := c.roundTrip(ctx, probeCommand, d, nil, c.ReadTimeout)
		if err == nil {
			c.dialect = d
			c.detected = true
			c.cache.Store(c.address, commands[probeCommand].Resource, node)
			c.logger.Info(ctx, "iLO dialect detected",
				"address", c.address,
				"dialect", d.String())
			return d, nil
		}

		lastErr = err
		if err.Kind.Transport() {
			return DialectUnknown, err
		}
		if err.Kind == AuthError {
			return DialectUnknown, err
		}
		if !isUnknownCommand(err) {
			break
		}
		c.logger.Debug(ctx, "Probe not understood, trying next dialect",
			"address", c.address,
			"dialect", d.String(),
			"message", err.Message)
	}

	return DialectUnknown, &IloError{
		Operation:   probeCommand,
		Kind:        UnsupportedDeviceError,
		Message:     "device did not answer the firmware probe in any known dialect",
		Status:      lastErr.Status,
		InternalMsg: lastErr.Error(),
		Err:         lastErr,
	}
}

// authError reclassifies a remote error signalling rejected credentials
func authError(err *IloError) *IloError {
	if !isAuthFailure(err) {
		return err
	}
	return &IloError{
		Operation:   err.Operation,
		Kind:        AuthError,
		Message:     err.Message,
		Status:      err.Status,
		InternalMsg: err.InternalMsg,
		Err:         err,
	}
}

// isAuthFailure reports whether a remote error signals rejected credentials
func isAuthFailure(err *IloError) bool {
	if err.Kind != RemoteError {
		return false
	}
	if code, perr := strconv.ParseUint(err.Status, 0, 32); perr == nil {
		for _, s := range authFailureStatus {
			if code == s {
				return true
			}
		}
	}
	return containsAny(err.Message, authFailureSignatures)
}

// isUnknownCommand reports whether a remote error signals an unknown command
func isUnknownCommand(err *IloError) bool {
	return err.Kind == RemoteError && containsAny(err.Message, unknownCommandSignatures)
}

func containsAny(s string, fragments []string) bool {
	s = strings.ToLower(s)
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}
