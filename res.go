// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package ilo

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Result represents the outcome of one Execute call
type Result struct {
	// Command is the canonical logical command name
	Command string

	// Dialect is the dialect the response was obtained in (unknown for
	// failures before resolution)
	Dialect Dialect

	// Node is the decoded document node (nil on failure)
	Node *Node

	// Cached is true when Node was served from the session cache
	Cached bool

	// Timestamp is the completion time (nanoseconds since Unix epoch)
	Timestamp int64

	// OK indicates if the command succeeded
	OK bool

	// Errors contains any error information
	Errors []ErrorModel

	// values are the projection attributes, tried in order
	values []string
	fold   bool
}

// Value returns the command's primary value, e.g. "on" for a power status
// read
//
// The value is the first occurrence of the command's projection attribute
// in document order. The resolved dialect's attribute is tried first, then
// the other dialect's. Power and UID states are lower-cased. Returns an
// empty string for commands without a primary value or on failure.
func (r Result) Value() string {
	if !r.OK {
		return ""
	}
	for _, attr := range r.values {
		v, ok := r.Node.FindAttr(attr)
		if !ok {
			continue
		}
		if r.fold {
			v = strings.ToLower(v)
		}
		return v
	}
	return ""
}

// GetValue retrieves a value from the response using a gjson path
//
// The path is evaluated against the JSON view produced by Node.JSON.
//
// Example:
//
//	res, err := client.Execute(ctx, "get_network_settings", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ip := res.GetValue("GET_NETWORK_SETTINGS.IP_ADDRESS.VALUE").String()
//	fans := res.GetValue("GET_EMBEDDED_HEALTH_DATA.FANS.FAN.#").Int()
func (r Result) GetValue(path string) gjson.Result {
	jsonStr := r.JSON()
	if jsonStr == "" {
		return gjson.Result{}
	}
	return gjson.Get(jsonStr, path)
}

// JSON returns the decoded response as JSON. Returns an empty string on
// failure.
func (r Result) JSON() string {
	if r.Node == nil {
		return ""
	}
	s, err := r.Node.JSON()
	if err != nil {
		return ""
	}
	return s
}

// failedResult builds the OK=false result for err
func failedResult(command string, dialect Dialect, err *IloError) Result {
	return Result{
		Command: command,
		Dialect: dialect,
		OK:      false,
		Errors:  []ErrorModel{err.Model()},
	}
}
