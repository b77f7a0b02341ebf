// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package ilo

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Execute runs a logical command against the target
//
// Parameters are validated before any network activity; an invalid
// parameter fails with InvalidParameter and no connection is made. Reads of
// non-volatile resources are served from the session cache when possible.
// The dialect is resolved first (probing once if needed). On a cache miss
// the envelope is sent over a fresh TLS connection and the response is
// decoded.
//
// A successful mutation invalidates the cache entries for the resources it
// changes. Failed commands never touch the cache.
//
// Example:
//
//	res, err := client.Execute(ctx, "power_status", nil)
//	if err != nil {
//	    var ie *ilo.IloError
//	    if errors.As(err, &ie) && ie.Kind == ilo.AuthError {
//	        log.Fatal("bad credentials")
//	    }
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Value()) // "on" or "off"
//
//	res, err = client.Execute(ctx, "uid_control", []ilo.Param{{Key: "state", Value: "on"}})
//
// Returns Result with OK=true and the decoded node, or OK=false with Errors
// and a non-nil *IloError.
func (c *Client) Execute(ctx context.Context, name string, params []Param, mods ...func(*Req)) (Result, error) {
	cmd, ok := LookupCommand(name)
	if !ok {
		ie := invalidParam(name, "unknown command %q", name)
		return failedResult(name, DialectUnknown, ie), ie
	}

	values, ie := cmd.normalize(params)
	if ie != nil {
		return failedResult(cmd.Name, DialectUnknown, ie), ie
	}
	if ie := checkCredentials(cmd.Name, c.username, c.password); ie != nil {
		return failedResult(cmd.Name, DialectUnknown, ie), ie
	}

	req := &Req{}
	for _, mod := range mods {
		mod(req)
	}
	if req.Timeout < 0 {
		ie := invalidParam(cmd.Name, "timeout must be positive, got: %v", req.Timeout)
		return failedResult(cmd.Name, DialectUnknown, ie), ie
	}
	timeout := c.ReadTimeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	if err := checkContextCancellation(ctx); err != nil {
		ie := newError(cmd.Name, ConnectionError, "context done before sending: "+err.Error(), err)
		return failedResult(cmd.Name, DialectUnknown, ie), ie
	}

	key := cmd.resourceKey(values)

	dialect, err := c.Dialect(ctx)
	if err == nil {
		fetch := func() (*Node, error) {
			node, ie := c.roundTrip(ctx, cmd.Name, dialect, values, timeout)
			if ie != nil {
				return nil, ie
			}
			return node, nil
		}
		var node *Node
		var cached bool
		if req.Refresh {
			node, err = c.cache.Refresh(c.address, key, fetch)
		} else {
			node, cached, err = c.cache.Get(c.address, key, fetch)
		}
		if err == nil {
			return c.complete(ctx, cmd, dialect, key, values, node, cached), nil
		}
	}

	failed := asIloError(cmd.Name, err)
	c.logger.Error(ctx, "iLO command failed",
		"address", c.address,
		"command", cmd.Name,
		"kind", failed.Kind.String(),
		"error", failed.Error())
	return failedResult(cmd.Name, dialect, failed), failed
}

// complete applies cache invalidation for a successful command and builds its result
func (c *Client) complete(ctx context.Context, cmd *Command, dialect Dialect, key string, values []wireParam, node *Node, cached bool) Result {
	if cached {
		c.logger.Debug(ctx, "iLO cache hit",
			"address", c.address,
			"command", cmd.Name,
			"resource", key)
	}

	if cmd.Write {
		for _, k := range cmd.invalidationKeys(values) {
			c.cache.Invalidate(c.address, k)
		}
	}

	return Result{
		Command:   cmd.Name,
		Dialect:   dialect,
		Node:      node,
		Cached:    cached,
		Timestamp: time.Now().UnixNano(),
		OK:        true,
		values:    cmd.valueAttrs(dialect),
		fold:      cmd.FoldValue,
	}
}

// Invalidate drops one cached resource of the current address, e.g.
// "network" or "users:admin"
func (c *Client) Invalidate(resource string) {
	c.cache.Invalidate(c.address, resource)
}

// InvalidateAll drops every cached resource of the current address
func (c *Client) InvalidateAll() {
	c.cache.InvalidateAll(c.address)
}

// roundTrip renders, sends and decodes one command in the given dialect
func (c *Client) roundTrip(ctx context.Context, name string, dialect Dialect, values []wireParam, timeout time.Duration) (*Node, *IloError) {
	cmd := commands[name]
	doc := renderEnvelope(cmd, c.username, c.password, dialect, values)

	if c.verbosity >= VerbositySummary {
		c.logger.Debug(ctx, "iLO request",
			"address", c.address,
			"port", c.Port,
			"command", name,
			"dialect", dialect.String(),
			"bytes", len(doc))
	}
	if c.verbosity >= VerbosityBodies {
		c.logger.Debug(ctx, "iLO request body",
			"command", name,
			"xml", prepareXMLForLogging(doc))
	}

	start := time.Now()
	raw, err := c.transport.Send(ctx, []byte(doc), c.address, c.Port, timeout)
	if err != nil {
		return nil, asIloError(name, err)
	}

	if c.verbosity >= VerbositySummary {
		c.logger.Debug(ctx, "iLO response",
			"address", c.address,
			"command", name,
			"bytes", len(raw),
			"duration_ms", time.Since(start).Milliseconds())
	}
	if c.verbosity >= VerbosityBodies {
		c.logger.Debug(ctx, "iLO response body",
			"command", name,
			"xml", prepareXMLForLogging(string(raw)))
	}

	node, err := Decode(raw)
	if err != nil {
		return nil, authError(asIloError(name, err))
	}
	return node, nil
}

// asIloError returns err as an *IloError tagged with op
//
// Errors from custom transports that are not *IloError are reported as
// ConnectionError.
func asIloError(op string, err error) *IloError {
	var ie *IloError
	if !errors.As(err, &ie) {
		return newError(op, ConnectionError, err.Error(), err)
	}
	if ie.Operation != "" {
		return ie
	}
	tagged := *ie
	tagged.Operation = op
	return &tagged
}

// checkContextCancellation returns the context error if ctx is already done
func checkContextCancellation(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// String describes the command for diagnostics
func (c *Command) String() string {
	mode := "read"
	if c.Write {
		mode = "write"
	}
	return fmt.Sprintf("%s (%s %s)", c.Name, c.Section, mode)
}
