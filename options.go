// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package ilo

import (
	"crypto/tls"
	"time"
)

// Client configuration options using the functional options pattern

// Username sets the login name
func Username(username string) func(*Client) {
	return func(c *Client) {
		c.username = username
	}
}

// Password sets the login password
//
// RIBCL carries the password in clear text inside the TLS tunnel.
func Password(password string) func(*Client) {
	return func(c *Client) {
		c.password = password
	}
}

// Port sets the TLS port (default: 443)
func Port(port int) func(*Client) {
	return func(c *Client) {
		c.Port = port
	}
}

// WithDialect fixes the protocol dialect and disables probing
//
// DialectUnknown (the default) enables auto-detection on the first command.
func WithDialect(d Dialect) func(*Client) {
	return func(c *Client) {
		c.dialect = d
		c.detected = false
	}
}

// VerifyCertificate enables TLS certificate verification (default: false)
//
// Management processors ship with self-signed certificates, so verification
// is off unless a CA is configured with TLSCA or this option is set.
func VerifyCertificate(verify bool) func(*Client) {
	return func(c *Client) {
		c.VerifyCertificate = verify
	}
}

// TLSCA sets a CA certificate file used to verify the server and enables
// verification
func TLSCA(caPath string) func(*Client) {
	return func(c *Client) {
		c.tlsCA = caPath
		c.VerifyCertificate = true
	}
}

// WithTLSConfig replaces the generated TLS configuration of the default transport
func WithTLSConfig(cfg *tls.Config) func(*Client) {
	return func(c *Client) {
		c.tlsConfig = cfg
	}
}

// ConnectTimeout sets the TCP connect and TLS handshake timeout (default: 30s)
func ConnectTimeout(duration time.Duration) func(*Client) {
	return func(c *Client) {
		c.ConnectTimeout = duration
	}
}

// ReadTimeout sets the per-command exchange timeout (default: 60s)
//
// Some reads such as embedded health take tens of seconds on older firmware.
func ReadTimeout(duration time.Duration) func(*Client) {
	return func(c *Client) {
		c.ReadTimeout = duration
	}
}

// WithTransport replaces the TLS transport, e.g. with a recording stub in tests
func WithTransport(t Transport) func(*Client) {
	return func(c *Client) {
		if t != nil {
			c.transport = t
		}
	}
}

// WithLogger configures a custom logger for the client
//
// By default, the client uses NoOpLogger which discards all log messages.
func WithLogger(logger Logger) func(*Client) {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Verbosity sets how much of each exchange is logged at Debug level
//
//   - 0: nothing (default)
//   - 1: command, dialect, sizes and outcome
//   - 2: additionally the request and response XML with passwords redacted
//
// Verbosity never changes protocol behavior.
func Verbosity(level int) func(*Client) {
	return func(c *Client) {
		c.verbosity = level
	}
}

// Request modifiers for individual commands

// Timeout returns a request modifier that overrides the client's ReadTimeout
// for one command
func Timeout(duration time.Duration) func(*Req) {
	return func(req *Req) {
		req.Timeout = duration
	}
}

// Refresh returns a request modifier that skips the cache lookup for one
// read. The fresh result replaces the cached entry; a failed read leaves it
// in place.
func Refresh() func(*Req) {
	return func(req *Req) {
		req.Refresh = true
	}
}
