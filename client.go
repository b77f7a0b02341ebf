// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package ilo

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Default client configuration values
const (
	DefaultPort              = 443
	DefaultConnectTimeout    = 30 * time.Second
	DefaultReadTimeout       = 60 * time.Second
	DefaultVerifyCertificate = false
)

// Verbosity levels controlling how much of each exchange is logged
const (
	// VerbositySilent logs nothing about individual exchanges
	VerbositySilent = 0

	// VerbositySummary logs one Debug line per request and response
	VerbositySummary = 1

	// VerbosityBodies also logs the redacted request and response XML
	VerbosityBodies = 2
)

// MaxXMLSizeForLogging caps XML bodies written to the log
const MaxXMLSizeForLogging = 1 * 1024 * 1024

// XMLTooLargeMessage replaces bodies over MaxXMLSizeForLogging
const XMLTooLargeMessage = "[XML TOO LARGE FOR LOGGING]"

// passwordAttrPattern matches attributes carrying secrets in requests and replies
var passwordAttrPattern = regexp.MustCompile(`(?i)\b([A-Z_]*PASSWORD[A-Z_]*)\s*=\s*("[^"]*"|'[^']*')`)

// Client is the connection target for one management processor
//
// Each command opens a fresh TLS connection; nothing is held open between
// calls. Decoded results of non-volatile reads are cached per address.
//
// A Client is not safe for concurrent use. Callers sharing one Client
// between goroutines must serialize access. Separate Clients are
// independent.
type Client struct {
	address  string
	username string // unexported for security
	password string // unexported for security

	// Port is the TLS port of the management processor
	Port int

	// dialect is the configured or detected dialect; detected marks the latter
	dialect  Dialect
	detected bool

	// TLS configuration
	VerifyCertificate bool
	tlsCA             string // unexported for security
	tlsConfig         *tls.Config

	// Timeout configuration
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	transport Transport
	cache     Cache

	// Logging configuration
	logger    Logger
	verbosity int
}

// NewClient creates a client for the management processor at address
//
// No connection is made. The dialect is probed on the first command unless
// configured with WithDialect.
//
// Example:
//
//	client, err := ilo.NewClient(
//	    "10.0.0.5",
//	    ilo.Username("Administrator"),
//	    ilo.Password("secret"),
//	    ilo.WithDialect(ilo.DialectCurrent),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := client.Execute(ctx, "power_status", nil)
//	fmt.Println(res.Value()) // "on"
//
// Returns an error if configuration validation fails.
func NewClient(address string, opts ...func(*Client)) (*Client, error) {
	client := &Client{
		address:           strings.TrimSpace(address),
		Port:              DefaultPort,
		VerifyCertificate: DefaultVerifyCertificate,
		ConnectTimeout:    DefaultConnectTimeout,
		ReadTimeout:       DefaultReadTimeout,
		logger:            &NoOpLogger{},
	}

	for _, opt := range opts {
		opt(client)
	}

	if err := client.validateConfig(); err != nil {
		return nil, err
	}

	if client.transport == nil {
		cfg, err := client.buildTLSConfig()
		if err != nil {
			return nil, err
		}
		client.transport = &TLSTransport{
			Config:         cfg,
			ConnectTimeout: client.ConnectTimeout,
		}
	}

	client.logger.Info(context.Background(), "iLO client created",
		"address", client.address,
		"port", client.Port,
		"dialect", client.dialect.String())

	return client, nil
}

// Address returns the target address
func (c *Client) Address() string {
	return c.address
}

// Username returns the login name
func (c *Client) Username() string {
	return c.username
}

// HasCredentials returns true if a username or password is configured
func (c *Client) HasCredentials() bool {
	return c.username != "" || c.password != ""
}

// Detected reports whether the current dialect was found by probing
func (c *Client) Detected() bool {
	return c.detected
}

// SetAddress points the client at a different management processor
//
// All cached results for the old address are dropped, and an auto-detected
// dialect is reset so the new address is probed again.
func (c *Client) SetAddress(address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return fmt.Errorf("target address cannot be empty")
	}
	if address == c.address {
		return nil
	}
	c.retarget()
	c.address = address
	return nil
}

// SetUsername changes the login name
//
// Like SetAddress, this drops cached results and an auto-detected dialect.
func (c *Client) SetUsername(username string) {
	if username == c.username {
		return
	}
	c.retarget()
	c.username = username
}

// SetPassword changes the password. The cache and dialect are kept.
func (c *Client) SetPassword(password string) {
	c.password = password
}

// retarget invalidates state tied to the current address and user
func (c *Client) retarget() {
	c.cache.InvalidateAll(c.address)
	if c.detected {
		c.dialect = DialectUnknown
		c.detected = false
	}
}

// validateConfig validates client configuration
func (c *Client) validateConfig() error {
	if c.address == "" {
		return fmt.Errorf("target address cannot be empty")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Port)
	}

	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive, got: %v", c.ConnectTimeout)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive, got: %v", c.ReadTimeout)
	}

	if c.dialect < DialectUnknown || c.dialect > DialectCurrent {
		return fmt.Errorf("invalid dialect: %d", int(c.dialect))
	}

	if c.verbosity < VerbositySilent || c.verbosity > VerbosityBodies {
		return fmt.Errorf("invalid verbosity: %d (must be 0-2)", c.verbosity)
	}

	if c.tlsCA != "" {
		if _, err := os.Stat(c.tlsCA); err != nil {
			c.logger.Debug(context.Background(), "TLS CA validation failed",
				"path", c.tlsCA,
				"error", err.Error())
			return fmt.Errorf("TLS CA file not found: %s", filepath.Base(c.tlsCA))
		}
	}

	if !c.VerifyCertificate {
		c.logger.Warn(context.Background(), "TLS certificate verification disabled",
			"address", c.address,
			"reason", "management processors ship self-signed certificates")
	}

	if !c.HasCredentials() {
		c.logger.Warn(context.Background(), "No credentials configured",
			"address", c.address,
			"message", "every command will be rejected")
	}

	return nil
}

// buildTLSConfig assembles the TLS configuration for the default transport
func (c *Client) buildTLSConfig() (*tls.Config, error) {
	if c.tlsConfig != nil {
		return c.tlsConfig, nil
	}

	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: !c.VerifyCertificate, //nolint:gosec // iLO certificates are self-signed by default
	}

	if c.tlsCA != "" {
		pem, err := os.ReadFile(c.tlsCA)
		if err != nil {
			return nil, fmt.Errorf("cannot read TLS CA file %s: %w", filepath.Base(c.tlsCA), err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("TLS CA file %s contains no certificates", filepath.Base(c.tlsCA))
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}

// prepareXMLForLogging redacts passwords and caps the size of an XML body
func prepareXMLForLogging(doc string) string {
	if len(doc) > MaxXMLSizeForLogging {
		return XMLTooLargeMessage
	}
	return passwordAttrPattern.ReplaceAllString(doc, `$1="[REDACTED]"`)
}
