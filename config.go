// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package ilo

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PasswordEnv overrides the password of a loaded Config
const PasswordEnv = "ILO_PASSWORD"

// Config is the file form of a client configuration
//
// Example file:
//
//	address: 10.0.0.5
//	port: 443
//	username: Administrator
//	dialect: current
//	verbosity: 1
//	read_timeout: 90s
//	tls_ca: /etc/ilo/ca.pem
//
// The password is best supplied through the ILO_PASSWORD environment
// variable rather than the file.
type Config struct {
	// Address is the host name or IP of the management processor
	Address string `yaml:"address"`

	// Port is the TLS port. Default: 443
	Port int `yaml:"port,omitempty"`

	Username string `yaml:"username"`
	Password string `yaml:"password,omitempty"`

	// Dialect is unknown (probe), legacy or current
	Dialect string `yaml:"dialect,omitempty"`

	// Verbosity is 0, 1 or 2
	Verbosity int `yaml:"verbosity,omitempty"`

	ConnectTimeout time.Duration `yaml:"connect_timeout,omitempty"`
	ReadTimeout    time.Duration `yaml:"read_timeout,omitempty"`

	// VerifyCertificate enables TLS verification; implied by TLSCA
	VerifyCertificate bool   `yaml:"verify_certificate,omitempty"`
	TLSCA             string `yaml:"tls_ca,omitempty"`
}

// LoadConfig reads a YAML configuration file
//
// A non-empty ILO_PASSWORD environment variable replaces the password from
// the file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML configuration document
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if pw := os.Getenv(PasswordEnv); pw != "" {
		cfg.Password = pw
	}
	if _, err := ParseDialect(cfg.Dialect); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Options converts the configuration into client options
//
// Zero values keep the client defaults.
func (c *Config) Options() []func(*Client) {
	var opts []func(*Client)
	if c.Username != "" {
		opts = append(opts, Username(c.Username))
	}
	if c.Password != "" {
		opts = append(opts, Password(c.Password))
	}
	if c.Port != 0 {
		opts = append(opts, Port(c.Port))
	}
	if d, err := ParseDialect(c.Dialect); err == nil && d != DialectUnknown {
		opts = append(opts, WithDialect(d))
	}
	if c.Verbosity != 0 {
		opts = append(opts, Verbosity(c.Verbosity))
	}
	if c.ConnectTimeout != 0 {
		opts = append(opts, ConnectTimeout(c.ConnectTimeout))
	}
	if c.ReadTimeout != 0 {
		opts = append(opts, ReadTimeout(c.ReadTimeout))
	}
	if c.VerifyCertificate {
		opts = append(opts, VerifyCertificate(true))
	}
	if c.TLSCA != "" {
		opts = append(opts, TLSCA(c.TLSCA))
	}
	return opts
}

// NewClientFromConfig creates a client from a configuration plus extra options
//
// Extra options are applied after the configuration, so they win.
func NewClientFromConfig(cfg *Config, opts ...func(*Client)) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if _, err := ParseDialect(cfg.Dialect); err != nil {
		return nil, err
	}
	return NewClient(cfg.Address, append(cfg.Options(), opts...)...)
}
