// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package ilo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestParseConfig tests YAML decoding of client configuration
func TestParseConfig(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     string
		want    Config
		wantErr string
	}{
		{
			name: "full",
			yaml: `
address: 10.0.0.5
port: 8443
username: Administrator
password: fromfile
dialect: current
verbosity: 2
connect_timeout: 5s
read_timeout: 2m
tls_ca: /etc/ilo/ca.pem
`,
			want: Config{
				Address:        "10.0.0.5",
				Port:           8443,
				Username:       "Administrator",
				Password:       "fromfile",
				Dialect:        "current",
				Verbosity:      2,
				ConnectTimeout: 5 * time.Second,
				ReadTimeout:    2 * time.Minute,
				TLSCA:          "/etc/ilo/ca.pem",
			},
		},
		{
			name: "environment password wins",
			yaml: "address: ilo01\npassword: fromfile\n",
			env:  "fromenv",
			want: Config{Address: "ilo01", Password: "fromenv"},
		},
		{
			name: "minimal",
			yaml: "address: ilo01\n",
			want: Config{Address: "ilo01"},
		},
		{
			name:    "invalid dialect",
			yaml:    "address: ilo01\ndialect: ilo9\n",
			wantErr: "invalid dialect: ilo9",
		},
		{
			name:    "malformed yaml",
			yaml:    "address: [unterminated\n",
			wantErr: "parsing config",
		},
		{
			name:    "bad duration",
			yaml:    "read_timeout: soon\n",
			wantErr: "parsing config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(PasswordEnv, tt.env)

			cfg, err := ParseConfig([]byte(tt.yaml))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want it to contain %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if *cfg != tt.want {
				t.Errorf("ParseConfig() = %+v, want %+v", *cfg, tt.want)
			}
		})
	}
}

// TestLoadConfig tests reading configuration files
func TestLoadConfig(t *testing.T) {
	t.Setenv(PasswordEnv, "")

	path := filepath.Join(t.TempDir(), "ilo.yaml")
	if err := os.WriteFile(path, []byte("address: 10.0.0.5\nusername: admin\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Address != "10.0.0.5" || cfg.Username != "admin" {
		t.Errorf("unexpected config: %+v", cfg)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

// TestNewClientFromConfig tests option conversion
func TestNewClientFromConfig(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		if _, err := NewClientFromConfig(nil); err == nil {
			t.Error("expected error for nil config")
		}
	})

	t.Run("invalid dialect", func(t *testing.T) {
		if _, err := NewClientFromConfig(&Config{Address: testAddress, Dialect: "newest"}); err == nil {
			t.Error("expected error for invalid dialect")
		}
	})

	t.Run("fields applied", func(t *testing.T) {
		cfg := &Config{
			Address:        testAddress,
			Port:           8443,
			Username:       "admin",
			Password:       "secret",
			Dialect:        "legacy",
			Verbosity:      1,
			ConnectTimeout: 3 * time.Second,
			ReadTimeout:    45 * time.Second,
		}
		client, err := NewClientFromConfig(cfg, WithTransport(&stubTransport{}))
		if err != nil {
			t.Fatalf("NewClientFromConfig failed: %v", err)
		}
		if client.Address() != testAddress || client.Port != 8443 || client.Username() != "admin" {
			t.Errorf("unexpected client: %+v", client)
		}
		if client.dialect != DialectLegacy || client.Detected() {
			t.Errorf("dialect = %v, detected = %v", client.dialect, client.Detected())
		}
		if client.verbosity != VerbositySummary {
			t.Errorf("verbosity = %d", client.verbosity)
		}
		if client.ConnectTimeout != 3*time.Second || client.ReadTimeout != 45*time.Second {
			t.Errorf("timeouts = %v/%v", client.ConnectTimeout, client.ReadTimeout)
		}
	})

	t.Run("extra options win", func(t *testing.T) {
		cfg := &Config{Address: testAddress, Port: 8443}
		client, err := NewClientFromConfig(cfg, Port(9443))
		if err != nil {
			t.Fatal(err)
		}
		if client.Port != 9443 {
			t.Errorf("Port = %d, want 9443", client.Port)
		}
	})

	t.Run("zero values keep defaults", func(t *testing.T) {
		client, err := NewClientFromConfig(&Config{Address: testAddress})
		if err != nil {
			t.Fatal(err)
		}
		if client.Port != DefaultPort || client.ReadTimeout != DefaultReadTimeout || client.VerifyCertificate {
			t.Errorf("defaults not kept: %+v", client)
		}
	})
}
