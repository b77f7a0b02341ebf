// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package ilo

import (
	"strings"
	"testing"
)

// TestParams tests the parameter builder
func TestParams(t *testing.T) {
	tests := []struct {
		name    string
		build   func() Params
		want    []Param
		wantErr string
	}{
		{
			name:  "empty",
			build: func() Params { return Params{} },
		},
		{
			name: "keys normalized",
			build: func() Params {
				return Params{}.Set(" IP_Address ", "10.0.0.5").Set("dhcp_enable", false)
			},
			want: []Param{{Key: "ip_address", Value: "10.0.0.5"}, {Key: "dhcp_enable", Value: false}},
		},
		{
			name: "empty key",
			build: func() Params {
				return Params{}.Set("", "x")
			},
			wantErr: "empty key",
		},
		{
			name: "duplicate key case-insensitive",
			build: func() Params {
				return Params{}.Set("state", "on").Set("STATE", "off")
			},
			wantErr: "duplicate key",
		},
		{
			name: "error is sticky",
			build: func() Params {
				return Params{}.Set("", "x").Set("state", "on")
			},
			wantErr: "empty key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.build()
			got, err := p.List()
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("List() error = %v, want %q", err, tt.wantErr)
				}
				if p.Err() == nil {
					t.Error("Err() = nil in error state")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("List() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("param %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// TestParams_Immutable verifies Set does not modify the receiver
func TestParams_Immutable(t *testing.T) {
	base := Params{}.Set("login", "operator")
	a := base.Set("password", "one")
	b := base.Set("admin_priv", true)

	if list, _ := base.List(); len(list) != 1 {
		t.Errorf("base modified: %v", list)
	}
	la, _ := a.List()
	lb, _ := b.List()
	if la[1].Key != "password" || lb[1].Key != "admin_priv" {
		t.Errorf("branches share storage: %v / %v", la, lb)
	}
}
