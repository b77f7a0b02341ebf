// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package ilo

import (
	"fmt"
	"strings"
)

// Params provides a fluent interface for building command parameters
//
// The builder tracks the first error internally so calls can be chained.
// Rendering order is fixed by the command table, not by the order of Set
// calls.
//
// Example:
//
//	params, err := ilo.Params{}.
//	    Set("ip_address", "10.0.0.5").
//	    Set("subnet_mask", "255.255.255.0").
//	    Set("dhcp_enable", false).
//	    List()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := client.Execute(ctx, "mod_network_settings", params)
type Params struct {
	list []Param
	err  error
}

// Set adds a parameter and returns a new Params
//
// Keys are case-insensitive. An empty or repeated key puts the builder in
// an error state; all later calls keep that error.
func (p Params) Set(key string, value any) Params {
	if p.err != nil {
		return p
	}

	norm := strings.ToLower(strings.TrimSpace(key))
	if norm == "" {
		return Params{list: p.list, err: fmt.Errorf("Set(%q): empty key", key)}
	}
	for _, existing := range p.list {
		if strings.EqualFold(existing.Key, norm) {
			return Params{list: p.list, err: fmt.Errorf("Set(%q): duplicate key", key)}
		}
	}

	list := make([]Param, len(p.list), len(p.list)+1)
	copy(list, p.list)
	return Params{list: append(list, Param{Key: norm, Value: value})}
}

// List returns the parameters and any error encountered during building
func (p Params) List() ([]Param, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.list, nil
}

// Err returns any error that occurred during building
func (p Params) Err() error {
	return p.err
}
