// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package ilo provides a client for the RIBCL XML-over-TLS protocol of HPE
// iLO management processors.
//
// Every command is sent as one XML envelope over a fresh TLS connection.
// The client builds the envelope for the firmware's dialect, performs the
// exchange, decodes the reply into a Node tree, and classifies failures.
// Results of non-volatile reads are cached per target address.
//
// # Quick Start
//
//	client, err := ilo.NewClient(
//	    "10.0.0.5",
//	    ilo.Username("Administrator"),
//	    ilo.Password("secret"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	res, err := client.Execute(ctx, "power_status", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Power:", res.Value())
//
// # Dialects
//
// Firmware generations disagree on element and attribute names. The client
// probes the server once with a firmware version query, legacy envelope
// first, and keeps the dialect that answered. WithDialect skips the probe.
//
// # Parameters
//
// Parameters are validated against the command table before any network
// activity. Booleans render as Y/N, power and UID states as on/off/reset:
//
//	params, err := ilo.Params{}.
//	    Set("https_port", 443).
//	    Set("f8_prompt_enable", false).
//	    List()
//	res, err = client.Execute(ctx, "mod_global_settings", params)
//
// # Caching
//
// Reads of firmware, network, global settings, server name, health and
// users are cached until a successful mutation of the same resource, or a
// change of address or username. Power and UID reads always hit the
// device. Refresh forces a fetch for one call.
//
// # Error Handling
//
// All failures are *IloError values with a Kind:
//
//	_, err := client.Execute(ctx, "get_all_users", nil)
//	switch {
//	case errors.Is(err, ilo.ErrAuth):
//	    // credentials rejected
//	case errors.Is(err, ilo.ErrConnection):
//	    // device unreachable
//	}
//
// There are no automatic retries; power and reset commands are not safe to
// repeat blindly.
//
// # Thread Safety
//
// A Client is not safe for concurrent use. Separate Clients are
// independent.
//
// # References
//
//   - gjson: https://github.com/tidwall/gjson
//   - sjson: https://github.com/tidwall/sjson
package ilo
