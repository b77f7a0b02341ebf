// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package ilo

import "time"

// Req holds request-specific options applied via functional modifiers
//
// Example:
//
//	res, err := client.Execute(ctx, "get_embedded_health", nil,
//	    ilo.Timeout(2*time.Minute),
//	    ilo.Refresh())
type Req struct {
	// Timeout overrides Client.ReadTimeout if set
	Timeout time.Duration

	// Refresh bypasses the cache lookup
	Refresh bool
}
