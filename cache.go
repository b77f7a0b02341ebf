// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package ilo

import "strings"

// cacheKey identifies a cached resource on one target address
type cacheKey struct {
	address  string
	resource string
}

// Cache memoizes decoded results of non-volatile reads
//
// Entries have no TTL. They stay valid until invalidated by a successful
// mutation of the same resource or by a change of target address or user.
// The zero value is ready to use. A Cache is not safe for concurrent use.
type Cache struct {
	entries map[cacheKey]*Node
}

// Cacheable reports whether results for resource may be stored
//
// Empty keys and the volatile resources (power, uid) are never cached.
func Cacheable(resource string) bool {
	if resource == "" {
		return false
	}
	base, _, _ := strings.Cut(resource, ":")
	return !volatileResources[base]
}

// Get returns the cached node for (address, resource) or calls fetch on a miss
//
// The boolean is true on a cache hit. A fetched node is stored only when
// fetch succeeds and the resource is cacheable.
func (c *Cache) Get(address, resource string, fetch func() (*Node, error)) (*Node, bool, error) {
	if node, ok := c.Lookup(address, resource); ok {
		return node, true, nil
	}
	node, err := fetch()
	if err != nil {
		return nil, false, err
	}
	c.Store(address, resource, node)
	return node, false, nil
}

// Refresh calls fetch without consulting the cache and stores the result
// on success. A failed fetch leaves any existing entry in place.
func (c *Cache) Refresh(address, resource string, fetch func() (*Node, error)) (*Node, error) {
	node, err := fetch()
	if err != nil {
		return nil, err
	}
	c.Store(address, resource, node)
	return node, nil
}

// Lookup returns a cached node without fetching
func (c *Cache) Lookup(address, resource string) (*Node, bool) {
	if !Cacheable(resource) {
		return nil, false
	}
	node, ok := c.entries[cacheKey{address, resource}]
	return node, ok
}

// Store saves node for (address, resource) if the resource is cacheable
func (c *Cache) Store(address, resource string, node *Node) {
	if node == nil || !Cacheable(resource) {
		return
	}
	if c.entries == nil {
		c.entries = make(map[cacheKey]*Node)
	}
	c.entries[cacheKey{address, resource}] = node
}

// Invalidate drops one resource of address
func (c *Cache) Invalidate(address, resource string) {
	delete(c.entries, cacheKey{address, resource})
}

// InvalidateAll drops every resource of address
func (c *Cache) InvalidateAll(address string) {
	for key := range c.entries {
		if key.address == address {
			delete(c.entries, key)
		}
	}
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	return len(c.entries)
}
