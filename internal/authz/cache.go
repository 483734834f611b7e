// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package authz

import "sync"

// decisionCache memoizes (subject, object, action) decisions until the
// policy is reloaded.
type decisionCache struct {
	mu    sync.RWMutex
	items map[string]bool
}

func newDecisionCache() *decisionCache {
	return &decisionCache{items: make(map[string]bool)}
}

func cacheKey(subject, obj, act string) string {
	return subject + ":" + obj + ":" + act
}

func (c *decisionCache) get(subject, obj, act string) (allowed, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	allowed, ok = c.items[cacheKey(subject, obj, act)]
	return allowed, ok
}

func (c *decisionCache) set(subject, obj, act string, allowed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[cacheKey(subject, obj, act)] = allowed
}

func (c *decisionCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]bool)
}
