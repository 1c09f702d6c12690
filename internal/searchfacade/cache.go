// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package searchfacade

import (
	"strings"
	"sync"
	"time"
)

// responseCache holds recently computed search responses, keyed by
// "<index>\x00<request-hash>". Entries expire after a TTL and the whole
// cache is bounded by total payload bytes, evicting least recently used
// first. A document write through the facade drops that index's entries
// wholesale,
// since a single new document can change every ranking.
type responseCache struct {
	mu        sync.Mutex
	maxBytes  int
	usedBytes int
	entries   map[string]*respEntry
	head, tail *respEntry
}

type respEntry struct {
	key       string
	body      []byte
	expiresAt time.Time

	next, prev *respEntry
}

func newResponseCache(maxBytes int) *responseCache {
	return &responseCache{
		maxBytes: maxBytes,
		entries:  map[string]*respEntry{},
	}
}

func cacheKey(index, requestHash string) string {
	return index + "\x00" + requestHash
}

// Get returns the cached body for key, or nil. A hit moves the entry to
// the front of the LRU list.
func (c *responseCache) Get(key string) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil
	}
	if time.Now().After(e.expiresAt) {
		c.evict(e)
		return nil
	}
	if e != c.head {
		c.unlink(e)
		c.pushFront(e)
	}
	return e.body
}

// Put stores body under key for ttl, evicting from the LRU tail until the
// byte budget holds.
func (c *responseCache) Put(key string, body []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok {
		c.evict(old)
	}

	e := &respEntry{key: key, body: body, expiresAt: time.Now().Add(ttl)}
	c.entries[key] = e
	c.pushFront(e)
	c.usedBytes += len(body)

	for c.usedBytes > c.maxBytes && c.tail != nil {
		c.evict(c.tail)
	}
}

// InvalidateIndex drops every cached response belonging to index.
func (c *responseCache) InvalidateIndex(index string) {
	prefix := index + "\x00"
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.evict(e)
		}
	}
}

func (c *responseCache) pushFront(e *respEntry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *responseCache) unlink(e *respEntry) {
	if e == c.head {
		c.head = e.next
	}
	if e == c.tail {
		c.tail = e.prev
	}
	if e.prev != nil {
		e.prev.next = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	}
	e.next, e.prev = nil, nil
}

func (c *responseCache) evict(e *respEntry) {
	c.unlink(e)
	delete(c.entries, e.key)
	c.usedBytes -= len(e.body)
}
