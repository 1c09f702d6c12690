// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package keyspace implements the global key to typed-value mapping.
// Operations on distinct keys proceed in parallel; operations on the same
// key are serialized by sharding the map and taking an exclusive hold of
// only the shard a key hashes to (see DESIGN.md) — the implementation
// deliberately avoids a single global lock.
package keyspace

import (
	"hash/maphash"
	"sync"
	"time"

	"github.com/zedis/zedis/internal/values"
)

const shardCount = 64

// Entry pairs a stored value with its absolute expiration, in unix
// milliseconds. An ExpireAt of zero means the key never expires.
type Entry struct {
	Value    values.Value
	ExpireAt int64
}

func (e *Entry) expired(nowMs int64) bool {
	return e.ExpireAt != 0 && nowMs >= e.ExpireAt
}

type shard struct {
	mu   sync.RWMutex
	data map[string]*Entry
}

// Keyspace is the sharded concurrent keyspace. The zero value is not usable;
// construct with New.
type Keyspace struct {
	shards [shardCount]*shard
	seed   maphash.Seed
}

func New() *Keyspace {
	ks := &Keyspace{seed: maphash.MakeSeed()}
	for i := range ks.shards {
		ks.shards[i] = &shard{data: make(map[string]*Entry)}
	}
	return ks
}

func nowMs() int64 { return time.Now().UnixMilli() }

func (ks *Keyspace) shardFor(key string) *shard {
	var h maphash.Hash
	h.SetSeed(ks.seed)
	h.WriteString(key)
	return ks.shards[h.Sum64()%shardCount]
}

// Get returns the value stored at key and whether it is present and
// unexpired. A lazily-discovered expired entry is removed before returning.
func (ks *Keyspace) Get(key string) (values.Value, bool) {
	sh := ks.shardFor(key)
	sh.mu.RLock()
	e, ok := sh.data[key]
	if !ok {
		sh.mu.RUnlock()
		return nil, false
	}
	if e.expired(nowMs()) {
		sh.mu.RUnlock()
		sh.mu.Lock()
		if cur, ok := sh.data[key]; ok && cur == e {
			delete(sh.data, key)
		}
		sh.mu.Unlock()
		return nil, false
	}
	v := e.Value
	sh.mu.RUnlock()
	return v, true
}

// Contains reports whether key is present and unexpired, without the cost of
// returning the value.
func (ks *Keyspace) Contains(key string) bool {
	_, ok := ks.Get(key)
	return ok
}

// Set installs value at key, replacing whatever was there, with an optional
// TTL (zero means no expiration).
func (ks *Keyspace) Set(key string, value values.Value, ttl time.Duration) {
	sh := ks.shardFor(key)
	e := &Entry{Value: value}
	if ttl > 0 {
		e.ExpireAt = nowMs() + ttl.Milliseconds()
	}
	sh.mu.Lock()
	sh.data[key] = e
	sh.mu.Unlock()
}

// LoadEntry installs value at key with an absolute expiration deadline
// (unix milliseconds, zero meaning no expiry). Used only by snapshot
// restore, which already carries absolute deadlines rather than a
// relative TTL.
func (ks *Keyspace) LoadEntry(key string, value values.Value, expireAtMs int64) {
	sh := ks.shardFor(key)
	sh.mu.Lock()
	sh.data[key] = &Entry{Value: value, ExpireAt: expireAtMs}
	sh.mu.Unlock()
}

// Remove deletes key, returning whether it was present (and unexpired).
func (ks *Keyspace) Remove(key string) bool {
	sh := ks.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.data[key]
	if !ok {
		return false
	}
	delete(sh.data, key)
	return !e.expired(nowMs())
}

// TTL reports the remaining time to live for key in whole seconds: -2 if the
// key does not exist, -1 if it exists but has no expiration, else the
// (ceiling) number of seconds remaining.
func (ks *Keyspace) TTL(key string) int64 {
	sh := ks.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	e, ok := sh.data[key]
	if !ok || e.expired(nowMs()) {
		return -2
	}
	if e.ExpireAt == 0 {
		return -1
	}
	remainMs := e.ExpireAt - nowMs()
	if remainMs < 0 {
		remainMs = 0
	}
	return (remainMs + 999) / 1000
}

// Expire sets key's TTL to ttl from now, returning false if key does not
// exist. A non-positive ttl deletes the key immediately, matching the
// convention that an already-elapsed expiry removes the key.
func (ks *Keyspace) Expire(key string, ttl time.Duration) bool {
	sh := ks.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.data[key]
	if !ok || e.expired(nowMs()) {
		delete(sh.data, key)
		return false
	}
	if ttl <= 0 {
		delete(sh.data, key)
		return true
	}
	e.ExpireAt = nowMs() + ttl.Milliseconds()
	return true
}

// Persist clears key's expiration, returning whether a TTL was removed.
func (ks *Keyspace) Persist(key string) bool {
	sh := ks.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.data[key]
	if !ok || e.expired(nowMs()) || e.ExpireAt == 0 {
		return false
	}
	e.ExpireAt = 0
	return true
}

// Mutator is called under the exclusive hold of exactly one key's shard. ok
// reports whether the key currently holds a live (present, unexpired)
// value; cur is nil when !ok. The returned value replaces the entry; a nil
// return with remove=true deletes the key. Mutator must not call back into
// the Keyspace — it runs under that shard's lock.
type Mutator func(cur values.Value, ok bool) (next values.Value, remove bool, err error)

// Mutate runs fn exactly once under key's shard lock, installing its result.
// This is the primitive behind every mutate-in-place command (INCR,
// RPUSH, ZADD, …): read-modify-write against the same typed value without a
// separate get-then-set race window. TTL is preserved across a mutate that
// keeps the key (a fresh key created inside fn gets no TTL).
func (ks *Keyspace) Mutate(key string, fn Mutator) (values.Value, error) {
	sh := ks.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.data[key]
	live := ok && !e.expired(nowMs())
	var cur values.Value
	if live {
		cur = e.Value
	}

	next, remove, err := fn(cur, live)
	if err != nil {
		return nil, err
	}
	if remove {
		delete(sh.data, key)
		return nil, nil
	}
	if live {
		e.Value = next
	} else {
		sh.data[key] = &Entry{Value: next}
	}
	return next, nil
}

// Visit calls f once for every live key, in an unspecified order. The view
// is weakly consistent: each key is observed at most once under its own
// shard's lock, but concurrent mutations elsewhere in the keyspace are not
// blocked, so the aggregate picture may not correspond to any single
// instant. This is sufficient for — and intended only for — snapshotting.
func (ks *Keyspace) Visit(f func(key string, e *Entry)) {
	now := nowMs()
	for _, sh := range ks.shards {
		sh.mu.RLock()
		for k, e := range sh.data {
			if !e.expired(now) {
				f(k, e)
			}
		}
		sh.mu.RUnlock()
	}
}

// Len returns the number of live keys. It takes every shard lock in turn and
// is intended for diagnostics, not the hot path.
func (ks *Keyspace) Len() int {
	now := nowMs()
	n := 0
	for _, sh := range ks.shards {
		sh.mu.RLock()
		for _, e := range sh.data {
			if !e.expired(now) {
				n++
			}
		}
		sh.mu.RUnlock()
	}
	return n
}

// Flush removes every key. LoadSnapshot uses it to reset to empty before
// installing the snapshot's entries.
func (ks *Keyspace) Flush() {
	for _, sh := range ks.shards {
		sh.mu.Lock()
		sh.data = make(map[string]*Entry)
		sh.mu.Unlock()
	}
}
