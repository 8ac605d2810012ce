package ingestion

import (
	"sort"
	"sync"
)

// keyedLocks serializes ingestions touching the same (namespace, source id)
// pair, so two concurrent ingestions of one document cannot interleave
// their delete and upsert phases. Unrelated documents proceed in parallel.
type keyedLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{entries: make(map[string]*lockEntry)}
}

func (k *keyedLocks) lock(key string) {
	k.mu.Lock()
	entry, ok := k.entries[key]
	if !ok {
		entry = &lockEntry{}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
}

func (k *keyedLocks) unlock(key string) {
	k.mu.Lock()
	entry := k.entries[key]
	entry.refs--
	if entry.refs == 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()

	entry.mu.Unlock()
}

// lockAll acquires the locks for every id within a namespace in sorted
// order, so overlapping ingestions always acquire in the same sequence.
// The returned function releases them all.
func (k *keyedLocks) lockAll(namespace string, ids []string) func() {
	keys := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		key := namespace + "\x00" + id
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		k.lock(key)
	}
	return func() {
		for i := len(keys) - 1; i >= 0; i-- {
			k.unlock(keys[i])
		}
	}
}
