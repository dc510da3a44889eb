package fincoach

import (
	"maps"
	"sync"
)

// Blackboard is the per-run key/value area through which pipeline stages
// exchange results. A later write to the same key replaces the earlier value.
// A Blackboard belongs to a single run and is discarded when the run ends.
type Blackboard struct {
	mu     sync.RWMutex
	values map[string]any
	order  []string
}

// NewBlackboard creates an empty blackboard.
func NewBlackboard() *Blackboard {
	return &Blackboard{values: make(map[string]any)}
}

// Get returns the value stored under key. The boolean is false if the key was
// never written.
func (b *Blackboard) Get(key string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[key]
	return v, ok
}

// Set stores value under key.
func (b *Blackboard) Set(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.values[key]; !ok {
		b.order = append(b.order, key)
	}
	b.values[key] = value
}

// Keys returns the written keys in first-write order.
func (b *Blackboard) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.order...)
}

// Len returns the number of keys written.
func (b *Blackboard) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.values)
}

// Snapshot returns a shallow copy of the current contents.
func (b *Blackboard) Snapshot() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return maps.Clone(b.values)
}
