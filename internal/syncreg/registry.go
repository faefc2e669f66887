// Package syncreg tracks which stores have an asynchronous operation in
// flight. Entries are reference counted per store so overlapping operations
// on the same store keep it busy until the last one finishes.
package syncreg

import (
	"sort"
	"sync"
)

// Registry maps store IDs to their in-flight operation count.
type Registry struct {
	mu     sync.Mutex
	counts map[string]int
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{counts: make(map[string]int)}
}

// Begin marks storeID busy and returns a release func. The release func is
// safe to call more than once; only the first call decrements.
func (r *Registry) Begin(storeID string) (done func()) {
	r.mu.Lock()
	r.counts[storeID]++
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.End(storeID) })
	}
}

// End releases one in-flight operation for storeID. Calling End for a store
// with no outstanding operation is a no-op.
func (r *Registry) End(storeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.counts[storeID]
	if n <= 1 {
		delete(r.counts, storeID)
		return
	}
	r.counts[storeID] = n - 1
}

// IsSyncing reports whether storeID has at least one operation in flight.
func (r *Registry) IsSyncing(storeID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[storeID] > 0
}

// Count returns the number of in-flight operations for storeID.
func (r *Registry) Count(storeID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[storeID]
}

// Active returns the busy store IDs in lexical order.
func (r *Registry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.counts))
	for id := range r.counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
