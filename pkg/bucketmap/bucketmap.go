// Package bucketmap implements the append-only, per-path buffer the graph
// object store batches entities and relationships into before a flush
// (spec §4.1, component C1).
package bucketmap

// BucketMap maps a bucket-path string to an ordered list of items, keeping
// a cached running total item count. Not safe for concurrent mutation —
// the caller (graphstore) serializes access.
type BucketMap[T any] struct {
	buckets        map[string][]T
	totalItemCount int
}

// New returns an empty BucketMap.
func New[T any]() *BucketMap[T] {
	return &BucketMap[T]{buckets: make(map[string][]T)}
}

// Add appends items to the bucket at path, creating it if absent.
func (m *BucketMap[T]) Add(path string, items []T) {
	if len(items) == 0 {
		return
	}
	m.buckets[path] = append(m.buckets[path], items...)
	m.totalItemCount += len(items)
}

// Get returns the bucket's items, or nil if the bucket doesn't exist.
func (m *BucketMap[T]) Get(path string) []T {
	return m.buckets[path]
}

// Delete removes a bucket and subtracts its length from the running total.
func (m *BucketMap[T]) Delete(path string) {
	if items, ok := m.buckets[path]; ok {
		m.totalItemCount -= len(items)
		delete(m.buckets, path)
	}
}

// Keys enumerates bucket paths in unspecified order.
func (m *BucketMap[T]) Keys() []string {
	keys := make([]string, 0, len(m.buckets))
	for k := range m.buckets {
		keys = append(keys, k)
	}
	return keys
}

// TotalItemCount returns Σ|values| across all buckets.
func (m *BucketMap[T]) TotalItemCount() int {
	return m.totalItemCount
}

// Drain removes and returns every bucket's contents in one snapshot,
// resetting the map to empty. Used by the flush protocol (§4.3) so
// concurrent Adds during the flush land in a fresh map rather than being
// lost or racing with the drain.
func (m *BucketMap[T]) Drain() map[string][]T {
	snapshot := m.buckets
	m.buckets = make(map[string][]T)
	m.totalItemCount = 0
	return snapshot
}
