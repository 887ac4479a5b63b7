// ring_buffer.go — Bounded FIFO ring with monotonic positions.
// Backs the render history: writes return a position that stays addressable
// until the entry is evicted, so a pending render can be finalized in O(1).
// Thread-safe: all access guarded by RWMutex.
package buffers

import "sync"

// Cursor is a read position in a ring. Position counts every entry ever
// written, so it survives eviction and Clear.
type Cursor struct {
	Position int64 `json:"position"`
}

// RingBuffer is a fixed-capacity circular buffer. Entries are evicted in FIFO
// order once capacity is reached.
type RingBuffer[T any] struct {
	mu sync.RWMutex

	entries  []T
	capacity int

	totalAdded int64 // next position to be written
	head       int   // index where next write goes once full
}

// NewRingBuffer creates a ring with the given capacity (minimum 1).
func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer[T]{
		entries:  make([]T, 0, capacity),
		capacity: capacity,
	}
}

// WriteOne appends an entry, evicting the oldest at capacity.
// Returns the entry's monotonic position.
func (rb *RingBuffer[T]) WriteOne(entry T) int64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if len(rb.entries) < rb.capacity {
		rb.entries = append(rb.entries, entry)
	} else {
		rb.entries[rb.head] = entry
	}
	rb.head = (rb.head + 1) % rb.capacity
	pos := rb.totalAdded
	rb.totalAdded++
	return pos
}

// UpdateAt applies fn to the entry at position. Returns false when the
// position was evicted or never written.
func (rb *RingBuffer[T]) UpdateAt(position int64, fn func(*T)) bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	idx, ok := rb.indexOf(position)
	if !ok {
		return false
	}
	fn(&rb.entries[idx])
	return true
}

// At returns a copy of the entry at position.
func (rb *RingBuffer[T]) At(position int64) (T, bool) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	idx, ok := rb.indexOf(position)
	if !ok {
		var zero T
		return zero, false
	}
	return rb.entries[idx], true
}

// ReadFrom returns entries written at or after cursor, oldest first, and the
// cursor for the next read. Evicted positions are skipped.
func (rb *RingBuffer[T]) ReadFrom(cursor Cursor) ([]T, Cursor) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	next := Cursor{Position: rb.totalAdded}
	start := cursor.Position
	if oldest := rb.oldestPosition(); start < oldest {
		start = oldest
	}
	if start >= rb.totalAdded {
		return nil, next
	}

	result := make([]T, 0, rb.totalAdded-start)
	for p := start; p < rb.totalAdded; p++ {
		idx, _ := rb.indexOf(p)
		result = append(result, rb.entries[idx])
	}
	return result, next
}

// ReadAll returns all entries currently held, oldest first.
func (rb *RingBuffer[T]) ReadAll() []T {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if len(rb.entries) == 0 {
		return nil
	}

	result := make([]T, len(rb.entries))
	if len(rb.entries) < rb.capacity {
		copy(result, rb.entries)
	} else {
		// Full: head points to the oldest entry.
		n := copy(result, rb.entries[rb.head:])
		copy(result[n:], rb.entries[:rb.head])
	}
	return result
}

// ReadLast returns the last n entries, oldest first.
func (rb *RingBuffer[T]) ReadLast(n int) []T {
	all := rb.ReadAll()
	if n <= 0 || len(all) == 0 {
		return nil
	}
	if n > len(all) {
		n = len(all)
	}
	return all[len(all)-n:]
}

// Filter returns held entries matching keep, oldest first. limit <= 0 means no limit.
func (rb *RingBuffer[T]) Filter(keep func(T) bool, limit int) []T {
	var result []T
	for _, entry := range rb.ReadAll() {
		if !keep(entry) {
			continue
		}
		result = append(result, entry)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result
}

// Position returns the position the next write will receive.
func (rb *RingBuffer[T]) Position() int64 {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.totalAdded
}

// Len returns the number of entries currently held.
func (rb *RingBuffer[T]) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return len(rb.entries)
}

// Cap returns the ring capacity.
func (rb *RingBuffer[T]) Cap() int {
	return rb.capacity // immutable
}

// Clear drops every entry. Positions stay monotonic so stale handles never
// resolve to new entries.
func (rb *RingBuffer[T]) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.entries = make([]T, 0, rb.capacity)
	rb.head = 0
}

// oldestPosition must be called with a lock held.
func (rb *RingBuffer[T]) oldestPosition() int64 {
	return rb.totalAdded - int64(len(rb.entries))
}

// indexOf maps a monotonic position to a slice index. Must be called with a lock held.
func (rb *RingBuffer[T]) indexOf(position int64) (int, bool) {
	oldest := rb.oldestPosition()
	if position < oldest || position >= rb.totalAdded {
		return 0, false
	}
	offset := int(position - oldest)
	if len(rb.entries) < rb.capacity {
		return offset, true
	}
	return (rb.head + offset) % rb.capacity, true
}
