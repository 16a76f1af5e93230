package sim

import (
	"image"
	"sync"
)

// History maps frame timestamps to ground-truth positions.
// With a positive capacity the oldest timestamp is evicted once capacity is reached;
// capacity <= 0 keeps every entry for the lifetime of the stream.
// It is safe for one writer and concurrent readers.
type History struct {
	mu        sync.RWMutex
	positions map[int64]image.Point
	order     []int64
	capacity  int
	head      int // Points to the oldest timestamp once order is full
}

// NewHistory creates position history with the given eviction window
func NewHistory(capacity int) *History {
	if capacity < 0 {
		capacity = 0
	}
	return &History{
		positions: make(map[int64]image.Point),
		order:     make([]int64, 0, capacity),
		capacity:  capacity,
	}
}

// Record stores position for the timestamp
func (h *History) Record(timestamp int64, position image.Point) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.positions[timestamp]; ok {
		h.positions[timestamp] = position
		return
	}
	h.positions[timestamp] = position
	if h.capacity == 0 {
		return
	}
	if len(h.order) < h.capacity {
		h.order = append(h.order, timestamp)
		return
	}
	delete(h.positions, h.order[h.head])
	h.order[h.head] = timestamp
	h.head = (h.head + 1) % h.capacity
}

// Lookup returns ground-truth position for the timestamp
func (h *History) Lookup(timestamp int64) (image.Point, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	position, ok := h.positions[timestamp]
	return position, ok
}

// Len returns number of stored timestamps
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.positions)
}

// Capacity returns eviction window (0 means unbounded)
func (h *History) Capacity() int {
	return h.capacity
}
