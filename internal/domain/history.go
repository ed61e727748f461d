package domain

import "sync"

// history is a bounded ring of the most recent entries.
type history[T any] struct {
	mu      sync.Mutex
	entries []T
	start   int
	count   int
}

func newHistory[T any](retention int) *history[T] {
	if retention <= 0 {
		retention = 1000
	}
	return &history[T]{entries: make([]T, retention)}
}

func (h *history[T]) add(entry T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	capacity := len(h.entries)
	if h.count < capacity {
		h.entries[(h.start+h.count)%capacity] = entry
		h.count++
		return
	}
	h.entries[h.start] = entry
	h.start = (h.start + 1) % capacity
}

// recent returns up to limit newest entries, oldest first. A non-positive
// limit returns everything retained.
func (h *history[T]) recent(limit int) []T {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := h.count
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]T, 0, n)
	for i := h.count - n; i < h.count; i++ {
		out = append(out, h.entries[(h.start+i)%len(h.entries)])
	}
	return out
}

func (h *history[T]) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func (h *history[T]) clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	var zero T
	for i := range h.entries {
		h.entries[i] = zero
	}
	h.start, h.count = 0, 0
}
