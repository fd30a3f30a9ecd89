package device

// Scratch is a fixed-capacity push-only buffer. It stands in for the bounded
// local memory a work-item uses during weight updating and seed selection:
// pushes past capacity are dropped, not grown, and the drop count is kept so
// callers can report the accuracy tradeoff without changing results.
type Scratch[T any] struct {
	items   []T
	dropped int
}

// NewScratch creates a scratch buffer with the given fixed capacity.
func NewScratch[T any](capacity int) *Scratch[T] {
	return &Scratch[T]{items: make([]T, 0, capacity)}
}

// Push appends v if capacity allows and reports whether it was kept.
func (s *Scratch[T]) Push(v T) bool {
	if len(s.items) == cap(s.items) {
		s.dropped++
		return false
	}
	s.items = append(s.items, v)
	return true
}

// Len returns the number of held items.
func (s *Scratch[T]) Len() int { return len(s.items) }

// Items returns the held items. The slice aliases the scratch storage.
func (s *Scratch[T]) Items() []T { return s.items }

// Dropped returns how many pushes were rejected for capacity.
func (s *Scratch[T]) Dropped() int { return s.dropped }

// Truncated reports whether any push was dropped.
func (s *Scratch[T]) Truncated() bool { return s.dropped > 0 }

// Reset empties the buffer for reuse, clearing the drop count.
func (s *Scratch[T]) Reset() {
	s.items = s.items[:0]
	s.dropped = 0
}
