package sentry

import "sync"

// DefaultBreadcrumbCapacity is the number of breadcrumbs kept when no
// capacity is given.
const DefaultBreadcrumbCapacity = 20

// Breadcrumbs is a bounded buffer of the most recent breadcrumbs. Once full,
// adding a breadcrumb evicts the oldest one. It is safe for concurrent use.
type Breadcrumbs struct {
	mu       sync.Mutex
	capacity int
	items    []*Breadcrumb
}

// NewBreadcrumbs returns an empty buffer holding at most capacity
// breadcrumbs, or DefaultBreadcrumbCapacity when capacity is not positive.
func NewBreadcrumbs(capacity int) *Breadcrumbs {
	if capacity <= 0 {
		capacity = DefaultBreadcrumbCapacity
	}
	return &Breadcrumbs{
		capacity: capacity,
		items:    make([]*Breadcrumb, 0, capacity),
	}
}

// Add appends breadcrumb, evicting the oldest entry when the buffer is full.
func (b *Breadcrumbs) Add(breadcrumb *Breadcrumb) {
	if breadcrumb == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.items) >= b.capacity {
		copy(b.items, b.items[1:])
		b.items = b.items[:len(b.items)-1]
	}
	b.items = append(b.items, breadcrumb)
}

// Snapshot returns the buffered breadcrumbs, oldest first, or nil when the
// buffer is empty.
func (b *Breadcrumbs) Snapshot() []*Breadcrumb {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.items) == 0 {
		return nil
	}
	snapshot := make([]*Breadcrumb, len(b.items))
	copy(snapshot, b.items)
	return snapshot
}

// Len returns the number of buffered breadcrumbs.
func (b *Breadcrumbs) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Clear removes all breadcrumbs.
func (b *Breadcrumbs) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = b.items[:0]
}
