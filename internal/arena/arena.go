package arena

import "fmt"

// Index addresses a record in an Arena. Indices stay stable until the record is freed.
type Index int32

// Nil is the sentinel index that addresses no record.
const Nil Index = -1

type slot[T any] struct {
	val  T
	live bool
}

// Arena stores records of type T addressed by Index. Freed indices are
// recycled LIFO so a long lived chain does not grow the backing slice.
// It is not thread-safe.
type Arena[T any] struct {
	slots []slot[T]
	free  []Index // indices available for reuse
	live  int
}

func New[T any](capacityHint int) *Arena[T] {
	if capacityHint < 0 {
		capacityHint = 0
	}
	return &Arena[T]{
		slots: make([]slot[T], 0, capacityHint),
	}
}

// Alloc stores v and returns its index.
func (a *Arena[T]) Alloc(v T) Index {
	a.live++
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[idx] = slot[T]{val: v, live: true}
		return idx
	}
	a.slots = append(a.slots, slot[T]{val: v, live: true})
	return Index(len(a.slots) - 1)
}

// Get returns a pointer to the record at idx. The pointer is only valid until
// the next Alloc, which may move the backing storage.
func (a *Arena[T]) Get(idx Index) *T {
	a.check(idx)
	return &a.slots[idx].val
}

// Free releases the record at idx for reuse.
func (a *Arena[T]) Free(idx Index) {
	a.check(idx)
	var zero T
	a.slots[idx] = slot[T]{val: zero}
	a.free = append(a.free, idx)
	a.live--
}

// Live reports whether idx currently addresses a record.
func (a *Arena[T]) Live(idx Index) bool {
	return idx >= 0 && int(idx) < len(a.slots) && a.slots[idx].live
}

// Len returns the number of live records.
func (a *Arena[T]) Len() int {
	return a.live
}

// Reset drops every record but keeps the allocated storage.
func (a *Arena[T]) Reset() {
	clear(a.slots)
	a.slots = a.slots[:0]
	a.free = a.free[:0]
	a.live = 0
}

func (a *Arena[T]) check(idx Index) {
	if idx < 0 || int(idx) >= len(a.slots) {
		panic(fmt.Sprintf("arena: index %d out of range [0, %d)", idx, len(a.slots)))
	}
	if !a.slots[idx].live {
		panic(fmt.Sprintf("arena: index %d is not live", idx))
	}
}
