package spacemgr

import (
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/boljen/go-bitmap"
	"github.com/cespare/xxhash/v2"
	"github.com/garethgeorge/hybridspace/internal/arena"
)

// Manager tracks free space on a fixed size device with two views kept in
// step: a bitmap for per-block occupancy and an ordered chain of free extents.
// Fragmentation groups are derived from the bitmap after every mutation.
//
// A Manager is not thread-safe; see Synchronized.
type Manager struct {
	capacity  int
	strict    bool
	allocated int

	bitmap bitmap.Bitmap // set bit = allocated
	free   extentChain
	groups []Group
}

// MaxCapacity is the largest device New and Reset accept, in blocks.
const MaxCapacity = 1 << 24

type Option func(*Manager)

// WithStrictDeallocation rejects deallocation of blocks that are already free
// with ErrDoubleFree instead of silently merging them.
func WithStrictDeallocation() Option {
	return func(m *Manager) {
		m.strict = true
	}
}

func New(capacity int, opts ...Option) (*Manager, error) {
	m := &Manager{
		free: newExtentChain(8),
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.Reset(capacity); err != nil {
		return nil, err
	}
	return m, nil
}

// Reset reinitializes the manager to a fully free device of the given
// capacity. Options given to New are kept.
func (m *Manager) Reset(capacity int) error {
	if capacity < 0 || capacity > MaxCapacity {
		return &AllocError{Kind: KindInvalidCapacity, Count: capacity}
	}
	m.capacity = capacity
	m.allocated = 0
	m.bitmap = bitmap.New(capacity)
	m.free.reset()
	if capacity > 0 {
		m.free.insertAfter(arena.Nil, FreeExtent{Start: 0, Length: capacity})
	}
	m.updateGroups()
	return nil
}

func (m *Manager) checkRange(start, n int) error {
	if n < 1 {
		return &AllocError{Kind: KindInvalidCount, Start: start, Count: n}
	}
	if start < 0 || n > m.capacity-start {
		return &AllocError{Kind: KindOutOfRange, Start: start, Count: n}
	}
	return nil
}

// Allocate claims the n blocks starting at start and returns start.
func (m *Manager) Allocate(start, n int) (int, error) {
	if err := m.checkRange(start, n); err != nil {
		return 0, err
	}
	for i := start; i < start+n; i++ {
		if m.bitmap.Get(i) {
			return 0, &AllocError{Kind: KindAlreadyAllocated, Start: start, Count: n}
		}
	}

	for i := start; i < start+n; i++ {
		m.bitmap.Set(i, true)
	}
	m.allocated += n
	m.markAllocated(start, n)
	m.updateGroups()
	return start, nil
}

// markAllocated carves [start, start+n) out of the single free extent that
// contains it.
func (m *Manager) markAllocated(start, n int) {
	end := start + n
	prev := arena.Nil
	for cur := m.free.head; cur != arena.Nil; {
		node := m.free.get(cur)
		if !node.Contains(start, n) {
			if node.Start > start {
				break
			}
			prev, cur = cur, node.next
			continue
		}

		switch {
		case node.Start == start && node.Length == n:
			m.free.unlink(prev, cur)
		case node.Start == start:
			node.Start += n
			node.Length -= n
		case node.End() == end:
			node.Length -= n
		default:
			right := FreeExtent{Start: end, Length: node.End() - end}
			node.Length = start - node.Start
			m.free.insertAfter(cur, right)
		}
		return
	}

	// The bitmap said the range was free, so the chain disagrees with it.
	panic(fmt.Sprintf("spacemgr: no free extent contains [%d, %d)", start, end))
}

// Deallocate releases the n blocks starting at start and coalesces them with
// neighbouring free extents. Unless the manager is strict, blocks that are
// already free are accepted and merged.
func (m *Manager) Deallocate(start, n int) error {
	if err := m.checkRange(start, n); err != nil {
		return err
	}
	if m.strict {
		for i := start; i < start+n; i++ {
			if !m.bitmap.Get(i) {
				return &AllocError{Kind: KindDoubleFree, Start: start, Count: n}
			}
		}
	}

	for i := start; i < start+n; i++ {
		if m.bitmap.Get(i) {
			m.bitmap.Set(i, false)
			m.allocated--
		}
	}
	m.insertFree(start, n)
	m.updateGroups()
	return nil
}

// insertFree links [start, start+n) into the chain in order. The new range is
// merged into the first extent it touches, which absorbs any later extents
// the merged range reaches. Normally that is just a predecessor ending at
// start and a successor beginning at start+n; a lenient double free can
// overlap more.
func (m *Manager) insertFree(start, n int) {
	lo, hi := start, start+n

	prev := arena.Nil
	cur := m.free.head
	for cur != arena.Nil {
		node := m.free.get(cur)
		if node.End() >= lo {
			break
		}
		prev, cur = cur, node.next
	}

	if cur == arena.Nil || !m.free.get(cur).Touches(start, n) {
		m.free.insertAfter(prev, FreeExtent{Start: lo, Length: hi - lo})
		return
	}

	target := m.free.get(cur)
	lo = min(lo, target.Start)
	hi = max(hi, target.End())
	for next := target.next; next != arena.Nil; {
		node := m.free.get(next)
		if node.Start > hi {
			break
		}
		hi = max(hi, node.End())
		next = m.free.unlink(cur, next)
	}
	target.Start = lo
	target.Length = hi - lo
}

func (m *Manager) updateGroups() {
	m.groups = m.scanGroups(m.groups[:0])
}

// scanGroups appends the maximal free runs of the bitmap to dst.
func (m *Manager) scanGroups(dst []Group) []Group {
	inGroup := false
	groupStart := 0
	for i := 0; i < m.capacity; i++ {
		if !m.bitmap.Get(i) {
			if !inGroup {
				groupStart = i
				inGroup = true
			}
		} else if inGroup {
			dst = append(dst, Group{Start: groupStart, Length: i - groupStart})
			inGroup = false
		}
	}
	if inGroup {
		dst = append(dst, Group{Start: groupStart, Length: m.capacity - groupStart})
	}
	return dst
}

// Groups returns the fragmentation groups in ascending order. The slice is a
// copy and may be modified by the caller.
func (m *Manager) Groups() []Group {
	return slices.Clone(m.groups)
}

// Extents iterates over the free chain from head to tail.
func (m *Manager) Extents() func(yield func(FreeExtent) bool) {
	return m.free.all()
}

// FreeExtents returns a snapshot of the free chain.
func (m *Manager) FreeExtents() []FreeExtent {
	extents := make([]FreeExtent, 0, m.free.len())
	for e := range m.free.all() {
		extents = append(extents, e)
	}
	return extents
}

// ExtentCount returns the number of extents in the free chain.
func (m *Manager) ExtentCount() int {
	return m.free.len()
}

// IsAllocated reports whether block i is allocated. Blocks outside the device
// are reported as not allocated.
func (m *Manager) IsAllocated(i int) bool {
	if i < 0 || i >= m.capacity {
		return false
	}
	return m.bitmap.Get(i)
}

func (m *Manager) Capacity() int {
	return m.capacity
}

func (m *Manager) FreeBlocks() int {
	return m.capacity - m.allocated
}

func (m *Manager) AllocatedBlocks() int {
	return m.allocated
}

func (m *Manager) Strict() bool {
	return m.strict
}

// Fingerprint digests the capacity, the bitmap and the free chain. Two
// managers with the same fingerprint cover the same ranges.
func (m *Manager) Fingerprint() uint64 {
	hasher := xxhash.New()
	buf := make([]byte, 0, 16)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(m.capacity))
	hasher.Write(buf)
	hasher.Write([]byte(m.bitmap))
	for e := range m.free.all() {
		buf = buf[:0]
		buf = binary.LittleEndian.AppendUint64(buf, uint64(e.Start))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(e.Length))
		hasher.Write(buf)
	}
	return hasher.Sum64()
}
