package report

import (
	"github.com/garethgeorge/hybridspace/internal/spacemgr"
	"github.com/google/btree"
)

// Report is a point in time summary of a manager's free space.
type Report struct {
	Capacity  int
	Allocated int
	Free      int

	Groups  []spacemgr.Group
	Extents []spacemgr.FreeExtent

	Largest  spacemgr.Group // zero when there is no free space
	Smallest spacemgr.Group

	// Fragmentation is 1 - largest/free, 0 for an unfragmented or full device.
	Fragmentation float64
	Fingerprint   uint64
}

func Build(m *spacemgr.Manager) Report {
	groups := m.Groups()
	idx := NewSizeIndex(groups)
	r := Report{
		Capacity:    m.Capacity(),
		Allocated:   m.AllocatedBlocks(),
		Free:        m.FreeBlocks(),
		Groups:      groups,
		Extents:     m.FreeExtents(),
		Fingerprint: m.Fingerprint(),
	}
	if largest, ok := idx.Largest(); ok {
		r.Largest = largest
	}
	if smallest, ok := idx.Smallest(); ok {
		r.Smallest = smallest
	}
	if r.Free > 0 {
		r.Fragmentation = 1 - float64(r.Largest.Length)/float64(r.Free)
	}
	return r
}

// SizeIndex orders free groups by length, then start.
type SizeIndex struct {
	bySize *btree.BTreeG[spacemgr.Group]
}

func NewSizeIndex(groups []spacemgr.Group) *SizeIndex {
	idx := &SizeIndex{
		bySize: btree.NewG[spacemgr.Group](32, func(a, b spacemgr.Group) bool {
			if a.Length != b.Length {
				return a.Length < b.Length
			}
			return a.Start < b.Start
		}),
	}
	for _, g := range groups {
		idx.bySize.ReplaceOrInsert(g)
	}
	return idx
}

func (s *SizeIndex) Len() int {
	return s.bySize.Len()
}

func (s *SizeIndex) Largest() (spacemgr.Group, bool) {
	return s.bySize.Max()
}

func (s *SizeIndex) Smallest() (spacemgr.Group, bool) {
	return s.bySize.Min()
}

// CountAtLeast returns how many groups are n blocks or longer.
func (s *SizeIndex) CountAtLeast(n int) int {
	count := 0
	s.bySize.AscendGreaterOrEqual(spacemgr.Group{Length: n}, func(spacemgr.Group) bool {
		count++
		return true
	})
	return count
}
