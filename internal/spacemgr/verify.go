package spacemgr

// Verify checks that the bitmap, the free chain and the cached groups agree.
// It returns an *InvariantError naming every violation, or nil.
func (m *Manager) Verify() error {
	var errs InvariantError

	covered := make([]bool, m.capacity)
	freeTotal := 0
	var prev FreeExtent
	first := true
	for e := range m.free.all() {
		if e.Length < 1 {
			errs.add("extent %v has non-positive length %d", e, e.Length)
		}
		if e.Start < 0 || e.End() > m.capacity {
			errs.add("extent %v lies outside device of %d blocks", e, m.capacity)
			continue
		}
		if !first && prev.End() >= e.Start {
			errs.add("extent %v overlaps or abuts preceding extent %v", e, prev)
		}
		for b := e.Start; b < e.End(); b++ {
			covered[b] = true
		}
		freeTotal += e.Length
		prev = e
		first = false
	}

	allocatedCount := 0
	for i, free := range covered {
		allocated := m.bitmap.Get(i)
		if allocated == free {
			errs.add("block %d: allocated=%t but covered by free chain=%t", i, allocated, free)
		}
		if allocated {
			allocatedCount++
		}
	}
	if allocatedCount != m.allocated {
		errs.add("allocated counter %d does not match bitmap count %d", m.allocated, allocatedCount)
	}
	if freeTotal+m.allocated != m.capacity {
		errs.add("free extents (%d) + allocated blocks (%d) != capacity (%d)", freeTotal, m.allocated, m.capacity)
	}

	fresh := m.scanGroups(nil)
	if len(fresh) != len(m.groups) {
		errs.add("cached groups are stale: %d cached, %d scanned", len(m.groups), len(fresh))
	} else {
		for i := range fresh {
			if fresh[i] != m.groups[i] {
				errs.add("cached group %d is %v, scanned %v", i, m.groups[i], fresh[i])
			}
		}
	}

	extents := m.FreeExtents()
	if len(extents) != len(fresh) {
		errs.add("free chain has %d extents but bitmap has %d groups", len(extents), len(fresh))
	} else {
		for i := range fresh {
			if FreeExtent(fresh[i]) != extents[i] {
				errs.add("group %v does not match extent %v", fresh[i], extents[i])
			}
		}
	}

	if errs.HasViolations() {
		return &errs
	}
	return nil
}
