package spacemgr

import "fmt"

// FreeExtent is a run of free blocks in the free chain.
type FreeExtent struct {
	Start  int // first block, inclusive
	Length int
}

// End returns the first block past the extent.
func (e FreeExtent) End() int {
	return e.Start + e.Length
}

// Contains reports whether [start, start+n) lies entirely within the extent.
func (e FreeExtent) Contains(start, n int) bool {
	return e.Start <= start && start+n <= e.End()
}

// Touches reports whether [start, start+n) overlaps or abuts the extent.
func (e FreeExtent) Touches(start, n int) bool {
	return e.Start <= start+n && start <= e.End()
}

func (e FreeExtent) String() string {
	return fmt.Sprintf("[%d:%d]", e.Start, e.End())
}

// Group is a maximal run of free blocks derived from the bitmap.
type Group struct {
	Start  int
	Length int
}

func (g Group) End() int {
	return g.Start + g.Length
}

func (g Group) String() string {
	return fmt.Sprintf("[%d:%d)", g.Start, g.End())
}
