package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/garethgeorge/hybridspace/internal/report"
	"github.com/garethgeorge/hybridspace/internal/spacemgr"
)

const (
	FreeGlyph      = '.'
	AllocatedGlyph = '#'
)

// Grid writes the device as rows of cols blocks, each prefixed with the index
// of its first block.
func Grid(w io.Writer, m *spacemgr.Manager, cols int) error {
	if cols < 1 {
		return fmt.Errorf("grid columns must be positive, got %d", cols)
	}
	width := len(fmt.Sprint(max(m.Capacity()-1, 0)))
	row := make([]byte, 0, cols)
	for start := 0; start < m.Capacity(); start += cols {
		row = row[:0]
		for i := start; i < min(start+cols, m.Capacity()); i++ {
			if m.IsAllocated(i) {
				row = append(row, AllocatedGlyph)
			} else {
				row = append(row, FreeGlyph)
			}
		}
		if _, err := fmt.Fprintf(w, "%*d %s\n", width, start, row); err != nil {
			return err
		}
	}
	return nil
}

// Chain formats the free chain as "[s:e] -> [s:e]", or "Empty".
func Chain(extents []spacemgr.FreeExtent) string {
	if len(extents) == 0 {
		return "Empty"
	}
	parts := make([]string, len(extents))
	for i, e := range extents {
		parts[i] = e.String()
	}
	return strings.Join(parts, " -> ")
}

// Status writes the free space report.
func Status(w io.Writer, r report.Report) error {
	var b strings.Builder
	b.WriteString("=== HYBRID FREE SPACE MANAGER INFO ===\n\n")
	fmt.Fprintf(&b, "Total Disk Size: %d blocks\n", r.Capacity)
	fmt.Fprintf(&b, "Allocated: %d blocks | Free: %d blocks\n", r.Allocated, r.Free)
	fmt.Fprintf(&b, "Fragmentation: %d free groups (%.0f%%)\n", len(r.Groups), r.Fragmentation*100)
	fmt.Fprintf(&b, "Fingerprint: %016x\n\n", r.Fingerprint)

	b.WriteString("LINKED LIST (Free Extents):\n")
	b.WriteString(Chain(r.Extents))
	b.WriteString("\n\n")

	b.WriteString("FREE SPACE GROUPS:\n")
	if len(r.Groups) == 0 {
		b.WriteString("  No free space available\n")
	}
	for i, g := range r.Groups {
		fmt.Fprintf(&b, "  Group %d: Start=%d, Size=%d blocks\n", i+1, g.Start, g.Length)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
