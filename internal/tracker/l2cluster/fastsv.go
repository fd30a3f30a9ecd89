package l2cluster

import "github.com/apex-hep/trackseed/internal/tracker/l1cells"

// fastSV labels the connected components of one partition's cells using the
// iterative FastSV union-find. Indices are partition-local; the returned
// labels satisfy labels[i] == root index of cell i's component. The three
// phases of each iteration (hooking, shortcutting, grandparent refresh) are
// executed as separate loops, matching the barrier-separated phases of the
// parallel formulation, so the result is independent of cell order.
//
// parent and grand are caller-supplied arenas of at least len(cells); they
// are fixed-capacity index arrays, never pointer structures.
func fastSV(cells []l1cells.Cell, parent, grand []uint32) []uint32 {
	n := len(cells)
	parent = parent[:n]
	grand = grand[:n]
	for i := range parent {
		parent[i] = uint32(i)
		grand[i] = uint32(i)
	}

	for changed := true; changed; {
		// Hooking: adopt a neighbour's smaller grandparent, rewriting both
		// our own pointer and our parent's pointer.
		for i := 0; i < n; i++ {
			forEachNeighbour(cells, i, func(j int) {
				hook(parent, grand, i, j)
				hook(parent, grand, j, i)
			})
		}

		// Shortcutting: jump each cell to its grandparent if smaller.
		for i := 0; i < n; i++ {
			if grand[i] < parent[i] {
				parent[i] = grand[i]
			}
		}

		// Grandparent refresh; termination is the group-wide OR of the
		// per-cell changed flags.
		changed = false
		for i := 0; i < n; i++ {
			g := parent[parent[i]]
			if g != grand[i] {
				grand[i] = g
				changed = true
			}
		}
	}
	return parent
}

// hook adopts cell j's grandparent into cell i if it is smaller.
func hook(parent, grand []uint32, i, j int) {
	if g := grand[j]; g < grand[i] {
		if g < parent[parent[i]] {
			parent[parent[i]] = g
		}
		if g < parent[i] {
			parent[i] = g
		}
	}
}

// forEachNeighbour calls fn for every earlier cell adjacent to cell i.
// Cells are sorted by (module, channel1, channel0), so the scan walks
// backwards and stops once it leaves the previous channel1 row.
func forEachNeighbour(cells []l1cells.Cell, i int, fn func(j int)) {
	c := cells[i]
	for j := i - 1; j >= 0; j-- {
		o := cells[j]
		if o.ModuleLink != c.ModuleLink || o.Channel1 < c.Channel1-1 {
			break
		}
		if l1cells.Adjacent(c, o) {
			fn(j)
		}
	}
}
