// Package l1cells holds the raw-hit event data model and the per-event cell
// reader. A cell is one activated readout channel on one module; the reader
// returns cells grouped by module and sorted by channel, which is the order
// the clustering stage's partitioning relies on.
package l1cells

import "github.com/apex-hep/trackseed/internal/tracker/geometry"

// Cell is a single detector readout hit. ModuleLink indexes the event's
// module collection, not the global detector map.
type Cell struct {
	Channel0   int32
	Channel1   int32
	Activation float32
	ModuleLink uint32
}

// Module aliases the geometry module context; the event-local module
// collection is the subset of the detector actually hit in this event.
type Module = geometry.Module

// SameModule reports whether two cells sit on the same module.
func SameModule(a, b Cell) bool { return a.ModuleLink == b.ModuleLink }

// Adjacent reports whether two cells on the same module touch, using
// 8-connectivity on channel coordinates.
func Adjacent(a, b Cell) bool {
	if a.ModuleLink != b.ModuleLink {
		return false
	}
	d0 := a.Channel0 - b.Channel0
	d1 := a.Channel1 - b.Channel1
	return d0 >= -1 && d0 <= 1 && d1 >= -1 && d1 <= 1
}
