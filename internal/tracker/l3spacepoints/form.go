// Package l3spacepoints lifts measurements into 3D global spacepoints and
// builds the (phi, z) grid that seed finding uses for locality-aware
// neighbour search. A spacepoint's index in the flat collection is the
// stable link every downstream stage carries instead of a pointer.
package l3spacepoints

import (
	"context"
	"math"

	"github.com/apex-hep/trackseed/internal/tracker/device"
	"github.com/apex-hep/trackseed/internal/tracker/l1cells"
	"github.com/apex-hep/trackseed/internal/tracker/l2cluster"
)

// Spacepoint is a 3D global-frame point derived from one measurement.
// Radius and Phi are cached cylindrical coordinates of (X, Y).
type Spacepoint struct {
	X, Y, Z         float64
	Radius, Phi     float64
	MeasurementLink uint32
}

// formBlockSize is the number of measurements one work-group converts.
const formBlockSize = 256

// Form converts every measurement to a spacepoint through its module's
// placement transform. Output index i corresponds to measurement i, so the
// stage is a fully data-parallel map with a statically known output size.
func Form(ctx context.Context, pool *device.Pool, measurements []l2cluster.Measurement,
	modules []l1cells.Module) ([]Spacepoint, error) {

	out := make([]Spacepoint, len(measurements))
	blocks := device.BlockCount(len(measurements), formBlockSize)
	err := pool.ForEachGroup(ctx, blocks, func(g int) error {
		lo, hi := device.BlockRange(g, formBlockSize, len(measurements))
		for i := lo; i < hi; i++ {
			m := measurements[i]
			x, y, z := modules[m.ModuleLink].Placement.Apply(m.Local0, m.Local1, 0)
			out[i] = Spacepoint{
				X: x, Y: y, Z: z,
				Radius:          math.Hypot(x, y),
				Phi:             math.Atan2(y, x),
				MeasurementLink: uint32(i),
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
