// Package l2cluster groups raw cells into connected components and turns
// each component into one 2D measurement. Cells are split into contiguous
// partitions, one work-group per partition; inside a partition an iterative
// union-find (FastSV) converges on component labels, then each component
// representative aggregates its cells into a measurement.
package l2cluster

import "errors"

// ErrPartitionOverflow is returned when boundary adjustment pushes a
// partition past MaxPartitionSize. This is a configuration error: the target
// partition size is too large for the cell density, and no clustering output
// is produced.
var ErrPartitionOverflow = errors.New("l2cluster: partition exceeds maximum cell capacity")

// Params configures partitioning.
type Params struct {
	// TargetPartitionSize is the cell count a partition aims for. Boundaries
	// are pushed outward from here so no connected component straddles two
	// partitions.
	TargetPartitionSize int

	// MaxPartitionSize is the hard capacity of one partition's label arena.
	// Exceeding it aborts the event with ErrPartitionOverflow.
	MaxPartitionSize int
}

// DefaultParams returns partition sizing suitable for typical pixel
// occupancies.
func DefaultParams() Params {
	return Params{
		TargetPartitionSize: 1024,
		MaxPartitionSize:    2048,
	}
}
