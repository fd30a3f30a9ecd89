package l2cluster

import (
	"fmt"

	"github.com/apex-hep/trackseed/internal/tracker/l1cells"
)

// Partition is a contiguous half-open cell range [Lo, Hi) processed by one
// work-group.
type Partition struct {
	Lo, Hi int
}

// Len returns the partition's cell count.
func (p Partition) Len() int { return p.Hi - p.Lo }

// splittable reports whether a partition boundary may fall between
// consecutive sorted cells a and b. A boundary is legal only where no
// connected component can cross it: a module change, or a gap of more than
// one channel1 row (cells are sorted by (module, channel1, channel0), and
// 8-connectivity cannot bridge a row gap of two).
func splittable(a, b l1cells.Cell) bool {
	return a.ModuleLink != b.ModuleLink || b.Channel1-a.Channel1 > 1
}

// MakePartitions splits sorted cells into partitions of roughly
// TargetPartitionSize, pushing each boundary forward to the next legal split
// point. Returns ErrPartitionOverflow if any partition would exceed
// MaxPartitionSize.
func MakePartitions(cells []l1cells.Cell, params Params) ([]Partition, error) {
	if params.TargetPartitionSize <= 0 || params.MaxPartitionSize < params.TargetPartitionSize {
		return nil, fmt.Errorf("l2cluster: invalid partition sizes target=%d max=%d",
			params.TargetPartitionSize, params.MaxPartitionSize)
	}

	var parts []Partition
	lo := 0
	for lo < len(cells) {
		hi := lo + params.TargetPartitionSize
		if hi >= len(cells) {
			hi = len(cells)
		} else {
			for hi < len(cells) && !splittable(cells[hi-1], cells[hi]) {
				hi++
			}
		}
		if hi-lo > params.MaxPartitionSize {
			return nil, fmt.Errorf("%w: %d cells at [%d,%d), max %d",
				ErrPartitionOverflow, hi-lo, lo, hi, params.MaxPartitionSize)
		}
		parts = append(parts, Partition{Lo: lo, Hi: hi})
		lo = hi
	}
	return parts, nil
}
