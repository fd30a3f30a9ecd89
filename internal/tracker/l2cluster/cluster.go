package l2cluster

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/apex-hep/trackseed/internal/tracker/device"
	"github.com/apex-hep/trackseed/internal/tracker/l1cells"
)

// Measurement is the 2D local position and uncertainty of one cell cluster.
type Measurement struct {
	Local0, Local1       float64
	Variance0, Variance1 float64
	ModuleLink           uint32

	// Cells holds the event-wide indices of the contributing cells, kept for
	// truth matching and debugging.
	Cells []int32
}

// Clusterize groups cells into connected components and aggregates each
// component into a measurement. It returns the measurement collection and a
// cell→measurement link table (cellLinks[i] is the measurement index of
// cell i). Cells must be sorted by (module, channel1, channel0).
//
// The stage runs as two passes over the partitions: a labelling pass that
// counts components per partition, and, once the measurement buffer has
// been sized exactly from those counts, an aggregation pass that fills
// reserved slots. The label arenas survive
// between the passes so FastSV runs once per partition.
func Clusterize(ctx context.Context, pool *device.Pool, cells []l1cells.Cell,
	modules []l1cells.Module, params Params) ([]Measurement, []int32, error) {

	if len(cells) == 0 {
		return nil, nil, nil
	}

	parts, err := MakePartitions(cells, params)
	if err != nil {
		return nil, nil, err
	}

	labels := make([][]uint32, len(parts))
	counts := make([]uint32, len(parts))

	// Pass 1: label components and count representatives per partition.
	err = pool.ForEachGroup(ctx, len(parts), func(g int) error {
		p := parts[g]
		parent := make([]uint32, p.Len())
		grand := make([]uint32, p.Len())
		labels[g] = fastSV(cells[p.Lo:p.Hi], parent, grand)
		var reps uint32
		for i, l := range labels[g] {
			if l == uint32(i) {
				reps++
			}
		}
		counts[g] = reps
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("l2cluster: labelling pass: %w", err)
	}

	offsets, total := device.PrefixSum(counts)
	measurements := make([]Measurement, total)
	cellLinks := make([]int32, len(cells))

	// Pass 2: representatives claim slots in partition-local order and
	// aggregate their clusters.
	err = pool.ForEachGroup(ctx, len(parts), func(g int) error {
		p := parts[g]
		part := cells[p.Lo:p.Hi]
		lab := labels[g]

		// Slot assignment: group-local counter over representatives.
		slot := make(map[uint32]uint32, counts[g])
		var next uint32
		for i, l := range lab {
			if l == uint32(i) {
				slot[l] = offsets[g] + next
				next++
			}
		}
		if next != counts[g] {
			return fmt.Errorf("partition %d: %d representatives, counted %d", g, next, counts[g])
		}

		// Gather members per slot, then aggregate.
		members := make(map[uint32][]int, counts[g])
		for i, l := range lab {
			s := slot[l]
			members[s] = append(members[s], i)
			cellLinks[p.Lo+i] = int32(s)
		}
		for s, idxs := range members {
			measurements[s] = aggregate(part, idxs, p.Lo, modules)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("l2cluster: aggregation pass: %w", err)
	}

	return measurements, cellLinks, nil
}

// aggregate reduces one cluster's cells to a measurement: the
// activation-weighted centroid of the channel coordinates, converted to
// module-local position, with the digitization binary-resolution variance
// widened by the centroid's standard error.
func aggregate(part []l1cells.Cell, idxs []int, base int, modules []l1cells.Module) Measurement {
	c0 := make([]float64, len(idxs))
	c1 := make([]float64, len(idxs))
	w := make([]float64, len(idxs))
	cellIdx := make([]int32, len(idxs))
	for k, i := range idxs {
		c0[k] = float64(part[i].Channel0)
		c1[k] = float64(part[i].Channel1)
		w[k] = float64(part[i].Activation)
		cellIdx[k] = int32(base + i)
	}

	mod := modules[part[idxs[0]].ModuleLink]
	dig := mod.Digitization

	mean0 := stat.Mean(c0, w)
	mean1 := stat.Mean(c1, w)
	var0 := popVariance(c0, mean0)
	var1 := popVariance(c1, mean1)
	n := float64(len(idxs))

	return Measurement{
		Local0:     dig.Offset0 + (mean0+0.5)*dig.Pitch0,
		Local1:     dig.Offset1 + (mean1+0.5)*dig.Pitch1,
		Variance0:  dig.Variance0() + dig.Pitch0*dig.Pitch0*var0/n,
		Variance1:  dig.Variance1() + dig.Pitch1*dig.Pitch1*var1/n,
		ModuleLink: part[idxs[0]].ModuleLink,
		Cells:      cellIdx,
	}
}

// popVariance is the population variance about a given mean. The weighted
// unbiased estimator is undefined for single-cell clusters, which are the
// common case, so the population form is used for the spread term.
func popVariance(xs []float64, mean float64) float64 {
	var s float64
	for _, x := range xs {
		d := x - mean
		s += d * d
	}
	return s / float64(len(xs))
}
