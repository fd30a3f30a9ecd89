package l4seeding

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/apex-hep/trackseed/internal/tracker/device"
	"github.com/apex-hep/trackseed/internal/tracker/l3spacepoints"
)

// updateWeights adjusts every triplet's weight against the other triplets
// sharing its middle spacepoint: triplets whose inverse helix diameters
// agree within DeltaInvHelixDiameter compete for the same physical track,
// and each distinct compatible top radius raises the weight by
// CompatSeedWeight. The comparison scratch is bounded by CompatSeedLimit;
// overflow truncates silently and is only counted in truncated.
//
// Middle ranges are disjoint slices of the shared triplet buffer, so groups
// mutate only their own triplets' weights.
func updateWeights(ctx context.Context, pool *device.Pool, filter *FilterConfig,
	sps []l3spacepoints.Spacepoint, tb *tripletBuffers, truncated *atomic.Int64) error {

	blocks := device.BlockCount(len(tb.counters), seedBlockSize)
	err := pool.ForEachGroup(ctx, blocks, func(g int) error {
		lo, hi := device.BlockRange(g, seedBlockSize, len(tb.counters))
		scratch := device.NewScratch[float64](filter.CompatSeedLimit)
		for i := lo; i < hi; i++ {
			triplets := tb.middleRange(i)
			for t := range triplets {
				scratch.Reset()
				for u := range triplets {
					if u == t {
						continue
					}
					if math.Abs(triplets[t].Curvature-triplets[u].Curvature) > filter.DeltaInvHelixDiameter {
						continue
					}
					rT := sps[triplets[u].Top].Radius
					if containsRadius(scratch.Items(), rT) {
						continue
					}
					if scratch.Push(rT) {
						triplets[t].Weight += filter.CompatSeedWeight
					}
				}
				if scratch.Truncated() {
					truncated.Add(1)
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("weight updating: %w", err)
	}
	return nil
}

// containsRadius reports whether r is already recorded; compatible seeds on
// the same top radius are one measurement seen twice, not independent
// confirmation.
func containsRadius(rs []float64, r float64) bool {
	for _, x := range rs {
		if x == r {
			return true
		}
	}
	return false
}
