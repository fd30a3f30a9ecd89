package l4seeding

import (
	"context"
	"fmt"

	"github.com/apex-hep/trackseed/internal/tracker/device"
	"github.com/apex-hep/trackseed/internal/tracker/l3spacepoints"
)

// tripletBuffers holds the materialised triplets; each middle candidate's
// triplets are contiguous, located by its TripletCounter.
type tripletBuffers struct {
	counters []TripletCounter
	triplets []Triplet
}

// middleRange returns middle candidate i's slice of triplets.
func (t *tripletBuffers) middleRange(i int) []Triplet {
	c := t.counters[i]
	return t.triplets[c.First : c.First+c.Count]
}

// countTriplets is the triplet counting pass. It produces a per-mid-bottom-
// doublet partial count (indexed like the mid-bottom doublet buffer) and a
// per-middle TripletCounter holding the middle's total; the grand total and
// exact offsets come from the host-side reduction over the partials.
func countTriplets(ctx context.Context, pool *device.Pool, cfg *FinderConfig,
	sps []l3spacepoints.Spacepoint, db *doubletBuffers) ([]uint32, []TripletCounter, error) {

	partials := make([]uint32, len(db.midBottom))
	counters := make([]TripletCounter, len(db.counters))

	blocks := device.BlockCount(len(db.counters), seedBlockSize)
	err := pool.ForEachGroup(ctx, blocks, func(g int) error {
		lo, hi := device.BlockRange(g, seedBlockSize, len(db.counters))
		var topLC []linCircle
		for i := lo; i < hi; i++ {
			counters[i].Middle = db.counters[i].Middle
			bottomsAt, tops := db.bottomRange(i), db.topRange(i)
			if len(bottomsAt) == 0 || len(tops) == 0 {
				continue
			}
			m := &sps[db.counters[i].Middle]
			topLC = topLC[:0]
			for _, d := range tops {
				topLC = append(topLC, transformCoordinates(m, &sps[d.Other], false))
			}
			var middleTotal uint32
			for k, d := range bottomsAt {
				lb := transformCoordinates(m, &sps[d.Other], true)
				var n uint32
				for _, lt := range topLC {
					if _, ok := fitTriplet(cfg, m, lb, lt); ok {
						n++
					}
				}
				partials[db.bottomOff[i]+uint32(k)] = n
				middleTotal += n
			}
			counters[i].Count = middleTotal
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("triplet counting: %w", err)
	}
	return partials, counters, nil
}

// fillTriplets sizes the triplet buffer from the reduction over the partial
// counts, then re-runs the compatibility scan writing each triplet at its
// reserved offset. The initial weight is the impact-parameter penalty.
func fillTriplets(ctx context.Context, pool *device.Pool, cfg *FinderConfig, filter *FilterConfig,
	sps []l3spacepoints.Spacepoint, db *doubletBuffers,
	partials []uint32, counters []TripletCounter) (*tripletBuffers, error) {

	offsets, total := device.PrefixSum(partials)
	for i := range counters {
		if counters[i].Count > 0 {
			counters[i].First = offsets[db.bottomOff[i]]
		}
	}
	buf := &tripletBuffers{counters: counters, triplets: make([]Triplet, total)}

	blocks := device.BlockCount(len(db.counters), seedBlockSize)
	err := pool.ForEachGroup(ctx, blocks, func(g int) error {
		lo, hi := device.BlockRange(g, seedBlockSize, len(db.counters))
		var topLC []linCircle
		for i := lo; i < hi; i++ {
			bottomsAt, tops := db.bottomRange(i), db.topRange(i)
			if len(bottomsAt) == 0 || len(tops) == 0 {
				continue
			}
			mLink := db.counters[i].Middle
			m := &sps[mLink]
			topLC = topLC[:0]
			for _, d := range tops {
				topLC = append(topLC, transformCoordinates(m, &sps[d.Other], false))
			}
			for k, d := range bottomsAt {
				bi := db.bottomOff[i] + uint32(k)
				lb := transformCoordinates(m, &sps[d.Other], true)
				var n uint32
				for t, lt := range topLC {
					fit, ok := fitTriplet(cfg, m, lb, lt)
					if !ok {
						continue
					}
					buf.triplets[offsets[bi]+n] = Triplet{
						Bottom:    d.Other,
						Middle:    mLink,
						Top:       tops[t].Other,
						Curvature: fit.curvature,
						Weight:    -fit.impact * filter.ImpactWeightFactor,
						ZVertex:   fit.zVertex,
					}
					n++
				}
				if n != partials[bi] {
					return fmt.Errorf("triplet fill mismatch at doublet %d: %d vs counted %d",
						bi, n, partials[bi])
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("triplet filling: %w", err)
	}
	return buf, nil
}
