package l4seeding

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/apex-hep/trackseed/internal/tracker/device"
)

// topCandidates is the bounded, rank-ordered candidate pool one middle
// spacepoint uses during seed selection: a fixed-capacity array kept sorted
// by descending weight, with explicit truncation accounting instead of
// growth.
type topCandidates struct {
	items   []Triplet
	dropped int
}

func newTopCandidates(capacity int) *topCandidates {
	return &topCandidates{items: make([]Triplet, 0, capacity)}
}

// insert offers a triplet to the pool. A duplicate (bottom, top) pair keeps
// only the heavier of the two; a full pool drops the lightest candidate.
func (tc *topCandidates) insert(t Triplet) {
	for i := range tc.items {
		if tc.items[i].Bottom == t.Bottom && tc.items[i].Top == t.Top {
			if t.Weight > tc.items[i].Weight {
				tc.items[i] = t
				tc.sortUp(i)
			}
			return
		}
	}
	if len(tc.items) == cap(tc.items) {
		tc.dropped++
		if t.Weight <= tc.items[len(tc.items)-1].Weight {
			return
		}
		tc.items[len(tc.items)-1] = t
		tc.sortUp(len(tc.items) - 1)
		return
	}
	tc.items = append(tc.items, t)
	tc.sortUp(len(tc.items) - 1)
}

// sortUp restores descending weight order after position i changed.
func (tc *topCandidates) sortUp(i int) {
	for i > 0 && tc.items[i].Weight > tc.items[i-1].Weight {
		tc.items[i], tc.items[i-1] = tc.items[i-1], tc.items[i]
		i--
	}
}

// selectForMiddle runs the full selection for one middle candidate and
// returns its seeds in rank order. Pure: the counting and filling passes
// both call it, so emitted counts always match materialised counts.
func selectForMiddle(triplets []Triplet, pool *topCandidates) []Triplet {
	pool.items = pool.items[:0]
	pool.dropped = 0
	for _, t := range triplets {
		pool.insert(t)
	}
	return pool.items
}

// selectSeeds is the seed-selection stage: a counting pass sizing the seed
// buffer per middle spacepoint, then a filling pass writing seeds at
// prefix-summed offsets with a device-wide atomic guarding the grand total.
func selectSeeds(ctx context.Context, pool *device.Pool, filter *FilterConfig,
	tb *tripletBuffers, truncated *atomic.Int64) ([]Seed, error) {

	counts := make([]uint32, len(tb.counters))
	blocks := device.BlockCount(len(tb.counters), seedBlockSize)

	err := pool.ForEachGroup(ctx, blocks, func(g int) error {
		lo, hi := device.BlockRange(g, seedBlockSize, len(tb.counters))
		cands := newTopCandidates(filter.MaxSeedsPerMiddle)
		for i := lo; i < hi; i++ {
			selected := selectForMiddle(tb.middleRange(i), cands)
			counts[i] = uint32(len(selected))
			if cands.dropped > 0 {
				truncated.Add(int64(cands.dropped))
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seed counting: %w", err)
	}

	offsets, total := device.PrefixSum(counts)
	seeds := make([]Seed, total)
	var written atomic.Uint32

	err = pool.ForEachGroup(ctx, blocks, func(g int) error {
		lo, hi := device.BlockRange(g, seedBlockSize, len(tb.counters))
		cands := newTopCandidates(filter.MaxSeedsPerMiddle)
		for i := lo; i < hi; i++ {
			selected := selectForMiddle(tb.middleRange(i), cands)
			if uint32(len(selected)) != counts[i] {
				return fmt.Errorf("seed fill mismatch at middle %d: %d vs counted %d",
					i, len(selected), counts[i])
			}
			for k, t := range selected {
				seeds[offsets[i]+uint32(k)] = Seed{
					Bottom:  t.Bottom,
					Middle:  t.Middle,
					Top:     t.Top,
					Weight:  t.Weight,
					ZVertex: t.ZVertex,
				}
			}
			written.Add(counts[i])
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seed filling: %w", err)
	}
	if written.Load() != total {
		return nil, fmt.Errorf("seed selection wrote %d of %d reserved slots", written.Load(), total)
	}
	return seeds, nil
}
