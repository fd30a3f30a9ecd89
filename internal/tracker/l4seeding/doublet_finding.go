package l4seeding

import (
	"context"
	"fmt"

	"github.com/apex-hep/trackseed/internal/tracker/device"
	"github.com/apex-hep/trackseed/internal/tracker/l3spacepoints"
)

// seedBlockSize is the number of middle candidates per work-group.
const seedBlockSize = 64

// doubletBuffers holds the materialised doublets plus the per-middle offsets
// that keep each middle candidate's doublets contiguous.
type doubletBuffers struct {
	counters  []DoubletCounter
	bottomOff []uint32
	topOff    []uint32
	midBottom []Doublet
	midTop    []Doublet
}

// scanMiddle visits every compatible doublet partner of middle candidate
// mid (a flattened grid index) in a deterministic order. Both the counting
// and filling passes iterate through this single function, so their views
// of the neighbourhood are identical by construction.
func scanMiddle(cfg *FinderConfig, sps []l3spacepoints.Spacepoint, grid *l3spacepoints.Grid,
	mid int, binScratch []int, visit func(other Link, bottom bool)) []int {

	mLink := grid.Link(mid)
	m := &sps[mLink]
	binScratch = grid.NeighborBins(binScratch[:0], grid.BinOfLink(mid), cfg.PhiBinWindow, cfg.ZBinWindow)
	for _, b := range binScratch {
		for _, oLink := range grid.Bin(b) {
			if oLink == mLink {
				continue
			}
			o := &sps[oLink]
			if compatibleBottom(cfg, m, o) {
				visit(oLink, true)
			}
			if compatibleTop(cfg, m, o) {
				visit(oLink, false)
			}
		}
	}
	return binScratch
}

// countDoublets is the doublet counting pass: one DoubletCounter per middle
// candidate, filled block-parallel.
func countDoublets(ctx context.Context, pool *device.Pool, cfg *FinderConfig,
	sps []l3spacepoints.Spacepoint, grid *l3spacepoints.Grid) ([]DoubletCounter, error) {

	counters := make([]DoubletCounter, grid.NumLinks())
	blocks := device.BlockCount(len(counters), seedBlockSize)
	err := pool.ForEachGroup(ctx, blocks, func(g int) error {
		lo, hi := device.BlockRange(g, seedBlockSize, len(counters))
		var bins []int
		for i := lo; i < hi; i++ {
			c := DoubletCounter{Middle: grid.Link(i)}
			bins = scanMiddle(cfg, sps, grid, i, bins, func(_ Link, bottom bool) {
				if bottom {
					c.Bottoms++
				} else {
					c.Tops++
				}
			})
			counters[i] = c
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("doublet counting: %w", err)
	}
	return counters, nil
}

// fillDoublets re-runs the neighbourhood scan and writes doublet records at
// the offsets reserved by the counting pass. A count/fill mismatch is an
// implementation bug and fails the stage.
func fillDoublets(ctx context.Context, pool *device.Pool, cfg *FinderConfig,
	sps []l3spacepoints.Spacepoint, grid *l3spacepoints.Grid,
	counters []DoubletCounter) (*doubletBuffers, error) {

	bottoms := make([]uint32, len(counters))
	tops := make([]uint32, len(counters))
	for i, c := range counters {
		bottoms[i] = c.Bottoms
		tops[i] = c.Tops
	}
	bottomOff, bottomTotal := device.PrefixSum(bottoms)
	topOff, topTotal := device.PrefixSum(tops)

	buf := &doubletBuffers{
		counters:  counters,
		bottomOff: bottomOff,
		topOff:    topOff,
		midBottom: make([]Doublet, bottomTotal),
		midTop:    make([]Doublet, topTotal),
	}

	blocks := device.BlockCount(len(counters), seedBlockSize)
	err := pool.ForEachGroup(ctx, blocks, func(g int) error {
		lo, hi := device.BlockRange(g, seedBlockSize, len(counters))
		var bins []int
		for i := lo; i < hi; i++ {
			mLink := grid.Link(i)
			var nb, nt uint32
			bins = scanMiddle(cfg, sps, grid, i, bins, func(other Link, bottom bool) {
				if bottom {
					buf.midBottom[bottomOff[i]+nb] = Doublet{Middle: mLink, Other: other}
					nb++
				} else {
					buf.midTop[topOff[i]+nt] = Doublet{Middle: mLink, Other: other}
					nt++
				}
			})
			if nb != counters[i].Bottoms || nt != counters[i].Tops {
				return fmt.Errorf("doublet fill mismatch at middle %d: (%d,%d) vs counted (%d,%d)",
					i, nb, nt, counters[i].Bottoms, counters[i].Tops)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("doublet filling: %w", err)
	}
	return buf, nil
}

// bottomRange returns middle candidate i's slice of mid-bottom doublets.
func (b *doubletBuffers) bottomRange(i int) []Doublet {
	return b.midBottom[b.bottomOff[i] : b.bottomOff[i]+b.counters[i].Bottoms]
}

// topRange returns middle candidate i's slice of mid-top doublets.
func (b *doubletBuffers) topRange(i int) []Doublet {
	return b.midTop[b.topOff[i] : b.topOff[i]+b.counters[i].Tops]
}
