package l3spacepoints

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/apex-hep/trackseed/internal/tracker/device"
)

// GridParams configures the (phi, z) binning.
type GridParams struct {
	PhiBins    int
	ZBins      int
	ZMin, ZMax float64
}

// DefaultGridParams returns a binning suitable for a barrel-style layout in
// millimetres.
func DefaultGridParams() GridParams {
	return GridParams{PhiBins: 36, ZBins: 12, ZMin: -500, ZMax: 500}
}

// Grid is a read-only (phi, z) spatial index over spacepoint links, stored
// as one flat link array with per-bin offsets (counting pass, prefix sum,
// fill pass). Bins are addressed as phiBin*ZBins + zBin.
type Grid struct {
	params  GridParams
	offsets []uint32 // len = bins+1, exclusive prefix over bin counts
	links   []uint32 // spacepoint links grouped by bin
}

const gridBlockSize = 256

// BuildGrid bins all spacepoints. Spacepoints with z outside the configured
// range are clamped to the edge bins: the grid is a locality accelerator,
// not a filter, and every spacepoint must remain reachable as a middle
// candidate.
func BuildGrid(ctx context.Context, pool *device.Pool, sps []Spacepoint, params GridParams) (*Grid, error) {
	if params.PhiBins <= 0 || params.ZBins <= 0 || params.ZMax <= params.ZMin {
		return nil, fmt.Errorf("l3spacepoints: invalid grid params %+v", params)
	}
	bins := params.PhiBins * params.ZBins
	counts := make([]atomic.Uint32, bins)
	blocks := device.BlockCount(len(sps), gridBlockSize)

	// Counting pass.
	err := pool.ForEachGroup(ctx, blocks, func(g int) error {
		lo, hi := device.BlockRange(g, gridBlockSize, len(sps))
		for i := lo; i < hi; i++ {
			counts[binOf(sps[i], params)].Add(1)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	flat := make([]uint32, bins)
	for i := range counts {
		flat[i] = counts[i].Load()
	}
	offsets, total := device.PrefixSum(flat)
	if int(total) != len(sps) {
		return nil, fmt.Errorf("l3spacepoints: counted %d links for %d spacepoints", total, len(sps))
	}

	// Fill pass: per-bin atomic cursors hand out reserved slots.
	links := make([]uint32, total)
	cursors := make([]atomic.Uint32, bins)
	err = pool.ForEachGroup(ctx, blocks, func(g int) error {
		lo, hi := device.BlockRange(g, gridBlockSize, len(sps))
		for i := lo; i < hi; i++ {
			b := binOf(sps[i], params)
			links[offsets[b]+cursors[b].Add(1)-1] = uint32(i)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	full := append(offsets, total)
	return &Grid{params: params, offsets: full, links: links}, nil
}

func binOf(sp Spacepoint, p GridParams) int {
	phiBin := int(math.Floor((sp.Phi + math.Pi) / (2 * math.Pi) * float64(p.PhiBins)))
	if phiBin >= p.PhiBins {
		phiBin = p.PhiBins - 1 // phi == +pi lands on the last bin
	}
	if phiBin < 0 {
		phiBin = 0
	}
	zBin := int(math.Floor((sp.Z - p.ZMin) / (p.ZMax - p.ZMin) * float64(p.ZBins)))
	if zBin < 0 {
		zBin = 0
	}
	if zBin >= p.ZBins {
		zBin = p.ZBins - 1
	}
	return phiBin*p.ZBins + zBin
}

// Params returns the grid configuration.
func (g *Grid) Params() GridParams { return g.params }

// NumBins returns the total bin count.
func (g *Grid) NumBins() int { return g.params.PhiBins * g.params.ZBins }

// NumLinks returns the total number of binned spacepoint links.
func (g *Grid) NumLinks() int { return len(g.links) }

// Bin returns the spacepoint links of one bin. The slice aliases grid
// storage and must not be mutated.
func (g *Grid) Bin(b int) []uint32 {
	return g.links[g.offsets[b]:g.offsets[b+1]]
}

// Link returns the i-th link in the grid's flattened bin order. Seed finding
// iterates middle candidates through this index so work splits evenly
// regardless of bin occupancy.
func (g *Grid) Link(i int) uint32 { return g.links[i] }

// NeighborBins appends to dst the bins within the given phi and z windows of
// bin b, including b itself. Phi wraps; z clamps at the detector ends.
func (g *Grid) NeighborBins(dst []int, b, phiWindow, zWindow int) []int {
	phiBin := b / g.params.ZBins
	zBin := b % g.params.ZBins
	for dp := -phiWindow; dp <= phiWindow; dp++ {
		p := (phiBin + dp + g.params.PhiBins) % g.params.PhiBins
		for dz := -zWindow; dz <= zWindow; dz++ {
			z := zBin + dz
			if z < 0 || z >= g.params.ZBins {
				continue
			}
			dst = append(dst, p*g.params.ZBins+z)
		}
	}
	return dst
}

// BinOfLink returns the bin holding flattened link index i.
func (g *Grid) BinOfLink(i int) int {
	// Binary search over offsets; bins are few and this is off the hot path.
	lo, hi := 0, g.NumBins()-1
	for lo < hi {
		mid := (lo + hi) / 2
		if uint32(i) >= g.offsets[mid+1] {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
