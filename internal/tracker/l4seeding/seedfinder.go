package l4seeding

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/apex-hep/trackseed/internal/tracker/device"
	"github.com/apex-hep/trackseed/internal/tracker/l3spacepoints"
)

// SeedFinder sequences the seeding stages and owns the inter-stage buffer
// sizing. It holds no per-event state: Find is a pure function of its
// inputs and may run concurrently for different events.
type SeedFinder struct {
	finder FinderConfig
	filter FilterConfig
	pool   *device.Pool
}

// NewSeedFinder validates the configuration up front; capacity mistakes are
// configuration errors, caught before any stage launches.
func NewSeedFinder(finder FinderConfig, filter FilterConfig, pool *device.Pool) (*SeedFinder, error) {
	if err := finder.validate(); err != nil {
		return nil, err
	}
	if err := filter.validate(); err != nil {
		return nil, err
	}
	return &SeedFinder{finder: finder, filter: filter, pool: pool}, nil
}

// Find reconstructs track seeds from a spacepoint collection and its grid.
// Every stage runs count → size → fill, with the pool's completion as the
// synchronisation point before the next stage reads derived counts. The
// call blocks until the full seed collection is produced; on any stage
// failure no partial result is returned.
func (f *SeedFinder) Find(ctx context.Context, sps []l3spacepoints.Spacepoint,
	grid *l3spacepoints.Grid) ([]Seed, Stats, error) {

	stats := Stats{MiddleCandidates: grid.NumLinks()}
	if grid.NumLinks() == 0 {
		return nil, stats, nil
	}

	dCounters, err := countDoublets(ctx, f.pool, &f.finder, sps, grid)
	if err != nil {
		return nil, stats, fmt.Errorf("l4seeding: %w", err)
	}
	db, err := fillDoublets(ctx, f.pool, &f.finder, sps, grid, dCounters)
	if err != nil {
		return nil, stats, fmt.Errorf("l4seeding: %w", err)
	}
	stats.BottomDoublets = len(db.midBottom)
	stats.TopDoublets = len(db.midTop)

	partials, tCounters, err := countTriplets(ctx, f.pool, &f.finder, sps, db)
	if err != nil {
		return nil, stats, fmt.Errorf("l4seeding: %w", err)
	}
	tb, err := fillTriplets(ctx, f.pool, &f.finder, &f.filter, sps, db, partials, tCounters)
	if err != nil {
		return nil, stats, fmt.Errorf("l4seeding: %w", err)
	}
	stats.Triplets = len(tb.triplets)

	var truncatedWeights, truncatedSelections atomic.Int64
	if err := updateWeights(ctx, f.pool, &f.filter, sps, tb, &truncatedWeights); err != nil {
		return nil, stats, fmt.Errorf("l4seeding: %w", err)
	}

	seeds, err := selectSeeds(ctx, f.pool, &f.filter, tb, &truncatedSelections)
	if err != nil {
		return nil, stats, fmt.Errorf("l4seeding: %w", err)
	}
	stats.Seeds = len(seeds)
	stats.TruncatedWeightGroups = truncatedWeights.Load()
	stats.TruncatedSelections = truncatedSelections.Load()
	return seeds, stats, nil
}
