// Package pipeline is the composition root of the reconstruction chain:
// cells → measurements → spacepoints → grid → seeds → track parameters.
// It imports the layer packages and storage; none of them import pipeline.
package pipeline

import (
	"context"
	"fmt"

	"github.com/apex-hep/trackseed/internal/monitoring"
	"github.com/apex-hep/trackseed/internal/tracker/device"
	"github.com/apex-hep/trackseed/internal/tracker/l1cells"
	"github.com/apex-hep/trackseed/internal/tracker/l2cluster"
	"github.com/apex-hep/trackseed/internal/tracker/l3spacepoints"
	"github.com/apex-hep/trackseed/internal/tracker/l4seeding"
	"github.com/apex-hep/trackseed/internal/tracker/l5params"
)

// Result bundles one event's reconstruction outputs. Collections are
// exact-sized; Params[i] belongs to Seeds[i].
type Result struct {
	Measurements []l2cluster.Measurement
	CellLinks    []int32
	Spacepoints  []l3spacepoints.Spacepoint
	Seeds        []l4seeding.Seed
	Params       []l5params.BoundParams
	SeedStats    l4seeding.Stats
}

// PersistenceSink receives completed events. Implementations live outside
// the layer packages (storage/sqlite provides one).
type PersistenceSink interface {
	PersistEvent(eventID int, res *Result) error
}

// Config holds the stage configurations and optional collaborators.
type Config struct {
	Cluster l2cluster.Params
	Grid    l3spacepoints.GridParams
	Finder  l4seeding.FinderConfig
	Filter  l4seeding.FilterConfig

	// BFieldZ is the longitudinal magnetic field in tesla, used only by
	// parameter estimation.
	BFieldZ float64

	// Workers caps concurrent work-groups; zero means one per CPU.
	Workers int

	// Sink, when non-nil, receives every completed event.
	Sink PersistenceSink
}

// DefaultConfig returns the standard stage parameters with a 2 T field.
func DefaultConfig() Config {
	return Config{
		Cluster: l2cluster.DefaultParams(),
		Grid:    l3spacepoints.DefaultGridParams(),
		Finder:  l4seeding.DefaultFinderConfig(),
		Filter:  l4seeding.DefaultFilterConfig(),
		BFieldZ: 2.0,
	}
}

// Pipeline runs events through the full chain. Safe for concurrent use;
// all per-event state lives in the Result.
type Pipeline struct {
	cfg    Config
	pool   *device.Pool
	finder *l4seeding.SeedFinder
}

// New validates the configuration and builds the pipeline.
func New(cfg Config) (*Pipeline, error) {
	pool := device.NewPool(cfg.Workers)
	finder, err := l4seeding.NewSeedFinder(cfg.Finder, cfg.Filter, pool)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return &Pipeline{cfg: cfg, pool: pool, finder: finder}, nil
}

// ProcessEvent reconstructs one event. Cells must be sorted in the reader's
// canonical order. The call blocks until every stage has completed; a stage
// failure aborts the event with no partial result and no sink call.
func (p *Pipeline) ProcessEvent(ctx context.Context, eventID int,
	cells []l1cells.Cell, modules []l1cells.Module) (*Result, error) {

	res := &Result{}
	var err error

	res.Measurements, res.CellLinks, err = l2cluster.Clusterize(ctx, p.pool, cells, modules, p.cfg.Cluster)
	if err != nil {
		return nil, fmt.Errorf("event %d: %w", eventID, err)
	}

	res.Spacepoints, err = l3spacepoints.Form(ctx, p.pool, res.Measurements, modules)
	if err != nil {
		return nil, fmt.Errorf("event %d: spacepoint formation: %w", eventID, err)
	}

	grid, err := l3spacepoints.BuildGrid(ctx, p.pool, res.Spacepoints, p.cfg.Grid)
	if err != nil {
		return nil, fmt.Errorf("event %d: %w", eventID, err)
	}

	res.Seeds, res.SeedStats, err = p.finder.Find(ctx, res.Spacepoints, grid)
	if err != nil {
		return nil, fmt.Errorf("event %d: %w", eventID, err)
	}

	res.Params, err = l5params.EstimateAll(ctx, p.pool, res.Seeds, res.Spacepoints, p.cfg.BFieldZ)
	if err != nil {
		return nil, fmt.Errorf("event %d: parameter estimation: %w", eventID, err)
	}

	monitoring.Logf("event %d: %d cells -> %d measurements -> %d spacepoints -> %d seeds (doublets %d/%d, triplets %d, truncated %d/%d)",
		eventID, len(cells), len(res.Measurements), len(res.Spacepoints), len(res.Seeds),
		res.SeedStats.BottomDoublets, res.SeedStats.TopDoublets, res.SeedStats.Triplets,
		res.SeedStats.TruncatedWeightGroups, res.SeedStats.TruncatedSelections)

	if p.cfg.Sink != nil {
		if err := p.cfg.Sink.PersistEvent(eventID, res); err != nil {
			return nil, fmt.Errorf("event %d: persist: %w", eventID, err)
		}
	}
	return res, nil
}
