package l4seeding

import (
	"context"
	"math"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/apex-hep/trackseed/internal/tracker/device"
	"github.com/apex-hep/trackseed/internal/tracker/l3spacepoints"
)

func sp(r, phi, z float64) l3spacepoints.Spacepoint {
	return l3spacepoints.Spacepoint{
		X: r * math.Cos(phi), Y: r * math.Sin(phi), Z: z,
		Radius: r, Phi: phi,
	}
}

func buildGrid(t *testing.T, sps []l3spacepoints.Spacepoint) *l3spacepoints.Grid {
	t.Helper()
	g, err := l3spacepoints.BuildGrid(context.Background(), device.NewPool(4), sps, l3spacepoints.DefaultGridParams())
	if err != nil {
		t.Fatalf("BuildGrid: %v", err)
	}
	return g
}

func newFinder(t *testing.T) *SeedFinder {
	t.Helper()
	f, err := NewSeedFinder(DefaultFinderConfig(), DefaultFilterConfig(), device.NewPool(4))
	if err != nil {
		t.Fatalf("NewSeedFinder: %v", err)
	}
	return f
}

func TestFindSeedOnRadialTrack(t *testing.T) {
	// Three spacepoints on a straight trajectory through the beamline:
	// curvature 0, impact 0, common cot(theta). Must yield exactly one
	// seed linking exactly these three points.
	sps := []l3spacepoints.Spacepoint{
		sp(30, 0.3, 15), // bottom
		sp(60, 0.3, 30), // middle
		sp(90, 0.3, 45), // top
	}
	seeds, stats, err := newFinder(t).Find(context.Background(), sps, buildGrid(t, sps))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(seeds) != 1 {
		t.Fatalf("got %d seeds, want 1 (stats %+v)", len(seeds), stats)
	}
	s := seeds[0]
	if s.Bottom != 0 || s.Middle != 1 || s.Top != 2 {
		t.Errorf("seed links = (%d, %d, %d), want (0, 1, 2)", s.Bottom, s.Middle, s.Top)
	}
	if math.Abs(s.ZVertex) > 1e-9 {
		t.Errorf("ZVertex = %v, want 0", s.ZVertex)
	}
}

func TestFindIsolatedSpacepoint(t *testing.T) {
	sps := []l3spacepoints.Spacepoint{sp(60, 1.0, 0)}
	seeds, stats, err := newFinder(t).Find(context.Background(), sps, buildGrid(t, sps))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(seeds) != 0 {
		t.Errorf("got %d seeds from an isolated spacepoint, want 0", len(seeds))
	}
	if stats.BottomDoublets != 0 || stats.TopDoublets != 0 || stats.Triplets != 0 {
		t.Errorf("stats = %+v, want zero doublets and triplets", stats)
	}
}

func TestFindEmptyInput(t *testing.T) {
	seeds, stats, err := newFinder(t).Find(context.Background(), nil, buildGrid(t, nil))
	if err != nil || len(seeds) != 0 {
		t.Errorf("empty input: seeds=%v err=%v", seeds, err)
	}
	if stats.MiddleCandidates != 0 {
		t.Errorf("MiddleCandidates = %d, want 0", stats.MiddleCandidates)
	}
}

// randomCloud builds a cloud of spacepoints dense enough to exercise every
// stage, including several exact tracks so triplets and seeds exist.
func randomCloud(n int, seed int64) []l3spacepoints.Spacepoint {
	rng := rand.New(rand.NewSource(seed))
	var sps []l3spacepoints.Spacepoint
	for k := 0; k < n/4; k++ {
		phi := rng.Float64()*2*math.Pi - math.Pi
		cot := rng.Float64()*2 - 1
		for _, r := range []float64{30 + rng.Float64()*5, 62 + rng.Float64()*5, 95 + rng.Float64()*5} {
			sps = append(sps, sp(r, phi, r*cot))
		}
	}
	for len(sps) < n {
		sps = append(sps, sp(20+rng.Float64()*130, rng.Float64()*2*math.Pi-math.Pi, rng.Float64()*400-200))
	}
	return sps
}

func TestCountsMatchMaterializedCollections(t *testing.T) {
	sps := randomCloud(400, 11)
	grid := buildGrid(t, sps)
	f := newFinder(t)
	ctx := context.Background()

	dCounters, err := countDoublets(ctx, f.pool, &f.finder, sps, grid)
	if err != nil {
		t.Fatalf("countDoublets: %v", err)
	}
	var wantB, wantT uint32
	for _, c := range dCounters {
		wantB += c.Bottoms
		wantT += c.Tops
	}
	db, err := fillDoublets(ctx, f.pool, &f.finder, sps, grid, dCounters)
	if err != nil {
		t.Fatalf("fillDoublets: %v", err)
	}
	if uint32(len(db.midBottom)) != wantB || uint32(len(db.midTop)) != wantT {
		t.Errorf("materialized doublets (%d, %d), counted (%d, %d)",
			len(db.midBottom), len(db.midTop), wantB, wantT)
	}

	partials, tCounters, err := countTriplets(ctx, f.pool, &f.finder, sps, db)
	if err != nil {
		t.Fatalf("countTriplets: %v", err)
	}
	var wantTriplets uint32
	for _, p := range partials {
		wantTriplets += p
	}
	var perMiddle uint32
	for _, c := range tCounters {
		perMiddle += c.Count
	}
	if perMiddle != wantTriplets {
		t.Errorf("per-middle totals %d disagree with per-doublet partials %d", perMiddle, wantTriplets)
	}
	tb, err := fillTriplets(ctx, f.pool, &f.finder, &f.filter, sps, db, partials, tCounters)
	if err != nil {
		t.Fatalf("fillTriplets: %v", err)
	}
	if uint32(len(tb.triplets)) != wantTriplets {
		t.Errorf("materialized %d triplets, counted %d", len(tb.triplets), wantTriplets)
	}
	if wantTriplets == 0 {
		t.Fatal("test cloud produced no triplets; cuts or cloud need adjusting")
	}
}

func TestFindSeedInvariants(t *testing.T) {
	sps := randomCloud(400, 23)
	grid := buildGrid(t, sps)
	f := newFinder(t)

	seeds, stats, err := f.Find(context.Background(), sps, grid)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if stats.Seeds != len(seeds) {
		t.Errorf("stats.Seeds = %d, len(seeds) = %d", stats.Seeds, len(seeds))
	}
	if len(seeds) == 0 {
		t.Fatal("no seeds from track-rich cloud")
	}

	type triple struct{ b, m, t Link }
	seen := make(map[triple]bool)
	perMiddle := make(map[Link]int)
	for _, s := range seeds {
		k := triple{s.Bottom, s.Middle, s.Top}
		if seen[k] {
			t.Errorf("duplicate seed %+v", k)
		}
		seen[k] = true
		perMiddle[s.Middle]++
		if s.Bottom == s.Middle || s.Middle == s.Top || s.Bottom == s.Top {
			t.Errorf("degenerate seed %+v", k)
		}
	}
	for m, n := range perMiddle {
		if n > f.filter.MaxSeedsPerMiddle {
			t.Errorf("middle %d emitted %d seeds, cap %d", m, n, f.filter.MaxSeedsPerMiddle)
		}
	}
}

func TestCompatibleBottomBoundaryValues(t *testing.T) {
	// Exactly representable cuts so boundary equality is exact.
	cfg := DefaultFinderConfig()
	cfg.DeltaRMin = 5
	cfg.DeltaRMax = 50
	cfg.CotThetaMax = 2
	m := sp(100, 0, 0)

	// Exactly DeltaRMin inside: inclusive, must pass.
	atMin := sp(95, 0, 0)
	if !compatibleBottom(&cfg, &m, &atMin) {
		t.Error("deltaR == DeltaRMin rejected; bounds must be inclusive")
	}
	// Exactly DeltaRMax: inclusive.
	atMax := sp(50, 0, 0)
	if !compatibleBottom(&cfg, &m, &atMax) {
		t.Error("deltaR == DeltaRMax rejected; bounds must be inclusive")
	}
	// Just outside either edge: rejected.
	if below := sp(95.5, 0, 0); compatibleBottom(&cfg, &m, &below) {
		t.Error("deltaR < DeltaRMin accepted")
	}
	if beyond := sp(49.5, 0, 0); compatibleBottom(&cfg, &m, &beyond) {
		t.Error("deltaR > DeltaRMax accepted")
	}

	// cotTheta exactly at CotThetaMax: inclusive. deltaR = 8, dz = 16,
	// zOrigin = -200 stays inside the collision region.
	atCot := sp(92, 0, -16)
	if !compatibleBottom(&cfg, &m, &atCot) {
		t.Error("|cotTheta| == CotThetaMax rejected; bounds must be inclusive")
	}
	if overCot := sp(92, 0, -17); compatibleBottom(&cfg, &m, &overCot) {
		t.Error("|cotTheta| > CotThetaMax accepted")
	}
}

func TestCompatibleTopMirrorsBottom(t *testing.T) {
	cfg := DefaultFinderConfig()
	m := sp(60, 0.5, 30)
	o := sp(90, 0.5, 45)
	if !compatibleTop(&cfg, &m, &o) {
		t.Error("outer point on track rejected as top")
	}
	if compatibleBottom(&cfg, &m, &o) {
		t.Error("outer point accepted as bottom")
	}
}

func TestTopCandidatesRankingAndDedupe(t *testing.T) {
	tc := newTopCandidates(3)
	mk := func(b, top Link, w float64) Triplet {
		return Triplet{Bottom: b, Middle: 99, Top: top, Weight: w}
	}
	tc.insert(mk(1, 2, 5))
	tc.insert(mk(3, 4, 10))
	tc.insert(mk(1, 2, 8)) // duplicate pair, heavier: replaces
	if len(tc.items) != 2 {
		t.Fatalf("pool size = %d, want 2", len(tc.items))
	}
	if tc.items[0].Weight != 10 || tc.items[1].Weight != 8 {
		t.Errorf("weights = (%v, %v), want (10, 8)", tc.items[0].Weight, tc.items[1].Weight)
	}

	tc.insert(mk(5, 6, 1))
	tc.insert(mk(7, 8, 2)) // full: evicts the weight-1 candidate
	if tc.dropped != 1 {
		t.Errorf("dropped = %d, want 1", tc.dropped)
	}
	tc.insert(mk(9, 10, 0)) // lighter than everything: dropped outright
	if tc.dropped != 2 {
		t.Errorf("dropped = %d, want 2", tc.dropped)
	}
	for i := 1; i < len(tc.items); i++ {
		if tc.items[i].Weight > tc.items[i-1].Weight {
			t.Errorf("pool not rank-ordered: %v", tc.items)
		}
	}
}

func TestUpdateWeightsCompatibleGroup(t *testing.T) {
	// Three triplets on one middle: two with matching curvature and
	// distinct top radii confirm each other; the third is incompatible.
	sps := []l3spacepoints.Spacepoint{
		sp(30, 0, 0), sp(60, 0, 0), sp(90, 0, 0), sp(92, 0, 0), sp(95, 0, 0),
	}
	filter := DefaultFilterConfig()
	tb := &tripletBuffers{
		counters: []TripletCounter{{Middle: 1, First: 0, Count: 3}},
		triplets: []Triplet{
			{Bottom: 0, Middle: 1, Top: 2, Curvature: 1e-6, Weight: 0},
			{Bottom: 0, Middle: 1, Top: 3, Curvature: 2e-6, Weight: 0},
			{Bottom: 0, Middle: 1, Top: 4, Curvature: 5e-3, Weight: 0},
		},
	}
	var trunc atomic.Int64
	err := updateWeights(context.Background(), device.NewPool(1), &filter, sps, tb, &trunc)
	if err != nil {
		t.Fatalf("updateWeights: %v", err)
	}
	if w := tb.triplets[0].Weight; w != filter.CompatSeedWeight {
		t.Errorf("triplet 0 weight = %v, want %v", w, filter.CompatSeedWeight)
	}
	if w := tb.triplets[1].Weight; w != filter.CompatSeedWeight {
		t.Errorf("triplet 1 weight = %v, want %v", w, filter.CompatSeedWeight)
	}
	if w := tb.triplets[2].Weight; w != 0 {
		t.Errorf("incompatible triplet weight = %v, want 0", w)
	}
	if trunc.Load() != 0 {
		t.Errorf("truncations = %d, want 0", trunc.Load())
	}
}

func TestUpdateWeightsTruncation(t *testing.T) {
	// Four mutually compatible triplets with distinct top radii exceed the
	// CompatSeedLimit of 2: each comparison truncates, weights stay capped.
	sps := []l3spacepoints.Spacepoint{
		sp(30, 0, 0), sp(60, 0, 0), sp(90, 0, 0), sp(92, 0, 0), sp(95, 0, 0), sp(98, 0, 0),
	}
	filter := DefaultFilterConfig()
	tb := &tripletBuffers{
		counters: []TripletCounter{{Middle: 1, First: 0, Count: 4}},
		triplets: []Triplet{
			{Bottom: 0, Middle: 1, Top: 2, Curvature: 0},
			{Bottom: 0, Middle: 1, Top: 3, Curvature: 1e-6},
			{Bottom: 0, Middle: 1, Top: 4, Curvature: 2e-6},
			{Bottom: 0, Middle: 1, Top: 5, Curvature: 3e-6},
		},
	}
	var trunc atomic.Int64
	err := updateWeights(context.Background(), device.NewPool(1), &filter, sps, tb, &trunc)
	if err != nil {
		t.Fatalf("updateWeights: %v", err)
	}
	max := filter.CompatSeedWeight * float64(filter.CompatSeedLimit)
	for i, tr := range tb.triplets {
		if tr.Weight > max {
			t.Errorf("triplet %d weight %v exceeds scratch-bounded max %v", i, tr.Weight, max)
		}
	}
	if trunc.Load() == 0 {
		t.Error("expected truncation diagnostics, got none")
	}
}

func TestNewSeedFinderRejectsBadConfig(t *testing.T) {
	filter := DefaultFilterConfig()
	filter.MaxSeedsPerMiddle = 0
	if _, err := NewSeedFinder(DefaultFinderConfig(), filter, device.NewPool(1)); err == nil {
		t.Error("expected error for zero MaxSeedsPerMiddle")
	}
	finder := DefaultFinderConfig()
	finder.DeltaRMax = finder.DeltaRMin - 1
	if _, err := NewSeedFinder(finder, DefaultFilterConfig(), device.NewPool(1)); err == nil {
		t.Error("expected error for inverted deltaR window")
	}
}
