// Package l4seeding turns the binned spacepoint collection into track seeds:
// doublet finding, triplet finding, weight updating and seed selection, each
// written as a counting pass and a filling pass that share one compatibility
// predicate so the two passes can never disagree. The SeedFinder owns the
// inter-stage buffer sizing and synchronisation.
package l4seeding

import "fmt"

// FinderConfig holds the geometric and kinematic cuts for doublet and
// triplet finding. Lengths are in millimetres. All bounds are inclusive.
type FinderConfig struct {
	// DeltaRMin/DeltaRMax bound the radial distance between a middle
	// spacepoint and a doublet partner.
	DeltaRMin float64
	DeltaRMax float64

	// CotThetaMax bounds the doublet's longitudinal slope.
	CotThetaMax float64

	// CollisionRegionMin/Max bound the doublet's straight-line z intercept
	// at r=0 (the beamline).
	CollisionRegionMin float64
	CollisionRegionMax float64

	// DeltaCotTheta is the tolerance on the polar-angle agreement between
	// a triplet's bottom and top doublets (its z-vertex consistency).
	DeltaCotTheta float64

	// MinHelixDiameter2 is the squared minimum helix diameter, i.e. the
	// transverse-momentum cut expressed as a circle size.
	MinHelixDiameter2 float64

	// ImpactMax bounds the triplet circle's transverse impact parameter.
	ImpactMax float64

	// PhiBinWindow/ZBinWindow set how many neighbouring grid bins a middle
	// spacepoint scans in each direction.
	PhiBinWindow int
	ZBinWindow   int
}

// DefaultFinderConfig returns cuts for a ~2 T field and a pT floor of
// 500 MeV (helix diameter ≈ 1.67 m).
func DefaultFinderConfig() FinderConfig {
	return FinderConfig{
		DeltaRMin:          5,
		DeltaRMax:          270,
		CotThetaMax:        7.40627,
		CollisionRegionMin: -250,
		CollisionRegionMax: 250,
		DeltaCotTheta:      0.15,
		MinHelixDiameter2:  2.786e6,
		ImpactMax:          10,
		PhiBinWindow:       1,
		ZBinWindow:         1,
	}
}

// FilterConfig holds the weight-update and seed-selection parameters.
type FilterConfig struct {
	// DeltaInvHelixDiameter is the inverse-diameter resolution within which
	// two triplets on the same middle spacepoint are treated as one
	// physical candidate group.
	DeltaInvHelixDiameter float64

	// ImpactWeightFactor scales the impact-parameter penalty in a
	// triplet's initial weight.
	ImpactWeightFactor float64

	// CompatSeedWeight is added to a triplet's weight for every distinct
	// compatible seed found in its group.
	CompatSeedWeight float64

	// CompatSeedLimit caps the compatible-seed scratch per triplet.
	// Exceeding it truncates comparisons; results degrade, nothing fails.
	CompatSeedLimit int

	// MaxSeedsPerMiddle caps the candidate pool per middle spacepoint in
	// seed selection.
	MaxSeedsPerMiddle int
}

// DefaultFilterConfig returns the standard filter parameters.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		DeltaInvHelixDiameter: 3e-5,
		ImpactWeightFactor:    1.0,
		CompatSeedWeight:      200,
		CompatSeedLimit:       2,
		MaxSeedsPerMiddle:     5,
	}
}

func (c FinderConfig) validate() error {
	if c.DeltaRMin < 0 || c.DeltaRMax < c.DeltaRMin {
		return fmt.Errorf("l4seeding: invalid deltaR window [%v, %v]", c.DeltaRMin, c.DeltaRMax)
	}
	if c.PhiBinWindow < 0 || c.ZBinWindow < 0 {
		return fmt.Errorf("l4seeding: negative bin window")
	}
	return nil
}

func (c FilterConfig) validate() error {
	if c.CompatSeedLimit <= 0 {
		return fmt.Errorf("l4seeding: CompatSeedLimit must be positive, got %d", c.CompatSeedLimit)
	}
	if c.MaxSeedsPerMiddle <= 0 {
		return fmt.Errorf("l4seeding: MaxSeedsPerMiddle must be positive, got %d", c.MaxSeedsPerMiddle)
	}
	return nil
}
