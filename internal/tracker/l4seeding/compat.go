package l4seeding

import (
	"math"

	"github.com/apex-hep/trackseed/internal/tracker/l3spacepoints"
)

// compatibleBottom reports whether o can serve as the bottom partner of
// middle m. Bounds are inclusive on both ends: a value exactly on a window
// edge passes, and the counting and filling passes both call this exact
// predicate.
func compatibleBottom(cfg *FinderConfig, m, o *l3spacepoints.Spacepoint) bool {
	deltaR := m.Radius - o.Radius
	if deltaR < cfg.DeltaRMin || deltaR > cfg.DeltaRMax {
		return false
	}
	cotTheta := (m.Z - o.Z) / deltaR
	if math.Abs(cotTheta) > cfg.CotThetaMax {
		return false
	}
	zOrigin := m.Z - m.Radius*cotTheta
	return zOrigin >= cfg.CollisionRegionMin && zOrigin <= cfg.CollisionRegionMax
}

// compatibleTop is the mirror of compatibleBottom for the outer side.
func compatibleTop(cfg *FinderConfig, m, o *l3spacepoints.Spacepoint) bool {
	deltaR := o.Radius - m.Radius
	if deltaR < cfg.DeltaRMin || deltaR > cfg.DeltaRMax {
		return false
	}
	cotTheta := (o.Z - m.Z) / deltaR
	if math.Abs(cotTheta) > cfg.CotThetaMax {
		return false
	}
	zOrigin := m.Z - m.Radius*cotTheta
	return zOrigin >= cfg.CollisionRegionMin && zOrigin <= cfg.CollisionRegionMax
}

// linCircle is a doublet transformed to the u-v frame centred on the middle
// spacepoint, where circles through the middle point become straight lines.
type linCircle struct {
	cotTheta float64
	u, v     float64
}

// transformCoordinates maps the doublet (m, o) into the u-v frame. For
// bottom doublets the longitudinal slope is flipped so bottom and top
// slopes of one physical track agree in sign.
func transformCoordinates(m, o *l3spacepoints.Spacepoint, bottom bool) linCircle {
	cosPhiM := m.X / m.Radius
	sinPhiM := m.Y / m.Radius
	dx := o.X - m.X
	dy := o.Y - m.Y
	dz := o.Z - m.Z

	x := dx*cosPhiM + dy*sinPhiM
	y := dy*cosPhiM - dx*sinPhiM
	iDeltaR2 := 1 / (dx*dx + dy*dy)

	cot := dz * math.Sqrt(iDeltaR2)
	if bottom {
		cot = -cot
	}
	return linCircle{
		cotTheta: cot,
		u:        x * iDeltaR2,
		v:        y * iDeltaR2,
	}
}

// tripletFit is the outcome of fitting a circle through one
// (bottom, middle, top) combination.
type tripletFit struct {
	curvature float64
	impact    float64
	zVertex   float64
}

// fitTriplet checks whether the bottom and top doublets of one middle
// spacepoint form a compatible triplet, and if so returns the circle fit.
// The compatibility conditions, in order: the two doublets' polar angles
// must agree within DeltaCotTheta (z-vertex consistency), the circle
// through the three points must be at least the minimum helix diameter
// (the pT cut), and its transverse impact parameter must stay within
// ImpactMax. Used identically by the triplet counting and filling passes.
func fitTriplet(cfg *FinderConfig, m *l3spacepoints.Spacepoint, lb, lt linCircle) (tripletFit, bool) {
	if math.Abs(lb.cotTheta-lt.cotTheta) > cfg.DeltaCotTheta {
		return tripletFit{}, false
	}

	dU := lt.u - lb.u
	if dU == 0 {
		return tripletFit{}, false
	}
	// Straight line v = A*u + B through both transformed doublets; B
	// encodes the circle's inverse diameter.
	a := (lt.v - lb.v) / dU
	s2 := 1 + a*a
	b := lb.v - a*lb.u
	b2 := b * b
	if s2 < b2*cfg.MinHelixDiameter2 {
		return tripletFit{}, false
	}

	impact := math.Abs((a - b*m.Radius) * m.Radius)
	if impact > cfg.ImpactMax {
		return tripletFit{}, false
	}

	return tripletFit{
		curvature: b / math.Sqrt(s2),
		impact:    impact,
		zVertex:   m.Z - m.Radius*lb.cotTheta,
	}, true
}
