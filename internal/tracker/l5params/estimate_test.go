package l5params

import (
	"context"
	"math"
	"testing"

	"github.com/apex-hep/trackseed/internal/tracker/device"
	"github.com/apex-hep/trackseed/internal/tracker/l3spacepoints"
	"github.com/apex-hep/trackseed/internal/tracker/l4seeding"
)

func onCircle(theta float64) l3spacepoints.Spacepoint {
	// Circle of radius 200 through the origin, centre (0, 200).
	x := 200 * math.Sin(theta)
	y := 200 * (1 - math.Cos(theta))
	r := math.Hypot(x, y)
	return l3spacepoints.Spacepoint{
		X: x, Y: y, Z: 10 + 0.5*r,
		Radius: r, Phi: math.Atan2(y, x),
	}
}

func TestEstimateKnownCircle(t *testing.T) {
	b, m, top := onCircle(0.3), onCircle(0.6), onCircle(0.9)
	p := Estimate(&b, &m, &top, 2.0)

	if math.Abs(p.D0) > 1e-6 {
		t.Errorf("D0 = %v, want 0 (circle passes through beamline)", p.D0)
	}
	// pT = 0.3 * 2 T * 0.2 m = 0.12 GeV.
	if got, want := math.Abs(p.QOverPt), 1/0.12; math.Abs(got-want) > 1e-6 {
		t.Errorf("|QOverPt| = %v, want %v", got, want)
	}
	// Tangent at the perigee (the origin) points along +x.
	if math.Abs(p.Phi) > 1e-9 {
		t.Errorf("Phi = %v, want 0", p.Phi)
	}
	if math.Abs(p.Z0-10) > 1e-9 {
		t.Errorf("Z0 = %v, want 10", p.Z0)
	}
	if want := math.Atan2(1, 0.5); math.Abs(p.Theta-want) > 1e-9 {
		t.Errorf("Theta = %v, want %v", p.Theta, want)
	}
}

func TestEstimateStraightTrack(t *testing.T) {
	mk := func(r float64) l3spacepoints.Spacepoint {
		return l3spacepoints.Spacepoint{X: r, Y: 0, Z: 0.25 * r, Radius: r}
	}
	b, m, top := mk(30), mk(60), mk(90)
	p := Estimate(&b, &m, &top, 2.0)
	if p.QOverPt != 0 {
		t.Errorf("QOverPt = %v, want 0 for collinear points", p.QOverPt)
	}
	if math.Abs(p.Phi) > 1e-12 {
		t.Errorf("Phi = %v, want 0", p.Phi)
	}
	if math.Abs(p.D0) > 1e-12 {
		t.Errorf("D0 = %v, want 0", p.D0)
	}
	if math.Abs(p.Z0) > 1e-9 {
		t.Errorf("Z0 = %v, want 0", p.Z0)
	}
}

func TestEstimateAll(t *testing.T) {
	b, m, top := onCircle(0.3), onCircle(0.6), onCircle(0.9)
	sps := []l3spacepoints.Spacepoint{b, m, top}
	seeds := []l4seeding.Seed{{Bottom: 0, Middle: 1, Top: 2}}
	params, err := EstimateAll(context.Background(), device.NewPool(2), seeds, sps, 2.0)
	if err != nil {
		t.Fatalf("EstimateAll: %v", err)
	}
	if len(params) != 1 {
		t.Fatalf("got %d params, want 1", len(params))
	}
	if math.Abs(params[0].D0) > 1e-6 {
		t.Errorf("D0 = %v, want 0", params[0].D0)
	}
}
