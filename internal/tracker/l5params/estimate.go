// Package l5params estimates bound track parameters from accepted seeds.
// Each seed's three spacepoints fix a circle in the transverse plane and a
// straight line in (r, z); both fits are exact, not iterative, and run as a
// data-parallel map over the seed collection.
package l5params

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/apex-hep/trackseed/internal/tracker/device"
	"github.com/apex-hep/trackseed/internal/tracker/l3spacepoints"
	"github.com/apex-hep/trackseed/internal/tracker/l4seeding"
)

// BoundParams are perigee-frame track parameters estimated from one seed.
// Lengths in millimetres, momenta in GeV.
type BoundParams struct {
	D0      float64 // signed transverse impact parameter
	Z0      float64 // longitudinal position at r = 0
	Phi     float64 // azimuth of the momentum at perigee
	Theta   float64 // polar angle
	QOverPt float64 // charge over transverse momentum, 1/GeV; 0 for straight tracks
}

const estimateBlockSize = 128

// EstimateAll maps every seed to its bound parameters. bfieldZ is the
// longitudinal magnetic field in tesla.
func EstimateAll(ctx context.Context, pool *device.Pool, seeds []l4seeding.Seed,
	sps []l3spacepoints.Spacepoint, bfieldZ float64) ([]BoundParams, error) {

	out := make([]BoundParams, len(seeds))
	blocks := device.BlockCount(len(seeds), estimateBlockSize)
	err := pool.ForEachGroup(ctx, blocks, func(g int) error {
		lo, hi := device.BlockRange(g, estimateBlockSize, len(seeds))
		for i := lo; i < hi; i++ {
			s := seeds[i]
			out[i] = Estimate(&sps[s.Bottom], &sps[s.Middle], &sps[s.Top], bfieldZ)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Estimate fits the circle through three spacepoints and the (r, z) line
// through them. Collinear transverse positions degrade gracefully to a
// straight-track estimate with QOverPt = 0.
func Estimate(b, m, t *l3spacepoints.Spacepoint, bfieldZ float64) BoundParams {
	rs := []float64{b.Radius, m.Radius, t.Radius}
	zs := []float64{b.Z, m.Z, t.Z}
	z0, cotTheta := stat.LinearRegression(rs, zs, nil, false)
	theta := math.Atan2(1, cotTheta)

	cx, cy, ok := circleCenter(b, m, t)
	if !ok {
		// Straight track: direction from the chord, impact from the
		// beamline's distance to the line.
		dirX, dirY := t.X-b.X, t.Y-b.Y
		phi := math.Atan2(dirY, dirX)
		d0 := (b.X*dirY - b.Y*dirX) / math.Hypot(dirX, dirY)
		return BoundParams{D0: d0, Z0: z0, Phi: phi, Theta: theta}
	}

	radius := math.Hypot(b.X-cx, b.Y-cy)
	centerDist := math.Hypot(cx, cy)

	// Orientation of traversal b→m→t fixes the charge sign.
	cross := (m.X-b.X)*(t.Y-m.Y) - (m.Y-b.Y)*(t.X-m.X)
	q := 1.0
	if cross > 0 {
		q = -1
	}

	// pT[GeV] = 0.3 * B[T] * R[m].
	pt := 0.3 * bfieldZ * radius / 1000
	phi := math.Atan2(cy, cx) + q*math.Pi/2
	if phi > math.Pi {
		phi -= 2 * math.Pi
	}
	if phi <= -math.Pi {
		phi += 2 * math.Pi
	}

	return BoundParams{
		D0:      q * (centerDist - radius),
		Z0:      z0,
		Phi:     phi,
		Theta:   theta,
		QOverPt: q / pt,
	}
}

// circleCenter solves the two chord-bisector equations for the circle
// through three transverse positions. ok is false when the points are
// collinear and the system is singular.
func circleCenter(b, m, t *l3spacepoints.Spacepoint) (cx, cy float64, ok bool) {
	a := mat.NewDense(2, 2, []float64{
		2 * (m.X - b.X), 2 * (m.Y - b.Y),
		2 * (t.X - b.X), 2 * (t.Y - b.Y),
	})
	rhs := mat.NewVecDense(2, []float64{
		m.X*m.X + m.Y*m.Y - b.X*b.X - b.Y*b.Y,
		t.X*t.X + t.Y*t.Y - b.X*b.X - b.Y*b.Y,
	})
	var c mat.VecDense
	if err := c.SolveVec(a, rhs); err != nil {
		return 0, 0, false
	}
	return c.AtVec(0), c.AtVec(1), true
}
