// Package geometry models the detector context consumed by the
// reconstruction pipeline: per-module rigid transforms for spacepoint
// formation and per-module digitization parameters for measurement
// uncertainties. The pipeline treats all of it as read-only per event.
package geometry

// Identity is a 4x4 identity transform.
// T is row-major: [m00,m01,m02,m03, m10,m11,m12,m13, m20,m21,m22,m23, m30,m31,m32,m33]
var Identity = Transform{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// Transform is a rigid transform (module local frame -> global frame),
// 4x4 row-major.
type Transform [16]float64

// Apply maps a local-frame point to the global frame.
func (t Transform) Apply(x, y, z float64) (gx, gy, gz float64) {
	gx = t[0]*x + t[1]*y + t[2]*z + t[3]
	gy = t[4]*x + t[5]*y + t[6]*z + t[7]
	gz = t[8]*x + t[9]*y + t[10]*z + t[11]
	return gx, gy, gz
}

// Translate returns a pure translation transform.
func Translate(dx, dy, dz float64) Transform {
	t := Identity
	t[3], t[7], t[11] = dx, dy, dz
	return t
}
