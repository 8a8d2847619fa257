// Package sh provides the spherical-harmonic and rotation math used by the
// renderer: yaw/pitch/roll rotation matrices, their expansion to the real
// spherical-harmonic domain, real SH evaluation, and the N3D/SN3D
// normalisation conversions.
package sh

import "math"

// RotationYPR returns the 3x3 rotation matrix for the given yaw, pitch and
// roll angles in radians. The default composition is intrinsic Z-Y-X
// (yaw, then pitch, then roll); rollPitchYaw selects the reversed
// composition order instead.
func RotationYPR(yaw, pitch, roll float64, rollPitchYaw bool) [3][3]float64 {
	cy, sy := math.Cos(yaw), math.Sin(yaw)
	cp, sp := math.Cos(pitch), math.Sin(pitch)
	cr, sr := math.Cos(roll), math.Sin(roll)

	rz := [3][3]float64{{cy, -sy, 0}, {sy, cy, 0}, {0, 0, 1}}
	ry := [3][3]float64{{cp, 0, sp}, {0, 1, 0}, {-sp, 0, cp}}
	rx := [3][3]float64{{1, 0, 0}, {0, cr, -sr}, {0, sr, cr}}

	if rollPitchYaw {
		return mul3(rx, mul3(ry, rz))
	}
	return mul3(rz, mul3(ry, rx))
}

func mul3(a, b [3][3]float64) [3][3]float64 {
	var c [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				c[i][j] += a[i][k] * b[k][j]
			}
		}
	}
	return c
}

// RotationToSH expands a 3x3 spatial rotation into the real spherical
// harmonic domain up to the given order, using the Ivanic-Ruedenberg
// recurrence. The result is written row-major into dst with the given
// stride; dst covers (order+1)^2 x (order+1)^2 coefficients in ACN
// ordering. The resulting matrix is orthogonal.
func RotationToSH(r [3][3]float64, order int, dst []float64, stride int) {
	nSH := (order + 1) * (order + 1)
	for i := 0; i < nSH; i++ {
		for j := 0; j < nSH; j++ {
			dst[i*stride+j] = 0
		}
	}
	dst[0] = 1
	if order == 0 {
		return
	}

	// First-degree block: a permutation of the spatial rotation, because
	// the l=1 real harmonics are ordered (Y, Z, X) in ACN.
	var r1 [3][3]float64
	r1[0][0], r1[0][1], r1[0][2] = r[1][1], r[1][2], r[1][0]
	r1[1][0], r1[1][1], r1[1][2] = r[2][1], r[2][2], r[2][0]
	r1[2][0], r1[2][1], r1[2][2] = r[0][1], r[0][2], r[0][0]
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			dst[(1+i)*stride+(1+j)] = r1[i][j]
		}
	}
	if order == 1 {
		return
	}

	// Recurrence: each degree block is built from the previous one. prev
	// holds the degree l-1 block, seeded with the 3x3 first-degree block.
	prev := make([]float64, (2*order-1)*(2*order-1))
	cur := make([]float64, (2*order+1)*(2*order+1))
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			prev[i*3+j] = r1[i][j]
		}
	}
	for l := 2; l <= order; l++ {
		dim := 2*l + 1
		for m := -l; m <= l; m++ {
			for n := -l; n <= l; n++ {
				var d float64
				if m == 0 {
					d = 1
				}
				var denom float64
				if abs(n) == l {
					denom = float64(2*l) * float64(2*l-1)
				} else {
					denom = float64(l*l - n*n)
				}
				u := math.Sqrt(float64(l*l-m*m) / denom)
				v := 0.5 * math.Sqrt((1+d)*float64(l+abs(m)-1)*float64(l+abs(m))/denom) * (1 - 2*d)
				w := -0.5 * math.Sqrt(float64(l-abs(m)-1)*float64(l-abs(m))/denom) * (1 - d)
				if u != 0 {
					u *= termU(l, m, n, r1, prev)
				}
				if v != 0 {
					v *= termV(l, m, n, r1, prev)
				}
				if w != 0 {
					w *= termW(l, m, n, r1, prev)
				}
				cur[(m+l)*dim+(n+l)] = u + v + w
			}
		}
		base := l * l
		for i := 0; i < dim; i++ {
			for j := 0; j < dim; j++ {
				dst[(base+i)*stride+(base+j)] = cur[i*dim+j]
			}
		}
		if l < order {
			copy(prev[:dim*dim], cur[:dim*dim])
		}
	}
}

// termP is the P function of the Ivanic-Ruedenberg recurrence: it lifts an
// entry of the degree l-1 block using the first-degree rotation.
func termP(i, l, a, b int, r1 [3][3]float64, prev []float64) float64 {
	ri1 := r1[i+1][2]
	rim1 := r1[i+1][0]
	ri0 := r1[i+1][1]
	dim := 2*l - 1
	row := (a + l - 1) * dim
	switch {
	case b == -l:
		return ri1*prev[row] + rim1*prev[row+dim-1]
	case b == l:
		return ri1*prev[row+dim-1] - rim1*prev[row]
	default:
		return ri0 * prev[row+(b+l-1)]
	}
}

func termU(l, m, n int, r1 [3][3]float64, prev []float64) float64 {
	return termP(0, l, m, n, r1, prev)
}

func termV(l, m, n int, r1 [3][3]float64, prev []float64) float64 {
	switch {
	case m == 0:
		return termP(1, l, 1, n, r1, prev) + termP(-1, l, -1, n, r1, prev)
	case m > 0:
		p0 := termP(1, l, m-1, n, r1, prev)
		p1 := termP(-1, l, -m+1, n, r1, prev)
		if m == 1 {
			return p0 * math.Sqrt2
		}
		return p0 - p1
	default:
		p0 := termP(1, l, m+1, n, r1, prev)
		p1 := termP(-1, l, -m-1, n, r1, prev)
		if m == -1 {
			return p1 * math.Sqrt2
		}
		return p0 + p1
	}
}

func termW(l, m, n int, r1 [3][3]float64, prev []float64) float64 {
	switch {
	case m == 0:
		return 0
	case m > 0:
		return termP(1, l, m+1, n, r1, prev) + termP(-1, l, -m-1, n, r1, prev)
	default:
		return termP(1, l, m-1, n, r1, prev) - termP(-1, l, -m+1, n, r1, prev)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
