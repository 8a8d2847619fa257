package sh

import "math"

// NumChannels returns the spherical-harmonic channel count for an order.
func NumChannels(order int) int { return (order + 1) * (order + 1) }

// RealSH evaluates the real spherical harmonics up to the given order at
// azimuth/elevation (radians), in ACN channel ordering with N3D
// normalisation (the omnidirectional component evaluates to 1). dst must
// hold (order+1)^2 values.
func RealSH(order int, azi, elev float64, dst []float64) {
	x := math.Sin(elev)
	for l := 0; l <= order; l++ {
		for m := -l; m <= l; m++ {
			am := abs(m)
			norm := math.Sqrt(float64(2*l+1) * factRatio(l-am, l+am))
			if m != 0 {
				norm *= math.Sqrt2
			}
			p := assocLegendre(l, am, x)
			var trig float64
			if m >= 0 {
				trig = math.Cos(float64(am) * azi)
			} else {
				trig = math.Sin(float64(am) * azi)
			}
			dst[l*l+l+m] = norm * p * trig
		}
	}
}

// assocLegendre computes the associated Legendre function P_l^m(x) without
// the Condon-Shortley phase, via the standard three-term recurrence.
func assocLegendre(l, m int, x float64) float64 {
	// Seed P_m^m = (2m-1)!! (1-x^2)^(m/2).
	pmm := 1.0
	if m > 0 {
		somx2 := math.Sqrt((1 - x) * (1 + x))
		fact := 1.0
		for i := 1; i <= m; i++ {
			pmm *= fact * somx2
			fact += 2
		}
	}
	if l == m {
		return pmm
	}
	pmmp1 := x * float64(2*m+1) * pmm
	if l == m+1 {
		return pmmp1
	}
	var pll float64
	for ll := m + 2; ll <= l; ll++ {
		pll = (x*float64(2*ll-1)*pmmp1 - float64(ll+m-1)*pmm) / float64(ll-m)
		pmm = pmmp1
		pmmp1 = pll
	}
	return pll
}

// factRatio computes a!/b! for a <= b without overflowing intermediate
// factorials.
func factRatio(a, b int) float64 {
	r := 1.0
	for i := a + 1; i <= b; i++ {
		r /= float64(i)
	}
	return r
}

// legendreP evaluates the (unassociated) Legendre polynomial P_l(x).
func legendreP(l int, x float64) float64 {
	switch l {
	case 0:
		return 1
	case 1:
		return x
	}
	p0, p1 := 1.0, x
	for ll := 2; ll <= l; ll++ {
		p0, p1 = p1, (float64(2*ll-1)*x*p1-float64(ll-1)*p0)/float64(ll)
	}
	return p1
}

// MaxRE returns the per-degree max-rE weights for a decoder of the given
// order. Weight l is the Legendre polynomial of degree l evaluated at the
// cosine of the max-rE limit angle 137.9deg/(order+1.51).
func MaxRE(order int) []float64 {
	g := make([]float64, order+1)
	x := math.Cos(137.9 * math.Pi / 180.0 / (float64(order) + 1.51))
	for l := 0; l <= order; l++ {
		g[l] = legendreP(l, x)
	}
	return g
}

// Degree returns the spherical-harmonic degree of an ACN channel index.
func Degree(acn int) int {
	return int(math.Floor(math.Sqrt(float64(acn))))
}

// SN3DToN3D scales a per-channel block of samples from the SN3D convention
// to the internal N3D convention, multiplying each degree-n channel by
// sqrt(2n+1). signals is indexed [channel][sample].
func SN3DToN3D(signals [][]float64, order int) {
	scalePerDegree(signals, order, false)
}

// N3DToSN3D is the inverse of SN3DToN3D.
func N3DToSN3D(signals [][]float64, order int) {
	scalePerDegree(signals, order, true)
}

func scalePerDegree(signals [][]float64, order int, invert bool) {
	for n := 0; n <= order; n++ {
		s := math.Sqrt(float64(2*n + 1))
		if invert {
			s = 1 / s
		}
		for ch := n * n; ch < (n+1)*(n+1); ch++ {
			sig := signals[ch]
			for i := range sig {
				sig[i] *= s
			}
		}
	}
}
