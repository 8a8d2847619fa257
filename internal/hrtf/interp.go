package hrtf

import "math"

// Table maps a direction to the nearest measured directions and their
// interpolation weights. Triangulated (barycentric) tables are produced by
// an external gain-table precomputation step; this package only consumes
// them. Weights need not be normalised; Interpolate normalises them in the
// amplitude domain.
type Table interface {
	// Query returns up to three measurement indices with their weights for
	// the given direction in degrees. Unused slots carry a zero weight.
	Query(aziDeg, elevDeg float64) (idx [3]int, w [3]float64)
}

// NearestTable is the default table: it selects the single closest
// measurement by great-circle distance with unit weight.
type NearestTable struct {
	dirs [][2]float64
	xyz  [][3]float64
}

// NewNearestTable builds a nearest-neighbour table over the given
// measurement directions (degrees).
func NewNearestTable(dirs [][2]float64) *NearestTable {
	t := &NearestTable{
		dirs: dirs,
		xyz:  make([][3]float64, len(dirs)),
	}
	for i, d := range dirs {
		t.xyz[i] = dirToXYZ(d[0], d[1])
	}
	return t
}

// Query implements Table.
func (t *NearestTable) Query(aziDeg, elevDeg float64) ([3]int, [3]float64) {
	u := dirToXYZ(aziDeg, elevDeg)
	best, bestDot := 0, math.Inf(-1)
	for i, v := range t.xyz {
		dot := u[0]*v[0] + u[1]*v[1] + u[2]*v[2]
		if dot > bestDot {
			bestDot = dot
			best = i
		}
	}
	return [3]int{best, best, best}, [3]float64{1, 0, 0}
}

// GridTable is a precomputed interpolation table on a regular
// azimuth/elevation grid, as produced by an external triangulation step.
// Each cell stores three measurement indices and barycentric weights.
type GridTable struct {
	AziMin, AziStep   float64
	ElevMin, ElevStep float64
	NAzi, NElev       int
	Idx               [][3]int
	W                 [][3]float64
}

// Query implements Table by snapping the direction to the nearest grid
// cell; directions outside the grid clamp to the border cells.
func (t *GridTable) Query(aziDeg, elevDeg float64) ([3]int, [3]float64) {
	ai := int(math.Round((aziDeg - t.AziMin) / t.AziStep))
	ei := int(math.Round((elevDeg - t.ElevMin) / t.ElevStep))
	ai = clampInt(ai, 0, t.NAzi-1)
	ei = clampInt(ei, 0, t.NElev-1)
	cell := ei*t.NAzi + ai
	return t.Idx[cell], t.W[cell]
}

// NewGridTable precomputes an interpolation lookup over a dense regular
// azimuth/elevation raster covering the whole sphere. Each cell stores the
// three closest measurement directions weighted by inverse angular
// distance, so a query blends the surrounding measurements instead of
// snapping to one. resDeg is the raster resolution in degrees.
func NewGridTable(dirs [][2]float64, resDeg float64) *GridTable {
	if resDeg <= 0 {
		resDeg = 5
	}
	nAzi := int(math.Round(360/resDeg)) + 1
	nElev := int(math.Round(180/resDeg)) + 1
	t := &GridTable{
		AziMin:   -180,
		AziStep:  resDeg,
		ElevMin:  -90,
		ElevStep: resDeg,
		NAzi:     nAzi,
		NElev:    nElev,
		Idx:      make([][3]int, nAzi*nElev),
		W:        make([][3]float64, nAzi*nElev),
	}
	xyz := make([][3]float64, len(dirs))
	for i, d := range dirs {
		xyz[i] = dirToXYZ(d[0], d[1])
	}
	const eps = 1e-6
	for ei := 0; ei < nElev; ei++ {
		for ai := 0; ai < nAzi; ai++ {
			u := dirToXYZ(t.AziMin+float64(ai)*resDeg, t.ElevMin+float64(ei)*resDeg)
			var idx [3]int
			dots := [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
			for i, v := range xyz {
				dot := u[0]*v[0] + u[1]*v[1] + u[2]*v[2]
				for k := 0; k < 3; k++ {
					if dot > dots[k] {
						copy(dots[k+1:], dots[k:])
						copy(idx[k+1:], idx[k:])
						dots[k] = dot
						idx[k] = i
						break
					}
				}
			}
			var w [3]float64
			for k := 0; k < 3; k++ {
				dot := math.Max(-1, math.Min(1, dots[k]))
				w[k] = 1 / (eps + math.Acos(dot))
			}
			cell := ei*nAzi + ai
			t.Idx[cell] = idx
			t.W[cell] = w
		}
	}
	return t
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// dirToXYZ converts azimuth/elevation in degrees to a unit vector using the
// same convention as the rotation math: x forward, y left, z up.
func dirToXYZ(aziDeg, elevDeg float64) [3]float64 {
	azi := aziDeg * math.Pi / 180
	elev := elevDeg * math.Pi / 180
	return [3]float64{
		math.Cos(elev) * math.Cos(azi),
		math.Cos(elev) * math.Sin(azi),
		math.Sin(elev),
	}
}
