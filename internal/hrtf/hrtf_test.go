package hrtf

import (
	"bytes"
	"math"
	"math/cmplx"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-binaural-renderer/internal/cmatrix"
	"github.com/tphakala/go-binaural-renderer/internal/fbank"
	"github.com/tphakala/go-binaural-renderer/internal/sh"
)

func defaultSet(t *testing.T) *Set {
	t.Helper()
	return Default(48000, fbank.CenterFrequencies(48000))
}

// TestDefault_Grid checks the built-in set's metadata and symmetries.
func TestDefault_Grid(t *testing.T) {
	s := defaultSet(t)
	assert.Equal(t, 110, s.NumDirs())
	assert.Equal(t, fbank.Bands, s.NumBands())
	assert.Equal(t, 48000, s.SampleRate)
	require.Len(t, s.ITDs, s.NumDirs())

	for d, dir := range s.Dirs {
		assert.GreaterOrEqual(t, dir[0], -180.0)
		assert.LessOrEqual(t, dir[0], 180.0)
		assert.GreaterOrEqual(t, dir[1], -90.0)
		assert.LessOrEqual(t, dir[1], 90.0)

		// Frontal and polar directions carry no ITD; lateral ones do.
		lat := math.Asin(math.Cos(dir[1]*math.Pi/180) * math.Sin(dir[0]*math.Pi/180))
		if math.Abs(lat) < 1e-9 {
			assert.InDelta(t, 0.0, s.ITDs[d], 1e-12)
		} else {
			assert.Equal(t, lat > 0, s.ITDs[d] > 0, "ITD sign at dir %v", dir)
		}
		assert.LessOrEqual(t, math.Abs(s.ITDs[d]), 0.0008, "ITD magnitude plausible")
	}

	// DC coefficients are unit magnitude and zero phase for every ear.
	for d := 0; d < s.NumDirs(); d++ {
		for ear := 0; ear < NumEars; ear++ {
			c := s.Coeffs[0][ear][d]
			assert.InDelta(t, 1.0, real(c), 1e-12)
			assert.InDelta(t, 0.0, imag(c), 1e-12)
		}
	}
}

// TestDefault_HeadShadow verifies that a hard-left source favours the left
// ear at high frequencies.
func TestDefault_HeadShadow(t *testing.T) {
	s := defaultSet(t)
	left := -1
	for d, dir := range s.Dirs {
		if dir[0] == 90 && dir[1] == 0 {
			left = d
			break
		}
	}
	require.GreaterOrEqual(t, left, 0, "grid must contain the hard-left direction")

	band := s.NumBands() - 1
	lMag := cmplx.Abs(s.Coeffs[band][0][left])
	rMag := cmplx.Abs(s.Coeffs[band][1][left])
	assert.Greater(t, lMag, rMag, "left ear louder for a left source")
	assert.Greater(t, s.ITDs[left], 0.0, "left ear leads for a left source")
}

// TestNearestTable_Query verifies exact and near lookups.
func TestNearestTable_Query(t *testing.T) {
	s := defaultSet(t)
	tbl := NewNearestTable(s.Dirs)

	for d, dir := range s.Dirs {
		idx, w := tbl.Query(dir[0], dir[1])
		assert.Equal(t, d, idx[0], "exact direction %v", dir)
		assert.Equal(t, [3]float64{1, 0, 0}, w)
	}

	// A slightly perturbed direction still snaps to its neighbour.
	idx, _ := tbl.Query(2.0, 3.0)
	assert.Equal(t, [2]float64{0, 0}, s.Dirs[idx[0]])
}

// TestGridTable_Query verifies the dense triangular table: measured
// directions dominate their own cell, and out-of-range queries clamp.
func TestGridTable_Query(t *testing.T) {
	s := defaultSet(t)
	tbl := NewGridTable(s.Dirs, 2)

	for d, dir := range s.Dirs {
		// Grid cells are 2 degrees apart, so a measured direction lands on
		// (or next to) a cell whose closest measurement is itself.
		idx, w := tbl.Query(dir[0], dir[1])
		assert.Equal(t, d, idx[0], "measured direction %v owns its cell", dir)
		assert.Greater(t, w[0], w[1], "own measurement carries the top weight")
		for k := 0; k < 3; k++ {
			assert.Greater(t, w[k], 0.0)
		}
	}

	// Between measurements all three neighbours contribute.
	_, w := tbl.Query(15, 20)
	assert.Greater(t, w[1]/w[0], 0.05, "off-grid query blends neighbours")

	// Out-of-range directions clamp to the border cells.
	idxHi, _ := tbl.Query(500, 200)
	idxCl, _ := tbl.Query(180, 90)
	assert.Equal(t, idxCl, idxHi)
}

// TestInterpolate_Weights verifies amplitude normalisation and the ITD
// phase term.
func TestInterpolate_Weights(t *testing.T) {
	s := defaultSet(t)
	freqs := fbank.CenterFrequencies(48000)
	dst := make([][]complex128, s.NumBands())
	for b := range dst {
		dst[b] = make([]complex128, NumEars)
	}

	// Nearest lookup at a measured direction must reproduce its
	// coefficients' magnitudes exactly.
	tbl := NewNearestTable(s.Dirs)
	s.Interpolate(tbl, 90, 0, freqs, dst)
	idx, _ := tbl.Query(90, 0)
	for band := 0; band < s.NumBands(); band++ {
		for ear := 0; ear < NumEars; ear++ {
			assert.InDelta(t, cmplx.Abs(s.Coeffs[band][ear][idx[0]]),
				cmplx.Abs(dst[band][ear]), 1e-9)
		}
	}

	// Unnormalised weights must not change the result: the driver
	// renormalises to unit sum.
	scaled := fixedTable{idx: idx, w: [3]float64{4, 0, 0}}
	s.Interpolate(scaled, 90, 0, freqs, dst)
	for ear := 0; ear < NumEars; ear++ {
		assert.InDelta(t, cmplx.Abs(s.Coeffs[10][ear][idx[0]]),
			cmplx.Abs(dst[10][ear]), 1e-9)
	}
}

type fixedTable struct {
	idx [3]int
	w   [3]float64
}

func (f fixedTable) Query(_, _ float64) ([3]int, [3]float64) { return f.idx, f.w }

// TestLoader_RoundTrip writes the default set and reads it back.
func TestLoader_RoundTrip(t *testing.T) {
	s := defaultSet(t)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, s))

	got, err := read(&buf, s.NumBands())
	require.NoError(t, err)
	assert.Equal(t, s.NumDirs(), got.NumDirs())
	assert.Equal(t, s.SampleRate, got.SampleRate)
	assert.Equal(t, s.ImpulseLength, got.ImpulseLength)
	assert.InDeltaSlice(t, s.ITDs, got.ITDs, 1e-15)
	for band := 0; band < s.NumBands(); band += 17 {
		for ear := 0; ear < NumEars; ear++ {
			for d := 0; d < s.NumDirs(); d += 13 {
				assert.Equal(t, s.Coeffs[band][ear][d], got.Coeffs[band][ear][d])
			}
		}
	}
}

// TestLoader_Errors covers the malformed-input paths that trigger the
// default-set fallback in the renderer.
func TestLoader_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.bin"), fbank.Bands)
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.bin")
	require.NoError(t, os.WriteFile(bad, []byte("not a coefficient file"), 0o644))
	_, err = Load(bad, fbank.Bands)
	assert.Error(t, err)

	// Band-count mismatch is rejected even for a well-formed file.
	s := defaultSet(t)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, s))
	_, err = read(&buf, fbank.Bands+1)
	assert.Error(t, err)
}

// TestDecodeMatrices_Fit verifies dimensions and that decoding the SH
// expansion of a measured direction approximates that direction's
// coefficients at low frequency.
func TestDecodeMatrices_Fit(t *testing.T) {
	const order = 3
	s := defaultSet(t)

	nSH := sh.NumChannels(order)
	dst := make([]*cmatrix.Matrix, s.NumBands())
	for b := range dst {
		dst[b] = cmatrix.New(NumEars, 64)
	}
	require.NoError(t, DecodeMatrices(s, order, false, dst))

	for b := range dst {
		assert.Equal(t, NumEars, dst[b].Rows())
		assert.Equal(t, nSH, dst[b].Cols())
	}

	// A frontal plane-wave at DC should decode to roughly equal, positive
	// ear gains (times the fixed post gain).
	y := make([]float64, nSH)
	sh.RealSH(order, 0, 0, y)
	var l, r complex128
	for ch := 0; ch < nSH; ch++ {
		l += dst[0].At(0, ch) * complex(y[ch], 0)
		r += dst[0].At(1, ch) * complex(y[ch], 0)
	}
	post := math.Pow(10, postGainDB/20)
	assert.InDelta(t, cmplx.Abs(l), cmplx.Abs(r), 0.1*post)
	assert.Greater(t, cmplx.Abs(l), 0.25*post, "frontal decode must not vanish")

	// Max-rE weighting scales the higher-degree columns down.
	dstRE := make([]*cmatrix.Matrix, s.NumBands())
	for b := range dstRE {
		dstRE[b] = cmatrix.New(NumEars, 64)
	}
	require.NoError(t, DecodeMatrices(s, order, true, dstRE))
	g := sh.MaxRE(order)
	band := 5
	for ch := 0; ch < nSH; ch++ {
		want := dst[band].At(0, ch) * complex(g[sh.Degree(ch)], 0)
		assert.InDelta(t, real(want), real(dstRE[band].At(0, ch)), 1e-9)
		assert.InDelta(t, imag(want), imag(dstRE[band].At(0, ch)), 1e-9)
	}
}
