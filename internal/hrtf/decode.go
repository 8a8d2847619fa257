package hrtf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/tphakala/go-binaural-renderer/internal/cmatrix"
	"github.com/tphakala/go-binaural-renderer/internal/sh"
)

// postGainDB is a fixed make-up gain applied to the fitted decode
// matrices, compensating the level of the least-squares fit.
const postGainDB = -9.0

// DecodeMatrices fits one [ear x SH-channel] decode matrix per band to the
// set's measurement grid by least squares: each matrix maps N3D ACN
// spherical-harmonic signals to the two ears so that decoding reproduces
// the measured coefficients at the grid directions as closely as possible.
// With maxRE enabled the per-degree max-rE weights are folded into the
// matrix columns. This runs at codec-init time only; it allocates freely
// and must not be called from the real-time path.
func DecodeMatrices(set *Set, order int, maxRE bool, dst []*cmatrix.Matrix) error {
	if len(dst) != set.NumBands() {
		return fmt.Errorf("hrtf: decode matrix count %d does not match bands %d",
			len(dst), set.NumBands())
	}
	nSH := sh.NumChannels(order)
	nDirs := set.NumDirs()

	// SH matrix of the measurement grid, directions as rows so the fit is
	// the overdetermined system Y^T M^T ~= H^T.
	yT := mat.NewDense(nDirs, nSH, nil)
	row := make([]float64, nSH)
	for d, dir := range set.Dirs {
		sh.RealSH(order, dir[0]*math.Pi/180, dir[1]*math.Pi/180, row)
		yT.SetRow(d, row)
	}

	weights := make([]float64, nSH)
	gains := []float64{1}
	if maxRE {
		gains = sh.MaxRE(order)
	}
	post := math.Pow(10, postGainDB/20)
	for ch := 0; ch < nSH; ch++ {
		g := 1.0
		if maxRE {
			g = gains[sh.Degree(ch)]
		}
		weights[ch] = g * post
	}

	bRe := mat.NewDense(nDirs, NumEars, nil)
	bIm := mat.NewDense(nDirs, NumEars, nil)
	var xRe, xIm mat.Dense
	for band := 0; band < set.NumBands(); band++ {
		for d := 0; d < nDirs; d++ {
			for ear := 0; ear < NumEars; ear++ {
				c := set.Coeffs[band][ear][d]
				bRe.Set(d, ear, real(c))
				bIm.Set(d, ear, imag(c))
			}
		}
		if err := xRe.Solve(yT, bRe); err != nil {
			return fmt.Errorf("hrtf: decode fit band %d: %w", band, err)
		}
		if err := xIm.Solve(yT, bIm); err != nil {
			return fmt.Errorf("hrtf: decode fit band %d: %w", band, err)
		}
		m := dst[band]
		m.Resize(NumEars, nSH)
		for ear := 0; ear < NumEars; ear++ {
			for ch := 0; ch < nSH; ch++ {
				m.Set(ear, ch, complex(
					xRe.At(ch, ear)*weights[ch],
					xIm.At(ch, ear)*weights[ch]))
			}
		}
	}
	return nil
}
