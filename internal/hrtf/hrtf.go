// Package hrtf holds the head-related transfer function data consumed by
// the renderer: per-direction complex filterbank coefficients and
// inter-aural time delays, interpolation tables over those directions, and
// the per-band least-squares decode matrices fitted against a set's
// measurement grid.
//
// Measurement parsing (SOFA and friends) is an external concern. Sets reach
// this package either fully formed, from the flat binary format understood
// by Load, or from the built-in analytic default.
package hrtf

import "math"

// NumEars is the binaural output channel count.
const NumEars = 2

// Set is an immutable collection of HRTF filterbank coefficients. Once
// published to the renderer it is never mutated; configuration changes swap
// in a freshly built Set instead.
type Set struct {
	// Dirs holds the measurement directions in degrees [azimuth, elevation].
	// Azimuth is positive to the left, elevation positive upward.
	Dirs [][2]float64

	// ITDs holds the inter-aural time delay per direction in seconds.
	// Positive values mean the left ear leads.
	ITDs []float64

	// Coeffs holds the complex filterbank coefficients per band, ear and
	// direction: Coeffs[band][ear][dir].
	Coeffs [][][]complex128

	// SampleRate is the native sample rate of the measurements in Hz.
	SampleRate int

	// ImpulseLength is the nominal length in samples of the impulse
	// responses the coefficients were derived from.
	ImpulseLength int
}

// NumDirs returns the number of measurement directions.
func (s *Set) NumDirs() int { return len(s.Dirs) }

// NumBands returns the number of filterbank bands.
func (s *Set) NumBands() int { return len(s.Coeffs) }

// Interpolate computes the per-band, per-ear complex gain for a source at
// the given direction, combining the set's coefficients with the weights
// supplied by the table. Magnitudes and ITDs are interpolated separately
// with amplitude-normalised weights and recombined as a linear-phase term,
// which preserves the interpolated delay without comb-filtering between
// neighbouring measurements. dst is indexed [band][ear] and freqs holds the
// band center frequencies in Hz.
func (s *Set) Interpolate(tbl Table, aziDeg, elevDeg float64, freqs []float64, dst [][]complex128) {
	idx, w := tbl.Query(aziDeg, elevDeg)

	// Amplitude normalisation: the weights sum to one, so coincident
	// neighbours superpose to the original amplitude.
	sum := w[0] + w[1] + w[2]
	if sum <= 0 {
		w = [3]float64{1, 0, 0}
		sum = 1
	}
	inv := 1 / sum

	itd := 0.0
	for k := 0; k < 3; k++ {
		itd += w[k] * inv * s.ITDs[idx[k]]
	}

	for band := range s.Coeffs {
		f := freqs[band]
		for ear := 0; ear < NumEars; ear++ {
			var mag float64
			for k := 0; k < 3; k++ {
				if w[k] == 0 {
					continue
				}
				c := s.Coeffs[band][ear][idx[k]]
				mag += w[k] * inv * math.Hypot(real(c), imag(c))
			}
			// Left ear leads for positive ITD.
			tau := itd / 2
			if ear == 0 {
				tau = -tau
			}
			phase := -2 * math.Pi * f * tau
			dst[band][ear] = complex(mag*math.Cos(phase), mag*math.Sin(phase))
		}
	}
}
