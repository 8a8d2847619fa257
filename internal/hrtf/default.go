package hrtf

import "math"

// Parameters of the built-in analytic set. The default grid and the
// spherical-head model stand in for a measured HRIR database, which is an
// external collaborator; the model produces a Woodworth ITD and a smooth
// high-frequency head-shadow magnitude per ear.
const (
	headRadiusM     = 0.0875
	speedOfSound    = 343.0
	shadowCornerHz  = 1500.0
	shadowDepth     = 0.5
	minMagnitude    = 0.05
	defaultHRIRLen  = 256
	defaultElevStep = 20.0
	defaultAziStep  = 30.0
	defaultElevMax  = 80.0
)

// Default synthesises the built-in HRTF set for the given sample rate and
// band center frequencies. The grid covers elevation rings from -80 to +80
// degrees in 20-degree steps with 12 azimuths each, plus both poles
// (110 directions).
func Default(sampleRate int, freqs []float64) *Set {
	var dirs [][2]float64
	for elev := -defaultElevMax; elev <= defaultElevMax+1e-9; elev += defaultElevStep {
		for azi := 0.0; azi < 360.0; azi += defaultAziStep {
			// Store azimuth in the +-180 convention used by the setters.
			a := azi
			if a > 180 {
				a -= 360
			}
			dirs = append(dirs, [2]float64{a, elev})
		}
	}
	dirs = append(dirs, [2]float64{0, -90}, [2]float64{0, 90})

	s := &Set{
		Dirs:          dirs,
		ITDs:          make([]float64, len(dirs)),
		Coeffs:        make([][][]complex128, len(freqs)),
		SampleRate:    sampleRate,
		ImpulseLength: defaultHRIRLen,
	}
	for band := range s.Coeffs {
		s.Coeffs[band] = make([][]complex128, NumEars)
		for ear := 0; ear < NumEars; ear++ {
			s.Coeffs[band][ear] = make([]complex128, len(dirs))
		}
	}

	for d, dir := range dirs {
		azi := dir[0] * math.Pi / 180
		elev := dir[1] * math.Pi / 180
		// Lateral angle: positive when the source is on the left.
		lat := math.Asin(math.Cos(elev) * math.Sin(azi))
		s.ITDs[d] = woodworthITD(lat)

		for band, f := range freqs {
			shade := f * f / (f*f + shadowCornerHz*shadowCornerHz)
			for ear := 0; ear < NumEars; ear++ {
				earSign := 1.0 // left
				if ear == 1 {
					earSign = -1.0
				}
				mag := 1 + shadowDepth*earSign*math.Sin(lat)*shade
				if mag < minMagnitude {
					mag = minMagnitude
				}
				tau := s.ITDs[d] / 2
				if ear == 0 {
					tau = -tau
				}
				phase := -2 * math.Pi * f * tau
				s.Coeffs[band][ear][d] = complex(mag*math.Cos(phase), mag*math.Sin(phase))
			}
		}
	}
	return s
}

// woodworthITD is the spherical-head delay model: tau = r/c (theta + sin
// theta) for lateral angle theta, signed so that positive means the left
// ear leads.
func woodworthITD(lat float64) float64 {
	sign := 1.0
	if lat < 0 {
		sign = -1.0
		lat = -lat
	}
	return sign * headRadiusM / speedOfSound * (lat + math.Sin(lat))
}
