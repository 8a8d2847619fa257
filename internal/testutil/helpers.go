// Package testutil provides reusable test helpers for the renderer tests.
package testutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Default tolerances for common assertions.
const (
	DefaultTolerance = 1e-10
	EnergyTolerance  = 1e-9
)

// Sine fills dst with a sine of the given frequency, starting at the given
// sample phase, and returns dst.
func Sine(dst []float64, freqHz float64, sampleRate int, startSample int) []float64 {
	w := 2 * math.Pi * freqHz / float64(sampleRate)
	for i := range dst {
		dst[i] = math.Sin(w * float64(startSample+i))
	}
	return dst
}

// RMS returns the root-mean-square level of a slice.
func RMS(s []float64) float64 {
	if len(s) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(s)))
}

// Energy returns the summed squared samples of all channels.
func Energy(chans [][]float64) float64 {
	var e float64
	for _, ch := range chans {
		for _, v := range ch {
			e += v * v
		}
	}
	return e
}

// MakeChannels allocates nCh zeroed channels of nSamples each.
func MakeChannels(nCh, nSamples int) [][]float64 {
	chans := make([][]float64, nCh)
	for ch := range chans {
		chans[ch] = make([]float64, nSamples)
	}
	return chans
}

// AssertAllZero verifies that every sample of every channel is exactly
// zero.
func AssertAllZero(t *testing.T, chans [][]float64, msgAndArgs ...any) bool {
	t.Helper()
	for ch, buf := range chans {
		for i, v := range buf {
			if v != 0 {
				return assert.Fail(t, "nonzero sample",
					"channel %d sample %d = %g", ch, i, v)
			}
		}
	}
	return true
}

// AssertNoNaNOrInf verifies that no samples are NaN or Inf.
func AssertNoNaNOrInf(t *testing.T, s []float64, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if math.IsNaN(v) {
			return assert.Fail(t, "found NaN", "s[%d] is NaN", i)
		}
		if math.IsInf(v, 0) {
			return assert.Fail(t, "found Inf", "s[%d] is Inf", i)
		}
	}
	return true
}

// AssertAllInRange verifies that all samples are within [minVal, maxVal].
func AssertAllInRange(t *testing.T, s []float64, minVal, maxVal float64, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if v < minVal || v > maxVal {
			return assert.Fail(t, "value out of range",
				"s[%d]=%f is outside range [%f, %f]", i, v, minVal, maxVal)
		}
	}
	return true
}

// AssertRelativeError verifies that the relative error between actual and
// expected is within tolerance.
func AssertRelativeError(t *testing.T, expected, actual, tolerance float64, msgAndArgs ...any) bool {
	t.Helper()
	if expected == 0 {
		return assert.InDelta(t, expected, actual, tolerance, msgAndArgs...)
	}
	relError := math.Abs(actual-expected) / math.Abs(expected)
	return assert.LessOrEqual(t, relError, tolerance,
		"relative error %e exceeds tolerance %e (expected=%f, actual=%f)",
		relError, tolerance, expected, actual)
}
