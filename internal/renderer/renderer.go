// Package renderer implements the real-time binaural rendering pipelines:
// an ambisonic decoder that maps spherical-harmonic scene audio to two
// ears, and a source panner that places individual mono sources. Both share
// the same sub-band machinery: a filterbank front end, per-band complex
// mixing matrices, a one-frame crossfade between matrix updates, and a
// deferred reinitialisation protocol that keeps structural changes off the
// audio thread's critical path.
package renderer

import "github.com/tphakala/go-binaural-renderer/internal/fbank"

// Fixed dimensions of the processing pipeline.
const (
	// TimeSlots is the number of filterbank hops per processing block.
	TimeSlots = 4

	// FrameSize is the processing block length in samples. Process accepts
	// exactly this many samples per call.
	FrameSize = TimeSlots * fbank.HopSize

	// MaxOrder is the highest supported ambisonic input order.
	MaxOrder = 7

	// MaxSHChannels is the channel count at MaxOrder.
	MaxSHChannels = (MaxOrder + 1) * (MaxOrder + 1)

	// MaxSources is the highest supported simultaneous source count.
	MaxSources = 64

	// NumEars is the binaural output channel count.
	NumEars = 2

	// ProcessingDelay is the total pipeline latency in samples: one block
	// of matrix-update latency plus the filterbank delay.
	ProcessingDelay = FrameSize + fbank.Delay
)

// ChannelOrder selects the ambisonic channel ordering of the input signals.
type ChannelOrder int

const (
	// OrderACN is the ambisonic channel number convention.
	OrderACN ChannelOrder = iota
	// OrderFuMa is the legacy Furse-Malham ordering, defined for orders up
	// to one; higher-order material is treated as ACN.
	OrderFuMa
)

// Normalization selects the gain convention of the input signals. The
// pipeline operates in N3D internally.
type Normalization int

const (
	// NormN3D is full three-dimensional normalisation (the internal
	// convention; input passes through unscaled).
	NormN3D Normalization = iota
	// NormSN3D is Schmidt semi-normalisation.
	NormSN3D
)

// InterpMode selects how the panner derives filters between HRTF
// measurement directions.
type InterpMode int

const (
	// InterpTriangular blends the three nearest measurements (default).
	InterpTriangular InterpMode = iota
	// InterpNearest snaps each source to the closest measurement.
	InterpNearest
)

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func zeroSamples(out [][]float64, nCh, nSamples int) {
	for ch := 0; ch < nCh; ch++ {
		buf := out[ch][:nSamples]
		for i := range buf {
			buf[i] = 0
		}
	}
}
