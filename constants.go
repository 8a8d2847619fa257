package binaural

import (
	"github.com/tphakala/go-binaural-renderer/internal/fbank"
	"github.com/tphakala/go-binaural-renderer/internal/renderer"
)

// Processing dimensions shared by both renderers.
const (
	// FrameSize is the fixed processing block length in samples. Process
	// renders exactly this many samples per call; other lengths yield
	// silence.
	FrameSize = renderer.FrameSize

	// HopSize is the filterbank hop length; FrameSize spans TimeSlots hops.
	HopSize = fbank.HopSize

	// TimeSlots is the number of filterbank hops per block, and the
	// resolution of the matrix crossfade.
	TimeSlots = renderer.TimeSlots

	// Bands is the number of complex sub-bands the renderers mix in.
	Bands = fbank.Bands

	// MaxOrder is the highest supported ambisonic input order.
	MaxOrder = renderer.MaxOrder

	// MaxSHChannels is the ambisonic channel count at MaxOrder.
	MaxSHChannels = renderer.MaxSHChannels

	// MaxSources is the highest simultaneous source count of the panner.
	MaxSources = renderer.MaxSources

	// NumEars is the output channel count of both renderers.
	NumEars = renderer.NumEars

	// ProcessingDelay is the end-to-end latency in samples: one block of
	// matrix-update latency plus the filterbank delay.
	ProcessingDelay = renderer.ProcessingDelay
)

// Sample rate bounds accepted by the configurations. The built-in HRTF set
// is synthesised for the configured rate, so any rate in this range works
// without resampling.
const (
	// MinSampleRate is the lowest accepted sample rate in Hz.
	MinSampleRate = 8000

	// MaxSampleRate is the highest accepted sample rate in Hz.
	MaxSampleRate = 192000
)

// ChannelOrder selects the ambisonic channel ordering of decoder input.
type ChannelOrder = renderer.ChannelOrder

const (
	// ChannelOrderACN is the ambisonic channel number convention (default).
	ChannelOrderACN ChannelOrder = renderer.OrderACN

	// ChannelOrderFuMa is the legacy Furse-Malham ordering, defined for
	// orders up to one; higher-order material is treated as ACN.
	ChannelOrderFuMa ChannelOrder = renderer.OrderFuMa
)

// Normalization selects the gain convention of decoder input.
type Normalization = renderer.Normalization

const (
	// NormalizationN3D is full three-dimensional normalisation (default).
	NormalizationN3D Normalization = renderer.NormN3D

	// NormalizationSN3D is Schmidt semi-normalisation, as used by AmbiX
	// content.
	NormalizationSN3D Normalization = renderer.NormSN3D
)

// InterpMode selects how the panner blends HRTF measurements.
type InterpMode = renderer.InterpMode

const (
	// InterpTriangular blends the three nearest measurements (default).
	InterpTriangular InterpMode = renderer.InterpTriangular

	// InterpNearest snaps each source to the closest measurement.
	InterpNearest InterpMode = renderer.InterpNearest
)

// ReinitState exposes the lifecycle of a deferred reinitialisation, mainly
// for diagnostics: StateClean, StateRequested or StateInProgress.
type ReinitState = renderer.ReinitState

const (
	// StateClean means derived state matches the requested parameters.
	StateClean ReinitState = renderer.StateClean

	// StateRequested means a rebuild is pending; blocks are silent until
	// it completes.
	StateRequested ReinitState = renderer.StateRequested

	// StateInProgress means a rebuild is running right now.
	StateInProgress ReinitState = renderer.StateInProgress
)
