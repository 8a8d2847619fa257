package binaural

import (
	"errors"
	"fmt"

	"github.com/tphakala/go-binaural-renderer/internal/renderer"
)

// Common errors returned by the renderers.
var (
	// ErrInvalidConfig indicates invalid configuration parameters.
	ErrInvalidConfig = errors.New("invalid renderer configuration")

	// ErrHRTFLoad indicates the configured HRTF coefficient file could not
	// be used; rendering continues with the built-in set.
	ErrHRTFLoad = errors.New("HRTF coefficients unusable")
)

// Renderer is the block-processing contract shared by both renderers.
type Renderer interface {
	// Process renders one block. in holds nIn input channels and out
	// receives nOut output channels, each with nSamples samples. Blocks
	// are rendered only for nSamples == FrameSize; only the first NumEars
	// output channels carry signal, the rest are zeroed. With isPlaying
	// false the output is silent but internal history still advances.
	Process(in, out [][]float64, nIn, nOut, nSamples int, isPlaying bool)

	// ProcessingDelay returns the end-to-end latency in samples.
	ProcessingDelay() int

	// SampleRate returns the configured sample rate in Hz.
	SampleRate() int
}

// DecoderConfig configures an AmbisonicDecoder.
type DecoderConfig struct {
	// SampleRate is the processing sample rate in Hz.
	SampleRate int

	// Order is the ambisonic input order, 0 to MaxOrder. The decoder
	// consumes (Order+1)^2 input channels.
	Order int

	// ChannelOrder is the channel convention of the input signals.
	ChannelOrder ChannelOrder

	// Normalization is the gain convention of the input signals.
	Normalization Normalization

	// EnableMaxRE applies max-rE weighting to the decode matrices, trading
	// a small high-frequency rolloff for better localisation.
	EnableMaxRE bool

	// HRTFPath optionally names a filterbank coefficient file. When empty,
	// or when the file cannot be used, the built-in set is rendered with.
	HRTFPath string
}

// Validate checks if the configuration is valid.
func (c *DecoderConfig) Validate() error {
	if c.SampleRate < MinSampleRate || c.SampleRate > MaxSampleRate {
		return fmt.Errorf("%w: sample rate must be %d-%d Hz", ErrInvalidConfig, MinSampleRate, MaxSampleRate)
	}
	if c.Order < 0 || c.Order > MaxOrder {
		return fmt.Errorf("%w: order must be 0-%d", ErrInvalidConfig, MaxOrder)
	}
	if c.ChannelOrder != ChannelOrderACN && c.ChannelOrder != ChannelOrderFuMa {
		return fmt.Errorf("%w: unknown channel ordering %d", ErrInvalidConfig, c.ChannelOrder)
	}
	if c.Normalization != NormalizationN3D && c.Normalization != NormalizationSN3D {
		return fmt.Errorf("%w: unknown normalisation %d", ErrInvalidConfig, c.Normalization)
	}
	return nil
}

// PannerConfig configures a SourcePanner.
type PannerConfig struct {
	// SampleRate is the processing sample rate in Hz.
	SampleRate int

	// Layout optionally seeds the source directions from a named speaker
	// layout. Ignored when Sources is non-empty.
	Layout Layout

	// Sources lists explicit source directions in degrees
	// [azimuth, elevation], azimuth positive to the left. At most
	// MaxSources entries.
	Sources [][2]float64

	// InterpMode selects the HRTF interpolation between measurements.
	InterpMode InterpMode

	// EnableRotation compensates the source directions for listener
	// rotation (head tracking).
	EnableRotation bool

	// HRTFPath optionally names a filterbank coefficient file, as in
	// DecoderConfig.
	HRTFPath string
}

// Validate checks if the configuration is valid.
func (c *PannerConfig) Validate() error {
	if c.SampleRate < MinSampleRate || c.SampleRate > MaxSampleRate {
		return fmt.Errorf("%w: sample rate must be %d-%d Hz", ErrInvalidConfig, MinSampleRate, MaxSampleRate)
	}
	if len(c.Sources) > MaxSources {
		return fmt.Errorf("%w: too many sources (max %d)", ErrInvalidConfig, MaxSources)
	}
	if len(c.Sources) == 0 {
		if _, err := LayoutDirections(c.Layout); err != nil {
			return err
		}
	}
	if c.InterpMode != InterpNearest && c.InterpMode != InterpTriangular {
		return fmt.Errorf("%w: unknown interpolation mode %d", ErrInvalidConfig, c.InterpMode)
	}
	return nil
}

// directions returns the effective source directions.
func (c *PannerConfig) directions() ([][2]float64, error) {
	if len(c.Sources) > 0 {
		return c.Sources, nil
	}
	return LayoutDirections(c.Layout)
}

// AmbisonicDecoder renders an ambisonic scene binaurally. All parameter
// setters of the underlying engine are promoted and safe to call while
// Process runs on another goroutine; see the package documentation for the
// deferred-reinitialisation semantics.
type AmbisonicDecoder struct {
	*renderer.Decoder
}

// NewAmbisonicDecoder creates a decoder from the configuration.
// Configuration values that differ structurally from the defaults are
// applied through the deferred-reinitialisation path, so the first Process
// call may render silence while the rebuild runs.
func NewAmbisonicDecoder(cfg *DecoderConfig) (*AmbisonicDecoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dec, err := renderer.NewDecoder(cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	d := &AmbisonicDecoder{Decoder: dec}
	d.SetChannelOrder(cfg.ChannelOrder)
	d.SetNormalization(cfg.Normalization)
	d.SetEnableMaxRE(cfg.EnableMaxRE)
	d.SetInputOrder(cfg.Order)
	if cfg.HRTFPath != "" {
		d.SetHRTFPath(cfg.HRTFPath)
	}
	return d, nil
}

// ProcessingDelay returns the end-to-end latency in samples.
func (d *AmbisonicDecoder) ProcessingDelay() int { return ProcessingDelay }

// NumInputChannels returns the channel count the configured order consumes.
func (d *AmbisonicDecoder) NumInputChannels() int {
	o := d.InputOrder() + 1
	return o * o
}

// SourcePanner renders individual mono sources binaurally. All parameter
// setters of the underlying engine are promoted and safe to call while
// Process runs on another goroutine.
type SourcePanner struct {
	*renderer.Panner
}

// NewSourcePanner creates a panner from the configuration.
func NewSourcePanner(cfg *PannerConfig) (*SourcePanner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dirs, err := cfg.directions()
	if err != nil {
		return nil, err
	}
	pan, err := renderer.NewPanner(cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	p := &SourcePanner{Panner: pan}
	p.SetInterpMode(cfg.InterpMode)
	p.SetEnableRotation(cfg.EnableRotation)
	for i, d := range dirs {
		p.SetSourceDir(i, d[0], d[1])
	}
	p.SetNumSources(len(dirs))
	if cfg.HRTFPath != "" {
		p.SetHRTFPath(cfg.HRTFPath)
	}
	return p, nil
}

// ProcessingDelay returns the end-to-end latency in samples.
func (p *SourcePanner) ProcessingDelay() int { return ProcessingDelay }
