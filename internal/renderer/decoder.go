package renderer

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/tphakala/go-binaural-renderer/internal/cmatrix"
	"github.com/tphakala/go-binaural-renderer/internal/fbank"
	"github.com/tphakala/go-binaural-renderer/internal/hrtf"
	"github.com/tphakala/go-binaural-renderer/internal/sh"
)

// decoderParams is the control-thread-owned parameter set. Process takes a
// snapshot under the mutex once per block, so a block is rendered with one
// coherent view of the parameters.
type decoderParams struct {
	order   int
	chOrder ChannelOrder
	norm    Normalization

	yaw, pitch, roll             float64 // radians, flips folded in
	flipYaw, flipPitch, flipRoll bool
	rollPitchYaw                 bool

	maxRE     bool
	eqEnabled bool

	useDefault bool
	hrtfPath   string
}

// Decoder renders an ambisonic scene to two ears. Parameter setters are
// safe to call from a control thread while Process runs on the audio
// thread; structural changes (order, HRTF set, decode weighting) are
// deferred through the reinitialisation machines and applied at the top of
// a later Process call, which renders that block silent.
type Decoder struct {
	mu sync.Mutex
	p  decoderParams
	eq []float64 // per-band gains, guarded by mu

	tft, codec reinit
	rotDirty   atomic.Bool

	sampleRate int
	freqs      []float64

	c   *core
	dec []*cmatrix.Matrix // per band: NumEars x nSH, codec-owned
	set *hrtf.Set         // guarded by mu for metadata getters

	rotReal []float64
	rotM    *cmatrix.Matrix
	eqSnap  []float64

	// engaged configuration, audio-thread-owned
	order, nSH    int
	mBuilt        bool
	pendingFadeIn bool

	codecErr error // guarded by mu; written on rebuilds, read via Err
}

// NewDecoder creates a decoder for the given sample rate with first-order
// input, ACN ordering and N3D normalisation, rendering with the built-in
// HRTF set. The initial rebuild runs synchronously so the decoder is ready
// before the first Process call.
func NewDecoder(sampleRate int) (*Decoder, error) {
	c, err := newCore(MaxSHChannels)
	if err != nil {
		return nil, err
	}
	d := &Decoder{
		p: decoderParams{
			order:      1,
			useDefault: true,
		},
		eq:         make([]float64, fbank.Bands),
		sampleRate: sampleRate,
		freqs:      fbank.CenterFrequencies(sampleRate),
		c:          c,
		dec:        make([]*cmatrix.Matrix, fbank.Bands),
		rotReal:    make([]float64, MaxSHChannels*MaxSHChannels),
		rotM:       cmatrix.New(MaxSHChannels, MaxSHChannels),
		eqSnap:     make([]float64, fbank.Bands),
	}
	for band := range d.dec {
		d.dec[band] = cmatrix.New(NumEars, MaxSHChannels)
	}
	for band := range d.eq {
		d.eq[band] = 1
	}
	if err := d.initTFT(); err != nil {
		return nil, err
	}
	d.initCodec()
	if err := d.Err(); err != nil {
		return nil, err
	}
	return d, nil
}

// Process renders one block. in holds nIn channels of ambisonic input, out
// receives nOut channels of output; both must provide nSamples samples per
// channel. Only the first two output channels carry signal. The block is
// silent when nSamples differs from FrameSize or when a rebuild ran or is
// pending; input channels beyond the active SH count are ignored and
// missing ones are treated as silent. With isPlaying false the output is
// silent but the sub-band history still advances, so resuming playback
// does not replay stale audio.
func (d *Decoder) Process(in, out [][]float64, nIn, nOut, nSamples int, isPlaying bool) {
	didInit := false
	if d.tft.consume() {
		if err := d.initTFT(); err != nil {
			d.setErr(err)
		}
		d.tft.finish()
		didInit = true
	}
	if d.codec.consume() {
		d.initCodec()
		d.codec.finish()
		didInit = true
	}
	if didInit || nSamples != FrameSize || !d.tft.clean() || !d.codec.clean() {
		zeroSamples(out, nOut, nSamples)
		return
	}

	d.mu.Lock()
	p := d.p
	copy(d.eqSnap, d.eq)
	d.mu.Unlock()

	d.c.stageInput(in, clampInt(nIn, 0, d.nSH))
	d.remapInput(p)
	if d.pendingFadeIn {
		d.c.fadeIn()
		d.pendingFadeIn = false
	}
	d.c.analyze()
	d.updateMixingMatrix(p)

	if isPlaying {
		d.c.mixAll()
		if p.eqEnabled {
			d.applyEQ()
		}
	} else {
		d.c.zeroOutFrame()
	}
	d.c.commitHistory()
	d.c.synthesize()

	fadeOut := !d.tft.clean() || !d.codec.clean()
	d.c.emit(out, nOut, fadeOut)
}

// remapInput converts the staged block from the configured input
// conventions to internal ACN/N3D.
func (d *Decoder) remapInput(p decoderParams) {
	if p.chOrder == OrderFuMa && d.order == 1 {
		// FuMa WXYZ to ACN WYZX; W carries FuMa's 3 dB-down gain, the
		// remaining first-order channels match SN3D scaling.
		td := d.c.td
		td[1], td[2], td[3] = td[2], td[3], td[1]
		w := td[0]
		for i := range w {
			w[i] *= math.Sqrt2
		}
	}
	if p.norm == NormSN3D {
		sh.SN3DToN3D(d.c.td[:d.nSH], d.order)
	}
}

// updateMixingMatrix refreshes the per-band current matrix: the decode
// matrix composed with the SH-domain rotation. The product is recomputed
// only when the orientation changed or a rebuild invalidated it; otherwise
// the matrices from the previous block carry over unchanged.
func (d *Decoder) updateMixingMatrix(p decoderParams) {
	dirty := d.rotDirty.Swap(false)
	if !dirty && d.mBuilt {
		return
	}
	if d.order == 0 {
		for band := 0; band < fbank.Bands; band++ {
			d.c.curM[band].CopyFrom(d.dec[band])
		}
		d.mBuilt = true
		return
	}
	// Head rotation by R moves the scene by R^T: expand the transpose.
	r := sh.RotationYPR(p.yaw, p.pitch, p.roll, p.rollPitchYaw)
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			r[i][j], r[j][i] = r[j][i], r[i][j]
		}
	}
	sh.RotationToSH(r, d.order, d.rotReal, MaxSHChannels)
	d.rotM.SetRealPart(d.nSH, d.nSH, d.rotReal, MaxSHChannels)
	for band := 0; band < fbank.Bands; band++ {
		cmatrix.Mul(d.c.curM[band], d.dec[band], d.rotM)
	}
	d.mBuilt = true
}

func (d *Decoder) applyEQ() {
	for band := 0; band < fbank.Bands; band++ {
		g := d.eqSnap[band]
		if g == 1 {
			continue
		}
		m := d.c.outFrame[band]
		for ear := 0; ear < NumEars; ear++ {
			row := m.Row(ear)
			for t := range row {
				row[t] *= complex(g, 0)
			}
		}
	}
}

// initTFT engages the requested order: it reconfigures the filterbank for
// the new SH channel count and discards all sub-band history.
func (d *Decoder) initTFT() error {
	d.mu.Lock()
	order := d.p.order
	d.mu.Unlock()
	d.order = order
	d.nSH = sh.NumChannels(order)
	if err := d.c.setChannels(d.nSH); err != nil {
		return err
	}
	d.mBuilt = false
	d.pendingFadeIn = true
	return nil
}

// initCodec rebuilds the HRTF-derived state: it loads the configured set
// (falling back to the built-in default on any load or fit problem) and
// fits the per-band decode matrices for the engaged order. The error, if
// any, is retained for inspection; rendering continues with the fallback.
func (d *Decoder) initCodec() {
	d.mu.Lock()
	p := d.p
	d.mu.Unlock()

	d.setErr(nil)
	var set *hrtf.Set
	if !p.useDefault && p.hrtfPath != "" {
		s, err := hrtf.Load(p.hrtfPath, fbank.Bands)
		if err == nil && s.SampleRate != d.sampleRate {
			err = errSampleRateMismatch(s.SampleRate, d.sampleRate)
		}
		if err != nil {
			d.mu.Lock()
			d.codecErr = err
			d.p.useDefault = true
			d.mu.Unlock()
		} else {
			set = s
		}
	}
	if set == nil {
		set = hrtf.Default(d.sampleRate, d.freqs)
	}
	if err := hrtf.DecodeMatrices(set, d.order, p.maxRE, d.dec); err != nil {
		d.setErr(err)
		set = hrtf.Default(d.sampleRate, d.freqs)
		if err := hrtf.DecodeMatrices(set, d.order, p.maxRE, d.dec); err != nil {
			for band := range d.dec {
				d.dec[band].ZeroAll()
				d.dec[band].Resize(NumEars, d.nSH)
			}
		}
	}
	d.mu.Lock()
	d.set = set
	d.mu.Unlock()
	d.mBuilt = false
}

// SetInputOrder requests a new ambisonic input order, clamped to
// [0, MaxOrder]. Changing the order rebuilds both the filterbank
// configuration and the decode matrices.
func (d *Decoder) SetInputOrder(order int) {
	order = clampInt(order, 0, MaxOrder)
	d.mu.Lock()
	changed := order != d.p.order
	d.p.order = order
	d.mu.Unlock()
	if changed {
		d.tft.Request()
		d.codec.Request()
	}
}

// InputOrder returns the requested ambisonic input order.
func (d *Decoder) InputOrder() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.p.order
}

// SetChannelOrder selects the input channel ordering. Takes effect on the
// next block without a rebuild. FuMa input is remapped to ACN and its W
// gain restored; since FuMa's remaining first-order channels follow SN3D
// scaling, FuMa material should be paired with SetNormalization(NormSN3D).
func (d *Decoder) SetChannelOrder(c ChannelOrder) {
	d.mu.Lock()
	d.p.chOrder = c
	d.mu.Unlock()
}

// ChannelOrderConvention returns the configured input channel ordering.
func (d *Decoder) ChannelOrderConvention() ChannelOrder {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.p.chOrder
}

// SetNormalization selects the input gain convention. Takes effect on the
// next block without a rebuild.
func (d *Decoder) SetNormalization(n Normalization) {
	d.mu.Lock()
	d.p.norm = n
	d.mu.Unlock()
}

// NormalizationConvention returns the configured input normalisation.
func (d *Decoder) NormalizationConvention() Normalization {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.p.norm
}

// SetYaw sets the listener yaw in degrees. Positive yaw turns the head to
// the left, moving the rendered image towards the right ear; use SetFlipYaw
// for trackers with the opposite sign convention.
func (d *Decoder) SetYaw(deg float64) {
	d.mu.Lock()
	if d.p.flipYaw {
		deg = -deg
	}
	d.p.yaw = deg * math.Pi / 180
	d.mu.Unlock()
	d.rotDirty.Store(true)
}

// Yaw returns the listener yaw in degrees, undoing any flip.
func (d *Decoder) Yaw() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	deg := d.p.yaw * 180 / math.Pi
	if d.p.flipYaw {
		deg = -deg
	}
	return deg
}

// SetPitch sets the listener pitch in degrees.
func (d *Decoder) SetPitch(deg float64) {
	d.mu.Lock()
	if d.p.flipPitch {
		deg = -deg
	}
	d.p.pitch = deg * math.Pi / 180
	d.mu.Unlock()
	d.rotDirty.Store(true)
}

// Pitch returns the listener pitch in degrees, undoing any flip.
func (d *Decoder) Pitch() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	deg := d.p.pitch * 180 / math.Pi
	if d.p.flipPitch {
		deg = -deg
	}
	return deg
}

// SetRoll sets the listener roll in degrees.
func (d *Decoder) SetRoll(deg float64) {
	d.mu.Lock()
	if d.p.flipRoll {
		deg = -deg
	}
	d.p.roll = deg * math.Pi / 180
	d.mu.Unlock()
	d.rotDirty.Store(true)
}

// Roll returns the listener roll in degrees, undoing any flip.
func (d *Decoder) Roll() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	deg := d.p.roll * 180 / math.Pi
	if d.p.flipRoll {
		deg = -deg
	}
	return deg
}

// SetFlipYaw inverts the sign convention of the yaw axis. The stored angle
// is renegated so the physical orientation is unchanged until the next
// SetYaw.
func (d *Decoder) SetFlipYaw(flip bool) {
	d.mu.Lock()
	if flip != d.p.flipYaw {
		d.p.flipYaw = flip
		d.p.yaw = -d.p.yaw
	}
	d.mu.Unlock()
	d.rotDirty.Store(true)
}

// SetFlipPitch inverts the sign convention of the pitch axis.
func (d *Decoder) SetFlipPitch(flip bool) {
	d.mu.Lock()
	if flip != d.p.flipPitch {
		d.p.flipPitch = flip
		d.p.pitch = -d.p.pitch
	}
	d.mu.Unlock()
	d.rotDirty.Store(true)
}

// SetFlipRoll inverts the sign convention of the roll axis.
func (d *Decoder) SetFlipRoll(flip bool) {
	d.mu.Lock()
	if flip != d.p.flipRoll {
		d.p.flipRoll = flip
		d.p.roll = -d.p.roll
	}
	d.mu.Unlock()
	d.rotDirty.Store(true)
}

// FlipYaw reports whether the yaw axis is inverted.
func (d *Decoder) FlipYaw() bool { d.mu.Lock(); defer d.mu.Unlock(); return d.p.flipYaw }

// FlipPitch reports whether the pitch axis is inverted.
func (d *Decoder) FlipPitch() bool { d.mu.Lock(); defer d.mu.Unlock(); return d.p.flipPitch }

// FlipRoll reports whether the roll axis is inverted.
func (d *Decoder) FlipRoll() bool { d.mu.Lock(); defer d.mu.Unlock(); return d.p.flipRoll }

// SetRollPitchYaw selects roll-pitch-yaw rotation composition instead of
// the default yaw-pitch-roll.
func (d *Decoder) SetRollPitchYaw(rpy bool) {
	d.mu.Lock()
	d.p.rollPitchYaw = rpy
	d.mu.Unlock()
	d.rotDirty.Store(true)
}

// RollPitchYaw reports the rotation composition order.
func (d *Decoder) RollPitchYaw() bool { d.mu.Lock(); defer d.mu.Unlock(); return d.p.rollPitchYaw }

// SetEnableMaxRE toggles max-rE decode weighting; requires a codec rebuild.
func (d *Decoder) SetEnableMaxRE(enable bool) {
	d.mu.Lock()
	changed := enable != d.p.maxRE
	d.p.maxRE = enable
	d.mu.Unlock()
	if changed {
		d.codec.Request()
	}
}

// EnableMaxRE reports whether max-rE weighting is on.
func (d *Decoder) EnableMaxRE() bool { d.mu.Lock(); defer d.mu.Unlock(); return d.p.maxRE }

// SetEnableEQ toggles the per-band output EQ. Takes effect on the next
// block without a rebuild.
func (d *Decoder) SetEnableEQ(enable bool) {
	d.mu.Lock()
	d.p.eqEnabled = enable
	d.mu.Unlock()
}

// EnableEQ reports whether the per-band EQ is applied.
func (d *Decoder) EnableEQ() bool { d.mu.Lock(); defer d.mu.Unlock(); return d.p.eqEnabled }

// SetEQ replaces the leading per-band EQ gains. Negative gains clamp to
// zero; bands beyond the supplied slice keep their previous gain.
func (d *Decoder) SetEQ(gains []float64) {
	d.mu.Lock()
	n := clampInt(len(gains), 0, fbank.Bands)
	for band := 0; band < n; band++ {
		g := gains[band]
		if g < 0 {
			g = 0
		}
		d.eq[band] = g
	}
	d.mu.Unlock()
}

// EQ copies the current per-band gains into dst and returns it.
func (d *Decoder) EQ(dst []float64) []float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if dst == nil {
		dst = make([]float64, fbank.Bands)
	}
	copy(dst, d.eq)
	return dst
}

// SetUseDefaultHRIRs switches back to the built-in HRTF set. Only the
// transition to the default triggers a rebuild; leaving it requires a path
// via SetHRTFPath.
func (d *Decoder) SetUseDefaultHRIRs(use bool) {
	d.mu.Lock()
	trigger := use && !d.p.useDefault
	if trigger {
		d.p.useDefault = true
	}
	d.mu.Unlock()
	if trigger {
		d.codec.Request()
	}
}

// UseDefaultHRIRs reports whether the built-in set is active or requested.
func (d *Decoder) UseDefaultHRIRs() bool { d.mu.Lock(); defer d.mu.Unlock(); return d.p.useDefault }

// SetHRTFPath requests loading a coefficient file. The load happens on the
// audio thread during the rebuild; on failure the decoder reverts to the
// built-in set and retains the error.
func (d *Decoder) SetHRTFPath(path string) {
	d.mu.Lock()
	d.p.hrtfPath = path
	d.p.useDefault = false
	d.mu.Unlock()
	d.codec.Request()
}

// HRTFPath returns the configured coefficient file path.
func (d *Decoder) HRTFPath() string { d.mu.Lock(); defer d.mu.Unlock(); return d.p.hrtfPath }

// NumHRTFDirs returns the measurement direction count of the active set.
func (d *Decoder) NumHRTFDirs() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.set == nil {
		return 0
	}
	return d.set.NumDirs()
}

// HRIRLength returns the nominal impulse length of the active set.
func (d *Decoder) HRIRLength() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.set == nil {
		return 0
	}
	return d.set.ImpulseLength
}

// HRIRSampleRate returns the native sample rate of the active set.
func (d *Decoder) HRIRSampleRate() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.set == nil {
		return 0
	}
	return d.set.SampleRate
}

// SampleRate returns the renderer sample rate.
func (d *Decoder) SampleRate() int { return d.sampleRate }

// Err returns the most recent rebuild error, if any. Rendering continues
// with the built-in set after a failed load.
func (d *Decoder) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.codecErr
}

func (d *Decoder) setErr(err error) {
	d.mu.Lock()
	d.codecErr = err
	d.mu.Unlock()
}

func errSampleRateMismatch(got, want int) error {
	return fmt.Errorf("renderer: coefficient sample rate %d does not match renderer rate %d", got, want)
}

// FilterbankState returns the filterbank reinitialisation state.
func (d *Decoder) FilterbankState() ReinitState { return d.tft.State() }

// CodecState returns the codec reinitialisation state.
func (d *Decoder) CodecState() ReinitState { return d.codec.State() }
