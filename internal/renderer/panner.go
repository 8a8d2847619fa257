package renderer

import (
	"math"
	"sync"

	"github.com/tphakala/go-binaural-renderer/internal/fbank"
	"github.com/tphakala/go-binaural-renderer/internal/hrtf"
	"github.com/tphakala/go-binaural-renderer/internal/sh"
)

// pannerParams is the control-thread-owned parameter set of the panner.
type pannerParams struct {
	nSources int

	yaw, pitch, roll             float64 // radians, flips folded in
	flipYaw, flipPitch, flipRoll bool
	rollPitchYaw                 bool
	enableRotation               bool

	interp InterpMode

	useDefault bool
	hrtfPath   string
}

// Panner renders individual mono sources at arbitrary directions to two
// ears. Each source is convolved per band with interpolated HRTF gains;
// the summed output is normalised by 1/sqrt(N) so the loudness stays
// roughly constant as sources are added. Matrix updates ride the same
// previous-frame crossfade as the decoder, so moving a source never
// clicks.
type Panner struct {
	mu       sync.Mutex
	p        pannerParams
	dirs     [MaxSources][2]float64 // degrees [azimuth, elevation]
	srcDirty [MaxSources]bool
	rotDirty bool

	tft, codec reinit

	sampleRate int
	freqs      []float64

	c   *core
	set *hrtf.Set // guarded by mu for metadata getters

	tblNearest hrtf.Table
	tblTri     hrtf.Table

	gains   [][][]complex128 // [source][band][ear]
	rotDirs [MaxSources][2]float64

	// engaged configuration, audio-thread-owned
	nSources      int
	mBuilt        bool
	pendingFadeIn bool

	codecErr error // guarded by mu; written on rebuilds, read via Err
}

// NewPanner creates a panner for the given sample rate with one frontal
// source, triangular interpolation and the built-in HRTF set.
func NewPanner(sampleRate int) (*Panner, error) {
	c, err := newCore(MaxSources)
	if err != nil {
		return nil, err
	}
	p := &Panner{
		p: pannerParams{
			nSources:   1,
			interp:     InterpTriangular,
			useDefault: true,
		},
		rotDirty:   true,
		sampleRate: sampleRate,
		freqs:      fbank.CenterFrequencies(sampleRate),
		c:          c,
		gains:      make([][][]complex128, MaxSources),
	}
	for src := range p.gains {
		p.gains[src] = make([][]complex128, fbank.Bands)
		for band := range p.gains[src] {
			p.gains[src][band] = make([]complex128, NumEars)
		}
	}
	if err := p.initTFT(); err != nil {
		return nil, err
	}
	p.initCodec()
	if err := p.Err(); err != nil {
		return nil, err
	}
	return p, nil
}

// Process renders one block of nIn mono source channels into nOut output
// channels. The contract matches Decoder.Process: blocks are silent around
// rebuilds and for nSamples other than FrameSize, extra input channels are
// ignored, missing ones are silent, and isPlaying false mutes the output
// while history still advances.
func (p *Panner) Process(in, out [][]float64, nIn, nOut, nSamples int, isPlaying bool) {
	didInit := false
	if p.tft.consume() {
		if err := p.initTFT(); err != nil {
			p.setErr(err)
		}
		p.tft.finish()
		didInit = true
	}
	if p.codec.consume() {
		p.initCodec()
		p.codec.finish()
		didInit = true
	}
	if didInit || nSamples != FrameSize || !p.tft.clean() || !p.codec.clean() {
		zeroSamples(out, nOut, nSamples)
		return
	}

	p.mu.Lock()
	params := p.p
	var dirs [MaxSources][2]float64
	var dirty [MaxSources]bool
	copy(dirs[:], p.dirs[:])
	for src := 0; src < p.nSources; src++ {
		dirty[src] = p.srcDirty[src]
		p.srcDirty[src] = false
	}
	rotDirty := p.rotDirty
	p.rotDirty = false
	p.mu.Unlock()

	p.c.stageInput(in, clampInt(nIn, 0, p.nSources))
	if p.pendingFadeIn {
		p.c.fadeIn()
		p.pendingFadeIn = false
	}
	p.c.analyze()

	if params.enableRotation && (rotDirty || !p.mBuilt) {
		r := sh.RotationYPR(params.yaw, params.pitch, params.roll, params.rollPitchYaw)
		for src := 0; src < p.nSources; src++ {
			p.rotDirs[src] = rotateDir(dirs[src], r)
			dirty[src] = true
		}
	}

	tbl := p.tblNearest
	if params.interp == InterpTriangular {
		tbl = p.tblTri
	}
	refresh := !p.mBuilt
	for src := 0; src < p.nSources; src++ {
		if !dirty[src] && p.mBuilt {
			continue
		}
		dir := dirs[src]
		if params.enableRotation {
			dir = p.rotDirs[src]
		}
		p.set.Interpolate(tbl, dir[0], dir[1], p.freqs, p.gains[src])
		refresh = true
	}
	if refresh {
		scale := 1 / math.Sqrt(float64(p.nSources))
		for band := 0; band < fbank.Bands; band++ {
			m := p.c.curM[band]
			for src := 0; src < p.nSources; src++ {
				g := p.gains[src][band]
				for ear := 0; ear < NumEars; ear++ {
					m.Set(ear, src, g[ear]*complex(scale, 0))
				}
			}
		}
		p.mBuilt = true
	}

	if isPlaying {
		p.c.mixAll()
	} else {
		p.c.zeroOutFrame()
	}
	p.c.commitHistory()
	p.c.synthesize()

	fadeOut := !p.tft.clean() || !p.codec.clean()
	p.c.emit(out, nOut, fadeOut)
}

// rotateDir applies the rotation to a direction given in degrees, treating
// the direction as a row vector (the rotation's transpose), and returns
// the rotated direction in degrees.
func rotateDir(dirDeg [2]float64, r [3][3]float64) [2]float64 {
	azi := dirDeg[0] * math.Pi / 180
	elev := dirDeg[1] * math.Pi / 180
	v := [3]float64{
		math.Cos(elev) * math.Cos(azi),
		math.Cos(elev) * math.Sin(azi),
		math.Sin(elev),
	}
	var w [3]float64
	for j := 0; j < 3; j++ {
		w[j] = v[0]*r[0][j] + v[1]*r[1][j] + v[2]*r[2][j]
	}
	return [2]float64{
		math.Atan2(w[1], w[0]) * 180 / math.Pi,
		math.Atan2(w[2], math.Hypot(w[0], w[1])) * 180 / math.Pi,
	}
}

// initTFT engages the requested source count and discards sub-band history.
func (p *Panner) initTFT() error {
	p.mu.Lock()
	n := p.p.nSources
	for src := 0; src < n; src++ {
		p.srcDirty[src] = true
	}
	p.rotDirty = true
	p.mu.Unlock()
	p.nSources = n
	if err := p.c.setChannels(n); err != nil {
		return err
	}
	p.mBuilt = false
	p.pendingFadeIn = true
	return nil
}

// initCodec loads the configured HRTF set (built-in default on failure)
// and rebuilds both interpolation tables over its measurement grid.
func (p *Panner) initCodec() {
	p.mu.Lock()
	params := p.p
	p.mu.Unlock()

	p.setErr(nil)
	var set *hrtf.Set
	if !params.useDefault && params.hrtfPath != "" {
		s, err := hrtf.Load(params.hrtfPath, fbank.Bands)
		if err == nil && s.SampleRate != p.sampleRate {
			err = errSampleRateMismatch(s.SampleRate, p.sampleRate)
		}
		if err != nil {
			p.mu.Lock()
			p.codecErr = err
			p.p.useDefault = true
			p.mu.Unlock()
		} else {
			set = s
		}
	}
	if set == nil {
		set = hrtf.Default(p.sampleRate, p.freqs)
	}
	p.tblNearest = hrtf.NewNearestTable(set.Dirs)
	p.tblTri = hrtf.NewGridTable(set.Dirs, 2)

	p.mu.Lock()
	p.set = set
	for src := 0; src < p.nSources; src++ {
		p.srcDirty[src] = true
	}
	p.mu.Unlock()
	p.mBuilt = false
}

// SetNumSources requests a new active source count, clamped to
// [1, MaxSources]. Changing the count rebuilds the filterbank
// configuration.
func (p *Panner) SetNumSources(n int) {
	n = clampInt(n, 1, MaxSources)
	p.mu.Lock()
	changed := n != p.p.nSources
	p.p.nSources = n
	p.mu.Unlock()
	if changed {
		p.tft.Request()
	}
}

// NumSources returns the requested source count.
func (p *Panner) NumSources() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.p.nSources
}

// SetSourceDir sets the direction of one source in degrees. The azimuth is
// wrapped to [-180, 180] and the elevation clamped to [-90, 90]. Out-of-range
// indices are ignored; the change takes effect on the next block via the
// crossfade, without a rebuild.
func (p *Panner) SetSourceDir(index int, aziDeg, elevDeg float64) {
	if index < 0 || index >= MaxSources {
		return
	}
	p.mu.Lock()
	p.dirs[index] = [2]float64{wrapAzimuth(aziDeg), clampElevation(elevDeg)}
	p.srcDirty[index] = true
	p.rotDirty = true
	p.mu.Unlock()
}

// SetSourceAzimuth updates only the azimuth of one source in degrees,
// wrapped to [-180, 180].
func (p *Panner) SetSourceAzimuth(index int, aziDeg float64) {
	if index < 0 || index >= MaxSources {
		return
	}
	p.mu.Lock()
	p.dirs[index][0] = wrapAzimuth(aziDeg)
	p.srcDirty[index] = true
	p.rotDirty = true
	p.mu.Unlock()
}

// SetSourceElevation updates only the elevation of one source in degrees,
// clamped to [-90, 90].
func (p *Panner) SetSourceElevation(index int, elevDeg float64) {
	if index < 0 || index >= MaxSources {
		return
	}
	p.mu.Lock()
	p.dirs[index][1] = clampElevation(elevDeg)
	p.srcDirty[index] = true
	p.rotDirty = true
	p.mu.Unlock()
}

// wrapAzimuth maps an azimuth in degrees into [-180, 180].
func wrapAzimuth(deg float64) float64 {
	deg = math.Mod(deg+180, 360)
	if deg < 0 {
		deg += 360
	}
	return deg - 180
}

// clampElevation limits an elevation in degrees to [-90, 90].
func clampElevation(deg float64) float64 {
	return math.Max(-90, math.Min(90, deg))
}

// SourceDir returns the configured direction of one source in degrees.
func (p *Panner) SourceDir(index int) (aziDeg, elevDeg float64) {
	if index < 0 || index >= MaxSources {
		return 0, 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dirs[index][0], p.dirs[index][1]
}

// SetEnableRotation toggles listener-rotation compensation of the source
// directions. Disabling it restores the configured directions on the next
// block.
func (p *Panner) SetEnableRotation(enable bool) {
	p.mu.Lock()
	p.p.enableRotation = enable
	if enable {
		p.rotDirty = true
	} else {
		for src := 0; src < p.p.nSources; src++ {
			p.srcDirty[src] = true
		}
	}
	p.mu.Unlock()
}

// EnableRotation reports whether rotation compensation is on.
func (p *Panner) EnableRotation() bool { p.mu.Lock(); defer p.mu.Unlock(); return p.p.enableRotation }

// SetYaw sets the listener yaw in degrees. Positive yaw turns the head to
// the left, moving the rendered image towards the right ear; use SetFlipYaw
// for trackers with the opposite sign convention.
func (p *Panner) SetYaw(deg float64) {
	p.mu.Lock()
	if p.p.flipYaw {
		deg = -deg
	}
	p.p.yaw = deg * math.Pi / 180
	p.rotDirty = true
	p.mu.Unlock()
}

// Yaw returns the listener yaw in degrees, undoing any flip.
func (p *Panner) Yaw() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	deg := p.p.yaw * 180 / math.Pi
	if p.p.flipYaw {
		deg = -deg
	}
	return deg
}

// SetPitch sets the listener pitch in degrees.
func (p *Panner) SetPitch(deg float64) {
	p.mu.Lock()
	if p.p.flipPitch {
		deg = -deg
	}
	p.p.pitch = deg * math.Pi / 180
	p.rotDirty = true
	p.mu.Unlock()
}

// Pitch returns the listener pitch in degrees, undoing any flip.
func (p *Panner) Pitch() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	deg := p.p.pitch * 180 / math.Pi
	if p.p.flipPitch {
		deg = -deg
	}
	return deg
}

// SetRoll sets the listener roll in degrees.
func (p *Panner) SetRoll(deg float64) {
	p.mu.Lock()
	if p.p.flipRoll {
		deg = -deg
	}
	p.p.roll = deg * math.Pi / 180
	p.rotDirty = true
	p.mu.Unlock()
}

// Roll returns the listener roll in degrees, undoing any flip.
func (p *Panner) Roll() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	deg := p.p.roll * 180 / math.Pi
	if p.p.flipRoll {
		deg = -deg
	}
	return deg
}

// SetFlipYaw inverts the sign convention of the yaw axis.
func (p *Panner) SetFlipYaw(flip bool) {
	p.mu.Lock()
	if flip != p.p.flipYaw {
		p.p.flipYaw = flip
		p.p.yaw = -p.p.yaw
	}
	p.rotDirty = true
	p.mu.Unlock()
}

// SetFlipPitch inverts the sign convention of the pitch axis.
func (p *Panner) SetFlipPitch(flip bool) {
	p.mu.Lock()
	if flip != p.p.flipPitch {
		p.p.flipPitch = flip
		p.p.pitch = -p.p.pitch
	}
	p.rotDirty = true
	p.mu.Unlock()
}

// SetFlipRoll inverts the sign convention of the roll axis.
func (p *Panner) SetFlipRoll(flip bool) {
	p.mu.Lock()
	if flip != p.p.flipRoll {
		p.p.flipRoll = flip
		p.p.roll = -p.p.roll
	}
	p.rotDirty = true
	p.mu.Unlock()
}

// SetRollPitchYaw selects roll-pitch-yaw rotation composition.
func (p *Panner) SetRollPitchYaw(rpy bool) {
	p.mu.Lock()
	p.p.rollPitchYaw = rpy
	p.rotDirty = true
	p.mu.Unlock()
}

// RollPitchYaw reports the rotation composition order.
func (p *Panner) RollPitchYaw() bool { p.mu.Lock(); defer p.mu.Unlock(); return p.p.rollPitchYaw }

// FlipYaw reports whether the yaw axis is inverted.
func (p *Panner) FlipYaw() bool { p.mu.Lock(); defer p.mu.Unlock(); return p.p.flipYaw }

// FlipPitch reports whether the pitch axis is inverted.
func (p *Panner) FlipPitch() bool { p.mu.Lock(); defer p.mu.Unlock(); return p.p.flipPitch }

// FlipRoll reports whether the roll axis is inverted.
func (p *Panner) FlipRoll() bool { p.mu.Lock(); defer p.mu.Unlock(); return p.p.flipRoll }

// SetInterpMode selects the HRTF interpolation mode; all sources are
// re-interpolated on the next block.
func (p *Panner) SetInterpMode(mode InterpMode) {
	p.mu.Lock()
	p.p.interp = mode
	for src := 0; src < p.p.nSources; src++ {
		p.srcDirty[src] = true
	}
	p.mu.Unlock()
}

// InterpModeSetting returns the configured interpolation mode.
func (p *Panner) InterpModeSetting() InterpMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.p.interp
}

// SetUseDefaultHRIRs switches back to the built-in HRTF set.
func (p *Panner) SetUseDefaultHRIRs(use bool) {
	p.mu.Lock()
	trigger := use && !p.p.useDefault
	if trigger {
		p.p.useDefault = true
	}
	p.mu.Unlock()
	if trigger {
		p.codec.Request()
	}
}

// UseDefaultHRIRs reports whether the built-in set is active or requested.
func (p *Panner) UseDefaultHRIRs() bool { p.mu.Lock(); defer p.mu.Unlock(); return p.p.useDefault }

// SetHRTFPath requests loading a coefficient file, as in Decoder.
func (p *Panner) SetHRTFPath(path string) {
	p.mu.Lock()
	p.p.hrtfPath = path
	p.p.useDefault = false
	p.mu.Unlock()
	p.codec.Request()
}

// HRTFPath returns the configured coefficient file path.
func (p *Panner) HRTFPath() string { p.mu.Lock(); defer p.mu.Unlock(); return p.p.hrtfPath }

// NumHRTFDirs returns the measurement direction count of the active set.
func (p *Panner) NumHRTFDirs() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.set == nil {
		return 0
	}
	return p.set.NumDirs()
}

// HRIRLength returns the nominal impulse length of the active set.
func (p *Panner) HRIRLength() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.set == nil {
		return 0
	}
	return p.set.ImpulseLength
}

// HRIRSampleRate returns the native sample rate of the active set.
func (p *Panner) HRIRSampleRate() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.set == nil {
		return 0
	}
	return p.set.SampleRate
}

// SampleRate returns the renderer sample rate.
func (p *Panner) SampleRate() int { return p.sampleRate }

// Err returns the most recent rebuild error, if any.
func (p *Panner) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.codecErr
}

func (p *Panner) setErr(err error) {
	p.mu.Lock()
	p.codecErr = err
	p.mu.Unlock()
}

// FilterbankState returns the filterbank reinitialisation state.
func (p *Panner) FilterbankState() ReinitState { return p.tft.State() }

// CodecState returns the codec reinitialisation state.
func (p *Panner) CodecState() ReinitState { return p.codec.State() }
