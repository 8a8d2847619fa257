package renderer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPanner(t *testing.T) *Panner {
	t.Helper()
	p, err := NewPanner(48000)
	require.NoError(t, err)
	return p
}

// pannerEarEnergies renders several steady-state blocks of a sine through
// the panner and accumulates per-ear energy.
func pannerEarEnergies(t *testing.T, p *Panner, nSources int) (left, right float64) {
	t.Helper()
	in := makeBuffers(nSources, FrameSize)
	out := makeBuffers(2, FrameSize)
	for block := 0; block < 6; block++ {
		for ch := 0; ch < nSources; ch++ {
			for i := range in[ch] {
				in[ch][i] = math.Sin(2 * math.Pi * float64(i) * 1500 / 48000)
			}
		}
		p.Process(in, out, nSources, 2, FrameSize, true)
		if block < 3 {
			continue
		}
		for i := 0; i < FrameSize; i++ {
			left += out[0][i] * out[0][i]
			right += out[1][i] * out[1][i]
		}
	}
	return left, right
}

// TestPanner_Defaults checks the initial configuration.
func TestPanner_Defaults(t *testing.T) {
	p := newTestPanner(t)
	assert.Equal(t, 1, p.NumSources())
	azi, elev := p.SourceDir(0)
	assert.Zero(t, azi)
	assert.Zero(t, elev)
	assert.Equal(t, InterpTriangular, p.InterpModeSetting())
	assert.False(t, p.EnableRotation())
	assert.True(t, p.UseDefaultHRIRs())
	assert.Equal(t, StateClean, p.FilterbankState())
	assert.Greater(t, p.NumHRTFDirs(), 0)
}

// TestPanner_LateralSourceFavoursNearEar pans a source hard left and
// checks ear dominance under both interpolation modes.
func TestPanner_LateralSourceFavoursNearEar(t *testing.T) {
	for _, mode := range []InterpMode{InterpNearest, InterpTriangular} {
		p := newTestPanner(t)
		p.SetInterpMode(mode)
		p.SetSourceDir(0, 90, 0)
		left, right := pannerEarEnergies(t, p, 1)
		assert.Greater(t, left, right*1.1, "mode %v: left ear louder", mode)
		assert.Greater(t, right, 0.0, "mode %v: far ear attenuated, not muted", mode)
	}
}

// TestPanner_PowerNormalization verifies the 1/sqrt(N) source scaling: N
// coherent copies of the same source quadruple the energy for N=4, i.e.
// double the amplitude, rather than quadrupling it.
func TestPanner_PowerNormalization(t *testing.T) {
	p1 := newTestPanner(t)
	p1.SetSourceDir(0, 30, 0)
	l1, r1 := pannerEarEnergies(t, p1, 1)

	p4 := newTestPanner(t)
	p4.SetNumSources(4)
	for src := 0; src < 4; src++ {
		p4.SetSourceDir(src, 30, 0)
	}
	// The source-count change rebuilds on the next (silent) block.
	in := makeBuffers(4, FrameSize)
	out := makeBuffers(2, FrameSize)
	fillSentinel(out, 9)
	p4.Process(in, out, 4, 2, FrameSize, true)
	assert.Zero(t, blockEnergy(out, 2), "rebuild block is silent")
	require.Equal(t, StateClean, p4.FilterbankState())

	l4, r4 := pannerEarEnergies(t, p4, 4)
	assert.InDelta(t, 4.0, l4/l1, 0.05, "left energy ratio")
	assert.InDelta(t, 4.0, r4/r1, 0.05, "right energy ratio")
}

// TestPanner_MovingSourceIsContinuous pans a source across the front while
// rendering and checks the output never jumps between samples: the
// crossfade smears each matrix update over a full block.
func TestPanner_MovingSourceIsContinuous(t *testing.T) {
	p := newTestPanner(t)
	p.SetSourceDir(0, -90, 0)

	in := makeBuffers(1, FrameSize)
	out := makeBuffers(2, FrameSize)
	var samples []float64
	for block := 0; block < 12; block++ {
		p.SetSourceAzimuth(0, -90+float64(block)*15)
		for i := range in[0] {
			in[0][i] = math.Sin(2 * math.Pi * float64(i) * 500 / 48000)
		}
		p.Process(in, out, 1, 2, FrameSize, true)
		samples = append(samples, out[0]...)
	}

	// A 500 Hz sine at unit amplitude moves at most ~0.066 per sample;
	// leave generous headroom for the HRTF colouration.
	var maxStep float64
	for i := 1; i < len(samples); i++ {
		step := math.Abs(samples[i] - samples[i-1])
		if step > maxStep {
			maxStep = step
		}
	}
	assert.Less(t, maxStep, 0.25, "no clicks while the source moves")
}

// TestPanner_RotationCompensatesHead verifies that with rotation enabled a
// frontal source follows the head: yawing left moves the image to the
// right ear and vice versa.
func TestPanner_RotationCompensatesHead(t *testing.T) {
	render := func(yaw float64) (left, right float64) {
		p := newTestPanner(t)
		p.SetSourceDir(0, 0, 0)
		p.SetEnableRotation(true)
		p.SetYaw(yaw)
		return pannerEarEnergies(t, p, 1)
	}

	l, r := render(90)
	assert.Greater(t, r, l, "yaw left puts a frontal source at the right ear")
	l, r = render(-90)
	assert.Greater(t, l, r, "yaw right puts it at the left ear")
}

// TestPanner_SourceMoveUnderRotation moves a source while rotation
// compensation is active and the orientation stays put; the image must
// follow the source, not stick to its old rotated direction.
func TestPanner_SourceMoveUnderRotation(t *testing.T) {
	p := newTestPanner(t)
	p.SetEnableRotation(true)
	p.SetYaw(0)
	p.SetSourceDir(0, 0, 0)
	pannerEarEnergies(t, p, 1) // settle on the frontal position

	p.SetSourceDir(0, 90, 0)
	left, right := pannerEarEnergies(t, p, 1)
	assert.Greater(t, left, right*1.1, "moved source reaches the left ear")
}

// TestPanner_ConcurrentControl drives setters and getters from a control
// goroutine while Process renders, covering the documented thread contract
// under the race detector.
func TestPanner_ConcurrentControl(t *testing.T) {
	p := newTestPanner(t)
	in := makeBuffers(1, FrameSize)
	out := makeBuffers(2, FrameSize)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			p.SetSourceAzimuth(0, float64(i%360-180))
			p.SetYaw(float64(i))
			p.SetUseDefaultHRIRs(true)
			_ = p.Err()
			_ = p.NumHRTFDirs()
			_ = p.Yaw()
		}
	}()
	for i := 0; i < 200; i++ {
		p.Process(in, out, 1, 2, FrameSize, true)
	}
	<-done
	assert.NoError(t, p.Err())
}

// TestPanner_SourceMoveNeedsNoRebuild confirms direction changes ride the
// crossfade instead of the reinitialisation machinery.
func TestPanner_SourceMoveNeedsNoRebuild(t *testing.T) {
	p := newTestPanner(t)
	p.SetSourceDir(0, 45, 10)
	assert.Equal(t, StateClean, p.FilterbankState())
	assert.Equal(t, StateClean, p.CodecState())

	p.SetNumSources(3)
	assert.Equal(t, StateRequested, p.FilterbankState())
	assert.Equal(t, 3, p.NumSources())

	p.SetNumSources(500)
	assert.Equal(t, MaxSources, p.NumSources())
}

// TestPanner_AnglesAndFlips mirrors the decoder's angle conventions.
func TestPanner_AnglesAndFlips(t *testing.T) {
	p := newTestPanner(t)
	p.SetYaw(20)
	p.SetPitch(15)
	p.SetRoll(-5)
	assert.InDelta(t, 20, p.Yaw(), 1e-12)
	assert.InDelta(t, 15, p.Pitch(), 1e-12)
	assert.InDelta(t, -5, p.Roll(), 1e-12)

	p.SetFlipPitch(true)
	assert.True(t, p.FlipPitch())
	assert.InDelta(t, 15, p.Pitch(), 1e-12)
	p.SetPitch(-15)
	assert.InDelta(t, -15, p.Pitch(), 1e-12)

	p.SetRollPitchYaw(true)
	assert.True(t, p.RollPitchYaw())

	// Source directions wrap and clamp.
	p.SetSourceDir(0, 270, 120)
	azi, elev := p.SourceDir(0)
	assert.InDelta(t, -90, azi, 1e-12)
	assert.InDelta(t, 90, elev, 1e-12)
	p.SetSourceAzimuth(0, -200)
	azi, _ = p.SourceDir(0)
	assert.InDelta(t, 160, azi, 1e-12)
	p.SetSourceElevation(0, -95)
	_, elev = p.SourceDir(0)
	assert.InDelta(t, -90, elev, 1e-12)
}
