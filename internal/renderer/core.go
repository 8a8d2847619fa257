package renderer

import (
	"github.com/tphakala/go-binaural-renderer/internal/cmatrix"
	"github.com/tphakala/go-binaural-renderer/internal/fbank"
)

// mixer applies the per-band crossfade between the previous and current
// mixing matrices. Both matrices are applied to the PREVIOUS block's
// sub-band frame, and the two products are blended per time slot with a
// linear ramp that reaches the current matrix exactly at the block
// boundary. Applying matrices to the previous frame is what gives the
// pipeline its one-block matrix-update latency and, with it, click-free
// parameter changes.
type mixer struct {
	w       [TimeSlots]float64
	prevOut *cmatrix.Matrix
}

func newMixer() *mixer {
	m := &mixer{prevOut: cmatrix.New(NumEars, TimeSlots)}
	for t := 0; t < TimeSlots; t++ {
		m.w[t] = float64(t+1) / float64(TimeSlots)
	}
	return m
}

// mixBand computes dst = blend(curM x prevFrame, prevM x prevFrame) for one
// band. dst ends up NumEars x TimeSlots.
func (m *mixer) mixBand(dst, curM, prevM, prevFrame *cmatrix.Matrix) {
	cmatrix.Mul(m.prevOut, prevM, prevFrame)
	cmatrix.Mul(dst, curM, prevFrame)
	for ear := 0; ear < dst.Rows(); ear++ {
		cur := dst.Row(ear)
		prev := m.prevOut.Row(ear)
		for t := range cur {
			w := complex(m.w[t], 0)
			cur[t] = w*cur[t] + (1-w)*prev[t]
		}
	}
}

// core is the sub-band plumbing shared by the decoder and the panner: the
// filterbank, the paired previous/current frames and matrices per band, and
// the time-domain staging buffers. Everything is allocated once for the
// maximum input channel count; setChannels only adjusts logical extents.
type core struct {
	bank  *fbank.Bank
	maxIn int
	nIn   int

	curFrame  []*cmatrix.Matrix // per band: nIn x TimeSlots
	prevFrame []*cmatrix.Matrix
	curM      []*cmatrix.Matrix // per band: NumEars x nIn
	prevM     []*cmatrix.Matrix
	outFrame  []*cmatrix.Matrix // per band: NumEars x TimeSlots

	mix *mixer

	td      [][]float64 // input staging, maxIn x FrameSize
	outTD   [][]float64 // output staging, NumEars x FrameSize
	hopIn   [][]float64
	hopOut  [][]float64
	specIn  [][]complex128 // maxIn x Bands
	specOut [][]complex128 // NumEars x Bands
}

func newCore(maxIn int) (*core, error) {
	bank, err := fbank.New(maxIn, NumEars)
	if err != nil {
		return nil, err
	}
	c := &core{
		bank:      bank,
		maxIn:     maxIn,
		curFrame:  make([]*cmatrix.Matrix, fbank.Bands),
		prevFrame: make([]*cmatrix.Matrix, fbank.Bands),
		curM:      make([]*cmatrix.Matrix, fbank.Bands),
		prevM:     make([]*cmatrix.Matrix, fbank.Bands),
		outFrame:  make([]*cmatrix.Matrix, fbank.Bands),
		mix:       newMixer(),
		td:        make([][]float64, maxIn),
		outTD:     make([][]float64, NumEars),
		hopIn:     make([][]float64, maxIn),
		hopOut:    make([][]float64, NumEars),
		specIn:    make([][]complex128, maxIn),
		specOut:   make([][]complex128, NumEars),
	}
	for band := 0; band < fbank.Bands; band++ {
		c.curFrame[band] = cmatrix.New(maxIn, TimeSlots)
		c.prevFrame[band] = cmatrix.New(maxIn, TimeSlots)
		c.curM[band] = cmatrix.New(NumEars, maxIn)
		c.prevM[band] = cmatrix.New(NumEars, maxIn)
		c.outFrame[band] = cmatrix.New(NumEars, TimeSlots)
	}
	for ch := range c.td {
		c.td[ch] = make([]float64, FrameSize)
		c.specIn[ch] = make([]complex128, fbank.Bands)
	}
	for ear := range c.outTD {
		c.outTD[ear] = make([]float64, FrameSize)
		c.specOut[ear] = make([]complex128, fbank.Bands)
	}
	if err := c.setChannels(maxIn); err != nil {
		return nil, err
	}
	return c, nil
}

// setChannels reconfigures the active input channel count and zeroes every
// piece of history tied to the previous configuration: filterbank state,
// both sub-band frames and both mixing matrices. Called only from a rebuild.
func (c *core) setChannels(nIn int) error {
	nIn = clampInt(nIn, 1, c.maxIn)
	if err := c.bank.Reinit(nIn, NumEars); err != nil {
		return err
	}
	c.nIn = nIn
	for band := 0; band < fbank.Bands; band++ {
		c.curFrame[band].ZeroAll()
		c.curFrame[band].Resize(nIn, TimeSlots)
		c.prevFrame[band].ZeroAll()
		c.prevFrame[band].Resize(nIn, TimeSlots)
		c.curM[band].ZeroAll()
		c.curM[band].Resize(NumEars, nIn)
		c.prevM[band].ZeroAll()
		c.prevM[band].Resize(NumEars, nIn)
		c.outFrame[band].ZeroAll()
		c.outFrame[band].Resize(NumEars, TimeSlots)
	}
	return nil
}

// stageInput copies up to nIn input channels into the staging buffers and
// zero-fills the remaining active channels.
func (c *core) stageInput(in [][]float64, nAvail int) {
	nCopy := clampInt(nAvail, 0, c.nIn)
	for ch := 0; ch < nCopy; ch++ {
		copy(c.td[ch], in[ch][:FrameSize])
	}
	for ch := nCopy; ch < c.nIn; ch++ {
		buf := c.td[ch]
		for i := range buf {
			buf[i] = 0
		}
	}
}

// fadeIn ramps the staged input linearly from silence over the block,
// softening the first audible block after a rebuild.
func (c *core) fadeIn() {
	for ch := 0; ch < c.nIn; ch++ {
		buf := c.td[ch]
		for i := range buf {
			buf[i] *= float64(i) / float64(FrameSize)
		}
	}
}

// analyze runs the staged input through the filterbank hop by hop and
// transposes the spectra into the per-band current frame.
func (c *core) analyze() {
	for t := 0; t < TimeSlots; t++ {
		for ch := 0; ch < c.nIn; ch++ {
			c.hopIn[ch] = c.td[ch][t*fbank.HopSize : (t+1)*fbank.HopSize]
		}
		c.bank.AnalyzeHop(c.hopIn, c.specIn)
		for ch := 0; ch < c.nIn; ch++ {
			spec := c.specIn[ch]
			for band := 0; band < fbank.Bands; band++ {
				c.curFrame[band].Set(ch, t, spec[band])
			}
		}
	}
}

// mixAll crossfades every band into the output frame.
func (c *core) mixAll() {
	for band := 0; band < fbank.Bands; band++ {
		c.mix.mixBand(c.outFrame[band], c.curM[band], c.prevM[band], c.prevFrame[band])
	}
}

// zeroOutFrame silences the sub-band output without touching history.
func (c *core) zeroOutFrame() {
	for band := 0; band < fbank.Bands; band++ {
		c.outFrame[band].Zero()
	}
}

// commitHistory retires the current frame and matrix to their previous
// slots. This runs every block, playing or not, so the crossfade always
// pairs matching generations.
func (c *core) commitHistory() {
	for band := 0; band < fbank.Bands; band++ {
		c.prevFrame[band].CopyFrom(c.curFrame[band])
		c.prevM[band].CopyFrom(c.curM[band])
	}
}

// synthesize converts the sub-band output frame back to the time domain
// into outTD.
func (c *core) synthesize() {
	for t := 0; t < TimeSlots; t++ {
		for ear := 0; ear < NumEars; ear++ {
			spec := c.specOut[ear]
			for band := 0; band < fbank.Bands; band++ {
				spec[band] = c.outFrame[band].At(ear, t)
			}
			c.hopOut[ear] = c.outTD[ear][t*fbank.HopSize : (t+1)*fbank.HopSize]
		}
		c.bank.SynthesizeHop(c.specOut, c.hopOut)
	}
}

// emit copies the synthesised ears into the caller's output buffers,
// zero-filling any extra output channels. When fadeOut is set the block
// ramps to silence, softening the transition into a rebuild requested while
// this block was being processed.
func (c *core) emit(out [][]float64, nOut int, fadeOut bool) {
	nCopy := clampInt(nOut, 0, NumEars)
	for ch := 0; ch < nCopy; ch++ {
		copy(out[ch][:FrameSize], c.outTD[ch])
		if fadeOut {
			buf := out[ch][:FrameSize]
			for i := range buf {
				buf[i] *= float64(FrameSize-1-i) / float64(FrameSize-1)
			}
		}
	}
	zeroSamples(out[nCopy:], nOut-nCopy, FrameSize)
}
