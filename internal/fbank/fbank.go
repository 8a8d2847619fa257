// Package fbank implements the oversampled analysis/synthesis filterbank
// that carries the renderer between the time domain and the sub-band domain.
//
// The bank is a weighted overlap-add short-time transform: each hop of
// HopSize samples is windowed with a sqrt-Hann prototype of twice the hop
// length and transformed with a real FFT, yielding HopSize+1 complex bands
// per channel. Analysis history and the synthesis overlap-add accumulator
// persist across hops and across blocks, so the bank is stateful and must
// only be reinitialised on structural changes (channel count or sample
// rate). The sqrt-Hann pair at 50% overlap reconstructs perfectly with a
// fixed delay of WindowSize-HopSize samples.
package fbank

import (
	"fmt"
	"math"

	"github.com/tphakala/simd/f64"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Structural constants of the bank.
const (
	// HopSize is the number of time-domain samples consumed per hop.
	HopSize = 128

	// WindowSize is the analysis/synthesis prototype length (50% overlap).
	WindowSize = 2 * HopSize

	// Bands is the number of complex sub-bands per channel (real-FFT bins).
	Bands = HopSize + 1

	// Delay is the fixed analysis+synthesis latency in samples.
	Delay = WindowSize - HopSize
)

// Bank is a stateful analysis/synthesis filterbank with independent input
// (analysis) and output (synthesis) channel counts. All buffers are
// allocated at construction for the maximum counts; the hot path never
// allocates.
type Bank struct {
	maxIn, maxOut int
	nIn, nOut     int

	fft    *fourier.FFT
	window []float64

	hist [][]float64 // per input channel: last WindowSize input samples
	ola  [][]float64 // per output channel: overlap-add accumulator

	scratchTime []float64
	scratchSeq  []float64
	ifftScale   float64
}

// New creates a bank supporting up to maxIn analysis channels and maxOut
// synthesis channels, initially configured for those maximums.
func New(maxIn, maxOut int) (*Bank, error) {
	if maxIn < 1 || maxOut < 1 {
		return nil, fmt.Errorf("fbank: invalid channel capacities %d/%d", maxIn, maxOut)
	}
	b := &Bank{
		maxIn:       maxIn,
		maxOut:      maxOut,
		fft:         fourier.NewFFT(WindowSize),
		window:      sqrtHann(WindowSize),
		hist:        make([][]float64, maxIn),
		ola:         make([][]float64, maxOut),
		scratchTime: make([]float64, WindowSize),
		scratchSeq:  make([]float64, WindowSize),
		ifftScale:   1.0 / float64(WindowSize),
	}
	for ch := range b.hist {
		b.hist[ch] = make([]float64, WindowSize)
	}
	for ch := range b.ola {
		b.ola[ch] = make([]float64, WindowSize)
	}
	if err := b.Reinit(maxIn, maxOut); err != nil {
		return nil, err
	}
	return b, nil
}

// sqrtHann returns the square root of a periodic Hann window. The squared
// window sums to unity at 50% overlap, which is what makes the
// analysis/synthesis pair perfectly reconstructing.
func sqrtHann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = math.Sqrt(0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n)))
	}
	return w
}

// Reinit reconfigures the active channel counts and discards all internal
// history. Any sub-band frames or crossfade state derived from the previous
// configuration are invalid after this call and must be zeroed by the
// caller. Counts beyond the allocated capacities are clamped; the excess
// channels are never analysed and the caller zero-fills them.
func (b *Bank) Reinit(nIn, nOut int) error {
	if nIn < 1 || nOut < 1 {
		return fmt.Errorf("fbank: invalid channel counts %d/%d", nIn, nOut)
	}
	if nIn > b.maxIn {
		nIn = b.maxIn
	}
	if nOut > b.maxOut {
		nOut = b.maxOut
	}
	b.nIn = nIn
	b.nOut = nOut
	b.Reset()
	return nil
}

// Reset zeroes analysis history and the synthesis accumulator without
// changing the configuration.
func (b *Bank) Reset() {
	for ch := range b.hist {
		zero(b.hist[ch])
	}
	for ch := range b.ola {
		zero(b.ola[ch])
	}
}

// InputChannels returns the active analysis channel count.
func (b *Bank) InputChannels() int { return b.nIn }

// OutputChannels returns the active synthesis channel count.
func (b *Bank) OutputChannels() int { return b.nOut }

// AnalyzeHop consumes one hop of time-domain input per channel and writes
// the complex spectrum of each channel into spec. in must hold at least
// InputChannels slices of HopSize samples; spec must hold InputChannels
// slices of Bands coefficients.
func (b *Bank) AnalyzeHop(in [][]float64, spec [][]complex128) {
	for ch := 0; ch < b.nIn; ch++ {
		h := b.hist[ch]
		copy(h, h[HopSize:])
		copy(h[WindowSize-HopSize:], in[ch][:HopSize])
		for i := 0; i < WindowSize; i++ {
			b.scratchTime[i] = h[i] * b.window[i]
		}
		b.fft.Coefficients(spec[ch][:Bands], b.scratchTime)
	}
}

// SynthesizeHop converts one spectrum per channel back to the time domain,
// overlap-adds it into the accumulator and emits one hop of output per
// channel. spec must hold OutputChannels slices of Bands coefficients; out
// must hold OutputChannels slices of HopSize samples.
func (b *Bank) SynthesizeHop(spec [][]complex128, out [][]float64) {
	for ch := 0; ch < b.nOut; ch++ {
		b.fft.Sequence(b.scratchSeq, spec[ch][:Bands])
		// gonum's inverse transform does not normalise.
		f64.Scale(b.scratchSeq, b.scratchSeq, b.ifftScale)
		acc := b.ola[ch]
		for i := 0; i < WindowSize; i++ {
			acc[i] += b.scratchSeq[i] * b.window[i]
		}
		copy(out[ch][:HopSize], acc[:HopSize])
		copy(acc, acc[HopSize:])
		zero(acc[WindowSize-HopSize:])
	}
}

// CenterFrequencies returns the band center frequencies in Hz for the given
// sample rate.
func CenterFrequencies(sampleRate int) []float64 {
	freqs := make([]float64, Bands)
	for k := range freqs {
		freqs[k] = float64(k) * float64(sampleRate) / float64(WindowSize)
	}
	return freqs
}

func zero(s []float64) {
	for i := range s {
		s[i] = 0
	}
}
