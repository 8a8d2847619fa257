// Package binaural renders spatial audio to headphones in real time.
//
// Two renderers are provided. AmbisonicDecoder takes a spherical-harmonic
// (ambisonic) scene of up to 7th order and decodes it to two ears through
// per-band HRTF decode matrices, with sound-field rotation driven by head
// tracking. SourcePanner takes individual mono sources at arbitrary
// directions and convolves each with interpolated HRTFs.
//
// Both renderers process fixed blocks of FrameSize samples through a
// perfectly reconstructing analysis/synthesis filterbank and apply their
// per-band mixing matrices to the previous block's sub-band frame, ramping
// from the old matrix to the new one across the block. Parameter changes
// are therefore click-free, at the cost of a fixed ProcessingDelay.
// Structural changes (ambisonic order, source count, HRTF set) are applied
// through a deferred reinitialisation: the setter returns immediately and
// a later Process call performs the rebuild, rendering that block silent.
//
// All setters are safe to call concurrently with Process, so a UI or
// head-tracking thread can drive a renderer owned by the audio callback.
//
// Basic usage:
//
//	dec, err := binaural.NewAmbisonicDecoder(&binaural.DecoderConfig{
//		SampleRate: 48000,
//		Order:      1,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	// in the audio callback, with 4 input and 2 output channels:
//	dec.Process(in, out, 4, 2, binaural.FrameSize, true)
//
// For offline use, RenderAmbisonic and RenderSources accept arbitrary
// length input and compensate the pipeline delay.
package binaural
