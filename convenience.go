package binaural

// Offline rendering helpers. These wrap the block-based renderers for
// arbitrary-length material: they prime the pipeline so deferred rebuilds
// and the post-rebuild fade-in fall on padding rather than on audio, feed
// the input block by block, and trim the pipeline delay so the output is
// time-aligned with the input.

// RenderAmbisonic renders an ambisonic scene to a stereo pair. input holds
// one slice per ambisonic channel; channels beyond the configured order are
// ignored and missing ones are treated as silent. The returned slices have
// the same length as the input.
func RenderAmbisonic(cfg *DecoderConfig, input [][]float64) ([][]float64, error) {
	d, err := NewAmbisonicDecoder(cfg)
	if err != nil {
		return nil, err
	}
	return Render(d, input), nil
}

// RenderSources renders mono source channels to a stereo pair. input holds
// one slice per source, matching the configured directions. The returned
// slices have the same length as the input.
func RenderSources(cfg *PannerConfig, input [][]float64) ([][]float64, error) {
	p, err := NewSourcePanner(cfg)
	if err != nil {
		return nil, err
	}
	return Render(p, input), nil
}

// Render streams input through an already configured renderer and
// compensates its latency. Two zero blocks lead the audio: the first
// absorbs any pending rebuild, the second the post-rebuild fade-in. The
// trailing padding flushes the pipeline. The returned slices match the
// input length.
func Render(r Renderer, input [][]float64) [][]float64 {
	nIn := len(input)
	length := 0
	for _, ch := range input {
		if len(ch) > length {
			length = len(ch)
		}
	}

	const leadBlocks = 2
	dataBlocks := (length + FrameSize - 1) / FrameSize
	tailBlocks := (r.ProcessingDelay() + FrameSize - 1) / FrameSize
	total := leadBlocks + dataBlocks + tailBlocks

	in := make([][]float64, nIn)
	for ch := range in {
		in[ch] = make([]float64, FrameSize)
	}
	out := make([][]float64, NumEars)
	rendered := make([][]float64, NumEars)
	for ear := range out {
		out[ear] = make([]float64, FrameSize)
		rendered[ear] = make([]float64, 0, total*FrameSize)
	}

	for block := 0; block < total; block++ {
		srcOff := (block - leadBlocks) * FrameSize
		for ch := 0; ch < nIn; ch++ {
			buf := in[ch]
			for i := range buf {
				idx := srcOff + i
				if srcOff >= 0 && idx < len(input[ch]) {
					buf[i] = input[ch][idx]
				} else {
					buf[i] = 0
				}
			}
		}
		r.Process(in, out, nIn, NumEars, FrameSize, true)
		for ear := range rendered {
			rendered[ear] = append(rendered[ear], out[ear]...)
		}
	}

	// The first audio sample surfaces after the lead blocks plus the
	// pipeline delay.
	offset := leadBlocks*FrameSize + r.ProcessingDelay()
	result := make([][]float64, NumEars)
	for ear := range result {
		result[ear] = rendered[ear][offset : offset+length]
	}
	return result
}
