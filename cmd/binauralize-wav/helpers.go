package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	binaural "github.com/tphakala/go-binaural-renderer"
)

// Sample format constants.
const (
	bitsPerSample16 = 16
	bitsPerSample24 = 24
	bitsPerSample32 = 32

	maxInt16 = 32767.0
	maxInt24 = 8388607.0
	maxInt32 = 2147483647.0
)

// loadWAV reads a whole WAV file into per-channel float64 slices scaled to
// [-1, 1], and returns the sample rate and bit depth.
func loadWAV(path string) (chans [][]float64, rate, bitDepth int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, 0, 0, fmt.Errorf("invalid WAV file: %s", path)
	}
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to read %s: %w", path, err)
	}

	format := buf.Format
	bitDepth = int(decoder.BitDepth)
	scale, err := sampleScale(bitDepth)
	if err != nil {
		return nil, 0, 0, err
	}

	nCh := format.NumChannels
	nFrames := len(buf.Data) / nCh
	chans = make([][]float64, nCh)
	for ch := range chans {
		chans[ch] = make([]float64, nFrames)
	}
	for i := 0; i < nFrames; i++ {
		for ch := 0; ch < nCh; ch++ {
			chans[ch][i] = float64(buf.Data[i*nCh+ch]) / scale
		}
	}
	return chans, format.SampleRate, bitDepth, nil
}

// writeWAV writes per-channel float64 samples as an interleaved PCM WAV
// file, clipping to full scale.
func writeWAV(path string, chans [][]float64, rate, bitDepth int) error {
	scale, err := sampleScale(bitDepth)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	nCh := len(chans)
	nFrames := 0
	if nCh > 0 {
		nFrames = len(chans[0])
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: nCh, SampleRate: rate},
		SourceBitDepth: bitDepth,
		Data:           make([]int, nCh*nFrames),
	}
	for i := 0; i < nFrames; i++ {
		for ch := 0; ch < nCh; ch++ {
			v := chans[ch][i]
			if v > 1 {
				v = 1
			} else if v < -1 {
				v = -1
			}
			buf.Data[i*nCh+ch] = int(v * scale)
		}
	}

	enc := wav.NewEncoder(f, rate, bitDepth, nCh, 1)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return enc.Close()
}

func sampleScale(bitDepth int) (float64, error) {
	switch bitDepth {
	case bitsPerSample16:
		return maxInt16, nil
	case bitsPerSample24:
		return maxInt24, nil
	case bitsPerSample32:
		return maxInt32, nil
	}
	return 0, fmt.Errorf("unsupported bit depth %d", bitDepth)
}

// parseSources parses "azi,elev;azi,elev;..." in degrees.
func parseSources(s string) ([][2]float64, error) {
	var dirs [][2]float64
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.Split(pair, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed source direction %q (want \"azi,elev\")", pair)
		}
		azi, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("bad azimuth in %q: %w", pair, err)
		}
		elev, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("bad elevation in %q: %w", pair, err)
		}
		dirs = append(dirs, [2]float64{azi, elev})
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("no source directions in %q", s)
	}
	return dirs, nil
}

// parseLayout maps a layout name to its preset.
func parseLayout(name string) (binaural.Layout, error) {
	switch strings.ToLower(name) {
	case "mono":
		return binaural.LayoutMono, nil
	case "stereo":
		return binaural.LayoutStereo, nil
	case "5.1":
		return binaural.Layout5Point1, nil
	case "7.1":
		return binaural.Layout7Point1, nil
	case "quad":
		return binaural.LayoutQuad, nil
	case "cube":
		return binaural.LayoutCube, nil
	}
	return 0, fmt.Errorf("unknown layout %q", name)
}
