package main

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	binaural "github.com/tphakala/go-binaural-renderer"
)

func TestParseSources(t *testing.T) {
	dirs, err := parseSources("30,0; -30, 0;0,90")
	require.NoError(t, err)
	require.Len(t, dirs, 3)
	assert.Equal(t, [2]float64{30, 0}, dirs[0])
	assert.Equal(t, [2]float64{-30, 0}, dirs[1])
	assert.Equal(t, [2]float64{0, 90}, dirs[2])

	for _, bad := range []string{"", "30", "x,0", "0,y", ";;"} {
		_, err := parseSources(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestParseLayout(t *testing.T) {
	l, err := parseLayout("5.1")
	require.NoError(t, err)
	assert.Equal(t, binaural.Layout5Point1, l)

	l, err = parseLayout("STEREO")
	require.NoError(t, err)
	assert.Equal(t, binaural.LayoutStereo, l)

	_, err = parseLayout("22.2")
	assert.Error(t, err)
}

func TestWAVRoundTrip(t *testing.T) {
	const rate = 48000
	chans := make([][]float64, 2)
	for ch := range chans {
		chans[ch] = make([]float64, 1000)
		for i := range chans[ch] {
			chans[ch][i] = 0.5 * math.Sin(2*math.Pi*float64(i)*440/rate+float64(ch))
		}
	}

	path := filepath.Join(t.TempDir(), "roundtrip.wav")
	require.NoError(t, writeWAV(path, chans, rate, bitsPerSample16))

	got, gotRate, gotDepth, err := loadWAV(path)
	require.NoError(t, err)
	assert.Equal(t, rate, gotRate)
	assert.Equal(t, bitsPerSample16, gotDepth)
	require.Len(t, got, 2)
	require.Len(t, got[0], 1000)
	for ch := range chans {
		for i := range chans[ch] {
			assert.InDelta(t, chans[ch][i], got[ch][i], 1.0/maxInt16*2,
				"channel %d sample %d survives 16-bit quantisation", ch, i)
		}
	}
}

func TestSampleScale(t *testing.T) {
	for depth, want := range map[int]float64{16: maxInt16, 24: maxInt24, 32: maxInt32} {
		got, err := sampleScale(depth)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := sampleScale(8)
	assert.Error(t, err)
}
