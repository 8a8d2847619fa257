// Command binauralize-wav renders a multichannel WAV file to binaural
// stereo.
//
// Usage:
//
//	binauralize-wav -order 1 scene.wav out.wav              # ambisonic scene
//	binauralize-wav -order 1 -norm sn3d scene.wav out.wav   # AmbiX material
//	binauralize-wav -pan -layout 5.1 bed.wav out.wav        # speaker bed
//	binauralize-wav -pan -sources "30,0;-30,0" mix.wav out.wav
//	binauralize-wav -order 3 -yaw 45 -maxre scene.wav out.wav
//
// In ambisonic mode the input channels are spherical-harmonic signals; in
// pan mode each input channel is a mono source placed at a direction taken
// from -layout or -sources. The output is time-aligned with the input.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	binaural "github.com/tphakala/go-binaural-renderer"
)

const minRequiredArgs = 2

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	pan := flag.Bool("pan", false, "Pan mode: treat input channels as mono sources instead of an ambisonic scene")
	order := flag.Int("order", 1, "Ambisonic input order (0-7)")
	chOrder := flag.String("chorder", "acn", "Ambisonic channel ordering: acn or fuma")
	norm := flag.String("norm", "n3d", "Ambisonic normalisation: n3d or sn3d")
	maxRE := flag.Bool("maxre", false, "Apply max-rE decode weighting")
	layout := flag.String("layout", "", "Pan mode source layout: mono, stereo, 5.1, 7.1, quad, cube")
	sources := flag.String("sources", "", "Pan mode source directions as \"azi,elev;azi,elev;...\" in degrees")
	nearest := flag.Bool("nearest", false, "Pan mode: nearest-neighbour HRTF lookup instead of triangular")
	hrtfPath := flag.String("hrtf", "", "Optional HRTF filterbank coefficient file")
	yaw := flag.Float64("yaw", 0, "Listener yaw in degrees")
	pitch := flag.Float64("pitch", 0, "Listener pitch in degrees")
	roll := flag.Float64("roll", 0, "Listener roll in degrees")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	if flag.NArg() < minRequiredArgs {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] input.wav output.wav\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}
	inputPath := flag.Arg(0)
	outputPath := flag.Arg(1)

	input, rate, bitDepth, err := loadWAV(inputPath)
	if err != nil {
		return err
	}
	if *verbose {
		log.Printf("Input: %d channels, %d Hz, %d-bit, %d samples",
			len(input), rate, bitDepth, len(input[0]))
	}

	var out [][]float64
	if *pan {
		out, err = renderPanned(input, rate, *layout, *sources, *nearest, *hrtfPath,
			*yaw, *pitch, *roll, *verbose)
	} else {
		out, err = renderAmbisonic(input, rate, *order, *chOrder, *norm, *maxRE,
			*hrtfPath, *yaw, *pitch, *roll, *verbose)
	}
	if err != nil {
		return err
	}

	if err := writeWAV(outputPath, out, rate, bitDepth); err != nil {
		return err
	}
	if *verbose {
		log.Printf("Wrote %s: stereo, %d Hz, %d-bit", outputPath, rate, bitDepth)
	}
	return nil
}

func renderAmbisonic(input [][]float64, rate, order int, chOrder, norm string,
	maxRE bool, hrtfPath string, yaw, pitch, roll float64, verbose bool) ([][]float64, error) {
	cfg := &binaural.DecoderConfig{
		SampleRate:  rate,
		Order:       order,
		EnableMaxRE: maxRE,
		HRTFPath:    hrtfPath,
	}
	switch strings.ToLower(chOrder) {
	case "acn":
		cfg.ChannelOrder = binaural.ChannelOrderACN
	case "fuma":
		cfg.ChannelOrder = binaural.ChannelOrderFuMa
	default:
		return nil, fmt.Errorf("unknown channel ordering %q", chOrder)
	}
	switch strings.ToLower(norm) {
	case "n3d":
		cfg.Normalization = binaural.NormalizationN3D
	case "sn3d":
		cfg.Normalization = binaural.NormalizationSN3D
	default:
		return nil, fmt.Errorf("unknown normalisation %q", norm)
	}

	need := (order + 1) * (order + 1)
	if len(input) < need && verbose {
		log.Printf("Input has %d channels, order %d expects %d; missing channels are silent",
			len(input), order, need)
	}

	dec, err := binaural.NewAmbisonicDecoder(cfg)
	if err != nil {
		return nil, err
	}
	dec.SetYaw(yaw)
	dec.SetPitch(pitch)
	dec.SetRoll(roll)
	return binaural.Render(dec, input), nil
}

func renderPanned(input [][]float64, rate int, layout, sources string, nearest bool,
	hrtfPath string, yaw, pitch, roll float64, verbose bool) ([][]float64, error) {
	cfg := &binaural.PannerConfig{
		SampleRate: rate,
		InterpMode: binaural.InterpTriangular,
		HRTFPath:   hrtfPath,
	}
	if nearest {
		cfg.InterpMode = binaural.InterpNearest
	}
	switch {
	case sources != "":
		dirs, err := parseSources(sources)
		if err != nil {
			return nil, err
		}
		cfg.Sources = dirs
	case layout != "":
		l, err := parseLayout(layout)
		if err != nil {
			return nil, err
		}
		cfg.Layout = l
	default:
		// One source per input channel, spread evenly on the horizon.
		dirs := make([][2]float64, len(input))
		for i := range dirs {
			dirs[i][0] = 180 - float64(i+1)*360/float64(len(input)+1)
		}
		cfg.Sources = dirs
	}
	if yaw != 0 || pitch != 0 || roll != 0 {
		cfg.EnableRotation = true
	}

	p, err := binaural.NewSourcePanner(cfg)
	if err != nil {
		return nil, err
	}
	p.SetYaw(yaw)
	p.SetPitch(pitch)
	p.SetRoll(roll)
	if verbose {
		log.Printf("Panning %d channels", p.NumSources())
	}
	return binaural.Render(p, input), nil
}
