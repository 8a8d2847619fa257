package binaural

import "fmt"

// Layout names a predefined speaker layout for seeding the panner's source
// directions. Directions follow the package convention: degrees, azimuth
// positive to the left, elevation positive upward.
type Layout int

const (
	// LayoutMono is a single frontal source.
	LayoutMono Layout = iota

	// LayoutStereo is the standard +-30 degree stereo pair.
	LayoutStereo

	// Layout5Point1 is the ITU 5.1 bed (the LFE is placed frontally).
	Layout5Point1

	// Layout7Point1 is the ITU 7.1 bed.
	Layout7Point1

	// LayoutQuad is a square of four sources.
	LayoutQuad

	// LayoutCube is four elevated sources over a square, eight in total.
	LayoutCube
)

var layoutDirs = map[Layout][][2]float64{
	LayoutMono:   {{0, 0}},
	LayoutStereo: {{30, 0}, {-30, 0}},
	Layout5Point1: {
		{30, 0}, {-30, 0}, {0, 0}, {0, 0}, {110, 0}, {-110, 0},
	},
	Layout7Point1: {
		{30, 0}, {-30, 0}, {0, 0}, {0, 0}, {90, 0}, {-90, 0}, {135, 0}, {-135, 0},
	},
	LayoutQuad: {
		{45, 0}, {-45, 0}, {135, 0}, {-135, 0},
	},
	LayoutCube: {
		{45, 0}, {-45, 0}, {135, 0}, {-135, 0},
		{45, 35.3}, {-45, 35.3}, {135, 35.3}, {-135, 35.3},
	},
}

// LayoutDirections returns the source directions of a named layout.
func LayoutDirections(l Layout) ([][2]float64, error) {
	dirs, ok := layoutDirs[l]
	if !ok {
		return nil, fmt.Errorf("%w: unknown layout %d", ErrInvalidConfig, l)
	}
	out := make([][2]float64, len(dirs))
	copy(out, dirs)
	return out, nil
}

// NumChannels returns the source count of a layout, or 0 if unknown.
func (l Layout) NumChannels() int {
	return len(layoutDirs[l])
}

// String returns the layout name.
func (l Layout) String() string {
	switch l {
	case LayoutMono:
		return "mono"
	case LayoutStereo:
		return "stereo"
	case Layout5Point1:
		return "5.1"
	case Layout7Point1:
		return "7.1"
	case LayoutQuad:
		return "quad"
	case LayoutCube:
		return "cube"
	}
	return fmt.Sprintf("layout(%d)", int(l))
}
