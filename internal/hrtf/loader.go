package hrtf

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Flat binary set format: little-endian header followed by directions,
// ITDs and interleaved re/im coefficients. Produced by an external
// conversion step from measurement files; this package only reads it.
const (
	fileMagic   = 0x42464248 // "HBFB"
	fileVersion = 1
)

type fileHeader struct {
	Magic      uint32
	Version    uint32
	NumDirs    uint32
	NumBands   uint32
	NumEars    uint32
	SampleRate uint32
	ImpulseLen uint32
}

// Load reads a set from the flat binary format. The band count must match
// the renderer's filterbank; callers fall back to the built-in default set
// on any error (unreadable file, malformed contents, band mismatch).
func Load(path string, wantBands int) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("hrtf: open %s: %w", path, err)
	}
	defer f.Close()
	return read(f, wantBands)
}

func read(r io.Reader, wantBands int) (*Set, error) {
	var h fileHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("hrtf: read header: %w", err)
	}
	if h.Magic != fileMagic || h.Version != fileVersion {
		return nil, fmt.Errorf("hrtf: not a filterbank coefficient file")
	}
	if h.NumEars != NumEars {
		return nil, fmt.Errorf("hrtf: unsupported ear count %d", h.NumEars)
	}
	if int(h.NumBands) != wantBands {
		return nil, fmt.Errorf("hrtf: band count %d does not match filterbank (%d)",
			h.NumBands, wantBands)
	}
	if h.NumDirs == 0 || h.NumDirs > 1<<16 {
		return nil, fmt.Errorf("hrtf: implausible direction count %d", h.NumDirs)
	}
	nDirs := int(h.NumDirs)
	nBands := int(h.NumBands)

	dirsFlat := make([]float64, 2*nDirs)
	if err := binary.Read(r, binary.LittleEndian, dirsFlat); err != nil {
		return nil, fmt.Errorf("hrtf: read directions: %w", err)
	}
	itds := make([]float64, nDirs)
	if err := binary.Read(r, binary.LittleEndian, itds); err != nil {
		return nil, fmt.Errorf("hrtf: read ITDs: %w", err)
	}
	coeffsFlat := make([]float64, 2*nBands*NumEars*nDirs)
	if err := binary.Read(r, binary.LittleEndian, coeffsFlat); err != nil {
		return nil, fmt.Errorf("hrtf: read coefficients: %w", err)
	}

	s := &Set{
		Dirs:          make([][2]float64, nDirs),
		ITDs:          itds,
		Coeffs:        make([][][]complex128, nBands),
		SampleRate:    int(h.SampleRate),
		ImpulseLength: int(h.ImpulseLen),
	}
	for d := 0; d < nDirs; d++ {
		s.Dirs[d] = [2]float64{dirsFlat[2*d], dirsFlat[2*d+1]}
	}
	k := 0
	for band := 0; band < nBands; band++ {
		s.Coeffs[band] = make([][]complex128, NumEars)
		for ear := 0; ear < NumEars; ear++ {
			s.Coeffs[band][ear] = make([]complex128, nDirs)
			for d := 0; d < nDirs; d++ {
				s.Coeffs[band][ear][d] = complex(coeffsFlat[k], coeffsFlat[k+1])
				k += 2
			}
		}
	}
	return s, nil
}

// Write serialises a set in the flat binary format. It exists for the
// conversion tooling and the loader tests.
func Write(w io.Writer, s *Set) error {
	h := fileHeader{
		Magic:      fileMagic,
		Version:    fileVersion,
		NumDirs:    uint32(s.NumDirs()),
		NumBands:   uint32(s.NumBands()),
		NumEars:    NumEars,
		SampleRate: uint32(s.SampleRate),
		ImpulseLen: uint32(s.ImpulseLength),
	}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return err
	}
	dirsFlat := make([]float64, 0, 2*s.NumDirs())
	for _, d := range s.Dirs {
		dirsFlat = append(dirsFlat, d[0], d[1])
	}
	if err := binary.Write(w, binary.LittleEndian, dirsFlat); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, s.ITDs); err != nil {
		return err
	}
	coeffsFlat := make([]float64, 0, 2*s.NumBands()*NumEars*s.NumDirs())
	for _, perEar := range s.Coeffs {
		for _, perDir := range perEar {
			for _, c := range perDir {
				coeffsFlat = append(coeffsFlat, real(c), imag(c))
			}
		}
	}
	return binary.Write(w, binary.LittleEndian, coeffsFlat)
}
