package cmatrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrix_ResizeWithinAllocation(t *testing.T) {
	m := New(4, 6)
	assert.Equal(t, 4, m.Rows())
	assert.Equal(t, 6, m.Cols())

	m.Set(3, 5, 7i)
	m.Resize(2, 3)
	assert.Equal(t, 2, m.Rows())
	assert.Equal(t, 3, m.Cols())
	// Slack outside the logical extents is untouched by Resize.
	m.Resize(4, 6)
	assert.Equal(t, 7i, m.At(3, 5))

	assert.Panics(t, func() { m.Resize(5, 6) })
	assert.Panics(t, func() { m.Resize(4, 7) })
	assert.Panics(t, func() { New(0, 3) })
}

func TestMatrix_ZeroRespectsLogicalRegion(t *testing.T) {
	m := New(3, 3)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Set(i, j, 1)
		}
	}
	m.Resize(2, 2)
	m.Zero()
	m.Resize(3, 3)
	assert.Equal(t, complex128(0), m.At(0, 0))
	assert.Equal(t, complex128(1), m.At(2, 2), "outside the logical region survives Zero")

	m.ZeroAll()
	assert.Equal(t, complex128(0), m.At(2, 2))
}

func TestMul_MatchesManualProduct(t *testing.T) {
	a := New(2, 3)
	b := New(3, 2)
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			a.Set(i, j, complex(float64(i+1), float64(j)))
		}
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 2; j++ {
			b.Set(i, j, complex(float64(j+1), -float64(i)))
		}
	}

	dst := New(2, 2)
	Mul(dst, a, b)
	require.Equal(t, 2, dst.Rows())
	require.Equal(t, 2, dst.Cols())
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			var want complex128
			for k := 0; k < 3; k++ {
				want += a.At(i, k) * b.At(k, j)
			}
			assert.InDelta(t, real(want), real(dst.At(i, j)), 1e-12)
			assert.InDelta(t, imag(want), imag(dst.At(i, j)), 1e-12)
		}
	}

	// MulAcc adds on top of the existing contents.
	acc := New(2, 2)
	acc.CopyFrom(dst)
	MulAcc(acc, a, b)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			assert.InDelta(t, 2*real(dst.At(i, j)), real(acc.At(i, j)), 1e-12)
		}
	}

	assert.Panics(t, func() { Mul(dst, b, b) }, "inner dimensions must agree")
}

func TestMul_LogicalExtentsOnly(t *testing.T) {
	// Multiplication must honour logical extents smaller than the
	// allocation, since the renderer shrinks matrices without copying.
	a := New(8, 8)
	b := New(8, 8)
	a.ZeroAll()
	b.ZeroAll()
	a.Resize(1, 2)
	b.Resize(2, 1)
	a.Set(0, 0, 2)
	a.Set(0, 1, 3)
	b.Set(0, 0, 5)
	b.Set(1, 0, 7)

	dst := New(8, 8)
	Mul(dst, a, b)
	require.Equal(t, 1, dst.Rows())
	require.Equal(t, 1, dst.Cols())
	assert.Equal(t, complex128(2*5+3*7), dst.At(0, 0))
}

func TestSetRealPart(t *testing.T) {
	m := New(2, 4)
	re := []float64{1, 2, 0, 0, 3, 4, 0, 0}
	m.SetRealPart(2, 2, re, 4)
	assert.Equal(t, complex(1.0, 0), m.At(0, 0))
	assert.Equal(t, complex(2.0, 0), m.At(0, 1))
	assert.Equal(t, complex(3.0, 0), m.At(1, 0))
	assert.Equal(t, complex(4.0, 0), m.At(1, 1))
}

func TestRow_SharesBacking(t *testing.T) {
	m := New(2, 3)
	row := m.Row(1)
	row[2] = 9
	assert.Equal(t, complex128(9), m.At(1, 2))
	assert.Len(t, row, 3)
	m.Resize(2, 2)
	assert.Len(t, m.Row(1), 2)
}
