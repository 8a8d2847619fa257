// Package cmatrix provides a small dense complex matrix type used for the
// per-band mixing products of the renderer.
//
// Matrices are allocated once at their maximum extents and carry separate
// logical extents, so the real-time path can shrink or grow the active
// region without reallocating. The storage is row-major with a fixed stride
// equal to the allocated column count, and multiplication never transposes
// implicitly; the numeric contract matches a plain row-major gemm.
package cmatrix

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/cblas128"
)

// Matrix is a dense row-major complex matrix with logical extents that may
// be smaller than its allocation.
type Matrix struct {
	rows, cols int // logical extents
	maxRows    int
	stride     int // allocated column count
	data       []complex128
}

// New allocates a matrix with the given maximum extents. The logical extents
// start equal to the maximums.
func New(maxRows, maxCols int) *Matrix {
	if maxRows < 1 || maxCols < 1 {
		panic(fmt.Sprintf("cmatrix: invalid extents %dx%d", maxRows, maxCols))
	}
	return &Matrix{
		rows:    maxRows,
		cols:    maxCols,
		maxRows: maxRows,
		stride:  maxCols,
		data:    make([]complex128, maxRows*maxCols),
	}
}

// Resize sets the logical extents. It panics if the request exceeds the
// allocation; the real-time path never grows buffers.
func (m *Matrix) Resize(rows, cols int) {
	if rows > m.maxRows || cols > m.stride || rows < 0 || cols < 0 {
		panic(fmt.Sprintf("cmatrix: resize %dx%d exceeds allocation %dx%d",
			rows, cols, m.maxRows, m.stride))
	}
	m.rows = rows
	m.cols = cols
}

// Rows returns the logical row count.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the logical column count.
func (m *Matrix) Cols() int { return m.cols }

// At returns the element at row i, column j.
func (m *Matrix) At(i, j int) complex128 {
	return m.data[i*m.stride+j]
}

// Set assigns the element at row i, column j.
func (m *Matrix) Set(i, j int, v complex128) {
	m.data[i*m.stride+j] = v
}

// Row returns the backing slice for row i, trimmed to the logical width.
func (m *Matrix) Row(i int) []complex128 {
	return m.data[i*m.stride : i*m.stride+m.cols]
}

// Zero clears the logical region.
func (m *Matrix) Zero() {
	for i := 0; i < m.rows; i++ {
		row := m.data[i*m.stride : i*m.stride+m.cols]
		for j := range row {
			row[j] = 0
		}
	}
}

// ZeroAll clears the entire allocation, including slack outside the logical
// extents. Used on structural reinitialisation.
func (m *Matrix) ZeroAll() {
	for i := range m.data {
		m.data[i] = 0
	}
}

// CopyFrom copies the logical region of src into m and adopts its logical
// extents. It panics if src does not fit the allocation.
func (m *Matrix) CopyFrom(src *Matrix) {
	m.Resize(src.rows, src.cols)
	for i := 0; i < src.rows; i++ {
		copy(m.Row(i), src.Row(i))
	}
}

// general views the logical region as a cblas128.General.
func (m *Matrix) general() cblas128.General {
	return cblas128.General{
		Rows:   m.rows,
		Cols:   m.cols,
		Stride: m.stride,
		Data:   m.data,
	}
}

// Mul computes dst = a × b. The logical extents of dst are set to
// a.Rows × b.Cols, which must fit dst's allocation, and a.Cols must equal
// b.Rows.
func Mul(dst, a, b *Matrix) {
	if a.cols != b.rows {
		panic(fmt.Sprintf("cmatrix: dimension mismatch %dx%d × %dx%d",
			a.rows, a.cols, b.rows, b.cols))
	}
	dst.Resize(a.rows, b.cols)
	cblas128.Gemm(blas.NoTrans, blas.NoTrans, 1, a.general(), b.general(), 0, dst.general())
}

// MulAcc computes dst += a × b. dst must already have logical extents
// a.Rows × b.Cols.
func MulAcc(dst, a, b *Matrix) {
	if a.cols != b.rows || dst.rows != a.rows || dst.cols != b.cols {
		panic(fmt.Sprintf("cmatrix: dimension mismatch %dx%d × %dx%d += %dx%d",
			a.rows, a.cols, b.rows, b.cols, dst.rows, dst.cols))
	}
	cblas128.Gemm(blas.NoTrans, blas.NoTrans, 1, a.general(), b.general(), 1, dst.general())
}

// SetRealPart writes a row-major real matrix into m with zero imaginary
// parts. The slice is indexed with the given stride.
func (m *Matrix) SetRealPart(rows, cols int, re []float64, stride int) {
	m.Resize(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.Set(i, j, complex(re[i*stride+j], 0))
		}
	}
}
