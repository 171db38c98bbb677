// Package tensor holds the dense float32 matrix helpers used by the local
// slogan model.
package tensor

import (
	"errors"
	"math/rand"
)

var errDataMismatch = errors.New("tensor: data length does not match shape")

// Mat represents a dense row-major matrix of float32 values.
//
// R and C are the number of rows and columns. Stride is the number of
// elements between the starts of two consecutive rows; it equals C for
// matrices created by this package.
type Mat struct {
	R, C   int
	Stride int
	Data   []float32
}

// NewMat allocates a zeroed r x c matrix.
func NewMat(r, c int) Mat {
	if r < 0 || c < 0 {
		panic("negative dimension for matrix")
	}
	return Mat{R: r, C: c, Stride: c, Data: make([]float32, r*c)}
}

// NewMatFromData wraps data as an r x c matrix without copying.
func NewMatFromData(r, c int, data []float32) (Mat, error) {
	if r < 0 || c < 0 || r*c != len(data) {
		return Mat{}, errDataMismatch
	}
	return Mat{R: r, C: c, Stride: c, Data: data}, nil
}

// Row returns row i. The slice aliases Data.
func (m *Mat) Row(i int) []float32 {
	off := i * m.Stride
	return m.Data[off : off+m.C]
}

// FillRand fills m with values in [-0.5, 0.5) from a seeded source.
func FillRand(m *Mat, seed int64) {
	r := rand.New(rand.NewSource(seed)) //nolint:gosec // test data
	for i := range m.Data {
		m.Data[i] = r.Float32() - 0.5
	}
}
