// Package ndarray provides the numeric arrays used by layers, parameters and
// losses. Dense arrays are backed by gonum matrices; vectors are n x 1 columns.
package ndarray

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch is returned when operand dimensions are incompatible.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrEmpty is returned when an operation would produce a zero-sized array.
	ErrEmpty = errors.New("empty array")
	// ErrIndexOutOfRange is returned when an index falls outside an array.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// Shape is the (rows, columns) dimension of an array.
type Shape struct {
	Rows    int
	Columns int
}

// String returns the shape as "(rows x columns)".
func (s Shape) String() string {
	return fmt.Sprintf("(%d x %d)", s.Rows, s.Columns)
}

// Length returns the number of elements.
func (s Shape) Length() int {
	return s.Rows * s.Columns
}

// IsVector reports whether the shape is a single column.
func (s Shape) IsVector() bool {
	return s.Columns == 1
}

// NDArray is the read-only view shared by dense and sparse arrays.
type NDArray interface {
	Shape() Shape
	Length() int
	AtVec(i int) float64
	ToDense() *Dense
}

func mismatch(op string, a, b Shape) error {
	return fmt.Errorf("%w: %s %v and %v", ErrShapeMismatch, op, a, b)
}
