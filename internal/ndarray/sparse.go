package ndarray

import (
	"fmt"
	"slices"
)

// Sparse is a column vector storing only its non-zero entries.
type Sparse struct {
	size   int
	values map[int]float64
}

// NewSparse creates an all-zero sparse vector of the given size.
func NewSparse(size int) *Sparse {
	if size <= 0 {
		panic(fmt.Sprintf("ndarray: %v: sparse size %d", ErrEmpty, size))
	}
	return &Sparse{size: size, values: make(map[int]float64)}
}

// NewSparseBinary creates a sparse vector with 1 at each active index.
func NewSparseBinary(size int, active ...int) (*Sparse, error) {
	s := NewSparse(size)
	for _, i := range active {
		if err := s.Set(i, 1); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Set assigns v at index i. Setting zero removes the entry.
func (s *Sparse) Set(i int, v float64) error {
	if i < 0 || i >= s.size {
		return fmt.Errorf("%w: %d in sparse vector of size %d", ErrIndexOutOfRange, i, s.size)
	}
	if v == 0 {
		delete(s.values, i)
		return nil
	}
	s.values[i] = v
	return nil
}

// Shape returns (size x 1).
func (s *Sparse) Shape() Shape {
	return Shape{Rows: s.size, Columns: 1}
}

// Length returns the vector size.
func (s *Sparse) Length() int {
	return s.size
}

// AtVec returns the value at index i.
func (s *Sparse) AtVec(i int) float64 {
	return s.values[i]
}

// NonZero returns the indices of the stored entries in ascending order.
func (s *Sparse) NonZero() []int {
	idx := make([]int, 0, len(s.values))
	for i := range s.values {
		idx = append(idx, i)
	}
	slices.Sort(idx)
	return idx
}

// ToDense returns a dense copy.
func (s *Sparse) ToDense() *Dense {
	d := Zeros(s.size, 1)
	for i, v := range s.values {
		d.SetVec(i, v)
	}
	return d
}
