package ndarray

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Dense is a dense matrix or column vector of float64 values.
// Its shape is fixed at construction.
type Dense struct {
	m *mat.Dense
}

// Zeros creates a rows x cols array of zeros.
// It panics if either dimension is not positive.
func Zeros(rows, cols int) *Dense {
	if rows <= 0 || cols <= 0 {
		panic(fmt.Sprintf("ndarray: %v: %v", ErrEmpty, Shape{rows, cols}))
	}
	return &Dense{m: mat.NewDense(rows, cols, nil)}
}

// NewDense creates a rows x cols array over a copy of data (row-major).
func NewDense(rows, cols int, data []float64) *Dense {
	if rows*cols != len(data) {
		panic(fmt.Sprintf("ndarray: %v: %d values for %v", ErrShapeMismatch, len(data), Shape{rows, cols}))
	}
	d := Zeros(rows, cols)
	copy(d.raw(), data)
	return d
}

// NewVector creates a column vector holding a copy of values.
func NewVector(values ...float64) *Dense {
	return NewDense(len(values), 1, values)
}

// NewMatrix creates a matrix from a slice of equally sized rows.
func NewMatrix(rows [][]float64) *Dense {
	if len(rows) == 0 {
		panic("ndarray: " + ErrEmpty.Error())
	}
	d := Zeros(len(rows), len(rows[0]))
	for i, r := range rows {
		d.m.SetRow(i, r)
	}
	return d
}

// Fill creates a rows x cols array with every element set to v.
func Fill(rows, cols int, v float64) *Dense {
	d := Zeros(rows, cols)
	raw := d.raw()
	for i := range raw {
		raw[i] = v
	}
	return d
}

// OneHot creates a vector of the given size with a 1 at index.
func OneHot(size, index int) *Dense {
	d := Zeros(size, 1)
	d.SetVec(index, 1)
	return d
}

// ZerosLike creates a zero array with the shape of a.
func ZerosLike(a NDArray) *Dense {
	s := a.Shape()
	return Zeros(s.Rows, s.Columns)
}

// raw returns the contiguous backing slice. Every Dense owns a matrix whose
// stride equals its column count.
func (d *Dense) raw() []float64 {
	return d.m.RawMatrix().Data
}

// Shape returns the array dimensions.
func (d *Dense) Shape() Shape {
	r, c := d.m.Dims()
	return Shape{Rows: r, Columns: c}
}

// Rows returns the number of rows.
func (d *Dense) Rows() int {
	r, _ := d.m.Dims()
	return r
}

// Columns returns the number of columns.
func (d *Dense) Columns() int {
	_, c := d.m.Dims()
	return c
}

// Length returns the number of elements.
func (d *Dense) Length() int {
	return d.Shape().Length()
}

// IsVector reports whether d is a column vector.
func (d *Dense) IsVector() bool {
	return d.Columns() == 1
}

// At returns the element at (i, j).
func (d *Dense) At(i, j int) float64 {
	return d.m.At(i, j)
}

// Set sets the element at (i, j).
func (d *Dense) Set(i, j int, v float64) {
	d.m.Set(i, j, v)
}

// AtVec returns the i-th element in row-major order.
func (d *Dense) AtVec(i int) float64 {
	return d.raw()[i]
}

// SetVec sets the i-th element in row-major order.
func (d *Dense) SetVec(i int, v float64) {
	d.raw()[i] = v
}

// Data returns a row-major copy of the values.
func (d *Dense) Data() []float64 {
	out := make([]float64, d.Length())
	copy(out, d.raw())
	return out
}

// Matrix exposes the underlying gonum matrix as a read-only view.
func (d *Dense) Matrix() mat.Matrix {
	return d.m
}

// ToDense returns d itself.
func (d *Dense) ToDense() *Dense {
	return d
}

// Copy returns a deep copy.
func (d *Dense) Copy() *Dense {
	return &Dense{m: mat.DenseCopyOf(d.m)}
}

// T returns a transposed copy.
func (d *Dense) T() *Dense {
	return &Dense{m: mat.DenseCopyOf(d.m.T())}
}

// Row returns a copy of the i-th row as a column vector.
func (d *Dense) Row(i int) *Dense {
	return NewVector(d.m.RawRowView(i)...)
}

// Dot returns the matrix product d · other.
func (d *Dense) Dot(other NDArray) (*Dense, error) {
	s, os := d.Shape(), other.Shape()
	if s.Columns != os.Rows {
		return nil, mismatch("dot", s, os)
	}

	switch o := other.(type) {
	case *Dense:
		var out mat.Dense
		out.Mul(d.m, o.m)
		return &Dense{m: &out}, nil
	case *Sparse:
		out := Zeros(s.Rows, 1)
		for _, i := range o.NonZero() {
			v := o.values[i]
			for r := 0; r < s.Rows; r++ {
				out.m.Set(r, 0, out.m.At(r, 0)+d.m.At(r, i)*v)
			}
		}
		return out, nil
	default:
		return d.Dot(other.ToDense())
	}
}

// Outer returns the outer product d · otherᵀ of two column vectors.
func (d *Dense) Outer(other NDArray) (*Dense, error) {
	s, os := d.Shape(), other.Shape()
	if !s.IsVector() || !os.IsVector() {
		return nil, mismatch("outer", s, os)
	}

	if sp, ok := other.(*Sparse); ok {
		out := Zeros(s.Rows, os.Rows)
		for _, j := range sp.NonZero() {
			v := sp.values[j]
			for i := 0; i < s.Rows; i++ {
				out.m.Set(i, j, d.m.At(i, 0)*v)
			}
		}
		return out, nil
	}

	var out mat.Dense
	out.Mul(d.m, other.ToDense().m.T())
	return &Dense{m: &out}, nil
}

func (d *Dense) sameShape(op string, other *Dense) error {
	if d.Shape() != other.Shape() {
		return mismatch(op, d.Shape(), other.Shape())
	}
	return nil
}

// Sum returns d + other.
func (d *Dense) Sum(other *Dense) (*Dense, error) {
	if err := d.sameShape("sum", other); err != nil {
		return nil, err
	}
	var out mat.Dense
	out.Add(d.m, other.m)
	return &Dense{m: &out}, nil
}

// Sub returns d - other.
func (d *Dense) Sub(other *Dense) (*Dense, error) {
	if err := d.sameShape("sub", other); err != nil {
		return nil, err
	}
	var out mat.Dense
	out.Sub(d.m, other.m)
	return &Dense{m: &out}, nil
}

// Prod returns the element-wise product d ⊙ other.
func (d *Dense) Prod(other *Dense) (*Dense, error) {
	if err := d.sameShape("prod", other); err != nil {
		return nil, err
	}
	var out mat.Dense
	out.MulElem(d.m, other.m)
	return &Dense{m: &out}, nil
}

// ProdScalar returns d scaled by f.
func (d *Dense) ProdScalar(f float64) *Dense {
	var out mat.Dense
	out.Scale(f, d.m)
	return &Dense{m: &out}
}

// AssignSum adds other to d in place.
func (d *Dense) AssignSum(other *Dense) error {
	if err := d.sameShape("sum", other); err != nil {
		return err
	}
	d.m.Add(d.m, other.m)
	return nil
}

// AssignSub subtracts other from d in place.
func (d *Dense) AssignSub(other *Dense) error {
	if err := d.sameShape("sub", other); err != nil {
		return err
	}
	d.m.Sub(d.m, other.m)
	return nil
}

// AssignProd multiplies d by other element-wise in place.
func (d *Dense) AssignProd(other *Dense) error {
	if err := d.sameShape("prod", other); err != nil {
		return err
	}
	d.m.MulElem(d.m, other.m)
	return nil
}

// AssignProdScalar scales d in place.
func (d *Dense) AssignProdScalar(f float64) {
	d.m.Scale(f, d.m)
}

// AssignValues replaces the contents of d with those of other.
func (d *Dense) AssignValues(other NDArray) error {
	if d.Shape() != other.Shape() {
		return mismatch("assign", d.Shape(), other.Shape())
	}
	d.m.Copy(other.ToDense().m)
	return nil
}

// Zero sets every element to zero.
func (d *Dense) Zero() {
	d.m.Zero()
}

// Apply transforms every element in place.
func (d *Dense) Apply(fn func(float64) float64) {
	d.m.Apply(func(_, _ int, v float64) float64 { return fn(v) }, d.m)
}

// ApplyVector transforms the whole backing slice in place. fn receives the
// same slice as destination and source.
func (d *Dense) ApplyVector(fn func(dst, src []float64)) {
	raw := d.raw()
	fn(raw, raw)
}

// SumAll returns the sum of all elements.
func (d *Dense) SumAll() float64 {
	return floats.Sum(d.raw())
}

// Norm returns the L-norm of the flattened values.
func (d *Dense) Norm(l float64) float64 {
	return floats.Norm(d.raw(), l)
}

// Max returns the largest element.
func (d *Dense) Max() float64 {
	return floats.Max(d.raw())
}

// ArgMax returns the row-major index of the largest element.
func (d *Dense) ArgMax() int {
	return floats.MaxIdx(d.raw())
}

// Equals reports whether other has the same shape and values within tol.
func (d *Dense) Equals(other *Dense, tol float64) bool {
	return d.Shape() == other.Shape() && floats.EqualApprox(d.raw(), other.raw(), tol)
}

// String formats the values.
func (d *Dense) String() string {
	return fmt.Sprintf("%v", mat.Formatted(d.m, mat.Squeeze()))
}

// ConcatVectors joins vectors in order into a new vector.
func ConcatVectors(vs ...*Dense) (*Dense, error) {
	if len(vs) == 0 {
		return nil, fmt.Errorf("concat: %w", ErrEmpty)
	}

	size := 0
	for _, v := range vs {
		if !v.IsVector() {
			return nil, fmt.Errorf("%w: concat of non-vector %v", ErrShapeMismatch, v.Shape())
		}
		size += v.Length()
	}

	data := make([]float64, 0, size)
	for _, v := range vs {
		data = append(data, v.raw()...)
	}
	return NewVector(data...), nil
}

// SplitVector splits v into consecutive vectors of the given sizes.
func SplitVector(v *Dense, sizes ...int) ([]*Dense, error) {
	total := 0
	for _, s := range sizes {
		if s <= 0 {
			return nil, fmt.Errorf("split: %w", ErrEmpty)
		}
		total += s
	}
	if !v.IsVector() || total != v.Length() {
		return nil, fmt.Errorf("%w: split %v into %d values", ErrShapeMismatch, v.Shape(), total)
	}

	out := make([]*Dense, len(sizes))
	raw, offset := v.raw(), 0
	for i, s := range sizes {
		out[i] = NewVector(raw[offset : offset+s]...)
		offset += s
	}
	return out, nil
}

// Stack builds an n x d matrix whose rows are the given vectors.
func Stack(rows ...NDArray) (*Dense, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("stack: %w", ErrEmpty)
	}

	first := rows[0].Shape()
	if !first.IsVector() {
		return nil, fmt.Errorf("%w: stack of non-vector %v", ErrShapeMismatch, first)
	}

	out := Zeros(len(rows), first.Rows)
	for i, r := range rows {
		if r.Shape() != first {
			return nil, mismatch("stack", first, r.Shape())
		}
		out.m.SetRow(i, r.ToDense().raw())
	}
	return out, nil
}
