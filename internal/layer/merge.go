package layer

import (
	"fmt"

	"github.com/FlavioCFOliveira/GoLayers/internal/array"
	"github.com/FlavioCFOliveira/GoLayers/internal/ndarray"
	"github.com/FlavioCFOliveira/GoLayers/internal/params"
)

// merge is the shared part of the parameter-free layers combining inputs of
// equal size element-wise.
type merge struct {
	base
}

func newMerge(inputs []*array.Augmented, output *array.Augmented, minInputs int) (merge, error) {
	b, err := newBase(inputs, output, minInputs)
	if err != nil {
		return merge{}, err
	}
	if err := sameSize(inputs); err != nil {
		return merge{}, err
	}
	if output.Shape() != inputs[0].Shape() {
		return merge{}, fmt.Errorf("%w: output %v, inputs %v", ndarray.ErrShapeMismatch, output.Shape(), inputs[0].Shape())
	}
	return merge{base: b}, nil
}

// Params returns nil.
func (m *merge) Params() []*params.Array { return nil }

// ParamsErrors returns nil.
func (m *merge) ParamsErrors() params.ErrorsList { return nil }

// Sum computes y = f(Σ xᵢ).
type Sum struct {
	merge
}

// NewSum creates a sum layer over inputs of equal size.
func NewSum(inputs []*array.Augmented, output *array.Augmented) (*Sum, error) {
	m, err := newMerge(inputs, output, 1)
	if err != nil {
		return nil, err
	}
	return &Sum{merge: m}, nil
}

// Forward writes the element-wise sum of the inputs.
func (s *Sum) Forward() error {
	xs, err := s.denseInputs()
	if err != nil {
		return fmt.Errorf("sum: %w", err)
	}
	y := xs[0].Copy()
	for _, x := range xs[1:] {
		if err := y.AssignSum(x); err != nil {
			return fmt.Errorf("sum: %w", err)
		}
	}
	return s.setOutput(y)
}

// Backward gives every input the activated output errors.
func (s *Sum) Backward(propagateToInput bool) error {
	g, err := s.output.ActivatedErrors()
	if err != nil {
		return fmt.Errorf("sum: %w", err)
	}
	if !propagateToInput {
		return nil
	}
	deltas := make([]*ndarray.Dense, len(s.inputs))
	for i := range deltas {
		deltas[i] = g
	}
	return s.propagate(deltas)
}

// Avg computes y = f(mean xᵢ).
type Avg struct {
	merge
}

// NewAvg creates an average layer over inputs of equal size.
func NewAvg(inputs []*array.Augmented, output *array.Augmented) (*Avg, error) {
	m, err := newMerge(inputs, output, 1)
	if err != nil {
		return nil, err
	}
	return &Avg{merge: m}, nil
}

// Forward writes the element-wise mean of the inputs.
func (a *Avg) Forward() error {
	xs, err := a.denseInputs()
	if err != nil {
		return fmt.Errorf("avg: %w", err)
	}
	y := xs[0].Copy()
	for _, x := range xs[1:] {
		if err := y.AssignSum(x); err != nil {
			return fmt.Errorf("avg: %w", err)
		}
	}
	y.AssignProdScalar(1 / float64(len(xs)))
	return a.setOutput(y)
}

// Backward gives every input g/n.
func (a *Avg) Backward(propagateToInput bool) error {
	g, err := a.output.ActivatedErrors()
	if err != nil {
		return fmt.Errorf("avg: %w", err)
	}
	if !propagateToInput {
		return nil
	}
	g.AssignProdScalar(1 / float64(len(a.inputs)))
	deltas := make([]*ndarray.Dense, len(a.inputs))
	for i := range deltas {
		deltas[i] = g
	}
	return a.propagate(deltas)
}

// Sub computes y = f(x₁ − x₂).
type Sub struct {
	merge
}

// NewSub creates a subtraction layer. It takes exactly two inputs.
func NewSub(inputA, inputB, output *array.Augmented) (*Sub, error) {
	m, err := newMerge([]*array.Augmented{inputA, inputB}, output, 2)
	if err != nil {
		return nil, err
	}
	return &Sub{merge: m}, nil
}

// Forward writes x₁ − x₂.
func (s *Sub) Forward() error {
	xs, err := s.denseInputs()
	if err != nil {
		return fmt.Errorf("sub: %w", err)
	}
	y, err := xs[0].Sub(xs[1])
	if err != nil {
		return fmt.Errorf("sub: %w", err)
	}
	return s.setOutput(y)
}

// Backward gives g to x₁ and −g to x₂.
func (s *Sub) Backward(propagateToInput bool) error {
	g, err := s.output.ActivatedErrors()
	if err != nil {
		return fmt.Errorf("sub: %w", err)
	}
	if !propagateToInput {
		return nil
	}
	return s.propagate([]*ndarray.Dense{g, g.ProdScalar(-1)})
}

// Product computes y = f(x₁ ⊙ x₂ ⊙ … ⊙ xₙ).
type Product struct {
	merge
}

// NewProduct creates an element-wise product layer.
func NewProduct(inputs []*array.Augmented, output *array.Augmented) (*Product, error) {
	m, err := newMerge(inputs, output, 2)
	if err != nil {
		return nil, err
	}
	return &Product{merge: m}, nil
}

// Forward writes the element-wise product of the inputs.
func (p *Product) Forward() error {
	xs, err := p.denseInputs()
	if err != nil {
		return fmt.Errorf("product: %w", err)
	}
	y := xs[0].Copy()
	for _, x := range xs[1:] {
		if err := y.AssignProd(x); err != nil {
			return fmt.Errorf("product: %w", err)
		}
	}
	return p.setOutput(y)
}

// Backward gives input i the errors g ⊙ Π_{j≠i} xⱼ.
func (p *Product) Backward(propagateToInput bool) error {
	g, err := p.output.ActivatedErrors()
	if err != nil {
		return fmt.Errorf("product: %w", err)
	}
	if !propagateToInput {
		return nil
	}
	xs, err := p.denseInputs()
	if err != nil {
		return fmt.Errorf("product: %w", err)
	}

	deltas := make([]*ndarray.Dense, len(xs))
	for i := range xs {
		d := g.Copy()
		for j, x := range xs {
			if j == i {
				continue
			}
			if err := d.AssignProd(x); err != nil {
				return fmt.Errorf("product: %w", err)
			}
		}
		deltas[i] = d
	}
	return p.propagate(deltas)
}
