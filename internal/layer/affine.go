package layer

import (
	"fmt"

	"github.com/FlavioCFOliveira/GoLayers/internal/array"
	"github.com/FlavioCFOliveira/GoLayers/internal/ndarray"
	"github.com/FlavioCFOliveira/GoLayers/internal/params"
)

// AffineParams holds one weight matrix per input and a shared bias.
// W[i] has shape (outputSize x inputSizes[i]).
type AffineParams struct {
	W []*params.Array
	B *params.Array
}

// NewAffineParams creates zeroed parameters for the given sizes.
func NewAffineParams(inputSizes []int, outputSize int) *AffineParams {
	w := make([]*params.Array, len(inputSizes))
	for i, in := range inputSizes {
		w[i] = params.NewZeros(outputSize, in)
	}
	return &AffineParams{W: w, B: params.NewZeros(outputSize, 1)}
}

// List returns W[0..n-1] followed by B.
func (p *AffineParams) List() []*params.Array {
	out := make([]*params.Array, 0, len(p.W)+1)
	out = append(out, p.W...)
	return append(out, p.B)
}

// Initialize fills the weights with init and zeroes the bias.
func (p *AffineParams) Initialize(init params.Initializer) {
	for _, w := range p.W {
		init.Initialize(w)
	}
	p.B.Values.Zero()
}

// Affine computes y = f(Σ wᵢ·xᵢ + b).
// Inputs may be sparse; every other layer kind requires dense inputs.
type Affine struct {
	base
	params *AffineParams
	errs   params.ErrorsList
}

// NewAffine creates an affine layer. Inputs and weights are paired by position.
func NewAffine(inputs []*array.Augmented, output *array.Augmented, p *AffineParams) (*Affine, error) {
	b, err := newBase(inputs, output, 1)
	if err != nil {
		return nil, err
	}
	if len(p.W) != len(inputs) {
		return nil, fmt.Errorf("%w: %d inputs and %d weight matrices", ErrInvalidConfig, len(inputs), len(p.W))
	}

	out := output.Size()
	if p.B.Shape() != (ndarray.Shape{Rows: out, Columns: 1}) {
		return nil, fmt.Errorf("%w: bias %v for output size %d", ndarray.ErrShapeMismatch, p.B.Shape(), out)
	}
	for i, w := range p.W {
		want := ndarray.Shape{Rows: out, Columns: inputs[i].Size()}
		if w.Shape() != want {
			return nil, fmt.Errorf("%w: weights %d are %v, want %v", ndarray.ErrShapeMismatch, i, w.Shape(), want)
		}
	}

	return &Affine{base: b, params: p, errs: buildErrors(p.List())}, nil
}

// NewFeedforward creates a single-input affine layer, y = f(w·x + b).
func NewFeedforward(input, output *array.Augmented, p *AffineParams) (*Affine, error) {
	return NewAffine([]*array.Augmented{input}, output, p)
}

// AffineParams returns the layer parameters.
func (a *Affine) AffineParams() *AffineParams {
	return a.params
}

// Params returns W[0..n-1] and B.
func (a *Affine) Params() []*params.Array {
	return a.params.List()
}

// ParamsErrors returns the errors of W[0..n-1] and B.
func (a *Affine) ParamsErrors() params.ErrorsList {
	return a.errs
}

// Forward initializes the output to the bias, accumulates w·x for each
// (input, weight) pair in input order, then activates.
func (a *Affine) Forward() error {
	y := a.params.B.Values.Copy()
	for i, in := range a.inputs {
		wx, err := a.params.W[i].Values.Dot(in.Values())
		if err != nil {
			return fmt.Errorf("affine input %d: %w", i, err)
		}
		if err := y.AssignSum(wx); err != nil {
			return fmt.Errorf("affine input %d: %w", i, err)
		}
	}
	return a.setOutput(y)
}

// Backward computes, with g = δy ⊙ f'(z):
// ∂b = g, ∂wᵢ = g·xᵢᵀ and ∂xᵢ = wᵢᵀ·g.
func (a *Affine) Backward(propagateToInput bool) error {
	g, err := a.output.ActivatedErrors()
	if err != nil {
		return fmt.Errorf("affine: %w", err)
	}

	n := len(a.inputs)
	gw := make([]*ndarray.Dense, n)
	for i, in := range a.inputs {
		if gw[i], err = g.Outer(in.Values()); err != nil {
			return fmt.Errorf("affine weights %d: %w", i, err)
		}
	}

	var gx []*ndarray.Dense
	if propagateToInput {
		gx = make([]*ndarray.Dense, n)
		for i, w := range a.params.W {
			if gx[i], err = w.Values.T().Dot(g); err != nil {
				return fmt.Errorf("affine input %d: %w", i, err)
			}
		}
	}

	for i := range gw {
		if err := a.errs[i].Values.AssignValues(gw[i]); err != nil {
			return err
		}
	}
	if err := a.errs[n].Values.AssignValues(g); err != nil {
		return err
	}

	if propagateToInput {
		return a.propagate(gx)
	}
	return nil
}
