package layer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/FlavioCFOliveira/GoLayers/internal/array"
	"github.com/FlavioCFOliveira/GoLayers/internal/ndarray"
	"github.com/FlavioCFOliveira/GoLayers/internal/params"
)

// pair is the shared part of the layers comparing two vectors of equal size
// into a single output value.
type pair struct {
	base
}

func newPair(inputA, inputB, output *array.Augmented) (pair, error) {
	inputs := []*array.Augmented{inputA, inputB}
	b, err := newBase(inputs, output, 2)
	if err != nil {
		return pair{}, err
	}
	if err := sameSize(inputs); err != nil {
		return pair{}, err
	}
	if err := checkOutputSize(output, 1); err != nil {
		return pair{}, err
	}
	return pair{base: b}, nil
}

// Params returns nil.
func (p *pair) Params() []*params.Array { return nil }

// ParamsErrors returns nil.
func (p *pair) ParamsErrors() params.ErrorsList { return nil }

func (p *pair) operands() (x1, x2 *ndarray.Dense, err error) {
	xs, err := p.denseInputs()
	if err != nil {
		return nil, nil, err
	}
	return xs[0], xs[1], nil
}

// CosineSimilarity computes y = [x₁·x₂ / (‖x₁‖‖x₂‖)].
// A zero-norm operand yields 0 and zero input errors.
type CosineSimilarity struct {
	pair
}

// NewCosineSimilarity creates a cosine similarity layer with a size-1 output.
func NewCosineSimilarity(inputA, inputB, output *array.Augmented) (*CosineSimilarity, error) {
	p, err := newPair(inputA, inputB, output)
	if err != nil {
		return nil, err
	}
	return &CosineSimilarity{pair: p}, nil
}

// Forward writes the cosine of the angle between the inputs.
func (c *CosineSimilarity) Forward() error {
	x1, x2, err := c.operands()
	if err != nil {
		return fmt.Errorf("cosine similarity: %w", err)
	}
	n1, n2 := x1.Norm(2), x2.Norm(2)

	y := 0.0
	if n1 != 0 && n2 != 0 {
		y = dot(x1, x2) / (n1 * n2)
	}
	return c.setOutput(ndarray.NewVector(y))
}

// Backward computes ∂x₁ = g(x₂/(‖x₁‖‖x₂‖) − cos·x₁/‖x₁‖²) and symmetrically
// for x₂.
func (c *CosineSimilarity) Backward(propagateToInput bool) error {
	g, err := scalarErrors(c.output)
	if err != nil {
		return fmt.Errorf("cosine similarity: %w", err)
	}
	if !propagateToInput {
		return nil
	}
	x1, x2, err := c.operands()
	if err != nil {
		return fmt.Errorf("cosine similarity: %w", err)
	}

	n1, n2 := x1.Norm(2), x2.Norm(2)
	if n1 == 0 || n2 == 0 {
		return c.propagate([]*ndarray.Dense{ndarray.ZerosLike(x1), ndarray.ZerosLike(x2)})
	}
	cos := dot(x1, x2) / (n1 * n2)

	d1 := x2.ProdScalar(1 / (n1 * n2))
	if err := d1.AssignSub(x1.ProdScalar(cos / (n1 * n1))); err != nil {
		return err
	}
	d1.AssignProdScalar(g)

	d2 := x1.ProdScalar(1 / (n1 * n2))
	if err := d2.AssignSub(x2.ProdScalar(cos / (n2 * n2))); err != nil {
		return err
	}
	d2.AssignProdScalar(g)

	return c.propagate([]*ndarray.Dense{d1, d2})
}

// Distance computes y = [exp(−‖x₁ − x₂‖₁)], a similarity in (0, 1].
type Distance struct {
	pair
}

// NewDistance creates a distance layer with a size-1 output.
func NewDistance(inputA, inputB, output *array.Augmented) (*Distance, error) {
	p, err := newPair(inputA, inputB, output)
	if err != nil {
		return nil, err
	}
	return &Distance{pair: p}, nil
}

// Forward writes exp(−‖x₁ − x₂‖₁).
func (d *Distance) Forward() error {
	x1, x2, err := d.operands()
	if err != nil {
		return fmt.Errorf("distance: %w", err)
	}
	diff, err := x1.Sub(x2)
	if err != nil {
		return fmt.Errorf("distance: %w", err)
	}
	return d.setOutput(ndarray.NewVector(math.Exp(-diff.Norm(1))))
}

// Backward computes ∂x₁ = −g·y·sign(x₁ − x₂) and ∂x₂ = −∂x₁, where y is the
// value before the output activation.
func (d *Distance) Backward(propagateToInput bool) error {
	g, err := scalarErrors(d.output)
	if err != nil {
		return fmt.Errorf("distance: %w", err)
	}
	if !propagateToInput {
		return nil
	}
	x1, x2, err := d.operands()
	if err != nil {
		return fmt.Errorf("distance: %w", err)
	}
	diff, err := x1.Sub(x2)
	if err != nil {
		return fmt.Errorf("distance: %w", err)
	}

	y := d.output.NotActivatedValues().AtVec(0)
	diff.Apply(func(v float64) float64 {
		switch {
		case v > 0:
			return -g * y
		case v < 0:
			return g * y
		}
		return 0
	})
	return d.propagate([]*ndarray.Dense{diff, diff.ProdScalar(-1)})
}

func dot(a, b *ndarray.Dense) float64 {
	return floats.Dot(a.Data(), b.Data())
}
