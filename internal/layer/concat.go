package layer

import (
	"fmt"

	"github.com/FlavioCFOliveira/GoLayers/internal/array"
	"github.com/FlavioCFOliveira/GoLayers/internal/ndarray"
	"github.com/FlavioCFOliveira/GoLayers/internal/params"
)

// Concat joins its dense input vectors in declared order.
// The output is the raw concatenation: no activation is applied.
type Concat struct {
	base
	sizes []int
}

// NewConcat creates a concatenation layer. The output size must equal the
// sum of the input sizes.
func NewConcat(inputs []*array.Augmented, output *array.Augmented) (*Concat, error) {
	b, err := newBase(inputs, output, 1)
	if err != nil {
		return nil, err
	}

	sizes := make([]int, len(inputs))
	total := 0
	for i, in := range inputs {
		sizes[i] = in.Size()
		total += sizes[i]
	}
	if err := checkOutputSize(output, total); err != nil {
		return nil, err
	}

	return &Concat{base: b, sizes: sizes}, nil
}

// Params returns nil: concatenation has no parameters.
func (c *Concat) Params() []*params.Array { return nil }

// ParamsErrors returns nil.
func (c *Concat) ParamsErrors() params.ErrorsList { return nil }

// Forward writes concat(x₁, …, xₙ) to the output.
func (c *Concat) Forward() error {
	xs, err := c.denseInputs()
	if err != nil {
		return fmt.Errorf("concat: %w", err)
	}
	y, err := ndarray.ConcatVectors(xs...)
	if err != nil {
		return fmt.Errorf("concat: %w", err)
	}
	if err := c.output.AssignValues(y); err != nil {
		return fmt.Errorf("concat output: %w", err)
	}
	return nil
}

// Backward splits the output errors back into the input slices.
func (c *Concat) Backward(propagateToInput bool) error {
	errs := c.output.Errors()
	if errs == nil {
		return fmt.Errorf("concat: %w", array.ErrMissingErrors)
	}
	if !propagateToInput {
		return nil
	}

	parts, err := ndarray.SplitVector(errs, c.sizes...)
	if err != nil {
		return fmt.Errorf("concat: %w", err)
	}
	return c.propagate(parts)
}
