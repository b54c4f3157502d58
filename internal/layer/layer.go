// Package layer provides neural network layer implementations.
//
// A layer reads its input augmented arrays and parameters, writes its output
// augmented array in Forward, and in Backward propagates the output errors to
// its inputs and parameters. Layers are composed by sharing augmented arrays:
// the output of one layer is the input of the next.
package layer

import (
	"errors"
	"fmt"

	"github.com/FlavioCFOliveira/GoLayers/internal/array"
	"github.com/FlavioCFOliveira/GoLayers/internal/ndarray"
	"github.com/FlavioCFOliveira/GoLayers/internal/params"
)

var (
	// ErrUnsupportedInputType is returned when a layer receives an input
	// representation it cannot process, such as a sparse array where only
	// dense arrays are implemented.
	ErrUnsupportedInputType = array.ErrUnsupportedInputType
	// ErrInvalidConfig is returned for inconsistent layer wiring.
	ErrInvalidConfig = errors.New("invalid layer config")
)

// ForwardHelper computes a layer's output from its inputs and parameters.
// Forward assigns the output values and applies the output activation once.
type ForwardHelper interface {
	Forward() error
}

// BackwardHelper propagates the output errors of a layer. Parameter errors
// are written to the layer's ParamsErrors; input errors are accumulated into
// the input arrays when propagateToInput is true.
type BackwardHelper interface {
	Backward(propagateToInput bool) error
}

// Layer is a neural network layer.
type Layer interface {
	ForwardHelper
	BackwardHelper

	// Inputs returns the input arrays in declared order.
	Inputs() []*array.Augmented

	// Output returns the output array.
	Output() *array.Augmented

	// Params returns the learnable parameters, nil if the layer has none.
	Params() []*params.Array

	// ParamsErrors returns the parameter errors of the last backward pass.
	// The records are owned by the layer and overwritten by the next pass.
	ParamsErrors() params.ErrorsList
}

// base holds the arrays shared by every layer kind.
type base struct {
	inputs []*array.Augmented
	output *array.Augmented
}

func newBase(inputs []*array.Augmented, output *array.Augmented, minInputs int) (base, error) {
	if len(inputs) < minInputs {
		return base{}, fmt.Errorf("%w: %d inputs, need at least %d", ErrInvalidConfig, len(inputs), minInputs)
	}
	if output == nil {
		return base{}, fmt.Errorf("%w: nil output array", ErrInvalidConfig)
	}
	for i, in := range inputs {
		if in == nil {
			return base{}, fmt.Errorf("%w: nil input array %d", ErrInvalidConfig, i)
		}
	}
	return base{inputs: inputs, output: output}, nil
}

// Inputs returns the input arrays.
func (b *base) Inputs() []*array.Augmented {
	return b.inputs
}

// Output returns the output array.
func (b *base) Output() *array.Augmented {
	return b.output
}

// denseInputs returns the dense input values or ErrUnsupportedInputType.
func (b *base) denseInputs() ([]*ndarray.Dense, error) {
	xs := make([]*ndarray.Dense, len(b.inputs))
	for i, in := range b.inputs {
		x, err := in.DenseValues()
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		xs[i] = x
	}
	return xs, nil
}

// setOutput assigns y to the output and applies the output activation.
func (b *base) setOutput(y *ndarray.Dense) error {
	if err := b.output.AssignValues(y); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	return b.output.Activate()
}

// propagate accumulates one error array per input.
func (b *base) propagate(deltas []*ndarray.Dense) error {
	for i, d := range deltas {
		if err := b.inputs[i].AccumulateErrors(d); err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
	}
	return nil
}

func sameSize(inputs []*array.Augmented) error {
	for i, in := range inputs[1:] {
		if in.Shape() != inputs[0].Shape() {
			return fmt.Errorf("%w: input %d is %v, input 0 is %v", ndarray.ErrShapeMismatch, i+1, in.Shape(), inputs[0].Shape())
		}
	}
	return nil
}

func checkOutputSize(output *array.Augmented, size int) error {
	if output.Size() != size {
		return fmt.Errorf("%w: output size %d, want %d", ndarray.ErrShapeMismatch, output.Size(), size)
	}
	return nil
}

// buildErrors creates one zeroed error record per parameter.
func buildErrors(ps []*params.Array) params.ErrorsList {
	list := make(params.ErrorsList, len(ps))
	for i, p := range ps {
		// A nil values array always matches the parameter shape.
		list[i], _ = p.BuildErrors(nil)
	}
	return list
}

// scalarErrors returns the single activated error of a size-1 output.
func scalarErrors(out *array.Augmented) (float64, error) {
	g, err := out.ActivatedErrors()
	if err != nil {
		return 0, err
	}
	return g.AtVec(0), nil
}
