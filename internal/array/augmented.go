// Package array provides the augmented arrays used as layer inputs and
// outputs: a values array paired with an error buffer and an activation.
package array

import (
	"errors"
	"fmt"
	"sync"

	"github.com/FlavioCFOliveira/GoLayers/internal/activations"
	"github.com/FlavioCFOliveira/GoLayers/internal/ndarray"
)

var (
	// ErrMissingErrors is returned when errors are read before any were set.
	ErrMissingErrors = errors.New("errors not set")
	// ErrUnsupportedInputType is returned when a dense array is required but
	// the values use another representation.
	ErrUnsupportedInputType = errors.New("unsupported input type")
)

// Augmented pairs a values array with an error buffer of the same shape and
// the activation applied to the values.
//
// Assigning new values starts a new forward/backward cycle and clears the
// error buffer, so errors from a previous cycle never leak into the next one.
type Augmented struct {
	values       ndarray.NDArray
	notActivated *ndarray.Dense
	activation   activations.Activation

	mu     sync.Mutex
	errors *ndarray.Dense
}

// NewAugmented creates a zero-valued dense array of the given size.
// act may be nil for no activation.
func NewAugmented(size int, act activations.Activation) *Augmented {
	return &Augmented{
		values:     ndarray.Zeros(size, 1),
		activation: act,
	}
}

// FromValues wraps existing values. The array is not copied.
func FromValues(values ndarray.NDArray, act activations.Activation) *Augmented {
	return &Augmented{
		values:     values,
		activation: act,
	}
}

// Values returns the current values.
func (a *Augmented) Values() ndarray.NDArray {
	return a.values
}

// DenseValues returns the values as a dense array, or ErrUnsupportedInputType
// if they are stored in another representation.
func (a *Augmented) DenseValues() (*ndarray.Dense, error) {
	d, ok := a.values.(*ndarray.Dense)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedInputType, a.values)
	}
	return d, nil
}

// Size returns the number of values.
func (a *Augmented) Size() int {
	return a.values.Length()
}

// Shape returns the shape of the values.
func (a *Augmented) Shape() ndarray.Shape {
	return a.values.Shape()
}

// Activation returns the configured activation, nil if none.
func (a *Augmented) Activation() activations.Activation {
	return a.activation
}

// SetActivation replaces the configured activation.
func (a *Augmented) SetActivation(act activations.Activation) {
	a.activation = act
}

// AssignValues replaces the values and clears the error buffer.
// Dense values are copied into the existing buffer; other representations
// replace it.
func (a *Augmented) AssignValues(v ndarray.NDArray) error {
	if v.Shape() != a.values.Shape() {
		return fmt.Errorf("%w: assign %v to %v", ndarray.ErrShapeMismatch, v.Shape(), a.values.Shape())
	}

	if d, ok := a.values.(*ndarray.Dense); ok {
		if err := d.AssignValues(v); err != nil {
			return err
		}
	} else if d, ok := v.(*ndarray.Dense); ok {
		a.values = d.Copy()
	} else {
		a.values = v
	}
	a.notActivated = nil
	a.ResetErrors()
	return nil
}

// SetValues replaces the values array itself, e.g. with a sparse input.
// The shape must not change.
func (a *Augmented) SetValues(v ndarray.NDArray) error {
	if v.Shape() != a.values.Shape() {
		return fmt.Errorf("%w: set %v on %v", ndarray.ErrShapeMismatch, v.Shape(), a.values.Shape())
	}
	a.values = v
	a.notActivated = nil
	a.ResetErrors()
	return nil
}

// Activate applies the activation to the values in place, keeping a copy of
// the pre-activation values for the backward pass. It is not idempotent.
func (a *Augmented) Activate() error {
	if a.activation == nil {
		return nil
	}
	d, err := a.DenseValues()
	if err != nil {
		return err
	}

	a.notActivated = d.Copy()
	if va, ok := a.activation.(activations.VectorActivation); ok {
		d.ApplyVector(va.ActivateVector)
		return nil
	}
	d.Apply(a.activation.Activate)
	return nil
}

// NotActivatedValues returns the values before the last Activate call, or the
// current values if no activation was applied since they were assigned.
func (a *Augmented) NotActivatedValues() ndarray.NDArray {
	if a.notActivated != nil {
		return a.notActivated
	}
	return a.values
}

// Errors returns the error buffer, nil if no errors were set in this cycle.
func (a *Augmented) Errors() *ndarray.Dense {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.errors
}

// HasErrors reports whether errors were set in this cycle.
func (a *Augmented) HasErrors() bool {
	return a.Errors() != nil
}

// SetErrors overwrites the error buffer with a copy of delta.
func (a *Augmented) SetErrors(delta *ndarray.Dense) error {
	if delta.Shape() != a.values.Shape() {
		return fmt.Errorf("%w: errors %v for values %v", ndarray.ErrShapeMismatch, delta.Shape(), a.values.Shape())
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.errors = delta.Copy()
	return nil
}

// AccumulateErrors adds delta to the error buffer, allocating it with zeros
// on first use. Safe for concurrent use.
func (a *Augmented) AccumulateErrors(delta *ndarray.Dense) error {
	if delta.Shape() != a.values.Shape() {
		return fmt.Errorf("%w: errors %v for values %v", ndarray.ErrShapeMismatch, delta.Shape(), a.values.Shape())
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.errors == nil {
		a.errors = ndarray.ZerosLike(a.values)
	}
	return a.errors.AssignSum(delta)
}

// ResetErrors clears the error buffer.
func (a *Augmented) ResetErrors() {
	a.mu.Lock()
	a.errors = nil
	a.mu.Unlock()
}

// ActivatedErrors returns the errors propagated through the activation:
// δ ⊙ f'(z) for element-wise activations, Jᵀ·δ for vector activations, or a
// copy of δ when there is no activation.
func (a *Augmented) ActivatedErrors() (*ndarray.Dense, error) {
	errs := a.Errors()
	if errs == nil {
		return nil, ErrMissingErrors
	}
	if a.activation == nil {
		return errs.Copy(), nil
	}

	if va, ok := a.activation.(activations.VectorActivation); ok {
		fx, err := a.DenseValues()
		if err != nil {
			return nil, err
		}
		fxData := fx.Data()
		out := errs.Copy()
		out.ApplyVector(func(dst, grad []float64) { va.BackwardVector(dst, fxData, grad) })
		return out, nil
	}

	z := a.NotActivatedValues()
	out := errs.Copy()
	for i := 0; i < out.Length(); i++ {
		out.SetVec(i, out.AtVec(i)*a.activation.Derivative(z.AtVec(i)))
	}
	return out, nil
}
