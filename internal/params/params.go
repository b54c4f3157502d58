// Package params provides learnable parameter arrays and the error records
// that back-propagation produces for them.
//
// A parameter's identity is its pointer. Two arrays holding equal values are
// still distinct parameters, and error lookups never compare values.
package params

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/FlavioCFOliveira/GoLayers/internal/ndarray"
)

// Array is a learnable parameter owned by a layer.
type Array struct {
	// ID names the parameter in summaries. It plays no part in lookups.
	ID     uuid.UUID
	Values *ndarray.Dense
}

// New wraps values as a parameter array.
func New(values *ndarray.Dense) *Array {
	return &Array{
		ID:     uuid.New(),
		Values: values,
	}
}

// NewZeros creates a zero-initialized rows x cols parameter.
func NewZeros(rows, cols int) *Array {
	return New(ndarray.Zeros(rows, cols))
}

// Shape returns the parameter shape.
func (p *Array) Shape() ndarray.Shape {
	return p.Values.Shape()
}

// BuildErrors creates an error record referencing p. A nil values array is
// replaced with zeros of the parameter's shape.
func (p *Array) BuildErrors(values *ndarray.Dense) (*Errors, error) {
	if values == nil {
		values = ndarray.ZerosLike(p.Values)
	}
	if values.Shape() != p.Values.Shape() {
		return nil, fmt.Errorf("%w: errors %v for param %v", ndarray.ErrShapeMismatch, values.Shape(), p.Values.Shape())
	}
	return &Errors{ref: p, Values: values}, nil
}

// String returns a short description of the parameter.
func (p *Array) String() string {
	return fmt.Sprintf("param %s %v", p.ID.String()[:8], p.Values.Shape())
}

// Errors holds the errors of a parameter computed by one contributor (a layer
// or a time step). The referenced parameter never changes after creation.
type Errors struct {
	ref    *Array
	Values *ndarray.Dense
}

// Ref returns the parameter the errors belong to.
func (e *Errors) Ref() *Array {
	return e.ref
}

// Copy returns a record with a copy of the values and the same reference.
func (e *Errors) Copy() *Errors {
	return &Errors{ref: e.ref, Values: e.Values.Copy()}
}

// ErrorsList is an ordered list of error records. The same parameter may
// appear more than once.
type ErrorsList []*Errors

// ErrorsOf returns the first record referencing p, compared by identity.
// ok is false when p has no record; callers treat that as no contribution.
// Nil entries are skipped.
func (l ErrorsList) ErrorsOf(p *Array) (*Errors, bool) {
	for _, e := range l {
		if e != nil && e.ref == p {
			return e, true
		}
	}
	return nil, false
}

// Params returns the referenced parameters in list order, without duplicates.
func (l ErrorsList) Params() []*Array {
	seen := make(map[*Array]struct{}, len(l))
	out := make([]*Array, 0, len(l))
	for _, e := range l {
		if e == nil {
			continue
		}
		if _, ok := seen[e.ref]; ok {
			continue
		}
		seen[e.ref] = struct{}{}
		out = append(out, e.ref)
	}
	return out
}

// Copy returns a deep copy of every record. Nil entries stay nil.
func (l ErrorsList) Copy() ErrorsList {
	out := make(ErrorsList, len(l))
	for i, e := range l {
		if e != nil {
			out[i] = e.Copy()
		}
	}
	return out
}
