package params

import (
	"fmt"
	"sync"

	"github.com/FlavioCFOliveira/GoLayers/internal/ndarray"
)

// Accumulator merges error lists from several contributors into a single
// record per parameter by summing them. It is safe for concurrent use, so
// independent branches can accumulate into the same instance.
type Accumulator struct {
	mu     sync.Mutex
	errors ErrorsList
	count  int
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Accumulate adds every record of list. Records referencing a parameter that
// is already present are summed into the existing entry; new parameters get a
// copy so later changes to list do not affect the accumulated values.
// Every record is shape-checked first: on error nothing is accumulated.
// Nil records are skipped.
func (a *Accumulator) Accumulate(list ErrorsList) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, e := range list {
		if e != nil && e.Values.Shape() != e.ref.Shape() {
			return fmt.Errorf("%w: errors %v for %v", ndarray.ErrShapeMismatch, e.Values.Shape(), e.ref)
		}
	}
	for _, e := range list {
		if e == nil {
			continue
		}
		if acc, ok := a.errors.ErrorsOf(e.ref); ok {
			if err := acc.Values.AssignSum(e.Values); err != nil {
				return err
			}
			continue
		}
		a.errors = append(a.errors, e.Copy())
	}
	a.count++
	return nil
}

// Average divides every accumulated record by the number of Accumulate calls.
func (a *Accumulator) Average() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.count <= 1 {
		return
	}
	f := 1 / float64(a.count)
	for _, e := range a.errors {
		e.Values.AssignProdScalar(f)
	}
}

// ErrorsOf returns the accumulated record of p.
func (a *Accumulator) ErrorsOf(p *Array) (*Errors, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.errors.ErrorsOf(p)
}

// Errors returns the accumulated records, one per parameter.
func (a *Accumulator) Errors() ErrorsList {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(ErrorsList, len(a.errors))
	copy(out, a.errors)
	return out
}

// Count returns the number of Accumulate calls since the last Clear.
func (a *Accumulator) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

// IsEmpty reports whether nothing has been accumulated.
func (a *Accumulator) IsEmpty() bool {
	return a.Count() == 0
}

// Clear drops all accumulated errors.
func (a *Accumulator) Clear() {
	a.mu.Lock()
	a.errors = nil
	a.count = 0
	a.mu.Unlock()
}
