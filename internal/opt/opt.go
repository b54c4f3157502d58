// Package opt provides optimization algorithms.
package opt

import (
	"fmt"
	"math"

	"github.com/FlavioCFOliveira/GoLayers/internal/ndarray"
	"github.com/FlavioCFOliveira/GoLayers/internal/params"
)

// UpdateMethod applies one update step to a parameter given its errors.
// Methods with per-parameter state key it by the parameter's identity.
type UpdateMethod interface {
	// Update moves p against errs in place.
	Update(p *params.Array, errs *ndarray.Dense) error

	LearningRate() float64
	SetLearningRate(lr float64)
}

func checkErrors(p *params.Array, errs *ndarray.Dense) error {
	if p.Shape() != errs.Shape() {
		return fmt.Errorf("%w: errors %v for %v", ndarray.ErrShapeMismatch, errs.Shape(), p)
	}
	return nil
}

// SGD is stochastic gradient descent with optional classical momentum:
// v = momentum·v − lr·g, p = p + v.
type SGD struct {
	lr       float64
	momentum float64
	velocity map[*params.Array]*ndarray.Dense
}

// NewSGD creates a plain SGD method.
func NewSGD(learningRate float64) *SGD {
	return NewSGDMomentum(learningRate, 0)
}

// NewSGDMomentum creates an SGD method with momentum.
func NewSGDMomentum(learningRate, momentum float64) *SGD {
	return &SGD{
		lr:       learningRate,
		momentum: momentum,
		velocity: make(map[*params.Array]*ndarray.Dense),
	}
}

// LearningRate returns the learning rate.
func (s *SGD) LearningRate() float64 { return s.lr }

// SetLearningRate sets the learning rate.
func (s *SGD) SetLearningRate(lr float64) { s.lr = lr }

// Momentum returns the momentum factor.
func (s *SGD) Momentum() float64 { return s.momentum }

// Update applies one SGD step.
func (s *SGD) Update(p *params.Array, errs *ndarray.Dense) error {
	if err := checkErrors(p, errs); err != nil {
		return err
	}
	step := errs.ProdScalar(-s.lr)
	if s.momentum != 0 {
		v, ok := s.velocity[p]
		if !ok {
			v = ndarray.ZerosLike(p.Values)
			s.velocity[p] = v
		}
		v.AssignProdScalar(s.momentum)
		if err := v.AssignSum(step); err != nil {
			return err
		}
		step = v
	}
	return p.Values.AssignSum(step)
}

// Adam is the adaptive moment estimation method with bias correction.
type Adam struct {
	lr      float64
	Beta1   float64
	Beta2   float64
	Epsilon float64

	state map[*params.Array]*adamState
}

type adamState struct {
	m, v *ndarray.Dense
	t    int
}

// NewAdam creates a new Adam optimizer with default values.
func NewAdam(learningRate float64) *Adam {
	return &Adam{
		lr:      learningRate,
		Beta1:   0.9,
		Beta2:   0.999,
		Epsilon: 1e-8,
		state:   make(map[*params.Array]*adamState),
	}
}

// LearningRate returns the learning rate.
func (a *Adam) LearningRate() float64 { return a.lr }

// SetLearningRate sets the learning rate.
func (a *Adam) SetLearningRate(lr float64) { a.lr = lr }

// Steps returns the number of updates applied to p.
func (a *Adam) Steps(p *params.Array) int {
	if s, ok := a.state[p]; ok {
		return s.t
	}
	return 0
}

// Update applies one Adam step.
func (a *Adam) Update(p *params.Array, errs *ndarray.Dense) error {
	if err := checkErrors(p, errs); err != nil {
		return err
	}
	s, ok := a.state[p]
	if !ok {
		s = &adamState{m: ndarray.ZerosLike(p.Values), v: ndarray.ZerosLike(p.Values)}
		a.state[p] = s
	}
	s.t++

	c1 := 1 - math.Pow(a.Beta1, float64(s.t))
	c2 := 1 - math.Pow(a.Beta2, float64(s.t))
	for i := 0; i < errs.Length(); i++ {
		g := errs.AtVec(i)
		m := a.Beta1*s.m.AtVec(i) + (1-a.Beta1)*g
		v := a.Beta2*s.v.AtVec(i) + (1-a.Beta2)*g*g
		s.m.SetVec(i, m)
		s.v.SetVec(i, v)
		p.Values.SetVec(i, p.Values.AtVec(i)-a.lr*(m/c1)/(math.Sqrt(v/c2)+a.Epsilon))
	}
	return nil
}

// ParamsOptimizer collects the errors of a set of parameters over one or more
// backward passes and applies an UpdateMethod to each of them.
type ParamsOptimizer struct {
	method  UpdateMethod
	params  []*params.Array
	acc     *params.Accumulator
	average bool
}

// Option configures a ParamsOptimizer.
type Option func(*ParamsOptimizer)

// WithAverage divides the accumulated errors by the number of accumulated
// lists before updating.
func WithAverage() Option {
	return func(o *ParamsOptimizer) { o.average = true }
}

// NewParamsOptimizer creates an optimizer for ps.
func NewParamsOptimizer(ps []*params.Array, method UpdateMethod, opts ...Option) *ParamsOptimizer {
	o := &ParamsOptimizer{
		method: method,
		params: ps,
		acc:    params.NewAccumulator(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Method returns the update method.
func (o *ParamsOptimizer) Method() UpdateMethod {
	return o.method
}

// Accumulate adds the errors of one backward pass. Safe for concurrent use.
func (o *ParamsOptimizer) Accumulate(list params.ErrorsList) error {
	return o.acc.Accumulate(list)
}

// Pending returns the number of lists accumulated since the last Update.
func (o *ParamsOptimizer) Pending() int {
	return o.acc.Count()
}

// Update applies the method to every registered parameter that received
// errors and clears the accumulated errors. A parameter without errors had no
// contribution in this step and is left unchanged. It returns the number of
// updated parameters.
func (o *ParamsOptimizer) Update() (int, error) {
	if o.acc.IsEmpty() {
		return 0, nil
	}
	defer o.acc.Clear()

	if o.average {
		o.acc.Average()
	}
	n := 0
	for _, p := range o.params {
		e, ok := o.acc.ErrorsOf(p)
		if !ok {
			continue
		}
		if err := o.method.Update(p, e.Values); err != nil {
			return n, fmt.Errorf("update %v: %w", p, err)
		}
		n++
	}
	return n, nil
}
