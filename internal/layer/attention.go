package layer

import (
	"fmt"

	"github.com/FlavioCFOliveira/GoLayers/internal/activations"
	"github.com/FlavioCFOliveira/GoLayers/internal/array"
	"github.com/FlavioCFOliveira/GoLayers/internal/ndarray"
	"github.com/FlavioCFOliveira/GoLayers/internal/params"
)

// AttentionParams holds the learned context vector (query) of an attention
// layer.
type AttentionParams struct {
	Context *params.Array
}

// NewAttentionParams creates a zeroed context vector of the given size.
func NewAttentionParams(size int) *AttentionParams {
	return &AttentionParams{Context: params.NewZeros(size, 1)}
}

// List returns the context vector.
func (p *AttentionParams) List() []*params.Array {
	return []*params.Array{p.Context}
}

// Initialize fills the context vector with init.
func (p *AttentionParams) Initialize(init params.Initializer) {
	init.Initialize(p.Context)
}

// AttentionMechanism scores a sequence of input vectors against a learned
// context vector: y = f(A·c), where row i of the attention matrix A is the
// i-th input. The output has one entry per input and normally uses softmax.
type AttentionMechanism struct {
	base
	params *AttentionParams
	errs   params.ErrorsList
	matrix *ndarray.Dense
}

// NewAttentionMechanism creates an attention mechanism. All inputs must match
// the context vector size and the output size must equal the number of inputs.
func NewAttentionMechanism(inputs []*array.Augmented, output *array.Augmented, p *AttentionParams) (*AttentionMechanism, error) {
	b, err := newBase(inputs, output, 1)
	if err != nil {
		return nil, err
	}
	if err := sameSize(inputs); err != nil {
		return nil, err
	}
	if err := checkOutputSize(output, len(inputs)); err != nil {
		return nil, err
	}
	if want := inputs[0].Shape(); p.Context.Shape() != want {
		return nil, fmt.Errorf("%w: context %v for inputs %v", ndarray.ErrShapeMismatch, p.Context.Shape(), want)
	}

	return &AttentionMechanism{
		base:   b,
		params: p,
		errs:   buildErrors(p.List()),
	}, nil
}

// AttentionParams returns the layer parameters.
func (m *AttentionMechanism) AttentionParams() *AttentionParams {
	return m.params
}

// AttentionMatrix returns the matrix built by the last Forward call, nil
// before the first one.
func (m *AttentionMechanism) AttentionMatrix() *ndarray.Dense {
	return m.matrix
}

// Params returns the context vector.
func (m *AttentionMechanism) Params() []*params.Array {
	return m.params.List()
}

// ParamsErrors returns the context vector errors.
func (m *AttentionMechanism) ParamsErrors() params.ErrorsList {
	return m.errs
}

// Forward stacks the inputs into the attention matrix and writes f(A·c).
func (m *AttentionMechanism) Forward() error {
	xs, err := m.denseInputs()
	if err != nil {
		return fmt.Errorf("attention mechanism: %w", err)
	}
	rows := make([]ndarray.NDArray, len(xs))
	for i, x := range xs {
		rows[i] = x
	}
	a, err := ndarray.Stack(rows...)
	if err != nil {
		return fmt.Errorf("attention mechanism: %w", err)
	}
	y, err := a.Dot(m.params.Context.Values)
	if err != nil {
		return fmt.Errorf("attention mechanism: %w", err)
	}

	if err := m.setOutput(y); err != nil {
		return err
	}
	m.matrix = a
	return nil
}

// Backward computes, with g = δy through the output activation:
// ∂c = Aᵀ·g and ∂xᵢ = gᵢ·c.
func (m *AttentionMechanism) Backward(propagateToInput bool) error {
	if m.matrix == nil {
		return fmt.Errorf("attention mechanism: backward before forward: %w", array.ErrMissingErrors)
	}
	g, err := m.output.ActivatedErrors()
	if err != nil {
		return fmt.Errorf("attention mechanism: %w", err)
	}

	gc, err := m.matrix.T().Dot(g)
	if err != nil {
		return fmt.Errorf("attention mechanism: %w", err)
	}
	if err := m.errs[0].Values.AssignValues(gc); err != nil {
		return err
	}
	if !propagateToInput {
		return nil
	}

	c := m.params.Context.Values
	deltas := make([]*ndarray.Dense, len(m.inputs))
	for i := range deltas {
		deltas[i] = c.ProdScalar(g.AtVec(i))
	}
	return m.propagate(deltas)
}

// Attention pools a sequence of vectors into one: y = f(Σ sᵢ·xᵢ), with the
// scores s = softmax(A·c) computed by an embedded AttentionMechanism.
type Attention struct {
	base
	mechanism *AttentionMechanism
	scores    *array.Augmented
}

// NewAttention creates an attention pooling layer. The output size must equal
// the input size.
func NewAttention(inputs []*array.Augmented, output *array.Augmented, p *AttentionParams) (*Attention, error) {
	b, err := newBase(inputs, output, 1)
	if err != nil {
		return nil, err
	}
	if output.Shape() != inputs[0].Shape() {
		return nil, fmt.Errorf("%w: output %v, inputs %v", ndarray.ErrShapeMismatch, output.Shape(), inputs[0].Shape())
	}

	scores := array.NewAugmented(len(inputs), activations.Softmax{})
	mechanism, err := NewAttentionMechanism(inputs, scores, p)
	if err != nil {
		return nil, err
	}
	return &Attention{base: b, mechanism: mechanism, scores: scores}, nil
}

// Scores returns the attention scores of the last Forward call.
func (a *Attention) Scores() *array.Augmented {
	return a.scores
}

// Mechanism returns the embedded scoring layer.
func (a *Attention) Mechanism() *AttentionMechanism {
	return a.mechanism
}

// Params returns the context vector.
func (a *Attention) Params() []*params.Array {
	return a.mechanism.Params()
}

// ParamsErrors returns the context vector errors.
func (a *Attention) ParamsErrors() params.ErrorsList {
	return a.mechanism.ParamsErrors()
}

// Forward scores the inputs and writes their weighted sum.
func (a *Attention) Forward() error {
	if err := a.mechanism.Forward(); err != nil {
		return fmt.Errorf("attention: %w", err)
	}
	xs, err := a.denseInputs()
	if err != nil {
		return fmt.Errorf("attention: %w", err)
	}
	s := a.scores.Values()

	y := ndarray.ZerosLike(xs[0])
	for i, x := range xs {
		if err := y.AssignSum(x.ProdScalar(s.AtVec(i))); err != nil {
			return fmt.Errorf("attention: %w", err)
		}
	}
	return a.setOutput(y)
}

// Backward computes ∂sᵢ = g·xᵢ and ∂xᵢ = sᵢ·g, then lets the mechanism add
// its own input contribution and write the context errors.
func (a *Attention) Backward(propagateToInput bool) error {
	g, err := a.output.ActivatedErrors()
	if err != nil {
		return fmt.Errorf("attention: %w", err)
	}
	xs, err := a.denseInputs()
	if err != nil {
		return fmt.Errorf("attention: %w", err)
	}
	s := a.scores.Values()

	ds := ndarray.Zeros(len(xs), 1)
	for i, x := range xs {
		ds.SetVec(i, dot(g, x))
	}
	if err := a.scores.SetErrors(ds); err != nil {
		return fmt.Errorf("attention: %w", err)
	}

	if propagateToInput {
		deltas := make([]*ndarray.Dense, len(xs))
		for i := range xs {
			deltas[i] = g.ProdScalar(s.AtVec(i))
		}
		if err := a.propagate(deltas); err != nil {
			return err
		}
	}
	return a.mechanism.Backward(propagateToInput)
}
