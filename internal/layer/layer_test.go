package layer

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"

	"github.com/FlavioCFOliveira/GoLayers/internal/activations"
	"github.com/FlavioCFOliveira/GoLayers/internal/array"
	"github.com/FlavioCFOliveira/GoLayers/internal/ndarray"
	"github.com/FlavioCFOliveira/GoLayers/internal/params"
)

const gradTol = 1e-6

// gradCheck compares the errors computed by Backward against central finite
// differences of L = r·y, where r is a fixed random weighting of the output.
func gradCheck(t *testing.T, l Layer, xs ...*ndarray.Dense) {
	t.Helper()
	require.Len(t, xs, len(l.Inputs()))

	rng := rand.New(rand.NewSource(7))
	r := make([]float64, l.Output().Size())
	for i := range r {
		r[i] = rng.Float64()*2 - 1
	}

	assign := func() {
		for i, in := range l.Inputs() {
			require.NoError(t, in.AssignValues(xs[i]))
		}
	}
	objective := func() float64 {
		require.NoError(t, l.Forward())
		return floats.Dot(r, l.Output().Values().ToDense().Data())
	}
	settings := &fd.Settings{Formula: fd.Central}

	assign()
	wantInputs := make([][]float64, len(xs))
	for i, in := range l.Inputs() {
		f := func(x []float64) float64 {
			require.NoError(t, in.AssignValues(ndarray.NewVector(x...)))
			return objective()
		}
		wantInputs[i] = fd.Gradient(nil, f, xs[i].Data(), settings)
		require.NoError(t, in.AssignValues(xs[i]))
	}

	wantParams := make([][]float64, len(l.Params()))
	for i, p := range l.Params() {
		orig := p.Values.Copy()
		s := p.Shape()
		f := func(x []float64) float64 {
			require.NoError(t, p.Values.AssignValues(ndarray.NewDense(s.Rows, s.Columns, append([]float64(nil), x...))))
			return objective()
		}
		wantParams[i] = fd.Gradient(nil, f, orig.Data(), settings)
		require.NoError(t, p.Values.AssignValues(orig))
	}

	assign()
	objective()
	require.NoError(t, l.Output().SetErrors(ndarray.NewVector(r...)))
	require.NoError(t, l.Backward(true))

	for i, in := range l.Inputs() {
		require.NotNil(t, in.Errors(), "input %d has no errors", i)
		assert.InDeltaSlice(t, wantInputs[i], in.Errors().Data(), gradTol, "input %d", i)
	}
	for i, p := range l.Params() {
		e, ok := l.ParamsErrors().ErrorsOf(p)
		require.True(t, ok, "param %d has no errors", i)
		assert.InDeltaSlice(t, wantParams[i], e.Values.Data(), gradTol, "param %d", i)
	}
}

func vectors(sizes ...int) []*array.Augmented {
	out := make([]*array.Augmented, len(sizes))
	for i, s := range sizes {
		out[i] = array.NewAugmented(s, nil)
	}
	return out
}

func TestAffineForward(t *testing.T) {
	in := array.NewAugmented(2, nil)
	out := array.NewAugmented(2, nil)
	p := NewAffineParams([]int{2}, 2)
	require.NoError(t, p.W[0].Values.AssignValues(ndarray.NewMatrix([][]float64{{1, 2}, {3, 4}})))
	require.NoError(t, p.B.Values.AssignValues(ndarray.NewVector(0.5, -0.5)))

	l, err := NewFeedforward(in, out, p)
	require.NoError(t, err)
	require.NoError(t, in.AssignValues(ndarray.NewVector(1, 1)))
	require.NoError(t, l.Forward())

	assert.Equal(t, []float64{3.5, 6.5}, out.Values().ToDense().Data())
}

func TestAffineForwardMultipleInputs(t *testing.T) {
	ins := vectors(2, 3)
	out := array.NewAugmented(2, activations.Tanh{})
	p := NewAffineParams([]int{2, 3}, 2)
	p.Initialize(params.NewGlorot(1))
	require.NoError(t, p.B.Values.AssignValues(ndarray.NewVector(0.1, 0.2)))

	l, err := NewAffine(ins, out, p)
	require.NoError(t, err)

	x1, x2 := ndarray.NewVector(0.3, -0.4), ndarray.NewVector(1, 0.5, -1)
	require.NoError(t, ins[0].AssignValues(x1))
	require.NoError(t, ins[1].AssignValues(x2))
	require.NoError(t, l.Forward())

	w1x1, err := p.W[0].Values.Dot(x1)
	require.NoError(t, err)
	w2x2, err := p.W[1].Values.Dot(x2)
	require.NoError(t, err)
	want := p.B.Values.Copy()
	require.NoError(t, want.AssignSum(w1x1))
	require.NoError(t, want.AssignSum(w2x2))
	want.Apply(math.Tanh)

	assert.InDeltaSlice(t, want.Data(), out.Values().ToDense().Data(), 1e-12)
	assert.Len(t, l.Params(), 3)
	assert.Same(t, p.B, l.Params()[2])
}

func TestAffineGradients(t *testing.T) {
	ins := vectors(3, 2)
	out := array.NewAugmented(2, activations.Sigmoid{})
	p := NewAffineParams([]int{3, 2}, 2)
	p.Initialize(params.NewGlorot(3))
	require.NoError(t, p.B.Values.AssignValues(ndarray.NewVector(0.1, -0.3)))

	l, err := NewAffine(ins, out, p)
	require.NoError(t, err)
	gradCheck(t, l, ndarray.NewVector(0.5, -1, 0.25), ndarray.NewVector(0.8, 0.1))
}

func TestAffineSoftmaxGradients(t *testing.T) {
	ins := vectors(3)
	out := array.NewAugmented(4, activations.Softmax{})
	p := NewAffineParams([]int{3}, 4)
	p.Initialize(params.NewGlorot(5))

	l, err := NewAffine(ins, out, p)
	require.NoError(t, err)
	gradCheck(t, l, ndarray.NewVector(0.2, -0.7, 1.1))
}

func TestAffineSparseInput(t *testing.T) {
	in := array.NewAugmented(4, nil)
	out := array.NewAugmented(2, nil)
	p := NewAffineParams([]int{4}, 2)
	p.Initialize(params.NewGlorot(11))
	l, err := NewFeedforward(in, out, p)
	require.NoError(t, err)

	sparse, err := ndarray.NewSparseBinary(4, 1, 3)
	require.NoError(t, err)
	require.NoError(t, in.SetValues(sparse))
	require.NoError(t, l.Forward())
	fromSparse := out.Values().ToDense().Copy()

	require.NoError(t, in.AssignValues(ndarray.NewVector(0, 1, 0, 1)))
	require.NoError(t, l.Forward())
	assert.InDeltaSlice(t, out.Values().ToDense().Data(), fromSparse.Data(), 1e-12)

	require.NoError(t, in.SetValues(sparse))
	require.NoError(t, l.Forward())
	require.NoError(t, out.SetErrors(ndarray.NewVector(1, -2)))
	require.NoError(t, l.Backward(false))

	e, ok := l.ParamsErrors().ErrorsOf(p.W[0])
	require.True(t, ok)
	assert.Equal(t, []float64{0, 1, 0, 1, 0, -2, 0, -2}, e.Values.Data())
}

func TestAffineInvalidWiring(t *testing.T) {
	in := array.NewAugmented(3, nil)
	out := array.NewAugmented(2, nil)

	_, err := NewFeedforward(in, out, NewAffineParams([]int{2}, 2))
	assert.ErrorIs(t, err, ndarray.ErrShapeMismatch)

	_, err = NewAffine([]*array.Augmented{in}, out, NewAffineParams([]int{3, 3}, 2))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewFeedforward(in, out, NewAffineParams([]int{3}, 4))
	assert.ErrorIs(t, err, ndarray.ErrShapeMismatch)

	_, err = NewFeedforward(in, nil, NewAffineParams([]int{3}, 2))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestBackwardWithoutOutputErrors(t *testing.T) {
	in := array.NewAugmented(2, nil)
	out := array.NewAugmented(2, nil)
	l, err := NewFeedforward(in, out, NewAffineParams([]int{2}, 2))
	require.NoError(t, err)
	require.NoError(t, in.AssignValues(ndarray.NewVector(1, 2)))
	require.NoError(t, l.Forward())

	assert.ErrorIs(t, l.Backward(true), array.ErrMissingErrors)
}

func TestBackwardWithoutPropagation(t *testing.T) {
	in := array.NewAugmented(2, nil)
	out := array.NewAugmented(1, nil)
	p := NewAffineParams([]int{2}, 1)
	l, err := NewFeedforward(in, out, p)
	require.NoError(t, err)

	require.NoError(t, in.AssignValues(ndarray.NewVector(1, 2)))
	require.NoError(t, l.Forward())
	require.NoError(t, out.SetErrors(ndarray.NewVector(0.5)))
	require.NoError(t, l.Backward(false))

	assert.False(t, in.HasErrors())
	e, ok := l.ParamsErrors().ErrorsOf(p.W[0])
	require.True(t, ok)
	assert.Equal(t, []float64{0.5, 1}, e.Values.Data())
}

func TestConcatForward(t *testing.T) {
	ins := vectors(4, 2, 3)
	out := array.NewAugmented(9, nil)
	l, err := NewConcat(ins, out)
	require.NoError(t, err)

	require.NoError(t, ins[0].AssignValues(ndarray.NewVector(-0.9, 0.9, 0.6, 0.1)))
	require.NoError(t, ins[1].AssignValues(ndarray.NewVector(0.0, 0.5)))
	require.NoError(t, ins[2].AssignValues(ndarray.NewVector(-0.7, -0.7, 0.8)))
	require.NoError(t, l.Forward())

	assert.Equal(t, []float64{-0.9, 0.9, 0.6, 0.1, 0.0, 0.5, -0.7, -0.7, 0.8}, out.Values().ToDense().Data())
	assert.Equal(t, 9, out.Size())
	assert.Empty(t, l.Params())
}

func TestConcatBackward(t *testing.T) {
	ins := vectors(2, 1)
	out := array.NewAugmented(3, nil)
	l, err := NewConcat(ins, out)
	require.NoError(t, err)

	require.NoError(t, ins[0].AssignValues(ndarray.NewVector(1, 2)))
	require.NoError(t, ins[1].AssignValues(ndarray.NewVector(3)))
	require.NoError(t, l.Forward())
	require.NoError(t, out.SetErrors(ndarray.NewVector(0.1, 0.2, 0.3)))
	require.NoError(t, l.Backward(true))
	assert.InDeltaSlice(t, []float64{0.1, 0.2}, ins[0].Errors().Data(), 1e-12)
	assert.InDeltaSlice(t, []float64{0.3}, ins[1].Errors().Data(), 1e-12)

	gradCheck(t, l, ndarray.NewVector(1, 2), ndarray.NewVector(3))
}

func TestConcatWrongOutputSize(t *testing.T) {
	_, err := NewConcat(vectors(2, 3), array.NewAugmented(4, nil))
	assert.ErrorIs(t, err, ndarray.ErrShapeMismatch)
}

func TestConcatSparseInput(t *testing.T) {
	ins := vectors(3, 2)
	out := array.NewAugmented(5, nil)
	l, err := NewConcat(ins, out)
	require.NoError(t, err)

	require.NoError(t, ins[0].SetValues(ndarray.NewSparse(3)))
	require.NoError(t, ins[1].AssignValues(ndarray.NewVector(1, 2)))
	assert.ErrorIs(t, l.Forward(), ErrUnsupportedInputType)
}

func TestMergeForward(t *testing.T) {
	x1, x2 := ndarray.NewVector(1, 2, 3), ndarray.NewVector(4, -1, 0.5)

	tests := []struct {
		name  string
		build func(ins []*array.Augmented, out *array.Augmented) (Layer, error)
		want  []float64
	}{
		{"sum", func(ins []*array.Augmented, out *array.Augmented) (Layer, error) { return NewSum(ins, out) }, []float64{5, 1, 3.5}},
		{"avg", func(ins []*array.Augmented, out *array.Augmented) (Layer, error) { return NewAvg(ins, out) }, []float64{2.5, 0.5, 1.75}},
		{"sub", func(ins []*array.Augmented, out *array.Augmented) (Layer, error) { return NewSub(ins[0], ins[1], out) }, []float64{-3, 3, 2.5}},
		{"product", func(ins []*array.Augmented, out *array.Augmented) (Layer, error) { return NewProduct(ins, out) }, []float64{4, -2, 1.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ins := vectors(3, 3)
			out := array.NewAugmented(3, nil)
			l, err := tt.build(ins, out)
			require.NoError(t, err)

			require.NoError(t, ins[0].AssignValues(x1))
			require.NoError(t, ins[1].AssignValues(x2))
			require.NoError(t, l.Forward())
			assert.InDeltaSlice(t, tt.want, out.Values().ToDense().Data(), 1e-12)
		})
	}
}

func TestMergeGradients(t *testing.T) {
	xs := []*ndarray.Dense{
		ndarray.NewVector(0.5, -0.2, 1.5),
		ndarray.NewVector(-1, 0.3, 0.7),
		ndarray.NewVector(0.9, 0.4, -0.6),
	}

	t.Run("sum", func(t *testing.T) {
		l, err := NewSum(vectors(3, 3, 3), array.NewAugmented(3, activations.Tanh{}))
		require.NoError(t, err)
		gradCheck(t, l, xs...)
	})
	t.Run("avg", func(t *testing.T) {
		l, err := NewAvg(vectors(3, 3, 3), array.NewAugmented(3, activations.Sigmoid{}))
		require.NoError(t, err)
		gradCheck(t, l, xs...)
	})
	t.Run("sub", func(t *testing.T) {
		ins := vectors(3, 3)
		l, err := NewSub(ins[0], ins[1], array.NewAugmented(3, activations.Tanh{}))
		require.NoError(t, err)
		gradCheck(t, l, xs[0], xs[1])
	})
	t.Run("product", func(t *testing.T) {
		l, err := NewProduct(vectors(3, 3, 3), array.NewAugmented(3, nil))
		require.NoError(t, err)
		gradCheck(t, l, xs...)
	})
}

func TestMergeShapeMismatch(t *testing.T) {
	_, err := NewSum(vectors(3, 2), array.NewAugmented(3, nil))
	assert.ErrorIs(t, err, ndarray.ErrShapeMismatch)

	_, err = NewAvg(vectors(3, 3), array.NewAugmented(2, nil))
	assert.ErrorIs(t, err, ndarray.ErrShapeMismatch)

	_, err = NewProduct(vectors(3), array.NewAugmented(3, nil))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

// An array feeding two inputs of the same layer receives the sum of both
// contributions.
func TestSharedInputAccumulatesErrors(t *testing.T) {
	x := array.NewAugmented(2, nil)
	out := array.NewAugmented(2, nil)
	l, err := NewSum([]*array.Augmented{x, x}, out)
	require.NoError(t, err)

	require.NoError(t, x.AssignValues(ndarray.NewVector(1, 2)))
	require.NoError(t, l.Forward())
	assert.Equal(t, []float64{2, 4}, out.Values().ToDense().Data())

	require.NoError(t, out.SetErrors(ndarray.NewVector(0.5, -1)))
	require.NoError(t, l.Backward(true))
	assert.Equal(t, []float64{1, -2}, x.Errors().Data())
}

func TestCosineSimilarity(t *testing.T) {
	ins := vectors(3, 3)
	out := array.NewAugmented(1, nil)
	l, err := NewCosineSimilarity(ins[0], ins[1], out)
	require.NoError(t, err)

	require.NoError(t, ins[0].AssignValues(ndarray.NewVector(1, 0, 0)))
	require.NoError(t, ins[1].AssignValues(ndarray.NewVector(1, 1, 0)))
	require.NoError(t, l.Forward())
	assert.InDelta(t, 1/math.Sqrt2, out.Values().AtVec(0), 1e-12)

	gradCheck(t, l, ndarray.NewVector(0.3, -0.5, 0.8), ndarray.NewVector(1.2, 0.4, -0.1))
}

func TestCosineSimilarityZeroNorm(t *testing.T) {
	ins := vectors(2, 2)
	out := array.NewAugmented(1, nil)
	l, err := NewCosineSimilarity(ins[0], ins[1], out)
	require.NoError(t, err)

	require.NoError(t, ins[0].AssignValues(ndarray.NewVector(0, 0)))
	require.NoError(t, ins[1].AssignValues(ndarray.NewVector(1, 1)))
	require.NoError(t, l.Forward())
	assert.Equal(t, 0.0, out.Values().AtVec(0))

	require.NoError(t, out.SetErrors(ndarray.NewVector(1)))
	require.NoError(t, l.Backward(true))
	assert.Equal(t, []float64{0, 0}, ins[0].Errors().Data())
	assert.Equal(t, []float64{0, 0}, ins[1].Errors().Data())
}

func TestDistance(t *testing.T) {
	ins := vectors(3, 3)
	out := array.NewAugmented(1, nil)
	l, err := NewDistance(ins[0], ins[1], out)
	require.NoError(t, err)

	require.NoError(t, ins[0].AssignValues(ndarray.NewVector(1, 2, 3)))
	require.NoError(t, ins[1].AssignValues(ndarray.NewVector(1, 1, 5)))
	require.NoError(t, l.Forward())
	assert.InDelta(t, math.Exp(-3), out.Values().AtVec(0), 1e-12)

	gradCheck(t, l, ndarray.NewVector(0.3, -0.5, 0.8), ndarray.NewVector(1.2, 0.4, -0.1))
}

func TestDistanceWithActivationGradients(t *testing.T) {
	ins := vectors(2, 2)
	l, err := NewDistance(ins[0], ins[1], array.NewAugmented(1, activations.Tanh{}))
	require.NoError(t, err)
	gradCheck(t, l, ndarray.NewVector(0.2, 0.9), ndarray.NewVector(-0.4, 0.1))
}

func TestPairWrongOutputSize(t *testing.T) {
	ins := vectors(2, 2)
	_, err := NewDistance(ins[0], ins[1], array.NewAugmented(2, nil))
	assert.ErrorIs(t, err, ndarray.ErrShapeMismatch)
}

func TestAttentionMechanismForward(t *testing.T) {
	ins := vectors(2, 2, 2)
	out := array.NewAugmented(3, activations.Softmax{})
	p := NewAttentionParams(2)
	require.NoError(t, p.Context.Values.AssignValues(ndarray.NewVector(0.5, -1)))

	l, err := NewAttentionMechanism(ins, out, p)
	require.NoError(t, err)
	assert.Nil(t, l.AttentionMatrix())

	rows := [][]float64{{1, 0}, {0, 1}, {2, 2}}
	for i, r := range rows {
		require.NoError(t, ins[i].AssignValues(ndarray.NewVector(r...)))
	}
	require.NoError(t, l.Forward())

	assert.Equal(t, ndarray.NewMatrix(rows).Data(), l.AttentionMatrix().Data())

	scores := []float64{0.5, -1, -1}
	want := make([]float64, len(scores))
	activations.Softmax{}.ActivateVector(want, scores)
	assert.InDeltaSlice(t, want, out.Values().ToDense().Data(), 1e-12)
	assert.InDelta(t, 1.0, out.Values().ToDense().SumAll(), 1e-12)
}

func TestAttentionMechanismGradients(t *testing.T) {
	ins := vectors(3, 3, 3, 3)
	out := array.NewAugmented(4, activations.Softmax{})
	p := NewAttentionParams(3)
	p.Initialize(params.NewGlorot(9))

	l, err := NewAttentionMechanism(ins, out, p)
	require.NoError(t, err)
	gradCheck(t, l,
		ndarray.NewVector(0.1, 0.2, 0.3),
		ndarray.NewVector(-0.5, 0.4, 0.9),
		ndarray.NewVector(1.0, -1.0, 0.0),
		ndarray.NewVector(0.3, 0.3, -0.8),
	)
}

func TestAttentionMechanismWiring(t *testing.T) {
	_, err := NewAttentionMechanism(vectors(2, 2), array.NewAugmented(3, nil), NewAttentionParams(2))
	assert.ErrorIs(t, err, ndarray.ErrShapeMismatch)

	_, err = NewAttentionMechanism(vectors(2, 2), array.NewAugmented(2, nil), NewAttentionParams(3))
	assert.ErrorIs(t, err, ndarray.ErrShapeMismatch)

	l, err := NewAttentionMechanism(vectors(2, 2), array.NewAugmented(2, nil), NewAttentionParams(2))
	require.NoError(t, err)
	assert.ErrorIs(t, l.Backward(true), array.ErrMissingErrors)
}

func TestAttentionPooling(t *testing.T) {
	ins := vectors(2, 2)
	out := array.NewAugmented(2, nil)
	p := NewAttentionParams(2)
	l, err := NewAttention(ins, out, p)
	require.NoError(t, err)

	// A zero context scores every input equally.
	require.NoError(t, ins[0].AssignValues(ndarray.NewVector(1, 3)))
	require.NoError(t, ins[1].AssignValues(ndarray.NewVector(3, 5)))
	require.NoError(t, l.Forward())

	assert.InDeltaSlice(t, []float64{0.5, 0.5}, l.Scores().Values().ToDense().Data(), 1e-12)
	assert.InDeltaSlice(t, []float64{2, 4}, out.Values().ToDense().Data(), 1e-12)
	assert.Equal(t, l.Mechanism().Params(), l.Params())
}

func TestAttentionPoolingGradients(t *testing.T) {
	ins := vectors(3, 3, 3)
	out := array.NewAugmented(3, activations.Tanh{})
	p := NewAttentionParams(3)
	p.Initialize(params.NewGlorot(21))

	l, err := NewAttention(ins, out, p)
	require.NoError(t, err)
	gradCheck(t, l,
		ndarray.NewVector(0.4, -0.2, 0.9),
		ndarray.NewVector(-0.7, 0.5, 0.1),
		ndarray.NewVector(0.2, 0.8, -0.5),
	)
}

func TestLayerImplementations(t *testing.T) {
	var _ Layer = (*Affine)(nil)
	var _ Layer = (*Concat)(nil)
	var _ Layer = (*Sum)(nil)
	var _ Layer = (*Avg)(nil)
	var _ Layer = (*Sub)(nil)
	var _ Layer = (*Product)(nil)
	var _ Layer = (*CosineSimilarity)(nil)
	var _ Layer = (*Distance)(nil)
	var _ Layer = (*AttentionMechanism)(nil)
	var _ Layer = (*Attention)(nil)
}

func BenchmarkAffineForwardBackward(b *testing.B) {
	in := array.NewAugmented(128, nil)
	out := array.NewAugmented(64, activations.ReLU{})
	p := NewAffineParams([]int{128}, 64)
	p.Initialize(params.NewGlorot(1))
	l, err := NewFeedforward(in, out, p)
	require.NoError(b, err)

	x := ndarray.Fill(128, 1, 0.5)
	g := ndarray.Fill(64, 1, 0.1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = in.AssignValues(x)
		_ = l.Forward()
		_ = out.SetErrors(g)
		_ = l.Backward(true)
	}
}
