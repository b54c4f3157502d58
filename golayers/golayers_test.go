package golayers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSiameseSimilarity(t *testing.T) {
	a, b := NewArray(3, nil), NewArray(3, nil)
	ea, eb := NewArray(2, Tanh), NewArray(2, Tanh)
	sim := NewArray(1, nil)

	init := Glorot(1)
	encA, err := Feedforward(a, ea, init)
	require.NoError(t, err)
	encB, err := Feedforward(b, eb, init)
	require.NoError(t, err)
	cos, err := CosineSimilarity(ea, eb, sim)
	require.NoError(t, err)

	n, err := NewNetwork(encA, encB, cos)
	require.NoError(t, err)
	assert.Len(t, n.Inputs(), 2)

	out, err := n.Predict(Vector(1, 0, 1), Vector(0, 1, 0))
	require.NoError(t, err)
	assert.InDelta(t, 0, out.AtVec(0), 1)

	errs, err := MulticlassMSE.Errors(out, Vector(1))
	require.NoError(t, err)
	require.NoError(t, n.Backward(errs, false))

	o := NewOptimizer(n.Params(), SGD(0.1, 0))
	require.NoError(t, o.Accumulate(n.ParamsErrors()))
	updated, err := o.Update()
	require.NoError(t, err)
	assert.Equal(t, 4, updated)
}

func TestAttentionOverSparseEncodings(t *testing.T) {
	xs := []*Array{NewArray(5, nil), NewArray(5, nil), NewArray(5, nil)}
	hs := []*Array{NewArray(4, Tanh), NewArray(4, Tanh), NewArray(4, Tanh)}
	pooled := NewArray(4, nil)

	var layers []Layer
	for i := range xs {
		l, err := Feedforward(xs[i], hs[i], Glorot(int64(i)))
		require.NoError(t, err)
		layers = append(layers, l)
	}
	att, err := Attention(hs, pooled, Glorot(7))
	require.NoError(t, err)
	layers = append(layers, att)

	n, err := NewNetwork(layers...)
	require.NoError(t, err)

	s1, err := SparseBinary(5, 0)
	require.NoError(t, err)
	s2, err := SparseBinary(5, 2, 4)
	require.NoError(t, err)
	s3, err := SparseBinary(5, 1)
	require.NoError(t, err)

	out, err := n.Predict(s1, s2, s3)
	require.NoError(t, err)
	assert.Equal(t, 4, out.Length())
	assert.InDelta(t, 1.0, att.Scores().Values().ToDense().SumAll(), 1e-12)
}

func TestFacadeValidation(t *testing.T) {
	_, err := Feedforward(NewArray(2, nil), nil, nil)
	assert.Error(t, err)
	_, err = Attention(nil, NewArray(2, nil), nil)
	assert.Error(t, err)

	_, err = LossByName("nope")
	assert.Error(t, err)
	act, err := ActivationByName("relu")
	require.NoError(t, err)
	assert.Equal(t, ReLU, act)
}
