// Package activations provides the element-wise and vector activation
// functions applied by augmented arrays at the end of a forward pass.
package activations

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Activation is an activation function with derivative.
type Activation interface {
	// Activate computes f(x)
	Activate(x float64) float64

	// Derivative computes f'(x) at the pre-activation value x
	Derivative(x float64) float64
}

// VectorActivation is an activation whose outputs depend on the whole vector.
// Layers check for it before falling back to the element-wise form.
type VectorActivation interface {
	Activation

	// ActivateVector writes f(x) into dst. dst and x may alias.
	ActivateVector(dst, x []float64)

	// BackwardVector writes Jᵀ·grad into dst, where J is the Jacobian of f
	// evaluated at the activated outputs fx. dst and grad may alias.
	BackwardVector(dst, fx, grad []float64)
}

// Identity leaves values unchanged.
type Identity struct{}

// Activate returns x
func (Identity) Activate(x float64) float64 { return x }

// Derivative returns 1
func (Identity) Derivative(float64) float64 { return 1 }

// ReLU activation function.
type ReLU struct{}

// Activate computes max(0, x)
func (ReLU) Activate(x float64) float64 {
	return math.Max(0, x)
}

// Derivative returns 1 if x > 0, else 0
func (ReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

// Sigmoid activation function.
type Sigmoid struct{}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Activate computes sigmoid(x)
func (Sigmoid) Activate(x float64) float64 {
	return sigmoid(x)
}

// Derivative computes sigmoid(x) * (1 - sigmoid(x))
func (Sigmoid) Derivative(x float64) float64 {
	s := sigmoid(x)
	return s * (1 - s)
}

// HardSigmoid is the piecewise-linear approximation clip(0.2x + 0.5, 0, 1).
type HardSigmoid struct{}

// Activate computes clip(0.2x + 0.5, 0, 1)
func (HardSigmoid) Activate(x float64) float64 {
	return math.Min(1, math.Max(0, 0.2*x+0.5))
}

// Derivative returns 0.2 inside (-2.5, 2.5), else 0
func (HardSigmoid) Derivative(x float64) float64 {
	if x > -2.5 && x < 2.5 {
		return 0.2
	}
	return 0
}

// Tanh activation function.
type Tanh struct{}

// Activate computes tanh(x)
func (Tanh) Activate(x float64) float64 {
	return math.Tanh(x)
}

// Derivative computes 1 - tanh(x)^2
func (Tanh) Derivative(x float64) float64 {
	t := math.Tanh(x)
	return 1 - t*t
}

// LeakyReLU keeps a small slope for negative inputs.
type LeakyReLU struct {
	Alpha float64 // Slope for x <= 0
}

// NewLeakyReLU creates a LeakyReLU with the given slope.
func NewLeakyReLU(alpha float64) *LeakyReLU {
	return &LeakyReLU{Alpha: alpha}
}

// Activate computes x if x > 0, else alpha*x
func (l *LeakyReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return l.Alpha * x
}

// Derivative returns 1 if x > 0, else alpha
func (l *LeakyReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return l.Alpha
}

// ELU is the exponential linear unit.
type ELU struct {
	Alpha float64
}

// NewELU creates an ELU with the given alpha.
func NewELU(alpha float64) *ELU {
	return &ELU{Alpha: alpha}
}

// Activate computes x if x > 0, else alpha*(exp(x)-1)
func (e *ELU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return e.Alpha * (math.Exp(x) - 1)
}

// Derivative returns 1 if x > 0, else alpha*exp(x)
func (e *ELU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return e.Alpha * math.Exp(x)
}

// Softplus is the smooth approximation log(1 + exp(x)) of ReLU.
type Softplus struct{}

// Activate computes log(1 + exp(x))
func (Softplus) Activate(x float64) float64 {
	// log1p(exp(x)) overflows for large x where the result is x anyway.
	if x > 30 {
		return x
	}
	return math.Log1p(math.Exp(x))
}

// Derivative computes sigmoid(x)
func (Softplus) Derivative(x float64) float64 {
	return sigmoid(x)
}

// SiLU (swish) computes x * sigmoid(x).
type SiLU struct{}

// Activate computes x * sigmoid(x)
func (SiLU) Activate(x float64) float64 {
	return x * sigmoid(x)
}

// Derivative computes sigmoid(x) * (1 + x*(1 - sigmoid(x)))
func (SiLU) Derivative(x float64) float64 {
	s := sigmoid(x)
	return s * (1 + x*(1-s))
}

// GELU uses the tanh approximation.
type GELU struct{}

const geluC = 0.044715

var geluK = math.Sqrt(2 / math.Pi)

// Activate computes 0.5x(1 + tanh(k(x + c x^3)))
func (GELU) Activate(x float64) float64 {
	return 0.5 * x * (1 + math.Tanh(geluK*(x+geluC*x*x*x)))
}

// Derivative of the tanh approximation.
func (GELU) Derivative(x float64) float64 {
	u := geluK * (x + geluC*x*x*x)
	t := math.Tanh(u)
	du := geluK * (1 + 3*geluC*x*x)
	return 0.5*(1+t) + 0.5*x*(1-t*t)*du
}

// Softmax normalizes a vector into a probability distribution.
type Softmax struct{}

// Activate panics: softmax is defined over a whole vector.
func (Softmax) Activate(float64) float64 {
	panic("Softmax.Activate: use ActivateVector for Softmax")
}

// Derivative panics: softmax is defined over a whole vector.
func (Softmax) Derivative(float64) float64 {
	panic("Softmax.Derivative: use BackwardVector for Softmax")
}

// ActivateVector computes exp(x - max) / sum(exp(x - max)).
func (Softmax) ActivateVector(dst, x []float64) {
	maxVal := floats.Max(x)
	for i, v := range x {
		dst[i] = math.Exp(v - maxVal)
	}
	floats.Scale(1/floats.Sum(dst), dst)
}

// BackwardVector computes dst_i = fx_i * (grad_i - sum_j grad_j fx_j).
func (Softmax) BackwardVector(dst, fx, grad []float64) {
	dot := floats.Dot(grad, fx)
	for i := range dst {
		dst[i] = fx[i] * (grad[i] - dot)
	}
}
