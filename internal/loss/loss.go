// Package loss provides loss functions and the output errors they induce.
//
// Errors are the gradient of the loss with respect to the activated output
// values. The output layer applies its own activation derivative when it
// propagates them.
package loss

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/FlavioCFOliveira/GoLayers/internal/ndarray"
)

// ErrUnknownLoss is returned by ByName for unregistered names.
var ErrUnknownLoss = errors.New("unknown loss")

const eps = 1e-10

// Loss is a loss function with its errors calculator.
type Loss interface {
	// Loss computes the loss between the output and the gold values.
	Loss(output, gold *ndarray.Dense) (float64, error)

	// Errors computes dL/d(output) as a new array.
	Errors(output, gold *ndarray.Dense) (*ndarray.Dense, error)
}

func check(name string, output, gold *ndarray.Dense) error {
	if output.Shape() != gold.Shape() {
		return fmt.Errorf("%s: %w: output %v, gold %v", name, ndarray.ErrShapeMismatch, output.Shape(), gold.Shape())
	}
	return nil
}

// zipMap applies fn to each (output, gold) pair into a new array.
func zipMap(output, gold *ndarray.Dense, fn func(o, g float64) float64) *ndarray.Dense {
	out := output.Copy()
	for i := 0; i < out.Length(); i++ {
		out.SetVec(i, fn(output.AtVec(i), gold.AtVec(i)))
	}
	return out
}

// zipSum sums fn over each (output, gold) pair.
func zipSum(output, gold *ndarray.Dense, fn func(o, g float64) float64) float64 {
	var s float64
	for i := 0; i < output.Length(); i++ {
		s += fn(output.AtVec(i), gold.AtVec(i))
	}
	return s
}

// distance returns the L-norm of output - gold.
func distance(output, gold *ndarray.Dense, l float64) float64 {
	return floats.Distance(output.Data(), gold.Data(), l)
}

// MSE is the mean squared error: (1/n) Σ (o - g)².
type MSE struct{}

// Loss computes the mean squared error.
func (MSE) Loss(output, gold *ndarray.Dense) (float64, error) {
	if err := check("mse", output, gold); err != nil {
		return 0, err
	}
	d := distance(output, gold, 2)
	return d * d / float64(output.Length()), nil
}

// Errors computes (2/n)(o - g).
func (MSE) Errors(output, gold *ndarray.Dense) (*ndarray.Dense, error) {
	if err := check("mse", output, gold); err != nil {
		return nil, err
	}
	d, err := output.Sub(gold)
	if err != nil {
		return nil, err
	}
	d.AssignProdScalar(2 / float64(output.Length()))
	return d, nil
}

// MulticlassMSE is ½ Σ (o - g)², whose errors are the plain difference o - g.
type MulticlassMSE struct{}

// Loss computes half the sum of squared differences.
func (MulticlassMSE) Loss(output, gold *ndarray.Dense) (float64, error) {
	if err := check("multiclass mse", output, gold); err != nil {
		return 0, err
	}
	d := distance(output, gold, 2)
	return 0.5 * d * d, nil
}

// Errors computes o - g.
func (MulticlassMSE) Errors(output, gold *ndarray.Dense) (*ndarray.Dense, error) {
	if err := check("multiclass mse", output, gold); err != nil {
		return nil, err
	}
	return output.Sub(gold)
}

// CrossEntropy is -Σ g·log(o) over probability outputs, normally produced by
// softmax. Outputs are clipped to eps before the log.
type CrossEntropy struct{}

// Loss computes the cross entropy.
func (CrossEntropy) Loss(output, gold *ndarray.Dense) (float64, error) {
	if err := check("cross entropy", output, gold); err != nil {
		return 0, err
	}
	return -zipSum(output, gold, func(o, g float64) float64 {
		if g == 0 {
			return 0
		}
		return g * math.Log(math.Max(o, eps))
	}), nil
}

// Errors computes -g/o. Through a softmax output this becomes o - g.
func (CrossEntropy) Errors(output, gold *ndarray.Dense) (*ndarray.Dense, error) {
	if err := check("cross entropy", output, gold); err != nil {
		return nil, err
	}
	return zipMap(output, gold, func(o, g float64) float64 {
		if g == 0 {
			return 0
		}
		return -g / math.Max(o, eps)
	}), nil
}

// Huber is quadratic for |o - g| <= Delta and linear beyond, averaged over
// the elements.
type Huber struct {
	Delta float64
}

// NewHuber creates a Huber loss with the given threshold.
func NewHuber(delta float64) *Huber {
	return &Huber{Delta: delta}
}

// Loss computes the mean Huber loss.
func (h *Huber) Loss(output, gold *ndarray.Dense) (float64, error) {
	if err := check("huber", output, gold); err != nil {
		return 0, err
	}
	sum := zipSum(output, gold, func(o, g float64) float64 {
		d := math.Abs(o - g)
		if d <= h.Delta {
			return 0.5 * d * d
		}
		return h.Delta * (d - 0.5*h.Delta)
	})
	return sum / float64(output.Length()), nil
}

// Errors computes the clipped difference divided by n.
func (h *Huber) Errors(output, gold *ndarray.Dense) (*ndarray.Dense, error) {
	if err := check("huber", output, gold); err != nil {
		return nil, err
	}
	n := float64(output.Length())
	return zipMap(output, gold, func(o, g float64) float64 {
		d := o - g
		return math.Max(-h.Delta, math.Min(h.Delta, d)) / n
	}), nil
}

// L1 is the mean absolute error.
type L1 struct{}

// Loss computes (1/n) Σ |o - g|.
func (L1) Loss(output, gold *ndarray.Dense) (float64, error) {
	if err := check("l1", output, gold); err != nil {
		return 0, err
	}
	return distance(output, gold, 1) / float64(output.Length()), nil
}

// Errors computes sign(o - g)/n, with 0 where o == g.
func (L1) Errors(output, gold *ndarray.Dense) (*ndarray.Dense, error) {
	if err := check("l1", output, gold); err != nil {
		return nil, err
	}
	n := float64(output.Length())
	return zipMap(output, gold, func(o, g float64) float64 {
		switch {
		case o > g:
			return 1 / n
		case o < g:
			return -1 / n
		}
		return 0
	}), nil
}

// BCE is the binary cross entropy over outputs in (0, 1), averaged over the
// elements. Outputs are clipped to [eps, 1-eps].
type BCE struct{}

func clip(o float64) float64 {
	return math.Max(eps, math.Min(1-eps, o))
}

// Loss computes -(1/n) Σ g·log(o) + (1-g)·log(1-o).
func (BCE) Loss(output, gold *ndarray.Dense) (float64, error) {
	if err := check("bce", output, gold); err != nil {
		return 0, err
	}
	sum := zipSum(output, gold, func(o, g float64) float64 {
		o = clip(o)
		return g*math.Log(o) + (1-g)*math.Log(1-o)
	})
	return -sum / float64(output.Length()), nil
}

// Errors computes (o - g) / (o(1 - o)n).
func (BCE) Errors(output, gold *ndarray.Dense) (*ndarray.Dense, error) {
	if err := check("bce", output, gold); err != nil {
		return nil, err
	}
	n := float64(output.Length())
	return zipMap(output, gold, func(o, g float64) float64 {
		o = clip(o)
		return (o - g) / (o * (1 - o) * n)
	}), nil
}

var registry = map[string]func() Loss{
	"mse":           func() Loss { return MSE{} },
	"multiclassmse": func() Loss { return MulticlassMSE{} },
	"crossentropy":  func() Loss { return CrossEntropy{} },
	"huber":         func() Loss { return NewHuber(1.0) },
	"l1":            func() Loss { return L1{} },
	"bce":           func() Loss { return BCE{} },
}

// ByName returns a loss by its registered name (case-insensitive). Huber uses
// a threshold of 1.
func ByName(name string) (Loss, error) {
	ctor, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLoss, name)
	}
	return ctor(), nil
}

// Names lists the registered loss names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
