// Package golayers re-exports the common types and constructors of the layer
// library.
package golayers

import (
	"github.com/FlavioCFOliveira/GoLayers/internal/activations"
	"github.com/FlavioCFOliveira/GoLayers/internal/array"
	"github.com/FlavioCFOliveira/GoLayers/internal/layer"
	"github.com/FlavioCFOliveira/GoLayers/internal/loss"
	"github.com/FlavioCFOliveira/GoLayers/internal/ndarray"
	"github.com/FlavioCFOliveira/GoLayers/internal/net"
	"github.com/FlavioCFOliveira/GoLayers/internal/opt"
	"github.com/FlavioCFOliveira/GoLayers/internal/params"
)

// Re-export common types for easier access
type (
	Network      = net.Network
	Layer        = layer.Layer
	LayerConfig  = layer.Config
	Array        = array.Augmented
	NDArray      = ndarray.NDArray
	Dense        = ndarray.Dense
	Param        = params.Array
	ParamsErrors = params.ErrorsList
	Initializer  = params.Initializer
	Activation   = activations.Activation
	Loss         = loss.Loss
	UpdateMethod = opt.UpdateMethod
	Optimizer    = opt.ParamsOptimizer
)

// Network creation
func NewNetwork(layers ...Layer) (*Network, error) {
	return net.New(layers...)
}

// Arrays
func Vector(values ...float64) *Dense {
	return ndarray.NewVector(values...)
}

func Matrix(rows [][]float64) *Dense {
	return ndarray.NewMatrix(rows)
}

func SparseBinary(size int, active ...int) (*ndarray.Sparse, error) {
	return ndarray.NewSparseBinary(size, active...)
}

// NewArray creates an augmented array of the given size. A nil activation
// leaves the values unchanged.
func NewArray(size int, act Activation) *Array {
	return array.NewAugmented(size, act)
}

// Activations
var (
	Identity    = activations.Identity{}
	ReLU        = activations.ReLU{}
	Sigmoid     = activations.Sigmoid{}
	HardSigmoid = activations.HardSigmoid{}
	Tanh        = activations.Tanh{}
	Softmax     = activations.Softmax{}
	Softplus    = activations.Softplus{}
	GELU        = activations.GELU{}
	SiLU        = activations.SiLU{}
)

func LeakyReLU(alpha float64) Activation {
	return activations.NewLeakyReLU(alpha)
}

func ELU(alpha float64) Activation {
	return activations.NewELU(alpha)
}

func ActivationByName(name string) (Activation, error) {
	return activations.ByName(name)
}

// Initializers
func Glorot(seed int64) Initializer {
	return params.NewGlorot(seed)
}

// Layers. Parameterized layers create their parameters and fill them with
// init; a nil init leaves them at zero.
func Feedforward(in, out *Array, init Initializer) (*layer.Affine, error) {
	return Affine([]*Array{in}, out, init)
}

func Affine(inputs []*Array, out *Array, init Initializer) (*layer.Affine, error) {
	if out == nil {
		return nil, layer.ErrInvalidConfig
	}
	sizes := make([]int, len(inputs))
	for i, in := range inputs {
		if in == nil {
			return nil, layer.ErrInvalidConfig
		}
		sizes[i] = in.Size()
	}
	p := layer.NewAffineParams(sizes, out.Size())
	if init != nil {
		p.Initialize(init)
	}
	return layer.NewAffine(inputs, out, p)
}

func Concat(inputs []*Array, out *Array) (*layer.Concat, error) {
	return layer.NewConcat(inputs, out)
}

func Sum(inputs []*Array, out *Array) (*layer.Sum, error) {
	return layer.NewSum(inputs, out)
}

func Avg(inputs []*Array, out *Array) (*layer.Avg, error) {
	return layer.NewAvg(inputs, out)
}

func Sub(a, b, out *Array) (*layer.Sub, error) {
	return layer.NewSub(a, b, out)
}

func Product(inputs []*Array, out *Array) (*layer.Product, error) {
	return layer.NewProduct(inputs, out)
}

func CosineSimilarity(a, b, out *Array) (*layer.CosineSimilarity, error) {
	return layer.NewCosineSimilarity(a, b, out)
}

func Distance(a, b, out *Array) (*layer.Distance, error) {
	return layer.NewDistance(a, b, out)
}

func AttentionMechanism(inputs []*Array, out *Array, init Initializer) (*layer.AttentionMechanism, error) {
	p, err := attentionParams(inputs, init)
	if err != nil {
		return nil, err
	}
	return layer.NewAttentionMechanism(inputs, out, p)
}

func Attention(inputs []*Array, out *Array, init Initializer) (*layer.Attention, error) {
	p, err := attentionParams(inputs, init)
	if err != nil {
		return nil, err
	}
	return layer.NewAttention(inputs, out, p)
}

func attentionParams(inputs []*Array, init Initializer) (*layer.AttentionParams, error) {
	if len(inputs) == 0 || inputs[0] == nil {
		return nil, layer.ErrInvalidConfig
	}
	p := layer.NewAttentionParams(inputs[0].Size())
	if init != nil {
		p.Initialize(init)
	}
	return p, nil
}

// BuildLayer creates a layer with fresh arrays from a config.
func BuildLayer(cfg LayerConfig, init Initializer) (Layer, error) {
	return layer.Build(cfg, init)
}

// Losses
var (
	MSE           = loss.MSE{}
	MulticlassMSE = loss.MulticlassMSE{}
	CrossEntropy  = loss.CrossEntropy{}
	L1            = loss.L1{}
	BCE           = loss.BCE{}
)

func Huber(delta float64) Loss {
	return loss.NewHuber(delta)
}

func LossByName(name string) (Loss, error) {
	return loss.ByName(name)
}

// Optimizers
func SGD(lr, momentum float64) UpdateMethod {
	return opt.NewSGDMomentum(lr, momentum)
}

func Adam(lr float64) UpdateMethod {
	return opt.NewAdam(lr)
}

func NewOptimizer(ps []*Param, method UpdateMethod, opts ...opt.Option) *Optimizer {
	return opt.NewParamsOptimizer(ps, method, opts...)
}

func WithAverage() opt.Option {
	return opt.WithAverage()
}

func StepLR(method UpdateMethod, stepSize int, gamma float64) *opt.StepLR {
	return opt.NewStepLR(method, stepSize, gamma)
}

func ReduceLROnPlateau(method UpdateMethod, factor float64, patience int, threshold, minLR float64) *opt.ReduceLROnPlateau {
	return opt.NewReduceLROnPlateau(method, factor, patience, threshold, minLR)
}
