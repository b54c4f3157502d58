package layer

import (
	"fmt"
	"strings"

	"github.com/FlavioCFOliveira/GoLayers/internal/activations"
	"github.com/FlavioCFOliveira/GoLayers/internal/array"
	"github.com/FlavioCFOliveira/GoLayers/internal/params"
)

// Type identifies a layer kind.
type Type int

const (
	TypeUnknown Type = iota
	TypeFeedforward
	TypeAffine
	TypeConcat
	TypeSum
	TypeAvg
	TypeSub
	TypeProduct
	TypeCosineSimilarity
	TypeDistance
	TypeAttentionMechanism
	TypeAttention
)

var typeNames = [...]string{
	TypeUnknown:            "unknown",
	TypeFeedforward:        "feedforward",
	TypeAffine:             "affine",
	TypeConcat:             "concat",
	TypeSum:                "sum",
	TypeAvg:                "avg",
	TypeSub:                "sub",
	TypeProduct:            "product",
	TypeCosineSimilarity:   "cosinesimilarity",
	TypeDistance:           "distance",
	TypeAttentionMechanism: "attentionmechanism",
	TypeAttention:          "attention",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// ParseType returns the Type named s (case-insensitive).
func ParseType(s string) (Type, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for t, name := range typeNames {
		if Type(t) != TypeUnknown && name == key {
			return Type(t), nil
		}
	}
	return TypeUnknown, fmt.Errorf("%w: unknown layer type %q", ErrInvalidConfig, s)
}

// Config describes a layer independently of its arrays.
// OutputSize may be left zero for kinds whose output size follows from the
// inputs.
type Config struct {
	Type       Type
	InputSizes []int
	OutputSize int
	Activation string
}

// Validate checks the input count and sizes for the layer kind and returns
// the config with OutputSize resolved.
func (c Config) Validate() (Config, error) {
	if len(c.InputSizes) == 0 {
		return c, fmt.Errorf("%w: %v without inputs", ErrInvalidConfig, c.Type)
	}
	for i, s := range c.InputSizes {
		if s <= 0 {
			return c, fmt.Errorf("%w: input %d has size %d", ErrInvalidConfig, i, s)
		}
	}

	equal := func() error {
		for i, s := range c.InputSizes[1:] {
			if s != c.InputSizes[0] {
				return fmt.Errorf("%w: %v input %d has size %d, want %d", ErrInvalidConfig, c.Type, i+1, s, c.InputSizes[0])
			}
		}
		return nil
	}
	count := func(n int) error {
		if len(c.InputSizes) != n {
			return fmt.Errorf("%w: %v takes %d inputs, got %d", ErrInvalidConfig, c.Type, n, len(c.InputSizes))
		}
		return nil
	}

	var want int
	switch c.Type {
	case TypeFeedforward:
		if err := count(1); err != nil {
			return c, err
		}
		if c.OutputSize <= 0 {
			return c, fmt.Errorf("%w: %v needs an output size", ErrInvalidConfig, c.Type)
		}
		return c, nil
	case TypeAffine:
		if c.OutputSize <= 0 {
			return c, fmt.Errorf("%w: %v needs an output size", ErrInvalidConfig, c.Type)
		}
		return c, nil
	case TypeConcat:
		if act := strings.ToLower(strings.TrimSpace(c.Activation)); act != "" && act != "none" {
			return c, fmt.Errorf("%w: %v applies no activation, got %q", ErrInvalidConfig, c.Type, c.Activation)
		}
		for _, s := range c.InputSizes {
			want += s
		}
	case TypeSum, TypeAvg, TypeProduct, TypeAttention:
		if err := equal(); err != nil {
			return c, err
		}
		want = c.InputSizes[0]
	case TypeSub:
		if err := count(2); err != nil {
			return c, err
		}
		if err := equal(); err != nil {
			return c, err
		}
		want = c.InputSizes[0]
	case TypeCosineSimilarity, TypeDistance:
		if err := count(2); err != nil {
			return c, err
		}
		if err := equal(); err != nil {
			return c, err
		}
		want = 1
	case TypeAttentionMechanism:
		if err := equal(); err != nil {
			return c, err
		}
		want = len(c.InputSizes)
	default:
		return c, fmt.Errorf("%w: layer type %v", ErrInvalidConfig, c.Type)
	}

	if c.Type == TypeProduct && len(c.InputSizes) < 2 {
		return c, fmt.Errorf("%w: %v takes at least 2 inputs", ErrInvalidConfig, c.Type)
	}
	if c.OutputSize == 0 {
		c.OutputSize = want
	}
	if c.OutputSize != want {
		return c, fmt.Errorf("%w: %v output size %d, want %d", ErrInvalidConfig, c.Type, c.OutputSize, want)
	}
	return c, nil
}

// Build creates a layer with fresh input and output arrays. Parameters are
// filled with init; a nil init leaves them at zero. Input arrays have no
// activation.
func Build(cfg Config, init params.Initializer) (Layer, error) {
	cfg, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	act, err := activations.ByName(cfg.Activation)
	if err != nil {
		return nil, err
	}

	inputs := make([]*array.Augmented, len(cfg.InputSizes))
	for i, s := range cfg.InputSizes {
		inputs[i] = array.NewAugmented(s, nil)
	}
	output := array.NewAugmented(cfg.OutputSize, act)

	switch cfg.Type {
	case TypeFeedforward, TypeAffine:
		p := NewAffineParams(cfg.InputSizes, cfg.OutputSize)
		if init != nil {
			p.Initialize(init)
		}
		if cfg.Type == TypeFeedforward {
			return NewFeedforward(inputs[0], output, p)
		}
		return NewAffine(inputs, output, p)
	case TypeConcat:
		return NewConcat(inputs, output)
	case TypeSum:
		return NewSum(inputs, output)
	case TypeAvg:
		return NewAvg(inputs, output)
	case TypeSub:
		return NewSub(inputs[0], inputs[1], output)
	case TypeProduct:
		return NewProduct(inputs, output)
	case TypeCosineSimilarity:
		return NewCosineSimilarity(inputs[0], inputs[1], output)
	case TypeDistance:
		return NewDistance(inputs[0], inputs[1], output)
	case TypeAttentionMechanism, TypeAttention:
		p := NewAttentionParams(cfg.InputSizes[0])
		if init != nil {
			p.Initialize(init)
		}
		if cfg.Type == TypeAttention {
			return NewAttention(inputs, output, p)
		}
		return NewAttentionMechanism(inputs, output, p)
	}
	return nil, fmt.Errorf("%w: layer type %v", ErrInvalidConfig, cfg.Type)
}

// ExtractConfig returns the config describing l.
func ExtractConfig(l Layer) (Config, error) {
	var t Type
	switch v := l.(type) {
	case *Affine:
		t = TypeAffine
		if len(v.Inputs()) == 1 {
			t = TypeFeedforward
		}
	case *Concat:
		t = TypeConcat
	case *Sum:
		t = TypeSum
	case *Avg:
		t = TypeAvg
	case *Sub:
		t = TypeSub
	case *Product:
		t = TypeProduct
	case *CosineSimilarity:
		t = TypeCosineSimilarity
	case *Distance:
		t = TypeDistance
	case *AttentionMechanism:
		t = TypeAttentionMechanism
	case *Attention:
		t = TypeAttention
	default:
		return Config{}, fmt.Errorf("%w: unsupported layer %T", ErrInvalidConfig, l)
	}

	sizes := make([]int, len(l.Inputs()))
	for i, in := range l.Inputs() {
		sizes[i] = in.Size()
	}
	return Config{
		Type:       t,
		InputSizes: sizes,
		OutputSize: l.Output().Size(),
		Activation: activations.NameOf(l.Output().Activation()),
	}, nil
}
