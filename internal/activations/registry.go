package activations

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownActivation is returned by ByName for unregistered names.
var ErrUnknownActivation = errors.New("unknown activation")

// registry maps activation names to constructors. Parameterized activations
// are built with their usual defaults.
var registry = map[string]func() Activation{
	"identity":    func() Activation { return Identity{} },
	"relu":        func() Activation { return ReLU{} },
	"sigmoid":     func() Activation { return Sigmoid{} },
	"hardsigmoid": func() Activation { return HardSigmoid{} },
	"tanh":        func() Activation { return Tanh{} },
	"leakyrelu":   func() Activation { return NewLeakyReLU(0.01) },
	"elu":         func() Activation { return NewELU(1.0) },
	"softplus":    func() Activation { return Softplus{} },
	"silu":        func() Activation { return SiLU{} },
	"gelu":        func() Activation { return GELU{} },
	"softmax":     func() Activation { return Softmax{} },
}

// ByName returns a new activation by its registered name (case-insensitive).
// The empty string and "none" resolve to nil, meaning no activation.
func ByName(name string) (Activation, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || key == "none" {
		return nil, nil
	}
	ctor, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownActivation, name)
	}
	return ctor(), nil
}

// Names lists the registered activation names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NameOf returns the registered name of act, or "none" for nil.
func NameOf(act Activation) string {
	switch act.(type) {
	case nil:
		return "none"
	case Identity:
		return "identity"
	case ReLU:
		return "relu"
	case Sigmoid:
		return "sigmoid"
	case HardSigmoid:
		return "hardsigmoid"
	case Tanh:
		return "tanh"
	case *LeakyReLU:
		return "leakyrelu"
	case *ELU:
		return "elu"
	case Softplus:
		return "softplus"
	case SiLU:
		return "silu"
	case GELU:
		return "gelu"
	case Softmax:
		return "softmax"
	default:
		return fmt.Sprintf("%T", act)
	}
}
