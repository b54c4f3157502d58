// Package net composes layers into a network.
//
// Layers are connected by sharing augmented arrays: a layer's input is either
// a free input of the network or the output of an earlier layer. The network
// runs forward passes in layer order and backward passes in reverse order.
package net

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/FlavioCFOliveira/GoLayers/internal/array"
	"github.com/FlavioCFOliveira/GoLayers/internal/layer"
	"github.com/FlavioCFOliveira/GoLayers/internal/ndarray"
	"github.com/FlavioCFOliveira/GoLayers/internal/params"
)

var (
	// ErrEmptyNetwork is returned by New without layers.
	ErrEmptyNetwork = errors.New("network has no layers")
	// ErrInvalidTopology is returned when layers are not in topological order
	// or two layers write the same array.
	ErrInvalidTopology = errors.New("invalid network topology")
)

// Network is an ordered composition of layers.
type Network struct {
	layers   []layer.Layer
	inputs   []*array.Augmented
	internal []bool
}

// New creates a network from layers in topological order. Inputs not produced
// by any layer become the network inputs, in order of first use. The output
// of the last layer is the network output.
func New(layers ...layer.Layer) (*Network, error) {
	if len(layers) == 0 {
		return nil, ErrEmptyNetwork
	}

	producer := make(map[*array.Augmented]int, len(layers))
	for i, l := range layers {
		if l == nil {
			return nil, fmt.Errorf("%w: layer %d is nil", ErrInvalidTopology, i)
		}
		if j, ok := producer[l.Output()]; ok {
			return nil, fmt.Errorf("%w: layers %d and %d share an output", ErrInvalidTopology, j, i)
		}
		producer[l.Output()] = i
	}

	n := &Network{layers: layers, internal: make([]bool, len(layers))}
	seen := make(map[*array.Augmented]struct{})
	for i, l := range layers {
		for k, in := range l.Inputs() {
			j, ok := producer[in]
			if !ok {
				if _, dup := seen[in]; !dup {
					seen[in] = struct{}{}
					n.inputs = append(n.inputs, in)
				}
				continue
			}
			if j >= i {
				return nil, fmt.Errorf("%w: input %d of layer %d comes from layer %d", ErrInvalidTopology, k, i, j)
			}
			n.internal[i] = true
		}
	}
	return n, nil
}

// Layers returns the layers in execution order.
func (n *Network) Layers() []layer.Layer {
	return n.layers
}

// Inputs returns the free input arrays.
func (n *Network) Inputs() []*array.Augmented {
	return n.inputs
}

// Output returns the network output array.
func (n *Network) Output() *array.Augmented {
	return n.layers[len(n.layers)-1].Output()
}

// SetInputs assigns one value array per free input. Dense values are copied;
// other representations, such as sparse arrays, replace the input values.
func (n *Network) SetInputs(values ...ndarray.NDArray) error {
	if len(values) != len(n.inputs) {
		return fmt.Errorf("%w: %d values for %d inputs", ndarray.ErrShapeMismatch, len(values), len(n.inputs))
	}
	for i, v := range values {
		var err error
		if _, ok := v.(*ndarray.Dense); ok {
			err = n.inputs[i].AssignValues(v)
		} else {
			err = n.inputs[i].SetValues(v)
		}
		if err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
	}
	return nil
}

// Forward runs every layer in order.
func (n *Network) Forward() error {
	for i, l := range n.layers {
		if err := l.Forward(); err != nil {
			return fmt.Errorf("layer %d forward: %w", i, err)
		}
	}
	return nil
}

// Predict assigns the inputs, runs a forward pass and returns a copy of the
// output values.
func (n *Network) Predict(values ...ndarray.NDArray) (*ndarray.Dense, error) {
	if err := n.SetInputs(values...); err != nil {
		return nil, err
	}
	if err := n.Forward(); err != nil {
		return nil, err
	}
	return n.Output().Values().ToDense().Copy(), nil
}

// Backward sets outputErrors on the network output and runs every layer's
// backward pass in reverse order. Layers whose output received no errors are
// skipped. Layers reading only free inputs propagate errors to them only when
// propagateToInput is true.
// Every backward pass starts from clean buffers: the errors left by a
// previous pass on hidden arrays, and on the inputs when propagateToInput is
// true, are reset first. Calling Backward twice after one Forward gives the
// same errors both times.
func (n *Network) Backward(outputErrors *ndarray.Dense, propagateToInput bool) error {
	if err := n.Output().SetErrors(outputErrors); err != nil {
		return fmt.Errorf("network output: %w", err)
	}
	out := n.Output()
	for _, l := range n.layers {
		if l.Output() != out {
			l.Output().ResetErrors()
		}
	}
	if propagateToInput {
		for _, in := range n.inputs {
			in.ResetErrors()
		}
	}
	for i := len(n.layers) - 1; i >= 0; i-- {
		l := n.layers[i]
		if !l.Output().HasErrors() {
			continue
		}
		if err := l.Backward(propagateToInput || n.internal[i]); err != nil {
			return fmt.Errorf("layer %d backward: %w", i, err)
		}
	}
	return nil
}

// Params returns the parameters of every layer without duplicates, in layer
// order.
func (n *Network) Params() []*params.Array {
	seen := make(map[*params.Array]struct{})
	var out []*params.Array
	for _, l := range n.layers {
		for _, p := range l.Params() {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// ParamsErrors returns the error records of every layer in layer order. A
// parameter shared by several layers appears once per layer.
func (n *Network) ParamsErrors() params.ErrorsList {
	var out params.ErrorsList
	for _, l := range n.layers {
		out = append(out, l.ParamsErrors()...)
	}
	return out
}

// CountParams returns the number of scalar parameters.
func (n *Network) CountParams() int {
	total := 0
	for _, p := range n.Params() {
		total += p.Values.Length()
	}
	return total
}

// Summary writes a table of the layers with their output sizes and parameter
// counts.
func (n *Network) Summary(w io.Writer) error {
	var b strings.Builder
	rule := strings.Repeat("_", 65)

	b.WriteString("Model: Network\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "%-25s %-20s %-10s\n", "Layer (type)", "Output Shape", "Param #")
	b.WriteString(strings.Repeat("=", 65) + "\n")

	for i, l := range n.layers {
		name := fmt.Sprintf("%T", l)
		if dot := strings.LastIndexByte(name, '.'); dot >= 0 {
			name = name[dot+1:]
		}
		count := 0
		for _, p := range l.Params() {
			count += p.Values.Length()
		}
		fmt.Fprintf(&b, "%-25s %-20s %-10d\n", fmt.Sprintf("%s_%d", name, i), fmt.Sprintf("(%d)", l.Output().Size()), count)
	}

	b.WriteString(strings.Repeat("=", 65) + "\n")
	fmt.Fprintf(&b, "Total params: %d\n", n.CountParams())
	b.WriteString(rule + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}
