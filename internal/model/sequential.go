package model

import (
	"gonum.org/v1/gonum/mat"
)

// Sequential is a container that chains layers together.
//
// Each layer's output becomes the next layer's input:
//
//	encoder := model.NewSequential(
//	    model.NewLinear(24, 200, rng),
//	    model.NewLeakyReLU(0),
//	    model.NewBatchNorm1d(200),
//	)
type Sequential struct {
	layers []Layer
}

// NewSequential creates a new Sequential container.
func NewSequential(layers ...Layer) *Sequential {
	return &Sequential{layers: layers}
}

// Forward applies all layers in sequence.
func (s *Sequential) Forward(input *mat.Dense) *mat.Dense {
	output := input
	for _, layer := range s.layers {
		output = layer.Forward(output)
	}
	if output == input {
		return mat.DenseCopyOf(input)
	}
	return output
}

// SetTraining propagates the training flag to every layer.
func (s *Sequential) SetTraining(training bool) {
	setTraining(s.layers, training)
}

// Add appends a layer to the sequence.
func (s *Sequential) Add(layer Layer) {
	s.layers = append(s.layers, layer)
}

// Layers returns the contained layers in order.
func (s *Sequential) Layers() []Layer {
	return s.layers
}

// Len returns the number of layers.
func (s *Sequential) Len() int {
	return len(s.layers)
}

// Linears returns the Linear layers in order.
func (s *Sequential) Linears() []*Linear {
	var out []*Linear
	for _, l := range s.layers {
		if lin, ok := l.(*Linear); ok {
			out = append(out, lin)
		}
	}
	return out
}
