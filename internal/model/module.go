// Package model implements the autoencoder architectures used to compress
// high-energy-physics tables.
//
// A model is described by an Architecture: ordered LayerSpec values for the
// encoder and decoder, each naming the linear dimensions, the activation and
// the normalization that follows. Architectures are looked up by name and
// built into runnable modules once:
//
//	arch, err := model.NewArchitecture("george_SAE", nFeatures, zDim)
//	ae := model.NewAutoencoder(arch, rand.New(rand.NewSource(1)))
//	reconstructed := ae.Forward(batch)
//
// Matrices are gonum *mat.Dense with shape [batch_size, features].
// Only the forward pass is provided.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Layer is the base interface for all network components.
//
// Forward takes a [batch_size, in_features] matrix and returns a new
// matrix; inputs are never modified.
type Layer interface {
	Forward(input *mat.Dense) *mat.Dense
}

// Trainable is implemented by layers whose behaviour depends on the
// training flag (Dropout, BatchNorm1d) and by containers of such layers.
type Trainable interface {
	SetTraining(training bool)
}

// setTraining propagates the flag to every layer that cares.
func setTraining(layers []Layer, training bool) {
	for _, l := range layers {
		if t, ok := l.(Trainable); ok {
			t.SetTraining(training)
		}
	}
}
