// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package model provides the autoencoder architectures.
//
// Example:
//
//	arch, err := model.NewArchitecture("george_SAE_BN", 24, 12)
//	if err != nil {
//	    return err
//	}
//	ae := model.NewAutoencoder(arch, rand.New(rand.NewSource(1)))
//	ae.SetTraining(false)
//	reconstructed := ae.Forward(batch)
package model

import (
	"math/rand"

	"github.com/born-ml/baler/internal/model"
)

// ErrUnknownModel is returned for unregistered architecture names.
var ErrUnknownModel = model.ErrUnknownModel

// Architecture describes an autoencoder as ordered layer specs.
type Architecture = model.Architecture

// Layer maps a batch to a batch. Autoencoder.Children returns these.
type Layer = model.Layer

// LayerSpec describes one linear stage with its activation and normalization.
type LayerSpec = model.LayerSpec

// Autoencoder is a plain (sparse) autoencoder.
type Autoencoder = model.Autoencoder

// VAE is a variational autoencoder.
type VAE = model.VAE

// Names returns the registered architecture names.
func Names() []string {
	return model.Names()
}

// NewArchitecture looks up a registered architecture by name.
func NewArchitecture(name string, features, latent int) (Architecture, error) {
	return model.NewArchitecture(name, features, latent)
}

// NewAutoencoder builds a non-variational architecture.
func NewAutoencoder(arch Architecture, rng *rand.Rand) *Autoencoder {
	return model.NewAutoencoder(arch, rng)
}

// NewVAE builds a variational architecture.
func NewVAE(arch Architecture, rng *rand.Rand) *VAE {
	return model.NewVAE(arch, rng)
}
