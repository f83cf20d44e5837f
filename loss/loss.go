// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package loss provides the autoencoder training objectives.
//
// # Objectives
//
// Sparse autoencoder (reconstruction + L1 activation penalty):
//
//	b := loss.SparseL1(ae.Children(), x, ae.Forward(x), 0.001, false)
//
// Variational autoencoder (reconstruction + KL divergence):
//
//	xHat, mu, logVar := vae.Forward(x)
//	b := loss.VAE(x, xHat, mu, logVar, false)
//
// With validate set both return the reconstruction loss alone.
package loss

import (
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/baler/internal/loss"
)

// Layer maps a batch to a batch.
type Layer = loss.Layer

// Breakdown holds a loss together with its components.
type Breakdown = loss.Breakdown

// MSE computes mean squared error.
func MSE(reconstructed, target *mat.Dense) float64 {
	return loss.MSE(reconstructed, target)
}

// KLDivergence computes the batch-mean KL divergence to the standard normal.
func KLDivergence(mu, logVar *mat.Dense) float64 {
	return loss.KLDivergence(mu, logVar)
}

// SparseL1 computes the sparse autoencoder objective.
func SparseL1(layers []Layer, target, reconstructed *mat.Dense, regParam float64, validate bool) Breakdown {
	return loss.SparseL1(layers, target, reconstructed, regParam, validate)
}

// VAE computes the variational autoencoder objective.
func VAE(target, reconstructed, mu, logVar *mat.Dense, validate bool) Breakdown {
	return loss.VAE(target, reconstructed, mu, logVar, validate)
}
