// Package loss implements the training objectives of the autoencoders.
//
// Both objectives combine a reconstruction term (mean squared error between
// the input and its reconstruction) with a regularization term. In
// validation mode only the reconstruction term is computed, which is the
// value fed to the training-control policies.
package loss

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/baler/internal/model"
)

// Layer is a child module of an autoencoder, as returned by
// model.Autoencoder.Children.
type Layer = model.Layer

// Breakdown holds a loss together with its components.
//
// In validation mode Total equals Reconstruction and Regularization is zero.
type Breakdown struct {
	Total          float64
	Reconstruction float64
	Regularization float64
}

// MSE computes Mean Squared Error.
//
// Loss = mean((reconstructed - target)²)
//
// Panics if the shapes differ.
func MSE(reconstructed, target *mat.Dense) float64 {
	r, c := reconstructed.Dims()
	tr, tc := target.Dims()
	if r != tr || c != tc {
		panic(fmt.Sprintf("MSE: reconstructed %dx%d and target %dx%d must have the same shape", r, c, tr, tc))
	}

	var diff mat.Dense
	diff.Sub(reconstructed, target)
	var sum float64
	for i := 0; i < r; i++ {
		row := diff.RawRowView(i)
		sum += floats.Dot(row, row)
	}
	return sum / float64(r*c)
}

// meanAbs returns the mean absolute value of every element.
func meanAbs(m *mat.Dense) float64 {
	r, c := m.Dims()
	var sum float64
	for i := 0; i < r; i++ {
		sum += floats.Norm(m.RawRowView(i), 1)
	}
	return sum / float64(r*c)
}

func relu(m *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 {
		return math.Max(v, 0)
	}, m)
	return &out
}

// SparseL1 computes the sparse autoencoder objective.
//
// The target batch is fed through layers in order; after each layer the
// output is rectified and its mean absolute activation is added to the L1
// term, and the rectified output feeds the next layer:
//
//	values = target
//	for each layer: values = relu(layer(values)); l1 += mean(|values|)
//	loss = MSE(reconstructed, target) + regParam * l1
//
// With validate set the layers are not evaluated and the reconstruction
// loss is returned alone.
func SparseL1(layers []Layer, target, reconstructed *mat.Dense, regParam float64, validate bool) Breakdown {
	mse := MSE(reconstructed, target)
	if validate {
		return Breakdown{Total: mse, Reconstruction: mse}
	}

	var l1 float64
	values := target
	for _, layer := range layers {
		values = relu(layer.Forward(values))
		l1 += meanAbs(values)
	}

	return Breakdown{
		Total:          mse + regParam*l1,
		Reconstruction: mse,
		Regularization: l1,
	}
}

// KLDivergence computes the closed-form KL divergence between the diagonal
// Gaussian N(mu, exp(logVar)) and the standard normal, averaged over the batch:
//
//	mean_batch(-0.5 * sum_latent(1 + logVar - mu² - exp(logVar)))
//
// Panics if the shapes differ.
func KLDivergence(mu, logVar *mat.Dense) float64 {
	r, c := mu.Dims()
	lr, lc := logVar.Dims()
	if r != lr || c != lc {
		panic(fmt.Sprintf("KLDivergence: mu %dx%d and logvar %dx%d must have the same shape", r, c, lr, lc))
	}

	var total float64
	for i := 0; i < r; i++ {
		var row float64
		for j := 0; j < c; j++ {
			m, lv := mu.At(i, j), logVar.At(i, j)
			row += 1 + lv - m*m - math.Exp(lv)
		}
		total += -0.5 * row
	}
	return total / float64(r)
}

// VAE computes the variational autoencoder objective: reconstruction MSE
// plus the KL divergence of the latent distribution.
//
// With validate set the reconstruction loss is returned alone.
func VAE(target, reconstructed, mu, logVar *mat.Dense, validate bool) Breakdown {
	mse := MSE(reconstructed, target)
	if validate {
		return Breakdown{Total: mse, Reconstruction: mse}
	}

	kld := KLDivergence(mu, logVar)
	return Breakdown{
		Total:          mse + kld,
		Reconstruction: mse,
		Regularization: kld,
	}
}
