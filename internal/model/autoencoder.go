package model

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

func buildStack(specs []LayerSpec, rng *rand.Rand) *Sequential {
	seq := NewSequential()
	for _, s := range specs {
		for _, l := range s.build(rng) {
			seq.Add(l)
		}
	}
	return seq
}

// Autoencoder is a plain (sparse) autoencoder: encoder then decoder.
type Autoencoder struct {
	arch    Architecture
	encoder *Sequential
	decoder *Sequential
}

// NewAutoencoder builds a non-variational architecture.
//
// Panics if arch is variational; use NewVAE for those.
func NewAutoencoder(arch Architecture, rng *rand.Rand) *Autoencoder {
	if arch.Variational {
		panic(fmt.Sprintf("NewAutoencoder: %s is variational, use NewVAE", arch.Name))
	}
	return &Autoencoder{
		arch:    arch,
		encoder: buildStack(arch.Encoder, rng),
		decoder: buildStack(arch.Decoder, rng),
	}
}

// Encode compresses x [batch, features] to [batch, latent].
func (a *Autoencoder) Encode(x *mat.Dense) *mat.Dense {
	return a.encoder.Forward(x)
}

// Decode expands z [batch, latent] back to [batch, features].
func (a *Autoencoder) Decode(z *mat.Dense) *mat.Dense {
	return a.decoder.Forward(z)
}

// Forward reconstructs x.
func (a *Autoencoder) Forward(x *mat.Dense) *mat.Dense {
	return a.Decode(a.Encode(x))
}

// SetTraining switches dropout and batch norm between training and evaluation.
func (a *Autoencoder) SetTraining(training bool) {
	a.encoder.SetTraining(training)
	a.decoder.SetTraining(training)
}

// Architecture returns the description the model was built from.
func (a *Autoencoder) Architecture() Architecture {
	return a.arch
}

// Children returns the sub-modules the sparse L1 penalty walks, in order.
//
// Layer-wise models return the linear layers of the encoder followed by the
// decoder. Blockwise models return the encoder and decoder themselves.
func (a *Autoencoder) Children() []Layer {
	if a.arch.Blockwise {
		return []Layer{a.encoder, a.decoder}
	}
	var out []Layer
	for _, l := range a.encoder.Linears() {
		out = append(out, l)
	}
	for _, l := range a.decoder.Linears() {
		out = append(out, l)
	}
	return out
}

// VAE is a variational autoencoder with mean and log-variance heads.
type VAE struct {
	arch     Architecture
	body     *Sequential
	mu       *Linear
	logVar   *Linear
	decoder  *Sequential
	rng      *rand.Rand
	training bool
}

// NewVAE builds a variational architecture.
//
// The rng initialises weights and, in training mode, draws the
// reparameterisation noise.
func NewVAE(arch Architecture, rng *rand.Rand) *VAE {
	if !arch.Variational {
		panic(fmt.Sprintf("NewVAE: %s is not variational", arch.Name))
	}
	return &VAE{
		arch:    arch,
		body:    buildStack(arch.Encoder, rng),
		mu:      NewLinear(arch.Mu.In, arch.Mu.Out, rng),
		logVar:  NewLinear(arch.LogVar.In, arch.LogVar.Out, rng),
		decoder: buildStack(arch.Decoder, rng),
		rng:     rng,
	}
}

// Encode returns the latent mean and log-variance for x.
func (v *VAE) Encode(x *mat.Dense) (mu, logVar *mat.Dense) {
	h := v.body.Forward(x)
	return v.mu.Forward(h), v.logVar.Forward(h)
}

// Reparameterise samples z = mu + eps*exp(logVar/2) in training mode and
// returns mu unchanged in evaluation mode.
func (v *VAE) Reparameterise(mu, logVar *mat.Dense) *mat.Dense {
	if !v.training {
		return mat.DenseCopyOf(mu)
	}
	var z mat.Dense
	z.Apply(func(i, j int, m float64) float64 {
		std := math.Exp(0.5 * logVar.At(i, j))
		return m + v.rng.NormFloat64()*std
	}, mu)
	return &z
}

// Decode expands z back to feature space.
func (v *VAE) Decode(z *mat.Dense) *mat.Dense {
	return v.decoder.Forward(z)
}

// Forward returns the reconstruction together with the latent statistics.
func (v *VAE) Forward(x *mat.Dense) (reconstructed, mu, logVar *mat.Dense) {
	mu, logVar = v.Encode(x)
	return v.Decode(v.Reparameterise(mu, logVar)), mu, logVar
}

// SetTraining switches sampling, dropout and batch norm modes.
func (v *VAE) SetTraining(training bool) {
	v.training = training
	v.body.SetTraining(training)
	v.decoder.SetTraining(training)
}

// Architecture returns the description the model was built from.
func (v *VAE) Architecture() Architecture {
	return v.arch
}
