package model_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/baler/loss"
	"github.com/born-ml/baler/model"
)

func batch(rng *rand.Rand, rows, cols int) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	return mat.NewDense(rows, cols, data)
}

func TestAutoencoder_SparseObjective(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	arch, err := model.NewArchitecture("george_SAE", 24, 12)
	require.NoError(t, err)

	ae := model.NewAutoencoder(arch, rng)
	x := batch(rng, 8, 24)
	xHat := ae.Forward(x)

	train := loss.SparseL1(ae.Children(), x, xHat, 0.001, false)
	val := loss.SparseL1(ae.Children(), x, xHat, 0.001, true)

	assert.Greater(t, train.Regularization, 0.0)
	assert.InDelta(t, train.Reconstruction+0.001*train.Regularization, train.Total, 1e-12)
	assert.Equal(t, train.Reconstruction, val.Total)
	assert.Equal(t, loss.MSE(xHat, x), val.Total)
}

func TestVAE_Objective(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	arch, err := model.NewArchitecture("VarAutoEnc", 24, 6)
	require.NoError(t, err)

	vae := model.NewVAE(arch, rng)
	vae.SetTraining(false)
	x := batch(rng, 8, 24)
	xHat, mu, logVar := vae.Forward(x)

	b := loss.VAE(x, xHat, mu, logVar, false)
	assert.InDelta(t, loss.KLDivergence(mu, logVar), b.Regularization, 1e-12)
	assert.GreaterOrEqual(t, b.Regularization, 0.0)
}

func TestNewArchitecture_Unknown(t *testing.T) {
	_, err := model.NewArchitecture("transformer", 24, 12)
	assert.True(t, errors.Is(err, model.ErrUnknownModel))
	assert.Contains(t, model.Names(), "george_SAE_Dropout_BN")
}
