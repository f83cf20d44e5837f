package model

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Linear implements a fully connected (dense) layer.
//
// Performs the transformation: y = x @ W.T + b
// where:
//   - x is the input with shape [batch_size, in_features]
//   - W is the weight matrix with shape [out_features, in_features]
//   - b is the bias vector with shape [out_features]
//
// Weights and biases are drawn from U(-1/sqrt(in), 1/sqrt(in)), the default
// initialisation of the layers these models were first trained with.
type Linear struct {
	inFeatures  int
	outFeatures int
	weight      *mat.Dense
	bias        *mat.VecDense
}

// NewLinear creates a new Linear layer initialised from rng.
func NewLinear(inFeatures, outFeatures int, rng *rand.Rand) *Linear {
	if inFeatures <= 0 || outFeatures <= 0 {
		panic(fmt.Sprintf("NewLinear: dimensions must be positive, got %d -> %d", inFeatures, outFeatures))
	}

	bound := 1 / math.Sqrt(float64(inFeatures))
	uniform := func() float64 {
		//nolint:gosec // Using math/rand for weight initialization (not security-critical)
		return (rng.Float64()*2 - 1) * bound
	}

	w := make([]float64, outFeatures*inFeatures)
	for i := range w {
		w[i] = uniform()
	}
	b := make([]float64, outFeatures)
	for i := range b {
		b[i] = uniform()
	}

	return &Linear{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      mat.NewDense(outFeatures, inFeatures, w),
		bias:        mat.NewVecDense(outFeatures, b),
	}
}

// NewLinearFrom creates a Linear layer with explicit weights [out, in] and bias [out].
func NewLinearFrom(weight *mat.Dense, bias []float64) *Linear {
	out, in := weight.Dims()
	if len(bias) != out {
		panic(fmt.Sprintf("NewLinearFrom: bias has %d entries, weight has %d rows", len(bias), out))
	}
	return &Linear{
		inFeatures:  in,
		outFeatures: out,
		weight:      mat.DenseCopyOf(weight),
		bias:        mat.NewVecDense(out, append([]float64(nil), bias...)),
	}
}

// Forward computes x @ W.T + b.
func (l *Linear) Forward(input *mat.Dense) *mat.Dense {
	batch, features := input.Dims()
	if features != l.inFeatures {
		panic(fmt.Sprintf("Linear.Forward: expected input with %d features, got %d", l.inFeatures, features))
	}

	var out mat.Dense
	out.Mul(input, l.weight.T())
	for i := 0; i < batch; i++ {
		row := out.RawRowView(i)
		for j := range row {
			row[j] += l.bias.AtVec(j)
		}
	}
	return &out
}

// InFeatures returns the input dimension.
func (l *Linear) InFeatures() int { return l.inFeatures }

// OutFeatures returns the output dimension.
func (l *Linear) OutFeatures() int { return l.outFeatures }

// Weight returns the weight matrix [out_features, in_features].
func (l *Linear) Weight() *mat.Dense { return l.weight }

// Bias returns the bias vector.
func (l *Linear) Bias() *mat.VecDense { return l.bias }
