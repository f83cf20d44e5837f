package model

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Dropout zeroes elements with probability p during training and scales the
// survivors by 1/(1-p). In evaluation mode it is the identity.
type Dropout struct {
	p        float64
	rng      *rand.Rand
	training bool
}

// NewDropout creates a Dropout layer with drop probability p in [0, 1).
func NewDropout(p float64, rng *rand.Rand) *Dropout {
	if p < 0 || p >= 1 {
		panic(fmt.Sprintf("NewDropout: probability must be in [0, 1), got %g", p))
	}
	return &Dropout{p: p, rng: rng}
}

// SetTraining enables or disables dropping.
func (d *Dropout) SetTraining(training bool) {
	d.training = training
}

// Forward applies dropout.
func (d *Dropout) Forward(input *mat.Dense) *mat.Dense {
	out := mat.DenseCopyOf(input)
	if !d.training || d.p == 0 {
		return out
	}

	keep := 1 / (1 - d.p)
	out.Apply(func(_, _ int, v float64) float64 {
		if d.rng.Float64() < d.p {
			return 0
		}
		return v * keep
	}, out)
	return out
}
