package model

import (
	"gonum.org/v1/gonum/mat"
)

// DefaultLeakySlope is the negative slope used by LeakyReLU when none is given.
const DefaultLeakySlope = 0.01

// ReLU is a Rectified Linear Unit activation.
//
// Applies the element-wise function: f(x) = max(0, x)
type ReLU struct{}

// NewReLU creates a new ReLU activation.
func NewReLU() *ReLU {
	return &ReLU{}
}

// Forward applies ReLU activation: f(x) = max(0, x).
func (r *ReLU) Forward(input *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 {
		if v > 0 {
			return v
		}
		return 0
	}, input)
	return &out
}

// LeakyReLU applies f(x) = x for x > 0 and slope*x otherwise.
type LeakyReLU struct {
	slope float64
}

// NewLeakyReLU creates a LeakyReLU with the given negative slope.
//
// A zero slope takes DefaultLeakySlope.
func NewLeakyReLU(slope float64) *LeakyReLU {
	if slope == 0 {
		slope = DefaultLeakySlope
	}
	return &LeakyReLU{slope: slope}
}

// Forward applies the leaky rectifier element-wise.
func (l *LeakyReLU) Forward(input *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 {
		if v > 0 {
			return v
		}
		return l.slope * v
	}, input)
	return &out
}
