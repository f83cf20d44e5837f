package control

import (
	"fmt"
	"math"
)

// Plateau scheduler defaults.
const (
	DefaultFactor    = 0.5
	DefaultMinLR     = 1e-6
	DefaultThreshold = 1e-4

	// lrEpsilon is the smallest rate change worth applying.
	lrEpsilon = 1e-8
)

// PlateauConfig holds configuration for PlateauScheduler.
type PlateauConfig struct {
	Patience  int     // Non-improving epochs tolerated before a reduction (must be > 0)
	Factor    float64 // Multiplier applied on reduction (default: 0.5, range: (0, 1])
	MinLR     float64 // Floor for the learning rate (default: 1e-6, must be > 0)
	Threshold float64 // Relative improvement required over the best loss (default: 1e-4)
}

// withDefaults fills zero fields.
func (c PlateauConfig) withDefaults() PlateauConfig {
	if c.Factor == 0 {
		c.Factor = DefaultFactor
	}
	if c.MinLR == 0 {
		c.MinLR = DefaultMinLR
	}
	if c.Threshold == 0 {
		c.Threshold = DefaultThreshold
	}
	return c
}

// Validate reports whether the configuration (after defaults) can drive a scheduler.
func (c PlateauConfig) Validate() error {
	c = c.withDefaults()
	if c.Patience <= 0 {
		return fmt.Errorf("%w: plateau patience must be positive, got %d", ErrInvalidConfig, c.Patience)
	}
	if !(c.Factor > 0 && c.Factor <= 1) {
		return fmt.Errorf("%w: plateau factor must be in (0, 1], got %g", ErrInvalidConfig, c.Factor)
	}
	if !(c.MinLR > 0) || math.IsInf(c.MinLR, 0) {
		return fmt.Errorf("%w: min_lr must be positive and finite, got %g", ErrInvalidConfig, c.MinLR)
	}
	if !(c.Threshold > 0 && c.Threshold < 1) {
		return fmt.Errorf("%w: plateau threshold must be in (0, 1), got %g", ErrInvalidConfig, c.Threshold)
	}
	return nil
}

// PlateauScheduler reduces the learning rate when validation loss stops
// improving.
//
// A loss improves when it is below best*(1-Threshold). After more than
// Patience epochs without improvement the rate is multiplied by Factor,
// floored at MinLR, and the bad-epoch counter resets.
//
// The scheduler only reports rates; the caller applies them to its optimizer:
//
//	optimizer.SetLR(scheduler.Step(valLoss))
type PlateauScheduler struct {
	patience   int
	factor     float64
	minLR      float64
	threshold  float64
	lr         float64
	best       float64
	badEpochs  int
	reductions int
}

// NewPlateauScheduler creates a plateau scheduler starting at initialLR.
//
// Zero Factor, MinLR and Threshold take their defaults. Returns an error
// wrapping ErrInvalidConfig for out-of-range settings or a non-positive
// initial rate.
func NewPlateauScheduler(config PlateauConfig, initialLR float64) (*PlateauScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if !(initialLR > 0) || math.IsInf(initialLR, 0) {
		return nil, fmt.Errorf("%w: initial learning rate must be positive and finite, got %g", ErrInvalidConfig, initialLR)
	}
	config = config.withDefaults()

	return &PlateauScheduler{
		patience:  config.Patience,
		factor:    config.Factor,
		minLR:     config.MinLR,
		threshold: config.Threshold,
		lr:        initialLR,
		best:      math.Inf(1),
	}, nil
}

// Step records one validation loss and returns the learning rate to use next.
func (s *PlateauScheduler) Step(valLoss float64) float64 {
	// NaN compares false and so never improves.
	if valLoss < s.best*(1-s.threshold) {
		s.best = valLoss
		s.badEpochs = 0
	} else {
		s.badEpochs++
	}

	if s.badEpochs > s.patience {
		s.reduce()
		s.badEpochs = 0
	}

	return s.lr
}

func (s *PlateauScheduler) reduce() {
	newLR := math.Max(s.lr*s.factor, s.minLR)
	if s.lr-newLR > lrEpsilon {
		s.lr = newLR
		s.reductions++
	}
}

// LR returns the current learning rate.
func (s *PlateauScheduler) LR() float64 {
	return s.lr
}

// BadEpochs returns the number of epochs since the last improvement or reduction.
func (s *PlateauScheduler) BadEpochs() int {
	return s.badEpochs
}

// Reductions returns how many times the rate has been reduced.
func (s *PlateauScheduler) Reductions() int {
	return s.reductions
}

// BestLoss returns the best loss seen, or +Inf before any improvement.
func (s *PlateauScheduler) BestLoss() float64 {
	return s.best
}
