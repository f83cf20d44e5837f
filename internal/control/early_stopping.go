// Package control implements the training-control policies that sit next to
// an epoch loop: early stopping and learning-rate reduction on plateau.
//
// Both policies consume one validation loss per epoch and return a decision.
// They do no I/O and never touch the optimizer; the caller applies the
// decision.
//
// Example usage:
//
//	stopper, err := control.NewEarlyStopping(control.EarlyStoppingConfig{
//	    Patience: 20,
//	    MinDelta: 0,
//	})
//	scheduler, err := control.NewPlateauScheduler(control.PlateauConfig{
//	    Patience: 20,
//	}, cfg.LR)
//
//	for epoch := range epochs {
//	    valLoss := validate(model)
//	    optimizer.SetLR(scheduler.Step(valLoss))
//	    if stopper.Step(valLoss) {
//	        break
//	    }
//	}
package control

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// recentWindow is the number of trailing observations inspected when
// measuring how far the loss has wandered above its best value.
const recentWindow = 5

// EarlyStoppingConfig holds configuration for EarlyStopping.
type EarlyStoppingConfig struct {
	Patience int     // Consecutive non-improving epochs tolerated (must be > 0)
	MinDelta float64 // Minimum absolute improvement over the best loss (must be >= 0)
}

// Validate reports whether the configuration can drive a policy.
func (c EarlyStoppingConfig) Validate() error {
	if c.Patience <= 0 {
		return fmt.Errorf("%w: early stopping patience must be positive, got %d", ErrInvalidConfig, c.Patience)
	}
	if c.MinDelta < 0 || math.IsNaN(c.MinDelta) || math.IsInf(c.MinDelta, 0) {
		return fmt.Errorf("%w: early stopping min_delta must be finite and >= 0, got %g", ErrInvalidConfig, c.MinDelta)
	}
	return nil
}

// EarlyStopping decides when training should halt because validation loss
// has stopped improving.
//
// Every call after the first compares the new loss against the best loss
// seen so far. A drop of more than MinDelta resets the counter. A drop of
// less than MinDelta, an exact tie with the best loss, or a recent window
// that never climbed 5*MinDelta above the best loss counts as a stalled
// epoch. A drop of exactly MinDelta with a lively window leaves the counter
// alone. Once Patience stalled epochs accumulate the policy latches into the
// stopped state and stays there.
//
// Non-finite losses (NaN, ±Inf) are recorded as +Inf so a diverged run
// still counts towards stopping.
type EarlyStopping struct {
	patience    int
	minDelta    float64
	history     []float64
	best        float64
	worstRecent float64
	counter     int
	stopped     bool
}

// NewEarlyStopping creates an early stopping policy.
//
// Returns an error wrapping ErrInvalidConfig if Patience is not positive or
// MinDelta is negative.
func NewEarlyStopping(config EarlyStoppingConfig) (*EarlyStopping, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &EarlyStopping{
		patience:    config.Patience,
		minDelta:    config.MinDelta,
		worstRecent: math.NaN(),
	}, nil
}

// Step records one validation loss and returns whether training should stop.
func (e *EarlyStopping) Step(valLoss float64) bool {
	if math.IsNaN(valLoss) || math.IsInf(valLoss, 0) {
		valLoss = math.Inf(1)
	}

	if len(e.history) == 0 {
		e.best = valLoss
		e.history = append(e.history, valLoss)
		return e.stopped
	}

	e.best = floats.Min(e.history)
	if len(e.history) > recentWindow {
		e.worstRecent = floats.Max(e.history[len(e.history)-recentWindow:])
	} else {
		// Too little history: pick a value that keeps the window test quiet.
		e.worstRecent = e.best + 6*e.minDelta
	}
	e.history = append(e.history, valLoss)

	gain := e.best - valLoss
	switch {
	case gain > e.minDelta:
		e.best = valLoss
		e.counter = 0
	case math.IsInf(valLoss, 1), gain < e.minDelta, gain == 0, e.worstRecent-e.best < 5*e.minDelta:
		e.counter++
		if e.counter >= e.patience {
			e.stopped = true
		}
	}

	// A sub-threshold drop is still the lowest loss on record.
	if valLoss < e.best {
		e.best = valLoss
	}

	return e.stopped
}

// Stopped reports whether the policy has latched into the stopped state.
func (e *EarlyStopping) Stopped() bool {
	return e.stopped
}

// Counter returns the number of consecutive stalled epochs.
func (e *EarlyStopping) Counter() int {
	return e.counter
}

// Patience returns the configured patience.
func (e *EarlyStopping) Patience() int {
	return e.patience
}

// BestLoss returns the minimum loss observed so far.
//
// Returns +Inf before the first observation.
func (e *EarlyStopping) BestLoss() float64 {
	if len(e.history) == 0 {
		return math.Inf(1)
	}
	return e.best
}

// WorstRecent returns the worst-of-window value computed on the last Step.
//
// Before the window fills this is the placeholder best + 6*MinDelta, and
// before the second Step it is NaN.
func (e *EarlyStopping) WorstRecent() float64 {
	return e.worstRecent
}

// History returns a copy of every observation recorded so far.
func (e *EarlyStopping) History() []float64 {
	out := make([]float64, len(e.history))
	copy(out, e.history)
	return out
}
