// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package control provides the training-control policies for autoencoder
// training: early stopping and learning-rate reduction on plateau.
//
// # Basic Usage
//
//	stopper, err := control.NewEarlyStopping(control.EarlyStoppingConfig{
//	    Patience: 20,
//	    MinDelta: 0,
//	})
//	if err != nil {
//	    return err
//	}
//	scheduler, err := control.NewPlateauScheduler(control.PlateauConfig{
//	    Patience: 20,
//	}, 0.001)
//	if err != nil {
//	    return err
//	}
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
	"github.com/born-ml/baler/internal/control"
)

// ErrInvalidConfig is wrapped by every constructor validation failure.
var ErrInvalidConfig = control.ErrInvalidConfig

// Plateau scheduler defaults.
const (
	DefaultFactor    = control.DefaultFactor
	DefaultMinLR     = control.DefaultMinLR
	DefaultThreshold = control.DefaultThreshold
)

// Early stopping

// EarlyStopping decides when training should halt.
type EarlyStopping = control.EarlyStopping

// EarlyStoppingConfig contains configuration for EarlyStopping.
type EarlyStoppingConfig = control.EarlyStoppingConfig

// NewEarlyStopping creates an early stopping policy.
//
// Example:
//
//	stopper, err := control.NewEarlyStopping(control.EarlyStoppingConfig{
//	    Patience: 3,
//	    MinDelta: 0.01,
//	})
func NewEarlyStopping(config EarlyStoppingConfig) (*EarlyStopping, error) {
	return control.NewEarlyStopping(config)
}

// Reduce on plateau

// PlateauScheduler reduces the learning rate when validation loss plateaus.
type PlateauScheduler = control.PlateauScheduler

// PlateauConfig contains configuration for PlateauScheduler.
type PlateauConfig = control.PlateauConfig

// NewPlateauScheduler creates a plateau scheduler starting at initialLR.
//
// Example:
//
//	scheduler, err := control.NewPlateauScheduler(control.PlateauConfig{
//	    Patience: 20,
//	    Factor:   0.5,
//	    MinLR:    1e-6,
//	}, 0.001)
func NewPlateauScheduler(config PlateauConfig, initialLR float64) (*PlateauScheduler, error) {
	return control.NewPlateauScheduler(config, initialLR)
}
