package control

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlateauScheduler_Defaults(t *testing.T) {
	s, err := NewPlateauScheduler(PlateauConfig{Patience: 2}, 0.001)
	require.NoError(t, err)

	assert.Equal(t, DefaultFactor, s.factor)
	assert.Equal(t, DefaultMinLR, s.minLR)
	assert.Equal(t, DefaultThreshold, s.threshold)
	assert.Equal(t, 0.001, s.LR())
	assert.True(t, math.IsInf(s.BestLoss(), 1))
}

func TestPlateauScheduler_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config PlateauConfig
		lr     float64
	}{
		{"zero patience", PlateauConfig{Patience: 0}, 0.1},
		{"factor above one", PlateauConfig{Patience: 1, Factor: 1.5}, 0.1},
		{"negative factor", PlateauConfig{Patience: 1, Factor: -0.5}, 0.1},
		{"negative min lr", PlateauConfig{Patience: 1, MinLR: -1}, 0.1},
		{"zero initial lr", PlateauConfig{Patience: 1}, 0},
		{"NaN initial lr", PlateauConfig{Patience: 1}, math.NaN()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewPlateauScheduler(tt.config, tt.lr)
			assert.Nil(t, s)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestPlateauScheduler_DecreasingLossKeepsRate(t *testing.T) {
	s, err := NewPlateauScheduler(PlateauConfig{Patience: 1}, 0.01)
	require.NoError(t, err)

	loss := 10.0
	for i := 0; i < 20; i++ {
		assert.Equal(t, 0.01, s.Step(loss))
		loss *= 0.5
	}
	assert.Equal(t, 0, s.Reductions())
}

func TestPlateauScheduler_FlatLossReducesOnce(t *testing.T) {
	const patience = 3
	s, err := NewPlateauScheduler(PlateauConfig{Patience: patience}, 0.01)
	require.NoError(t, err)

	// Baseline observation.
	require.Equal(t, 0.01, s.Step(1.0))

	for i := 0; i < patience; i++ {
		assert.Equal(t, 0.01, s.Step(1.0), "flat epoch %d", i+1)
	}

	assert.InDelta(t, 0.005, s.Step(1.0), 1e-15)
	assert.Equal(t, 1, s.Reductions())
	assert.Equal(t, 0, s.BadEpochs())

	// Counter restarted: the next patience flat epochs keep the reduced rate.
	for i := 0; i < patience; i++ {
		assert.InDelta(t, 0.005, s.Step(1.0), 1e-15)
	}
	assert.Equal(t, 1, s.Reductions())
}

func TestPlateauScheduler_NeverBelowMinLR(t *testing.T) {
	s, err := NewPlateauScheduler(PlateauConfig{Patience: 1, Factor: 0.1, MinLR: 1e-4}, 0.01)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		lr := s.Step(1.0)
		assert.GreaterOrEqual(t, lr, 1e-4)
	}
	assert.InDelta(t, 1e-4, s.LR(), 1e-18)
	assert.Equal(t, 2, s.Reductions())
}

func TestPlateauScheduler_SmallImprovementIsPlateau(t *testing.T) {
	s, err := NewPlateauScheduler(PlateauConfig{Patience: 1}, 0.1)
	require.NoError(t, err)

	s.Step(1.0)
	s.Step(0.99995) // within the relative threshold
	assert.Equal(t, 1, s.BadEpochs())
	assert.Equal(t, 1.0, s.BestLoss())

	s.Step(0.5)
	assert.Equal(t, 0, s.BadEpochs())
	assert.Equal(t, 0.5, s.BestLoss())
}

func TestPlateauScheduler_NaNNeverImproves(t *testing.T) {
	s, err := NewPlateauScheduler(PlateauConfig{Patience: 1}, 0.1)
	require.NoError(t, err)

	s.Step(1.0)
	s.Step(math.NaN())
	lr := s.Step(math.NaN())

	assert.InDelta(t, 0.05, lr, 1e-15)
	assert.Equal(t, 1.0, s.BestLoss())
}

func TestPlateauScheduler_FactorOneNeverReduces(t *testing.T) {
	s, err := NewPlateauScheduler(PlateauConfig{Patience: 1, Factor: 1}, 0.1)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		s.Step(1.0)
	}
	assert.Equal(t, 0.1, s.LR())
	assert.Equal(t, 0, s.Reductions())
}
