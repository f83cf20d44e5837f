package control_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/baler/control"
)

// Both policies driven side by side the way an epoch loop uses them.
func TestPolicies_TogetherOnFlatLoss(t *testing.T) {
	stopper, err := control.NewEarlyStopping(control.EarlyStoppingConfig{Patience: 4})
	require.NoError(t, err)
	scheduler, err := control.NewPlateauScheduler(control.PlateauConfig{Patience: 2}, 0.01)
	require.NoError(t, err)

	lr := 0.01
	stoppedAt := 0
	for epoch := 1; epoch <= 10; epoch++ {
		lr = scheduler.Step(0.3)
		if stopper.Step(0.3) {
			stoppedAt = epoch
			break
		}
	}

	assert.Equal(t, 5, stoppedAt)
	assert.InDelta(t, 0.005, lr, 1e-15)
	assert.Equal(t, 1, scheduler.Reductions())
}

func TestConstructors_RejectInvalidConfig(t *testing.T) {
	_, err := control.NewEarlyStopping(control.EarlyStoppingConfig{Patience: -1})
	assert.True(t, errors.Is(err, control.ErrInvalidConfig))

	_, err = control.NewPlateauScheduler(control.PlateauConfig{Patience: 1, Factor: 2}, 0.1)
	assert.True(t, errors.Is(err, control.ErrInvalidConfig))
}
