package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// BatchNorm1d defaults.
const (
	batchNormEps      = 1e-5
	batchNormMomentum = 0.1
)

// BatchNorm1d normalizes every feature column over the batch.
//
// In training mode each column is normalized with the batch mean and biased
// variance, and the running statistics are updated with momentum 0.1 using
// the unbiased variance. In evaluation mode the running statistics are used.
// The affine parameters start at gamma=1, beta=0.
type BatchNorm1d struct {
	features    int
	gamma       []float64
	beta        []float64
	runningMean []float64
	runningVar  []float64
	training    bool
}

// NewBatchNorm1d creates a batch normalization layer over the given number of features.
func NewBatchNorm1d(features int) *BatchNorm1d {
	bn := &BatchNorm1d{
		features:    features,
		gamma:       make([]float64, features),
		beta:        make([]float64, features),
		runningMean: make([]float64, features),
		runningVar:  make([]float64, features),
	}
	for i := 0; i < features; i++ {
		bn.gamma[i] = 1
		bn.runningVar[i] = 1
	}
	return bn
}

// SetTraining switches between batch and running statistics.
func (b *BatchNorm1d) SetTraining(training bool) {
	b.training = training
}

// Forward normalizes the input column-wise. Wide inputs are split across
// goroutines by column.
func (b *BatchNorm1d) Forward(input *mat.Dense) *mat.Dense {
	batch, features := input.Dims()
	if features != b.features {
		panic(fmt.Sprintf("BatchNorm1d.Forward: expected %d features, got %d", b.features, features))
	}
	if b.training && batch < 2 {
		panic("BatchNorm1d.Forward: training mode needs more than one sample per batch")
	}

	out := mat.NewDense(batch, features, nil)
	forColumns(features, func(j int) {
		col := mat.Col(nil, j, input)

		mean, variance := b.runningMean[j], b.runningVar[j]
		if b.training {
			var unbiased float64
			mean, unbiased = stat.MeanVariance(col, nil)
			variance = unbiased * float64(batch-1) / float64(batch)
			b.runningMean[j] = (1-batchNormMomentum)*b.runningMean[j] + batchNormMomentum*mean
			b.runningVar[j] = (1-batchNormMomentum)*b.runningVar[j] + batchNormMomentum*unbiased
		}

		scale := b.gamma[j] / math.Sqrt(variance+batchNormEps)
		for i, v := range col {
			out.Set(i, j, (v-mean)*scale+b.beta[j])
		}
	})
	return out
}

// RunningMean returns the running mean per feature.
func (b *BatchNorm1d) RunningMean() []float64 {
	return append([]float64(nil), b.runningMean...)
}

// RunningVar returns the running variance per feature.
func (b *BatchNorm1d) RunningVar() []float64 {
	return append([]float64(nil), b.runningVar...)
}
