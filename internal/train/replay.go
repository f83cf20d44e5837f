package train

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Replay is an Evaluator that plays back recorded losses, one per epoch.
//
// It lets the control policies be exercised against the loss curve of a
// past run without the model.
type Replay struct {
	trainLosses []float64
	valLosses   []float64
	rates       []float64
}

// NewReplay creates a replay of validation losses. Training losses may be
// nil, in which case NaN is reported for them.
func NewReplay(valLosses, trainLosses []float64) *Replay {
	return &Replay{valLosses: valLosses, trainLosses: trainLosses}
}

// Len returns the number of recorded epochs.
func (r *Replay) Len() int {
	return len(r.valLosses)
}

// Rates returns the learning rate seen at each replayed epoch.
func (r *Replay) Rates() []float64 {
	return r.rates
}

// TrainEpoch records the rate and returns the recorded training loss.
func (r *Replay) TrainEpoch(_ context.Context, epoch int, lr float64) (float64, error) {
	if epoch < 1 || epoch > len(r.valLosses) {
		return 0, fmt.Errorf("replay has %d epochs, asked for %d", len(r.valLosses), epoch)
	}
	r.rates = append(r.rates, lr)
	if epoch > len(r.trainLosses) {
		return math.NaN(), nil
	}
	return r.trainLosses[epoch-1], nil
}

// Validate returns the recorded validation loss.
func (r *Replay) Validate(_ context.Context, epoch int) (float64, error) {
	if epoch < 1 || epoch > len(r.valLosses) {
		return 0, fmt.Errorf("replay has %d epochs, asked for %d", len(r.valLosses), epoch)
	}
	return r.valLosses[epoch-1], nil
}

// ReadLosses parses a loss curve: one epoch per record, either a single
// validation loss or "train,val". Blank lines and lines starting with '#'
// are skipped.
func ReadLosses(rd io.Reader) (val, train []float64, err error) {
	cr := csv.NewReader(rd)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read losses: %w", err)
		}
		line, _ := cr.FieldPos(0)

		parsed := make([]float64, 0, 2)
		for _, f := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: %w", line, err)
			}
			parsed = append(parsed, v)
		}

		switch len(parsed) {
		case 1:
			val = append(val, parsed[0])
		case 2:
			train = append(train, parsed[0])
			val = append(val, parsed[1])
		default:
			return nil, nil, fmt.Errorf("line %d: want 1 or 2 values, got %d", line, len(parsed))
		}
	}
	if len(train) != 0 && len(train) != len(val) {
		return nil, nil, fmt.Errorf("mixed line formats: %d training losses for %d epochs", len(train), len(val))
	}
	return val, train, nil
}

// Rate is a bare learning-rate holder for callers without an optimizer.
type Rate struct {
	lr float64
}

// NewRate creates a Rate starting at lr.
func NewRate(lr float64) *Rate {
	return &Rate{lr: lr}
}

// GetLR returns the current rate.
func (r *Rate) GetLR() float64 { return r.lr }

// SetLR replaces the current rate.
func (r *Rate) SetLR(lr float64) { r.lr = lr }
