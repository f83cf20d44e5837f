// Package train drives the epoch loop of an autoencoder run and applies the
// training-control policies to it.
package train

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/born-ml/baler/internal/control"
	"github.com/born-ml/baler/internal/journal"
)

// StopReason says why a run ended.
type StopReason string

// Stop reasons.
const (
	StopCompleted StopReason = "completed"
	StopEarly     StopReason = "early_stop"
	StopCanceled  StopReason = "canceled"
	StopFailed    StopReason = "failed"
)

// Evaluator runs the model side of one epoch.
type Evaluator interface {
	// TrainEpoch fits the model on the training split at the given rate and
	// returns the mean training loss.
	TrainEpoch(ctx context.Context, epoch int, lr float64) (float64, error)

	// Validate returns the validation loss on the held-out split.
	Validate(ctx context.Context, epoch int) (float64, error)
}

// RateSetter is the optimizer side: anything whose learning rate can be
// read and replaced.
type RateSetter interface {
	GetLR() float64
	SetLR(lr float64)
}

// Recorder receives one record per epoch. *journal.Store satisfies it.
type Recorder interface {
	RecordEpoch(e journal.Epoch) error
}

// Options configures a Loop.
type Options struct {
	Epochs int

	// EarlyStopping enables the early stopping policy when non-nil.
	EarlyStopping *control.EarlyStoppingConfig

	// Plateau enables learning-rate reduction when non-nil.
	Plateau *control.PlateauConfig

	// Recorder and RunID are optional; records are written only when both are set.
	Recorder Recorder
	RunID    string

	Logger *slog.Logger
}

// EpochResult is the outcome of one epoch.
type EpochResult struct {
	Epoch       int
	TrainLoss   float64
	ValLoss     float64
	LR          float64
	Counter     int
	WorstRecent float64
	Stopped     bool
	LRReduced   bool
}

// Summary is the outcome of a run.
type Summary struct {
	Reason     StopReason
	EpochsRun  int
	BestLoss   float64
	FinalLR    float64
	Reductions int
	History    []EpochResult
}

// Loop runs epochs until the epoch budget is spent, early stopping fires,
// the context is canceled, or the evaluator fails.
type Loop struct {
	opts      Options
	eval      Evaluator
	optimizer RateSetter
	stopper   *control.EarlyStopping
	scheduler *control.PlateauScheduler
	log       *slog.Logger
}

// NewLoop validates options and builds the enabled policies.
//
// The plateau scheduler starts from optimizer.GetLR().
func NewLoop(eval Evaluator, optimizer RateSetter, opts Options) (*Loop, error) {
	if opts.Epochs <= 0 {
		return nil, fmt.Errorf("%w: epochs must be positive, got %d", control.ErrInvalidConfig, opts.Epochs)
	}

	l := &Loop{
		opts:      opts,
		eval:      eval,
		optimizer: optimizer,
		log:       opts.Logger,
	}
	if l.log == nil {
		l.log = slog.Default()
	}

	if opts.EarlyStopping != nil {
		stopper, err := control.NewEarlyStopping(*opts.EarlyStopping)
		if err != nil {
			return nil, fmt.Errorf("early stopping: %w", err)
		}
		l.stopper = stopper
	}
	if opts.Plateau != nil {
		scheduler, err := control.NewPlateauScheduler(*opts.Plateau, optimizer.GetLR())
		if err != nil {
			return nil, fmt.Errorf("lr scheduler: %w", err)
		}
		l.scheduler = scheduler
	}
	return l, nil
}

// Run executes the loop.
//
// The returned Summary is valid even when an error is returned; it covers
// the epochs that completed.
func (l *Loop) Run(ctx context.Context) (Summary, error) {
	summary := Summary{Reason: StopCompleted, BestLoss: math.Inf(1)}

	for epoch := 1; epoch <= l.opts.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			summary.Reason = StopCanceled
			return l.finish(summary), err
		}

		res, err := l.runEpoch(ctx, epoch)
		if err != nil {
			summary.Reason = StopFailed
			return l.finish(summary), err
		}

		summary.History = append(summary.History, res)
		summary.EpochsRun = epoch
		if res.ValLoss < summary.BestLoss {
			summary.BestLoss = res.ValLoss
		}

		if res.Stopped {
			l.log.Info("early stopping",
				"epoch", epoch,
				"counter", res.Counter,
				"best_loss", summary.BestLoss,
			)
			summary.Reason = StopEarly
			break
		}
	}

	return l.finish(summary), nil
}

func (l *Loop) finish(s Summary) Summary {
	s.FinalLR = l.optimizer.GetLR()
	if l.scheduler != nil {
		s.Reductions = l.scheduler.Reductions()
	}
	return s
}

func (l *Loop) runEpoch(ctx context.Context, epoch int) (EpochResult, error) {
	lr := l.optimizer.GetLR()
	trainLoss, err := l.eval.TrainEpoch(ctx, epoch, lr)
	if err != nil {
		return EpochResult{}, fmt.Errorf("epoch %d: train: %w", epoch, err)
	}
	valLoss, err := l.eval.Validate(ctx, epoch)
	if err != nil {
		return EpochResult{}, fmt.Errorf("epoch %d: validate: %w", epoch, err)
	}

	res := EpochResult{
		Epoch:       epoch,
		TrainLoss:   trainLoss,
		ValLoss:     valLoss,
		LR:          lr,
		WorstRecent: math.NaN(),
	}

	l.log.Debug("epoch finished",
		"epoch", epoch,
		"train_loss", trainLoss,
		"val_loss", valLoss,
		"lr", lr,
	)

	if l.scheduler != nil {
		newLR := l.scheduler.Step(valLoss)
		if newLR != lr {
			l.log.Info("reducing learning rate",
				"epoch", epoch,
				"from", lr,
				"to", newLR,
			)
			l.optimizer.SetLR(newLR)
			res.LRReduced = true
		}
	}

	if l.stopper != nil {
		prev := l.stopper.Counter()
		res.Stopped = l.stopper.Step(valLoss)
		res.Counter = l.stopper.Counter()
		res.WorstRecent = l.stopper.WorstRecent()
		if res.Counter > prev {
			l.log.Info("early stopping counter",
				"epoch", epoch,
				"counter", res.Counter,
				"patience", l.stopper.Patience(),
			)
		}
	}

	if l.opts.Recorder != nil && l.opts.RunID != "" {
		if err := l.opts.Recorder.RecordEpoch(journal.Epoch{
			RunID:       l.opts.RunID,
			Epoch:       epoch,
			TrainLoss:   trainLoss,
			ValLoss:     valLoss,
			LR:          lr,
			Counter:     res.Counter,
			WorstRecent: res.WorstRecent,
			Stopped:     res.Stopped,
			LRReduced:   res.LRReduced,
		}); err != nil {
			return EpochResult{}, fmt.Errorf("epoch %d: %w", epoch, err)
		}
	}

	return res, nil
}
