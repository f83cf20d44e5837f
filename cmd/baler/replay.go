package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/born-ml/baler/internal/config"
	"github.com/born-ml/baler/internal/control"
	"github.com/born-ml/baler/internal/journal"
	"github.com/born-ml/baler/internal/train"
)

func runReplay(args []string) error {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	configPath := fs.String("config", "", "project config YAML (defaults when empty)")
	lossesPath := fs.String("losses", "", "loss curve: one 'val' or 'train,val' per line")
	journalPath := fs.String("journal", "", "SQLite journal (overrides journal_path)")
	earlyStopping := fs.Bool("early-stopping", false, "force early stopping on")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *lossesPath == "" {
		return fmt.Errorf("replay: -losses is required")
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}
	if *earlyStopping {
		cfg.EarlyStopping = true
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if *journalPath != "" {
		cfg.JournalPath = *journalPath
	}

	f, err := os.Open(*lossesPath)
	if err != nil {
		return fmt.Errorf("open losses: %w", err)
	}
	valLosses, trainLosses, err := train.ReadLosses(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", *lossesPath, err)
	}
	if len(valLosses) == 0 {
		return fmt.Errorf("%s: no losses", *lossesPath)
	}

	opts := train.Options{
		Epochs: min(cfg.Epochs, len(valLosses)),
		Logger: logger,
	}
	if cfg.EarlyStopping {
		es := cfg.EarlyStoppingConfig()
		opts.EarlyStopping = &es
	}
	if cfg.LRScheduler {
		pc := cfg.PlateauConfig()
		opts.Plateau = &pc
	}

	var store *journal.Store
	if cfg.JournalPath != "" {
		if store, err = journal.Open(cfg.JournalPath); err != nil {
			return err
		}
		defer store.Close()

		cfgJSON, err := json.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		if opts.RunID, err = store.StartRun(cfg.ModelName, string(cfgJSON)); err != nil {
			return err
		}
		opts.Recorder = store
	}

	loop, err := train.NewLoop(train.NewReplay(valLosses, trainLosses), train.NewRate(cfg.LR), opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	summary, runErr := loop.Run(ctx)
	printSummary(summary, opts)

	if store != nil {
		if err := store.FinishRun(opts.RunID, string(summary.Reason), summary.EpochsRun, summary.BestLoss, summary.FinalLR); err != nil {
			return err
		}
		fmt.Printf("\nJournaled as run %s in %s\n", opts.RunID, cfg.JournalPath)
	}
	return runErr
}

func printSummary(s train.Summary, opts train.Options) {
	fmt.Printf("%-6s %-12s %-12s %-10s %-8s %s\n", "epoch", "train_loss", "val_loss", "lr", "counter", "decision")
	for _, r := range s.History {
		decision := ""
		switch {
		case r.Stopped:
			decision = "stop"
		case r.LRReduced:
			decision = "reduce lr"
		}
		counter := "-"
		if opts.EarlyStopping != nil {
			counter = fmt.Sprintf("%d/%d", r.Counter, opts.EarlyStopping.Patience)
		}
		fmt.Printf("%-6d %-12.6g %-12.6g %-10.3g %-8s %s\n", r.Epoch, r.TrainLoss, r.ValLoss, r.LR, counter, decision)
	}

	fmt.Printf("\nReason: %s after %d epochs\n", s.Reason, s.EpochsRun)
	fmt.Printf("Best validation loss: %.6g\n", s.BestLoss)
	fmt.Printf("Final learning rate: %.3g (%d reductions)\n", s.FinalLR, s.Reductions)
	if opts.Plateau != nil && s.FinalLR <= opts.Plateau.MinLR && opts.Plateau.MinLR > 0 {
		fmt.Printf("Learning rate reached its floor (min_lr=%g, default %g)\n", opts.Plateau.MinLR, control.DefaultMinLR)
	}
}
