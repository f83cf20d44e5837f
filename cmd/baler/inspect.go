package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/born-ml/baler/internal/journal"
)

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	dbPath := fs.String("journal", "", "path to the SQLite journal")
	last := fs.Int("last", 20, "show N most recent runs")
	runID := fs.String("run", "", "show the epochs of a single run")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: baler inspect -journal path/to/journal.db [-last N] [-run id]")
		os.Exit(2)
	}

	store, err := journal.Open(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if *runID != "" {
		return inspectRun(store, *runID)
	}
	return listRuns(store, *last)
}

func listRuns(store *journal.Store, last int) error {
	runs, err := store.ListRuns(last)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "no runs found")
		return nil
	}
	fmt.Printf("%-36s  %-22s  %-11s  %6s  %-10s  %s\n", "run", "model", "reason", "epochs", "best_loss", "started")
	for _, r := range runs {
		fmt.Printf("%-36s  %-22s  %-11s  %6d  %-10.4g  %s\n",
			r.RunID, r.ModelName, r.StopReason, r.EpochsRun, r.BestLoss, r.StartedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func inspectRun(store *journal.Store, runID string) error {
	run, err := store.GetRun(runID)
	if err != nil {
		return err
	}
	epochs, err := store.Epochs(runID)
	if err != nil {
		return err
	}
	fmt.Printf("Run %s (%s): %s after %d epochs, final lr %.3g\n\n",
		run.RunID, run.ModelName, run.StopReason, run.EpochsRun, run.FinalLR)
	fmt.Printf("%-6s %-12s %-12s %-10s %-8s %-12s %s\n", "epoch", "train_loss", "val_loss", "lr", "counter", "worst_recent", "flags")
	for _, e := range epochs {
		flags := ""
		if e.LRReduced {
			flags += "lr-reduced "
		}
		if e.Stopped {
			flags += "stopped"
		}
		fmt.Printf("%-6d %-12.6g %-12.6g %-10.3g %-8d %-12.6g %s\n",
			e.Epoch, e.TrainLoss, e.ValLoss, e.LR, e.Counter, e.WorstRecent, flags)
	}
	return nil
}
