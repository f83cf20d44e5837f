// Package main provides the baler CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
)

const version = "v0.0.1-dev"

func usage() {
	fmt.Println("baler - autoencoder compression for tabular physics data")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("  arch       Print the architecture a project config builds")
	fmt.Println("  replay     Run a recorded loss curve through early stopping and the LR scheduler")
	fmt.Println("  inspect    List journaled runs and their epochs")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("baler %s\n", version)
		return
	case "arch":
		err = runArch(os.Args[2:])
	case "replay":
		err = runReplay(os.Args[2:])
	case "inspect":
		err = runInspect(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		slog.Error("command failed", "command", os.Args[1], "err", err)
		os.Exit(1)
	}
}
