package main

import (
	"flag"
	"fmt"

	"github.com/born-ml/baler/internal/config"
	"github.com/born-ml/baler/internal/model"
)

func runArch(args []string) error {
	fs := flag.NewFlagSet("arch", flag.ExitOnError)
	configPath := fs.String("config", "", "project config YAML (defaults when empty)")
	features := fs.Int("features", 24, "number of input columns")
	modelName := fs.String("model", "", "override model_name from the config")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}
	if *modelName != "" {
		cfg.ModelName = *modelName
	}

	arch, err := model.NewArchitecture(cfg.ModelName, *features, cfg.LatentDim(*features))
	if err != nil {
		return err
	}
	fmt.Print(arch.String())
	fmt.Println("project:")
	fmt.Print(cfg.Describe())
	return nil
}
