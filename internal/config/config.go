// Package config loads per-project training configuration from YAML.
//
// A project file looks like:
//
//	input_path: data/aditya/aditya.pickle
//	path_before_pre_processing: data/aditya/MultiJetRun2010B.csv
//	compression_ratio: 2.0
//	epochs: 10
//	early_stopping: false
//	lr_scheduler: true
//	patience: 20
//	min_delta: 0
//	model_name: george_SAE
//	l1: true
//	reg_param: 0.001
//	lr: 0.001
//	batch_size: 32
//	test_size: 0.15
//
// The data-handling keys (input_path, path_before_pre_processing,
// custom_norm, rho, batch_size, save_as_root) are parsed so existing
// project files load unchanged. Nothing here reads the data they point at;
// they are validated and reported by Describe.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/baler/internal/control"
	"github.com/born-ml/baler/internal/model"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is a project's training configuration.
type Config struct {
	InputPath               string  `yaml:"input_path"`
	PathBeforePreProcessing string  `yaml:"path_before_pre_processing"`
	CompressionRatio        float64 `yaml:"compression_ratio"`
	Epochs                  int     `yaml:"epochs"`
	EarlyStopping           bool    `yaml:"early_stopping"`
	LRScheduler             bool    `yaml:"lr_scheduler"`
	Patience                int     `yaml:"patience"`
	MinDelta                float64 `yaml:"min_delta"`
	ModelName               string  `yaml:"model_name"`
	CustomNorm              bool    `yaml:"custom_norm"`
	L1                      bool    `yaml:"l1"`
	RegParam                float64 `yaml:"reg_param"`
	Rho                     float64 `yaml:"rho"`
	LR                      float64 `yaml:"lr"`
	BatchSize               int     `yaml:"batch_size"`
	SaveAsRoot              bool    `yaml:"save_as_root"`
	TestSize                float64 `yaml:"test_size"`

	// Plateau scheduler tuning; zero values take the scheduler defaults.
	Factor float64 `yaml:"factor"`
	MinLR  float64 `yaml:"min_lr"`

	// JournalPath is an optional SQLite file recording every epoch.
	JournalPath string `yaml:"journal_path"`
}

// Default returns the configuration used when a field is absent.
func Default() Config {
	return Config{
		CompressionRatio: 2.0,
		Epochs:           10,
		LRScheduler:      true,
		Patience:         20,
		MinDelta:         0,
		ModelName:        "george_SAE",
		L1:               true,
		RegParam:         0.001,
		Rho:              0.05,
		LR:               0.001,
		BatchSize:        32,
		TestSize:         0.15,
		Factor:           control.DefaultFactor,
		MinLR:            control.DefaultMinLR,
	}
}

// Parse decodes YAML over the defaults and validates the result. An empty
// document yields the defaults.
//
// Unknown keys are rejected so that typos do not silently fall back to defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses a YAML config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c Config) Validate() error {
	switch {
	case c.Epochs <= 0:
		return fmt.Errorf("%w: epochs must be positive, got %d", ErrInvalid, c.Epochs)
	case c.CompressionRatio < 1:
		return fmt.Errorf("%w: compression_ratio must be >= 1, got %g", ErrInvalid, c.CompressionRatio)
	case c.LR <= 0:
		return fmt.Errorf("%w: lr must be positive, got %g", ErrInvalid, c.LR)
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batch_size must be positive, got %d", ErrInvalid, c.BatchSize)
	case c.TestSize <= 0 || c.TestSize >= 1:
		return fmt.Errorf("%w: test_size must be in (0, 1), got %g", ErrInvalid, c.TestSize)
	case c.RegParam < 0:
		return fmt.Errorf("%w: reg_param must be >= 0, got %g", ErrInvalid, c.RegParam)
	}

	found := false
	for _, name := range model.Names() {
		if name == c.ModelName {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %w: %q", ErrInvalid, model.ErrUnknownModel, c.ModelName)
	}

	if c.EarlyStopping {
		if err := c.EarlyStoppingConfig().Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}
	if c.LRScheduler {
		if err := c.PlateauConfig().Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}
	return nil
}

// LatentDim returns the latent size for a table with nFeatures columns:
// nFeatures divided by the compression ratio, rounded down, at least 1.
func (c Config) LatentDim(nFeatures int) int {
	z := int(float64(nFeatures) / c.CompressionRatio)
	if z < 1 {
		z = 1
	}
	return z
}

// EarlyStoppingConfig returns the early stopping settings.
func (c Config) EarlyStoppingConfig() control.EarlyStoppingConfig {
	return control.EarlyStoppingConfig{
		Patience: c.Patience,
		MinDelta: c.MinDelta,
	}
}

// PlateauConfig returns the plateau scheduler settings.
func (c Config) PlateauConfig() control.PlateauConfig {
	return control.PlateauConfig{
		Patience: c.Patience,
		Factor:   c.Factor,
		MinLR:    c.MinLR,
	}
}

// Describe renders the project settings as an aligned key/value block.
func (c Config) Describe() string {
	var sb strings.Builder
	row := func(key string, value any) {
		fmt.Fprintf(&sb, "  %-28s %v\n", key, value)
	}
	row("input_path", orNone(c.InputPath))
	row("path_before_pre_processing", orNone(c.PathBeforePreProcessing))
	row("custom_norm", c.CustomNorm)
	row("batch_size", c.BatchSize)
	row("test_size", c.TestSize)
	if c.L1 {
		row("objective", fmt.Sprintf("sparse L1 (reg_param=%g)", c.RegParam))
	} else {
		row("objective", "reconstruction only")
	}
	row("rho", c.Rho)
	row("save_as_root", c.SaveAsRoot)
	return sb.String()
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
