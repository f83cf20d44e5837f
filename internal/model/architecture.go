package model

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

// ErrUnknownModel is returned for architecture names that are not registered.
var ErrUnknownModel = errors.New("unknown model")

// Activation names the non-linearity following a linear transform.
type Activation int

// Activation kinds.
const (
	ActNone Activation = iota
	ActReLU
	ActLeakyReLU
)

// String implements fmt.Stringer.
func (a Activation) String() string {
	switch a {
	case ActReLU:
		return "ReLU"
	case ActLeakyReLU:
		return "LeakyReLU"
	default:
		return "-"
	}
}

// Norm names the normalization applied after a linear transform.
type Norm int

// Normalization kinds.
const (
	NormNone Norm = iota
	NormBatch
)

// String implements fmt.Stringer.
func (n Norm) String() string {
	if n == NormBatch {
		return "BatchNorm1d"
	}
	return "-"
}

// LayerSpec describes one stage: Linear(In, Out), optional Dropout, then the
// activation and normalization. NormFirst puts the normalization before the
// activation.
type LayerSpec struct {
	In         int
	Out        int
	Activation Activation
	Norm       Norm
	NormFirst  bool
	Dropout    float64
}

// build turns the layer description into layers.
func (s LayerSpec) build(rng *rand.Rand) []Layer {
	layers := []Layer{NewLinear(s.In, s.Out, rng)}
	if s.Dropout > 0 {
		layers = append(layers, NewDropout(s.Dropout, rng))
	}

	var act, norm Layer
	switch s.Activation {
	case ActReLU:
		act = NewReLU()
	case ActLeakyReLU:
		act = NewLeakyReLU(0)
	}
	if s.Norm == NormBatch {
		norm = NewBatchNorm1d(s.Out)
	}

	ordered := []Layer{act, norm}
	if s.NormFirst {
		ordered = []Layer{norm, act}
	}
	for _, l := range ordered {
		if l != nil {
			layers = append(layers, l)
		}
	}
	return layers
}

// Architecture fully describes an autoencoder.
//
// Variational architectures end the encoder at a hidden width and add two
// heads, Mu and LogVar, projecting to the latent dimension.
//
// Blockwise models expose the whole encoder and decoder as their two
// children, so the sparse penalty is taken over complete block outputs
// instead of after every linear layer.
type Architecture struct {
	Name        string
	Features    int
	LatentDim   int
	Encoder     []LayerSpec
	Decoder     []LayerSpec
	Variational bool
	Blockwise   bool
	Mu          LayerSpec
	LogVar      LayerSpec
}

// String renders the architecture as a layer table.
func (a Architecture) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (features=%d, latent=%d)\n", a.Name, a.Features, a.LatentDim)
	section := func(title string, specs []LayerSpec) {
		fmt.Fprintf(&sb, "  %s:\n", title)
		for _, s := range specs {
			fmt.Fprintf(&sb, "    Linear(%d -> %d)", s.In, s.Out)
			if s.Dropout > 0 {
				fmt.Fprintf(&sb, "  Dropout(%.1f)", s.Dropout)
			}
			first, second := fmt.Stringer(s.Activation), fmt.Stringer(s.Norm)
			if s.NormFirst {
				first, second = second, first
			}
			fmt.Fprintf(&sb, "  %s  %s\n", first, second)
		}
	}
	section("encoder", a.Encoder)
	if a.Variational {
		section("mu", []LayerSpec{a.Mu})
		section("logvar", []LayerSpec{a.LogVar})
	}
	section("decoder", a.Decoder)
	return sb.String()
}

// Validate checks that consecutive stages have matching dimensions.
func (a Architecture) Validate() error {
	if len(a.Encoder) == 0 || len(a.Decoder) == 0 {
		return fmt.Errorf("model %s: encoder and decoder must not be empty", a.Name)
	}
	check := func(part string, specs []LayerSpec, in, out int) error {
		prev := in
		for i, s := range specs {
			if s.In != prev {
				return fmt.Errorf("model %s: %s layer %d expects %d inputs, previous layer gives %d", a.Name, part, i, s.In, prev)
			}
			if s.Dropout < 0 || s.Dropout >= 1 {
				return fmt.Errorf("model %s: %s layer %d dropout %g outside [0, 1)", a.Name, part, i, s.Dropout)
			}
			prev = s.Out
		}
		if out > 0 && prev != out {
			return fmt.Errorf("model %s: %s ends at %d, want %d", a.Name, part, prev, out)
		}
		return nil
	}

	encOut := a.LatentDim
	if a.Variational {
		encOut = 0
	}
	if err := check("encoder", a.Encoder, a.Features, encOut); err != nil {
		return err
	}
	if a.Variational {
		hidden := a.Encoder[len(a.Encoder)-1].Out
		if err := check("mu", []LayerSpec{a.Mu}, hidden, a.LatentDim); err != nil {
			return err
		}
		if err := check("logvar", []LayerSpec{a.LogVar}, hidden, a.LatentDim); err != nil {
			return err
		}
	}
	return check("decoder", a.Decoder, a.LatentDim, a.Features)
}

// builder constructs an architecture for the given feature and latent sizes.
type builder func(features, latent int) Architecture

var registry = map[string]builder{
	"george_SAE":            georgeSAE,
	"george_SAE_BN":         georgeSAEBN,
	"george_SAE_Dropout_BN": georgeSAEDropoutBN,
	"george_SAE_Dropout":    georgeSAEDropout,
	"VarAutoEnc":            varAutoEnc,
}

// Names returns the registered architecture names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewArchitecture looks up a registered architecture.
//
// Returns an error wrapping ErrUnknownModel for unregistered names, or a
// validation error for non-positive sizes.
func NewArchitecture(name string, features, latent int) (Architecture, error) {
	build, ok := registry[name]
	if !ok {
		return Architecture{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownModel, name, strings.Join(Names(), ", "))
	}
	if features <= 0 || latent <= 0 {
		return Architecture{}, fmt.Errorf("model %s: features and latent dimension must be positive, got %d and %d", name, features, latent)
	}

	arch := build(features, latent)
	arch.Name = name
	arch.Features = features
	arch.LatentDim = latent
	if err := arch.Validate(); err != nil {
		return Architecture{}, err
	}
	return arch, nil
}

// chain builds specs through the given widths with one activation and norm.
func chain(widths []int, act Activation, norm Norm, dropout []float64) []LayerSpec {
	specs := make([]LayerSpec, len(widths)-1)
	for i := range specs {
		specs[i] = LayerSpec{In: widths[i], Out: widths[i+1], Activation: act, Norm: norm}
		if dropout != nil {
			specs[i].Dropout = dropout[i]
		}
	}
	return specs
}

func georgeSAE(n, z int) Architecture {
	enc := chain([]int{n, 256, 128, 64, z}, ActLeakyReLU, NormNone, nil)
	enc[3].Activation = ActNone
	dec := chain([]int{z, 64, 128, 256, n}, ActLeakyReLU, NormNone, nil)
	dec[3].Activation = ActNone
	return Architecture{Encoder: enc, Decoder: dec}
}

func georgeSAEBN(n, z int) Architecture {
	enc := chain([]int{n, 200, 100, 50, z}, ActLeakyReLU, NormBatch, nil)
	dec := chain([]int{z, 50, 100, 200, n}, ActLeakyReLU, NormNone, nil)
	dec[3].Activation = ActReLU
	return Architecture{Encoder: enc, Decoder: dec, Blockwise: true}
}

func georgeSAEDropoutBN(n, z int) Architecture {
	enc := chain([]int{n, 200, 100, 50, z}, ActLeakyReLU, NormNone, []float64{0.3, 0.3, 0.2, 0.1})
	dec := chain([]int{z, 50, 100, 200, n}, ActLeakyReLU, NormBatch, nil)
	dec[3].Activation = ActReLU
	dec[3].NormFirst = true
	return Architecture{Encoder: enc, Decoder: dec, Blockwise: true}
}

func georgeSAEDropout(n, z int) Architecture {
	enc := chain([]int{n, 200, 100, 50, z}, ActLeakyReLU, NormNone, []float64{0.3, 0.3, 0.2, 0.1})
	dec := chain([]int{z, 50, 100, 200, n}, ActLeakyReLU, NormNone, []float64{0.1, 0.2, 0.3, 0.3})
	dec[3].Activation = ActReLU
	return Architecture{Encoder: enc, Decoder: dec, Blockwise: true}
}

func varAutoEnc(n, z int) Architecture {
	enc := chain([]int{n, 256, 128, 64}, ActLeakyReLU, NormBatch, nil)
	dec := chain([]int{z, 64, 128, 256, n}, ActLeakyReLU, NormNone, nil)
	dec[3].Activation = ActReLU
	return Architecture{
		Encoder:     enc,
		Decoder:     dec,
		Variational: true,
		Mu:          LayerSpec{In: 64, Out: z},
		LogVar:      LayerSpec{In: 64, Out: z},
	}
}
