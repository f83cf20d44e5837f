package model

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func randomBatch(rng *rand.Rand, rows, cols int) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	return mat.NewDense(rows, cols, data)
}

func TestLinear_Forward(t *testing.T) {
	// W = [[1, 2], [3, 4], [5, 6]], b = [0.5, -1, 0]
	w := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	layer := NewLinearFrom(w, []float64{0.5, -1, 0})

	x := mat.NewDense(2, 2, []float64{1, 1, 0, 2})
	y := layer.Forward(x)

	want := mat.NewDense(2, 3, []float64{3.5, 6, 11, 4.5, 7, 12})
	assert.True(t, mat.EqualApprox(want, y, 1e-12), "got %v", mat.Formatted(y))
}

func TestLinear_InitBounds(t *testing.T) {
	layer := NewLinear(16, 8, rand.New(rand.NewSource(1)))
	bound := 1 / math.Sqrt(16)

	r, c := layer.Weight().Dims()
	require.Equal(t, 8, r)
	require.Equal(t, 16, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			assert.LessOrEqual(t, math.Abs(layer.Weight().At(i, j)), bound)
		}
	}
}

func TestLinear_WrongInputPanics(t *testing.T) {
	layer := NewLinear(4, 2, rand.New(rand.NewSource(1)))
	assert.Panics(t, func() {
		layer.Forward(mat.NewDense(1, 3, nil))
	})
}

func TestActivations(t *testing.T) {
	x := mat.NewDense(1, 4, []float64{-2, -0.5, 0, 3})

	relu := NewReLU().Forward(x)
	assert.Equal(t, []float64{0, 0, 0, 3}, relu.RawRowView(0))

	leaky := NewLeakyReLU(0).Forward(x)
	assert.InDeltaSlice(t, []float64{-0.02, -0.005, 0, 3}, leaky.RawRowView(0), 1e-12)

	// Input is untouched.
	assert.Equal(t, -2.0, x.At(0, 0))
}

func TestBatchNorm1d_TrainingNormalizes(t *testing.T) {
	bn := NewBatchNorm1d(2)
	bn.SetTraining(true)

	x := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
		4, 40,
	})
	y := bn.Forward(x)

	for j := 0; j < 2; j++ {
		col := mat.Col(nil, j, y)
		var mean, sq float64
		for _, v := range col {
			mean += v
		}
		mean /= 4
		for _, v := range col {
			sq += (v - mean) * (v - mean)
		}
		assert.InDelta(t, 0, mean, 1e-9)
		assert.InDelta(t, 1, sq/4, 1e-3)
	}

	// Running stats moved towards the batch statistics.
	assert.InDelta(t, 0.25, bn.RunningMean()[0], 1e-12)
	assert.InDelta(t, 0.9+0.1*(5.0/3.0), bn.RunningVar()[0], 1e-12)
}

func TestBatchNorm1d_EvalUsesRunningStats(t *testing.T) {
	bn := NewBatchNorm1d(1)
	x := mat.NewDense(2, 1, []float64{1, 2})

	y := bn.Forward(x)
	scale := 1 / math.Sqrt(1+1e-5)
	assert.InDelta(t, 1*scale, y.At(0, 0), 1e-12)
	assert.InDelta(t, 2*scale, y.At(1, 0), 1e-12)
}

func TestDropout_Modes(t *testing.T) {
	d := NewDropout(0.5, rand.New(rand.NewSource(3)))
	x := mat.NewDense(10, 10, nil)
	for i := 0; i < 10; i++ {
		for j := 0; j < 10; j++ {
			x.Set(i, j, 1)
		}
	}

	assert.True(t, mat.Equal(x, d.Forward(x)), "eval mode must be identity")

	d.SetTraining(true)
	y := d.Forward(x)
	zeros := 0
	for i := 0; i < 10; i++ {
		for j := 0; j < 10; j++ {
			v := y.At(i, j)
			if v == 0 {
				zeros++
			} else {
				assert.Equal(t, 2.0, v)
			}
		}
	}
	assert.Greater(t, zeros, 20)
	assert.Less(t, zeros, 80)
}

func TestNewArchitecture_Registered(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			arch, err := NewArchitecture(name, 24, 12)
			require.NoError(t, err)
			assert.Equal(t, name, arch.Name)
			assert.NoError(t, arch.Validate())
			assert.Equal(t, 24, arch.Decoder[len(arch.Decoder)-1].Out)
			assert.Contains(t, arch.String(), name)
		})
	}
}

func TestNewArchitecture_Errors(t *testing.T) {
	_, err := NewArchitecture("george_VAE_9000", 24, 12)
	assert.True(t, errors.Is(err, ErrUnknownModel))

	_, err = NewArchitecture("george_SAE", 24, 0)
	assert.Error(t, err)
}

func TestArchitecture_ValidateMismatch(t *testing.T) {
	arch := Architecture{
		Name:      "broken",
		Features:  4,
		LatentDim: 2,
		Encoder:   []LayerSpec{{In: 4, Out: 3}},
		Decoder:   []LayerSpec{{In: 2, Out: 4}},
	}
	assert.Error(t, arch.Validate())
}

func TestArchitecture_DropoutBNDecoderOrder(t *testing.T) {
	arch, err := NewArchitecture("george_SAE_Dropout_BN", 8, 4)
	require.NoError(t, err)

	last := arch.Decoder[len(arch.Decoder)-1]
	layers := last.build(rand.New(rand.NewSource(1)))
	require.Len(t, layers, 3)
	assert.IsType(t, &Linear{}, layers[0])
	assert.IsType(t, &BatchNorm1d{}, layers[1])
	assert.IsType(t, &ReLU{}, layers[2])
}

func TestAutoencoder_ForwardShapes(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, name := range []string{"george_SAE", "george_SAE_BN", "george_SAE_Dropout_BN", "george_SAE_Dropout"} {
		t.Run(name, func(t *testing.T) {
			arch, err := NewArchitecture(name, 24, 12)
			require.NoError(t, err)
			ae := NewAutoencoder(arch, rng)

			x := randomBatch(rng, 8, 24)
			ae.SetTraining(true)
			z := ae.Encode(x)
			r, c := z.Dims()
			assert.Equal(t, 8, r)
			assert.Equal(t, 12, c)

			ae.SetTraining(false)
			y := ae.Forward(x)
			r, c = y.Dims()
			assert.Equal(t, 8, r)
			assert.Equal(t, 24, c)
		})
	}
}

func TestAutoencoder_Children(t *testing.T) {
	tests := []struct {
		name     string
		children int
	}{
		{"george_SAE", 8},
		{"george_SAE_BN", 2},
		{"george_SAE_Dropout_BN", 2},
		{"george_SAE_Dropout", 2},
	}
	rng := rand.New(rand.NewSource(5))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arch, err := NewArchitecture(tt.name, 24, 12)
			require.NoError(t, err)
			ae := NewAutoencoder(arch, rng)
			assert.Len(t, ae.Children(), tt.children)
		})
	}
}

func TestAutoencoder_BlockwiseChildrenAreWholeBlocks(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	arch, err := NewArchitecture("george_SAE_BN", 24, 12)
	require.NoError(t, err)
	ae := NewAutoencoder(arch, rng)
	ae.SetTraining(false)

	x := randomBatch(rng, 4, 24)
	children := ae.Children()
	require.Len(t, children, 2)

	z := children[0].Forward(x)
	assert.True(t, mat.Equal(ae.Encode(x), z))
	assert.True(t, mat.Equal(ae.Decode(z), children[1].Forward(z)))
}

func TestAutoencoder_EvalIsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	arch, err := NewArchitecture("george_SAE_Dropout", 6, 3)
	require.NoError(t, err)
	ae := NewAutoencoder(arch, rng)

	x := randomBatch(rng, 4, 6)
	assert.True(t, mat.Equal(ae.Forward(x), ae.Forward(x)))
}

func TestVAE_Forward(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	arch, err := NewArchitecture("VarAutoEnc", 10, 3)
	require.NoError(t, err)
	vae := NewVAE(arch, rng)

	x := randomBatch(rng, 5, 10)

	vae.SetTraining(false)
	y, mu, logVar := vae.Forward(x)
	r, c := y.Dims()
	assert.Equal(t, 5, r)
	assert.Equal(t, 10, c)
	r, c = mu.Dims()
	assert.Equal(t, 5, r)
	assert.Equal(t, 3, c)
	assert.True(t, mat.Equal(mu, vae.Reparameterise(mu, logVar)), "eval mode returns mu")

	vae.SetTraining(true)
	_, mu, logVar = vae.Forward(x)
	assert.False(t, mat.Equal(mu, vae.Reparameterise(mu, logVar)), "training mode samples")
}

func TestConstructorsRejectWrongKind(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	vaeArch, err := NewArchitecture("VarAutoEnc", 4, 2)
	require.NoError(t, err)
	saeArch, err := NewArchitecture("george_SAE", 4, 2)
	require.NoError(t, err)

	assert.Panics(t, func() { NewAutoencoder(vaeArch, rng) })
	assert.Panics(t, func() { NewVAE(saeArch, rng) })
}

func TestForColumns_VisitsEveryColumnOnce(t *testing.T) {
	for _, n := range []int{0, 1, 31, 32, 257} {
		seen := make([]int, n)
		forColumns(n, func(j int) { seen[j]++ })
		for j, c := range seen {
			require.Equal(t, 1, c, "n=%d column %d", n, j)
		}
	}
}

func TestBatchNorm1d_WideInput(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	x := randomBatch(rng, 16, 128)

	bn := NewBatchNorm1d(128)
	bn.SetTraining(true)
	out := bn.Forward(x)

	col := make([]float64, 16)
	for j := 0; j < 128; j++ {
		mat.Col(col, j, out)
		var mean float64
		for _, v := range col {
			mean += v
		}
		assert.InDelta(t, 0, mean/16, 1e-9, "column %d", j)
	}
}
