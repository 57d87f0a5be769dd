package nets

import (
	"testing"

	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

func randomDense(rng *rand.Rand, rows, cols int) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	return mat.NewDense(rows, cols, data)
}

// weighted sum of logits, so d(loss)/d(logits) is the weight matrix itself
func projection(logits, weights *mat.Dense) float64 {
	return mat.Sum(mulElem(logits, weights))
}

func mulElem(a, b *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.MulElem(a, b)
	return &out
}

// checkGradients compares analytic gradients against central differences on every parameter entry.
func checkGradients(t *testing.T, params *model.ParameterMap, grads *model.ParameterMap, loss func() float64) {
	const eps = 1e-6
	for _, key := range params.Keys() {
		p := params.Get(key)
		g := grads.Get(key)
		require.NotNil(t, g, key)
		rows, cols := p.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				orig := p.At(i, j)
				p.Set(i, j, orig+eps)
				up := loss()
				p.Set(i, j, orig-eps)
				down := loss()
				p.Set(i, j, orig)
				assert.InDelta(t, (up-down)/(2*eps), g.At(i, j), 1e-5, "%s[%d,%d]", key, i, j)
			}
		}
	}
}

func TestMLP(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	net, err := NewMLP([]int{4, 5, 3, 2}, 1)
	require.NoError(t, err)

	t.Run("parameter layout", func(t *testing.T) {
		assert.Equal(t, []string{"fc1.weight", "fc1.bias", "fc2.weight", "fc2.bias", "fc3.weight", "fc3.bias"},
			net.Parameters().Keys())
		assert.Equal(t, [][]string{{"fc1.weight", "fc1.bias"}, {"fc2.weight", "fc2.bias"}, {"fc3.weight", "fc3.bias"}},
			net.WeightKeys())
		r, c := net.Parameters().Get("fc2.weight").Dims()
		assert.Equal(t, []int{3, 5}, []int{r, c})
	})

	t.Run("analytic gradients match finite differences", func(t *testing.T) {
		input := randomDense(rng, 6, 4)
		weights := randomDense(rng, 6, 2)
		grads := net.Backward(input, weights)
		checkGradients(t, net.Parameters(), grads, func() float64 {
			return projection(net.Forward(input), weights)
		})
	})

	t.Run("load reproduces forward outputs", func(t *testing.T) {
		input := randomDense(rng, 3, 4)
		other, err := NewMLP([]int{4, 5, 3, 2}, 99)
		require.NoError(t, err)
		require.NoError(t, other.Load(net.Parameters().Clone()))
		assert.True(t, mat.Equal(net.Forward(input), other.Forward(input)))
	})

	t.Run("load rejects other architectures", func(t *testing.T) {
		other, err := NewMLP([]int{4, 6, 2}, 1)
		require.NoError(t, err)
		assert.ErrorIs(t, net.Load(other.Parameters()), model.ErrParameterMismatch)
	})

	t.Run("invalid sizes", func(t *testing.T) {
		_, err := NewMLP([]int{4}, 1)
		assert.Error(t, err)
		_, err = NewMLP([]int{4, 0, 2}, 1)
		assert.Error(t, err)
	})
}

func TestRNN(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	embeddings := randomDense(rng, 5, 3)
	net, err := NewRNN(embeddings, 4, 3, 2, 1)
	require.NoError(t, err)

	// token 5 is outside the table and embeds to zeros
	input := mat.NewDense(2, 3, []float64{0, 2, 5, 4, 1, 3})
	hidden := randomDense(rng, 2, 4)

	t.Run("recurrent output is classes x batch", func(t *testing.T) {
		out, next := net.ForwardRecurrent(input, hidden)
		r, c := out.Dims()
		assert.Equal(t, []int{2, 2}, []int{r, c})
		hr, hc := next.Dims()
		assert.Equal(t, []int{2, 4}, []int{hr, hc})
	})

	t.Run("next hidden state is independent of inputs", func(t *testing.T) {
		before := mat.DenseCopyOf(hidden)
		_, next := net.ForwardRecurrent(input, hidden)
		next.Set(0, 0, 123)
		assert.True(t, mat.Equal(before, hidden))
	})

	t.Run("analytic gradients match finite differences", func(t *testing.T) {
		weights := randomDense(rng, 2, 2)
		grads := net.BackwardRecurrent(input, hidden, weights)
		checkGradients(t, net.Parameters(), grads, func() float64 {
			out, _ := net.ForwardRecurrent(input, hidden)
			return projection(mat.DenseCopyOf(out.T()), weights)
		})
	})

	t.Run("shared positions cover the recurrent cell and first dense layer", func(t *testing.T) {
		keys := net.Parameters().Keys()
		assert.Equal(t, []string{"rnn.weight_ih", "rnn.weight_hh", "rnn.bias_ih", "rnn.bias_hh", "fc1.weight", "fc1.bias"},
			keys[:6])
	})
}

func TestBuild(t *testing.T) {
	t.Run("family defaults", func(t *testing.T) {
		net, err := Build(model.Image, NetSpec{InputDim: 8, Hidden: []int{4, 4, 4, 4}, Classes: 3}, nil)
		require.NoError(t, err)
		assert.Len(t, net.WeightKeys(), 5)

		net, err = Build(model.Character, NetSpec{InputDim: 8}, nil)
		require.NoError(t, err)
		assert.Len(t, net.WeightKeys(), 4)
	})

	t.Run("image groups list the fully connected block first", func(t *testing.T) {
		net, err := Build(model.Image, NetSpec{InputDim: 8, Hidden: []int{4, 4, 4, 4}, Classes: 3}, nil)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"fc3.weight", "fc3.bias"}, {"fc4.weight", "fc4.bias"}, {"fc5.weight", "fc5.bias"},
			{"fc2.weight", "fc2.bias"}, {"fc1.weight", "fc1.bias"}}, net.WeightKeys())
		// parameter order is untouched
		assert.Equal(t, "fc1.weight", net.Parameters().Keys()[0])
	})

	t.Run("large image groups run output first", func(t *testing.T) {
		net, err := Build(model.LargeImage, NetSpec{InputDim: 4, Hidden: []int{3, 3, 3, 3, 3, 3, 3, 3}, Classes: 2}, nil)
		require.NoError(t, err)
		groups := net.WeightKeys()
		require.Len(t, groups, 9)
		assert.Equal(t, []string{"fc9.weight", "fc9.bias"}, groups[0])
		assert.Equal(t, []string{"fc1.weight", "fc1.bias"}, groups[8])
	})

	t.Run("too few layers for the family", func(t *testing.T) {
		_, err := Build(model.Image, NetSpec{InputDim: 4, Hidden: []int{3}, Classes: 2}, nil)
		assert.ErrorIs(t, err, model.ErrInvalidConfig)
	})

	t.Run("group order must be a permutation", func(t *testing.T) {
		net, err := NewMLP([]int{2, 2, 2}, 1)
		require.NoError(t, err)
		assert.Error(t, net.WithGroupOrder([]int{0, 0}))
		assert.Error(t, net.WithGroupOrder([]int{0}))
		require.NoError(t, net.WithGroupOrder([]int{1, 0}))
		assert.Equal(t, []string{"fc2.weight", "fc2.bias"}, net.WeightKeys()[0])
	})

	t.Run("sequence needs embeddings", func(t *testing.T) {
		_, err := Build(model.Sequence, NetSpec{}, nil)
		assert.Error(t, err)

		net, err := Build(model.Sequence, NetSpec{HiddenDim: 3, FcDim: 2}, mat.NewDense(4, 2, nil))
		require.NoError(t, err)
		_, ok := net.(RecurrentNet)
		assert.True(t, ok)
	})
}
