// Package nets holds the differentiable classifiers trained by a client.
// Nets own their parameters; the training engine mutates them in place through Parameters().
package nets

import (
	"math"

	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/model"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Net is a classifier over a named parameter map.
type Net interface {
	// Parameters returns the live parameters in declaration order.
	Parameters() *model.ParameterMap
	// WeightKeys returns the ordered parameter groups (one group per layer).
	WeightKeys() [][]string
	// Load copies params into the live parameters.
	Load(params *model.ParameterMap) error
	// Forward returns batch x classes logits.
	Forward(input *mat.Dense) *mat.Dense
	// Backward returns the gradient of every parameter given d(loss)/d(logits).
	Backward(input *mat.Dense, gradLogits *mat.Dense) *model.ParameterMap
}

// RecurrentNet is a Net whose forward pass threads a hidden state between batches.
type RecurrentNet interface {
	Net
	InitHidden(batchSize int) *mat.Dense
	// ForwardRecurrent returns classes x batch outputs and the next hidden state.
	// The returned state shares no storage with the inputs.
	ForwardRecurrent(input, hidden *mat.Dense) (*mat.Dense, *mat.Dense)
	// BackwardRecurrent treats hidden as a constant: no gradient flows into earlier batches.
	BackwardRecurrent(input, hidden, gradLogits *mat.Dense) *model.ParameterMap
}

func loadInto(dst *model.ParameterMap, src *model.ParameterMap) error {
	if err := dst.CheckCompatible(src); err != nil {
		return err
	}
	for _, key := range dst.Keys() {
		dst.Get(key).Copy(src.Get(key))
	}
	return nil
}

// uniformDense fills a rows x cols matrix from U(-bound, bound), bound = 1/sqrt(fanIn).
func uniformDense(rng *rand.Rand, rows, cols, fanIn int) *mat.Dense {
	bound := 1 / math.Sqrt(float64(fanIn))
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * bound
	}
	return mat.NewDense(rows, cols, data)
}

// affine computes x * w^T + b with b broadcast over rows.
func affine(x, w, b *mat.Dense) *mat.Dense {
	var z mat.Dense
	z.Mul(x, w.T())
	bias := b.RawRowView(0)
	rows, _ := z.Dims()
	for i := 0; i < rows; i++ {
		floats.Add(z.RawRowView(i), bias)
	}
	return &z
}

func relu(z *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 {
		return math.Max(v, 0)
	}, z)
	return &out
}

// reluGrad zeroes grad wherever the pre-activation z was not positive.
func reluGrad(grad, z *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Apply(func(i, j int, v float64) float64 {
		if z.At(i, j) > 0 {
			return v
		}
		return 0
	}, grad)
	return &out
}

// columnSums returns a 1 x cols matrix holding the sum of each column.
func columnSums(m *mat.Dense) *mat.Dense {
	rows, cols := m.Dims()
	sums := mat.NewDense(1, cols, nil)
	for i := 0; i < rows; i++ {
		floats.Add(sums.RawRowView(0), m.RawRowView(i))
	}
	return sums
}
