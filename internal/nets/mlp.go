package nets

import (
	"fmt"

	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/model"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// MLP is a stack of dense layers with ReLU between them. Layer i owns
// "fc<i+1>.weight" (out x in) and "fc<i+1>.bias" (1 x out).
type MLP struct {
	sizes  []int
	params *model.ParameterMap
	// groupOrder lists layer indexes in WeightKeys order; nil means input first
	groupOrder []int
}

// NewMLP builds an MLP with the given layer widths, input first and classes last.
func NewMLP(sizes []int, seed uint64) (*MLP, error) {
	if len(sizes) < 2 {
		return nil, fmt.Errorf("mlp needs at least 2 layer sizes, got %d", len(sizes))
	}
	for _, size := range sizes {
		if size <= 0 {
			return nil, fmt.Errorf("invalid layer size %d", size)
		}
	}

	rng := rand.New(rand.NewSource(seed))
	params := model.NewParameterMap()
	for i := 0; i < len(sizes)-1; i++ {
		in, out := sizes[i], sizes[i+1]
		params.Set(weightName(i), uniformDense(rng, out, in, in))
		params.Set(biasName(i), uniformDense(rng, 1, out, in))
	}

	return &MLP{
		sizes:  append([]int{}, sizes...),
		params: params,
	}, nil
}

func weightName(layer int) string {
	return fmt.Sprintf("fc%d.weight", layer+1)
}

func biasName(layer int) string {
	return fmt.Sprintf("fc%d.bias", layer+1)
}

func (net *MLP) numLayers() int {
	return len(net.sizes) - 1
}

func (net *MLP) Parameters() *model.ParameterMap {
	return net.params
}

func (net *MLP) WeightKeys() [][]string {
	keys := make([][]string, net.numLayers())
	for i := range keys {
		layer := i
		if net.groupOrder != nil {
			layer = net.groupOrder[i]
		}
		keys[i] = []string{weightName(layer), biasName(layer)}
	}
	return keys
}

// WithGroupOrder reorders the parameter groups reported by WeightKeys. order must be a
// permutation of the layer indexes.
func (net *MLP) WithGroupOrder(order []int) error {
	if len(order) != net.numLayers() {
		return fmt.Errorf("group order has %d entries, mlp has %d layers", len(order), net.numLayers())
	}
	seen := make([]bool, len(order))
	for _, layer := range order {
		if layer < 0 || layer >= len(order) || seen[layer] {
			return fmt.Errorf("group order %v is not a permutation of the layers", order)
		}
		seen[layer] = true
	}
	net.groupOrder = append([]int{}, order...)
	return nil
}

func (net *MLP) Load(params *model.ParameterMap) error {
	return loadInto(net.params, params)
}

// forward returns the input of every layer and every pre-activation.
func (net *MLP) forward(input *mat.Dense) ([]*mat.Dense, []*mat.Dense) {
	inputs := make([]*mat.Dense, net.numLayers())
	preActs := make([]*mat.Dense, net.numLayers())

	h := input
	for i := 0; i < net.numLayers(); i++ {
		inputs[i] = h
		z := affine(h, net.params.Get(weightName(i)), net.params.Get(biasName(i)))
		preActs[i] = z
		if i < net.numLayers()-1 {
			h = relu(z)
		} else {
			h = z
		}
	}
	return inputs, preActs
}

func (net *MLP) Forward(input *mat.Dense) *mat.Dense {
	_, preActs := net.forward(input)
	return preActs[len(preActs)-1]
}

func (net *MLP) Backward(input *mat.Dense, gradLogits *mat.Dense) *model.ParameterMap {
	inputs, preActs := net.forward(input)
	grads := model.NewParameterMap()
	weightGrads := make([]*mat.Dense, net.numLayers())
	biasGrads := make([]*mat.Dense, net.numLayers())

	dz := gradLogits
	for i := net.numLayers() - 1; i >= 0; i-- {
		var dw mat.Dense
		dw.Mul(dz.T(), inputs[i])
		weightGrads[i] = &dw
		biasGrads[i] = columnSums(dz)

		if i > 0 {
			var dh mat.Dense
			dh.Mul(dz, net.params.Get(weightName(i)))
			dz = reluGrad(&dh, preActs[i-1])
		}
	}

	for i := 0; i < net.numLayers(); i++ {
		grads.Set(weightName(i), weightGrads[i])
		grads.Set(biasName(i), biasGrads[i])
	}
	return grads
}
