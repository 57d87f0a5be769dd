package nets

import (
	"fmt"

	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/model"
	"gonum.org/v1/gonum/mat"
)

// NetSpec sizes a net. Zero values fall back to the family default.
type NetSpec struct {
	InputDim  int    `json:"inputDim"`
	Hidden    []int  `json:"hidden"`
	Classes   int    `json:"classes"`
	HiddenDim int    `json:"hiddenDim"` // recurrent state width
	FcDim     int    `json:"fcDim"`
	Seed      uint64 `json:"seed"`
}

// default widths give every family enough parameter groups for its shared-key table
var familyDefaults = map[model.DatasetFamily]NetSpec{
	model.Image:      {InputDim: 3 * 32 * 32, Hidden: []int{512, 256, 128, 64}, Classes: 10},
	model.Character:  {InputDim: 28 * 28, Hidden: []int{256, 128, 64}, Classes: 62},
	model.Sequence:   {HiddenDim: 100, FcDim: 128, Classes: 2},
	model.LargeImage: {InputDim: 3 * 64 * 64, Hidden: []int{1024, 512, 512, 256, 256, 128, 128, 64}, Classes: 100},
}

// minimum dense layers for the family's shared-key table to leave the classifier out
var familyMinLayers = map[model.DatasetFamily]int{
	model.Image:      5,
	model.Character:  4,
	model.LargeImage: 9,
}

// groupOrder arranges an MLP's parameter groups the way the family's convolutional
// reference nets list them, so the classifier is never at a shared index.
func groupOrder(family model.DatasetFamily, layers int) []int {
	order := make([]int, 0, layers)
	switch family {
	case model.Image:
		// fully connected block first, then the feature layers from the top down
		for layer := layers - 3; layer < layers; layer++ {
			order = append(order, layer)
		}
		for layer := layers - 4; layer >= 0; layer-- {
			order = append(order, layer)
		}
	case model.LargeImage:
		for layer := layers - 1; layer >= 0; layer-- {
			order = append(order, layer)
		}
	default:
		return nil
	}
	return order
}

// Build constructs the net used for a dataset family. Sequence nets need the
// embedding table of the text vocabulary.
func Build(family model.DatasetFamily, spec NetSpec, embeddings *mat.Dense) (Net, error) {
	defaults, found := familyDefaults[family]
	if !found {
		return nil, fmt.Errorf("%w: no net for family %s", model.ErrInvalidConfig, family)
	}
	spec = withDefaults(spec, defaults)

	if family == model.Sequence {
		return NewRNN(embeddings, spec.HiddenDim, spec.FcDim, spec.Classes, spec.Seed)
	}

	sizes := append([]int{spec.InputDim}, spec.Hidden...)
	sizes = append(sizes, spec.Classes)
	if layers := len(sizes) - 1; layers < familyMinLayers[family] {
		return nil, fmt.Errorf("%w: family %s needs at least %d layers, got %d", model.ErrInvalidConfig,
			family, familyMinLayers[family], layers)
	}

	net, err := NewMLP(sizes, spec.Seed)
	if err != nil {
		return nil, err
	}
	if order := groupOrder(family, len(sizes)-1); order != nil {
		if err := net.WithGroupOrder(order); err != nil {
			return nil, err
		}
	}
	return net, nil
}

func withDefaults(spec, defaults NetSpec) NetSpec {
	if spec.InputDim == 0 {
		spec.InputDim = defaults.InputDim
	}
	if spec.Hidden == nil {
		spec.Hidden = defaults.Hidden
	}
	if spec.Classes == 0 {
		spec.Classes = defaults.Classes
	}
	if spec.HiddenDim == 0 {
		spec.HiddenDim = defaults.HiddenDim
	}
	if spec.FcDim == 0 {
		spec.FcDim = defaults.FcDim
	}
	return spec
}
