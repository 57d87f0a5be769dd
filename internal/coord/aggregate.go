package coord

import (
	"fmt"

	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/model"
	"gonum.org/v1/gonum/mat"
)

// MeanAggregate averages parameter maps key by key.
func MeanAggregate(params []*model.ParameterMap) (*model.ParameterMap, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("%w: nothing to aggregate", model.ErrParameterMismatch)
	}

	mean := params[0].Clone()
	for _, other := range params[1:] {
		if err := mean.CheckCompatible(other); err != nil {
			return nil, err
		}
		for _, key := range mean.Keys() {
			mean.Get(key).Add(mean.Get(key), other.Get(key))
		}
	}
	for _, key := range mean.Keys() {
		mean.Get(key).Scale(1/float64(len(params)), mean.Get(key))
	}
	return mean, nil
}

// withShared overlays the shared keys of global onto personal.
func withShared(personal, global *model.ParameterMap, shared []string) *model.ParameterMap {
	merged := personal.Clone()
	for _, key := range shared {
		merged.Set(key, mat.DenseCopyOf(global.Get(key)))
	}
	return merged
}
