package pfl

import (
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/model"
	"gonum.org/v1/gonum/mat"
)

// Blend corrects a plain SGD step toward the coordinator aggregate:
//
//	out[k] = post[k] - lr*lam*(pre[k] - agg[k])
//
// pre is the snapshot taken before the step and post the weights after it.
// None of the inputs is modified.
func Blend(pre, post, agg *model.ParameterMap, lr, lam float64) (*model.ParameterMap, error) {
	if err := post.CheckCompatible(pre); err != nil {
		return nil, err
	}
	if err := post.CheckCompatible(agg); err != nil {
		return nil, err
	}

	out := model.NewParameterMap()
	for _, key := range post.Keys() {
		var correction mat.Dense
		correction.Sub(pre.Get(key), agg.Get(key))
		correction.Scale(lr*lam, &correction)

		var blended mat.Dense
		blended.Sub(post.Get(key), &correction)
		out.Set(key, &blended)
	}
	return out, nil
}
