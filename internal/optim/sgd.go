// Package optim runs the optimization step of local training: loss, gradients and
// the SGD update with per-group weight decay and momentum.
package optim

import (
	"strings"

	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/model"
	"gonum.org/v1/gonum/mat"
)

const (
	Momentum    = 0.5
	WeightDecay = 1e-4
)

// ParamGroup is a set of parameters sharing a weight decay.
type ParamGroup struct {
	Names       []string
	WeightDecay float64
}

// SGD is stochastic gradient descent with momentum (no dampening, no nesterov).
// Parameters that are masked out receive no update, no decay and no momentum step.
type SGD struct {
	lr       float64
	momentum float64
	groups   []ParamGroup
	decay    map[string]float64
	buffers  map[string]*mat.Dense
	anchor   *model.ParameterMap
	mu       float64
}

// NewSGD splits params into a bias group without weight decay and a group
// holding everything else with WeightDecay.
func NewSGD(params *model.ParameterMap, lr float64) *SGD {
	weights := ParamGroup{WeightDecay: WeightDecay}
	biases := ParamGroup{WeightDecay: 0}
	for _, name := range params.Keys() {
		if strings.Contains(name, "bias") {
			biases.Names = append(biases.Names, name)
		} else {
			weights.Names = append(weights.Names, name)
		}
	}

	opt := &SGD{
		lr:       lr,
		momentum: Momentum,
		groups:   []ParamGroup{weights, biases},
		decay:    make(map[string]float64),
		buffers:  make(map[string]*mat.Dense),
	}
	for _, group := range opt.groups {
		for _, name := range group.Names {
			opt.decay[name] = group.WeightDecay
		}
	}
	return opt
}

// WithProximal adds mu * (w - anchor) to every gradient, anchoring the round
// at its starting weights. anchor is kept by reference and must not change.
func (opt *SGD) WithProximal(anchor *model.ParameterMap, mu float64) *SGD {
	opt.anchor = anchor
	opt.mu = mu
	return opt
}

func (opt *SGD) Groups() []ParamGroup {
	return opt.groups
}

func (opt *SGD) LR() float64 {
	return opt.lr
}

func (opt *SGD) SetLR(lr float64) {
	opt.lr = lr
}

// Step updates params in place from grads for every name the mask allows.
func (opt *SGD) Step(params, grads *model.ParameterMap, mask model.TrainabilityMask) {
	for _, name := range params.Keys() {
		grad := grads.Get(name)
		if grad == nil || !mask.Trainable(name) {
			continue
		}
		p := params.Get(name)

		d := mat.DenseCopyOf(grad)
		if wd := opt.decay[name]; wd != 0 {
			d.Add(d, scaled(wd, p))
		}
		if opt.anchor != nil && opt.mu != 0 {
			var drift mat.Dense
			drift.Sub(p, opt.anchor.Get(name))
			d.Add(d, scaled(opt.mu, &drift))
		}

		if opt.momentum != 0 {
			buf, found := opt.buffers[name]
			if !found {
				buf = mat.DenseCopyOf(d)
				opt.buffers[name] = buf
			} else {
				buf.Scale(opt.momentum, buf)
				buf.Add(buf, d)
			}
			d = buf
		}

		p.Sub(p, scaled(opt.lr, d))
	}
}

func scaled(f float64, m mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Scale(f, m)
	return &out
}
