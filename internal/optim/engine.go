package optim

import (
	"fmt"

	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/model"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/nets"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/text"
	"gonum.org/v1/gonum/mat"
)

// Engine performs one forward/backward/update step per batch on a net.
type Engine struct {
	net     nets.Net
	opt     *SGD
	encoder *text.Encoder
	hidden  *mat.Dense
	grads   *model.ParameterMap
}

// NewEngine builds an engine. encoder is required only for text batches.
func NewEngine(net nets.Net, opt *SGD, encoder *text.Encoder) *Engine {
	return &Engine{
		net:     net,
		opt:     opt,
		encoder: encoder,
	}
}

func (e *Engine) Optimizer() *SGD {
	return e.opt
}

// Grads returns the gradients of the last successful step. They are kept until
// ZeroGrad or the next step replaces them.
func (e *Engine) Grads() *model.ParameterMap {
	return e.grads
}

func (e *Engine) ZeroGrad() {
	e.grads = nil
}

// Step trains on one batch under mask and returns the batch loss.
func (e *Engine) Step(batch model.Batch, mask model.TrainabilityMask) (float64, error) {
	var loss float64
	var grads *model.ParameterMap
	var err error
	if recurrent, ok := e.net.(nets.RecurrentNet); ok && batch.Text != nil {
		loss, grads, err = e.recurrentGrads(recurrent, batch)
	} else {
		loss, grads, err = e.denseGrads(batch)
	}
	if err != nil {
		return 0, err
	}

	e.grads = grads
	e.opt.Step(e.net.Parameters(), grads, mask)
	return loss, nil
}

func (e *Engine) denseGrads(batch model.Batch) (float64, *model.ParameterMap, error) {
	if batch.Input == nil {
		return 0, nil, fmt.Errorf("batch has no input matrix")
	}
	logits := e.net.Forward(batch.Input)
	loss, gradLogits, err := CrossEntropy(logits, batch.Labels)
	if err != nil {
		return 0, nil, err
	}
	return loss, e.net.Backward(batch.Input, gradLogits), nil
}

// recurrentGrads threads the hidden state explicitly: the state fed into this batch is
// a constant, and the returned state carries no history of this step.
func (e *Engine) recurrentGrads(net nets.RecurrentNet, batch model.Batch) (float64, *model.ParameterMap, error) {
	if e.encoder == nil {
		return 0, nil, fmt.Errorf("text batch without an encoder")
	}
	input := e.encoder.Inputs(batch.Text)
	targets, err := e.encoder.Targets(batch.Labels)
	if err != nil {
		return 0, nil, err
	}

	rows := batch.Size()
	if e.hidden == nil || e.hidden.RawMatrix().Rows != rows {
		e.hidden = net.InitHidden(rows)
	}

	output, next := net.ForwardRecurrent(input, e.hidden)
	loss, gradLogits, err := CrossEntropy(output.T(), Argmax(targets))
	if err != nil {
		return 0, nil, err
	}

	grads := net.BackwardRecurrent(input, e.hidden, gradLogits)
	e.hidden = next
	return loss, grads, nil
}
