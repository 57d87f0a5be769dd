package nets

import (
	"fmt"
	"math"

	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/model"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

const (
	rnnWeightIH = "rnn.weight_ih"
	rnnWeightHH = "rnn.weight_hh"
	rnnBiasIH   = "rnn.bias_ih"
	rnnBiasHH   = "rnn.bias_hh"
	rnnFc1W     = "fc1.weight"
	rnnFc1B     = "fc1.bias"
	rnnFc2W     = "fc2.weight"
	rnnFc2B     = "fc2.bias"
)

// RNN is an Elman recurrent classifier over fixed word embeddings.
// Inputs are batch x steps matrices of token indices; an index outside the
// embedding table (the unknown/pad token) embeds to zeros.
type RNN struct {
	embeddings *mat.Dense
	hiddenDim  int
	params     *model.ParameterMap
}

func NewRNN(embeddings *mat.Dense, hiddenDim, fcDim, classes int, seed uint64) (*RNN, error) {
	if embeddings == nil {
		return nil, fmt.Errorf("rnn needs an embedding table")
	}
	if hiddenDim <= 0 || fcDim <= 0 || classes <= 0 {
		return nil, fmt.Errorf("invalid rnn dims: hidden %d, fc %d, classes %d", hiddenDim, fcDim, classes)
	}
	_, embDim := embeddings.Dims()

	rng := rand.New(rand.NewSource(seed))
	params := model.NewParameterMap()
	params.Set(rnnWeightIH, uniformDense(rng, hiddenDim, embDim, hiddenDim))
	params.Set(rnnWeightHH, uniformDense(rng, hiddenDim, hiddenDim, hiddenDim))
	params.Set(rnnBiasIH, uniformDense(rng, 1, hiddenDim, hiddenDim))
	params.Set(rnnBiasHH, uniformDense(rng, 1, hiddenDim, hiddenDim))
	params.Set(rnnFc1W, uniformDense(rng, fcDim, hiddenDim, hiddenDim))
	params.Set(rnnFc1B, uniformDense(rng, 1, fcDim, hiddenDim))
	params.Set(rnnFc2W, uniformDense(rng, classes, fcDim, fcDim))
	params.Set(rnnFc2B, uniformDense(rng, 1, classes, fcDim))

	return &RNN{
		embeddings: embeddings,
		hiddenDim:  hiddenDim,
		params:     params,
	}, nil
}

func (net *RNN) Parameters() *model.ParameterMap {
	return net.params
}

func (net *RNN) WeightKeys() [][]string {
	return [][]string{
		{rnnWeightIH, rnnWeightHH, rnnBiasIH, rnnBiasHH},
		{rnnFc1W, rnnFc1B},
		{rnnFc2W, rnnFc2B},
	}
}

func (net *RNN) Load(params *model.ParameterMap) error {
	return loadInto(net.params, params)
}

func (net *RNN) InitHidden(batchSize int) *mat.Dense {
	return mat.NewDense(batchSize, net.hiddenDim, nil)
}

// embed returns the batch x embDim embeddings of column step of input.
func (net *RNN) embed(input *mat.Dense, step int) *mat.Dense {
	rows, _ := input.Dims()
	vocabSize, embDim := net.embeddings.Dims()
	x := mat.NewDense(rows, embDim, nil)
	for i := 0; i < rows; i++ {
		token := int(input.At(i, step))
		if token >= 0 && token < vocabSize {
			x.SetRow(i, net.embeddings.RawRowView(token))
		}
	}
	return x
}

type rnnTrace struct {
	xs     []*mat.Dense // embedded inputs per step
	hs     []*mat.Dense // hs[0] is the incoming hidden state, hs[t+1] the state after step t
	fcPre  *mat.Dense
	fcOut  *mat.Dense
	logits *mat.Dense // batch x classes
}

func (net *RNN) forward(input, hidden *mat.Dense) *rnnTrace {
	_, steps := input.Dims()
	trace := &rnnTrace{hs: []*mat.Dense{hidden}}

	h := hidden
	for t := 0; t < steps; t++ {
		x := net.embed(input, t)
		a := affine(x, net.params.Get(rnnWeightIH), net.params.Get(rnnBiasIH))
		a.Add(a, affine(h, net.params.Get(rnnWeightHH), net.params.Get(rnnBiasHH)))
		var next mat.Dense
		next.Apply(func(_, _ int, v float64) float64 { return math.Tanh(v) }, a)
		h = &next
		trace.xs = append(trace.xs, x)
		trace.hs = append(trace.hs, h)
	}

	trace.fcPre = affine(h, net.params.Get(rnnFc1W), net.params.Get(rnnFc1B))
	trace.fcOut = relu(trace.fcPre)
	trace.logits = affine(trace.fcOut, net.params.Get(rnnFc2W), net.params.Get(rnnFc2B))
	return trace
}

func (net *RNN) Forward(input *mat.Dense) *mat.Dense {
	rows, _ := input.Dims()
	return net.forward(input, net.InitHidden(rows)).logits
}

func (net *RNN) ForwardRecurrent(input, hidden *mat.Dense) (*mat.Dense, *mat.Dense) {
	trace := net.forward(input, hidden)
	output := mat.DenseCopyOf(trace.logits.T())
	next := mat.DenseCopyOf(trace.hs[len(trace.hs)-1])
	return output, next
}

func (net *RNN) Backward(input *mat.Dense, gradLogits *mat.Dense) *model.ParameterMap {
	rows, _ := input.Dims()
	return net.BackwardRecurrent(input, net.InitHidden(rows), gradLogits)
}

func (net *RNN) BackwardRecurrent(input, hidden, gradLogits *mat.Dense) *model.ParameterMap {
	trace := net.forward(input, hidden)
	steps := len(trace.xs)

	var dFc2W mat.Dense
	dFc2W.Mul(gradLogits.T(), trace.fcOut)
	dFc2B := columnSums(gradLogits)

	var dFcOut mat.Dense
	dFcOut.Mul(gradLogits, net.params.Get(rnnFc2W))
	dFcPre := reluGrad(&dFcOut, trace.fcPre)

	var dFc1W mat.Dense
	dFc1W.Mul(dFcPre.T(), trace.hs[steps])
	dFc1B := columnSums(dFcPre)

	var dh mat.Dense
	dh.Mul(dFcPre, net.params.Get(rnnFc1W))

	wih := net.params.Get(rnnWeightIH)
	whh := net.params.Get(rnnWeightHH)
	dWih := mat.NewDense(wih.RawMatrix().Rows, wih.RawMatrix().Cols, nil)
	dWhh := mat.NewDense(net.hiddenDim, net.hiddenDim, nil)
	dBias := mat.NewDense(1, net.hiddenDim, nil)

	dNext := &dh
	for t := steps - 1; t >= 0; t-- {
		h := trace.hs[t+1]
		var da mat.Dense
		da.Apply(func(i, j int, v float64) float64 {
			ht := h.At(i, j)
			return v * (1 - ht*ht)
		}, dNext)

		var stepWih, stepWhh mat.Dense
		stepWih.Mul(da.T(), trace.xs[t])
		stepWhh.Mul(da.T(), trace.hs[t])
		dWih.Add(dWih, &stepWih)
		dWhh.Add(dWhh, &stepWhh)
		dBias.Add(dBias, columnSums(&da))

		if t > 0 {
			var prev mat.Dense
			prev.Mul(&da, whh)
			dNext = &prev
		}
	}

	grads := model.NewParameterMap()
	grads.Set(rnnWeightIH, dWih)
	grads.Set(rnnWeightHH, dWhh)
	grads.Set(rnnBiasIH, dBias)
	grads.Set(rnnBiasHH, mat.DenseCopyOf(dBias))
	grads.Set(rnnFc1W, &dFc1W)
	grads.Set(rnnFc1B, dFc1B)
	grads.Set(rnnFc2W, &dFc2W)
	grads.Set(rnnFc2B, dFc2B)
	return grads
}
