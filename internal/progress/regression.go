// Package progress tracks the round losses of a simulation: convergence of their
// moving average and a logarithmic trend fitted over rounds.
package progress

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

type Regression interface {
	PredictY(x float64) float64
	PredictX(y float64) float64
	String() string
}

// LogarithmicRegression fits y = a + b*ln(x+1).
type LogarithmicRegression struct {
	a float64
	b float64
}

func NewLogarithmicRegression(xs, ys []float64) (*LogarithmicRegression, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("regression has %d xs and %d ys", len(xs), len(ys))
	}
	if len(xs) < 2 {
		return nil, fmt.Errorf("regression needs at least 2 points, got %d", len(xs))
	}

	// least squares on the log-transformed xs
	X := mat.NewDense(len(xs), 2, nil)
	for i, x := range xs {
		X.Set(i, 0, 1)
		X.Set(i, 1, math.Log(x+1))
	}
	Y := mat.NewVecDense(len(ys), ys)

	var coef mat.VecDense
	if err := coef.SolveVec(X, Y); err != nil {
		return nil, fmt.Errorf("failed to solve regression: %w", err)
	}

	return &LogarithmicRegression{a: coef.AtVec(0), b: coef.AtVec(1)}, nil
}

func (lr *LogarithmicRegression) PredictY(x float64) float64 {
	return lr.a + lr.b*math.Log(x+1)
}

// PredictX inverts the fit; NaN when the trend is flat.
func (lr *LogarithmicRegression) PredictX(y float64) float64 {
	if lr.b == 0 {
		return math.NaN()
	}
	return math.Exp((y-lr.a)/lr.b) - 1
}

func (lr *LogarithmicRegression) String() string {
	return fmt.Sprintf("f(x) = %.4f + %.4f * ln(x+1)", lr.a, lr.b)
}
