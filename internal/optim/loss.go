package optim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// CrossEntropy returns the mean categorical cross-entropy of logits (batch x classes)
// against class indices, and its gradient with respect to the logits.
func CrossEntropy(logits mat.Matrix, labels []int) (float64, *mat.Dense, error) {
	rows, classes := logits.Dims()
	if rows != len(labels) {
		return 0, nil, fmt.Errorf("%d logit rows for %d labels", rows, len(labels))
	}
	if rows == 0 {
		return 0, nil, fmt.Errorf("empty batch")
	}

	grad := mat.NewDense(rows, classes, nil)
	loss := 0.0
	n := float64(rows)
	for i, label := range labels {
		if label < 0 || label >= classes {
			return 0, nil, fmt.Errorf("label %d outside [0, %d)", label, classes)
		}
		row := grad.RawRowView(i)
		mat.Row(row, i, logits)
		logSumExp := floats.LogSumExp(row)
		loss += logSumExp - row[label]
		for j := range row {
			row[j] = math.Exp(row[j]-logSumExp) / n
		}
		row[label] -= 1 / n
	}
	return loss / n, grad, nil
}

// Argmax returns the column index of each row's largest value.
func Argmax(m mat.Matrix) []int {
	rows, cols := m.Dims()
	out := make([]int, rows)
	for i := 0; i < rows; i++ {
		best := 0
		for j := 1; j < cols; j++ {
			if m.At(i, j) > m.At(i, best) {
				best = j
			}
		}
		out[i] = best
	}
	return out
}
