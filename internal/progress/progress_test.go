package progress

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogarithmicRegression(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = 2 - 0.5*math.Log(x+1)
	}

	lr, err := NewLogarithmicRegression(xs, ys)
	require.NoError(t, err)
	assert.InDelta(t, 2-0.5*math.Log(11), lr.PredictY(10), 1e-9)
	assert.InDelta(t, 10, lr.PredictX(2-0.5*math.Log(11)), 1e-6)
	assert.Contains(t, lr.String(), "ln(x+1)")

	_, err = NewLogarithmicRegression([]float64{1}, []float64{1})
	assert.Error(t, err)
	_, err = NewLogarithmicRegression([]float64{1, 2}, []float64{1})
	assert.Error(t, err)

	flat := &LogarithmicRegression{a: 1}
	assert.True(t, math.IsNaN(flat.PredictX(0.5)))
	assert.Equal(t, -1, PredictRoundForLoss(flat, 0.5))
}

func TestLossTracker(t *testing.T) {
	t.Run("converges once the average flattens", func(t *testing.T) {
		tracker := NewLossTracker()
		for _, loss := range []float64{2, 1.5, 1.2, 1.0, 1.0, 1.0, 1.0} {
			tracker.Record(loss)
		}
		assert.True(t, tracker.HasConverged(0.01, 2, 2))
		assert.False(t, tracker.HasConverged(0.01, 4, 2))
	})

	t.Run("not enough rounds", func(t *testing.T) {
		tracker := NewLossTracker()
		tracker.Record(1)
		assert.False(t, tracker.HasConverged(1, 1, 2))
	})

	t.Run("trend predicts a later round for a lower loss", func(t *testing.T) {
		tracker := NewLossTracker()
		for _, loss := range []float64{2, 1.6, 1.4, 1.3, 1.2} {
			tracker.Record(loss)
		}
		trend, err := tracker.Trend()
		require.NoError(t, err)
		assert.Greater(t, PredictRoundForLoss(trend, 1.0), 5)
	})
}

func TestMovingAverage(t *testing.T) {
	assert.Equal(t, []float64{1.5, 2.5}, movingAverage([]float64{1, 2, 3}, 2))
	assert.Nil(t, movingAverage([]float64{1}, 2))
}
