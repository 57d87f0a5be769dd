package progress

import (
	"math"
	"sync"
)

// LossTracker records one loss per round.
type LossTracker struct {
	mutex  sync.Mutex
	losses []float64
}

func NewLossTracker() *LossTracker {
	return &LossTracker{}
}

func (tracker *LossTracker) Record(loss float64) {
	tracker.mutex.Lock()
	defer tracker.mutex.Unlock()
	tracker.losses = append(tracker.losses, loss)
}

func (tracker *LossTracker) Losses() []float64 {
	tracker.mutex.Lock()
	defer tracker.mutex.Unlock()
	return append([]float64{}, tracker.losses...)
}

// HasConverged reports whether the last patience changes of the loss moving average
// all stay within threshold.
func (tracker *LossTracker) HasConverged(threshold float64, patience int, windowSize int) bool {
	averages := movingAverage(tracker.Losses(), windowSize)
	if len(averages) < patience+1 {
		return false
	}

	for i := len(averages) - patience; i < len(averages); i++ {
		if math.Abs(averages[i]-averages[i-1]) > threshold {
			return false
		}
	}
	return true
}

// Trend fits the recorded losses against round numbers starting at 1.
func (tracker *LossTracker) Trend() (Regression, error) {
	losses := tracker.Losses()
	rounds := make([]float64, len(losses))
	for i := range losses {
		rounds[i] = float64(i + 1)
	}
	return NewLogarithmicRegression(rounds, losses)
}

// PredictRoundForLoss returns the first round at which the trend reaches loss, or -1.
func PredictRoundForLoss(trend Regression, loss float64) int {
	round := trend.PredictX(loss)
	if math.IsNaN(round) || math.IsInf(round, 0) || round < 0 {
		return -1
	}
	return int(math.Ceil(round))
}

func movingAverage(values []float64, windowSize int) []float64 {
	if windowSize <= 0 || len(values) < windowSize {
		return nil
	}
	averages := make([]float64, len(values)-windowSize+1)
	for i := range averages {
		sum := 0.0
		for _, value := range values[i : i+windowSize] {
			sum += value
		}
		averages[i] = sum / float64(windowSize)
	}
	return averages
}
