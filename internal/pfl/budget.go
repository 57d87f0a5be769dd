package pfl

import (
	"fmt"

	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/common"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/model"
	"github.com/hashicorp/go-hclog"
)

type RoundState int

const (
	Running RoundState = iota
	EpochComplete
	BudgetExhausted
	RoundComplete
)

func (s RoundState) String() string {
	switch s {
	case Running:
		return "RUNNING"
	case EpochComplete:
		return "EPOCH_COMPLETE"
	case BudgetExhausted:
		return "BUDGET_EXHAUSTED"
	case RoundComplete:
		return "ROUND_COMPLETE"
	default:
		return "UNKNOWN"
	}
}

// budget counts gradient steps across the whole round; it is never reset per epoch.
type budget struct {
	ceiling int
	steps   int
}

// spend records one step and reports whether the ceiling has been reached.
func (b *budget) spend() bool {
	b.steps++
	return b.steps >= b.ceiling
}

// BatchSource yields the batches of one epoch.
type BatchSource interface {
	Epoch() ([]model.Batch, error)
}

// roundHooks are the per-epoch and per-batch callbacks of a trainer.
type roundHooks struct {
	beforeEpoch func(epoch int)
	step        func(batch model.Batch) (float64, error)
	afterEpoch  func(epoch int)
}

// roundProgress is the controller's record of a round. truncated holds the batch
// losses of an epoch cut short by the budget and never reaches epochLosses.
type roundProgress struct {
	state       RoundState
	epochLosses []float64
	truncated   []float64
	steps       int
}

// loss is the mean of the completed epochs' means. A round whose budget runs out
// inside its first epoch reports the mean of the batches it did run.
func (p *roundProgress) loss() float64 {
	if len(p.epochLosses) == 0 {
		return common.CalculateAverageFloat64(p.truncated)
	}
	return common.CalculateAverageFloat64(p.epochLosses)
}

// runEpochs drives the epoch loop under the update budget.
func runEpochs(logger hclog.Logger, source BatchSource, epochs int, ceiling int, hooks roundHooks) (*roundProgress, error) {
	progress := &roundProgress{state: Running}
	updates := &budget{ceiling: ceiling}

	for epoch := 0; epoch < epochs && progress.state != BudgetExhausted; epoch++ {
		progress.state = Running
		if hooks.beforeEpoch != nil {
			hooks.beforeEpoch(epoch)
		}

		batches, err := source.Epoch()
		if err != nil {
			return nil, err
		}
		if len(batches) == 0 {
			return nil, fmt.Errorf("%w: epoch %d", model.ErrNoBatches, epoch)
		}

		batchLosses := make([]float64, 0, len(batches))
		for _, batch := range batches {
			loss, err := hooks.step(batch)
			if err != nil {
				return nil, fmt.Errorf("epoch %d, step %d: %w", epoch, updates.steps+1, err)
			}
			batchLosses = append(batchLosses, loss)

			if updates.spend() {
				progress.state = BudgetExhausted
				break
			}
		}
		progress.steps = updates.steps

		if progress.state == BudgetExhausted {
			progress.truncated = batchLosses
			logger.Debug("Update budget exhausted", "epoch", epoch, "steps", updates.steps)
			break
		}

		progress.state = EpochComplete
		epochLoss := common.CalculateAverageFloat64(batchLosses)
		progress.epochLosses = append(progress.epochLosses, epochLoss)
		logger.Debug("Epoch complete", "epoch", epoch, "loss", epochLoss, "steps", updates.steps)

		if hooks.afterEpoch != nil {
			hooks.afterEpoch(epoch)
		}
	}

	if progress.state != BudgetExhausted {
		progress.state = RoundComplete
	}
	return progress, nil
}
