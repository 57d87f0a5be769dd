package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// RoundConfig carries the per-round hyperparameters supplied by the coordinator.
type RoundConfig struct {
	Algorithm    Algorithm     `json:"algorithm"`
	Family       DatasetFamily `json:"family"`
	BatchSize    int           `json:"batchSize"`
	LearningRate float64       `json:"learningRate"`
	LocalEpochs  int           `json:"localEpochs"`
	HeadEpochs   int           `json:"headEpochs"`
	LocalUpdates int           `json:"localUpdates"`
	Lam          float64       `json:"lam"`
	Mu           float64       `json:"mu"`
	Last         bool          `json:"last"`
	// SharedKeys overrides the family table when non-empty.
	SharedKeys []string `json:"sharedKeys,omitempty"`
}

// Validate checks the hyperparameters a local round cannot run without.
func (cfg *RoundConfig) Validate() error {
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size %d", ErrInvalidConfig, cfg.BatchSize)
	}
	if cfg.LearningRate <= 0 {
		return fmt.Errorf("%w: learning rate %f", ErrInvalidConfig, cfg.LearningRate)
	}
	if cfg.LocalEpochs <= 0 {
		return fmt.Errorf("%w: local epochs %d", ErrInvalidConfig, cfg.LocalEpochs)
	}
	if cfg.HeadEpochs < 0 {
		return fmt.Errorf("%w: head epochs %d", ErrInvalidConfig, cfg.HeadEpochs)
	}
	if cfg.LocalUpdates <= 0 {
		return fmt.Errorf("%w: update budget %d", ErrInvalidConfig, cfg.LocalUpdates)
	}
	if cfg.Lam < 0 || cfg.Mu < 0 {
		return fmt.Errorf("%w: negative lam %f or mu %f", ErrInvalidConfig, cfg.Lam, cfg.Mu)
	}
	return nil
}

// Batch is one step's worth of samples. Input rows are samples; Text is set instead of
// Input for sequence batches that still need encoding.
type Batch struct {
	Input  *mat.Dense
	Labels []int
	Text   []string
}

// Size returns the leading dimension of the batch.
func (b Batch) Size() int {
	if b.Text != nil {
		return len(b.Text)
	}
	return len(b.Labels)
}

// RoundResult is what a client hands back to the coordinator after a local round.
type RoundResult struct {
	Params      *ParameterMap  `json:"params"`
	Loss        float64        `json:"loss"`
	Vocab       map[string]int `json:"vocab,omitempty"`
	EpochLosses []float64      `json:"epochLosses"`
	Steps       int            `json:"steps"`
}
