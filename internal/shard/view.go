package shard

import (
	"fmt"

	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/model"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// View yields the batches of a shard, reshuffled at the start of every epoch.
type View struct {
	shard     Shard
	family    model.DatasetFamily
	batchSize int
	rng       *rand.Rand
	positions []int
}

func NewView(shard Shard, family model.DatasetFamily, batchSize int, rng *rand.Rand) (*View, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size %d", model.ErrInvalidConfig, batchSize)
	}

	var positions []int
	if shard.isColumnar() {
		if err := shard.Columns.validate(); err != nil {
			return nil, fmt.Errorf("%w: %s", model.ErrInvalidConfig, err.Error())
		}
		positions = make([]int, shard.Columns.Len())
		for i := range positions {
			positions[i] = i
		}
	} else {
		if shard.Indexed == nil {
			return nil, fmt.Errorf("%w: no dataset", model.ErrEmptyShard)
		}
		for _, idx := range shard.Idxs {
			if idx < 0 || idx >= shard.Indexed.Len() {
				return nil, fmt.Errorf("%w: sample index %d out of range [0, %d)", model.ErrInvalidConfig, idx, shard.Indexed.Len())
			}
		}
		positions = append([]int{}, shard.Idxs...)
	}

	if len(positions) == 0 {
		return nil, model.ErrEmptyShard
	}

	return &View{
		shard:     shard,
		family:    family,
		batchSize: batchSize,
		rng:       rng,
		positions: positions,
	}, nil
}

// Len returns the number of samples seen per epoch.
func (v *View) Len() int {
	return len(v.positions)
}

// Epoch reshuffles the shard and returns the epoch's batches. Sequence shards
// skip a trailing short batch; other families keep it.
func (v *View) Epoch() ([]model.Batch, error) {
	v.rng.Shuffle(len(v.positions), func(i, j int) {
		v.positions[i], v.positions[j] = v.positions[j], v.positions[i]
	})

	batches := []model.Batch{}
	for start := 0; start < len(v.positions); start += v.batchSize {
		end := start + v.batchSize
		if end > len(v.positions) {
			if v.family == model.Sequence && v.batchSize != 1 {
				break
			}
			end = len(v.positions)
		}

		batch, err := v.batch(v.positions[start:end])
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}
	return batches, nil
}

func (v *View) batch(positions []int) (model.Batch, error) {
	labels := make([]int, len(positions))

	if v.shard.isColumnar() && v.shard.Columns.Text != nil {
		texts := make([]string, len(positions))
		for i, pos := range positions {
			texts[i] = v.shard.Columns.Text[pos]
			labels[i] = v.shard.Columns.Y[pos]
		}
		return model.Batch{Text: texts, Labels: labels}, nil
	}

	var input *mat.Dense
	for i, pos := range positions {
		var features []float64
		if v.shard.isColumnar() {
			features, labels[i] = v.shard.Columns.X[pos], v.shard.Columns.Y[pos]
		} else {
			features, labels[i] = v.shard.Indexed.Sample(pos)
		}

		if input == nil {
			if len(features) == 0 {
				return model.Batch{}, fmt.Errorf("%w: sample %d has no features", model.ErrInvalidConfig, pos)
			}
			input = mat.NewDense(len(positions), len(features), nil)
		}
		if _, cols := input.Dims(); cols != len(features) {
			return model.Batch{}, fmt.Errorf("%w: sample %d has %d features, expected %d", model.ErrInvalidConfig, pos, len(features), cols)
		}
		input.SetRow(i, features)
	}
	return model.Batch{Input: input, Labels: labels}, nil
}
