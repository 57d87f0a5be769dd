// Package partition decides which parameters train in each epoch of a local round.
package partition

import (
	"fmt"

	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/model"
)

const (
	LastRoundEpochs     = 10
	LastRoundMAMLEpochs = 5
)

type sharedIndexes struct {
	// groups index the net's ordered parameter groups; flat indexes its ordered parameter names
	groups []int
	flat   []int
}

var sharedKeyTable = map[model.DatasetFamily]sharedIndexes{
	model.Image:      {groups: []int{0, 1, 3, 4}},
	model.Character:  {groups: []int{0, 1, 2}},
	model.Sequence:   {flat: []int{0, 1, 2, 3, 4, 5}},
	model.LargeImage: {groups: []int{4, 5, 6, 7, 8}},
}

// Layout is the parameter naming a partitioner needs from a net.
type Layout interface {
	WeightKeys() [][]string
	Parameters() *model.ParameterMap
}

// Partitioner holds the resolved plan of one local round.
type Partitioner struct {
	algorithm  model.Algorithm
	last       bool
	epochs     int
	headEpochs int
	names      []string
	shared     map[string]bool
}

// New resolves the effective epoch count and shared-representation key set for a round.
func New(cfg *model.RoundConfig, layout Layout) (*Partitioner, error) {
	if cfg.LocalEpochs <= 0 {
		return nil, fmt.Errorf("%w: local epochs %d", model.ErrInvalidConfig, cfg.LocalEpochs)
	}
	if cfg.HeadEpochs < 0 {
		return nil, fmt.Errorf("%w: head epochs %d", model.ErrInvalidConfig, cfg.HeadEpochs)
	}

	names := layout.Parameters().Keys()
	sharedKeys := cfg.SharedKeys
	if len(sharedKeys) == 0 {
		var err error
		sharedKeys, err = SharedKeys(cfg.Family, layout)
		if err != nil {
			return nil, err
		}
	}

	shared := make(map[string]bool, len(sharedKeys))
	params := layout.Parameters()
	for _, key := range sharedKeys {
		if !params.Has(key) {
			return nil, fmt.Errorf("%w: shared key %q is not a parameter", model.ErrInvalidConfig, key)
		}
		shared[key] = true
	}

	p := &Partitioner{
		algorithm:  cfg.Algorithm,
		last:       cfg.Last,
		epochs:     cfg.LocalEpochs,
		headEpochs: cfg.HeadEpochs,
		names:      names,
		shared:     shared,
	}

	if cfg.Last {
		switch cfg.Algorithm {
		case model.FedAvg, model.Prox:
			p.epochs = LastRoundEpochs
		case model.MAML:
			p.epochs = LastRoundMAMLEpochs
			p.shared = map[string]bool{}
		case model.FedRep:
			p.epochs = max(LastRoundEpochs, cfg.HeadEpochs)
		}
	}

	return p, nil
}

// SharedKeys selects the shared-representation parameter names of a family from the net layout.
func SharedKeys(family model.DatasetFamily, layout Layout) ([]string, error) {
	indexes, found := sharedKeyTable[family]
	if !found {
		return nil, fmt.Errorf("%w: no shared key table for family %s", model.ErrInvalidConfig, family)
	}

	keys := []string{}
	groups := layout.WeightKeys()
	for _, i := range indexes.groups {
		if i >= len(groups) {
			return nil, fmt.Errorf("%w: family %s needs parameter group %d, net has %d", model.ErrInvalidConfig, family, i, len(groups))
		}
		keys = append(keys, groups[i]...)
	}

	names := layout.Parameters().Keys()
	for _, i := range indexes.flat {
		if i >= len(names) {
			return nil, fmt.Errorf("%w: family %s needs parameter %d, net has %d", model.ErrInvalidConfig, family, i, len(names))
		}
		keys = append(keys, names[i])
	}
	return keys, nil
}

// Epochs returns the number of local epochs the round runs.
func (p *Partitioner) Epochs() int {
	return p.epochs
}

// Shared returns the shared-representation names in parameter order.
func (p *Partitioner) Shared() []string {
	shared := []string{}
	for _, name := range p.names {
		if p.shared[name] {
			shared = append(shared, name)
		}
	}
	return shared
}

// Mask returns the trainability of every parameter during the given epoch.
func (p *Partitioner) Mask(epoch int) model.TrainabilityMask {
	switch {
	case p.algorithm == model.FedRep && !p.last && epoch >= p.headEpochs:
		// representation phase: head frozen
		return model.NewTrainabilityMask(p.names, func(name string) bool { return p.shared[name] })
	case p.algorithm == model.FedRep || (p.last && p.freezesOnLastRound()):
		// head phase: shared representation frozen
		return model.NewTrainabilityMask(p.names, func(name string) bool { return !p.shared[name] })
	default:
		return model.NewTrainabilityMask(p.names, func(string) bool { return true })
	}
}

func (p *Partitioner) freezesOnLastRound() bool {
	switch p.algorithm {
	case model.FedAvg, model.Prox, model.MAML:
		return true
	}
	return false
}
