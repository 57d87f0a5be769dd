// Package pfl runs one client's local round: the plain and partitioned update
// rules, the DA-PFL blended update and the epoch/budget controller they share.
package pfl

import (
	"fmt"

	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/model"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/nets"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/optim"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/partition"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/shard"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/text"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/exp/rand"
)

// LocalUpdate trains a net on the client's shard with FedAvg, Prox, FedRep or MAML semantics.
type LocalUpdate struct {
	logger hclog.Logger
	cfg    *model.RoundConfig
	view   *shard.View
	vocab  *text.Vocabulary
}

// NewLocalUpdate validates the round config and prepares the shard view. vocab is
// required for the sequence family and ignored otherwise.
func NewLocalUpdate(logger hclog.Logger, cfg *model.RoundConfig, data shard.Shard, vocab *text.Vocabulary,
	rng *rand.Rand) (*LocalUpdate, error) {
	view, err := newRoundView(cfg, data, vocab, rng)
	if err != nil {
		return nil, err
	}

	return &LocalUpdate{
		logger: logger,
		cfg:    cfg,
		view:   view,
		vocab:  vocab,
	}, nil
}

// Train runs the round on net in place and returns a snapshot of the trained parameters.
func (update *LocalUpdate) Train(net nets.Net) (*model.RoundResult, error) {
	plan, err := partition.New(update.cfg, net)
	if err != nil {
		return nil, err
	}

	opt := optim.NewSGD(net.Parameters(), update.cfg.LearningRate)
	if update.cfg.Algorithm == model.Prox {
		opt.WithProximal(net.Parameters().Clone(), update.cfg.Mu)
	}
	engine := optim.NewEngine(net, opt, encoderFor(update.vocab))

	var mask model.TrainabilityMask
	progress, err := runEpochs(update.logger, update.view, plan.Epochs(), update.cfg.LocalUpdates, roundHooks{
		beforeEpoch: func(epoch int) {
			mask = plan.Mask(epoch)
		},
		step: func(batch model.Batch) (float64, error) {
			return engine.Step(batch, mask)
		},
	})
	if err != nil {
		return nil, err
	}

	update.logger.Info("Local round finished", "algorithm", update.cfg.Algorithm, "last", update.cfg.Last,
		"epochs", len(progress.epochLosses), "steps", progress.steps, "state", progress.state, "loss", progress.loss(),
		"samples", update.view.Len(), "parameters", net.Parameters().NumElements())

	return newRoundResult(net, update.vocab, progress), nil
}

func newRoundView(cfg *model.RoundConfig, data shard.Shard, vocab *text.Vocabulary, rng *rand.Rand) (*shard.View, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Family == model.Sequence && vocab == nil {
		return nil, fmt.Errorf("%w: sequence family needs a vocabulary", model.ErrInvalidConfig)
	}
	return shard.NewView(data, cfg.Family, cfg.BatchSize, rng)
}

func encoderFor(vocab *text.Vocabulary) *text.Encoder {
	if vocab == nil {
		return nil
	}
	return text.NewEncoder(vocab.Index, text.SentimentClasses)
}

func newRoundResult(net nets.Net, vocab *text.Vocabulary, progress *roundProgress) *model.RoundResult {
	result := &model.RoundResult{
		Params:      net.Parameters().Clone(),
		Loss:        progress.loss(),
		EpochLosses: progress.epochLosses,
		Steps:       progress.steps,
	}
	if vocab != nil {
		result.Vocab = vocab.Index
	}
	return result
}
