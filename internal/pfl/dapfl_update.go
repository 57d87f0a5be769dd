package pfl

import (
	"fmt"

	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/common"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/model"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/nets"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/optim"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/partition"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/shard"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/text"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/exp/rand"
)

// DAPFLUpdate trains with a proximal pull toward the coordinator aggregate after every step.
type DAPFLUpdate struct {
	logger hclog.Logger
	cfg    *model.RoundConfig
	view   *shard.View
	vocab  *text.Vocabulary
}

func NewDAPFLUpdate(logger hclog.Logger, cfg *model.RoundConfig, data shard.Shard, vocab *text.Vocabulary,
	rng *rand.Rand) (*DAPFLUpdate, error) {
	view, err := newRoundView(cfg, data, vocab, rng)
	if err != nil {
		return nil, err
	}

	return &DAPFLUpdate{
		logger: logger,
		cfg:    cfg,
		view:   view,
		vocab:  vocab,
	}, nil
}

// Train runs the round on net in place. agg must match the net's parameter layout and
// is only read.
func (update *DAPFLUpdate) Train(net nets.Net, agg *model.ParameterMap) (*model.RoundResult, error) {
	if agg == nil {
		return nil, fmt.Errorf("%w: missing aggregate", model.ErrParameterMismatch)
	}
	if err := net.Parameters().CheckCompatible(agg); err != nil {
		return nil, err
	}

	plan, err := partition.New(update.cfg, net)
	if err != nil {
		return nil, err
	}

	baseLR := update.cfg.LearningRate
	opt := optim.NewSGD(net.Parameters(), baseLR)
	engine := optim.NewEngine(net, opt, encoderFor(update.vocab))

	var mask model.TrainabilityMask
	progress, err := runEpochs(update.logger, update.view, plan.Epochs(), update.cfg.LocalUpdates, roundHooks{
		beforeEpoch: func(epoch int) {
			mask = plan.Mask(epoch)
		},
		step: func(batch model.Batch) (float64, error) {
			pre := net.Parameters().Clone()
			loss, err := engine.Step(batch, mask)
			if err != nil {
				return 0, err
			}

			blended, err := Blend(pre, net.Parameters(), agg, baseLR, update.cfg.Lam)
			if err != nil {
				return 0, err
			}
			if err := net.Load(blended); err != nil {
				return 0, err
			}
			engine.ZeroGrad()
			return loss, nil
		},
		afterEpoch: func(epoch int) {
			decayed := engine.Optimizer()
			decayed.SetLR(decayed.LR() * common.LR_DECAY_GAMMA)
		},
	})
	if err != nil {
		return nil, err
	}

	update.logger.Info("DA-PFL round finished", "epochs", len(progress.epochLosses), "steps", progress.steps,
		"state", progress.state, "loss", progress.loss(), "lr", opt.LR(), "samples", update.view.Len(),
		"parameters", net.Parameters().NumElements())

	return newRoundResult(net, update.vocab, progress), nil
}
