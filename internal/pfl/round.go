package pfl

import (
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/model"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/nets"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/shard"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/text"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/exp/rand"
)

// TrainRound picks the update rule of cfg.Algorithm and runs one local round on net.
// agg is used by DA-PFL only.
func TrainRound(logger hclog.Logger, cfg *model.RoundConfig, data shard.Shard, vocab *text.Vocabulary,
	rng *rand.Rand, net nets.Net, agg *model.ParameterMap) (*model.RoundResult, error) {
	if cfg.Algorithm == model.DAPFL {
		update, err := NewDAPFLUpdate(logger, cfg, data, vocab, rng)
		if err != nil {
			return nil, err
		}
		return update.Train(net, agg)
	}

	update, err := NewLocalUpdate(logger, cfg, data, vocab, rng)
	if err != nil {
		return nil, err
	}
	return update.Train(net)
}
