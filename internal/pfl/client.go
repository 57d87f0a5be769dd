package pfl

import (
	"strconv"
	"sync"

	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/model"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/nets"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/shard"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/text"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/exp/rand"
)

// Client owns one participant's shard and personal net across rounds.
// Rounds on the same client are serialized.
type Client struct {
	Id     string
	Family model.DatasetFamily

	logger hclog.Logger
	data   shard.Shard
	vocab  *text.Vocabulary
	net    nets.Net
	rng    *rand.Rand
	mutex  sync.Mutex
}

func NewClient(logger hclog.Logger, id string, family model.DatasetFamily, data shard.Shard, vocab *text.Vocabulary,
	net nets.Net, seed uint64) *Client {
	return &Client{
		Id:     id,
		Family: family,
		logger: logger.Named(id),
		data:   data,
		vocab:  vocab,
		net:    net,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Round optionally loads global into the personal net, then trains one local round.
// A round that fails leaves the personal net as it was before the call.
func (client *Client) Round(cfg *model.RoundConfig, global *model.ParameterMap, agg *model.ParameterMap) (*model.RoundResult, error) {
	client.mutex.Lock()
	defer client.mutex.Unlock()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	snapshot := client.net.Parameters().Clone()
	result, err := client.round(cfg, global, agg)
	if err != nil {
		if restoreErr := client.net.Load(snapshot); restoreErr != nil {
			client.logger.Error("Failed to restore personal net", "error", restoreErr)
		}
		return nil, err
	}
	return result, nil
}

func (client *Client) round(cfg *model.RoundConfig, global *model.ParameterMap, agg *model.ParameterMap) (*model.RoundResult, error) {
	if global != nil {
		if err := client.net.Load(global); err != nil {
			return nil, err
		}
	}
	return TrainRound(client.logger, cfg, client.data, client.vocab, client.rng, client.net, agg)
}

// Parameters returns a snapshot of the personal net.
func (client *Client) Parameters() *model.ParameterMap {
	client.mutex.Lock()
	defer client.mutex.Unlock()
	return client.net.Parameters().Clone()
}

// NumSamples returns the size of the client's shard.
func (client *Client) NumSamples() int {
	if client.data.Columns != nil {
		return client.data.Columns.Len()
	}
	return len(client.data.Idxs)
}

// Node describes the client with its label distribution.
func (client *Client) Node() model.ClientNode {
	distribution := map[string]int64{}
	if client.data.Columns != nil {
		for _, label := range client.data.Columns.Y {
			distribution[strconv.Itoa(label)]++
		}
	} else {
		for _, idx := range client.data.Idxs {
			_, label := client.data.Indexed.Sample(idx)
			distribution[strconv.Itoa(label)]++
		}
	}

	return model.ClientNode{
		Id:               client.Id,
		Family:           client.Family,
		NumSamples:       client.NumSamples(),
		DataDistribution: distribution,
	}
}
