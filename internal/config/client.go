package config

import (
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/nets"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/pfl"
	"github.com/hashicorp/go-hclog"
	"gonum.org/v1/gonum/mat"
)

// NewClient loads the client's data and builds its net from spec.
func (cfg *ClientConfig) NewClient(logger hclog.Logger, spec nets.NetSpec) (*pfl.Client, error) {
	data, err := cfg.LoadShard()
	if err != nil {
		return nil, err
	}
	vocab, err := cfg.LoadVocabulary()
	if err != nil {
		return nil, err
	}

	var embeddings *mat.Dense
	if vocab != nil {
		embeddings = vocab.Embeddings
	}
	net, err := nets.Build(cfg.Family, spec, embeddings)
	if err != nil {
		return nil, err
	}

	return pfl.NewClient(logger, cfg.ClientId, cfg.Family, data, vocab, net, cfg.Seed), nil
}
