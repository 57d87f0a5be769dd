// Package config loads the JSON configuration of a client and of a local simulation.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/common"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/model"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/nets"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/shard"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/text"
)

// ClientConfig describes one client's data and net. Column shards (ShardPath) take
// precedence over an indexed dataset (DatasetPath + Idxs).
type ClientConfig struct {
	ClientId    string              `json:"clientId"`
	Family      model.DatasetFamily `json:"family"`
	ShardPath   string              `json:"shardPath,omitempty"`
	DatasetPath string              `json:"datasetPath,omitempty"`
	Idxs        []int               `json:"idxs,omitempty"`
	VocabPath   string              `json:"vocabPath,omitempty"`
	Net         nets.NetSpec        `json:"net"`
	Seed        uint64              `json:"seed"`
	Port        int                 `json:"port"`
	ResultsDir  string              `json:"resultsDir"`
}

// SimulationConfig drives the in-process coordinator.
type SimulationConfig struct {
	Rounds   int               `json:"rounds"`
	Schedule string            `json:"schedule"`
	Round    model.RoundConfig `json:"round"`
	Clients  []ClientConfig    `json:"clients"`
	Net      nets.NetSpec      `json:"net"`
}

// DefaultRoundConfig fills whatever a simulation config leaves out of its round.
func DefaultRoundConfig() model.RoundConfig {
	return model.RoundConfig{
		Algorithm:    model.FedAvg,
		BatchSize:    common.DEFAULT_BATCH_SIZE,
		LearningRate: common.DEFAULT_LEARNING_RATE,
		LocalEpochs:  common.DEFAULT_LOCAL_EPOCHS,
		HeadEpochs:   common.DEFAULT_HEAD_EPOCHS,
		LocalUpdates: common.DEFAULT_LOCAL_UPDATES,
		Lam:          common.DEFAULT_LAM,
	}
}

func LoadClientConfig(path string) (*ClientConfig, error) {
	cfg := &ClientConfig{
		Port:       common.CLIENT_PORT,
		ResultsDir: common.RESULTS_FOLDER,
	}
	if err := readJSON(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadSimulationConfig(path string) (*SimulationConfig, error) {
	cfg := &SimulationConfig{
		Rounds:   10,
		Schedule: "@every 1s",
		Round:    DefaultRoundConfig(),
	}
	if err := readJSON(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *ClientConfig) Validate() error {
	if cfg.ClientId == "" {
		return fmt.Errorf("%w: missing client id", model.ErrInvalidConfig)
	}
	if cfg.ShardPath == "" && cfg.DatasetPath == "" {
		return fmt.Errorf("%w: client %s has no shard or dataset path", model.ErrInvalidConfig, cfg.ClientId)
	}
	if cfg.Family == model.Sequence {
		// text samples only come as per-user columns
		if cfg.ShardPath == "" || cfg.DatasetPath != "" {
			return fmt.Errorf("%w: client %s of family %s needs a shard path and no dataset path", model.ErrInvalidConfig,
				cfg.ClientId, cfg.Family)
		}
		if cfg.VocabPath == "" {
			return fmt.Errorf("%w: client %s needs a vocabulary for family %s", model.ErrInvalidConfig, cfg.ClientId, cfg.Family)
		}
	}
	if cfg.Port < 0 {
		return fmt.Errorf("%w: port %d", model.ErrInvalidConfig, cfg.Port)
	}
	return nil
}

func (cfg *SimulationConfig) Validate() error {
	if cfg.Rounds <= 0 {
		return fmt.Errorf("%w: rounds %d", model.ErrInvalidConfig, cfg.Rounds)
	}
	if len(cfg.Clients) == 0 {
		return fmt.Errorf("%w: simulation has no clients", model.ErrInvalidConfig)
	}
	if err := cfg.Round.Validate(); err != nil {
		return err
	}

	seen := map[string]bool{}
	for i := range cfg.Clients {
		client := &cfg.Clients[i]
		if client.Family != cfg.Round.Family {
			return fmt.Errorf("%w: client %s has family %s, round has %s", model.ErrInvalidConfig,
				client.ClientId, client.Family, cfg.Round.Family)
		}
		if err := client.Validate(); err != nil {
			return err
		}
		if seen[client.ClientId] {
			return fmt.Errorf("%w: duplicate client id %s", model.ErrInvalidConfig, client.ClientId)
		}
		seen[client.ClientId] = true
	}
	return nil
}

// LoadShard reads the client's data slice from disk.
func (cfg *ClientConfig) LoadShard() (shard.Shard, error) {
	if cfg.ShardPath != "" {
		columns, err := shard.LoadColumnShard(cfg.ShardPath)
		if err != nil {
			return shard.Shard{}, err
		}
		return shard.Shard{Columns: columns}, nil
	}

	dataset, err := shard.LoadDenseDataset(cfg.DatasetPath)
	if err != nil {
		return shard.Shard{}, err
	}
	idxs := cfg.Idxs
	if len(idxs) == 0 {
		idxs = make([]int, dataset.Len())
		for i := range idxs {
			idxs[i] = i
		}
	}
	return shard.Shard{Indexed: dataset, Idxs: idxs}, nil
}

// LoadVocabulary returns nil when the client has no text data.
func (cfg *ClientConfig) LoadVocabulary() (*text.Vocabulary, error) {
	if cfg.VocabPath == "" {
		return nil, nil
	}
	return text.LoadVocabulary(cfg.VocabPath)
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}
