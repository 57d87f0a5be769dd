package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/common"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadClientConfig(t *testing.T) {
	dir := t.TempDir()

	t.Run("dense dataset with defaults", func(t *testing.T) {
		path := writeFile(t, dir, "client.json", `{
			"clientId": "c1",
			"family": "cifar10",
			"datasetPath": "data.json",
			"idxs": [0, 2]
		}`)
		cfg, err := LoadClientConfig(path)
		require.NoError(t, err)
		assert.Equal(t, model.Image, cfg.Family)
		assert.Equal(t, common.CLIENT_PORT, cfg.Port)
		assert.Equal(t, []int{0, 2}, cfg.Idxs)
	})

	t.Run("sequence client needs a vocabulary", func(t *testing.T) {
		path := writeFile(t, dir, "sent.json", `{"clientId": "c2", "family": "sent140", "shardPath": "u.json"}`)
		_, err := LoadClientConfig(path)
		assert.ErrorIs(t, err, model.ErrInvalidConfig)
	})

	t.Run("sequence client reads a column shard only", func(t *testing.T) {
		path := writeFile(t, dir, "sent-dense.json", `{"clientId": "c5", "family": "sent140",
			"datasetPath": "data.json", "vocabPath": "vocab.json"}`)
		_, err := LoadClientConfig(path)
		assert.ErrorIs(t, err, model.ErrInvalidConfig)

		path = writeFile(t, dir, "sent-both.json", `{"clientId": "c5", "family": "sent140",
			"shardPath": "u.json", "datasetPath": "data.json", "vocabPath": "vocab.json"}`)
		_, err = LoadClientConfig(path)
		assert.ErrorIs(t, err, model.ErrInvalidConfig)

		path = writeFile(t, dir, "sent-ok.json", `{"clientId": "c5", "family": "sent140",
			"shardPath": "u.json", "vocabPath": "vocab.json"}`)
		cfg, err := LoadClientConfig(path)
		require.NoError(t, err)
		assert.Equal(t, model.Sequence, cfg.Family)
	})

	t.Run("unknown family", func(t *testing.T) {
		path := writeFile(t, dir, "bad.json", `{"clientId": "c3", "family": "audio", "shardPath": "u.json"}`)
		_, err := LoadClientConfig(path)
		assert.ErrorIs(t, err, model.ErrInvalidConfig)
	})

	t.Run("missing data", func(t *testing.T) {
		path := writeFile(t, dir, "nodata.json", `{"clientId": "c4", "family": 1}`)
		_, err := LoadClientConfig(path)
		assert.ErrorIs(t, err, model.ErrInvalidConfig)
	})
}

func TestLoadShard(t *testing.T) {
	dir := t.TempDir()

	t.Run("indexed dataset defaults to every sample", func(t *testing.T) {
		cfg := &ClientConfig{
			ClientId:    "c1",
			DatasetPath: writeFile(t, dir, "data.json", `{"features": [[1], [2], [3]], "labels": [0, 1, 0]}`),
		}
		data, err := cfg.LoadShard()
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2}, data.Idxs)
		assert.Equal(t, 3, data.Indexed.Len())
	})

	t.Run("column shard", func(t *testing.T) {
		cfg := &ClientConfig{
			ClientId:  "c2",
			ShardPath: writeFile(t, dir, "user.json", `{"x": [[0.5, 0.5], [1, 0]], "y": [3, 4]}`),
		}
		data, err := cfg.LoadShard()
		require.NoError(t, err)
		require.NotNil(t, data.Columns)
		assert.Equal(t, []int{3, 4}, data.Columns.Y)
	})

	t.Run("no vocabulary path", func(t *testing.T) {
		vocab, err := (&ClientConfig{}).LoadVocabulary()
		require.NoError(t, err)
		assert.Nil(t, vocab)
	})
}

func TestLoadSimulationConfig(t *testing.T) {
	dir := t.TempDir()

	t.Run("round defaults are kept", func(t *testing.T) {
		path := writeFile(t, dir, "sim.json", `{
			"rounds": 3,
			"round": {"algorithm": "dapfl", "family": "image", "localEpochs": 2},
			"clients": [
				{"clientId": "a", "family": "image", "datasetPath": "d.json"},
				{"clientId": "b", "family": "image", "datasetPath": "d.json"}
			]
		}`)
		cfg, err := LoadSimulationConfig(path)
		require.NoError(t, err)
		assert.Equal(t, model.DAPFL, cfg.Round.Algorithm)
		assert.Equal(t, 2, cfg.Round.LocalEpochs)
		assert.Equal(t, common.DEFAULT_BATCH_SIZE, cfg.Round.BatchSize)
		assert.Equal(t, common.DEFAULT_HEAD_EPOCHS, cfg.Round.HeadEpochs)
		assert.Equal(t, "@every 1s", cfg.Schedule)
	})

	t.Run("duplicate clients", func(t *testing.T) {
		path := writeFile(t, dir, "dup.json", `{
			"round": {"family": "image"},
			"clients": [
				{"clientId": "a", "family": "image", "datasetPath": "d.json"},
				{"clientId": "a", "family": "image", "datasetPath": "d.json"}
			]
		}`)
		_, err := LoadSimulationConfig(path)
		assert.ErrorIs(t, err, model.ErrInvalidConfig)
	})

	t.Run("family mismatch", func(t *testing.T) {
		path := writeFile(t, dir, "mix.json", `{
			"round": {"family": "image"},
			"clients": [{"clientId": "a", "family": "femnist", "shardPath": "u.json"}]
		}`)
		_, err := LoadSimulationConfig(path)
		assert.ErrorIs(t, err, model.ErrInvalidConfig)
	})
}
