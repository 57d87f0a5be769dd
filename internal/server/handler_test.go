package server

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/common"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/events"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/model"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/nets"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/pfl"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/shard"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*Handler, chan events.Event, string) {
	net, err := nets.Build(model.Image, nets.NetSpec{InputDim: 2, Hidden: []int{4, 4, 4, 4}, Classes: 2, Seed: 1}, nil)
	require.NoError(t, err)

	ds := &shard.DenseDataset{
		Features: [][]float64{{1, 0}, {0, 1}, {1, 0.2}, {0.1, 1}},
		Labels:   []int{0, 1, 0, 1},
	}
	data := shard.Shard{Indexed: ds, Idxs: []int{0, 1, 2, 3}}
	client := pfl.NewClient(hclog.NewNullLogger(), "client-1", model.Image, data, nil, net, 1)

	eventBus := events.NewEventBus()
	finished := make(chan events.Event, 4)
	eventBus.Subscribe(common.ROUND_FINISHED_EVENT_TYPE, finished)

	resultsFile := filepath.Join(t.TempDir(), "results.csv")
	return NewHandler(hclog.NewNullLogger(), eventBus, client, resultsFile), finished, resultsFile
}

func post(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/round/train", bytes.NewBufferString(body))
	rw := httptest.NewRecorder()
	router.ServeHTTP(rw, req)
	return rw
}

func TestTrainRound(t *testing.T) {
	handler, finished, resultsFile := newTestHandler(t)
	router := NewRouter(handler)

	rw := post(t, router, `{"config": {"algorithm": "fedavg", "family": "image", "batchSize": 2,
		"learningRate": 0.1, "localEpochs": 2, "localUpdates": 100}}`)
	require.Equal(t, http.StatusOK, rw.Code, rw.Body.String())

	response := &TrainRoundResponse{}
	require.NoError(t, fromJSON(response, rw.Body))
	assert.NotEmpty(t, response.RoundId)
	assert.Equal(t, 4, response.Result.Steps)
	assert.Equal(t, handler.client.Parameters().Keys(), response.Result.Params.Keys())

	event := <-finished
	data := event.Data.(events.RoundFinishedEvent)
	assert.Equal(t, response.RoundId, data.RoundId)
	assert.NoError(t, data.Err)

	file, err := os.Open(resultsFile)
	require.NoError(t, err)
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{response.RoundId, "fedavg", "4", common.FormatFloat(response.Result.Loss)}, records[0])

	t.Run("summary by round id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/round/"+response.RoundId, nil)
		rw := httptest.NewRecorder()
		router.ServeHTTP(rw, req)
		require.Equal(t, http.StatusOK, rw.Code)

		summary := &RoundSummary{}
		require.NoError(t, fromJSON(summary, rw.Body))
		assert.Equal(t, "client-1", summary.ClientId)
		assert.Equal(t, model.FedAvg, summary.Algorithm)
		assert.Len(t, summary.EpochLosses, 2)
	})

	t.Run("unknown round", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/round/missing", nil)
		rw := httptest.NewRecorder()
		router.ServeHTTP(rw, req)
		assert.Equal(t, http.StatusNotFound, rw.Code)
	})
}

func TestTrainRoundErrors(t *testing.T) {
	handler, finished, _ := newTestHandler(t)
	router := NewRouter(handler)

	t.Run("malformed body", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, post(t, router, `{"config": `).Code)
	})

	t.Run("invalid config", func(t *testing.T) {
		rw := post(t, router, `{"config": {"algorithm": "fedavg", "family": "image", "batchSize": 0,
			"learningRate": 0.1, "localEpochs": 1, "localUpdates": 1}}`)
		assert.Equal(t, http.StatusBadRequest, rw.Code)

		event := <-finished
		assert.ErrorIs(t, event.Data.(events.RoundFinishedEvent).Err, model.ErrInvalidConfig)
	})

	t.Run("dapfl without aggregate", func(t *testing.T) {
		rw := post(t, router, `{"config": {"algorithm": "dapfl", "family": "image", "batchSize": 2,
			"learningRate": 0.1, "localEpochs": 1, "localUpdates": 10}}`)
		assert.Equal(t, http.StatusBadRequest, rw.Code)
		<-finished
	})

	t.Run("wrong method", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/round/train", nil)
		rw := httptest.NewRecorder()
		router.ServeHTTP(rw, req)
		assert.NotEqual(t, http.StatusOK, rw.Code)
	})
}
