package main

import (
	"io"
	"os"
	"strconv"

	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/common"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/config"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/events"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/server"
	"github.com/hashicorp/go-hclog"
)

func main() {
	_ = os.Mkdir(common.LOG_FOLDER, 0777)
	logFile, err := os.OpenFile(common.LOG_FOLDER+"/run.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0777)
	if err != nil {
		panic(err)
	}
	defer func() {
		if err := logFile.Close(); err != nil {
			panic(err)
		}
	}()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "pfl-client",
		Level:  hclog.LevelFromString("DEBUG"),
		Output: io.MultiWriter(os.Stdout, logFile),
	})

	configPath := "../../configs/client.json"
	if len(os.Args) >= 2 {
		configPath = os.Args[1]
	}

	clientConfig, err := config.LoadClientConfig(configPath)
	if err != nil {
		logger.Error("Error loading client config", "error", err)
		return
	}
	if len(os.Args) == 3 {
		port, err := strconv.Atoi(os.Args[2])
		if err != nil {
			logger.Error("Invalid port", "port", os.Args[2])
			return
		}
		clientConfig.Port = port
	}

	client, err := clientConfig.NewClient(logger, clientConfig.Net)
	if err != nil {
		logger.Error("Error initializing client", "error", err)
		return
	}
	logger.Info("Client ready", "clientId", client.Id, "family", client.Family, "samples", client.NumSamples())

	eventBus := events.NewEventBus()
	roundsFinished := make(chan events.Event, 16)
	eventBus.Subscribe(common.ROUND_FINISHED_EVENT_TYPE, roundsFinished)
	go func() {
		for event := range roundsFinished {
			data := event.Data.(events.RoundFinishedEvent)
			if data.Err != nil {
				logger.Warn("Round failed", "roundId", data.RoundId, "error", data.Err)
				continue
			}
			logger.Debug("Round finished", "roundId", data.RoundId, "loss", data.Loss, "steps", data.Steps)
		}
	}()

	resultsFile := common.GetResultsFileName(clientConfig.ResultsDir, "rounds_"+clientConfig.ClientId)
	handler := server.NewHandler(logger, eventBus, client, resultsFile)

	if err := server.StartHttpServer(logger, server.NewRouter(handler), clientConfig.Port); err != nil {
		logger.Error("Round API stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("Client stopped", "clientId", client.Id)
}
