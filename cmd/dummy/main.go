package main

import (
	"os"

	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/common"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/config"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/coord"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/events"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/nets"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/pfl"
	"github.com/hashicorp/go-hclog"
	"gonum.org/v1/gonum/mat"
)

func main() {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "pfl-sim",
		Level: hclog.LevelFromString("DEBUG"),
	})

	configPath := "../../configs/simulation.json"
	if len(os.Args) == 2 {
		configPath = os.Args[1]
	}

	simConfig, err := config.LoadSimulationConfig(configPath)
	if err != nil {
		logger.Error("Error loading simulation config", "error", err)
		return
	}

	clients := []*pfl.Client{}
	for i := range simConfig.Clients {
		client, err := simConfig.Clients[i].NewClient(logger, simConfig.Net)
		if err != nil {
			logger.Error("Error creating client", "clientId", simConfig.Clients[i].ClientId, "error", err)
			return
		}
		clients = append(clients, client)
	}

	// the first aggregate is the clients' shared initialization
	vocab, err := simConfig.Clients[0].LoadVocabulary()
	if err != nil {
		logger.Error("Error loading vocabulary", "error", err)
		return
	}
	var embeddings *mat.Dense
	if vocab != nil {
		embeddings = vocab.Embeddings
	}
	layout, err := nets.Build(simConfig.Round.Family, simConfig.Net, embeddings)
	if err != nil {
		logger.Error("Error building initial model", "error", err)
		return
	}

	eventBus := events.NewEventBus()
	finished := make(chan events.Event, 1)
	eventBus.Subscribe(common.SIMULATION_FINISHED_EVENT_TYPE, finished)

	resultsFile := common.GetResultsFileName(common.RESULTS_FOLDER, "simulation")
	var coordinator coord.ICoordinator
	coordinator, err = coord.NewDummyCoordinator(logger, eventBus, clients, simConfig.Round, layout, simConfig.Rounds,
		simConfig.Schedule, resultsFile)
	if err != nil {
		logger.Error("Error creating coordinator", "error", err)
		return
	}

	if err := coordinator.Start(); err != nil {
		logger.Error("Error starting coordinator", "error", err)
		return
	}
	defer coordinator.Stop()

	event := <-finished
	data := event.Data.(events.SimulationFinishedEvent)
	logger.Info("Simulation finished", "exitCode", data.ExitCode, "message", data.ExitMessage, "rounds", data.Rounds,
		"parameters", coordinator.Aggregate().NumElements())
}
