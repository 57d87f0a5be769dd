package coord

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/common"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/events"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/model"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/partition"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/pfl"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/progress"
	"github.com/hashicorp/go-hclog"
	"github.com/robfig/cron/v3"
)

var _ ICoordinator = (*DummyCoordinator)(nil)

// DummyCoordinator drives rounds over in-process clients on a cron schedule.
type DummyCoordinator struct {
	logger        hclog.Logger
	eventBus      *events.EventBus
	cronScheduler *cron.Cron
	schedule      string
	clients       []*pfl.Client
	roundCfg      model.RoundConfig
	shared        []string
	rounds        int
	tracker       *progress.LossTracker
	resultsFile   string

	mutex     sync.Mutex
	aggregate *model.ParameterMap
	round     int
	lastRound int
	finished  bool
}

// NewDummyCoordinator starts from the parameters of layout as the first aggregate.
func NewDummyCoordinator(logger hclog.Logger, eventBus *events.EventBus, clients []*pfl.Client, roundCfg model.RoundConfig,
	layout partition.Layout, rounds int, schedule string, resultsFile string) (*DummyCoordinator, error) {
	if len(clients) == 0 {
		return nil, fmt.Errorf("%w: no clients", model.ErrInvalidConfig)
	}
	if rounds <= 0 {
		return nil, fmt.Errorf("%w: rounds %d", model.ErrInvalidConfig, rounds)
	}
	if err := roundCfg.Validate(); err != nil {
		return nil, err
	}

	shared := roundCfg.SharedKeys
	if len(shared) == 0 {
		var err error
		shared, err = partition.SharedKeys(roundCfg.Family, layout)
		if err != nil {
			return nil, err
		}
	}

	cronLogger := cron.PrintfLogger(logger.StandardLogger(&hclog.StandardLoggerOptions{}))

	return &DummyCoordinator{
		logger:        logger,
		eventBus:      eventBus,
		cronScheduler: cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cronLogger))),
		schedule:      schedule,
		clients:       clients,
		roundCfg:      roundCfg,
		shared:        shared,
		rounds:        rounds,
		tracker:       progress.NewLossTracker(),
		resultsFile:   resultsFile,
		aggregate:     layout.Parameters().Clone(),
		lastRound:     rounds - 1,
	}, nil
}

func (coord *DummyCoordinator) Start() error {
	_, err := coord.cronScheduler.AddFunc(coord.schedule, coord.tick)
	if err != nil {
		return err
	}

	for _, client := range coord.clients {
		node := client.Node()
		coord.logger.Debug("Client registered", "clientId", node.Id, "samples", node.NumSamples,
			"distribution", node.DataDistribution)
	}
	coord.logger.Info("Starting simulation", "clients", len(coord.clients), "rounds", coord.rounds,
		"algorithm", coord.roundCfg.Algorithm)
	coord.cronScheduler.Start()
	return nil
}

func (coord *DummyCoordinator) Stop() {
	coord.cronScheduler.Stop()
}

func (coord *DummyCoordinator) Aggregate() *model.ParameterMap {
	coord.mutex.Lock()
	defer coord.mutex.Unlock()
	return coord.aggregate.Clone()
}

func (coord *DummyCoordinator) Losses() []float64 {
	return coord.tracker.Losses()
}

func (coord *DummyCoordinator) tick() {
	coord.mutex.Lock()
	finished := coord.finished
	coord.mutex.Unlock()
	if finished {
		return
	}

	if _, err := coord.RunRound(); err != nil {
		coord.logger.Error("Round failed", "error", err)
		coord.finish(1, err.Error())
	}
}

// RunRound trains every client once in parallel and aggregates their parameters.
// It returns the mean client loss.
func (coord *DummyCoordinator) RunRound() (float64, error) {
	coord.mutex.Lock()
	defer coord.mutex.Unlock()

	if coord.finished {
		return 0, fmt.Errorf("simulation already finished")
	}

	cfg := coord.roundCfg
	cfg.Last = coord.round == coord.lastRound

	results := make([]*model.RoundResult, len(coord.clients))
	errs := make([]error, len(coord.clients))
	var wg sync.WaitGroup
	for i, client := range coord.clients {
		wg.Add(1)
		go func(i int, client *pfl.Client) {
			defer wg.Done()
			clientCfg := cfg
			global, agg := coord.roundInputs(client)
			results[i], errs[i] = client.Round(&clientCfg, global, agg)
		}(i, client)
	}
	wg.Wait()

	params := make([]*model.ParameterMap, 0, len(results))
	losses := make([]float64, 0, len(results))
	for i, result := range results {
		if errs[i] != nil {
			return 0, fmt.Errorf("client %s: %w", coord.clients[i].Id, errs[i])
		}
		params = append(params, result.Params)
		losses = append(losses, result.Loss)
	}

	aggregate, err := MeanAggregate(params)
	if err != nil {
		return 0, err
	}
	coord.aggregate = aggregate

	loss := common.CalculateAverageFloat64(losses)
	coord.tracker.Record(loss)
	coord.logger.Info("Round finished", "round", coord.round, "last", cfg.Last, "loss", loss)

	if coord.resultsFile != "" {
		if err := common.WriteResultsToFile(coord.resultsFile, strconv.Itoa(coord.round), common.FormatFloat(loss)); err != nil {
			coord.logger.Warn("failed to write round results", "error", err)
		}
	}

	if cfg.Last {
		coord.finishLocked(0, "simulation finished")
	} else if coord.round+1 < coord.lastRound &&
		coord.tracker.HasConverged(common.CONVERGENCE_THRESHOLD, common.CONVERGENCE_WINDOW, common.CONVERGENCE_WINDOW) {
		coord.logger.Info("Loss converged, scheduling the final round", "round", coord.round+1)
		coord.lastRound = coord.round + 1
	}
	coord.round++

	return loss, nil
}

// roundInputs returns what a client loads before training and its DA-PFL target.
func (coord *DummyCoordinator) roundInputs(client *pfl.Client) (*model.ParameterMap, *model.ParameterMap) {
	switch coord.roundCfg.Algorithm {
	case model.DAPFL:
		return nil, coord.aggregate
	case model.FedRep:
		return withShared(client.Parameters(), coord.aggregate, coord.shared), nil
	default:
		return coord.aggregate, nil
	}
}

func (coord *DummyCoordinator) finish(exitCode int32, message string) {
	coord.mutex.Lock()
	defer coord.mutex.Unlock()
	coord.finishLocked(exitCode, message)
}

func (coord *DummyCoordinator) finishLocked(exitCode int32, message string) {
	if coord.finished {
		return
	}
	coord.finished = true

	if trend, err := coord.tracker.Trend(); err == nil {
		coord.logger.Info("Loss trend", "function", trend.String())
	}

	go coord.eventBus.Publish(events.Event{
		Type:      common.SIMULATION_FINISHED_EVENT_TYPE,
		Timestamp: time.Now(),
		Data: events.SimulationFinishedEvent{
			ExitCode:    exitCode,
			ExitMessage: message,
			Rounds:      coord.round + 1,
		},
	})
}
