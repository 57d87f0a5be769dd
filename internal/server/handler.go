package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/common"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/events"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/model"
	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/pfl"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"
)

type Handler struct {
	logger      hclog.Logger
	eventBus    *events.EventBus
	client      *pfl.Client
	resultsFile string
	mutex       sync.RWMutex
	rounds      map[string]*RoundSummary
}

// NewHandler serves rounds for client. resultsFile may be empty to skip the CSV log.
func NewHandler(logger hclog.Logger, eventBus *events.EventBus, client *pfl.Client, resultsFile string) *Handler {
	return &Handler{
		logger:      logger,
		eventBus:    eventBus,
		client:      client,
		resultsFile: resultsFile,
		rounds:      map[string]*RoundSummary{},
	}
}

// NewRouter wires the handler's routes.
func NewRouter(handler *Handler) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc(common.TRAIN_ROUND_ROUTE, handler.TrainRound).Methods(http.MethodPost)
	router.HandleFunc(common.ROUND_SUMMARY_ROUTE, handler.GetRound).Methods(http.MethodGet)
	return router
}

func (handler *Handler) TrainRound(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Add("Content-Type", "application/json")

	roundId := uuid.New().String()

	request := &TrainRoundRequest{}
	err := fromJSON(request, r.Body)
	if err != nil {
		handler.logger.Error("error decoding round request", "error", err)
		rw.WriteHeader(http.StatusBadRequest)
		toJSON(err.Error(), rw)
		return
	}

	handler.logger.Info(fmt.Sprintf("Starting round %s with algorithm %s, last %t", roundId, request.Config.Algorithm,
		request.Config.Last))

	result, err := handler.client.Round(&request.Config, request.Global, request.Aggregate)
	handler.publish(roundId, &request.Config, result, err)
	if err != nil {
		handler.logger.Error("error training round", "roundId", roundId, "error", err)
		rw.WriteHeader(statusFor(err))
		toJSON(err.Error(), rw)
		return
	}

	summary := &RoundSummary{
		RoundId:     roundId,
		ClientId:    handler.client.Id,
		Algorithm:   request.Config.Algorithm,
		Last:        request.Config.Last,
		Loss:        result.Loss,
		EpochLosses: result.EpochLosses,
		Steps:       result.Steps,
		FinishedAt:  time.Now(),
	}
	handler.mutex.Lock()
	handler.rounds[roundId] = summary
	handler.mutex.Unlock()

	if handler.resultsFile != "" {
		err := common.WriteResultsToFile(handler.resultsFile, roundId, request.Config.Algorithm.String(),
			strconv.Itoa(result.Steps), common.FormatFloat(result.Loss))
		if err != nil {
			handler.logger.Warn("failed to write round results", "error", err)
		}
	}

	rw.WriteHeader(http.StatusOK)
	toJSON(&TrainRoundResponse{RoundId: roundId, Result: result}, rw)
}

func (handler *Handler) GetRound(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Add("Content-Type", "application/json")

	roundId := getURLParameter(r, "roundId")

	handler.mutex.RLock()
	summary := handler.rounds[roundId]
	handler.mutex.RUnlock()

	if summary != nil {
		rw.WriteHeader(http.StatusOK)
		toJSON(summary, rw)
	} else {
		rw.WriteHeader(http.StatusNotFound)
		toJSON("no round with the given ID", rw)
	}
}

func (handler *Handler) publish(roundId string, cfg *model.RoundConfig, result *model.RoundResult, err error) {
	data := events.RoundFinishedEvent{
		RoundId:   roundId,
		ClientId:  handler.client.Id,
		Algorithm: cfg.Algorithm.String(),
		Err:       err,
	}
	if result != nil {
		data.Loss = result.Loss
		data.Steps = result.Steps
	}

	handler.eventBus.Publish(events.Event{
		Type:      common.ROUND_FINISHED_EVENT_TYPE,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// configuration problems are the caller's fault
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidConfig), errors.Is(err, model.ErrParameterMismatch),
		errors.Is(err, model.ErrEmptyShard), errors.Is(err, model.ErrNoBatches):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func getURLParameter(r *http.Request, parameter string) string {
	vars := mux.Vars(r)
	id := vars[parameter]
	return id
}
