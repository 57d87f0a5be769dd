package coord

import "github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/model"

type ICoordinator interface {
	Start() error
	Stop()
	RunRound() (float64, error)
	Aggregate() *model.ParameterMap
}
