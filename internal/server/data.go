package server

import (
	"encoding/json"
	"io"
	"time"

	"github.com/AIoTwin-Adaptive-FL-Orch/pfl-client/internal/model"
)

func toJSON(i interface{}, w io.Writer) error {
	e := json.NewEncoder(w)
	return e.Encode(i)
}

func fromJSON(i interface{}, r io.Reader) error {
	d := json.NewDecoder(r)
	return d.Decode(i)
}

// TrainRoundRequest carries a coordinator's round. Global replaces the client's
// weights before training; Aggregate is the DA-PFL proximal target.
type TrainRoundRequest struct {
	Config    model.RoundConfig   `json:"config"`
	Global    *model.ParameterMap `json:"global,omitempty"`
	Aggregate *model.ParameterMap `json:"aggregate,omitempty"`
}

type TrainRoundResponse struct {
	RoundId string             `json:"roundId"`
	Result  *model.RoundResult `json:"result"`
}

type RoundSummary struct {
	RoundId     string          `json:"roundId"`
	ClientId    string          `json:"clientId"`
	Algorithm   model.Algorithm `json:"algorithm"`
	Last        bool            `json:"last"`
	Loss        float64         `json:"loss"`
	EpochLosses []float64       `json:"epochLosses"`
	Steps       int             `json:"steps"`
	FinishedAt  time.Time       `json:"finishedAt"`
}
