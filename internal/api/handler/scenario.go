package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/reflexpool/internal/api/request"
	"github.com/mcoot/reflexpool/internal/api/response"
	"github.com/mcoot/reflexpool/internal/services/scenario"
)

// ScenarioHandler serves the disaster scenario catalogue
type ScenarioHandler struct {
	scenarios *scenario.Service
}

// NewScenarioHandler creates a new scenario handler
func NewScenarioHandler(scenarios *scenario.Service) *ScenarioHandler {
	return &ScenarioHandler{scenarios: scenarios}
}

// List handles GET /api/v1/scenarios
func (h *ScenarioHandler) List(w http.ResponseWriter, r *http.Request) {
	all := h.scenarios.List()
	out := make([]response.Scenario, len(all))
	for i, sc := range all {
		out[i] = response.ScenarioFrom(sc)
	}
	response.JSON(w, http.StatusOK, response.ScenariosResponse{Scenarios: out})
}

// Random handles GET /api/v1/scenarios/random
func (h *ScenarioHandler) Random(w http.ResponseWriter, r *http.Request) {
	round := h.scenarios.NextRound()
	response.JSON(w, http.StatusOK, response.RoundResponse{
		Scenario: response.ScenarioFrom(round.Scenario),
		DelayMS:  round.Delay.Milliseconds(),
	})
}

// Answer handles POST /api/v1/scenarios/{id}/answer
func (h *ScenarioHandler) Answer(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req request.AnswerRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.OptionID == "" {
		WriteError(w, NewInvalidRequestError("option_id is required"))
		return
	}

	correct, err := h.scenarios.CheckAnswer(id, req.OptionID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AnswerResponse{
		ScenarioID: id,
		OptionID:   req.OptionID,
		Correct:    correct,
	})
}
