package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/queryguard/queryguard/internal/router"
)

type askRequest struct {
	Question string `json:"question"`
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Pipeline == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "PIPELINE_NOT_CONFIGURED", "pipeline dependencies are not configured", false, nil)
		return
	}
	if err := requireRole(r, "pipeline_user"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request askRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid ask request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}

	outcome := deps.Pipeline.Run(r.Context(), request.Question)
	writeJSON(w, http.StatusOK, outcome)
}

type routeResponse struct {
	Route              string `json:"route"`
	Reason             string `json:"reason"`
	ClarifyingQuestion string `json:"clarifying_question,omitempty"`
}

func handleRoute(_ Dependencies, w http.ResponseWriter, r *http.Request) {
	if err := requireRole(r, "pipeline_user"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request askRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid route request body", false, map[string]any{"details": err.Error()})
		return
	}

	decision := router.RouteMessage(request.Question)
	writeJSON(w, http.StatusOK, routeResponse{
		Route:              string(decision.Route),
		Reason:             decision.Reason,
		ClarifyingQuestion: decision.ClarifyingQuestion,
	})
}
