package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/textbook-analytics/internal/data/repos"
	"github.com/yungbote/textbook-analytics/internal/http/response"
	"github.com/yungbote/textbook-analytics/internal/platform/logger"
)

type ResultsHandler struct {
	log         *logger.Logger
	runs        repos.ModelRunRepo
	results     repos.ModelResultRepo
	predictions repos.HeldoutPredictionRepo
}

func NewResultsHandler(log *logger.Logger, runs repos.ModelRunRepo, results repos.ModelResultRepo, predictions repos.HeldoutPredictionRepo) *ResultsHandler {
	return &ResultsHandler{
		log:         log.With("handler", "ResultsHandler"),
		runs:        runs,
		results:     results,
		predictions: predictions,
	}
}

// GET /api/runs/latest
func (h *ResultsHandler) GetLatestRun(c *gin.Context) {
	run, err := h.runs.GetLatest(c.Request.Context(), nil)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "run_lookup_failed", err)
		return
	}
	if run == nil {
		response.RespondNotFound(c, "no_finished_run")
		return
	}
	ranking, err := h.results.GetByRunID(c.Request.Context(), nil, run.ID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "results_lookup_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"run": run, "ranking": ranking})
}

// GET /api/runs/:id/results
func (h *ResultsHandler) ListResults(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_run_id", err)
		return
	}
	ranking, err := h.results.GetByRunID(c.Request.Context(), nil, runID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "results_lookup_failed", err)
		return
	}
	if len(ranking) == 0 {
		response.RespondNotFound(c, "run_not_found")
		return
	}
	response.RespondOK(c, gin.H{"ranking": ranking})
}

// GET /api/runs/:id/predictions
func (h *ResultsHandler) ListPredictions(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_run_id", err)
		return
	}
	preds, err := h.predictions.GetByRunID(c.Request.Context(), nil, runID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "predictions_lookup_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"predictions": preds})
}
