package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"fabula-backend/application/queries"
	querybus "fabula-backend/application/queries/bus"
	"fabula-backend/application/services"
	"fabula-backend/pkg/common"
	pkgerrors "fabula-backend/pkg/errors"
)

// StoryHandler handles the read views derived from the timeline: inferred
// scenes, their recaps, and coverage gaps.
type StoryHandler struct {
	queryBus *querybus.QueryBus
	scenes   *services.SceneService
	errs     *pkgerrors.ErrorHandler
	logger   *zap.Logger
}

func NewStoryHandler(queryBus *querybus.QueryBus, scenes *services.SceneService, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *StoryHandler {
	return &StoryHandler{
		queryBus: queryBus,
		scenes:   scenes,
		errs:     errs,
		logger:   logger,
	}
}

// GetScenes handles GET /projects/{projectID}/scenes
func (h *StoryHandler) GetScenes(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), &queries.GetScenesQuery{
		ProjectID: chi.URLParam(r, "projectID"),
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// GetSceneRecap handles GET /projects/{projectID}/scenes/{sceneIndex}/recap.
// Recaps call the AI backend, so this bypasses the query bus and may take
// seconds on a cache miss.
func (h *StoryHandler) GetSceneRecap(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "sceneIndex"))
	if err != nil || index < 0 {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("scene index must be a non-negative integer"))
		return
	}

	scene, err := h.scenes.Recap(r.Context(), chi.URLParam(r, "projectID"), index)
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, scene)
}

// GetGaps handles GET /projects/{projectID}/gaps?parent_id=...
func (h *StoryHandler) GetGaps(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), &queries.GetGapsQuery{
		ProjectID: chi.URLParam(r, "projectID"),
		ParentID:  r.URL.Query().Get("parent_id"),
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}
