// Package handlers contains the HTTP handlers for the editor API. Each
// handler translates requests into commands or queries, dispatches them
// on the buses, and renders the result.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"fabula-backend/application/commands"
	"fabula-backend/application/commands/bus"
	"fabula-backend/application/queries"
	querybus "fabula-backend/application/queries/bus"
	"fabula-backend/pkg/common"
	pkgerrors "fabula-backend/pkg/errors"
)

// ProjectHandler handles project lifecycle requests
type ProjectHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errs       *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

func NewProjectHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errs:       errs,
		logger:     logger,
	}
}

// CreateProject handles POST /projects
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var cmd commands.CreateProjectCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("invalid request body"))
		return
	}

	if err := h.commandBus.Send(r.Context(), &cmd); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"id":                cmd.Created.ID,
		"name":              cmd.Created.Name,
		"total_duration_ms": cmd.Created.Timeline.TotalDurationMS(),
	})
}

// ListProjects handles GET /projects
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), &queries.ListProjectsQuery{})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// OpenProject handles POST /projects/{projectID}/open
func (h *ProjectHandler) OpenProject(w http.ResponseWriter, r *http.Request) {
	cmd := commands.OpenProjectCommand{ProjectID: chi.URLParam(r, "projectID")}
	if err := h.commandBus.Send(r.Context(), &cmd); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	result, err := h.queryBus.Ask(r.Context(), &queries.GetTimelineQuery{ProjectID: cmd.ProjectID})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// GetTimeline handles GET /projects/{projectID}/timeline
func (h *ProjectHandler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), &queries.GetTimelineQuery{
		ProjectID: chi.URLParam(r, "projectID"),
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// RenameProject handles PUT /projects/{projectID}
func (h *ProjectHandler) RenameProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("invalid request body"))
		return
	}

	cmd := commands.RenameProjectCommand{
		ProjectID: chi.URLParam(r, "projectID"),
		Name:      req.Name,
	}
	if err := h.commandBus.Send(r.Context(), &cmd); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{
		"id":   cmd.ProjectID,
		"name": cmd.Renamed.Name,
	})
}

// SaveProject handles POST /projects/{projectID}/save
func (h *ProjectHandler) SaveProject(w http.ResponseWriter, r *http.Request) {
	cmd := commands.SaveProjectCommand{ProjectID: chi.URLParam(r, "projectID")}
	if err := h.commandBus.Send(r.Context(), &cmd); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// CloseProject handles POST /projects/{projectID}/close
func (h *ProjectHandler) CloseProject(w http.ResponseWriter, r *http.Request) {
	cmd := commands.CloseProjectCommand{ProjectID: chi.URLParam(r, "projectID")}
	if err := h.commandBus.Send(r.Context(), &cmd); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondNoContent(w)
}

// DeleteProject handles DELETE /projects/{projectID}
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	cmd := commands.DeleteProjectCommand{ProjectID: chi.URLParam(r, "projectID")}
	if err := h.commandBus.Send(r.Context(), &cmd); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondNoContent(w)
}
