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

// EntityHandler handles story bible requests
type EntityHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errs       *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

func NewEntityHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *EntityHandler {
	return &EntityHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errs:       errs,
		logger:     logger,
	}
}

// ListEntities handles GET /projects/{projectID}/entities
func (h *EntityHandler) ListEntities(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), &queries.GetEntitiesQuery{
		ProjectID: chi.URLParam(r, "projectID"),
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// CreateEntity handles POST /projects/{projectID}/entities
func (h *EntityHandler) CreateEntity(w http.ResponseWriter, r *http.Request) {
	var cmd commands.CreateEntityCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	cmd.ProjectID = chi.URLParam(r, "projectID")

	if err := h.commandBus.Send(r.Context(), &cmd); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, cmd.Created)
}

// UpdateEntity handles PATCH /projects/{projectID}/entities/{entityID}
func (h *EntityHandler) UpdateEntity(w http.ResponseWriter, r *http.Request) {
	var cmd commands.UpdateEntityCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	cmd.ProjectID = chi.URLParam(r, "projectID")
	cmd.EntityID = chi.URLParam(r, "entityID")

	if err := h.commandBus.Send(r.Context(), &cmd); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, cmd.Updated)
}

// DeleteEntity handles DELETE /projects/{projectID}/entities/{entityID}
func (h *EntityHandler) DeleteEntity(w http.ResponseWriter, r *http.Request) {
	cmd := commands.DeleteEntityCommand{
		ProjectID: chi.URLParam(r, "projectID"),
		EntityID:  chi.URLParam(r, "entityID"),
	}
	if err := h.commandBus.Send(r.Context(), &cmd); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondNoContent(w)
}

// AddSnapshot handles POST /projects/{projectID}/entities/{entityID}/snapshots
func (h *EntityHandler) AddSnapshot(w http.ResponseWriter, r *http.Request) {
	var cmd commands.AddEntitySnapshotCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	cmd.ProjectID = chi.URLParam(r, "projectID")
	cmd.EntityID = chi.URLParam(r, "entityID")

	if err := h.commandBus.Send(r.Context(), &cmd); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, cmd.Updated)
}

// LinkEntity handles POST /projects/{projectID}/entities/{entityID}/link
func (h *EntityHandler) LinkEntity(w http.ResponseWriter, r *http.Request) {
	var cmd commands.LinkEntityCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	cmd.ProjectID = chi.URLParam(r, "projectID")
	cmd.EntityID = chi.URLParam(r, "entityID")

	if err := h.commandBus.Send(r.Context(), &cmd); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, cmd.Updated)
}
