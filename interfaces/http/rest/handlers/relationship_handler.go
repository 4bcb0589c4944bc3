package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"fabula-backend/application/commands"
	"fabula-backend/application/commands/bus"
	"fabula-backend/pkg/common"
	pkgerrors "fabula-backend/pkg/errors"
)

// RelationshipHandler handles narrative relationship requests
type RelationshipHandler struct {
	commandBus *bus.CommandBus
	errs       *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

func NewRelationshipHandler(commandBus *bus.CommandBus, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *RelationshipHandler {
	return &RelationshipHandler{
		commandBus: commandBus,
		errs:       errs,
		logger:     logger,
	}
}

// AddRelationship handles POST /projects/{projectID}/relationships
func (h *RelationshipHandler) AddRelationship(w http.ResponseWriter, r *http.Request) {
	var cmd commands.AddRelationshipCommand
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

// RemoveRelationship handles DELETE /projects/{projectID}/relationships/{relationshipID}
func (h *RelationshipHandler) RemoveRelationship(w http.ResponseWriter, r *http.Request) {
	cmd := commands.RemoveRelationshipCommand{
		ProjectID:      chi.URLParam(r, "projectID"),
		RelationshipID: chi.URLParam(r, "relationshipID"),
	}
	if err := h.commandBus.Send(r.Context(), &cmd); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondNoContent(w)
}
