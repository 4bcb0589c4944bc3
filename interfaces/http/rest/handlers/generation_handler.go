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

// GenerationHandler handles AI generation requests. Generation itself is
// asynchronous; these endpoints start or cancel runs and the progress
// streams over the project websocket.
type GenerationHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errs       *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

func NewGenerationHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *GenerationHandler {
	return &GenerationHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errs:       errs,
		logger:     logger,
	}
}

// Generate handles POST /projects/{projectID}/nodes/{nodeID}/generate
func (h *GenerationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	cmd := commands.GenerateNodeCommand{
		ProjectID: chi.URLParam(r, "projectID"),
		NodeID:    chi.URLParam(r, "nodeID"),
	}
	if err := h.commandBus.Send(r.Context(), &cmd); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusAccepted, map[string]string{
		"node_id": cmd.NodeID,
		"status":  "generating",
	})
}

// CancelGeneration handles DELETE /projects/{projectID}/nodes/{nodeID}/generate
func (h *GenerationHandler) CancelGeneration(w http.ResponseWriter, r *http.Request) {
	cmd := commands.CancelGenerationCommand{
		ProjectID: chi.URLParam(r, "projectID"),
		NodeID:    chi.URLParam(r, "nodeID"),
	}
	if err := h.commandBus.Send(r.Context(), &cmd); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{
		"node_id": cmd.NodeID,
		"status":  "cancelled",
	})
}

// GenerateChildren handles POST /projects/{projectID}/nodes/{nodeID}/generate-children
func (h *GenerationHandler) GenerateChildren(w http.ResponseWriter, r *http.Request) {
	cmd := commands.GenerateChildrenCommand{
		ProjectID: chi.URLParam(r, "projectID"),
		ParentID:  chi.URLParam(r, "nodeID"),
	}
	if err := h.commandBus.Send(r.Context(), &cmd); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusAccepted, map[string]interface{}{
		"parent_id": cmd.ParentID,
		"queued":    cmd.Queued,
	})
}

// FillGap handles POST /projects/{projectID}/gaps/fill
func (h *GenerationHandler) FillGap(w http.ResponseWriter, r *http.Request) {
	var cmd commands.FillGapCommand
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

// GenerationStatus handles GET /projects/{projectID}/generation
func (h *GenerationHandler) GenerationStatus(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), &queries.GetGenerationStatusQuery{
		ProjectID: chi.URLParam(r, "projectID"),
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}
