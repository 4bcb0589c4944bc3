package handlers

import (
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

// HistoryHandler handles undo and redo requests
type HistoryHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errs       *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

func NewHistoryHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errs:       errs,
		logger:     logger,
	}
}

// Undo handles POST /projects/{projectID}/undo
func (h *HistoryHandler) Undo(w http.ResponseWriter, r *http.Request) {
	cmd := commands.UndoCommand{ProjectID: chi.URLParam(r, "projectID")}
	if err := h.commandBus.Send(r.Context(), &cmd); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	h.respondStatus(w, r, cmd.ProjectID)
}

// Redo handles POST /projects/{projectID}/redo
func (h *HistoryHandler) Redo(w http.ResponseWriter, r *http.Request) {
	cmd := commands.RedoCommand{ProjectID: chi.URLParam(r, "projectID")}
	if err := h.commandBus.Send(r.Context(), &cmd); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	h.respondStatus(w, r, cmd.ProjectID)
}

// GetStatus handles GET /projects/{projectID}/history
func (h *HistoryHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	h.respondStatus(w, r, chi.URLParam(r, "projectID"))
}

func (h *HistoryHandler) respondStatus(w http.ResponseWriter, r *http.Request, projectID string) {
	result, err := h.queryBus.Ask(r.Context(), &queries.GetHistoryStatusQuery{ProjectID: projectID})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}
