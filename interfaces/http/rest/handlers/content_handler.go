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

// ContentHandler handles notes, prose edits, and consistency suggestions
type ContentHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errs       *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

func NewContentHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *ContentHandler {
	return &ContentHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errs:       errs,
		logger:     logger,
	}
}

// WriteNotes handles PUT /projects/{projectID}/nodes/{nodeID}/notes
func (h *ContentHandler) WriteNotes(w http.ResponseWriter, r *http.Request) {
	var cmd commands.WriteNotesCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	cmd.ProjectID = chi.URLParam(r, "projectID")
	cmd.NodeID = chi.URLParam(r, "nodeID")

	if err := h.commandBus.Send(r.Context(), &cmd); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, cmd.Updated)
}

// EditBody handles PUT /projects/{projectID}/nodes/{nodeID}/body
func (h *ContentHandler) EditBody(w http.ResponseWriter, r *http.Request) {
	var cmd commands.EditBodyCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		h.errs.Handle(w, r, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	cmd.ProjectID = chi.URLParam(r, "projectID")
	cmd.NodeID = chi.URLParam(r, "nodeID")

	if err := h.commandBus.Send(r.Context(), &cmd); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, cmd.Updated)
}

// GetSuggestions handles GET /projects/{projectID}/suggestions
func (h *ContentHandler) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), &queries.GetSuggestionsQuery{
		ProjectID: chi.URLParam(r, "projectID"),
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// ApplySuggestion handles POST /projects/{projectID}/suggestions/{suggestionID}/apply
func (h *ContentHandler) ApplySuggestion(w http.ResponseWriter, r *http.Request) {
	cmd := commands.ApplySuggestionCommand{
		ProjectID:    chi.URLParam(r, "projectID"),
		SuggestionID: chi.URLParam(r, "suggestionID"),
	}
	if err := h.commandBus.Send(r.Context(), &cmd); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, cmd.Updated)
}

// DismissSuggestion handles POST /projects/{projectID}/suggestions/{suggestionID}/dismiss
func (h *ContentHandler) DismissSuggestion(w http.ResponseWriter, r *http.Request) {
	cmd := commands.DismissSuggestionCommand{
		ProjectID:    chi.URLParam(r, "projectID"),
		SuggestionID: chi.URLParam(r, "suggestionID"),
	}
	if err := h.commandBus.Send(r.Context(), &cmd); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondNoContent(w)
}
