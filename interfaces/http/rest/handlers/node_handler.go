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

// NodeHandler handles structural node requests
type NodeHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errs       *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

func NewNodeHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *NodeHandler {
	return &NodeHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errs:       errs,
		logger:     logger,
	}
}

// CreateNode handles POST /projects/{projectID}/nodes
func (h *NodeHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var cmd commands.CreateNodeCommand
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

// GetNode handles GET /projects/{projectID}/nodes/{nodeID}
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), &queries.GetNodeQuery{
		ProjectID: chi.URLParam(r, "projectID"),
		NodeID:    chi.URLParam(r, "nodeID"),
	})
	if err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// UpdateNode handles PATCH /projects/{projectID}/nodes/{nodeID}
func (h *NodeHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	var cmd commands.UpdateNodeCommand
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

// DeleteNode handles DELETE /projects/{projectID}/nodes/{nodeID}
func (h *NodeHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	cmd := commands.DeleteNodeCommand{
		ProjectID: chi.URLParam(r, "projectID"),
		NodeID:    chi.URLParam(r, "nodeID"),
	}
	if err := h.commandBus.Send(r.Context(), &cmd); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"removed_ids": cmd.RemovedIDs,
	})
}

// MoveNode handles POST /projects/{projectID}/nodes/{nodeID}/move
func (h *NodeHandler) MoveNode(w http.ResponseWriter, r *http.Request) {
	var cmd commands.MoveNodeCommand
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
	common.RespondJSON(w, http.StatusOK, cmd.Moved)
}

// ResizeNode handles POST /projects/{projectID}/nodes/{nodeID}/resize
func (h *NodeHandler) ResizeNode(w http.ResponseWriter, r *http.Request) {
	var cmd commands.ResizeNodeCommand
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
	common.RespondJSON(w, http.StatusOK, cmd.Resized)
}

// SplitNode handles POST /projects/{projectID}/nodes/{nodeID}/split
func (h *NodeHandler) SplitNode(w http.ResponseWriter, r *http.Request) {
	var cmd commands.SplitNodeCommand
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
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"left":  cmd.Left,
		"right": cmd.Right,
	})
}

// SetNodeLocked handles POST /projects/{projectID}/nodes/{nodeID}/lock
func (h *NodeHandler) SetNodeLocked(w http.ResponseWriter, r *http.Request) {
	var cmd commands.SetNodeLockedCommand
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
