package services

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"fabula-backend/application/ports"
	"fabula-backend/domain/core/entities"
	"fabula-backend/domain/core/valueobjects"
	"fabula-backend/domain/events"
)

// ConsistencyReconciler reacts to user edits by asking the backend which
// downstream passages the edit contradicts. Passes run in the background;
// per node, at most one pass is in flight and rapid edits coalesce into a
// single follow-up pass carrying the latest text.
type ConsistencyReconciler struct {
	registry  *ProjectRegistry
	backend   ports.AiBackend
	publisher ports.EventPublisher
	logger    *zap.Logger

	mu       sync.Mutex
	inFlight map[reconcileKey]bool
	pending  map[reconcileKey]*reconcileRequest
}

type reconcileKey struct {
	projectID string
	nodeID    valueobjects.NodeID
}

type reconcileRequest struct {
	beforeText string
	afterText  string
}

// NewConsistencyReconciler creates a reconciler
func NewConsistencyReconciler(registry *ProjectRegistry, backend ports.AiBackend, publisher ports.EventPublisher, logger *zap.Logger) *ConsistencyReconciler {
	return &ConsistencyReconciler{
		registry:  registry,
		backend:   backend,
		publisher: publisher,
		logger:    logger,
		inFlight:  make(map[reconcileKey]bool),
		pending:   make(map[reconcileKey]*reconcileRequest),
	}
}

// Trigger schedules a reconciliation pass for an edited node. If a pass is
// already running for that node the request is queued; repeated triggers
// overwrite the queued request so only the latest edit is reconciled.
func (r *ConsistencyReconciler) Trigger(projectID string, nodeID valueobjects.NodeID, beforeText, afterText string) {
	key := reconcileKey{projectID: projectID, nodeID: nodeID}

	r.mu.Lock()
	if r.inFlight[key] {
		r.pending[key] = &reconcileRequest{beforeText: beforeText, afterText: afterText}
		r.mu.Unlock()
		return
	}
	r.inFlight[key] = true
	r.mu.Unlock()

	go r.run(key, &reconcileRequest{beforeText: beforeText, afterText: afterText})
}

func (r *ConsistencyReconciler) run(key reconcileKey, req *reconcileRequest) {
	for {
		r.runOnce(key, req)

		r.mu.Lock()
		next, ok := r.pending[key]
		if !ok {
			delete(r.inFlight, key)
			r.mu.Unlock()
			return
		}
		delete(r.pending, key)
		r.mu.Unlock()
		req = next
	}
}

func (r *ConsistencyReconciler) runOnce(key reconcileKey, req *reconcileRequest) {
	edit, ok := r.collectEdit(key, req)
	if !ok {
		return
	}
	if len(edit.Candidates) == 0 {
		r.finish(key, nil)
		return
	}

	drafts, err := r.backend.ReactToEdit(context.Background(), edit)
	if err != nil {
		r.logger.Warn("consistency pass failed",
			zap.String("project_id", key.projectID),
			zap.String("node_id", key.nodeID.String()),
			zap.Error(err),
		)
		r.finish(key, nil)
		return
	}
	r.finish(key, drafts)
}

// collectEdit snapshots the edit context under the project lock. Candidate
// nodes are the later unlocked siblings that already have text plus the
// targets of causal relationships leaving the edited node.
func (r *ConsistencyReconciler) collectEdit(key reconcileKey, req *reconcileRequest) (ports.EditContext, bool) {
	r.registry.LockProject(key.projectID)
	defer r.registry.UnlockProject(key.projectID)

	managed, err := r.registry.Get(key.projectID)
	if err != nil {
		return ports.EditContext{}, false
	}
	timeline := managed.Project.Timeline
	node, err := timeline.Node(key.nodeID)
	if err != nil {
		// Node deleted while the trigger was queued.
		return ports.EditContext{}, false
	}

	candidates := make(map[string]string)
	siblings, _ := timeline.SiblingsOf(key.nodeID)
	for _, sib := range siblings {
		if sib.ID.Equals(key.nodeID) || sib.Locked {
			continue
		}
		if sib.TimeRange.StartMS < node.TimeRange.EndMS {
			continue
		}
		if sib.Content.Status.HasBody() {
			candidates[sib.ID.String()] = sib.Content.Body
		}
	}
	for _, targetID := range timeline.CausalTargets(key.nodeID) {
		target, err := timeline.Node(targetID)
		if err != nil || target.Locked || !target.Content.Status.HasBody() {
			continue
		}
		candidates[target.ID.String()] = target.Content.Body
	}

	return ports.EditContext{
		EditedNodeName: node.Name,
		BeforeText:     req.beforeText,
		AfterText:      req.afterText,
		Candidates:     candidates,
	}, true
}

// finish validates drafts against current state, replaces the node's
// suggestion queue, and announces the results.
func (r *ConsistencyReconciler) finish(key reconcileKey, drafts []ports.SuggestionDraft) {
	r.registry.LockProject(key.projectID)
	defer r.registry.UnlockProject(key.projectID)

	managed, err := r.registry.Get(key.projectID)
	if err != nil {
		return
	}
	timeline := managed.Project.Timeline

	var suggestions []*entities.ConsistencySuggestion
	for _, draft := range drafts {
		targetID, err := valueobjects.NewNodeIDFromString(draft.TargetNodeID)
		if err != nil {
			continue
		}
		target, err := timeline.Node(targetID)
		if err != nil || target.Locked {
			// Target vanished or was locked while the backend was thinking.
			continue
		}
		suggestions = append(suggestions, entities.NewConsistencySuggestion(
			key.nodeID, targetID, draft.OriginalText, draft.SuggestedText, draft.Reason,
		))
	}

	managed.Suggestions.ReplaceForSource(key.nodeID, suggestions)
	for _, s := range suggestions {
		r.publisher.Publish(key.projectID, events.NewConsistencySuggestionRaised(
			s.ID, s.SourceNodeID, s.TargetNodeID, s.OriginalText, s.SuggestedText, s.Reason,
		))
	}
	r.publisher.Publish(key.projectID, events.NewConsistencyComplete(key.nodeID, len(suggestions)))
}
