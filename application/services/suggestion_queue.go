package services

import (
	"fmt"
	"sort"
	"sync"

	"fabula-backend/domain/core/entities"
	"fabula-backend/domain/core/valueobjects"
	pkgerrors "fabula-backend/pkg/errors"
)

// SuggestionQueue holds pending consistency suggestions for one project.
// Suggestions are transient session state: they are never persisted and
// never captured by undo snapshots. A new reconciliation pass for a source
// node replaces that node's previous suggestions wholesale.
type SuggestionQueue struct {
	mu sync.Mutex
	// bySource groups suggestions by the edited node that produced them.
	bySource map[valueobjects.NodeID][]*entities.ConsistencySuggestion
	byID     map[string]*entities.ConsistencySuggestion
}

// NewSuggestionQueue creates an empty queue
func NewSuggestionQueue() *SuggestionQueue {
	return &SuggestionQueue{
		bySource: make(map[valueobjects.NodeID][]*entities.ConsistencySuggestion),
		byID:     make(map[string]*entities.ConsistencySuggestion),
	}
}

// ReplaceForSource swaps every suggestion originating from one source node
func (q *SuggestionQueue) ReplaceForSource(source valueobjects.NodeID, suggestions []*entities.ConsistencySuggestion) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, old := range q.bySource[source] {
		delete(q.byID, old.ID)
	}
	delete(q.bySource, source)
	if len(suggestions) > 0 {
		q.bySource[source] = suggestions
		for _, s := range suggestions {
			q.byID[s.ID] = s
		}
	}
}

// Get returns a suggestion by ID without removing it
func (q *SuggestionQueue) Get(id string) (*entities.ConsistencySuggestion, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	suggestion, ok := q.byID[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("suggestion %s", id))
	}
	return suggestion, nil
}

// Take removes and returns a suggestion by ID
func (q *SuggestionQueue) Take(id string) (*entities.ConsistencySuggestion, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	suggestion, ok := q.byID[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("suggestion %s", id))
	}
	delete(q.byID, id)
	kept := q.bySource[suggestion.SourceNodeID][:0]
	for _, s := range q.bySource[suggestion.SourceNodeID] {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		delete(q.bySource, suggestion.SourceNodeID)
	} else {
		q.bySource[suggestion.SourceNodeID] = kept
	}
	return suggestion, nil
}

// DropForNode discards suggestions sourced from or targeting a node,
// used when the node is deleted.
func (q *SuggestionQueue) DropForNode(id valueobjects.NodeID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for source, list := range q.bySource {
		if source.Equals(id) {
			for _, s := range list {
				delete(q.byID, s.ID)
			}
			delete(q.bySource, source)
			continue
		}
		kept := list[:0]
		for _, s := range list {
			if s.TargetNodeID.Equals(id) {
				delete(q.byID, s.ID)
				continue
			}
			kept = append(kept, s)
		}
		if len(kept) == 0 {
			delete(q.bySource, source)
		} else {
			q.bySource[source] = kept
		}
	}
}

// All returns every pending suggestion, ordered by ID for stable listings
func (q *SuggestionQueue) All() []*entities.ConsistencySuggestion {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*entities.ConsistencySuggestion, 0, len(q.byID))
	for _, s := range q.byID {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Clear drops everything, used on undo and project reload
func (q *SuggestionQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.bySource = make(map[valueobjects.NodeID][]*entities.ConsistencySuggestion)
	q.byID = make(map[string]*entities.ConsistencySuggestion)
}
