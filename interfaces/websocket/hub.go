// Package websocket pushes engine events to connected editors. Each client
// subscribes to one project; events for a project fan out to its clients
// in publish order, so streamed generation tokens arrive in sequence.
package websocket

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"fabula-backend/domain/events"
)

// envelope is the wire form of an event
type envelope struct {
	Type      string             `json:"type"`
	ProjectID string             `json:"project_id"`
	Payload   events.DomainEvent `json:"payload"`
}

// Hub routes events to subscribed clients
type Hub struct {
	mu       sync.RWMutex
	projects map[string]map[*Client]struct{}
	logger   *zap.Logger
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		projects: make(map[string]map[*Client]struct{}),
		logger:   logger,
	}
}

// Publish implements ports.EventPublisher. Marshalling happens once per
// event; a client whose send buffer is full is dropped rather than
// allowed to stall the project.
func (h *Hub) Publish(projectID string, event events.DomainEvent) {
	data, err := json.Marshal(envelope{
		Type:      event.GetEventType(),
		ProjectID: projectID,
		Payload:   event,
	})
	if err != nil {
		h.logger.Error("failed to marshal event",
			zap.String("event_type", event.GetEventType()),
			zap.Error(err),
		)
		return
	}

	h.mu.RLock()
	clients := h.projects[projectID]
	var stalled []*Client
	for client := range clients {
		select {
		case client.send <- data:
		default:
			stalled = append(stalled, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stalled {
		h.logger.Warn("dropping slow websocket client",
			zap.String("project_id", projectID),
		)
		h.remove(client)
		client.close()
	}
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.projects[client.projectID] == nil {
		h.projects[client.projectID] = make(map[*Client]struct{})
	}
	h.projects[client.projectID][client] = struct{}{}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.projects[client.projectID]
	if !ok {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.projects, client.projectID)
	}
}

// ClientCount reports connected clients for a project
func (h *Hub) ClientCount(projectID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.projects[projectID])
}
