package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Event types pushed to websocket clients.
const (
	ProjectCreated       = "project_created"
	ProjectUpdated       = "project_updated"
	ProjectDeleted       = "project_deleted"
	TaskCreated          = "task_created"
	TaskUpdated          = "task_updated"
	TaskDeleted          = "task_deleted"
	SubTaskCreated       = "subtask_created"
	SubTaskUpdated       = "subtask_updated"
	SubTaskStatusChanged = "subtask_status_changed"
	SubTaskDeleted       = "subtask_deleted"
	MemberAdded          = "member_added"
	MemberUpdated        = "member_updated"
	MemberRemoved        = "member_removed"
	AttachmentAdded      = "attachment_added"
	AttachmentDeleted    = "attachment_deleted"
)

// Event is the message written to every recipient's connections.
type Event struct {
	Type    string `json:"type"`
	ID      uint   `json:"id"`
	ActorID uint   `json:"actorId"`
	Version int    `json:"version"`
	Data    any    `json:"data,omitempty"`
}

// Client represents a single websocket client connection.
// The network conn itself is managed in the ws handler.
type Client interface {
	Send(message []byte) bool
	Close()
}

// Hub maintains active employee connections and fans events out to them.
type Hub struct {
	logger  *zap.SugaredLogger
	mu      sync.RWMutex
	clients map[uint]map[Client]struct{}
}

func NewHub(logger *zap.SugaredLogger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[uint]map[Client]struct{}),
	}
}

// Register adds a client under an employee id.
func (h *Hub) Register(employeeID uint, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[employeeID]; !ok {
		h.clients[employeeID] = make(map[Client]struct{})
	}
	h.clients[employeeID][client] = struct{}{}
}

// Unregister removes a client; an employee without clients is dropped.
func (h *Hub) Unregister(employeeID uint, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.clients[employeeID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, employeeID)
		}
	}
}

// Connected reports how many clients the employee has open.
func (h *Hub) Connected(employeeID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[employeeID])
}

// Broadcast sends a raw message to all clients of an employee and returns
// how many accepted it.
func (h *Hub) Broadcast(employeeID uint, message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for c := range h.clients[employeeID] {
		if c.Send(message) {
			sent++
		}
	}
	return sent
}

// Publish delivers evt once to each distinct recipient and to the actor.
// Zero ids are skipped.
func (h *Hub) Publish(evt Event, recipients ...uint) int {
	if evt.Version == 0 {
		evt.Version = 1
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		h.logger.Errorw("failed to encode realtime event", "type", evt.Type, "err", err)
		return 0
	}

	seen := make(map[uint]struct{}, len(recipients)+1)
	sent := 0
	for _, id := range append([]uint{evt.ActorID}, recipients...) {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		sent += h.Broadcast(id, payload)
	}
	h.logger.Debugw("realtime event published", "type", evt.Type, "id", evt.ID, "recipients", len(seen), "deliveries", sent)
	return sent
}
