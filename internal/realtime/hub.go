package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"riteswipe-api/internal/metrics"

	"github.com/sirupsen/logrus"
)

// Push event names understood by clients.
const (
	EventReceiveNotification = "ReceiveNotification"
	EventTaskUpdated         = "TaskUpdated"
	EventNewApplication      = "NewApplication"
	EventTaskMatch           = "TaskMatch"
	EventEscrowUpdated       = "EscrowUpdated"
	EventDisputeUpdated      = "DisputeUpdated"
	EventNewReview           = "NewReview"
	EventStatusUpdate        = "StatusUpdate"
)

func UserGroup(userID string) string { return "User_" + userID }
func TaskGroup(taskID string) string { return "Task_" + taskID }

// Client represents a single websocket client connection.
// The actual network conn is managed in the ws handler.
type Client interface {
	Send(message []byte) bool
	Close()
}

// Publisher fans an event out to whoever is subscribed to group.
// Delivery is best-effort: offline subscribers miss the push.
type Publisher interface {
	Publish(ctx context.Context, group, event string, payload json.RawMessage) error
}

// Envelope is the wire format of every push.
type Envelope struct {
	Event   string          `json:"event"`
	Group   string          `json:"group"`
	Payload json.RawMessage `json:"payload"`
}

func encode(group, event string, payload json.RawMessage) ([]byte, error) {
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	msg, err := json.Marshal(Envelope{Event: event, Group: group, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encoding %s push: %w", event, err)
	}
	return msg, nil
}

// Hub maintains group subscriptions of connected clients in this process.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[Client]struct{}
	log    *logrus.Entry
}

func NewHub(log *logrus.Entry) *Hub {
	return &Hub{
		groups: make(map[string]map[Client]struct{}),
		log:    log,
	}
}

// Join subscribes a client to a group.
func (h *Hub) Join(group string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.groups[group]; !ok {
		h.groups[group] = make(map[Client]struct{})
	}
	h.groups[group][client] = struct{}{}
}

// Leave removes a client from a group; empty groups are dropped.
func (h *Hub) Leave(group string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(group, client)
}

// LeaveAll removes a client from every group it joined.
func (h *Hub) LeaveAll(client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for group := range h.groups {
		h.leaveLocked(group, client)
	}
}

func (h *Hub) leaveLocked(group string, client Client) {
	if clients, ok := h.groups[group]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.groups, group)
		}
	}
}

// Subscribers returns the number of clients in group.
func (h *Hub) Subscribers(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

// Publish implements Publisher for a single process.
func (h *Hub) Publish(_ context.Context, group, event string, payload json.RawMessage) error {
	msg, err := encode(group, event, payload)
	if err != nil {
		return err
	}
	h.deliver(group, event, msg)
	return nil
}

// deliver writes msg to every client of group and returns how many accepted it.
// Write failures are logged; the ws handler cleans up dead clients.
func (h *Hub) deliver(group, event string, msg []byte) int {
	h.mu.RLock()
	clients := make([]Client, 0, len(h.groups[group]))
	for c := range h.groups[group] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range clients {
		if c.Send(msg) {
			delivered++
			metrics.Push(event, true)
			continue
		}
		metrics.Push(event, false)
		h.log.WithFields(logrus.Fields{"group": group, "event": event}).Warn("realtime push failed")
	}
	return delivered
}

var _ Publisher = (*Hub)(nil)
