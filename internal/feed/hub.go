// Package feed pushes progress changes to a user's open browser tabs.
package feed

import (
	"log/slog"
	"sync"

	"github.com/ashureev/altar-plans/internal/domain"
	"github.com/coder/websocket"
)

const sendBuffer = 16

// Event is a single message written to subscribers.
type Event struct {
	Type     string               `json:"type"`
	Progress *domain.PlanProgress `json:"progress,omitempty"`
	Percent  int                  `json:"percent"`
}

// ProgressEvent builds the event sent after a progress mutation.
func ProgressEvent(p domain.PlanProgress, duration int) Event {
	c := p.Clone()
	return Event{Type: "progress", Progress: &c, Percent: c.Percent(duration)}
}

type subscriber struct {
	conn *websocket.Conn
	send chan Event
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.send) })
}

// Hub tracks subscribers per user and tab session.
type Hub struct {
	mu     sync.RWMutex
	active map[string]map[string]*subscriber
	logger *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		active: make(map[string]map[string]*subscriber),
		logger: logger,
	}
}

// register adds a subscriber, replacing any previous one for the same tab.
func (h *Hub) register(userID, sessionID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.active[userID]; !exists {
		h.active[userID] = make(map[string]*subscriber)
	}

	if existing, exists := h.active[userID][sessionID]; exists && existing != sub {
		existing.close()
		if existing.conn != nil {
			_ = existing.conn.Close(websocket.StatusNormalClosure, "session replaced")
		}
	}

	h.active[userID][sessionID] = sub
	h.logger.Info("Progress feed registered", "user_id", userID, "session_id", sessionID)
}

// unregister removes sub if it is still the current subscriber for the tab.
func (h *Hub) unregister(userID, sessionID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessions, ok := h.active[userID]
	if !ok {
		return
	}
	if current, exists := sessions[sessionID]; exists && current == sub {
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(h.active, userID)
		}
		current.close()
		h.logger.Info("Progress feed unregistered", "user_id", userID, "session_id", sessionID)
	}
}

// Publish queues ev for every tab of userID. It never blocks: a tab whose
// buffer is full is disconnected.
func (h *Hub) Publish(userID string, ev Event) {
	h.mu.RLock()
	var slow []overflowed
	for sid, sub := range h.active[userID] {
		select {
		case sub.send <- ev:
		default:
			slow = append(slow, overflowed{sessionID: sid, sub: sub})
		}
	}
	h.mu.RUnlock()

	h.disconnect(userID, slow)
}

type overflowed struct {
	sessionID string
	sub       *subscriber
}

// disconnect drops the subscribers captured during a publish. A tab that
// reconnected in the meantime keeps its new subscriber.
func (h *Hub) disconnect(userID string, slow []overflowed) {
	for _, s := range slow {
		h.logger.Warn("Progress feed subscriber too slow, disconnecting", "user_id", userID, "session_id", s.sessionID)
		h.unregister(userID, s.sessionID, s.sub)
		if s.sub.conn != nil {
			_ = s.sub.conn.Close(websocket.StatusPolicyViolation, "too slow")
		}
	}
}

// Count returns the number of open tabs for userID.
func (h *Hub) Count(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.active[userID])
}
