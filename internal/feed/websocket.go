package feed

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ashureev/altar-plans/internal/identity"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const writeTimeout = 5 * time.Second

// Handler upgrades requests to a WebSocket that streams the caller's
// progress events.
type Handler struct {
	hub            *Hub
	originPatterns []string
}

// NewHandler creates a handler serving hub. originPatterns are host
// patterns accepted for cross-origin upgrades.
func NewHandler(hub *Hub, originPatterns []string) *Handler {
	return &Handler{hub: hub, originPatterns: originPatterns}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.hub.logger.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "feed ended"); closeErr != nil {
			h.hub.logger.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	sub := &subscriber{conn: ws, send: make(chan Event, sendBuffer)}
	h.hub.register(userID, sessionID, sub)
	defer h.hub.unregister(userID, sessionID, sub)

	// Clients never send; CloseRead cancels ctx once the peer goes away.
	ctx := ws.CloseRead(r.Context())

	if err := h.write(ctx, ws, Event{Type: "ready"}); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.send:
			if !ok {
				return
			}
			if err := h.write(ctx, ws, ev); err != nil {
				if !errors.Is(err, context.Canceled) {
					h.hub.logger.Debug("Progress feed write failed", "error", err, "user_id", userID)
				}
				return
			}
		}
	}
}

func (h *Handler) write(ctx context.Context, ws *websocket.Conn, ev Event) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, ev)
}
