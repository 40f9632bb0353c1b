// Package api provides HTTP handlers for the altar reading plan API.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ashureev/altar-plans/internal/domain"
	"github.com/ashureev/altar-plans/internal/feed"
	"github.com/ashureev/altar-plans/internal/plans"
	"github.com/ashureev/altar-plans/internal/progress"
)

// UserReader looks up users.
type UserReader interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
}

// Publisher receives progress events after successful mutations.
type Publisher interface {
	Publish(userID string, ev feed.Event)
}

type discardPublisher struct{}

func (discardPublisher) Publish(string, feed.Event) {}

// Handler provides common handler utilities.
type Handler struct {
	users     UserReader
	catalog   *plans.Catalog
	progress  progress.Opener
	publisher Publisher
	backend   string
	feedOn    bool
}

// NewHandler creates a new Handler with common dependencies. publisher may
// be nil when the live feed is disabled.
func NewHandler(users UserReader, catalog *plans.Catalog, opener progress.Opener, publisher Publisher, backend string) *Handler {
	h := &Handler{
		users:     users,
		catalog:   catalog,
		progress:  opener,
		publisher: publisher,
		backend:   backend,
		feedOn:    publisher != nil,
	}
	if h.publisher == nil {
		h.publisher = discardPublisher{}
	}
	return h
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
