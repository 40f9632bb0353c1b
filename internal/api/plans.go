package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ashureev/altar-plans/internal/domain"
	"github.com/ashureev/altar-plans/internal/feed"
	"github.com/ashureev/altar-plans/internal/identity"
	"github.com/ashureev/altar-plans/internal/plans"
	"github.com/ashureev/altar-plans/internal/progress"
	"github.com/ashureev/altar-plans/internal/shared"
	"github.com/go-chi/chi/v5"
)

const maxPlanBody = 1 << 20

type planSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Duration    int    `json:"duration"`
	Source      string `json:"source,omitempty"`
}

type progressResponse struct {
	domain.PlanProgress
	Duration int `json:"duration"`
	Percent  int `json:"percent"`
}

type createPlanRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Readings    []domain.DailyReading `json:"readings"`
}

// RegisterRoutes registers plan and progress routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/me", h.GetMe)
		r.Get("/config", h.GetConfig)

		r.Get("/plans", h.ListPlans)
		r.Post("/plans", h.CreatePlan)
		r.Route("/plans/{planID}", func(r chi.Router) {
			r.Get("/", h.GetPlan)
			r.Get("/progress", h.GetProgress)
			r.Post("/days/{day}/toggle", h.ToggleDay)
			r.Post("/complete", h.MarkComplete)
			r.Post("/reset", h.Reset)
		})
	})
}

// GetMe returns the current user's information.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		h.fail(w, r, fmt.Errorf("get user: %w", err))
		return
	}
	if user == nil {
		Error(w, http.StatusUnauthorized, "user not found")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"user_id":    user.UserID,
		"username":   user.Username,
		"session_id": identity.SessionIDFromContext(r.Context()),
	})
}

// GetConfig returns the server configuration for the frontend.
func (h *Handler) GetConfig(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"progress_store": h.backend,
		"feed_enabled":   h.feedOn,
	})
}

// ListPlans returns summaries of every plan in the catalog.
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	all, err := h.catalog.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out := make([]planSummary, 0, len(all))
	for _, p := range all {
		out = append(out, planSummary{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
			Duration:    p.Duration,
			Source:      p.Source,
		})
	}
	JSON(w, http.StatusOK, out)
}

// GetPlan returns one plan including its readings.
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.catalog.Get(r.Context(), chi.URLParam(r, "planID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, plan)
}

// CreatePlan stores a custom plan.
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPlanBody)).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	plan, err := h.catalog.Create(r.Context(), req.Title, req.Description, req.Readings)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	slog.Info("Custom plan created", "plan_id", plan.ID, "duration", plan.Duration,
		"user_id", identity.UserIDFromContext(r.Context()))
	JSON(w, http.StatusCreated, plan)
}

// GetProgress returns the caller's progress on a plan, creating it on first read.
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	plan, tracker, ok := h.resolve(w, r)
	if !ok {
		return
	}

	p, err := tracker.GetOrCreate(r.Context(), plan.ID, plan.Duration)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, progressResponse{PlanProgress: p, Duration: plan.Duration, Percent: p.Percent(plan.Duration)})
}

// ToggleDay flips one day of the caller's progress.
func (h *Handler) ToggleDay(w http.ResponseWriter, r *http.Request) {
	day, err := strconv.Atoi(chi.URLParam(r, "day"))
	if err != nil {
		Error(w, http.StatusBadRequest, "day must be an integer")
		return
	}

	plan, tracker, ok := h.resolve(w, r)
	if !ok {
		return
	}

	p, err := tracker.ToggleDay(r.Context(), plan.ID, day, plan.Duration)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondMutation(w, r, plan, p)
}

// MarkComplete finishes the plan for the caller.
func (h *Handler) MarkComplete(w http.ResponseWriter, r *http.Request) {
	plan, tracker, ok := h.resolve(w, r)
	if !ok {
		return
	}

	p, err := tracker.MarkComplete(r.Context(), plan.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	slog.Info("Plan marked complete", "plan_id", plan.ID, "user_id", identity.UserIDFromContext(r.Context()))
	h.respondMutation(w, r, plan, p)
}

// Reset clears the caller's progress on the plan.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	plan, tracker, ok := h.resolve(w, r)
	if !ok {
		return
	}

	p, err := tracker.Reset(r.Context(), plan.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	slog.Info("Plan progress reset", "plan_id", plan.ID, "user_id", identity.UserIDFromContext(r.Context()))
	h.respondMutation(w, r, plan, p)
}

// resolve looks up the plan named in the URL and the caller's tracker.
func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (*domain.StudyPlan, *progress.Tracker, bool) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return nil, nil, false
	}

	plan, err := h.catalog.Get(r.Context(), chi.URLParam(r, "planID"))
	if err != nil {
		h.fail(w, r, err)
		return nil, nil, false
	}
	return plan, progress.NewTracker(h.progress.ForUser(userID)), true
}

func (h *Handler) respondMutation(w http.ResponseWriter, r *http.Request, plan *domain.StudyPlan, p domain.PlanProgress) {
	h.publisher.Publish(identity.UserIDFromContext(r.Context()), feed.ProgressEvent(p, plan.Duration))
	JSON(w, http.StatusOK, progressResponse{PlanProgress: p, Duration: plan.Duration, Percent: p.Percent(plan.Duration)})
}

// fail maps domain and storage errors to HTTP responses.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, plans.ErrPlanNotFound):
		Error(w, http.StatusNotFound, "plan not found")
	case errors.Is(err, plans.ErrInvalidPlan),
		errors.Is(err, progress.ErrInvalidDay),
		errors.Is(err, progress.ErrInvalidDuration):
		Error(w, http.StatusBadRequest, err.Error())
	case shared.IsSQLiteConflictError(err):
		slog.Warn("Database busy", "error", err, "path", r.URL.Path)
		w.Header().Set("Retry-After", "1")
		Error(w, http.StatusServiceUnavailable, "database busy")
	default:
		slog.Error("Request failed", "error", err, "path", r.URL.Path,
			"user_id", identity.UserIDFromContext(r.Context()))
		Error(w, http.StatusInternalServerError, err.Error())
	}
}
