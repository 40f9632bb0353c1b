// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/altar-plans/internal/domain"
)

// Repository defines the interface for persisting users, plans and progress.
type Repository interface {
	// GetUser retrieves a user by their user ID.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// GetProgress returns the progress row for (userID, planID), or nil if none exists.
	GetProgress(ctx context.Context, userID, planID string) (*domain.PlanProgress, error)

	// UpsertProgress overwrites the progress row for (userID, p.PlanID).
	UpsertProgress(ctx context.Context, userID string, p *domain.PlanProgress) error

	// ListPlans returns custom plans ordered by creation time.
	ListPlans(ctx context.Context) ([]*domain.StudyPlan, error)

	// GetPlan returns a custom plan, or nil if none exists.
	GetPlan(ctx context.Context, planID string) (*domain.StudyPlan, error)

	// InsertPlan stores a new custom plan.
	InsertPlan(ctx context.Context, plan *domain.StudyPlan) error

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
