// Package progress tracks which days of a reading plan an owner has read.
package progress

import (
	"context"

	"github.com/ashureev/altar-plans/internal/domain"
)

// StorageKey is the fixed key the local variant stores its blob under.
const StorageKey = "altar.studyPlan.progress"

// Store persists progress records belonging to a single owner.
type Store interface {
	// Load returns the record for planID. ok is false when none exists.
	Load(ctx context.Context, planID string) (p domain.PlanProgress, ok bool, err error)

	// Save overwrites the record for p.PlanID.
	Save(ctx context.Context, p domain.PlanProgress) error
}

// Opener hands out the Store owned by a user.
type Opener interface {
	ForUser(userID string) Store
}

// Repository is the subset of the database repository the remote variant needs.
type Repository interface {
	// GetProgress returns nil, nil when no row exists for (userID, planID).
	GetProgress(ctx context.Context, userID, planID string) (*domain.PlanProgress, error)

	// UpsertProgress writes the full row for (userID, p.PlanID).
	UpsertProgress(ctx context.Context, userID string, p *domain.PlanProgress) error
}
