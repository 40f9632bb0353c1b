package progress

import (
	"context"
	"fmt"

	"github.com/ashureev/altar-plans/internal/domain"
)

// Remote keeps one database row per (user, plan).
// Errors from the repository are returned to the caller unchanged in meaning.
type Remote struct {
	repo Repository
}

// NewRemote creates an Opener backed by repo.
func NewRemote(repo Repository) *Remote {
	return &Remote{repo: repo}
}

// ForUser returns the Store for userID.
func (r *Remote) ForUser(userID string) Store {
	return &remoteStore{repo: r.repo, userID: userID}
}

type remoteStore struct {
	repo   Repository
	userID string
}

func (s *remoteStore) Load(ctx context.Context, planID string) (domain.PlanProgress, bool, error) {
	p, err := s.repo.GetProgress(ctx, s.userID, planID)
	if err != nil {
		return domain.PlanProgress{}, false, fmt.Errorf("load progress %s: %w", planID, err)
	}
	if p == nil {
		return domain.PlanProgress{}, false, nil
	}
	p.Normalize()
	return *p, true, nil
}

func (s *remoteStore) Save(ctx context.Context, p domain.PlanProgress) error {
	if err := s.repo.UpsertProgress(ctx, s.userID, &p); err != nil {
		return fmt.Errorf("save progress %s: %w", p.PlanID, err)
	}
	return nil
}
