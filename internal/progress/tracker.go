package progress

import (
	"context"
	"errors"
	"fmt"

	"github.com/ashureev/altar-plans/internal/domain"
)

var (
	// ErrInvalidDay is returned when a day falls outside 1..duration.
	ErrInvalidDay = errors.New("day out of range")
	// ErrInvalidDuration is returned when a plan duration is not positive.
	ErrInvalidDuration = errors.New("duration must be positive")
)

// Tracker applies progress semantics on top of a Store.
//
// Writes are full-record overwrites; concurrent writers to the same plan
// resolve as last write wins.
type Tracker struct {
	store Store
}

// NewTracker creates a tracker over store.
func NewTracker(store Store) *Tracker {
	return &Tracker{store: store}
}

// GetOrCreate returns the record for planID, creating an empty one first if
// none exists.
func (t *Tracker) GetOrCreate(ctx context.Context, planID string, duration int) (domain.PlanProgress, error) {
	p, ok, err := t.store.Load(ctx, planID)
	if err != nil {
		return domain.PlanProgress{}, err
	}
	if ok {
		return p, nil
	}

	p = domain.NewPlanProgress(planID)
	if err := t.store.Save(ctx, p); err != nil {
		return domain.PlanProgress{}, err
	}
	return p, nil
}

// ToggleDay flips day on the plan and recomputes Completed. A plan that is
// already completed is left untouched.
func (t *Tracker) ToggleDay(ctx context.Context, planID string, day, duration int) (domain.PlanProgress, error) {
	if duration < 1 {
		return domain.PlanProgress{}, fmt.Errorf("%w: %d", ErrInvalidDuration, duration)
	}
	if day < 1 || day > duration {
		return domain.PlanProgress{}, fmt.Errorf("%w: day %d of %d", ErrInvalidDay, day, duration)
	}

	p, err := t.GetOrCreate(ctx, planID, duration)
	if err != nil {
		return domain.PlanProgress{}, err
	}
	if p.Completed {
		return p, nil
	}

	p.Toggle(day)
	p.Completed = len(p.CompletedDays) == duration

	if err := t.store.Save(ctx, p); err != nil {
		return domain.PlanProgress{}, err
	}
	return p, nil
}

// MarkComplete finishes the plan without per-day tracking: Completed is set
// and CompletedDays cleared.
func (t *Tracker) MarkComplete(ctx context.Context, planID string) (domain.PlanProgress, error) {
	p := domain.PlanProgress{PlanID: planID, CompletedDays: []int{}, Completed: true}
	if err := t.store.Save(ctx, p); err != nil {
		return domain.PlanProgress{}, err
	}
	return p, nil
}

// Reset clears all progress on the plan, reopening it if it was completed.
func (t *Tracker) Reset(ctx context.Context, planID string) (domain.PlanProgress, error) {
	p := domain.NewPlanProgress(planID)
	if err := t.store.Save(ctx, p); err != nil {
		return domain.PlanProgress{}, err
	}
	return p, nil
}
