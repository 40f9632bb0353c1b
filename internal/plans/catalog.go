// Package plans provides the catalog of reading plans and their durations.
package plans

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ashureev/altar-plans/internal/domain"
	"github.com/google/uuid"
)

var (
	// ErrPlanNotFound is returned when no plan has the requested ID.
	ErrPlanNotFound = errors.New("plan not found")
	// ErrInvalidPlan is returned when a plan definition is incomplete.
	ErrInvalidPlan = errors.New("invalid plan")
)

// Repository persists custom plans.
type Repository interface {
	ListPlans(ctx context.Context) ([]*domain.StudyPlan, error)
	GetPlan(ctx context.Context, planID string) (*domain.StudyPlan, error)
	InsertPlan(ctx context.Context, plan *domain.StudyPlan) error
}

// Catalog resolves plans from the static set and, when configured, from a
// repository of custom plans.
type Catalog struct {
	static []*domain.StudyPlan
	byID   map[string]*domain.StudyPlan
	repo   Repository
}

// NewCatalog builds a catalog over static plans. repo may be nil, in which
// case custom plans cannot be created.
func NewCatalog(static []*domain.StudyPlan, repo Repository) (*Catalog, error) {
	byID := make(map[string]*domain.StudyPlan, len(static))
	for _, p := range static {
		if _, dup := byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate plan id %q", p.ID)
		}
		byID[p.ID] = p
	}
	return &Catalog{static: static, byID: byID, repo: repo}, nil
}

// List returns static plans followed by custom plans.
func (c *Catalog) List(ctx context.Context) ([]*domain.StudyPlan, error) {
	out := make([]*domain.StudyPlan, 0, len(c.static))
	out = append(out, c.static...)
	if c.repo == nil {
		return out, nil
	}

	custom, err := c.repo.ListPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("list custom plans: %w", err)
	}
	return append(out, custom...), nil
}

// Get returns the plan with id.
func (c *Catalog) Get(ctx context.Context, id string) (*domain.StudyPlan, error) {
	if p, ok := c.byID[id]; ok {
		return p, nil
	}
	if c.repo != nil {
		p, err := c.repo.GetPlan(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get plan %s: %w", id, err)
		}
		if p != nil {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, id)
}

// Create stores a custom plan. Days are renumbered 1..n in the given order
// and the duration is the number of readings.
func (c *Catalog) Create(ctx context.Context, title, description string, readings []domain.DailyReading) (*domain.StudyPlan, error) {
	if c.repo == nil {
		return nil, fmt.Errorf("%w: custom plans are not enabled", ErrInvalidPlan)
	}
	title = strings.TrimSpace(title)
	if err := validate(title, readings); err != nil {
		return nil, err
	}

	numbered := make([]domain.DailyReading, len(readings))
	for i, r := range readings {
		r.Day = i + 1
		numbered[i] = r
	}

	plan := &domain.StudyPlan{
		ID:          uuid.New().String(),
		Title:       title,
		Description: strings.TrimSpace(description),
		Duration:    len(numbered),
		Readings:    numbered,
		Source:      "client",
		CreatedAt:   time.Now(),
	}
	if err := c.repo.InsertPlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}
	return plan, nil
}

func validate(title string, readings []domain.DailyReading) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidPlan)
	}
	if len(readings) == 0 {
		return fmt.Errorf("%w: at least one reading is required", ErrInvalidPlan)
	}
	for i, r := range readings {
		if len(r.Passages) == 0 {
			return fmt.Errorf("%w: reading %d has no passages", ErrInvalidPlan, i+1)
		}
	}
	return nil
}
