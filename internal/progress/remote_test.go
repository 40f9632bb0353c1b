package progress

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ashureev/altar-plans/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu   sync.Mutex
	rows map[string]domain.PlanProgress
	err  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: make(map[string]domain.PlanProgress)}
}

func (f *fakeRepo) GetProgress(_ context.Context, userID, planID string) (*domain.PlanProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.rows[userID+"/"+planID]
	if !ok {
		return nil, nil
	}
	c := p.Clone()
	return &c, nil
}

func (f *fakeRepo) UpsertProgress(_ context.Context, userID string, p *domain.PlanProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.rows[userID+"/"+p.PlanID] = p.Clone()
	return nil
}

func TestRemote_ScopesRowsByUser(t *testing.T) {
	repo := newFakeRepo()
	remote := NewRemote(repo)
	ctx := context.Background()

	_, err := NewTracker(remote.ForUser("alice")).ToggleDay(ctx, "p", 1, 5)
	require.NoError(t, err)

	bob, err := NewTracker(remote.ForUser("bob")).GetOrCreate(ctx, "p", 5)
	require.NoError(t, err)
	assert.Empty(t, bob.CompletedDays)

	alice, err := NewTracker(remote.ForUser("alice")).GetOrCreate(ctx, "p", 5)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, alice.CompletedDays)
}

func TestRemote_NormalizesStoredDays(t *testing.T) {
	repo := newFakeRepo()
	repo.rows["u/p"] = domain.PlanProgress{PlanID: "p", CompletedDays: []int{3, 1, 3}}

	p, ok, err := NewRemote(repo).ForUser("u").Load(context.Background(), "p")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int{1, 3}, p.CompletedDays)
}

func TestRemote_PropagatesFailures(t *testing.T) {
	repo := newFakeRepo()
	repo.err = errors.New("database is locked")
	tr := NewTracker(NewRemote(repo).ForUser("u"))

	_, err := tr.ToggleDay(context.Background(), "p", 1, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, repo.err)
	assert.Contains(t, err.Error(), "database is locked")
}

func TestRemote_LastWriteWins(t *testing.T) {
	repo := newFakeRepo()
	remote := NewRemote(repo)
	ctx := context.Background()

	// Two writers read the same empty record, then overwrite each other.
	a := remote.ForUser("u")
	b := remote.ForUser("u")
	pa := domain.NewPlanProgress("p")
	pb := domain.NewPlanProgress("p")
	pa.Toggle(1)
	pb.Toggle(2)

	require.NoError(t, a.Save(ctx, pa))
	require.NoError(t, b.Save(ctx, pb))

	got, ok, err := a.Load(ctx, "p")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int{2}, got.CompletedDays)
}
