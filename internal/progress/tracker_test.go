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

type memStore struct {
	mu      sync.Mutex
	records map[string]domain.PlanProgress
	saves   int
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]domain.PlanProgress)}
}

func (m *memStore) Load(_ context.Context, planID string) (domain.PlanProgress, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.records[planID]
	return p.Clone(), ok, nil
}

func (m *memStore) Save(_ context.Context, p domain.PlanProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[p.PlanID] = p.Clone()
	m.saves++
	return nil
}

type failingStore struct{ err error }

func (f failingStore) Load(context.Context, string) (domain.PlanProgress, bool, error) {
	return domain.PlanProgress{}, false, f.err
}

func (f failingStore) Save(context.Context, domain.PlanProgress) error { return f.err }

func trackers(t *testing.T) map[string]*Tracker {
	t.Helper()
	return map[string]*Tracker{
		"memory": NewTracker(newMemStore()),
		"local":  NewTracker(NewLocal(t.TempDir(), nil).ForUser("local")),
		"remote": NewTracker(NewRemote(newFakeRepo()).ForUser("anon_1")),
	}
}

func TestTracker_GetOrCreate(t *testing.T) {
	for name, tr := range trackers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			first, err := tr.GetOrCreate(ctx, "90-day-nt", 90)
			require.NoError(t, err)
			assert.Equal(t, "90-day-nt", first.PlanID)
			assert.Empty(t, first.CompletedDays)
			assert.False(t, first.Completed)

			second, err := tr.GetOrCreate(ctx, "90-day-nt", 90)
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}

func TestTracker_ThreeDayScenario(t *testing.T) {
	for name, tr := range trackers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			const plan, duration = "short", 3

			p, err := tr.ToggleDay(ctx, plan, 1, duration)
			require.NoError(t, err)
			assert.Equal(t, []int{1}, p.CompletedDays)
			assert.False(t, p.Completed)

			p, err = tr.ToggleDay(ctx, plan, 2, duration)
			require.NoError(t, err)
			assert.Equal(t, []int{1, 2}, p.CompletedDays)
			assert.False(t, p.Completed)

			p, err = tr.ToggleDay(ctx, plan, 3, duration)
			require.NoError(t, err)
			assert.Equal(t, []int{1, 2, 3}, p.CompletedDays)
			assert.True(t, p.Completed)

			p, err = tr.ToggleDay(ctx, plan, 1, duration)
			require.NoError(t, err)
			assert.Equal(t, []int{1, 2, 3}, p.CompletedDays)
			assert.True(t, p.Completed)

			stored, err := tr.GetOrCreate(ctx, plan, duration)
			require.NoError(t, err)
			assert.Equal(t, p, stored)
		})
	}
}

func TestTracker_ToggleIsItsOwnInverse(t *testing.T) {
	for name, tr := range trackers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := tr.ToggleDay(ctx, "p", 4, 10)
			require.NoError(t, err)
			before, err := tr.GetOrCreate(ctx, "p", 10)
			require.NoError(t, err)

			for _, day := range []int{1, 4, 10} {
				_, err = tr.ToggleDay(ctx, "p", day, 10)
				require.NoError(t, err)
				after, err := tr.ToggleDay(ctx, "p", day, 10)
				require.NoError(t, err)
				assert.Equal(t, before, after, "day %d", day)
			}
		})
	}
}

func TestTracker_UncheckingAfterCompletionIsBlocked(t *testing.T) {
	tr := NewTracker(newMemStore())
	ctx := context.Background()

	_, err := tr.ToggleDay(ctx, "p", 1, 2)
	require.NoError(t, err)
	p, err := tr.ToggleDay(ctx, "p", 2, 2)
	require.NoError(t, err)
	require.True(t, p.Completed)

	p, err = tr.ToggleDay(ctx, "p", 2, 2)
	require.NoError(t, err)
	assert.True(t, p.Completed)
	assert.Equal(t, []int{1, 2}, p.CompletedDays)
}

func TestTracker_CompletedTracksCountBeforeCompletion(t *testing.T) {
	tr := NewTracker(newMemStore())
	ctx := context.Background()

	_, err := tr.ToggleDay(ctx, "p", 1, 3)
	require.NoError(t, err)
	_, err = tr.ToggleDay(ctx, "p", 2, 3)
	require.NoError(t, err)
	p, err := tr.ToggleDay(ctx, "p", 2, 3)
	require.NoError(t, err)

	assert.Equal(t, []int{1}, p.CompletedDays)
	assert.False(t, p.Completed)
}

func TestTracker_MarkComplete(t *testing.T) {
	for name, tr := range trackers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			p, err := tr.MarkComplete(ctx, "fresh")
			require.NoError(t, err)
			assert.Empty(t, p.CompletedDays)
			assert.True(t, p.Completed)

			_, err = tr.ToggleDay(ctx, "partial", 3, 5)
			require.NoError(t, err)
			_, err = tr.MarkComplete(ctx, "partial")
			require.NoError(t, err)

			stored, err := tr.GetOrCreate(ctx, "partial", 5)
			require.NoError(t, err)
			assert.Empty(t, stored.CompletedDays)
			assert.True(t, stored.Completed)

			p, err = tr.ToggleDay(ctx, "partial", 1, 5)
			require.NoError(t, err)
			assert.Empty(t, p.CompletedDays)
			assert.True(t, p.Completed)
		})
	}
}

func TestTracker_Reset(t *testing.T) {
	tr := NewTracker(newMemStore())
	ctx := context.Background()

	_, err := tr.MarkComplete(ctx, "p")
	require.NoError(t, err)

	p, err := tr.Reset(ctx, "p")
	require.NoError(t, err)
	assert.False(t, p.Completed)
	assert.Empty(t, p.CompletedDays)

	p, err = tr.ToggleDay(ctx, "p", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, p.CompletedDays)
}

func TestTracker_ValidatesDay(t *testing.T) {
	store := newMemStore()
	tr := NewTracker(store)
	ctx := context.Background()

	for _, day := range []int{0, -1, 4} {
		_, err := tr.ToggleDay(ctx, "p", day, 3)
		assert.ErrorIs(t, err, ErrInvalidDay, "day %d", day)
	}

	_, err := tr.ToggleDay(ctx, "p", 1, 0)
	assert.ErrorIs(t, err, ErrInvalidDuration)
	assert.Zero(t, store.saves)
}

func TestTracker_PropagatesStoreErrors(t *testing.T) {
	boom := errors.New("connection refused")
	tr := NewTracker(failingStore{err: boom})
	ctx := context.Background()

	_, err := tr.GetOrCreate(ctx, "p", 3)
	assert.ErrorIs(t, err, boom)

	_, err = tr.ToggleDay(ctx, "p", 1, 3)
	assert.ErrorIs(t, err, boom)

	_, err = tr.MarkComplete(ctx, "p")
	assert.ErrorIs(t, err, boom)
}
