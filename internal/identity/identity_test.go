package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/altar-plans/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	lastSeens int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[string]*domain.User)}
}

func (f *fakeRepo) GetUser(_ context.Context, userID string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := f.users[userID]
	if user == nil {
		return nil, nil
	}
	copy := *user
	return &copy, nil
}

func (f *fakeRepo) UpsertUser(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy := *user
	f.users[user.UserID] = &copy
	return nil
}

func (f *fakeRepo) UpdateLastSeen(_ context.Context, userID string, lastSeen time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSeens++
	if u := f.users[userID]; u != nil {
		u.LastSeenAt = lastSeen
	}
	return nil
}

func serve(t *testing.T, repo *fakeRepo, req *http.Request) (*httptest.ResponseRecorder, context.Context) {
	t.Helper()
	var got context.Context
	h := Middleware(repo, true)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = r.Context()
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, got
}

func TestMiddleware_IssuesAnonymousIdentity(t *testing.T) {
	repo := newFakeRepo()
	rec, ctx := serve(t, repo, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	require.NotNil(t, ctx)

	userID := UserIDFromContext(ctx)
	assert.True(t, isValidAnonID(userID))
	assert.Equal(t, DefaultSessionIDValue, SessionIDFromContext(ctx))
	assert.Equal(t, "anon-"+userID[len(userID)-8:], UsernameFromContext(ctx))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, AnonCookieName, cookies[0].Name)
	assert.Equal(t, userID, cookies[0].Value)

	stored, err := repo.GetUser(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestMiddleware_ReusesCookieAndSession(t *testing.T) {
	repo := newFakeRepo()
	id := "anon_0123456789abcdef0123456789abcdef"

	req := httptest.NewRequest(http.MethodGet, "/api/plans?session_id=tab-2", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: id})
	_, ctx := serve(t, repo, req)

	assert.Equal(t, id, UserIDFromContext(ctx))
	assert.Equal(t, "tab-2", SessionIDFromContext(ctx))
}

func TestMiddleware_RejectsMalformedCookie(t *testing.T) {
	repo := newFakeRepo()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: "../../etc/passwd"})
	req.Header.Set(SessionHeaderName, "bad session id!")

	_, ctx := serve(t, repo, req)
	assert.NotEqual(t, "../../etc/passwd", UserIDFromContext(ctx))
	assert.Equal(t, DefaultSessionIDValue, SessionIDFromContext(ctx))
}

func TestEnsureUser_RefreshesStaleLastSeen(t *testing.T) {
	repo := newFakeRepo()
	ctx := context.Background()
	old := time.Now().Add(-time.Hour)
	require.NoError(t, repo.UpsertUser(ctx, &domain.User{UserID: "anon_x", LastSeenAt: old}))

	require.NoError(t, ensureUser(ctx, repo, "anon_x"))
	require.NoError(t, ensureUser(ctx, repo, "anon_x"))
	assert.Equal(t, 1, repo.lastSeens)
}
