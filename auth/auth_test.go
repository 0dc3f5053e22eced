package auth_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byuoitav/timecard-service/auth"
	"github.com/byuoitav/timecard-service/database"
)

type fakeUserSource struct {
	users map[string]database.User
	calls int
}

func (f *fakeUserSource) FindUserByToken(_ context.Context, token string) (database.User, error) {
	f.calls++
	u, ok := f.users[token]
	if !ok {
		return database.User{}, database.ErrNotFound
	}
	return u, nil
}

func newResolver(t *testing.T, users *fakeUserSource, ttl time.Duration) *auth.DatabaseResolver {
	t.Helper()
	r, err := auth.NewDatabaseResolver(users, filepath.Join(t.TempDir(), "auth-cache.db"), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestResolveKnownToken(t *testing.T) {
	users := &fakeUserSource{users: map[string]database.User{
		"tok-ann": {ID: "ann", Name: "Ann", Email: "ann@example.com", IsManager: true},
	}}
	r := newResolver(t, users, time.Minute)

	p, err := r.Resolve(context.Background(), "tok-ann")
	require.NoError(t, err)
	assert.Equal(t, auth.Principal{ID: "ann", IsManager: true}, p)
}

func TestResolveUnknownToken(t *testing.T) {
	r := newResolver(t, &fakeUserSource{users: map[string]database.User{}}, time.Minute)

	_, err := r.Resolve(context.Background(), "nope")
	assert.ErrorIs(t, err, auth.ErrNoPrincipal)
}

func TestResolveUsesCache(t *testing.T) {
	users := &fakeUserSource{users: map[string]database.User{
		"tok-bob": {ID: "bob"},
	}}
	r := newResolver(t, users, time.Minute)

	for i := 0; i < 3; i++ {
		p, err := r.Resolve(context.Background(), "tok-bob")
		require.NoError(t, err)
		assert.Equal(t, "bob", p.ID)
	}
	assert.Equal(t, 1, users.calls)
}

func TestResolveExpiredCacheGoesBackToSource(t *testing.T) {
	users := &fakeUserSource{users: map[string]database.User{
		"tok-bob": {ID: "bob"},
	}}
	// zero ttl means every cached entry is already stale
	r := newResolver(t, users, 0)

	for i := 0; i < 2; i++ {
		_, err := r.Resolve(context.Background(), "tok-bob")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, users.calls)
}
