package admincache

import (
	"context"
	"io"
	"log/slog"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maks-ard/film-bot/internal/domain"
	"github.com/maks-ard/film-bot/internal/repository"
)

type fakeUsers struct {
	flags map[int64]bool
	calls int
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func (f *fakeUsers) Create(ctx context.Context, user *domain.User) error { return nil }

func (f *fakeUsers) FindByID(ctx context.Context, userID int64) (*domain.User, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetAdminFlag(ctx context.Context, userID int64) (bool, error) {
	f.calls++
	flag, ok := f.flags[userID]
	if !ok {
		return false, repository.ErrNotFound
	}
	return flag, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCache(t *testing.T, users *fakeUsers) *Cache {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return New(users, client, testLogger())
}

func TestCache_ReadsThroughOnce(t *testing.T) {
	users := &fakeUsers{flags: map[int64]bool{42: true}}
	cache := newCache(t, users)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		isAdmin, err := cache.IsAdmin(ctx, 42)
		require.NoError(t, err)
		assert.True(t, isAdmin)
	}

	assert.Equal(t, 1, users.calls, "repeated lookups must hit the cache")
}

func TestCache_UnknownUserIsNotAdmin(t *testing.T) {
	users := &fakeUsers{flags: map[int64]bool{}}
	cache := newCache(t, users)

	isAdmin, err := cache.IsAdmin(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, isAdmin)

	// the negative result is cached too
	_, err = cache.IsAdmin(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, users.calls)
}

func TestCache_InvalidateForcesReload(t *testing.T) {
	users := &fakeUsers{flags: map[int64]bool{42: false}}
	cache := newCache(t, users)
	ctx := context.Background()

	isAdmin, err := cache.IsAdmin(ctx, 42)
	require.NoError(t, err)
	assert.False(t, isAdmin)

	users.flags[42] = true
	cache.Invalidate(ctx, 42)

	isAdmin, err = cache.IsAdmin(ctx, 42)
	require.NoError(t, err)
	assert.True(t, isAdmin)
	assert.Equal(t, 2, users.calls)
}

func TestCache_NilClientGoesToRepository(t *testing.T) {
	users := &fakeUsers{flags: map[int64]bool{42: true}}
	cache := New(users, nil, testLogger())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		isAdmin, err := cache.IsAdmin(ctx, 42)
		require.NoError(t, err)
		assert.True(t, isAdmin)
	}

	assert.Equal(t, 2, users.calls)
}
