package user

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/maks-ard/film-bot/internal/domain"
	"github.com/maks-ard/film-bot/internal/repository"
)

type fakeRepo struct {
	users     map[int64]*domain.User
	createErr error
}

var _ repository.UserRepository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[int64]*domain.User)}
}

func (f *fakeRepo) Create(ctx context.Context, user *domain.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, exists := f.users[user.UserID]; exists {
		return repository.ErrDuplicateKey
	}
	f.users[user.UserID] = user
	return nil
}

func (f *fakeRepo) FindByID(ctx context.Context, userID int64) (*domain.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return user, nil
}

func (f *fakeRepo) GetAdminFlag(ctx context.Context, userID int64) (bool, error) {
	user, ok := f.users[userID]
	if !ok {
		return false, repository.ErrNotFound
	}
	return user.IsAdmin, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEnsureUser_CreatesNewUser(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, []string{"admin_user"}, nil, testLogger())

	created, isNew, err := svc.EnsureUser(context.Background(), &telebot.User{
		ID:        42,
		FirstName: "Макс",
		Username:  "someone",
	})
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, int64(42), created.UserID)
	assert.False(t, created.IsAdmin)
	assert.False(t, created.CreatedAt.IsZero())
}

func TestEnsureUser_ExistingUserNotRecreated(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil, testLogger())

	sender := &telebot.User{ID: 42, FirstName: "Макс"}

	_, isNew, err := svc.EnsureUser(context.Background(), sender)
	require.NoError(t, err)
	assert.True(t, isNew)

	_, isNew, err = svc.EnsureUser(context.Background(), sender)
	require.NoError(t, err)
	assert.False(t, isNew, "second /start must not report a new user")
}

func TestEnsureUser_AllowListedUsernameBecomesAdmin(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, []string{"maks_ard", "quemarstu"}, nil, testLogger())

	created, _, err := svc.EnsureUser(context.Background(), &telebot.User{
		ID:       1,
		Username: "maks_ard",
	})
	require.NoError(t, err)
	assert.True(t, created.IsAdmin)

	other, _, err := svc.EnsureUser(context.Background(), &telebot.User{
		ID:       2,
		Username: "random",
	})
	require.NoError(t, err)
	assert.False(t, other.IsAdmin)
}

func TestEnsureUser_EmptyUsernameNeverAdmin(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, []string{""}, nil, testLogger())

	created, _, err := svc.EnsureUser(context.Background(), &telebot.User{ID: 3})
	require.NoError(t, err)
	assert.False(t, created.IsAdmin)
}

func TestEnsureUser_NilSender(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, nil, testLogger())

	_, _, err := svc.EnsureUser(context.Background(), nil)
	assert.Error(t, err)
}

func TestIsAdmin(t *testing.T) {
	repo := newFakeRepo()
	repo.users[1] = &domain.User{UserID: 1, IsAdmin: true}
	svc := NewService(repo, nil, nil, testLogger())

	isAdmin, err := svc.IsAdmin(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	isAdmin, err = svc.IsAdmin(context.Background(), 99)
	require.NoError(t, err, "unknown user is not an error")
	assert.False(t, isAdmin)
}

type fakeFlagCache struct {
	invalidated []int64
}

func (f *fakeFlagCache) Invalidate(ctx context.Context, userID int64) {
	f.invalidated = append(f.invalidated, userID)
}

func TestEnsureUser_InvalidatesAdminFlagCache(t *testing.T) {
	repo := newFakeRepo()
	flags := &fakeFlagCache{}
	svc := NewService(repo, []string{"maks_ard"}, flags, testLogger())

	sender := &telebot.User{ID: 42, Username: "maks_ard"}

	_, isNew, err := svc.EnsureUser(context.Background(), sender)
	require.NoError(t, err)
	require.True(t, isNew)
	assert.Equal(t, []int64{42}, flags.invalidated,
		"a cached non-admin verdict must not outlive registration")

	// a repeat /start changes nothing and must not touch the cache
	_, _, err = svc.EnsureUser(context.Background(), sender)
	require.NoError(t, err)
	assert.Len(t, flags.invalidated, 1)
}

func TestEnsureUser_CreateFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.createErr = errors.New("db down")
	svc := NewService(repo, nil, nil, testLogger())

	_, _, err := svc.EnsureUser(context.Background(), &telebot.User{ID: 42})
	assert.Error(t, err)
}
