package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	userLockKeyPattern = "user:lock:%d"
	lockTTL            = 10 * time.Second
	lockAttempts       = 3
	lockRetryDelay     = 75 * time.Millisecond
)

var (
	// ErrStateNotFound indicates that a user session does not exist.
	ErrStateNotFound = errors.New("user state not found")
	// ErrStateLocked indicates that a concurrent update already holds the lock.
	ErrStateLocked = errors.New("state is locked, try again later")
)

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe wizard transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

// RecordTransition reports a wizard transition to the registered recorder.
func RecordTransition(from, to State) {
	transitionRecorder(string(from), string(to))
}

// StateMachine describes the operations supported by the wizard session controller.
//
// Get/Set/Clear do not lock on their own: callers serialize whole
// read-modify-write steps through WithUserLock so that two quick messages from
// the same user cannot interleave mid-step.
type StateMachine interface {
	GetState(ctx context.Context, userID int64) (*UserState, error)
	SetState(ctx context.Context, userID int64, state State, draft FilmDraft) error
	ClearState(ctx context.Context, userID int64) error
	GetAllStates(ctx context.Context) ([]*UserState, error)
	WithUserLock(ctx context.Context, userID int64, fn func(ctx context.Context) error) error
}

// machine is a concrete StateMachine backed by Storage and Redis locking.
type machine struct {
	storage     Storage
	log         *slog.Logger
	redisClient *redis.Client
}

// NewStateMachine creates a session controller using the provided storage
// backend and redis client for per-user locks.
func NewStateMachine(storage Storage, log *slog.Logger, redisClient *redis.Client) StateMachine {
	if log == nil {
		log = slog.Default()
	}

	return &machine{
		storage:     storage,
		log:         log,
		redisClient: redisClient,
	}
}

// GetState proxies to the underlying storage implementation.
func (m *machine) GetState(ctx context.Context, userID int64) (*UserState, error) {
	return m.storage.GetState(ctx, userID)
}

// GetAllStates returns every persisted user session.
func (m *machine) GetAllStates(ctx context.Context) ([]*UserState, error) {
	return m.storage.GetAllStates(ctx)
}

// SetState composes a UserState and persists it via storage.
func (m *machine) SetState(ctx context.Context, userID int64, state State, draft FilmDraft) error {
	userState := &UserState{
		UserID:       userID,
		CurrentState: state,
		Draft:        draft,
	}

	return m.storage.SetState(ctx, userID, userState)
}

// ClearState removes the stored session via the backing storage.
func (m *machine) ClearState(ctx context.Context, userID int64) error {
	return m.storage.ClearState(ctx, userID)
}

// WithUserLock serializes fn against other updates for the same user.
// Updates for different users proceed in parallel.
func (m *machine) WithUserLock(ctx context.Context, userID int64, fn func(ctx context.Context) error) error {
	if err := m.lock(ctx, userID); err != nil {
		return err
	}
	defer m.unlock(ctx, userID)

	return fn(ctx)
}

func (m *machine) lock(ctx context.Context, userID int64) error {
	if m.redisClient == nil {
		if m.log != nil {
			m.log.Warn("redis client not configured for state locks; skipping", "user_id", userID)
		}
		return nil
	}

	key := fmt.Sprintf(userLockKeyPattern, userID)

	for attempt := 0; attempt < lockAttempts; attempt++ {
		acquired, err := m.redisClient.SetNX(ctx, key, 1, lockTTL).Result()
		if err != nil {
			if m.log != nil {
				m.log.Error("failed to acquire user state lock", "user_id", userID, "error", err)
			}
			return err
		}

		if acquired {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}

	if m.log != nil {
		m.log.Warn("user state lock already held", "user_id", userID)
	}
	return ErrStateLocked
}

func (m *machine) unlock(ctx context.Context, userID int64) {
	if m.redisClient == nil {
		return
	}

	key := fmt.Sprintf(userLockKeyPattern, userID)
	if err := m.redisClient.Del(ctx, key).Err(); err != nil && m.log != nil {
		m.log.Error("failed to release user state lock", "user_id", userID, "error", err)
	}
}
