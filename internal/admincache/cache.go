// Package admincache provides Redis-backed caching for stored admin flags,
// keeping the admin gate off the database hot path.
package admincache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/maks-ard/film-bot/internal/repository"
)

const flagTTL = 5 * time.Minute

// Cache resolves admin flags through Redis with the user repository as the
// source of truth. Flags are fixed at user creation, so a short TTL only
// matters for users who /start after a cached miss.
type Cache struct {
	users  repository.UserRepository
	client *redis.Client
	log    *slog.Logger
}

// New constructs an admin flag cache. A nil client disables caching and every
// lookup goes to the repository.
func New(users repository.UserRepository, client *redis.Client, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}

	return &Cache{
		users:  users,
		client: client,
		log:    log,
	}
}

// IsAdmin reports whether the user's stored admin flag is set. Unknown users
// are non-admins.
func (c *Cache) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	if cached, ok := c.get(ctx, userID); ok {
		return cached, nil
	}

	isAdmin, err := c.users.GetAdminFlag(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.set(ctx, userID, false)
			return false, nil
		}

		return false, err
	}

	c.set(ctx, userID, isAdmin)
	return isAdmin, nil
}

// Invalidate drops the cached flag, used when a user record is created.
func (c *Cache) Invalidate(ctx context.Context, userID int64) {
	if c.client == nil {
		return
	}

	if err := c.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		c.log.Warn("failed to invalidate admin flag", slog.Int64("user_id", userID), slog.Any("error", err))
	}
}

func (c *Cache) get(ctx context.Context, userID int64) (bool, bool) {
	if c.client == nil {
		return false, false
	}

	value, err := c.client.Get(ctx, cacheKey(userID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("admin flag cache read failed", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return false, false
	}

	return value == "1", true
}

func (c *Cache) set(ctx context.Context, userID int64, isAdmin bool) {
	if c.client == nil {
		return
	}

	value := "0"
	if isAdmin {
		value = "1"
	}

	if err := c.client.Set(ctx, cacheKey(userID), value, flagTTL).Err(); err != nil {
		c.log.Warn("admin flag cache write failed", slog.Int64("user_id", userID), slog.Any("error", err))
	}
}

func cacheKey(userID int64) string {
	return fmt.Sprintf("admin:flag:%d", userID)
}
