package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	telebot "gopkg.in/telebot.v3"

	"github.com/maks-ard/film-bot/internal/bot/handlers"
)

const dedupeTTL = 24 * time.Hour

// Dedupe drops updates that were already processed, keyed by message or
// callback identity in Redis. Telegram re-delivers updates after restarts and
// network hiccups; without this a re-delivered wizard answer would advance the
// session twice.
func Dedupe(client *redis.Client, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			if client == nil {
				return next(c)
			}

			key := extractUpdateKey(c)
			if key == "" {
				return next(c)
			}

			ctx := context.Background()

			first, err := client.SetNX(ctx, "update:seen:"+key, 1, dedupeTTL).Result()
			if err != nil {
				// fail open: processing twice beats dropping updates
				log.Warn("dedupe check failed", slog.String("key", key), slog.Any("error", err))
				return next(c)
			}

			if !first {
				log.Info("dropping duplicate update", slog.String("key", key))
				return nil
			}

			return next(c)
		}
	}
}

func extractUpdateKey(c telebot.Context) string {
	if c == nil {
		return ""
	}

	if cb := c.Callback(); cb != nil {
		if cb.ID != "" {
			return fmt.Sprintf("cb:%s", cb.ID)
		}

		if cb.Message != nil {
			chatID := int64(0)
			if cb.Message.Chat != nil {
				chatID = cb.Message.Chat.ID
			}
			return fmt.Sprintf("cb-msg:%d:%d", chatID, cb.Message.ID)
		}
	}

	if msg := c.Message(); msg != nil && msg.ID != 0 {
		chatID := int64(0)
		if msg.Chat != nil {
			chatID = msg.Chat.ID
		}
		return fmt.Sprintf("msg:%d:%d", chatID, msg.ID)
	}

	return ""
}
