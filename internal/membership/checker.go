// Package membership resolves channel membership through the Telegram API.
package membership

import (
	"context"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	apperrors "github.com/maks-ard/film-bot/internal/errors"
)

const defaultTimeout = 3 * time.Second

// ChatMemberAPI is the subset of telebot.Bot used for membership lookups.
type ChatMemberAPI interface {
	ChatMemberOf(chat, user telebot.Recipient) (*telebot.ChatMember, error)
}

// Checker performs bounded membership lookups behind a circuit breaker.
// These lookups sit on the critical path of every non-admin code lookup, so
// a slow or failing Telegram API must degrade into fast denials, not hangs.
type Checker struct {
	api     ChatMemberAPI
	breaker *apperrors.CircuitBreaker
	timeout time.Duration
	log     *slog.Logger
}

// NewChecker constructs a Checker. timeout bounds one lookup; zero means the
// default.
func NewChecker(api ChatMemberAPI, timeout time.Duration, log *slog.Logger) *Checker {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}

	return &Checker{
		api:     api,
		breaker: apperrors.NewCircuitBreaker(),
		timeout: timeout,
		log:     log,
	}
}

// Status returns the user's membership status in the given chat. Errors and
// timeouts surface as errors; the caller treats them as a deny.
func (c *Checker) Status(ctx context.Context, chatID int64, userID int64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var status string

	err := c.breaker.Call(func() error {
		type result struct {
			member *telebot.ChatMember
			err    error
		}

		resCh := make(chan result, 1)
		go func() {
			member, err := c.api.ChatMemberOf(&telebot.Chat{ID: chatID}, &telebot.User{ID: userID})
			resCh <- result{member: member, err: err}
		}()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case res := <-resCh:
			if res.err != nil {
				return res.err
			}
			status = string(res.member.Role)
			return nil
		}
	})
	if err != nil {
		return "", apperrors.NewExternalAPIError("telegram getChatMember", err)
	}

	return status, nil
}
