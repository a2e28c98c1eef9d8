package handlers

import (
	"context"
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/maks-ard/film-bot/internal/notify"
	"github.com/maks-ard/film-bot/internal/user"
)

// NewStartHandler registers the sender and greets them. First-time users are
// announced to the operator chats through the notifier.
func NewStartHandler(users *user.Service, notifier *notify.Notifier, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			log.Warn("start handler invoked without sender context")
			return nil
		}

		ctx := context.Background()

		registered, created, err := users.EnsureUser(ctx, sender)
		if err != nil {
			log.Error("failed to register user", slog.Int64("user_id", sender.ID), slog.Any("error", err))
			return c.Send("Произошла ошибка. Попробуйте позже")
		}

		if created {
			notifier.NewUser(ctx, registered.UserID, registered.Username)
		}

		return c.Send(fmt.Sprintf("Привет, %s!\nПришли код фильма!", fullName(sender)))
	}
}

// fullName renders the sender the way telegram shows them: first name, plus
// the last name when one is set.
func fullName(u *telebot.User) string {
	if u.LastName == "" {
		return u.FirstName
	}

	return u.FirstName + " " + u.LastName
}
