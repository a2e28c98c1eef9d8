package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/maks-ard/film-bot/internal/gate"
)

const (
	helpGeneralText = "Пришли код фильма из 4х цифр и получи название\n" +
		"/all - список всех фильмов"

	helpAdminText = "Команды администратора:\n" +
		"/add - добавить фильм\n" +
		"/del <код> - удалить фильм\n" +
		"/cancel - отменить добавление\n\n" +
		helpGeneralText
)

// NewHelpHandler shows the command reference. Admins see the extended list.
func NewHelpHandler(admins gate.AdminFlagSource, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			return nil
		}

		isAdmin, err := admins.IsAdmin(context.Background(), sender.ID)
		if err != nil {
			log.Error("failed to resolve admin flag for help", slog.Int64("user_id", sender.ID), slog.Any("error", err))
			isAdmin = false
		}

		if isAdmin {
			return c.Send(helpAdminText)
		}

		return c.Send(helpGeneralText)
	}
}
