package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/maks-ard/film-bot/internal/domain"
	apperrors "github.com/maks-ard/film-bot/internal/errors"
	"github.com/maks-ard/film-bot/internal/repository"
)

const deleteUsageText = "Некорректный формат!\nВведи в формате /del 1234"

// NewDeleteHandler removes a film by code: "/del 1234". Access is restricted
// by the admin gate upstream.
func NewDeleteHandler(films repository.FilmRepository, errs *apperrors.Handler, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		ctx := context.Background()

		fields := strings.Fields(c.Text())
		if len(fields) != 2 {
			return c.Send(deleteUsageText)
		}

		code, ok := domain.ParseCode(fields[1])
		if !ok {
			return c.Send(deleteUsageText)
		}

		title, err := films.GetTitle(ctx, code)
		switch {
		case err == nil:
		case errors.Is(err, repository.ErrNotFound):
			return c.Send(fmt.Sprintf("Фильм с кодом %d не найден", code))
		default:
			userMsg, _ := errs.Handle(ctx, apperrors.NewDatabaseError(err))
			return c.Send(userMsg)
		}

		if err := films.Delete(ctx, code); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return c.Send(fmt.Sprintf("Фильм с кодом %d не найден", code))
			}
			userMsg, _ := errs.Handle(ctx, apperrors.NewDatabaseError(err))
			return c.Send(userMsg)
		}

		log.Info("film deleted",
			slog.Int("code", code),
			slog.String("title", title),
			slog.Int64("user_id", c.Sender().ID),
		)

		return c.Send(fmt.Sprintf("Фильм %s удалён", title))
	}
}
