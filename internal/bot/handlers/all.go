package handlers

import (
	"context"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	apperrors "github.com/maks-ard/film-bot/internal/errors"
	"github.com/maks-ard/film-bot/internal/repository"
)

// NewAllHandler lists every stored film, one "<code> - <title>" per line,
// ordered by code.
func NewAllHandler(films repository.FilmRepository, errs *apperrors.Handler, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		ctx := context.Background()

		list, err := films.ListAll(ctx)
		if err != nil {
			userMsg, _ := errs.Handle(ctx, apperrors.NewDatabaseError(err))
			return c.Send(userMsg)
		}

		if len(list) == 0 {
			return c.Send("В базе пока нет фильмов")
		}

		lines := make([]string, 0, len(list))
		for _, film := range list {
			lines = append(lines, film.Label())
		}

		return c.Send(strings.Join(lines, "\n"))
	}
}
