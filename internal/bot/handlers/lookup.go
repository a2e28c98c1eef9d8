package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/maks-ard/film-bot/internal/domain"
	apperrors "github.com/maks-ard/film-bot/internal/errors"
	"github.com/maks-ard/film-bot/internal/gate"
	"github.com/maks-ard/film-bot/internal/repository"
)

// usageHintText is the fallback reply for any text the bot cannot act on.
const usageHintText = "Напиши код фильма из 4х цифр"

// NewLookupHandler resolves free text as a film code lookup behind the gate
// pipeline (code format, then channel subscription). A silent denial falls
// through to the usage hint.
func NewLookupHandler(films repository.FilmRepository, pipeline *gate.Pipeline, errs *apperrors.Handler, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			return nil
		}

		ctx := context.Background()
		text := c.Text()

		verdict, deniedBy := pipeline.Evaluate(ctx, sender, text)
		if !verdict.Allowed {
			if verdict.Message == "" {
				return c.Send(usageHintText)
			}

			log.Info("lookup denied",
				slog.String("gate", deniedBy),
				slog.Int64("user_id", sender.ID),
			)

			if verdict.Markup != nil {
				return c.Send(verdict.Message, verdict.Markup)
			}
			return c.Send(verdict.Message)
		}

		code, ok := domain.ParseCode(text)
		if !ok {
			// the code gate admitted it, so this should not happen
			return c.Send(usageHintText)
		}

		film, err := films.FindByCode(ctx, code)
		switch {
		case err == nil:
			return c.Send(film.Card())
		case errors.Is(err, repository.ErrNotFound):
			return c.Send(fmt.Sprintf("Фильм с кодом %d не найден!", code))
		default:
			userMsg, _ := errs.Handle(ctx, apperrors.NewDatabaseError(err))
			return c.Send(userMsg)
		}
	}
}
