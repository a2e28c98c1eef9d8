package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/maks-ard/film-bot/internal/bot/keyboard"
	"github.com/maks-ard/film-bot/internal/state"
)

// NewCancelHandler discards the active wizard session. Cancelling without a
// session is a no-op with the same reply.
func NewCancelHandler(fsm state.StateMachine, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			log.Warn("cancel handler invoked without sender context")
			return nil
		}

		ctx := context.Background()

		if err := fsm.ClearState(ctx, sender.ID); err != nil {
			log.Error("failed to clear user state", slog.Int64("user_id", sender.ID), slog.Any("error", err))
			return c.Send("Произошла ошибка. Попробуйте позже")
		}

		return c.Send("Отменено", keyboard.Remove())
	}
}

// NewCancelCallback handles the inline cancel button identically to /cancel,
// acknowledging the callback so the button stops spinning.
func NewCancelCallback(fsm state.StateMachine, log *slog.Logger) CallbackHandler {
	cancel := NewCancelHandler(fsm, log)

	return func(c telebot.Context) error {
		if err := c.Respond(); err != nil && log != nil {
			log.Warn("failed to acknowledge cancel callback", slog.Any("error", err))
		}

		return cancel(c)
	}
}
