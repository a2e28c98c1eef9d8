package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/maks-ard/film-bot/internal/state"
	"github.com/maks-ard/film-bot/internal/wizard"
)

// NewAddHandler starts the add-film wizard. A repeated /add discards the
// previous draft and restarts from the code step. Access is restricted by the
// admin gate upstream.
func NewAddHandler(fsm state.StateMachine, wiz *wizard.Wizard, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			log.Warn("add handler invoked without sender context")
			return nil
		}

		ctx := context.Background()

		session := &state.UserState{UserID: sender.ID, CurrentState: state.StateIdle}
		reply := wiz.Start(session)

		if err := fsm.SetState(ctx, sender.ID, session.CurrentState, session.Draft); err != nil {
			log.Error("failed to open wizard session", slog.Int64("user_id", sender.ID), slog.Any("error", err))
			return c.Send("Произошла ошибка. Попробуйте позже")
		}

		return sendReply(c, reply)
	}
}
