package handlers

import (
	"context"
	"errors"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/maks-ard/film-bot/internal/bot/keyboard"
	apperrors "github.com/maks-ard/film-bot/internal/errors"
	"github.com/maks-ard/film-bot/internal/state"
	"github.com/maks-ard/film-bot/internal/wizard"
)

// NewWizardStepHandler feeds the incoming text into the active wizard session.
// The session is re-read here so the step always sees the latest draft; the
// session guard middleware serializes concurrent messages from the same user.
func NewWizardStepHandler(fsm state.StateMachine, wiz *wizard.Wizard, errs *apperrors.Handler, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			log.Warn("wizard step invoked without sender context")
			return nil
		}

		ctx := context.Background()

		session, err := fsm.GetState(ctx, sender.ID)
		if err != nil {
			if errors.Is(err, state.ErrStateNotFound) {
				// session expired between dispatch and execution
				return c.Send("Сессия добавления истекла, начни заново с /add", keyboard.Remove())
			}
			userMsg, _ := errs.Handle(ctx, err)
			return c.Send(userMsg)
		}

		reply, done, err := wiz.Advance(ctx, session, c.Text())
		if err != nil {
			if errors.Is(err, wizard.ErrNoSession) {
				return c.Send("Сессия добавления истекла, начни заново с /add", keyboard.Remove())
			}
			userMsg, _ := errs.Handle(ctx, err)
			return c.Send(userMsg)
		}

		if done {
			if err := fsm.ClearState(ctx, sender.ID); err != nil {
				log.Error("failed to close wizard session", slog.Int64("user_id", sender.ID), slog.Any("error", err))
			}
		} else {
			if err := fsm.SetState(ctx, sender.ID, session.CurrentState, session.Draft); err != nil {
				log.Error("failed to persist wizard session", slog.Int64("user_id", sender.ID), slog.Any("error", err))
				userMsg, _ := errs.Handle(ctx, err)
				return c.Send(userMsg)
			}
		}

		return sendReply(c, reply)
	}
}

// sendReply sends the wizard's reply with the markup its keyboard hint names.
func sendReply(c telebot.Context, reply wizard.Reply) error {
	switch reply.Keyboard {
	case wizard.KeyboardYesNo:
		return c.Send(reply.Text, keyboard.YesNo())
	case wizard.KeyboardCancel:
		return c.Send(reply.Text, keyboard.CancelInline())
	case wizard.KeyboardRemove:
		return c.Send(reply.Text, keyboard.Remove())
	default:
		return c.Send(reply.Text)
	}
}
