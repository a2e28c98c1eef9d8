// Package keyboard builds the reply and inline markups used by the bot.
package keyboard

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/maks-ard/film-bot/pkg/config"
)

// Callback data used by inline buttons.
const (
	CallbackWizardCancel = "wizard_cancel"
)

// YesNo builds the two-button reply keyboard shown on optional wizard steps.
func YesNo() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{
		ResizeKeyboard:  true,
		OneTimeKeyboard: true,
	}

	yesBtn := markup.Text("Да")
	noBtn := markup.Text("Нет")

	markup.Reply(markup.Row(yesBtn, noBtn))

	return markup
}

// Remove clears any reply keyboard from the user's chat.
func Remove() *telebot.ReplyMarkup {
	return &telebot.ReplyMarkup{RemoveKeyboard: true}
}

// CancelInline builds a single inline cancel button for wizard prompts.
func CancelInline() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	markup.InlineKeyboard = [][]telebot.InlineButton{
		{
			{
				Text: "Отмена ❌",
				Data: CallbackWizardCancel,
			},
		},
	}
	return markup
}

// Channels builds URL buttons for the required channels, one per row.
func Channels(channels []config.ChannelConfig) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	rows := make([][]telebot.InlineButton, 0, len(channels))
	for _, ch := range channels {
		rows = append(rows, []telebot.InlineButton{
			{
				Text: ch.Name,
				URL:  ch.URL,
			},
		})
	}
	markup.InlineKeyboard = rows
	return markup
}
