// Package handlers implements the asynq task handlers delivering queued
// messages to Telegram.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	telebot "gopkg.in/telebot.v3"

	"github.com/maks-ard/film-bot/internal/jobs"
)

// Sender is the subset of telebot.Bot used for deliveries.
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// NewUserNotice delivers new-user announcements to every operator chat.
type NewUserNotice struct {
	sender          Sender
	operatorChatIDs []int64
	log             *slog.Logger
}

func NewNewUserNotice(sender Sender, operatorChatIDs []int64, log *slog.Logger) *NewUserNotice {
	if log == nil {
		log = slog.Default()
	}

	return &NewUserNotice{
		sender:          sender,
		operatorChatIDs: operatorChatIDs,
		log:             log,
	}
}

// ProcessTask sends the announcement to each operator chat. A failed chat
// fails the task so the queue retries it.
func (h *NewUserNotice) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload jobs.NewUserNoticePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode new user notice payload: %w", err)
	}

	name := payload.Username
	if name == "" {
		name = fmt.Sprintf("id:%d", payload.UserID)
	}

	text := fmt.Sprintf("Боту написал новый пользователь: %s", name)

	for _, chatID := range h.operatorChatIDs {
		if _, err := h.sender.Send(telebot.ChatID(chatID), text); err != nil {
			h.log.Error("failed to notify operator chat",
				slog.Int64("chat_id", chatID),
				slog.Int64("user_id", payload.UserID),
				slog.Any("error", err),
			)
			return fmt.Errorf("send new user notice to %d: %w", chatID, err)
		}
	}

	return nil
}

// AuditMirror delivers inbound message copies to the audit chat.
type AuditMirror struct {
	sender      Sender
	auditChatID int64
	log         *slog.Logger
}

func NewAuditMirror(sender Sender, auditChatID int64, log *slog.Logger) *AuditMirror {
	if log == nil {
		log = slog.Default()
	}

	return &AuditMirror{
		sender:      sender,
		auditChatID: auditChatID,
		log:         log,
	}
}

func (h *AuditMirror) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload jobs.AuditMirrorPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode audit mirror payload: %w", err)
	}

	text := fmt.Sprintf("@%s (%d):\n%s", payload.FromUsername, payload.FromID, payload.Text)
	if _, err := h.sender.Send(telebot.ChatID(h.auditChatID), text); err != nil {
		h.log.Error("failed to mirror message to audit chat",
			slog.Int64("from_id", payload.FromID),
			slog.Any("error", err),
		)
		return fmt.Errorf("send audit mirror: %w", err)
	}

	return nil
}
