// Package notify enqueues best-effort operator notifications and audit
// mirrors. Enqueue failures are logged and swallowed: the user-facing flow
// never depends on them.
package notify

import (
	"context"
	"log/slog"

	"github.com/maks-ard/film-bot/internal/jobs"
)

// Notifier enqueues delivery tasks for the background worker.
type Notifier struct {
	queue jobs.Manager
	log   *slog.Logger
}

// New constructs a Notifier. A nil queue disables notifications entirely.
func New(queue jobs.Manager, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}

	return &Notifier{
		queue: queue,
		log:   log,
	}
}

// NewUser announces a first-time user to the operator chats.
func (n *Notifier) NewUser(ctx context.Context, userID int64, username string) {
	if n == nil || n.queue == nil {
		return
	}

	task, err := jobs.NewNewUserNoticeTask(userID, username)
	if err != nil {
		n.log.Error("failed to build new user notice", slog.Int64("user_id", userID), slog.Any("error", err))
		return
	}

	if _, err := n.queue.Enqueue(ctx, task); err != nil {
		n.log.Error("failed to enqueue new user notice", slog.Int64("user_id", userID), slog.Any("error", err))
	}
}

// MirrorMessage copies one inbound message to the audit chat.
func (n *Notifier) MirrorMessage(ctx context.Context, fromID int64, fromUsername, text string) {
	if n == nil || n.queue == nil {
		return
	}

	task, err := jobs.NewAuditMirrorTask(fromID, fromUsername, text)
	if err != nil {
		n.log.Error("failed to build audit mirror", slog.Int64("from_id", fromID), slog.Any("error", err))
		return
	}

	if _, err := n.queue.Enqueue(ctx, task); err != nil {
		n.log.Error("failed to enqueue audit mirror", slog.Int64("from_id", fromID), slog.Any("error", err))
	}
}
