// Package jobs defines the background task queue for best-effort deliveries:
// operator notifications and the audit mirror. Failures are retried by the
// queue and never surfaced to the originating user.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeNewUserNotice = "notify:new_user"
	TaskTypeAuditMirror   = "audit:mirror"
)

const (
	QueueDefault = "default"
	QueueLow     = "low"
)

// NewUserNoticePayload announces a first-time user to the operator chats.
type NewUserNoticePayload struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// AuditMirrorPayload carries one inbound message to the audit chat.
type AuditMirrorPayload struct {
	FromID       int64  `json:"from_id"`
	FromUsername string `json:"from_username"`
	Text         string `json:"text"`
}

func NewNewUserNoticeTask(userID int64, username string) (*asynq.Task, error) {
	payload, err := json.Marshal(NewUserNoticePayload{UserID: userID, Username: username})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeNewUserNotice, payload, asynq.Queue(QueueDefault)), nil
}

func NewAuditMirrorTask(fromID int64, fromUsername, text string) (*asynq.Task, error) {
	payload, err := json.Marshal(AuditMirrorPayload{FromID: fromID, FromUsername: fromUsername, Text: text})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeAuditMirror, payload, asynq.Queue(QueueLow)), nil
}
