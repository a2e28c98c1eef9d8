package membership

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	apperrors "github.com/maks-ard/film-bot/internal/errors"
)

type fakeAPI struct {
	role  telebot.MemberStatus
	err   error
	delay time.Duration
}

func (f *fakeAPI) ChatMemberOf(chat, user telebot.Recipient) (*telebot.ChatMember, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &telebot.ChatMember{Role: f.role}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestChecker_Status(t *testing.T) {
	checker := NewChecker(&fakeAPI{role: telebot.Member}, time.Second, testLogger())

	status, err := checker.Status(context.Background(), -100, 42)
	require.NoError(t, err)
	assert.Equal(t, "member", status)
}

func TestChecker_APIError(t *testing.T) {
	checker := NewChecker(&fakeAPI{err: errors.New("chat not found")}, time.Second, testLogger())

	_, err := checker.Status(context.Background(), -100, 42)
	require.Error(t, err)

	var appErr *apperrors.AppError
	assert.ErrorAs(t, err, &appErr)
}

func TestChecker_Timeout(t *testing.T) {
	checker := NewChecker(&fakeAPI{role: telebot.Member, delay: 500 * time.Millisecond}, 50*time.Millisecond, testLogger())

	start := time.Now()
	_, err := checker.Status(context.Background(), -100, 42)
	elapsed := time.Since(start)

	assert.Error(t, err, "a slow lookup must fail, not hang")
	assert.Less(t, elapsed, 400*time.Millisecond)
}

func TestChecker_CancelledContext(t *testing.T) {
	checker := NewChecker(&fakeAPI{role: telebot.Member, delay: 200 * time.Millisecond}, time.Second, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := checker.Status(ctx, -100, 42)
	assert.Error(t, err)
}
