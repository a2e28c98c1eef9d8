package gate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/maks-ard/film-bot/pkg/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubFlags struct {
	admin bool
	err   error
}

func (s stubFlags) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	return s.admin, s.err
}

// recordingGate counts invocations so pipeline short-circuiting is observable.
type recordingGate struct {
	name    string
	verdict Verdict
	calls   int
}

func (g *recordingGate) Name() string { return g.name }

func (g *recordingGate) Check(ctx context.Context, sender *telebot.User, text string) Verdict {
	g.calls++
	return g.verdict
}

func TestCodeGate(t *testing.T) {
	gate := NewCodeGate()
	ctx := context.Background()

	tests := []struct {
		text    string
		allowed bool
	}{
		{"1234", true},
		{"1", true},
		{"0", true},
		{"9999", true},
		{"12345", false},
		{"12a4", false},
		{"", false},
		{"-123", false},
		{" 123", false},
		{"привет", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			verdict := gate.Check(ctx, &telebot.User{ID: 1}, tt.text)
			assert.Equal(t, tt.allowed, verdict.Allowed)
			if !tt.allowed {
				assert.Empty(t, verdict.Message, "code gate denials are silent")
			}
		})
	}
}

func TestAdminGate(t *testing.T) {
	ctx := context.Background()
	sender := &telebot.User{ID: 5, Username: "someone"}

	t.Run("admin passes", func(t *testing.T) {
		gate := NewAdminGate(stubFlags{admin: true}, testLogger())
		assert.True(t, gate.Check(ctx, sender, "/add").Allowed)
	})

	t.Run("non-admin denied silently", func(t *testing.T) {
		gate := NewAdminGate(stubFlags{admin: false}, testLogger())
		verdict := gate.Check(ctx, sender, "/add")
		assert.False(t, verdict.Allowed)
		assert.Empty(t, verdict.Message)
	})

	t.Run("lookup error fails closed", func(t *testing.T) {
		gate := NewAdminGate(stubFlags{err: errors.New("store down")}, testLogger())
		verdict := gate.Check(ctx, sender, "/add")
		assert.False(t, verdict.Allowed)
		assert.Empty(t, verdict.Message)
	})

	t.Run("nil sender denied", func(t *testing.T) {
		gate := NewAdminGate(stubFlags{admin: true}, testLogger())
		assert.False(t, gate.Check(ctx, nil, "/add").Allowed)
	})
}

type stubMembers struct {
	statuses map[int64]string
	err      error
	calls    []int64
}

func (s *stubMembers) Status(ctx context.Context, chatID int64, userID int64) (string, error) {
	s.calls = append(s.calls, chatID)
	if s.err != nil {
		return "", s.err
	}
	return s.statuses[chatID], nil
}

func testChannels() []config.ChannelConfig {
	return []config.ChannelConfig{
		{Name: "Новости", URL: "https://t.me/news", ChatID: -100},
		{Name: "Фильмы", URL: "https://t.me/films", ChatID: -200},
	}
}

func TestSubscriptionGate(t *testing.T) {
	ctx := context.Background()
	sender := &telebot.User{ID: 5}

	t.Run("subscribed everywhere passes", func(t *testing.T) {
		members := &stubMembers{statuses: map[int64]string{-100: "member", -200: "creator"}}
		gate := NewSubscriptionGate(testChannels(), members, stubFlags{}, nil, testLogger())

		assert.True(t, gate.Check(ctx, sender, "1234").Allowed)
		assert.Equal(t, []int64{-100, -200}, members.calls)
	})

	t.Run("first miss short-circuits", func(t *testing.T) {
		members := &stubMembers{statuses: map[int64]string{-100: "left", -200: "member"}}
		gate := NewSubscriptionGate(testChannels(), members, stubFlags{}, nil, testLogger())

		verdict := gate.Check(ctx, sender, "1234")
		assert.False(t, verdict.Allowed)
		assert.NotEmpty(t, verdict.Message)
		assert.Equal(t, []int64{-100}, members.calls, "second channel must not be looked up")
	})

	t.Run("lookup error denies", func(t *testing.T) {
		members := &stubMembers{err: errors.New("timeout")}
		gate := NewSubscriptionGate(testChannels(), members, stubFlags{}, nil, testLogger())

		verdict := gate.Check(ctx, sender, "1234")
		assert.False(t, verdict.Allowed)
		assert.NotEmpty(t, verdict.Message)
	})

	t.Run("admin exempt", func(t *testing.T) {
		members := &stubMembers{statuses: map[int64]string{}}
		gate := NewSubscriptionGate(testChannels(), members, stubFlags{admin: true}, nil, testLogger())

		assert.True(t, gate.Check(ctx, sender, "1234").Allowed)
		assert.Empty(t, members.calls)
	})

	t.Run("no channels configured passes", func(t *testing.T) {
		gate := NewSubscriptionGate(nil, &stubMembers{}, stubFlags{}, nil, testLogger())
		assert.True(t, gate.Check(ctx, sender, "1234").Allowed)
	})
}

func TestPipelineShortCircuit(t *testing.T) {
	first := &recordingGate{name: "first", verdict: Deny("stop", nil)}
	second := &recordingGate{name: "second", verdict: Allow()}

	pipeline := NewPipeline(testLogger(), first, second)

	verdict, deniedBy := pipeline.Evaluate(context.Background(), &telebot.User{ID: 1}, "x")
	require.False(t, verdict.Allowed)
	assert.Equal(t, "stop", verdict.Message)
	assert.Equal(t, "first", deniedBy)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls, "gates after a denial must not run")
}

func TestPipelineAllowsWhenAllPass(t *testing.T) {
	first := &recordingGate{name: "first", verdict: Allow()}
	second := &recordingGate{name: "second", verdict: Allow()}

	pipeline := NewPipeline(testLogger(), first, second)

	verdict, deniedBy := pipeline.Evaluate(context.Background(), &telebot.User{ID: 1}, "x")
	assert.True(t, verdict.Allowed)
	assert.Empty(t, deniedBy)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}
