package gate

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/maks-ard/film-bot/pkg/config"
)

const subscribeMessage = "Чтобы пользоваться ботом, подпишись на наши каналы"

// MembershipChecker resolves a user's membership status in a channel.
// Implementations make one network round trip per call.
type MembershipChecker interface {
	Status(ctx context.Context, chatID int64, userID int64) (string, error)
}

// allowedMemberStatuses are the platform roles counted as "subscribed".
var allowedMemberStatuses = map[string]struct{}{
	"member":        {},
	"administrator": {},
	"creator":       {},
}

// SubscriptionGate allows users subscribed to every required channel.
// Channels are checked sequentially and the gate denies on the first miss, so
// later channels are not looked up. A failed or timed-out lookup is a deny,
// never an allow. Admins are exempt.
type SubscriptionGate struct {
	channels []config.ChannelConfig
	members  MembershipChecker
	admins   AdminFlagSource
	markup   *telebot.ReplyMarkup
	log      *slog.Logger
}

// NewSubscriptionGate constructs the subscription gate. markup lists the
// channel links and is attached to every denial.
func NewSubscriptionGate(
	channels []config.ChannelConfig,
	members MembershipChecker,
	admins AdminFlagSource,
	markup *telebot.ReplyMarkup,
	log *slog.Logger,
) *SubscriptionGate {
	if log == nil {
		log = slog.Default()
	}

	return &SubscriptionGate{
		channels: channels,
		members:  members,
		admins:   admins,
		markup:   markup,
		log:      log,
	}
}

func (g *SubscriptionGate) Name() string {
	return "subscription"
}

func (g *SubscriptionGate) Check(ctx context.Context, sender *telebot.User, text string) Verdict {
	if sender == nil {
		return Deny("", nil)
	}

	if len(g.channels) == 0 {
		return Allow()
	}

	if g.admins != nil {
		isAdmin, err := g.admins.IsAdmin(ctx, sender.ID)
		if err == nil && isAdmin {
			return Allow()
		}
	}

	for _, channel := range g.channels {
		status, err := g.members.Status(ctx, channel.ChatID, sender.ID)
		if err != nil {
			g.log.Error("membership lookup failed",
				slog.Int64("user_id", sender.ID),
				slog.String("channel", channel.Name),
				slog.Any("error", err),
			)
			return Deny(subscribeMessage, g.markup)
		}

		if _, ok := allowedMemberStatuses[status]; !ok {
			g.log.Info("user is not subscribed",
				slog.Int64("user_id", sender.ID),
				slog.String("channel", channel.Name),
				slog.String("status", status),
			)
			return Deny(subscribeMessage, g.markup)
		}
	}

	return Allow()
}
