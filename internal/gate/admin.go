package gate

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"
)

// AdminFlagSource resolves the stored is_admin flag for a user.
// An unknown user reports ok=false and is treated as non-admin.
type AdminFlagSource interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
}

// AdminGate allows only users whose stored admin flag is set.
type AdminGate struct {
	flags AdminFlagSource
	log   *slog.Logger
}

// NewAdminGate constructs the admin gate over the given flag source.
func NewAdminGate(flags AdminFlagSource, log *slog.Logger) *AdminGate {
	if log == nil {
		log = slog.Default()
	}

	return &AdminGate{
		flags: flags,
		log:   log,
	}
}

func (g *AdminGate) Name() string {
	return "admin"
}

// Check denies silently: a non-admin poking at admin commands gets the usual
// usage hint, not a confirmation that the command exists.
func (g *AdminGate) Check(ctx context.Context, sender *telebot.User, text string) Verdict {
	if sender == nil {
		return Deny("", nil)
	}

	isAdmin, err := g.flags.IsAdmin(ctx, sender.ID)
	if err != nil {
		// store unavailable: fail closed
		g.log.Error("admin flag lookup failed", slog.Int64("user_id", sender.ID), slog.Any("error", err))
		return Deny("", nil)
	}

	if !isAdmin {
		// Note: this records the raw message text of a denied user.
		g.log.Warn("an attempt to use the admin panel without rights",
			slog.Int64("user_id", sender.ID),
			slog.String("user", sender.Username),
			slog.String("text", text),
		)
		return Deny("", nil)
	}

	return Allow()
}
