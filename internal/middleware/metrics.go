package middleware

import (
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/maks-ard/film-bot/internal/bot/handlers"
	"github.com/maks-ard/film-bot/pkg/metrics"
)

// Metrics measures execution time and status for bot handlers, reporting them to Prometheus.
func Metrics(next handlers.Handler) handlers.Handler {
	if next == nil {
		return nil
	}

	return func(c telebot.Context) error {
		start := time.Now()
		err := next(c)

		status := "ok"
		if err != nil {
			status = "error"
		}

		metrics.RecordCommand(updateKind(c), status, time.Since(start))

		return err
	}
}

// updateKind maps the update to a low-cardinality label: the command token,
// "callback", or "text" for free-form messages.
func updateKind(c telebot.Context) string {
	if c == nil {
		return "unknown"
	}

	if cb := c.Callback(); cb != nil {
		return "callback"
	}

	fields := strings.Fields(c.Text())
	if len(fields) > 0 && strings.HasPrefix(fields[0], "/") {
		cmd, _, _ := strings.Cut(fields[0], "@")
		return cmd
	}

	return "text"
}
