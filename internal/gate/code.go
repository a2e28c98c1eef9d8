package gate

import (
	"context"

	telebot "gopkg.in/telebot.v3"

	"github.com/maks-ard/film-bot/internal/domain"
)

// CodeGate allows messages whose text is a well-formed film code: decimal
// digits only, one to four characters. It is a routing predicate, so denial
// is always silent.
type CodeGate struct{}

// NewCodeGate constructs the code format gate.
func NewCodeGate() *CodeGate {
	return &CodeGate{}
}

func (g *CodeGate) Name() string {
	return "code_format"
}

func (g *CodeGate) Check(_ context.Context, _ *telebot.User, text string) Verdict {
	if _, ok := domain.ParseCode(text); !ok {
		return Deny("", nil)
	}

	return Allow()
}
