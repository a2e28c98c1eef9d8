// Package gate implements the ordered predicate pipeline guarding command
// execution: admin check, code format check, channel subscription check.
package gate

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"
)

// Verdict is the outcome of a single gate evaluation. A deny with an empty
// Message is silent: the router falls through to the usage hint instead of
// reporting an error.
type Verdict struct {
	Allowed bool
	Message string
	Markup  *telebot.ReplyMarkup
}

// Allow returns a passing verdict.
func Allow() Verdict {
	return Verdict{Allowed: true}
}

// Deny returns a failing verdict with an optional user-facing explanation.
func Deny(message string, markup *telebot.ReplyMarkup) Verdict {
	return Verdict{Allowed: false, Message: message, Markup: markup}
}

// Gate is a named predicate over the acting user and the message text.
type Gate interface {
	Name() string
	Check(ctx context.Context, sender *telebot.User, text string) Verdict
}

var denialRecorder = func(gate string) {}

// RegisterDenialRecorder allows external packages to observe gate denials.
func RegisterDenialRecorder(recorder func(gate string)) {
	if recorder == nil {
		denialRecorder = func(string) {}
		return
	}

	denialRecorder = recorder
}

// Pipeline evaluates gates in order with short-circuit: the first deny stops
// evaluation, so later gates (and their side effects, such as membership
// lookups) never run.
type Pipeline struct {
	gates []Gate
	log   *slog.Logger
}

// NewPipeline builds a pipeline over the given ordered gates.
func NewPipeline(log *slog.Logger, gates ...Gate) *Pipeline {
	if log == nil {
		log = slog.Default()
	}

	return &Pipeline{
		gates: gates,
		log:   log,
	}
}

// Evaluate runs the gates in order and returns the first denying verdict
// together with the denying gate's name, or an allowing verdict.
func (p *Pipeline) Evaluate(ctx context.Context, sender *telebot.User, text string) (Verdict, string) {
	for _, g := range p.gates {
		verdict := g.Check(ctx, sender, text)
		if !verdict.Allowed {
			denialRecorder(g.Name())
			return verdict, g.Name()
		}
	}

	return Allow(), ""
}
