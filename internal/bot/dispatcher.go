package bot

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	telebot "gopkg.in/telebot.v3"

	"github.com/maks-ard/film-bot/internal/bot/handlers"
	"github.com/maks-ard/film-bot/internal/state"
)

// Dispatcher resolves incoming text to wizard step handlers based on the
// sender's session state.
type Dispatcher struct {
	fsm           state.StateMachine
	stateHandlers map[state.State]handlers.Handler
	log           *slog.Logger
	mu            sync.RWMutex
}

// NewDispatcher creates a Dispatcher with an empty handlers registry.
func NewDispatcher(fsm state.StateMachine, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		fsm:           fsm,
		stateHandlers: make(map[state.State]handlers.Handler),
		log:           log,
	}
}

// RegisterStateHandler registers a handler for the provided state.
func (d *Dispatcher) RegisterStateHandler(s state.State, h handlers.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stateHandlers[s] = h
}

// Resolve returns the handler for the sender's current session state. Idle or
// missing sessions resolve to nothing so the router falls through.
func (d *Dispatcher) Resolve(c telebot.Context) (handlers.Handler, bool) {
	if c == nil || c.Sender() == nil {
		return nil, false
	}

	ctx := context.Background()
	userID := c.Sender().ID

	userState, err := d.fsm.GetState(ctx, userID)
	if err != nil {
		if !errors.Is(err, state.ErrStateNotFound) {
			d.log.Error("failed to fetch user session", "user_id", userID, "error", err)
		}
		return nil, false
	}
	if userState == nil || userState.CurrentState == state.StateIdle {
		return nil, false
	}

	handler := d.getHandler(userState.CurrentState)
	if handler == nil {
		d.log.Warn("no handler registered for state", "state", userState.CurrentState, "user_id", userID)
		return nil, false
	}

	return handler, true
}

func (d *Dispatcher) getHandler(s state.State) handlers.Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stateHandlers[s]
}
