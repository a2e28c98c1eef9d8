// Package state manages per-user wizard sessions for the bot.
package state

import "context"

// Storage defines the persistence contract for user wizard sessions.
type Storage interface {
	// GetState returns the current session for the specified user.
	GetState(ctx context.Context, userID int64) (*UserState, error)
	// SetState saves the provided session for the specified user.
	SetState(ctx context.Context, userID int64, state *UserState) error
	// ClearState removes the session for the specified user.
	ClearState(ctx context.Context, userID int64) error
	// GetAllStates returns every stored session.
	GetAllStates(ctx context.Context) ([]*UserState, error)
}
