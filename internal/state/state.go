package state

import "time"

// State represents a finite-state machine state of the add-film wizard.
type State string

const (
	// StateIdle indicates that the bot is waiting for the next user command.
	StateIdle State = "idle"
	// StateAddCode indicates that the wizard is waiting for the film code.
	StateAddCode State = "add_code"
	// StateAddTitle indicates that the wizard is waiting for the film title.
	StateAddTitle State = "add_title"
	// StateDescriptionChoice indicates the yes/no prompt for a description.
	StateDescriptionChoice State = "add_description_choice"
	// StateAddDescription indicates that the wizard is waiting for the description text.
	StateAddDescription State = "add_description"
	// StateSourceURLChoice indicates the yes/no prompt for a shorts/reels link.
	StateSourceURLChoice State = "add_source_url_choice"
	// StateAddSourceURL indicates that the wizard is waiting for the shorts/reels link.
	StateAddSourceURL State = "add_source_url"
	// StateLinksChoice indicates the yes/no prompt for view links.
	StateLinksChoice State = "add_links_choice"
	// StateAddLinks indicates that the wizard is waiting for the space-separated view links.
	StateAddLinks State = "add_links"
)

// FilmDraft accumulates the answers collected by the wizard so far.
type FilmDraft struct {
	Code        int      `json:"code,omitempty"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	SourceURL   string   `json:"source_url,omitempty"`
	LinksView   []string `json:"links_view,omitempty"`
}

// UserState captures the current wizard state for a Telegram user.
// Exactly one session exists per user; a new /add overwrites it.
type UserState struct {
	UserID       int64     `json:"user_id"`
	CurrentState State     `json:"current_state"`
	Draft        FilmDraft `json:"draft"`
	UpdatedAt    time.Time `json:"updated_at"`
}
