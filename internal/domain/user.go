package domain

import "time"

// User represents a Telegram user stored in the database.
// The record is created on the first /start and never promoted or demoted
// afterwards: IsAdmin is fixed at creation time from the configured allow-list.
type User struct {
	UserID       int64
	IsBot        bool
	FirstName    string
	LastName     string
	Username     string
	LanguageCode string
	IsPremium    *bool
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
