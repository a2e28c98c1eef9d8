package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maks-ard/film-bot/internal/domain"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, userID int64) (*domain.User, error)
	// GetAdminFlag returns the stored is_admin flag.
	// ErrNotFound means the user has never started the bot; callers treat that
	// as non-admin.
	GetAdminFlag(ctx context.Context, userID int64) (bool, error)
}

type userRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewUserRepository creates a SQL-backed user repository.
func NewUserRepository(db *sql.DB, log *slog.Logger) UserRepository {
	return &userRepository{
		db:  db,
		log: log,
	}
}

// Create inserts a new user record inside a transaction.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
		INSERT INTO film_bot.users (user_id, is_bot, first_name, last_name, username, language_code, is_premium, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		_, execErr := tx.ExecContext(
			ctx,
			query,
			user.UserID,
			user.IsBot,
			user.FirstName,
			user.LastName,
			user.Username,
			user.LanguageCode,
			user.IsPremium,
			user.IsAdmin,
		)
		return execErr
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}

		if r.log != nil {
			r.log.Error("failed to create user", slog.Int64("user_id", user.UserID), slog.Any("error", err))
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID retrieves a user by its Telegram identifier.
func (r *userRepository) FindByID(ctx context.Context, userID int64) (*domain.User, error) {
	const query = `
		SELECT user_id, is_bot, first_name, last_name, username, language_code, is_premium, is_admin, date_add, date_update
		FROM film_bot.users
		WHERE user_id = $1
	`

	row := r.db.QueryRowContext(ctx, query, userID)

	var user domain.User
	if err := row.Scan(
		&user.UserID,
		&user.IsBot,
		&user.FirstName,
		&user.LastName,
		&user.Username,
		&user.LanguageCode,
		&user.IsPremium,
		&user.IsAdmin,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		if r.log != nil {
			r.log.Error("failed to fetch user", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return nil, fmt.Errorf("select user: %w", err)
	}

	return &user, nil
}

// GetAdminFlag returns the is_admin column for the given user.
func (r *userRepository) GetAdminFlag(ctx context.Context, userID int64) (bool, error) {
	const query = `SELECT is_admin FROM film_bot.users WHERE user_id = $1`

	var isAdmin bool
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&isAdmin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrNotFound
		}

		if r.log != nil {
			r.log.Error("failed to fetch admin flag", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return false, fmt.Errorf("select admin flag: %w", err)
	}

	return isAdmin, nil
}
