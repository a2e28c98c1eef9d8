package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/maks-ard/film-bot/internal/domain"
)

// FilmRepository defines persistence operations for films.
type FilmRepository interface {
	// Create inserts a new film. ErrDuplicateKey is returned when the code is
	// already taken; concurrent inserts racing on one code are resolved by the
	// unique constraint.
	Create(ctx context.Context, film *domain.Film) error
	// GetTitle is a cheap existence check returning only the title.
	GetTitle(ctx context.Context, code int) (string, error)
	FindByCode(ctx context.Context, code int) (*domain.Film, error)
	Delete(ctx context.Context, code int) error
	ListAll(ctx context.Context) ([]*domain.Film, error)
}

type filmRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewFilmRepository creates a SQL-backed film repository.
func NewFilmRepository(db *sql.DB, log *slog.Logger) FilmRepository {
	return &filmRepository{
		db:  db,
		log: log,
	}
}

// Create inserts a new film record inside a transaction.
func (r *filmRepository) Create(ctx context.Context, film *domain.Film) error {
	const query = `
		INSERT INTO film_bot.films (code, title, description, links_view, source_url)
		VALUES ($1, $2, $3, $4, $5)
	`

	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		_, execErr := tx.ExecContext(
			ctx,
			query,
			film.Code,
			film.Title,
			nullableString(film.Description),
			pq.Array(film.LinksView),
			nullableString(film.SourceURL),
		)
		return execErr
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}

		if r.log != nil {
			r.log.Error("failed to create film", slog.Int("code", film.Code), slog.Any("error", err))
		}
		return fmt.Errorf("insert film: %w", err)
	}

	return nil
}

// GetTitle returns the title for the given code, or ErrNotFound.
func (r *filmRepository) GetTitle(ctx context.Context, code int) (string, error) {
	const query = `SELECT title FROM film_bot.films WHERE code = $1`

	var title string
	if err := r.db.QueryRowContext(ctx, query, code).Scan(&title); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}

		if r.log != nil {
			r.log.Error("failed to fetch film title", slog.Int("code", code), slog.Any("error", err))
		}
		return "", fmt.Errorf("select film title: %w", err)
	}

	return title, nil
}

// FindByCode retrieves the full film record for the given code.
func (r *filmRepository) FindByCode(ctx context.Context, code int) (*domain.Film, error) {
	const query = `
		SELECT code, title, description, links_view, source_url, date_add, date_update
		FROM film_bot.films
		WHERE code = $1
	`

	row := r.db.QueryRowContext(ctx, query, code)

	var (
		film        domain.Film
		description sql.NullString
		sourceURL   sql.NullString
	)
	if err := row.Scan(
		&film.Code,
		&film.Title,
		&description,
		pq.Array(&film.LinksView),
		&sourceURL,
		&film.CreatedAt,
		&film.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		if r.log != nil {
			r.log.Error("failed to fetch film", slog.Int("code", code), slog.Any("error", err))
		}
		return nil, fmt.Errorf("select film: %w", err)
	}

	film.Description = description.String
	film.SourceURL = sourceURL.String

	return &film, nil
}

// Delete removes the film with the given code inside a transaction.
func (r *filmRepository) Delete(ctx context.Context, code int) error {
	const query = `DELETE FROM film_bot.films WHERE code = $1`

	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		result, execErr := tx.ExecContext(ctx, query, code)
		if execErr != nil {
			return execErr
		}

		affected, execErr := result.RowsAffected()
		if execErr != nil {
			return execErr
		}
		if affected == 0 {
			return ErrNotFound
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}

		if r.log != nil {
			r.log.Error("failed to delete film", slog.Int("code", code), slog.Any("error", err))
		}
		return fmt.Errorf("delete film: %w", err)
	}

	return nil
}

// ListAll returns every film ordered by code.
func (r *filmRepository) ListAll(ctx context.Context) ([]*domain.Film, error) {
	const query = `
		SELECT code, title, description, links_view, source_url, date_add, date_update
		FROM film_bot.films
		ORDER BY code
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to list films", slog.Any("error", err))
		}
		return nil, fmt.Errorf("select films: %w", err)
	}
	defer rows.Close()

	var films []*domain.Film
	for rows.Next() {
		var (
			film        domain.Film
			description sql.NullString
			sourceURL   sql.NullString
		)
		if err := rows.Scan(
			&film.Code,
			&film.Title,
			&description,
			pq.Array(&film.LinksView),
			&sourceURL,
			&film.CreatedAt,
			&film.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan film row: %w", err)
		}

		film.Description = description.String
		film.SourceURL = sourceURL.String
		films = append(films, &film)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate film rows: %w", err)
	}

	return films, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
