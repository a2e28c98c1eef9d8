// Package user provides registration and admin classification for bot users.
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/maks-ard/film-bot/internal/domain"
	"github.com/maks-ard/film-bot/internal/repository"
)

// FlagCache drops a cached admin flag once the stored record it mirrors has
// changed. The admin gate may have cached the user as absent before /start.
type FlagCache interface {
	Invalidate(ctx context.Context, userID int64)
}

// Service provides business operations over users.
type Service struct {
	repo   repository.UserRepository
	admins map[string]struct{}
	flags  FlagCache
	log    *slog.Logger
}

// NewService constructs a Service. adminUsernames is the allow-list of
// Telegram usernames classified as admins on registration. flags may be nil.
func NewService(repo repository.UserRepository, adminUsernames []string, flags FlagCache, log *slog.Logger) *Service {
	admins := make(map[string]struct{}, len(adminUsernames))
	for _, name := range adminUsernames {
		admins[name] = struct{}{}
	}

	return &Service{repo: repo, admins: admins, flags: flags, log: log}
}

// EnsureUser fetches a user by telegram ID or registers a new profile when
// missing. The second return value reports whether a new row was created.
func (s *Service) EnsureUser(ctx context.Context, telegramUser *telebot.User) (*domain.User, bool, error) {
	if telegramUser == nil {
		return nil, false, errors.New("telegram user is nil")
	}

	user, err := s.repo.FindByID(ctx, telegramUser.ID)
	if err == nil {
		return user, false, nil
	}

	if !errors.Is(err, repository.ErrNotFound) {
		s.logError("ensure_user.find", telegramUser.ID, err)
		return nil, false, fmt.Errorf("get user: %w", err)
	}

	now := time.Now().UTC()
	newUser := &domain.User{
		UserID:       telegramUser.ID,
		IsBot:        telegramUser.IsBot,
		FirstName:    telegramUser.FirstName,
		LastName:     telegramUser.LastName,
		Username:     telegramUser.Username,
		LanguageCode: telegramUser.LanguageCode,
		IsAdmin:      s.isAllowListed(telegramUser.Username),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if telegramUser.IsPremium {
		premium := true
		newUser.IsPremium = &premium
	}

	if err := s.repo.Create(ctx, newUser); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// Lost a registration race, the row exists now.
			existing, findErr := s.repo.FindByID(ctx, telegramUser.ID)
			if findErr == nil {
				return existing, false, nil
			}
		}
		s.logError("ensure_user.create", telegramUser.ID, err)
		return nil, false, fmt.Errorf("create user: %w", err)
	}

	if s.flags != nil {
		// the gate may have cached this user as a non-admin before the row existed
		s.flags.Invalidate(ctx, newUser.UserID)
	}

	return newUser, true, nil
}

// IsAdmin reports the stored admin flag for the user.
func (s *Service) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	isAdmin, err := s.repo.GetAdminFlag(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		s.logError("is_admin", userID, err)
		return false, err
	}

	return isAdmin, nil
}

func (s *Service) isAllowListed(username string) bool {
	if username == "" {
		return false
	}

	_, ok := s.admins[username]
	return ok
}

func (s *Service) logError(operation string, telegramID int64, err error) {
	if s == nil || s.log == nil || err == nil {
		return
	}

	s.log.Error("user service operation failed",
		slog.String("operation", operation),
		slog.Int64("telegram_id", telegramID),
		slog.Any("error", err),
	)
}
