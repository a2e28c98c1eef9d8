// Package wizard implements the multi-step add-film dialogue.
//
// The step logic is transport-free: it consumes one text input against the
// user's current session, mutates the session, and describes the reply to
// send. The telegram handler around it owns locking, persistence, and markup.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maks-ard/film-bot/internal/domain"
	apperrors "github.com/maks-ard/film-bot/internal/errors"
	"github.com/maks-ard/film-bot/internal/repository"
	"github.com/maks-ard/film-bot/internal/state"
)

// ErrNoSession indicates that the user has no active wizard session.
var ErrNoSession = errors.New("no active wizard session")

// KeyboardHint tells the transport layer which markup to attach to a reply.
type KeyboardHint int

const (
	KeyboardNone KeyboardHint = iota
	KeyboardYesNo
	KeyboardCancel
	KeyboardRemove
)

// Reply describes the message the wizard wants sent back to the user.
type Reply struct {
	Text     string
	Keyboard KeyboardHint
}

// Wizard drives the add-film dialogue over a user session.
type Wizard struct {
	films repository.FilmRepository
	log   *slog.Logger
}

// New constructs the wizard over the film store.
func New(films repository.FilmRepository, log *slog.Logger) *Wizard {
	if log == nil {
		log = slog.Default()
	}

	return &Wizard{
		films: films,
		log:   log,
	}
}

// Start resets the session to the first step. A /add while a session is
// already active restarts it: the previous draft is discarded.
func (w *Wizard) Start(s *state.UserState) Reply {
	state.RecordTransition(s.CurrentState, state.StateAddCode)
	s.CurrentState = state.StateAddCode
	s.Draft = state.FilmDraft{}

	return Reply{Text: "Введи код фильма", Keyboard: KeyboardCancel}
}

// Advance consumes one input for the current step. It returns the reply to
// send and done=true when the session is finished and must be cleared.
func (w *Wizard) Advance(ctx context.Context, s *state.UserState, input string) (Reply, bool, error) {
	input = strings.TrimSpace(input)

	switch s.CurrentState {
	case state.StateIdle:
		return Reply{}, false, ErrNoSession
	case state.StateAddCode:
		return w.stepCode(ctx, s, input)
	case state.StateAddTitle:
		return w.stepTitle(s, input)
	case state.StateDescriptionChoice:
		return w.stepChoice(s, input,
			state.StateAddDescription, Reply{Text: "Введи описание", Keyboard: KeyboardCancel},
			state.StateSourceURLChoice, Reply{Text: "Добавить ссылку reels/shorts?", Keyboard: KeyboardYesNo},
		)
	case state.StateAddDescription:
		s.Draft.Description = input
		w.moveTo(s, state.StateSourceURLChoice)
		return Reply{Text: "Добавить ссылку reels/shorts?", Keyboard: KeyboardYesNo}, false, nil
	case state.StateSourceURLChoice:
		return w.stepChoice(s, input,
			state.StateAddSourceURL, Reply{Text: "Введи ссылку reels/shorts", Keyboard: KeyboardCancel},
			state.StateLinksChoice, Reply{Text: "Добавить ссылки для просмотра?", Keyboard: KeyboardYesNo},
		)
	case state.StateAddSourceURL:
		s.Draft.SourceURL = input
		w.moveTo(s, state.StateLinksChoice)
		return Reply{Text: "Добавить ссылки для просмотра?", Keyboard: KeyboardYesNo}, false, nil
	case state.StateLinksChoice:
		yes, no := parseChoice(input)
		switch {
		case yes:
			w.moveTo(s, state.StateAddLinks)
			return Reply{Text: "Введи ссылки на просмотр через пробел", Keyboard: KeyboardCancel}, false, nil
		case no:
			return w.commit(ctx, s)
		default:
			return Reply{Text: "Ответь Да или Нет", Keyboard: KeyboardYesNo}, false, nil
		}
	case state.StateAddLinks:
		s.Draft.LinksView = strings.Split(input, " ")
		return w.commit(ctx, s)
	default:
		w.log.Warn("wizard received unknown state", "state", s.CurrentState, "user_id", s.UserID)
		return Reply{}, false, apperrors.NewStateError(fmt.Sprintf("unknown wizard state %q", s.CurrentState))
	}
}

// stepCode validates the film code and checks it is not already taken.
func (w *Wizard) stepCode(ctx context.Context, s *state.UserState, input string) (Reply, bool, error) {
	code, ok := domain.ParseCode(input)
	if !ok {
		return Reply{Text: "Код должен быть числом из 1-4 цифр", Keyboard: KeyboardCancel}, false, nil
	}

	_, err := w.films.GetTitle(ctx, code)
	switch {
	case err == nil:
		// duplicate: stay on the same step and re-prompt
		return Reply{Text: fmt.Sprintf("Фильм с кодом %d уже есть в бд", code), Keyboard: KeyboardCancel}, false, nil
	case errors.Is(err, repository.ErrNotFound):
	default:
		return Reply{}, false, apperrors.NewDatabaseError(err)
	}

	s.Draft.Code = code
	w.moveTo(s, state.StateAddTitle)
	return Reply{Text: "Введи название фильма", Keyboard: KeyboardCancel}, false, nil
}

func (w *Wizard) stepTitle(s *state.UserState, input string) (Reply, bool, error) {
	if input == "" {
		return Reply{Text: "Название не может быть пустым", Keyboard: KeyboardCancel}, false, nil
	}

	s.Draft.Title = input
	w.moveTo(s, state.StateDescriptionChoice)
	return Reply{Text: "Добавить описание?", Keyboard: KeyboardYesNo}, false, nil
}

// stepChoice handles a yes/no prompt, branching to onYes or onNo.
func (w *Wizard) stepChoice(s *state.UserState, input string, yesState state.State, yesReply Reply, noState state.State, noReply Reply) (Reply, bool, error) {
	yes, no := parseChoice(input)
	switch {
	case yes:
		w.moveTo(s, yesState)
		return yesReply, false, nil
	case no:
		w.moveTo(s, noState)
		return noReply, false, nil
	default:
		return Reply{Text: "Ответь Да или Нет", Keyboard: KeyboardYesNo}, false, nil
	}
}

// commit assembles the film from the draft and inserts it exactly once.
func (w *Wizard) commit(ctx context.Context, s *state.UserState) (Reply, bool, error) {
	film := &domain.Film{
		Code:        s.Draft.Code,
		Title:       s.Draft.Title,
		Description: s.Draft.Description,
		SourceURL:   s.Draft.SourceURL,
		LinksView:   s.Draft.LinksView,
	}

	err := w.films.Create(ctx, film)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrDuplicateKey):
		// lost a race with another admin; report and discard without retry
		w.log.Warn("film already exists on commit", "code", film.Code, "user_id", s.UserID)
		return Reply{
			Text:     fmt.Sprintf("Фильм с кодом %d уже есть в бд, добавление отменено", film.Code),
			Keyboard: KeyboardRemove,
		}, true, nil
	default:
		return Reply{}, false, apperrors.NewDatabaseError(err)
	}

	w.log.Info("film added", "code", film.Code, "title", film.Title, "user_id", s.UserID)

	text := fmt.Sprintf("Фильм добавлен\nКод: %d\n%s", film.Code, film.Card())
	return Reply{Text: text, Keyboard: KeyboardRemove}, true, nil
}

func (w *Wizard) moveTo(s *state.UserState, next state.State) {
	if !state.IsTransitionAllowed(s.CurrentState, next) {
		w.log.Warn("unexpected wizard transition", "from", s.CurrentState, "to", next, "user_id", s.UserID)
	}

	state.RecordTransition(s.CurrentState, next)
	s.CurrentState = next
}

func parseChoice(input string) (yes, no bool) {
	switch {
	case strings.EqualFold(input, "да"), strings.EqualFold(input, "yes"):
		return true, false
	case strings.EqualFold(input, "нет"), strings.EqualFold(input, "no"):
		return false, true
	default:
		return false, false
	}
}
