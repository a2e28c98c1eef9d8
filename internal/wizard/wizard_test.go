package wizard

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maks-ard/film-bot/internal/domain"
	"github.com/maks-ard/film-bot/internal/repository"
	"github.com/maks-ard/film-bot/internal/state"
)

// fakeFilms is an in-memory repository.FilmRepository for wizard scenarios.
type fakeFilms struct {
	films       map[int]*domain.Film
	createCalls int
	createErr   error
}

var _ repository.FilmRepository = (*fakeFilms)(nil)

func newFakeFilms() *fakeFilms {
	return &fakeFilms{films: make(map[int]*domain.Film)}
}

func (f *fakeFilms) Create(ctx context.Context, film *domain.Film) error {
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	if _, exists := f.films[film.Code]; exists {
		return repository.ErrDuplicateKey
	}
	f.films[film.Code] = film
	return nil
}

func (f *fakeFilms) GetTitle(ctx context.Context, code int) (string, error) {
	film, ok := f.films[code]
	if !ok {
		return "", repository.ErrNotFound
	}
	return film.Title, nil
}

func (f *fakeFilms) FindByCode(ctx context.Context, code int) (*domain.Film, error) {
	film, ok := f.films[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return film, nil
}

func (f *fakeFilms) Delete(ctx context.Context, code int) error {
	if _, ok := f.films[code]; !ok {
		return repository.ErrNotFound
	}
	delete(f.films, code)
	return nil
}

func (f *fakeFilms) ListAll(ctx context.Context) ([]*domain.Film, error) {
	out := make([]*domain.Film, 0, len(f.films))
	for _, film := range f.films {
		out = append(out, film)
	}
	return out, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSession(userID int64) *state.UserState {
	return &state.UserState{UserID: userID, CurrentState: state.StateIdle}
}

func advance(t *testing.T, w *Wizard, s *state.UserState, input string) (Reply, bool) {
	t.Helper()

	reply, done, err := w.Advance(context.Background(), s, input)
	require.NoError(t, err)
	return reply, done
}

func TestWizard_StartResetsSession(t *testing.T) {
	w := New(newFakeFilms(), testLogger())

	s := &state.UserState{
		UserID:       1,
		CurrentState: state.StateAddLinks,
		Draft:        state.FilmDraft{Code: 5, Title: "old"},
	}

	reply := w.Start(s)

	assert.Equal(t, state.StateAddCode, s.CurrentState)
	assert.Equal(t, state.FilmDraft{}, s.Draft)
	assert.Equal(t, "Введи код фильма", reply.Text)
}

func TestWizard_FullFlowWithAllFields(t *testing.T) {
	films := newFakeFilms()
	w := New(films, testLogger())

	s := newSession(1)
	w.Start(s)

	_, done := advance(t, w, s, "1234")
	assert.False(t, done)
	assert.Equal(t, state.StateAddTitle, s.CurrentState)

	_, done = advance(t, w, s, "Интерстеллар")
	assert.False(t, done)
	assert.Equal(t, state.StateDescriptionChoice, s.CurrentState)

	_, done = advance(t, w, s, "Да")
	assert.False(t, done)
	assert.Equal(t, state.StateAddDescription, s.CurrentState)

	_, done = advance(t, w, s, "Фантастика про космос")
	assert.False(t, done)
	assert.Equal(t, state.StateSourceURLChoice, s.CurrentState)

	_, done = advance(t, w, s, "да")
	assert.False(t, done)
	assert.Equal(t, state.StateAddSourceURL, s.CurrentState)

	_, done = advance(t, w, s, "https://example.com/reel")
	assert.False(t, done)
	assert.Equal(t, state.StateLinksChoice, s.CurrentState)

	_, done = advance(t, w, s, "Да")
	assert.False(t, done)
	assert.Equal(t, state.StateAddLinks, s.CurrentState)

	reply, done := advance(t, w, s, "https://a.example https://b.example")
	assert.True(t, done)
	assert.Contains(t, reply.Text, "Фильм добавлен")
	assert.Contains(t, reply.Text, "Код: 1234")

	require.Equal(t, 1, films.createCalls, "exactly one insert per completed wizard")
	film := films.films[1234]
	require.NotNil(t, film)
	assert.Equal(t, "Интерстеллар", film.Title)
	assert.Equal(t, "Фантастика про космос", film.Description)
	assert.Equal(t, "https://example.com/reel", film.SourceURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, film.LinksView)
}

func TestWizard_SkipAllOptionalFields(t *testing.T) {
	films := newFakeFilms()
	w := New(films, testLogger())

	s := newSession(1)
	w.Start(s)

	advance(t, w, s, "7")
	advance(t, w, s, "Короткометражка")
	advance(t, w, s, "Нет") // description
	advance(t, w, s, "нет") // source url

	reply, done := advance(t, w, s, "Нет") // links -> commit
	assert.True(t, done)
	assert.Contains(t, reply.Text, "Фильм добавлен")

	film := films.films[7]
	require.NotNil(t, film)
	assert.Empty(t, film.Description)
	assert.Empty(t, film.SourceURL)
	assert.Empty(t, film.LinksView)
}

func TestWizard_InvalidCodeReprompts(t *testing.T) {
	w := New(newFakeFilms(), testLogger())

	s := newSession(1)
	w.Start(s)

	for _, input := range []string{"12345", "abc", "", "12 34"} {
		reply, done := advance(t, w, s, input)
		assert.False(t, done)
		assert.Equal(t, "Код должен быть числом из 1-4 цифр", reply.Text)
		assert.Equal(t, state.StateAddCode, s.CurrentState, "invalid code must not advance")
	}
}

func TestWizard_DuplicateCodeStaysOnStep(t *testing.T) {
	films := newFakeFilms()
	films.films[1234] = &domain.Film{Code: 1234, Title: "занято"}
	w := New(films, testLogger())

	s := newSession(1)
	w.Start(s)

	reply, done := advance(t, w, s, "1234")
	assert.False(t, done)
	assert.Equal(t, "Фильм с кодом 1234 уже есть в бд", reply.Text)
	assert.Equal(t, state.StateAddCode, s.CurrentState)

	// a free code is accepted afterwards
	_, done = advance(t, w, s, "4321")
	assert.False(t, done)
	assert.Equal(t, state.StateAddTitle, s.CurrentState)
}

func TestWizard_EmptyTitleReprompts(t *testing.T) {
	w := New(newFakeFilms(), testLogger())

	s := newSession(1)
	w.Start(s)
	advance(t, w, s, "1234")

	reply, done := advance(t, w, s, "   ")
	assert.False(t, done)
	assert.Equal(t, "Название не может быть пустым", reply.Text)
	assert.Equal(t, state.StateAddTitle, s.CurrentState)
}

func TestWizard_UnrecognizedChoiceReprompts(t *testing.T) {
	w := New(newFakeFilms(), testLogger())

	s := newSession(1)
	w.Start(s)
	advance(t, w, s, "1234")
	advance(t, w, s, "Название")

	reply, done := advance(t, w, s, "может быть")
	assert.False(t, done)
	assert.Equal(t, "Ответь Да или Нет", reply.Text)
	assert.Equal(t, state.StateDescriptionChoice, s.CurrentState)
}

func TestWizard_DuplicateOnCommitDiscardsDraft(t *testing.T) {
	films := newFakeFilms()
	w := New(films, testLogger())

	s := newSession(1)
	w.Start(s)
	advance(t, w, s, "1234")
	advance(t, w, s, "Название")
	advance(t, w, s, "нет")
	advance(t, w, s, "нет")

	// another admin takes the code between the check and the commit
	films.films[1234] = &domain.Film{Code: 1234, Title: "чужой"}

	reply, done := advance(t, w, s, "нет")
	assert.True(t, done, "a lost race ends the session, no retry")
	assert.Equal(t, "Фильм с кодом 1234 уже есть в бд, добавление отменено", reply.Text)
	assert.Equal(t, "чужой", films.films[1234].Title, "existing record must be untouched")
}

func TestWizard_AdvanceWithoutSession(t *testing.T) {
	w := New(newFakeFilms(), testLogger())

	s := newSession(1)

	_, _, err := w.Advance(context.Background(), s, "1234")
	assert.ErrorIs(t, err, ErrNoSession)
}
