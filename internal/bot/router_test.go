package bot

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/maks-ard/film-bot/internal/domain"
	apperrors "github.com/maks-ard/film-bot/internal/errors"
	"github.com/maks-ard/film-bot/internal/gate"
	"github.com/maks-ard/film-bot/internal/notify"
	"github.com/maks-ard/film-bot/internal/repository"
	"github.com/maks-ard/film-bot/internal/state"
	"github.com/maks-ard/film-bot/internal/user"
	"github.com/maks-ard/film-bot/internal/wizard"
	"github.com/maks-ard/film-bot/pkg/config"
)

// apiRecorder fakes the telegram API server and captures outgoing messages.
type apiRecorder struct {
	mu    sync.Mutex
	texts []string
}

func (r *apiRecorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)

		var payload map[string]interface{}
		_ = json.Unmarshal(body, &payload)
		if text, ok := payload["text"].(string); ok {
			r.mu.Lock()
			r.texts = append(r.texts, text)
			r.mu.Unlock()
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"chat":{"id":1,"type":"private"}}}`))
	}
}

func (r *apiRecorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.texts) == 0 {
		return ""
	}
	return r.texts[len(r.texts)-1]
}

// fakeFSM is an in-memory StateMachine; WithUserLock runs the step directly.
type fakeFSM struct {
	mu       sync.Mutex
	sessions map[int64]*state.UserState
}

func newFakeFSM() *fakeFSM {
	return &fakeFSM{sessions: make(map[int64]*state.UserState)}
}

func (f *fakeFSM) GetState(ctx context.Context, userID int64) (*state.UserState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	session, ok := f.sessions[userID]
	if !ok {
		return nil, state.ErrStateNotFound
	}
	return session, nil
}

func (f *fakeFSM) SetState(ctx context.Context, userID int64, s state.State, draft state.FilmDraft) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sessions[userID] = &state.UserState{UserID: userID, CurrentState: s, Draft: draft}
	return nil
}

func (f *fakeFSM) ClearState(ctx context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.sessions, userID)
	return nil
}

func (f *fakeFSM) GetAllStates(ctx context.Context) ([]*state.UserState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	all := make([]*state.UserState, 0, len(f.sessions))
	for _, s := range f.sessions {
		all = append(all, s)
	}
	return all, nil
}

func (f *fakeFSM) WithUserLock(ctx context.Context, userID int64, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeFilms struct {
	mu    sync.Mutex
	films map[int]*domain.Film
}

func newFakeFilms(films ...*domain.Film) *fakeFilms {
	f := &fakeFilms{films: make(map[int]*domain.Film)}
	for _, film := range films {
		f.films[film.Code] = film
	}
	return f
}

func (f *fakeFilms) Create(ctx context.Context, film *domain.Film) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.films[film.Code]; exists {
		return repository.ErrDuplicateKey
	}
	f.films[film.Code] = film
	return nil
}

func (f *fakeFilms) GetTitle(ctx context.Context, code int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	film, ok := f.films[code]
	if !ok {
		return "", repository.ErrNotFound
	}
	return film.Title, nil
}

func (f *fakeFilms) FindByCode(ctx context.Context, code int) (*domain.Film, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	film, ok := f.films[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return film, nil
}

func (f *fakeFilms) Delete(ctx context.Context, code int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.films[code]; !ok {
		return repository.ErrNotFound
	}
	delete(f.films, code)
	return nil
}

func (f *fakeFilms) ListAll(ctx context.Context) ([]*domain.Film, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	all := make([]*domain.Film, 0, len(f.films))
	for _, film := range f.films {
		all = append(all, film)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })
	return all, nil
}

type fakeUserRepo struct{}

func (fakeUserRepo) Create(ctx context.Context, u *domain.User) error { return nil }

func (fakeUserRepo) FindByID(ctx context.Context, userID int64) (*domain.User, error) {
	return nil, repository.ErrNotFound
}

func (fakeUserRepo) GetAdminFlag(ctx context.Context, userID int64) (bool, error) {
	return false, repository.ErrNotFound
}

type stubFlags struct {
	admins map[int64]bool
}

func (s stubFlags) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	return s.admins[userID], nil
}

const (
	adminID   int64 = 1
	visitorID int64 = 2
)

// newTestBot wires the real router, dispatcher, and handlers over in-memory
// fakes and a local telegram API stub.
func newTestBot(t *testing.T, films *fakeFilms) (*Bot, *apiRecorder, *fakeFSM) {
	t.Helper()

	recorder := &apiRecorder{}
	srv := httptest.NewServer(recorder.handler())
	t.Cleanup(srv.Close)

	tb, err := telebot.NewBot(telebot.Settings{Token: "test", URL: srv.URL, Offline: true})
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	fsm := newFakeFSM()
	flags := stubFlags{admins: map[int64]bool{adminID: true}}

	dispatcher := NewDispatcher(fsm, log)

	b := &Bot{
		telebot: tb,
		log:     log,
		cfg:     config.Config{},
		deps: Dependencies{
			FSM:        fsm,
			Films:      films,
			Users:      user.NewService(fakeUserRepo{}, nil, nil, log),
			Wizard:     wizard.New(films, log),
			Notifier:   notify.New(nil, log),
			AdminFlags: flags,
		},
		router:         NewRouter(dispatcher, log),
		dispatcher:     dispatcher,
		errHandler:     apperrors.NewHandler(log, false),
		adminPipeline:  gate.NewPipeline(log, gate.NewAdminGate(flags, log)),
		lookupPipeline: gate.NewPipeline(log, gate.NewCodeGate()),
	}
	b.setupRouter()

	return b, recorder, fsm
}

func sendText(t *testing.T, b *Bot, userID int64, text string) {
	t.Helper()

	c := b.telebot.NewContext(telebot.Update{Message: &telebot.Message{
		Sender: &telebot.User{ID: userID, FirstName: "Тест"},
		Chat:   &telebot.Chat{ID: userID},
		Text:   text,
	}})
	require.NoError(t, b.router.Route(c))
}

func TestRouter_AllListsFilmsForAnyUser(t *testing.T) {
	films := newFakeFilms(
		&domain.Film{Code: 7, Title: "Короткометражка"},
		&domain.Film{Code: 1234, Title: "Интерстеллар"},
	)
	b, recorder, _ := newTestBot(t, films)

	sendText(t, b, visitorID, "/all")
	assert.Equal(t, "7 - Короткометражка\n1234 - Интерстеллар", recorder.last())
}

func TestRouter_AddIsAdminOnly(t *testing.T) {
	b, recorder, fsm := newTestBot(t, newFakeFilms())

	sendText(t, b, visitorID, "/add")
	assert.Equal(t, "Напиши код фильма из 4х цифр", recorder.last())
	assert.Empty(t, fsm.sessions, "a denied /add must not open a session")

	sendText(t, b, adminID, "/add")
	assert.Equal(t, "Введи код фильма", recorder.last())
	require.Contains(t, fsm.sessions, adminID)
	assert.Equal(t, state.StateAddCode, fsm.sessions[adminID].CurrentState)
}

func TestRouter_CommandWinsOverActiveSession(t *testing.T) {
	b, recorder, fsm := newTestBot(t, newFakeFilms())

	sendText(t, b, adminID, "/add")
	sendText(t, b, adminID, "1234")
	require.Equal(t, "Введи название фильма", recorder.last())

	// a repeated /add is a command, not the title; the draft is discarded
	sendText(t, b, adminID, "/add")
	assert.Equal(t, "Введи код фильма", recorder.last())
	require.Contains(t, fsm.sessions, adminID)
	assert.Equal(t, state.StateAddCode, fsm.sessions[adminID].CurrentState)
	assert.Zero(t, fsm.sessions[adminID].Draft.Code)
}

func TestRouter_CommandLikeTextIsStepInput(t *testing.T) {
	b, recorder, fsm := newTestBot(t, newFakeFilms())

	sendText(t, b, adminID, "/add")
	sendText(t, b, adminID, "1234")

	// no registered command matches, so mid-wizard it is consumed as the title
	sendText(t, b, adminID, "cancel")
	assert.Equal(t, "Добавить описание?", recorder.last())
	require.Contains(t, fsm.sessions, adminID)
	assert.Equal(t, "cancel", fsm.sessions[adminID].Draft.Title)
}

func TestRouter_UnmatchedTextFallsToDefault(t *testing.T) {
	b, recorder, _ := newTestBot(t, newFakeFilms())

	sendText(t, b, visitorID, "привет")
	assert.Equal(t, "Напиши код фильма из 4х цифр", recorder.last())
}

func TestRouter_LookupBehindCodeGate(t *testing.T) {
	films := newFakeFilms(&domain.Film{Code: 1234, Title: "Интерстеллар"})
	b, recorder, _ := newTestBot(t, films)

	sendText(t, b, visitorID, "1234")
	assert.Contains(t, recorder.last(), "Название: Интерстеллар")

	sendText(t, b, visitorID, "7777")
	assert.Equal(t, "Фильм с кодом 7777 не найден!", recorder.last())
}

func TestRouter_BotNameSuffixStripped(t *testing.T) {
	films := newFakeFilms(&domain.Film{Code: 7, Title: "Короткометражка"})
	b, recorder, _ := newTestBot(t, films)

	sendText(t, b, visitorID, "/all@FilmBot")
	assert.Equal(t, "7 - Короткометражка", recorder.last())
}
