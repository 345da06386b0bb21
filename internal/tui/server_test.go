package tui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/pders01/blogify/internal/api"
	"github.com/pders01/blogify/internal/config"
	"github.com/pders01/blogify/internal/search"
	"github.com/pders01/blogify/internal/state"
	"github.com/pders01/blogify/internal/storage"
)

const (
	testToken   = "jwt.jake"
	cmdDeadline = 450 * time.Millisecond
)

// fakeServer is a small in-memory RealWorld backend.
type fakeServer struct {
	mu       sync.Mutex
	articles []api.Article
	comments map[string][]api.Comment
	tags     []string
	user     api.User
	requests []string
}

func newFakeServer() *fakeServer {
	jake := api.Profile{Username: "jake"}
	anne := api.Profile{Username: "anne"}
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &fakeServer{
		user: api.User{Username: "jake", Email: "jake@jake.jake", Bio: "I work at statefarm", Token: testToken},
		tags: []string{"go", "dragons"},
		articles: []api.Article{
			{Slug: "how-to-train-your-dragon", Title: "How to train your dragon", Description: "Ever wonder how?",
				Body: "You have to believe", TagList: []string{"dragons"}, Author: jake, UpdatedAt: now},
			{Slug: "go-channels", Title: "Go channels", Description: "Share memory by communicating",
				Body: "Do not communicate by sharing memory", TagList: []string{"go"}, Author: anne, UpdatedAt: now},
		},
		comments: map[string][]api.Comment{
			"how-to-train-your-dragon": {{ID: 1, Body: "It takes a Jacobian", Author: anne}},
		},
	}
}

func (s *fakeServer) requested(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *fakeServer) find(slug string) int {
	for i, a := range s.articles {
		if a.Slug == slug {
			return i
		}
	}
	return -1
}

func (s *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/api")
	s.requests = append(s.requests, r.Method+" "+path+"?"+r.URL.RawQuery)
	authed := r.Header.Get("Authorization") == "Token "+testToken
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case r.Method == http.MethodPost && path == "/users/login":
		var in struct {
			User struct{ Email, Password string }
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.User.Password != "jakejake" {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": map[string][]string{"email or password": {"is invalid"}}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": s.user})

	case path == "/user":
		if !authed {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"errors": map[string][]string{"token": {"is missing"}}})
			return
		}
		if r.Method == http.MethodPut {
			var in struct{ User api.UserUpdate }
			_ = json.NewDecoder(r.Body).Decode(&in)
			if in.User.Bio != nil {
				s.user.Bio = *in.User.Bio
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": s.user})

	case path == "/tags":
		writeJSON(w, http.StatusOK, map[string]any{"tags": s.tags})

	case r.Method == http.MethodGet && path == "/articles/feed":
		if !authed {
			writeJSON(w, http.StatusUnauthorized, map[string]any{})
			return
		}
		writeJSON(w, http.StatusOK, api.ArticleList{Articles: s.articles[1:], ArticlesCount: 1})

	case r.Method == http.MethodGet && path == "/articles":
		q := r.URL.Query()
		var out []api.Article
		for _, a := range s.articles {
			if tag := q.Get("tag"); tag != "" && !contains(a.TagList, tag) {
				continue
			}
			if author := q.Get("author"); author != "" && a.Author.Username != author {
				continue
			}
			if fav := q.Get("favorited"); fav != "" && !a.Favorited {
				continue
			}
			out = append(out, a)
		}
		total := len(out)
		if off, _ := strconv.Atoi(q.Get("offset")); off < len(out) {
			out = out[off:]
		} else {
			out = nil
		}
		if limit, _ := strconv.Atoi(q.Get("limit")); limit > 0 && len(out) > limit {
			out = out[:limit]
		}
		writeJSON(w, http.StatusOK, api.ArticleList{Articles: out, ArticlesCount: total})

	case r.Method == http.MethodPost && path == "/articles":
		var in struct{ Article api.ArticleDraft }
		_ = json.NewDecoder(r.Body).Decode(&in)
		art := api.Article{
			Slug:        strings.ReplaceAll(strings.ToLower(in.Article.Title), " ", "-"),
			Title:       in.Article.Title,
			Description: in.Article.Description,
			Body:        in.Article.Body,
			TagList:     in.Article.TagList,
			Author:      api.Profile{Username: s.user.Username},
		}
		s.articles = append([]api.Article{art}, s.articles...)
		writeJSON(w, http.StatusCreated, map[string]any{"article": art})

	case len(parts) >= 2 && parts[0] == "articles":
		i := s.find(parts[1])
		if i < 0 {
			writeJSON(w, http.StatusNotFound, map[string]any{"errors": map[string][]string{"article": {"not found"}}})
			return
		}
		switch {
		case len(parts) == 2 && r.Method == http.MethodGet:
			writeJSON(w, http.StatusOK, map[string]any{"article": s.articles[i]})
		case len(parts) == 2 && r.Method == http.MethodDelete:
			s.articles = append(s.articles[:i], s.articles[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
		case len(parts) == 3 && parts[2] == "favorite":
			a := &s.articles[i]
			if r.Method == http.MethodPost && !a.Favorited {
				a.Favorited = true
				a.FavoritesCount++
			} else if r.Method == http.MethodDelete && a.Favorited {
				a.Favorited = false
				a.FavoritesCount--
			}
			writeJSON(w, http.StatusOK, map[string]any{"article": *a})
		case len(parts) == 3 && parts[2] == "comments" && r.Method == http.MethodGet:
			comments := s.comments[parts[1]]
			if comments == nil {
				comments = []api.Comment{}
			}
			writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
		case len(parts) == 3 && parts[2] == "comments" && r.Method == http.MethodPost:
			var in struct{ Comment struct{ Body string } }
			_ = json.NewDecoder(r.Body).Decode(&in)
			c := api.Comment{ID: len(s.comments[parts[1]]) + 100, Body: in.Comment.Body, Author: api.Profile{Username: s.user.Username}}
			s.comments[parts[1]] = append([]api.Comment{c}, s.comments[parts[1]]...)
			writeJSON(w, http.StatusOK, map[string]any{"comment": c})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}

	case len(parts) >= 2 && parts[0] == "profiles":
		p := api.Profile{Username: parts[1]}
		if len(parts) == 3 && r.Method == http.MethodPost {
			p.Following = true
		}
		writeJSON(w, http.StatusOK, map[string]any{"profile": p})

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type testEnv struct {
	app    *App
	server *fakeServer
	db     *storage.Store
	index  *search.BleveEngine
}

type envOption func(*testing.T, *config.Config, *storage.Store)

// signedIn seeds stored credentials so the app starts authenticated.
func signedIn(t *testing.T, _ *config.Config, db *storage.Store) {
	require.NoError(t, db.SaveCredentials(testToken, api.User{Username: "jake", Email: "jake@jake.jake"}))
}

func staleToken(t *testing.T, _ *config.Config, db *storage.Store) {
	require.NoError(t, db.SaveCredentials("expired", api.User{Username: "jake"}))
}

func perPage(n int) envOption {
	return func(_ *testing.T, cfg *config.Config, _ *storage.Store) {
		cfg.UI.ArticlesPerPage = n
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	fake := newFakeServer()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	cfg := config.TestConfig()
	cfg.API.BaseURL = server.URL + "/api"

	db, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	for _, opt := range opts {
		opt(t, cfg, db)
	}

	index, err := search.NewBleveEngine("")
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	client := api.NewClient(cfg)
	session, err := state.NewSessionStore(client, db)
	require.NoError(t, err)
	client.SetTokenSource(session)
	client.OnUnauthorized(session.Invalidate)

	perPage := cfg.UI.ArticlesPerPage
	app := NewApp(Deps{
		Config:    cfg,
		Session:   session,
		Home:      state.NewHomeStore(client, perPage),
		Article:   state.NewArticleStore(client),
		Profile:   state.NewProfileStore(client, perPage),
		Settings:  state.NewSettingsStore(session),
		Drafts:    db,
		Index:     index,
		Favorites: client,
		Context:   context.Background(),
	})
	app.resize(100, 40)

	return &testEnv{app: app, server: fake, db: db, index: index}
}

// run executes cmd and every command it leads to, feeding each message back
// into the app the way a tea.Program would. Commands still blocked after
// cmdDeadline, such as cursor blinks, are dropped.
func (e *testEnv) run(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 500, "command loop did not settle")
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}

		done := make(chan tea.Msg, 1)
		go func() { done <- next() }()
		var msg tea.Msg
		select {
		case msg = <-done:
		case <-time.After(cmdDeadline):
			continue
		}

		switch msg := msg.(type) {
		case nil, spinner.TickMsg, tea.QuitMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			_, c := e.app.Update(msg)
			queue = append(queue, c)
		}
	}
}

// press sends one key to the app and runs what it triggers.
func (e *testEnv) press(t *testing.T, key tea.KeyMsg) tea.Cmd {
	t.Helper()
	_, cmd := e.app.Update(key)
	e.run(t, cmd)
	return cmd
}

func (e *testEnv) typeText(t *testing.T, text string) {
	t.Helper()
	for _, r := range text {
		e.press(t, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}
