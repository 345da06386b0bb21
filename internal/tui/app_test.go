package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/blogify/internal/state"
	"github.com/pders01/blogify/internal/storage"
)

func TestInitLoadsGlobalFeedAndTags(t *testing.T) {
	env := newTestEnv(t)
	env.run(t, env.app.Init())

	assert.Equal(t, ViewHome, env.app.view)
	assert.Len(t, env.app.articleList.Items(), 2)
	assert.Len(t, env.app.tagList.Items(), 2)
	assert.Equal(t, 1, env.server.requested("GET /articles?limit=10&offset=0"))
	assert.Zero(t, env.server.requested("GET /user"), "no token, nothing to restore")
	assert.False(t, env.app.spinning)

	n, err := env.index.DocCount()
	require.NoError(t, err)
	assert.Equal(t, 2, n, "loaded articles are indexed")
}

func TestInitRestoresSession(t *testing.T) {
	env := newTestEnv(t, signedIn)
	env.run(t, env.app.Init())

	assert.True(t, env.app.session.IsAuthenticated())
	assert.Equal(t, 1, env.server.requested("GET /user"))
	assert.Equal(t, "I work at statefarm", env.app.session.Snapshot().User.Bio)
}

func TestInitWithExpiredToken(t *testing.T) {
	env := newTestEnv(t, staleToken)
	env.run(t, env.app.Init())

	assert.False(t, env.app.session.IsAuthenticated())
	assert.Equal(t, MsgSessionExpired, env.app.status)
	assert.Equal(t, state.TabGlobal, env.app.home.Snapshot().FeedTab)

	creds, err := env.db.LoadCredentials()
	require.NoError(t, err)
	assert.Nil(t, creds, "rejected credentials are removed from disk")
}

func TestFetchPolicy(t *testing.T) {
	t.Run("feed tab without a session falls back to the global list", func(t *testing.T) {
		env := newTestEnv(t)
		env.run(t, env.app.fetchHome(env.app.home.SetFeedTab(state.TabFeed)))

		assert.Zero(t, env.server.requested("GET /articles/feed"))
		assert.Equal(t, 1, env.server.requested("GET /articles?limit=10&offset=0"))
	})

	t.Run("feed tab with a session loads the personal feed", func(t *testing.T) {
		env := newTestEnv(t, signedIn)
		env.run(t, env.app.fetchHome(env.app.home.SetFeedTab(state.TabFeed)))

		assert.Equal(t, 1, env.server.requested("GET /articles/feed?limit=10&offset=0"))
		assert.Len(t, env.app.articleList.Items(), 1)
	})

	t.Run("tag tab filters the global list", func(t *testing.T) {
		env := newTestEnv(t)
		env.run(t, env.app.fetchHome(env.app.home.SetCurrentTag("go")))

		assert.Equal(t, 1, env.server.requested("GET /articles?limit=10&offset=0&tag=go"))
		require.Len(t, env.app.articleList.Items(), 1)
		assert.Equal(t, "go-channels", env.app.articleList.Items()[0].(articleItem).article.Slug)
	})
}

func TestViewStateTransitions(t *testing.T) {
	env := newTestEnv(t)
	env.run(t, env.app.Init())

	env.press(t, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, ViewReader, env.app.view)
	assert.Equal(t, "how-to-train-your-dragon", env.app.readerSlug)
	assert.False(t, env.app.loadingArticle)
	assert.Contains(t, env.app.viewport.View(), "believe")

	env.press(t, runes("c"))
	require.Equal(t, ViewComments, env.app.view)
	assert.Len(t, env.app.commentList.Items(), 1)

	env.press(t, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewReader, env.app.view)

	env.press(t, runes("p"))
	require.Equal(t, ViewProfile, env.app.view)
	assert.Equal(t, "jake", env.app.profileUser)
	assert.Len(t, env.app.profileList.Items(), 1)

	env.press(t, tea.KeyMsg{Type: tea.KeyEsc})
	env.press(t, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewHome, env.app.view)
	assert.Empty(t, env.app.history)
}

func TestTagSelection(t *testing.T) {
	env := newTestEnv(t)
	env.run(t, env.app.Init())

	env.press(t, runes("t"))
	require.Equal(t, ViewTags, env.app.view)

	env.press(t, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ViewHome, env.app.view)

	hs := env.app.home.Snapshot()
	assert.Equal(t, state.TabTag, hs.FeedTab)
	assert.Equal(t, "go", hs.CurrentTag)
	assert.Len(t, env.app.articleList.Items(), 1)

	labels, active := env.app.homeTabs(hs)
	assert.Equal(t, "#go", labels[active])
}

func TestPaging(t *testing.T) {
	env := newTestEnv(t, perPage(1))
	env.run(t, env.app.Init())
	require.Equal(t, 2, env.app.home.Snapshot().PageCount())

	env.press(t, runes("]"))
	assert.Equal(t, 1, env.app.home.Snapshot().CurrentPage)
	assert.Equal(t, 1, env.server.requested("GET /articles?limit=1&offset=1"))
	require.Len(t, env.app.articleList.Items(), 1)
	assert.Equal(t, "go-channels", env.app.articleList.Items()[0].(articleItem).article.Slug)

	env.press(t, runes("]"))
	assert.Equal(t, 1, env.app.home.Snapshot().CurrentPage, "no page past the last")

	env.press(t, runes("["))
	assert.Equal(t, 0, env.app.home.Snapshot().CurrentPage)
}

func TestFavoriteRequiresSignIn(t *testing.T) {
	env := newTestEnv(t)
	env.run(t, env.app.Init())

	env.press(t, runes("f"))
	assert.Equal(t, ViewLogin, env.app.view)
	assert.Equal(t, MsgSignInRequired, env.app.status)
	assert.Zero(t, env.server.requested("POST /articles/"))
}

func TestFavoriteRefreshesList(t *testing.T) {
	env := newTestEnv(t, signedIn)
	env.run(t, env.app.Init())

	env.press(t, runes("f"))
	assert.Equal(t, 1, env.server.requested("POST /articles/how-to-train-your-dragon/favorite"))

	item := env.app.articleList.Items()[0].(articleItem)
	assert.True(t, item.article.Favorited)
	assert.Equal(t, 1, item.article.FavoritesCount)

	// The reader's store is left alone while no article is open.
	assert.Nil(t, env.app.article.Snapshot().Article)
	assert.Equal(t, state.Idle, env.app.article.Snapshot().Status)
}

func TestLoginForm(t *testing.T) {
	t.Run("blank fields are rejected locally", func(t *testing.T) {
		env := newTestEnv(t)
		env.press(t, tea.KeyMsg{Type: tea.KeyCtrlL})
		require.Equal(t, ViewLogin, env.app.view)

		env.press(t, tea.KeyMsg{Type: tea.KeyCtrlS})
		assert.Equal(t, []string{"can't be blank"}, env.app.auth.errs["email"])
		assert.Zero(t, env.server.requested("POST /users/login"))
	})

	t.Run("server field errors are shown on the form", func(t *testing.T) {
		env := newTestEnv(t)
		env.press(t, tea.KeyMsg{Type: tea.KeyCtrlL})
		env.typeText(t, "jake@jake.jake")
		env.press(t, tea.KeyMsg{Type: tea.KeyTab})
		env.typeText(t, "nope")
		env.press(t, tea.KeyMsg{Type: tea.KeyEnter})

		assert.Equal(t, ViewLogin, env.app.view)
		assert.Equal(t, []string{"is invalid"}, env.app.auth.errs["email or password"])
		assert.Contains(t, env.app.View(), "email or password is invalid")
		assert.False(t, env.app.session.IsAuthenticated())
	})

	t.Run("success opens the personal feed", func(t *testing.T) {
		env := newTestEnv(t)
		env.press(t, tea.KeyMsg{Type: tea.KeyCtrlL})
		env.typeText(t, "jake@jake.jake")
		env.press(t, tea.KeyMsg{Type: tea.KeyTab})
		env.typeText(t, "jakejake")
		env.press(t, tea.KeyMsg{Type: tea.KeyEnter})

		assert.Equal(t, ViewHome, env.app.view)
		assert.True(t, env.app.session.IsAuthenticated())
		assert.Equal(t, MsgWelcome("jake"), env.app.status)
		assert.Equal(t, state.TabFeed, env.app.home.Snapshot().FeedTab)
		assert.Equal(t, 1, env.server.requested("GET /articles/feed"))

		creds, err := env.db.LoadCredentials()
		require.NoError(t, err)
		require.NotNil(t, creds)
		assert.Equal(t, testToken, creds.Token)
	})

	t.Run("switching to sign up replaces the form", func(t *testing.T) {
		env := newTestEnv(t)
		env.press(t, tea.KeyMsg{Type: tea.KeyCtrlL})
		env.press(t, tea.KeyMsg{Type: tea.KeyCtrlR})
		assert.Equal(t, ViewRegister, env.app.view)
		assert.Equal(t, 3, env.app.auth.size())

		env.press(t, tea.KeyMsg{Type: tea.KeyEsc})
		assert.Equal(t, ViewHome, env.app.view)
		assert.Nil(t, env.app.auth)
	})
}

func TestEditorDrafts(t *testing.T) {
	env := newTestEnv(t, signedIn)

	env.press(t, tea.KeyMsg{Type: tea.KeyCtrlN})
	require.Equal(t, ViewEditor, env.app.view)
	env.typeText(t, "Half done")

	env.press(t, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewHome, env.app.view)
	assert.Equal(t, MsgDraftSaved, env.app.status)

	draft, err := env.db.GetDraft(storage.NewDraftKey)
	require.NoError(t, err)
	assert.Equal(t, "Half done", draft.Title)

	env.press(t, tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Equal(t, "Half done", env.app.editor.value("title"))
	assert.Equal(t, MsgDraftRestored, env.app.status)
}

func TestEditorPublish(t *testing.T) {
	env := newTestEnv(t, signedIn)

	env.press(t, tea.KeyMsg{Type: tea.KeyCtrlN})
	env.typeText(t, "My title")
	env.press(t, tea.KeyMsg{Type: tea.KeyTab})
	env.typeText(t, "About it")
	env.press(t, tea.KeyMsg{Type: tea.KeyTab})
	env.typeText(t, "go, tui, go")
	env.press(t, tea.KeyMsg{Type: tea.KeyTab})
	require.True(t, env.app.editor.onBody())
	env.typeText(t, "Hello")
	env.press(t, tea.KeyMsg{Type: tea.KeyEnter})
	env.typeText(t, "world")
	assert.Equal(t, "Hello\nworld", env.app.editor.value("body"))

	env.press(t, tea.KeyMsg{Type: tea.KeyCtrlS})

	assert.Equal(t, ViewReader, env.app.view)
	assert.Equal(t, "my-title", env.app.readerSlug)
	assert.Nil(t, env.app.editor)

	env.server.mu.Lock()
	assert.Equal(t, []string{"go", "tui"}, env.server.articles[0].TagList)
	env.server.mu.Unlock()

	_, err := env.db.GetDraft(storage.NewDraftKey)
	assert.ErrorIs(t, err, storage.ErrDraftNotFound)
}

func TestEditorValidation(t *testing.T) {
	env := newTestEnv(t, signedIn)

	env.press(t, tea.KeyMsg{Type: tea.KeyCtrlN})
	env.typeText(t, "Only a title")
	env.press(t, tea.KeyMsg{Type: tea.KeyCtrlS})

	assert.Equal(t, ViewEditor, env.app.view)
	assert.Contains(t, env.app.editor.errs, "description")
	assert.Contains(t, env.app.editor.errs, "body")
	assert.Zero(t, env.server.requested("POST /articles"))
}

func TestEditorRequiresSignIn(t *testing.T) {
	env := newTestEnv(t)
	env.press(t, tea.KeyMsg{Type: tea.KeyCtrlN})

	assert.Equal(t, ViewLogin, env.app.view)
	assert.Nil(t, env.app.editor)
}

func TestDeleteOwnArticle(t *testing.T) {
	env := newTestEnv(t, signedIn)
	env.run(t, env.app.openReader("how-to-train-your-dragon"))

	env.press(t, tea.KeyMsg{Type: tea.KeyCtrlX})
	require.Equal(t, ViewDeleteConfirm, env.app.view)
	assert.Contains(t, env.app.View(), "How to train your dragon")

	env.press(t, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ViewHome, env.app.view)
	assert.Equal(t, MsgArticleDeleted, env.app.status)
	assert.Equal(t, 1, env.server.requested("DELETE /articles/how-to-train-your-dragon"))
	assert.Len(t, env.app.articleList.Items(), 1)
}

func TestDeleteOthersArticleNotOffered(t *testing.T) {
	env := newTestEnv(t, signedIn)
	env.run(t, env.app.openReader("go-channels"))

	env.press(t, tea.KeyMsg{Type: tea.KeyCtrlX})
	assert.Equal(t, ViewReader, env.app.view)
	assert.NotContains(t, env.app.keyHandler.GetHelpForCurrentView(), "e: edit")
}

func TestEditOwnArticle(t *testing.T) {
	env := newTestEnv(t, signedIn)
	env.run(t, env.app.openReader("how-to-train-your-dragon"))

	env.press(t, runes("e"))
	require.Equal(t, ViewEditor, env.app.view)
	assert.Equal(t, "how-to-train-your-dragon", env.app.editingSlug)
	assert.Equal(t, "How to train your dragon", env.app.editor.value("title"))
	assert.Equal(t, "dragons", env.app.editor.value("tagList"))
}

func TestComments(t *testing.T) {
	env := newTestEnv(t, signedIn)
	env.run(t, env.app.openReader("how-to-train-your-dragon"))

	env.press(t, runes("c"))
	require.Equal(t, ViewComments, env.app.view)

	env.press(t, runes("c"))
	require.True(t, env.app.commentInput.Focused())

	env.typeText(t, "Nice")
	env.press(t, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, 1, env.server.requested("POST /articles/how-to-train-your-dragon/comments"))
	assert.Len(t, env.app.commentList.Items(), 2)
	assert.Empty(t, env.app.commentInput.Value())
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)
	env.run(t, env.app.Init())

	env.press(t, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.Equal(t, ViewSearch, env.app.view)
	assert.Equal(t, "Search: 2 articles indexed", env.app.status)
	assert.False(t, env.app.inArticleSearch())

	env.typeText(t, "dragon")
	require.NotEmpty(t, env.app.searchList.Items())
	assert.Equal(t, "how-to-train-your-dragon", env.app.searchResults[0].article.Slug)

	env.press(t, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, ViewReader, env.app.view)
	assert.True(t, env.app.cameFromSearch)

	env.press(t, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewSearch, env.app.view)

	env.press(t, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewHome, env.app.view)
	assert.Empty(t, env.app.searchInput.Value())
	assert.Empty(t, env.app.searchResults)
}

func TestSearchFromReaderIsScoped(t *testing.T) {
	env := newTestEnv(t)
	env.run(t, env.app.openReader("go-channels"))

	env.press(t, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.Equal(t, ViewSearch, env.app.view)
	assert.True(t, env.app.inArticleSearch())
	assert.Contains(t, env.app.View(), "search in article: Go channels")
}

func TestSettings(t *testing.T) {
	t.Run("update", func(t *testing.T) {
		env := newTestEnv(t, signedIn)
		env.run(t, env.app.Init())

		env.press(t, tea.KeyMsg{Type: tea.KeyCtrlO})
		require.Equal(t, ViewSettings, env.app.view)
		assert.Equal(t, "jake", env.app.settingsForm.value("username"))

		env.app.settingsForm.setValue("bio", "Dragon trainer")
		env.press(t, tea.KeyMsg{Type: tea.KeyCtrlS})

		assert.Equal(t, ViewProfile, env.app.view)
		assert.Equal(t, "jake", env.app.profileUser)
		assert.Equal(t, "Dragon trainer", env.app.session.Snapshot().User.Bio)
		assert.Equal(t, state.Succeeded, env.app.settings.Snapshot().Status)
	})

	t.Run("invalid email", func(t *testing.T) {
		env := newTestEnv(t, signedIn)
		env.press(t, tea.KeyMsg{Type: tea.KeyCtrlO})

		env.app.settingsForm.setValue("email", "not-an-email")
		env.press(t, tea.KeyMsg{Type: tea.KeyCtrlS})

		assert.Equal(t, ViewSettings, env.app.view)
		assert.Equal(t, []string{"is invalid"}, env.app.settingsForm.errs["email"])
		assert.Zero(t, env.server.requested("PUT /user"))
	})

	t.Run("log out", func(t *testing.T) {
		env := newTestEnv(t, signedIn)
		env.press(t, tea.KeyMsg{Type: tea.KeyCtrlO})
		env.press(t, tea.KeyMsg{Type: tea.KeyCtrlX})

		assert.Equal(t, ViewHome, env.app.view)
		assert.False(t, env.app.session.IsAuthenticated())
		assert.Equal(t, MsgSignedOut, env.app.status)

		creds, err := env.db.LoadCredentials()
		require.NoError(t, err)
		assert.Nil(t, creds)
	})
}

func TestFollowFromProfile(t *testing.T) {
	env := newTestEnv(t, signedIn)
	env.run(t, env.app.openProfile("anne"))
	require.Equal(t, ViewProfile, env.app.view)

	env.press(t, runes("u"))
	assert.Equal(t, 1, env.server.requested("POST /profiles/anne/follow"))
	assert.True(t, env.app.profile.Snapshot().Profile.Following)
}

func TestProfileTabs(t *testing.T) {
	env := newTestEnv(t)
	env.run(t, env.app.openProfile("jake"))

	env.press(t, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, state.TabFavorited, env.app.profile.Snapshot().ActiveTab)
	assert.Equal(t, 1, env.server.requested("GET /articles?favorited=jake"))
	assert.Contains(t, env.app.View(), "No articles are here... yet.")
}

func TestOpeningAnotherProfileStartsOnArticles(t *testing.T) {
	env := newTestEnv(t)
	env.run(t, env.app.openProfile("jake"))
	env.press(t, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, state.TabFavorited, env.app.profile.Snapshot().ActiveTab)

	env.run(t, env.app.openProfile("anne"))
	st := env.app.profile.Snapshot()
	assert.Equal(t, state.TabArticles, st.ActiveTab)
	assert.Equal(t, 0, st.CurrentPage)
	assert.Equal(t, 1, env.server.requested("GET /articles?author=anne"))
}

func TestQuitFromHome(t *testing.T) {
	env := newTestEnv(t)

	_, cmd := env.app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	_, cmd = env.app.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestWindowResize(t *testing.T) {
	env := newTestEnv(t)
	env.app.Update(tea.WindowSizeMsg{Width: 60, Height: 20})

	assert.Equal(t, 60, env.app.width)
	assert.Equal(t, 17, env.app.viewport.Height)
	assert.NotEmpty(t, env.app.View())
}

type fakeBrowser struct {
	opened []string
}

func (b *fakeBrowser) OpenArticle(slug string) (string, error) {
	b.opened = append(b.opened, "article/"+slug)
	return "http://web/article/" + slug, nil
}

func (b *fakeBrowser) OpenProfile(username string) (string, error) {
	b.opened = append(b.opened, "profile/"+username)
	return "", errors.New("no application found to open URLs")
}

func TestOpenInBrowser(t *testing.T) {
	env := newTestEnv(t)
	browser := &fakeBrowser{}
	env.app.browser = browser

	env.run(t, env.app.openReader("how-to-train-your-dragon"))
	env.press(t, runes("b"))
	assert.Equal(t, []string{"article/how-to-train-your-dragon"}, browser.opened)
	assert.Equal(t, "Opened http://web/article/how-to-train-your-dragon", env.app.status)
	assert.Contains(t, env.app.keyHandler.GetHelpForCurrentView(), "b: open in browser")

	env.run(t, env.app.openProfile("anne"))
	env.press(t, runes("b"))
	assert.Equal(t, "profile/anne", browser.opened[1])
	assert.Equal(t, StatusError, env.app.statusKind)
}

func TestOpenInBrowserWithoutBrowser(t *testing.T) {
	env := newTestEnv(t)
	env.run(t, env.app.openReader("how-to-train-your-dragon"))

	env.press(t, runes("b"))
	assert.Equal(t, ViewReader, env.app.view)
	assert.NotContains(t, env.app.keyHandler.GetHelpForCurrentView(), "b: open in browser")
}
