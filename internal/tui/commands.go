package tui

import (
	"errors"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/pders01/blogify/internal/api"
	"github.com/pders01/blogify/internal/debuglog"
	"github.com/pders01/blogify/internal/search"
	"github.com/pders01/blogify/internal/state"
	"github.com/pders01/blogify/internal/storage"
	"github.com/pders01/blogify/internal/validation"
)

// fetchHome loads the page q describes. The personal feed needs a session;
// without one the global list is shown.
func (a *App) fetchHome(q state.FeedQuery) tea.Cmd {
	authed := a.session.IsAuthenticated()
	return func() tea.Msg {
		var (
			page *api.ArticleList
			err  error
		)
		switch {
		case q.Tab == state.TabFeed && authed:
			page, err = a.home.GetFeedArticles(a.ctx, q.Limit, q.Offset)
		case q.Tab == state.TabTag:
			page, err = a.home.GetGlobalArticles(a.ctx, q.Limit, q.Offset, q.Tag)
		default:
			page, err = a.home.GetGlobalArticles(a.ctx, q.Limit, q.Offset, "")
		}
		if err == nil {
			a.indexArticles(page.Articles)
		}
		return opDoneMsg{op: "home", err: err}
	}
}

func (a *App) fetchTags() tea.Cmd {
	return func() tea.Msg {
		_, err := a.home.GetTags(a.ctx)
		return opDoneMsg{op: "tags", err: err}
	}
}

// openArticle loads an article and its comments side by side. A comment
// failure is recorded by the store but does not fail the load.
func (a *App) openArticle(slug string) tea.Cmd {
	return func() tea.Msg {
		var g errgroup.Group
		g.Go(func() error {
			art, err := a.article.GetArticle(a.ctx, slug)
			if err != nil {
				return err
			}
			a.indexArticles([]api.Article{*art})
			return nil
		})
		g.Go(func() error {
			if _, err := a.article.GetComments(a.ctx, slug); err != nil {
				debuglog.Warnf("loading comments for %s: %v", slug, err)
			}
			return nil
		})
		return opDoneMsg{op: "article", err: g.Wait()}
	}
}

func (a *App) renderArticle(st state.ArticleState) tea.Cmd {
	art := *st.Article
	comments := st.Comments
	r, rerr := a.getRenderer()

	return func() tea.Msg {
		if rerr != nil {
			return articleRenderedMsg{slug: art.Slug, content: "Error initializing renderer: " + rerr.Error()}
		}
		rendered, err := r.Render(ArticleMarkdown(art, comments))
		if err != nil {
			return articleRenderedMsg{slug: art.Slug, content: "Failed to render article: " + err.Error() + "\n\nPress Escape to go back."}
		}
		return articleRenderedMsg{slug: art.Slug, content: rendered}
	}
}

func (a *App) toggleFavorite(art api.Article) tea.Cmd {
	return func() tea.Msg {
		var (
			updated *api.Article
			err     error
		)
		if art.Favorited {
			updated, err = a.article.UnfavoriteArticle(a.ctx, art.Slug)
		} else {
			updated, err = a.article.FavoriteArticle(a.ctx, art.Slug)
		}
		if err == nil {
			a.indexArticles([]api.Article{*updated})
		}
		return opDoneMsg{op: "favorite", err: err}
	}
}

// toggleListFavorite flips a favorite picked from a list. The result
// reaches the list through the re-fetch that follows.
func (a *App) toggleListFavorite(art api.Article) tea.Cmd {
	return func() tea.Msg {
		call, fallback := a.favorites.FavoriteArticle, "Failed to favorite article"
		if art.Favorited {
			call, fallback = a.favorites.UnfavoriteArticle, "Failed to unfavorite article"
		}
		updated, err := call(a.ctx, art.Slug)
		if err != nil {
			return opDoneMsg{op: "favorite", err: state.FromErr(err, fallback)}
		}
		a.indexArticles([]api.Article{*updated})
		return opDoneMsg{op: "favorite"}
	}
}

func (a *App) toggleFollow(p api.Profile) tea.Cmd {
	return func() tea.Msg {
		var err error
		if p.Following {
			_, err = a.profile.UnfollowUser(a.ctx, p.Username)
		} else {
			_, err = a.profile.FollowUser(a.ctx, p.Username)
		}
		return opDoneMsg{op: "follow", err: err}
	}
}

func (a *App) fetchProfileArticles(username string, q state.ProfileQuery) tea.Cmd {
	return func() tea.Msg {
		var (
			page *api.ArticleList
			err  error
		)
		if q.Tab == state.TabFavorited {
			page, err = a.profile.GetFavoritedArticles(a.ctx, username, q.Limit, q.Offset)
		} else {
			page, err = a.profile.GetProfileArticles(a.ctx, username, q.Limit, q.Offset)
		}
		if err == nil {
			a.indexArticles(page.Articles)
		}
		return opDoneMsg{op: "profile-articles", err: err}
	}
}

func (a *App) loadProfile(username string) tea.Cmd {
	articles := a.fetchProfileArticles(username, a.profile.Query())
	return func() tea.Msg {
		var g errgroup.Group
		g.Go(func() error {
			_, err := a.profile.GetProfile(a.ctx, username)
			return err
		})
		g.Go(func() error {
			if done, ok := articles().(opDoneMsg); ok {
				return done.err
			}
			return nil
		})
		return opDoneMsg{op: "profile", err: g.Wait()}
	}
}

func (a *App) submitComment(slug, body string) tea.Cmd {
	return func() tea.Msg {
		_, err := a.article.AddComment(a.ctx, slug, body)
		return opDoneMsg{op: "comment", err: err}
	}
}

func (a *App) deleteComment(slug string, id int) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{op: "delete-comment", err: a.article.DeleteComment(a.ctx, slug, id)}
	}
}

func (a *App) saveArticle(slug string, draft api.ArticleDraft) tea.Cmd {
	return func() tea.Msg {
		var (
			art *api.Article
			err error
		)
		if slug == "" {
			art, err = a.article.CreateArticle(a.ctx, draft)
		} else {
			art, err = a.article.UpdateArticle(a.ctx, slug, draft)
		}
		if err != nil {
			return articleSavedMsg{err: err}
		}
		if slug != "" && slug != art.Slug {
			a.unindex(slug)
		}
		a.indexArticles([]api.Article{*art})
		return articleSavedMsg{slug: art.Slug}
	}
}

func (a *App) deleteArticle(slug string) tea.Cmd {
	return func() tea.Msg {
		err := a.article.DeleteArticle(a.ctx, slug)
		if err == nil {
			a.unindex(slug)
		}
		return articleDeletedMsg{slug: slug, err: err}
	}
}

func (a *App) submitLogin(form validation.LoginForm) tea.Cmd {
	return func() tea.Msg {
		_, err := a.session.Login(a.ctx, form.Email, form.Password)
		return signedInMsg{err: err}
	}
}

func (a *App) submitRegister(form validation.RegisterForm) tea.Cmd {
	return func() tea.Msg {
		_, err := a.session.Register(a.ctx, form.Username, form.Email, form.Password)
		return signedInMsg{err: err}
	}
}

func (a *App) submitSettings(update api.UserUpdate) tea.Cmd {
	return func() tea.Msg {
		_, err := a.session.UpdateUser(a.ctx, update)
		return settingsSavedMsg{err: err}
	}
}

func (a *App) restoreSession() tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{op: "restore", err: a.session.Restore(a.ctx)}
	}
}

func (a *App) performSearch(query string) tea.Cmd {
	seq := a.searchSeq
	var current *api.Article
	if a.inArticleSearch() {
		current = a.article.Snapshot().Article
	}

	return func() tea.Msg {
		if a.index == nil {
			return searchResultsMsg{seq: seq}
		}

		var (
			results []*search.Result
			err     error
		)
		if current != nil {
			results, err = a.index.SearchInArticle(current, query)
		} else {
			results, err = a.index.Search(query, 20)
		}
		if err != nil {
			return errorMsg{err: wrapErr("search", err)}
		}
		return searchResultsMsg{seq: seq, results: searchItems(results)}
	}
}

func (a *App) indexArticles(articles []api.Article) {
	if a.index == nil || len(articles) == 0 {
		return
	}
	if err := a.index.Index(articles...); err != nil {
		debuglog.Warnf("indexing %d articles: %v", len(articles), err)
	}
}

func (a *App) unindex(slug string) {
	if a.index == nil {
		return
	}
	if err := a.index.Remove(slug); err != nil {
		debuglog.Warnf("removing %s from index: %v", slug, err)
	}
}

// handleOpDone refreshes the views after a store operation and reports its
// outcome.
func (a *App) handleOpDone(msg opDoneMsg) tea.Cmd {
	cmds := []tea.Cmd{a.sync()}

	if msg.err == nil {
		a.err = nil
		switch msg.op {
		case "home", "profile", "profile-articles", "article":
			if a.spinning {
				a.clearStatus()
			}
		case "restore":
			// The personal feed is only reachable once the token is confirmed.
			cmds = append(cmds, a.fetchHome(a.home.Query()))
		case "favorite":
			cmds = append(cmds, a.refreshCurrentList())
		case "comment":
			a.commentInput.Reset()
			a.clearStatus()
		}
		return tea.Batch(cmds...)
	}

	if msg.op == "restore" || api.IsUnauthorized(msg.err) {
		a.setStatus(MsgSessionExpired, StatusWarn)
		a.home.SetFeedTab(state.TabGlobal)
		cmds = append(cmds, a.fetchHome(a.home.Query()))
		if msg.op != "restore" {
			a.openAuth(ViewLogin)
		}
		return tea.Batch(cmds...)
	}

	a.err = msg.err
	a.setStatus(errorText(msg.err), StatusError)
	return tea.Batch(cmds...)
}

// refreshCurrentList re-fetches the article list the user is looking at.
// Stores do not share entities, so a toggled favorite only shows up in a
// list after it is loaded again.
func (a *App) refreshCurrentList() tea.Cmd {
	switch a.view {
	case ViewHome:
		return a.fetchHome(a.home.Query())
	case ViewProfile:
		if a.profileUser != "" {
			return a.fetchProfileArticles(a.profileUser, a.profile.Query())
		}
	}
	return nil
}

func fieldErrors(err error) map[string][]string {
	var se *state.Error
	if errors.As(err, &se) && se.Kind == state.KindFields {
		return se.Fields
	}
	return nil
}

func (a *App) handleArticleSaved(msg articleSavedMsg) tea.Cmd {
	if msg.err != nil {
		if a.editor != nil {
			a.editor.errs = fieldErrors(msg.err)
		}
		a.err = msg.err
		a.setStatus(errorText(msg.err), StatusError)
		return nil
	}

	a.deleteDraft(a.draftKey())
	a.editor = nil
	a.editingSlug = ""
	a.back()
	a.setStatus("Published", StatusSuccess)
	return a.openReader(msg.slug)
}

func (a *App) handleArticleDeleted(msg articleDeletedMsg) tea.Cmd {
	if msg.err != nil {
		a.back()
		a.err = msg.err
		a.setStatus(errorText(msg.err), StatusError)
		return nil
	}

	a.history = nil
	a.view = ViewHome
	a.readerSlug = ""
	a.setStatus(MsgArticleDeleted, StatusSuccess)
	return tea.Batch(a.fetchHome(a.home.Query()), a.fetchTags())
}

func (a *App) handleSignedIn(msg signedInMsg) tea.Cmd {
	if msg.err != nil {
		if a.auth != nil {
			a.auth.errs = fieldErrors(msg.err)
		}
		a.err = msg.err
		a.setStatus(errorText(msg.err), StatusError)
		return nil
	}

	a.auth = nil
	a.history = nil
	a.view = ViewHome
	a.setStatus(MsgWelcome(a.username()), StatusSuccess)
	return tea.Batch(a.sync(), a.fetchHome(a.home.SetFeedTab(state.TabFeed)))
}

func (a *App) handleSettingsSaved(msg settingsSavedMsg) tea.Cmd {
	if msg.err != nil {
		shown := msg.err
		if st := a.settings.Snapshot(); st.Err != nil {
			shown = st.Err
		}
		if a.settingsForm != nil {
			a.settingsForm.errs = fieldErrors(shown)
		}
		a.err = shown
		a.setStatus(errorText(shown), StatusError)
		return nil
	}

	a.settingsForm = nil
	a.back()
	a.setStatus(MsgSettingsSaved, StatusSuccess)
	return a.openProfile(a.username())
}

func (a *App) logout() tea.Cmd {
	a.session.Logout()
	a.settings.ResetSettingsState()
	a.settingsForm = nil
	a.history = nil
	a.view = ViewHome
	a.setStatus(MsgSignedOut, StatusInfo)
	return tea.Batch(a.sync(), a.fetchHome(a.home.SetFeedTab(state.TabGlobal)))
}

func (a *App) draftKey() string {
	if a.editingSlug == "" {
		return storage.NewDraftKey
	}
	return a.editingSlug
}

// saveDraft stores the editor contents so leaving the editor loses nothing.
func (a *App) saveDraft() {
	if a.drafts == nil || a.editor == nil || a.editor.empty() {
		return
	}
	draft := &storage.Draft{
		Key:         a.draftKey(),
		Title:       strings.TrimSpace(a.editor.value("title")),
		Description: strings.TrimSpace(a.editor.value("description")),
		Body:        a.editor.value("body"),
		Tags:        validation.NormalizeTags([]string{a.editor.value("tagList")}),
	}
	if err := a.drafts.SaveDraft(draft); err != nil {
		a.setStatus(errorText(wrapErr("saving draft", err)), StatusError)
		return
	}
	a.setStatus(MsgDraftSaved, StatusInfo)
}

// restoreDraft fills the editor from a stored draft newer than since.
func (a *App) restoreDraft(key string, since time.Time) bool {
	if a.drafts == nil || a.editor == nil {
		return false
	}
	d, err := a.drafts.GetDraft(key)
	if err != nil {
		if !errors.Is(err, storage.ErrDraftNotFound) {
			debuglog.Warnf("loading draft %s: %v", key, err)
		}
		return false
	}
	if !since.IsZero() && !d.UpdatedAt.After(since) {
		return false
	}
	a.editor.setValue("title", d.Title)
	a.editor.setValue("description", d.Description)
	a.editor.setValue("tagList", strings.Join(d.Tags, ", "))
	a.editor.setValue("body", d.Body)
	return true
}

func (a *App) deleteDraft(key string) {
	if a.drafts == nil {
		return
	}
	if err := a.drafts.DeleteDraft(key); err != nil {
		debuglog.Warnf("deleting draft %s: %v", key, err)
	}
}
