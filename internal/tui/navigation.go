package tui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/blogify/internal/api"
	"github.com/pders01/blogify/internal/state"
)

// openReader shows slug in the reader and loads it. Opening a different
// article drops whatever the article store still holds for the old one.
func (a *App) openReader(slug string) tea.Cmd {
	if slug != a.readerSlug {
		a.article.ResetArticleState()
		a.viewport.SetContent("")
	}
	a.readerSlug = slug
	a.renderedKey = ""
	a.loadingArticle = true
	a.navigate(ViewReader)
	return tea.Batch(a.startSpinner(MsgLoadingArticle), a.openArticle(slug))
}

func (a *App) openProfile(username string) tea.Cmd {
	if username == "" {
		return nil
	}
	a.profile.ResetProfileState()
	// Each profile opens on the first page of authored articles.
	a.profile.SetActiveTab(state.TabArticles)
	a.profileUser = username
	a.navigate(ViewProfile)
	return tea.Batch(a.startSpinner(MsgLoadingProfile), a.loadProfile(username))
}

func newAuthForm(v View) *form {
	if v == ViewRegister {
		return newRegisterForm()
	}
	return newLoginForm()
}

// openAuth shows the sign-in or sign-up form. From the other auth form it
// switches in place instead of stacking history.
func (a *App) openAuth(v View) {
	if a.view == ViewLogin || a.view == ViewRegister {
		a.switchAuth(v)
		return
	}
	a.auth = newAuthForm(v)
	a.auth.setWidth(a.width)
	a.navigate(v)
}

func (a *App) switchAuth(v View) {
	a.auth = newAuthForm(v)
	a.auth.setWidth(a.width)
	a.view = v
	a.err = nil
}

// requireAuth sends anonymous users to the sign-in form.
func (a *App) requireAuth() bool {
	if a.session.IsAuthenticated() {
		return true
	}
	a.setStatus(MsgSignInRequired, StatusWarn)
	a.openAuth(ViewLogin)
	return false
}

// openEditor starts a new article, or edits art when it is non-nil. A
// stored draft is restored unless the article changed after it was saved.
func (a *App) openEditor(art *api.Article) tea.Cmd {
	a.editor = newEditorForm()
	a.editingSlug = ""

	var since time.Time
	if art != nil {
		a.editingSlug = art.Slug
		a.editor.title = "› edit article"
		a.editor.setValue("title", art.Title)
		a.editor.setValue("description", art.Description)
		a.editor.setValue("tagList", strings.Join(art.TagList, ", "))
		a.editor.setValue("body", art.Body)
		since = art.UpdatedAt
	}

	a.editor.setWidth(a.width)
	a.editor.setBodyHeight(a.height - 18)
	if a.restoreDraft(a.draftKey(), since) {
		a.setStatus(MsgDraftRestored, StatusInfo)
	}

	a.navigate(ViewEditor)
	return a.editor.focusIndex(0)
}

func (a *App) openSettings() tea.Cmd {
	a.settings.ResetSettingsState()
	a.settingsForm = newSettingsForm(a.session.Snapshot().User)
	a.settingsForm.setWidth(a.width)
	a.navigate(ViewSettings)
	return a.settingsForm.focusIndex(0)
}

// inArticleSearch reports whether search was entered from the reader, in
// which case it is scoped to the open article.
func (a *App) inArticleSearch() bool {
	if a.view != ViewSearch || len(a.history) == 0 {
		return false
	}
	return a.history[len(a.history)-1] == ViewReader
}

// openInBrowser hands a page to the web frontend and reports the outcome in
// the status bar. It reports false when no browser is configured, so the
// key falls through to the view.
func (a *App) openInBrowser(open func(Browser) (string, error)) bool {
	if a.browser == nil {
		return false
	}
	u, err := open(a.browser)
	if err != nil {
		a.setStatus(err.Error(), StatusError)
		return true
	}
	a.setStatus("Opened "+u, StatusSuccess)
	return true
}
