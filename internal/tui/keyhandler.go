package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/blogify/internal/api"
	"github.com/pders01/blogify/internal/config"
	"github.com/pders01/blogify/internal/search"
	"github.com/pders01/blogify/internal/state"
	"github.com/pders01/blogify/internal/validation"
)

type KeyHandler struct {
	app         *App
	config      *config.Config
	modifierKey string
	keys        config.KeyBindings
}

func NewKeyHandler(app *App, cfg *config.Config) *KeyHandler {
	modifierKey := cfg.Keys.Modifier + "+"
	if cfg.Keys.Modifier == "" {
		modifierKey = "ctrl+"
	}
	return &KeyHandler{app: app, config: cfg, modifierKey: modifierKey, keys: withDefaults(cfg.Keys.Bindings)}
}

// withDefaults fills unset bindings so a partial [keys.bindings] table
// still leaves every action reachable.
func withDefaults(b config.KeyBindings) config.KeyBindings {
	or := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	or(&b.Quit, "q")
	or(&b.Search, "s")
	or(&b.Refresh, "r")
	or(&b.Favorite, "f")
	or(&b.Follow, "u")
	or(&b.Editor, "n")
	or(&b.Settings, "o")
	or(&b.Back, "esc")
	or(&b.Help, "?")
	return b
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if kh.isInTextInputMode() {
		return kh.handleTextInputMode(msg)
	}

	// A list being filtered owns the keyboard.
	if kh.isFiltering() && key != "ctrl+c" {
		return kh.delegateToCharm(msg)
	}

	if model, cmd, handled := kh.handleCustomKeys(key); handled {
		return model, cmd
	}

	return kh.delegateToCharm(msg)
}

func (kh *KeyHandler) isInTextInputMode() bool {
	switch kh.app.view {
	case ViewEditor, ViewSettings, ViewLogin, ViewRegister:
		return true
	case ViewSearch:
		return kh.app.searchInput.Focused()
	case ViewComments:
		return kh.app.commentInput.Focused()
	default:
		return false
	}
}

func (kh *KeyHandler) isFiltering() bool {
	switch kh.app.view {
	case ViewHome:
		return kh.app.articleList.SettingFilter()
	case ViewTags:
		return kh.app.tagList.SettingFilter()
	case ViewProfile:
		return kh.app.profileList.SettingFilter()
	default:
		return false
	}
}

// activeForm returns the form shown in the current view, if any.
func (kh *KeyHandler) activeForm() *form {
	switch kh.app.view {
	case ViewEditor:
		return kh.app.editor
	case ViewSettings:
		return kh.app.settingsForm
	case ViewLogin, ViewRegister:
		return kh.app.auth
	default:
		return nil
	}
}

func (kh *KeyHandler) handleTextInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	f := kh.activeForm()

	switch key {
	case "ctrl+c":
		return kh.app, tea.Quit
	case kh.keys.Back:
		if kh.app.view == ViewComments {
			kh.app.commentInput.Blur()
			return kh.app, nil
		}
		return kh.navigateBack()
	case kh.modifierKey + "s":
		return kh.app, kh.submitForm()
	case kh.modifierKey + "r":
		switch kh.app.view {
		case ViewLogin:
			kh.app.switchAuth(ViewRegister)
			return kh.app, nil
		case ViewRegister:
			kh.app.switchAuth(ViewLogin)
			return kh.app, nil
		}
	case kh.modifierKey + "x":
		if kh.app.view == ViewSettings {
			return kh.app, kh.app.logout()
		}
	case "tab":
		if f != nil {
			return kh.app, f.next()
		}
		if kh.app.view == ViewSearch {
			return kh.focusSearchResults()
		}
	case "shift+tab":
		if f != nil {
			return kh.app, f.prev()
		}
	case "down":
		if f != nil && !f.onBody() {
			return kh.app, f.next()
		}
		if kh.app.view == ViewSearch {
			return kh.focusSearchResults()
		}
	case "up":
		if f != nil && !f.onBody() {
			return kh.app, f.prev()
		}
	case "enter":
		return kh.handleTextInputEnter(msg)
	}

	return kh.delegateToTextInput(msg)
}

func (kh *KeyHandler) focusSearchResults() (tea.Model, tea.Cmd) {
	if len(kh.app.searchList.Items()) > 0 {
		kh.app.searchInput.Blur()
		kh.app.searchList.Select(0)
	}
	return kh.app, nil
}

func (kh *KeyHandler) handleTextInputEnter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch kh.app.view {
	case ViewLogin, ViewRegister, ViewSettings:
		f := kh.activeForm()
		if f.onLast() {
			return kh.app, kh.submitForm()
		}
		return kh.app, f.next()

	case ViewEditor:
		if kh.app.editor.onBody() {
			return kh.delegateToTextInput(msg)
		}
		return kh.app, kh.app.editor.next()

	case ViewSearch:
		if items := kh.app.searchList.Items(); len(items) > 0 {
			if i, ok := items[0].(searchResultItem); ok {
				return kh.selectSearchResult(i)
			}
		}
		return kh.app, nil

	case ViewComments:
		body := strings.TrimSpace(kh.app.commentInput.Value())
		fields, err := validation.Validate(&validation.CommentForm{Body: body})
		if err != nil {
			return kh.app, func() tea.Msg { return errorMsg{err: err} }
		}
		if fields != nil || kh.app.readerSlug == "" {
			return kh.app, nil
		}
		return kh.app, tea.Batch(
			kh.app.startSpinner(MsgPosting),
			kh.app.submitComment(kh.app.readerSlug, body),
		)

	default:
		return kh.app, nil
	}
}

// delegateToTextInput passes the key to the focused input.
func (kh *KeyHandler) delegateToTextInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if f := kh.activeForm(); f != nil {
		return kh.app, f.update(msg)
	}

	switch kh.app.view {
	case ViewComments:
		newInput, cmd := kh.app.commentInput.Update(msg)
		kh.app.commentInput = newInput
		return kh.app, cmd

	case ViewSearch:
		prev := kh.app.searchInput.Value()
		newSearchInput, cmd := kh.app.searchInput.Update(msg)
		kh.app.searchInput = newSearchInput

		newVal := kh.sanitizeSearchInput(kh.app.searchInput.Value())
		if newVal != prev {
			kh.app.pendingSearchQuery = newVal
			kh.app.searchSeq++
			seq := kh.app.searchSeq
			wait := time.Duration(kh.app.searchDebounceMillis) * time.Millisecond
			return kh.app, tea.Batch(cmd, tea.Tick(wait, func(time.Time) tea.Msg { return searchDebounceFireMsg{seq: seq} }))
		}
		return kh.app, cmd

	default:
		return kh.app, nil
	}
}

// submitForm validates the active form locally and dispatches it.
func (kh *KeyHandler) submitForm() tea.Cmd {
	a := kh.app
	switch a.view {
	case ViewLogin:
		form := validation.LoginForm{Email: a.auth.value("email"), Password: a.auth.value("password")}
		if !kh.validate(a.auth, &form) {
			return nil
		}
		return tea.Batch(a.startSpinner(MsgSigningIn), a.submitLogin(form))

	case ViewRegister:
		form := validation.RegisterForm{
			Username: a.auth.value("username"),
			Email:    a.auth.value("email"),
			Password: a.auth.value("password"),
		}
		if !kh.validate(a.auth, &form) {
			return nil
		}
		return tea.Batch(a.startSpinner(MsgSigningIn), a.submitRegister(form))

	case ViewSettings:
		f := a.settingsForm
		form := validation.SettingsForm{
			Image:    f.value("image"),
			Username: f.value("username"),
			Bio:      f.value("bio"),
			Email:    f.value("email"),
			Password: f.value("password"),
		}
		if !kh.validate(f, &form) {
			return nil
		}
		update := api.UserUpdate{
			Image:    api.String(form.Image),
			Username: api.String(form.Username),
			Bio:      api.String(form.Bio),
			Email:    api.String(form.Email),
		}
		if form.Password != "" {
			update.Password = api.String(form.Password)
		}
		return tea.Batch(a.startSpinner(MsgSaving), a.submitSettings(update))

	case ViewEditor:
		f := a.editor
		form := validation.ArticleForm{
			Title:       f.value("title"),
			Description: f.value("description"),
			Body:        f.value("body"),
			Tags:        []string{f.value("tagList")},
		}
		if !kh.validate(f, &form) {
			return nil
		}
		draft := api.ArticleDraft{
			Title:       form.Title,
			Description: form.Description,
			Body:        form.Body,
			TagList:     form.Tags,
		}
		return tea.Batch(a.startSpinner(MsgPublishing), a.saveArticle(a.editingSlug, draft))
	}
	return nil
}

// validate runs the form rules and shows violations next to their fields.
func (kh *KeyHandler) validate(f *form, data any) bool {
	fields, err := validation.Validate(data)
	if err != nil {
		kh.app.err = err
		kh.app.setStatus(errorText(err), StatusError)
		return false
	}
	f.errs = fields
	if fields != nil {
		kh.app.setStatus("Please fix the highlighted fields", StatusWarn)
		return false
	}
	return true
}

// handleCustomKeys handles only our custom action keys
func (kh *KeyHandler) handleCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	a := kh.app

	switch key {
	case "ctrl+c", kh.keys.Quit:
		return a, tea.Quit, true
	case kh.keys.Back:
		model, cmd := kh.navigateBack()
		return model, cmd, true
	case kh.keys.Help:
		return a, nil, kh.toggleHelp()
	case kh.modifierKey + kh.keys.Search:
		model, cmd := kh.enterSearchMode()
		return model, cmd, true
	case kh.modifierKey + kh.keys.Editor:
		if !a.requireAuth() {
			return a, nil, true
		}
		return a, a.openEditor(nil), true
	case kh.modifierKey + kh.keys.Settings:
		if !a.requireAuth() {
			return a, nil, true
		}
		return a, a.openSettings(), true
	case kh.modifierKey + "l":
		if !a.session.IsAuthenticated() {
			a.openAuth(ViewLogin)
			return a, nil, true
		}
	}

	switch a.view {
	case ViewHome:
		return kh.handleHomeCustomKeys(key)
	case ViewReader:
		return kh.handleReaderCustomKeys(key)
	case ViewComments:
		return kh.handleCommentsCustomKeys(key)
	case ViewProfile:
		return kh.handleProfileCustomKeys(key)
	case ViewDeleteConfirm:
		return kh.handleDeleteConfirmKeys(key)
	default:
		return a, nil, false
	}
}

func (kh *KeyHandler) handleHomeCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	hs := a.home.Snapshot()

	switch key {
	case "tab":
		_, active := a.homeTabs(hs)
		tabs := []state.FeedTab{state.TabGlobal}
		if a.session.IsAuthenticated() {
			tabs = []state.FeedTab{state.TabFeed, state.TabGlobal}
		}
		if hs.FeedTab == state.TabTag {
			tabs = append(tabs, state.TabTag)
		}
		next := tabs[(active+1)%len(tabs)]
		if next == state.TabTag {
			return a, a.fetchHome(a.home.SetCurrentTag(hs.CurrentTag)), true
		}
		return a, tea.Batch(a.startSpinner(MsgLoadingFeed), a.fetchHome(a.home.SetFeedTab(next))), true
	case "t":
		a.navigate(ViewTags)
		if len(hs.Tags) == 0 {
			return a, a.fetchTags(), true
		}
		return a, nil, true
	case "]":
		if hs.CurrentPage+1 < hs.PageCount() {
			return a, tea.Batch(a.startSpinner(MsgLoadingFeed), a.fetchHome(a.home.SetCurrentPage(hs.CurrentPage+1))), true
		}
		return a, nil, true
	case "[":
		if hs.CurrentPage > 0 {
			return a, tea.Batch(a.startSpinner(MsgLoadingFeed), a.fetchHome(a.home.SetCurrentPage(hs.CurrentPage-1))), true
		}
		return a, nil, true
	case kh.keys.Refresh:
		return a, tea.Batch(a.startSpinner(MsgLoadingFeed), a.fetchHome(a.home.Query()), a.fetchTags()), true
	case kh.keys.Favorite:
		if i, ok := a.articleList.SelectedItem().(articleItem); ok {
			if !a.requireAuth() {
				return a, nil, true
			}
			return a, a.toggleListFavorite(i.article), true
		}
	case "p":
		if i, ok := a.articleList.SelectedItem().(articleItem); ok {
			return a, a.openProfile(i.article.Author.Username), true
		}
	}
	return a, nil, false
}

func (kh *KeyHandler) handleReaderCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	art := a.article.Snapshot().Article
	if art == nil || art.Slug != a.readerSlug {
		return a, nil, false
	}
	own := art.Author.Username == a.username()

	switch key {
	case kh.keys.Favorite:
		if !a.requireAuth() {
			return a, nil, true
		}
		return a, a.toggleFavorite(*art), true
	case "p":
		return a, a.openProfile(art.Author.Username), true
	case "c":
		a.navigate(ViewComments)
		return a, nil, true
	case "b":
		return a, nil, a.openInBrowser(func(b Browser) (string, error) { return b.OpenArticle(art.Slug) })
	case kh.keys.Refresh:
		return a, a.openArticle(art.Slug), true
	case "e":
		if own {
			return a, a.openEditor(art), true
		}
	case kh.modifierKey + "x":
		if own {
			a.navigate(ViewDeleteConfirm)
			return a, nil, true
		}
	}
	return a, nil, false
}

func (kh *KeyHandler) handleCommentsCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	a := kh.app

	switch key {
	case "c", "i":
		if !a.requireAuth() {
			return a, nil, true
		}
		return a, a.commentInput.Focus(), true
	case "x":
		if i, ok := a.commentList.SelectedItem().(commentItem); ok && i.own {
			a.setStatus(MsgDeleting, StatusInfo)
			return a, a.deleteComment(a.readerSlug, i.comment.ID), true
		}
		return a, nil, true
	case kh.keys.Refresh:
		slug := a.readerSlug
		return a, func() tea.Msg {
			_, err := a.article.GetComments(a.ctx, slug)
			return opDoneMsg{op: "comments", err: err}
		}, true
	}
	return a, nil, false
}

func (kh *KeyHandler) handleProfileCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	ps := a.profile.Snapshot()

	switch key {
	case "tab":
		tab := state.TabFavorited
		if ps.ActiveTab == state.TabFavorited {
			tab = state.TabArticles
		}
		return a, a.fetchProfileArticles(a.profileUser, a.profile.SetActiveTab(tab)), true
	case "]":
		if ps.CurrentPage+1 < ps.PageCount() {
			return a, a.fetchProfileArticles(a.profileUser, a.profile.SetCurrentPage(ps.CurrentPage+1)), true
		}
		return a, nil, true
	case "[":
		if ps.CurrentPage > 0 {
			return a, a.fetchProfileArticles(a.profileUser, a.profile.SetCurrentPage(ps.CurrentPage-1)), true
		}
		return a, nil, true
	case kh.keys.Follow:
		if ps.Profile == nil {
			return a, nil, true
		}
		if !a.requireAuth() {
			return a, nil, true
		}
		if ps.Profile.Username == a.username() {
			return a, a.openSettings(), true
		}
		return a, a.toggleFollow(*ps.Profile), true
	case kh.keys.Favorite:
		if i, ok := a.profileList.SelectedItem().(articleItem); ok {
			if !a.requireAuth() {
				return a, nil, true
			}
			return a, a.toggleListFavorite(i.article), true
		}
	case "b":
		return a, nil, a.openInBrowser(func(b Browser) (string, error) { return b.OpenProfile(a.profileUser) })
	case kh.keys.Refresh:
		return a, a.loadProfile(a.profileUser), true
	}
	return a, nil, false
}

func (kh *KeyHandler) handleDeleteConfirmKeys(key string) (tea.Model, tea.Cmd, bool) {
	if key == "enter" && kh.app.readerSlug != "" {
		kh.app.setStatus(MsgDeleting, StatusInfo)
		return kh.app, kh.app.deleteArticle(kh.app.readerSlug), true
	}
	return kh.app, nil, false
}

// toggleHelp expands or collapses the help of the list on screen.
func (kh *KeyHandler) toggleHelp() bool {
	var l *list.Model
	switch kh.app.view {
	case ViewHome:
		l = &kh.app.articleList
	case ViewProfile:
		l = &kh.app.profileList
	case ViewComments:
		l = &kh.app.commentList
	default:
		return false
	}
	l.Help.ShowAll = !l.Help.ShowAll
	return true
}

// delegateToCharm lets Charm handle all keys we don't intercept
func (kh *KeyHandler) delegateToCharm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app
	var cmd tea.Cmd
	enter := msg.String() == "enter"

	switch a.view {
	case ViewHome:
		a.articleList, cmd = a.articleList.Update(msg)
		if enter && !a.articleList.SettingFilter() {
			if i, ok := a.articleList.SelectedItem().(articleItem); ok {
				a.cameFromSearch = false
				return a, a.openReader(i.article.Slug)
			}
		}
		return a, cmd

	case ViewTags:
		a.tagList, cmd = a.tagList.Update(msg)
		if enter && !a.tagList.SettingFilter() {
			if t, ok := a.tagList.SelectedItem().(tagItem); ok {
				a.back()
				q := a.home.SetCurrentTag(string(t))
				return a, tea.Batch(a.startSpinner(MsgLoadingFeed), a.fetchHome(q))
			}
		}
		return a, cmd

	case ViewProfile:
		a.profileList, cmd = a.profileList.Update(msg)
		if enter && !a.profileList.SettingFilter() {
			if i, ok := a.profileList.SelectedItem().(articleItem); ok {
				a.cameFromSearch = false
				return a, a.openReader(i.article.Slug)
			}
		}
		return a, cmd

	case ViewComments:
		a.commentList, cmd = a.commentList.Update(msg)
		return a, cmd

	case ViewSearch:
		if !a.searchInput.Focused() {
			switch msg.String() {
			case "tab", "shift+tab":
				a.searchInput.Focus()
				return a, nil
			case "up":
				if len(a.searchList.Items()) > 0 && a.searchList.Index() == 0 {
					a.searchInput.Focus()
					return a, nil
				}
			case "/", "i":
				a.searchInput.Focus()
				return a, nil
			}
		}

		a.searchList, cmd = a.searchList.Update(msg)
		if enter && !a.searchInput.Focused() {
			if i, ok := a.searchList.SelectedItem().(searchResultItem); ok {
				return kh.selectSearchResult(i)
			}
		}
		return a, cmd

	case ViewReader:
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd

	default:
		return a, nil
	}
}

func (kh *KeyHandler) selectSearchResult(result searchResultItem) (tea.Model, tea.Cmd) {
	if result.article.Slug == "" {
		return kh.app, nil
	}
	kh.app.cameFromSearch = true
	return kh.app, kh.app.openReader(result.article.Slug)
}

// navigateBack implements smart back navigation
func (kh *KeyHandler) navigateBack() (tea.Model, tea.Cmd) {
	a := kh.app

	switch a.view {
	case ViewEditor:
		a.saveDraft()
		a.editor = nil
	case ViewSettings:
		a.settingsForm = nil
		a.settings.ResetSettingsState()
	case ViewLogin, ViewRegister:
		a.auth = nil
	case ViewSearch:
		a.searchInput.Reset()
		a.searchResults = []searchResultItem{}
		a.searchList.SetItems([]list.Item{})
		a.clearStatus()
	case ViewReader:
		if a.cameFromSearch && a.back() {
			a.cameFromSearch = false
			a.searchInput.Blur()
			return a, nil
		}
	}

	if a.back() {
		return a, nil
	}
	if a.view != ViewHome {
		a.view = ViewHome
		return a, nil
	}
	return a, tea.Quit
}

// enterSearchMode transitions to search view
func (kh *KeyHandler) enterSearchMode() (tea.Model, tea.Cmd) {
	a := kh.app
	a.navigate(ViewSearch)
	a.searchInput.Reset()
	a.searchResults = []searchResultItem{}
	a.searchList.SetItems([]list.Item{})

	if ds, ok := a.index.(search.DebugStatser); ok {
		if n, err := ds.DocCount(); err == nil {
			a.setStatus(fmt.Sprintf("Search: %d articles indexed", n), StatusInfo)
			return a, a.searchInput.Focus()
		}
	}
	a.setStatus("Search", StatusInfo)
	return a, a.searchInput.Focus()
}

// sanitizeSearchInput sanitizes and limits search input length
func (kh *KeyHandler) sanitizeSearchInput(input string) string {
	input = strings.TrimSpace(input)

	if len(input) > 256 {
		input = input[:256]
	}

	input = strings.ReplaceAll(input, "\n", " ")
	input = strings.ReplaceAll(input, "\r", " ")
	input = strings.ReplaceAll(input, "\t", " ")

	for strings.Contains(input, "  ") {
		input = strings.ReplaceAll(input, "  ", " ")
	}

	return strings.TrimSpace(input)
}

// GetHelpForCurrentView returns only our custom help text (Charm handles the rest)
func (kh *KeyHandler) GetHelpForCurrentView() []string {
	a := kh.app
	m := kh.modifierKey
	k := kh.keys
	authed := a.session.IsAuthenticated()
	back := k.Back + ": back"

	switch a.view {
	case ViewHome:
		help := []string{"tab: feed", "t: tags", "[ ]: page", k.Favorite + ": favorite", "p: author", m + k.Search + ": search"}
		if authed {
			return append(help, m+k.Editor+": new article", m+k.Settings+": settings")
		}
		return append(help, m+"l: sign in")

	case ViewTags:
		return []string{"enter: filter by tag", back}

	case ViewReader:
		help := []string{k.Favorite + ": favorite", "c: comments", "p: author", m + k.Search + ": search in article"}
		if a.browser != nil {
			help = append(help, "b: open in browser")
		}
		if art := a.article.Snapshot().Article; authed && art != nil && art.Author.Username == a.username() {
			help = append(help, "e: edit", m+"x: delete")
		}
		return help

	case ViewComments:
		if authed {
			return []string{"c: write", "x: delete yours", back}
		}
		return []string{back}

	case ViewProfile:
		help := []string{"tab: articles/favorited", "[ ]: page", k.Follow + ": follow", k.Favorite + ": favorite"}
		if a.browser != nil {
			help = append(help, "b: open in browser")
		}
		return append(help, back)

	case ViewSearch:
		return []string{"enter: open", back}

	case ViewEditor:
		return []string{m + "s: publish", k.Back + ": save draft"}

	case ViewSettings:
		return []string{m + "s: update", m + "x: log out", back}

	case ViewLogin, ViewRegister:
		return []string{"enter: submit", m + "r: switch", back}

	case ViewDeleteConfirm:
		return []string{"enter: confirm", k.Back + ": cancel"}

	default:
		return []string{}
	}
}
