package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/blogify/internal/api"
	"github.com/pders01/blogify/internal/config"
	"github.com/pders01/blogify/internal/search"
	"github.com/pders01/blogify/internal/state"
	"github.com/pders01/blogify/internal/storage"
)

// DraftStore keeps unsent editor buffers.
type DraftStore interface {
	SaveDraft(draft *storage.Draft) error
	GetDraft(key string) (*storage.Draft, error)
	DeleteDraft(key string) error
}

// Index is the local article search index.
type Index interface {
	search.Searcher
	search.Indexer
}

// Browser opens frontend pages outside the terminal.
type Browser interface {
	OpenArticle(slug string) (string, error)
	OpenProfile(username string) (string, error)
}

// Favorites toggles a favorite without going through a store. Lists use it
// so the article store only ever holds the article being read.
type Favorites interface {
	FavoriteArticle(ctx context.Context, slug string) (*api.Article, error)
	UnfavoriteArticle(ctx context.Context, slug string) (*api.Article, error)
}

// Deps is everything the TUI drives. Drafts, Index and Browser are optional.
type Deps struct {
	Config    *config.Config
	Session   *state.SessionStore
	Home      *state.HomeStore
	Article   *state.ArticleStore
	Profile   *state.ProfileStore
	Settings  *state.SettingsStore
	Drafts    DraftStore
	Index     Index
	Browser   Browser
	Favorites Favorites

	// StartTag opens the home view filtered by this tag.
	StartTag string
	Context  context.Context
}

type App struct {
	ctx       context.Context
	config    *config.Config
	session   *state.SessionStore
	home      *state.HomeStore
	article   *state.ArticleStore
	profile   *state.ProfileStore
	settings  *state.SettingsStore
	drafts    DraftStore
	index     Index
	browser   Browser
	favorites Favorites

	keyHandler *KeyHandler

	articleList  list.Model
	tagList      list.Model
	profileList  list.Model
	commentList  list.Model
	searchList   list.Model
	searchInput  textinput.Model
	commentInput textinput.Model
	viewport     viewport.Model
	spinner      spinner.Model

	editor       *form
	settingsForm *form
	auth         *form

	view    View
	history []View

	readerSlug     string
	renderedKey    string
	loadingArticle bool
	profileUser    string
	editingSlug    string
	cameFromSearch bool

	searchResults        []searchResultItem
	pendingSearchQuery   string
	searchSeq            int
	searchDebounceMillis int

	width  int
	height int

	err        error
	status     string
	statusKind StatusKind
	spinning   bool

	glamourRenderer *glamour.TermRenderer
	rendererWidth   int
}

func newList(title string) list.Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(true)
	return l
}

func NewApp(deps Deps) *App {
	ctx := deps.Context
	if ctx == nil {
		ctx = context.Background()
	}

	tagList := newList("› popular tags")
	tagList.SetShowHelp(false)

	commentList := newList("› comments")
	commentList.SetFilteringEnabled(false)

	searchList := newList("› search results")
	searchList.SetShowHelp(false)
	searchList.SetFilteringEnabled(false)

	si := textinput.New()
	si.Placeholder = "Search loaded articles..."

	ci := textinput.New()
	ci.Placeholder = "Write a comment..."
	ci.CharLimit = 2000

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	app := &App{
		ctx:                  ctx,
		config:               deps.Config,
		session:              deps.Session,
		home:                 deps.Home,
		article:              deps.Article,
		profile:              deps.Profile,
		settings:             deps.Settings,
		drafts:               deps.Drafts,
		index:                deps.Index,
		browser:              deps.Browser,
		favorites:            deps.Favorites,
		articleList:          newList("› articles"),
		tagList:              tagList,
		profileList:          newList("› articles"),
		commentList:          commentList,
		searchList:           searchList,
		searchInput:          si,
		commentInput:         ci,
		viewport:             viewport.New(0, 0),
		spinner:              sp,
		view:                 ViewHome,
		searchResults:        []searchResultItem{},
		searchDebounceMillis: 150,
	}

	app.keyHandler = NewKeyHandler(app, deps.Config)

	if deps.StartTag != "" {
		app.home.SetCurrentTag(deps.StartTag)
	}

	return app
}

// Subscribe forwards every store change to send, usually a tea.Program's
// Send. The returned function detaches all listeners.
func (a *App) Subscribe(send func(tea.Msg)) (unsubscribe func()) {
	notify := func() { send(storeChangedMsg{}) }
	unsubs := []func(){
		a.session.Subscribe(notify),
		a.home.Subscribe(notify),
		a.article.Subscribe(notify),
		a.profile.Subscribe(notify),
		a.settings.Subscribe(notify),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		a.startSpinner(MsgLoadingFeed),
		a.fetchHome(a.home.Query()),
		a.fetchTags(),
	}
	if a.session.Token() != "" {
		cmds = append(cmds, a.restoreSession())
	}
	return tea.Batch(cmds...)
}

func (a *App) resize(width, height int) {
	a.width = width
	a.height = height

	a.articleList.SetSize(width, height-5)
	a.tagList.SetSize(width, height-4)
	a.profileList.SetSize(width, height-8)
	a.commentList.SetSize(width, height-8)

	searchListHeight := height - 10
	if searchListHeight < 5 {
		searchListHeight = 5
	}
	a.searchList.SetSize(width, searchListHeight)

	a.viewport.Width = width
	a.viewport.Height = height - 3

	inputWidth := width - 8
	if inputWidth < 20 {
		inputWidth = width
	}
	a.commentInput.Width = inputWidth

	for _, f := range []*form{a.editor, a.settingsForm, a.auth} {
		if f != nil {
			f.setWidth(width)
		}
	}
	if a.editor != nil {
		a.editor.setBodyHeight(height - 18)
	}

	// Wrap width changed; render again on the next sync.
	a.renderedKey = ""
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		cmds = append(cmds, a.sync())

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case spinner.TickMsg:
		if !a.spinning {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case storeChangedMsg:
		return a, a.sync()

	case opDoneMsg:
		return a, a.handleOpDone(msg)

	case articleRenderedMsg:
		if msg.slug == a.readerSlug {
			offset := a.viewport.YOffset
			a.viewport.SetContent(msg.content)
			if a.loadingArticle {
				a.viewport.GotoTop()
			} else {
				a.viewport.SetYOffset(offset)
			}
			a.loadingArticle = false
		}

	case articleSavedMsg:
		return a, a.handleArticleSaved(msg)

	case articleDeletedMsg:
		return a, a.handleArticleDeleted(msg)

	case signedInMsg:
		return a, a.handleSignedIn(msg)

	case settingsSavedMsg:
		return a, a.handleSettingsSaved(msg)

	case searchDebounceFireMsg:
		if msg.seq == a.searchSeq && a.view == ViewSearch && len(a.pendingSearchQuery) > 1 {
			return a, a.performSearch(a.pendingSearchQuery)
		}
		return a, nil

	case searchResultsMsg:
		if msg.seq == a.searchSeq && a.view == ViewSearch {
			a.searchResults = msg.results
			items := make([]list.Item, len(msg.results))
			for i, result := range msg.results {
				items[i] = result
			}
			cmds = append(cmds, a.searchList.SetItems(items))
			if len(items) == 0 {
				a.setStatus(MsgNoResults, StatusInfo)
			} else {
				a.setStatus(MsgResultsCount(len(items)), StatusInfo)
			}
		}

	case errorMsg:
		a.err = msg.err
		a.setStatus(errorText(msg.err), StatusError)
	}

	if a.view == ViewReader {
		switch msg.(type) {
		case tea.WindowSizeMsg, tea.MouseMsg:
			newViewport, cmd := a.viewport.Update(msg)
			a.viewport = newViewport
			cmds = append(cmds, cmd)
		}
	}

	return a, tea.Batch(cmds...)
}

// sync copies store snapshots into the view models.
func (a *App) sync() tea.Cmd {
	var cmds []tea.Cmd

	maxDesc := a.config.UI.Article.MaxDescriptionLength

	hs := a.home.Snapshot()
	cmds = append(cmds, a.articleList.SetItems(articleItems(hs.Articles, maxDesc)))
	cmds = append(cmds, a.tagList.SetItems(tagItems(hs.Tags)))

	ps := a.profile.Snapshot()
	cmds = append(cmds, a.profileList.SetItems(articleItems(ps.Articles, maxDesc)))

	as := a.article.Snapshot()
	cmds = append(cmds, a.commentList.SetItems(commentItems(as.Comments, a.username())))

	if a.view == ViewReader || a.view == ViewComments {
		switch {
		case as.Article != nil && as.Article.Slug == a.readerSlug:
			if key := renderKey(as); key != a.renderedKey {
				a.renderedKey = key
				cmds = append(cmds, a.renderArticle(as))
			}
		case as.Status == state.Failed:
			a.loadingArticle = false
		}
	}

	if !a.session.IsAuthenticated() {
		switch a.view {
		case ViewEditor, ViewSettings:
			a.openAuth(ViewLogin)
		}
	}

	return tea.Batch(cmds...)
}

func renderKey(st state.ArticleState) string {
	art := st.Article
	first := 0
	if len(st.Comments) > 0 {
		first = st.Comments[0].ID
	}
	return fmt.Sprintf("%s|%t|%d|%d|%d|%d|%s", art.Slug, art.Favorited, art.FavoritesCount,
		len(st.Comments), first, st.CommentStatus, art.UpdatedAt)
}

func (a *App) username() string {
	if u := a.session.Snapshot().User; u != nil {
		return u.Username
	}
	return ""
}

// navigate switches to v and remembers where it came from.
func (a *App) navigate(v View) {
	if a.view == v {
		return
	}
	a.history = append(a.history, a.view)
	a.view = v
	a.err = nil
}

// back returns to the previous view. It reports false when there is none.
func (a *App) back() bool {
	if len(a.history) == 0 {
		return false
	}
	a.view = a.history[len(a.history)-1]
	a.history = a.history[:len(a.history)-1]
	a.err = nil
	return true
}

func (a *App) View() string {
	var content string
	bodyHeight := a.height - 3

	switch a.view {
	case ViewHome:
		content = a.viewHome(bodyHeight)
	case ViewTags:
		content = a.tagList.View()
	case ViewReader:
		content = a.viewReader(bodyHeight)
	case ViewComments:
		content = a.viewComments()
	case ViewProfile:
		content = a.viewProfile(bodyHeight)
	case ViewEditor:
		content = a.viewForm(a.editor, "tab: next field • "+a.keyHandler.modifierKey+"s: publish • esc: save draft & leave")
	case ViewSettings:
		content = a.viewForm(a.settingsForm, "tab: next field • "+a.keyHandler.modifierKey+"s: update • "+a.keyHandler.modifierKey+"x: log out • esc: back")
	case ViewLogin:
		content = a.viewForm(a.auth, "enter: next/submit • "+a.keyHandler.modifierKey+"r: need an account? • esc: back")
	case ViewRegister:
		content = a.viewForm(a.auth, "enter: next/submit • "+a.keyHandler.modifierKey+"r: have an account? • esc: back")
	case ViewSearch:
		content = a.viewSearch()
	case ViewDeleteConfirm:
		content = a.viewDeleteConfirm(bodyHeight)
	}

	content = contentBox(a.width, bodyHeight).Render(content)

	separatorWidth := a.width - 2
	if separatorWidth < 0 {
		separatorWidth = 0
	}
	separator := SeparatorStyle.Render("─" + strings.Repeat("─", separatorWidth))

	return lipgloss.JoinVertical(lipgloss.Top, content, separator, a.getCustomStatusBar())
}

func (a *App) homeTabs(hs state.HomeState) ([]string, int) {
	var labels []string
	var tabs []state.FeedTab
	if a.session.IsAuthenticated() {
		labels = append(labels, "Your Feed")
		tabs = append(tabs, state.TabFeed)
	}
	labels = append(labels, "Global Feed")
	tabs = append(tabs, state.TabGlobal)
	if hs.FeedTab == state.TabTag {
		labels = append(labels, "#"+hs.CurrentTag)
		tabs = append(tabs, state.TabTag)
	}

	active := 0
	for i, t := range tabs {
		if t == hs.FeedTab {
			active = i
		}
	}
	return labels, active
}

func (a *App) viewHome(height int) string {
	hs := a.home.Snapshot()
	labels, active := a.homeTabs(hs)

	header := lipgloss.JoinVertical(lipgloss.Top,
		renderTabs(labels, active),
		renderMuted(MsgPage(hs.CurrentPage, hs.PageCount(), hs.ArticlesCount)),
	)

	var body string
	switch {
	case hs.Status == state.Loading && len(hs.Articles) == 0:
		body = renderPlaceholder(a.width, height-2, MsgLoadingFeed)
	case hs.Status == state.Failed:
		body = renderFailure(a.width, height-2, hs.Err)
	case len(hs.Articles) == 0:
		body = renderCentered(a.width, height-2, emptyFeedBanner())
	default:
		body = a.articleList.View()
	}
	return lipgloss.JoinVertical(lipgloss.Top, header, body)
}

func (a *App) viewReader(height int) string {
	as := a.article.Snapshot()
	switch {
	case as.Status == state.Failed && (as.Article == nil || as.Article.Slug != a.readerSlug):
		return renderFailure(a.width, height, as.Err)
	case a.loadingArticle:
		return renderPlaceholder(a.width, height, MsgLoadingArticle)
	default:
		return a.viewport.View()
	}
}

func (a *App) viewComments() string {
	as := a.article.Snapshot()
	title := "comments"
	if as.Article != nil {
		title = "comments on " + as.Article.Title
	}

	rows := []string{renderHeader("› "+title, "", a.width)}
	if a.session.IsAuthenticated() {
		rows = append(rows, renderInputFrame(a.commentInput.View(), a.commentInput.Focused(), a.commentInput.Width))
	} else {
		rows = append(rows, renderHelp("Sign in to add comments"), "")
	}

	switch as.CommentStatus {
	case state.Loading:
		if len(as.Comments) == 0 {
			rows = append(rows, renderMuted("Loading comments…"))
		}
	case state.Failed:
		rows = append(rows, ErrorMessageStyle.Render(errorText(as.Err)))
	}
	rows = append(rows, a.commentList.View())
	return lipgloss.JoinVertical(lipgloss.Top, rows...)
}

func (a *App) viewProfile(height int) string {
	ps := a.profile.Snapshot()
	if ps.Profile == nil {
		if ps.Status == state.Failed {
			return renderFailure(a.width, height, ps.Err)
		}
		return renderPlaceholder(a.width, height, MsgLoadingProfile)
	}

	p := ps.Profile
	subtitle := p.Bio
	switch {
	case p.Username == a.username():
		subtitle = strings.TrimSpace(subtitle + "  [u: edit profile settings]")
	case p.Following:
		subtitle = strings.TrimSpace(subtitle + "  [u: unfollow]")
	default:
		subtitle = strings.TrimSpace(subtitle + "  [u: follow]")
	}

	active := 0
	if ps.ActiveTab == state.TabFavorited {
		active = 1
	}

	rows := []string{
		renderHeader("› "+p.Username, subtitle, a.width),
	}
	if p.Image != "" {
		rows = append(rows, renderMuted(truncateMiddle(p.Image, a.width-4)))
	}
	rows = append(rows,
		"",
		renderTabs([]string{"My Articles", "Favorited Articles"}, active),
		renderMuted(MsgPage(ps.CurrentPage, ps.PageCount(), ps.ArticlesCount)),
	)
	switch {
	case ps.ArticlesStatus == state.Failed:
		rows = append(rows, ErrorMessageStyle.Render(errorText(ps.Err)))
	case ps.ArticlesStatus != state.Loading && len(ps.Articles) == 0:
		rows = append(rows, renderMuted("No articles are here... yet."))
	default:
		rows = append(rows, a.profileList.View())
	}
	return lipgloss.JoinVertical(lipgloss.Top, rows...)
}

func (a *App) viewForm(f *form, help string) string {
	if f == nil {
		return ""
	}
	formWidth := a.width - 4
	if formWidth < 20 {
		formWidth = a.width
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, f.view(formWidth), "", renderHelp(help)),
	)
}

func (a *App) viewSearch() string {
	searchInputWidth := a.width - 8
	if searchInputWidth < 10 {
		searchInputWidth = a.width - 4
	}
	a.searchInput.Width = searchInputWidth

	searchHeader := "› search"
	if a.inArticleSearch() {
		if art := a.article.Snapshot().Article; art != nil {
			searchHeader = truncateEnd("› search in article: "+art.Title, a.width-2)
		}
	}

	var helpText string
	switch {
	case a.searchInput.Focused():
		helpText = "Type to search • Tab/↓: results • Esc: back"
	case len(a.searchList.Items()) > 0:
		helpText = "↑↓: navigate • Enter: select • Tab/↑: search box • Esc: back"
	default:
		helpText = "No results found • Tab/↑: search box • Esc: back"
	}

	return lipgloss.JoinVertical(
		lipgloss.Top,
		HeaderStyle.Render(searchHeader),
		"",
		renderInputFrame(a.searchInput.View(), a.searchInput.Focused(), searchInputWidth),
		renderMuted(helpText),
		"",
		a.searchList.View(),
	)
}

func (a *App) viewDeleteConfirm(height int) string {
	title := "this article"
	if art := a.article.Snapshot().Article; art != nil {
		title = art.Title
	}

	modalWidth := (a.width * 4) / 5
	if modalWidth < 20 {
		modalWidth = a.width - 4
		if modalWidth < 15 {
			modalWidth = a.width
		}
	}
	title = truncateEnd(title, modalWidth-4)

	return renderCentered(a.width, height,
		lipgloss.JoinVertical(
			lipgloss.Center,
			ErrorMessageStyle.Render("⚠ Delete Article"),
			"",
			ModalTextStyle.Width(modalWidth).Align(lipgloss.Center).Render("Delete this article?"),
			"",
			ModalStressStyle.Width(modalWidth).Align(lipgloss.Center).Render(title),
			"",
			renderMuted("Comments and favorites go with it."),
			"",
			renderHelp("Enter: confirm • Esc: cancel"),
		),
	)
}

func (a *App) getCustomStatusBar() string {
	left := a.renderStatus()
	if a.status == "" {
		commands := a.keyHandler.GetHelpForCurrentView()
		left = renderMuted(strings.Join(commands, " • "))
	}

	right := CompactLogo
	if user := a.username(); user != "" {
		right = user + " • " + right
	}

	gap := a.width - 2 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return StatusBarStyleWithPadding().Width(a.width).Render(left)
	}
	return StatusBarStyleWithPadding().Width(a.width).
		Render(left + strings.Repeat(" ", gap) + renderMuted(right))
}

// StatusBarStyleWithPadding returns the status bar style.
func StatusBarStyleWithPadding() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(MutedColor).Padding(0, 1)
}
