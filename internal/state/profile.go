package state

import (
	"context"
	"sync"

	"github.com/pders01/blogify/internal/api"
	"github.com/pders01/blogify/internal/debuglog"
)

type ProfileClient interface {
	GetProfile(ctx context.Context, username string) (*api.Profile, error)
	FollowUser(ctx context.Context, username string) (*api.Profile, error)
	UnfollowUser(ctx context.Context, username string) (*api.Profile, error)
	ListArticles(ctx context.Context, q api.ListQuery) (*api.ArticleList, error)
}

type ProfileTab string

const (
	TabArticles  ProfileTab = "articles"
	TabFavorited ProfileTab = "favorited"
)

// ProfileQuery is the profile view's fetch parameters after a state change.
type ProfileQuery struct {
	Tab    ProfileTab
	Page   int
	Limit  int
	Offset int
}

type ProfileState struct {
	Profile         *api.Profile
	Articles        []api.Article
	ArticlesCount   int
	Status          Status
	ArticlesStatus  Status
	Err             *Error
	ActiveTab       ProfileTab
	CurrentPage     int
	ArticlesPerPage int
}

func (s ProfileState) PageCount() int {
	return pageCount(s.ArticlesCount, s.ArticlesPerPage)
}

// ProfileStore holds one viewed profile and a page of either the articles
// it authored or the ones it favorited. Both lists share one slot and one
// status axis.
type ProfileStore struct {
	client  ProfileClient
	perPage int

	mu           sync.Mutex
	seq          sequencer
	profile      *api.Profile
	articles     []api.Article
	count        int
	profileSlot  slot
	articlesSlot slot
	profileAxis  axis
	articlesAxis axis
	err          *Error
	tab          ProfileTab
	page         int

	listeners listeners
	log       *debuglog.FieldLogger
}

func NewProfileStore(client ProfileClient, perPage int) *ProfileStore {
	if perPage <= 0 {
		perPage = DefaultArticlesPerPage
	}
	return &ProfileStore{
		client:  client,
		perPage: perPage,
		tab:     TabArticles,
		log:     debuglog.WithFields(map[string]interface{}{"store": "profile"}),
	}
}

func (s *ProfileStore) Snapshot() ProfileState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := ProfileState{
		ArticlesCount:   s.count,
		Status:          s.profileAxis.status,
		ArticlesStatus:  s.articlesAxis.status,
		Err:             s.err,
		ActiveTab:       s.tab,
		CurrentPage:     s.page,
		ArticlesPerPage: s.perPage,
		Articles:        cloneArticles(s.articles),
	}
	if s.profile != nil {
		p := *s.profile
		st.Profile = &p
	}
	return st
}

func (s *ProfileStore) Subscribe(fn func()) (unsubscribe func()) {
	return s.listeners.add(fn)
}

func (s *ProfileStore) query() ProfileQuery {
	return ProfileQuery{
		Tab:    s.tab,
		Page:   s.page,
		Limit:  s.perPage,
		Offset: s.page * s.perPage,
	}
}

func (s *ProfileStore) Query() ProfileQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query()
}

// SetActiveTab switches between authored and favorited articles and goes
// back to the first page.
func (s *ProfileStore) SetActiveTab(tab ProfileTab) ProfileQuery {
	s.mu.Lock()
	s.tab = tab
	s.page = 0
	q := s.query()
	s.mu.Unlock()
	s.listeners.notify()
	return q
}

func (s *ProfileStore) SetCurrentPage(page int) ProfileQuery {
	if page < 0 {
		page = 0
	}
	s.mu.Lock()
	s.page = page
	q := s.query()
	s.mu.Unlock()
	s.listeners.notify()
	return q
}

func (s *ProfileStore) begin(a *axis) uint64 {
	s.mu.Lock()
	seq := s.seq.dispatch()
	a.begin(seq)
	s.err = nil
	s.mu.Unlock()
	s.listeners.notify()
	return seq
}

func (s *ProfileStore) fail(a *axis, seq uint64, err error, fallback string) *Error {
	e := FromErr(err, fallback)
	s.mu.Lock()
	if a != nil {
		if a.finish(seq, Failed) {
			s.err = e
		}
	} else if s.seq.live(seq) {
		s.err = e
	}
	s.mu.Unlock()
	s.log.Warnf("%s: %v", fallback, err)
	s.listeners.notify()
	return e
}

func (s *ProfileStore) setProfile(a *axis, seq uint64, profile *api.Profile) {
	s.mu.Lock()
	if s.profileSlot.replace(seq) {
		s.profile = profile
	} else {
		s.log.Debugf("discarding stale profile response (seq %d)", seq)
	}
	if a != nil {
		a.finish(seq, Succeeded)
	}
	s.mu.Unlock()
	s.listeners.notify()
}

func (s *ProfileStore) GetProfile(ctx context.Context, username string) (*api.Profile, error) {
	seq := s.begin(&s.profileAxis)
	profile, err := s.client.GetProfile(ctx, username)
	if err != nil {
		return nil, s.fail(&s.profileAxis, seq, err, "Failed to get profile")
	}
	s.setProfile(&s.profileAxis, seq, profile)
	return profile, nil
}

func (s *ProfileStore) FollowUser(ctx context.Context, username string) (*api.Profile, error) {
	s.mu.Lock()
	seq := s.seq.dispatch()
	s.mu.Unlock()

	profile, err := s.client.FollowUser(ctx, username)
	if err != nil {
		return nil, s.fail(nil, seq, err, "Failed to follow user")
	}
	s.setProfile(nil, seq, profile)
	return profile, nil
}

func (s *ProfileStore) UnfollowUser(ctx context.Context, username string) (*api.Profile, error) {
	s.mu.Lock()
	seq := s.seq.dispatch()
	s.mu.Unlock()

	profile, err := s.client.UnfollowUser(ctx, username)
	if err != nil {
		return nil, s.fail(nil, seq, err, "Failed to unfollow user")
	}
	s.setProfile(nil, seq, profile)
	return profile, nil
}

func (s *ProfileStore) loadArticles(ctx context.Context, q api.ListQuery, fallback string) (*api.ArticleList, error) {
	seq := s.begin(&s.articlesAxis)
	list, err := s.client.ListArticles(ctx, q)
	if err != nil {
		return nil, s.fail(&s.articlesAxis, seq, err, fallback)
	}

	s.mu.Lock()
	if s.articlesSlot.replace(seq) {
		s.articles = cloneArticles(list.Articles)
		if s.articles == nil {
			s.articles = []api.Article{}
		}
		s.count = list.ArticlesCount
	} else {
		s.log.Debugf("discarding stale articles response (seq %d)", seq)
	}
	s.articlesAxis.finish(seq, Succeeded)
	s.mu.Unlock()
	s.listeners.notify()
	return list, nil
}

// GetProfileArticles loads articles authored by username.
func (s *ProfileStore) GetProfileArticles(ctx context.Context, username string, limit, offset int) (*api.ArticleList, error) {
	return s.loadArticles(ctx, api.ListQuery{Limit: limit, Offset: offset, Author: username}, "Failed to get articles")
}

// GetFavoritedArticles loads articles favorited by username.
func (s *ProfileStore) GetFavoritedArticles(ctx context.Context, username string, limit, offset int) (*api.ArticleList, error) {
	return s.loadArticles(ctx, api.ListQuery{Limit: limit, Offset: offset, Favorited: username}, "Failed to get favorited articles")
}

// ResetProfileState clears the profile and its articles. The active tab and
// page are kept. Requests still in flight can no longer write into it.
func (s *ProfileStore) ResetProfileState() {
	s.mu.Lock()
	seq := s.seq.reset()
	s.profile = nil
	s.articles = nil
	s.count = 0
	s.profileSlot = slot(seq)
	s.articlesSlot = slot(seq)
	s.profileAxis.reset(seq)
	s.articlesAxis.reset(seq)
	s.err = nil
	s.mu.Unlock()
	s.listeners.notify()
}
