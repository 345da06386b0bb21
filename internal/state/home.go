package state

import (
	"context"
	"sync"

	"github.com/pders01/blogify/internal/api"
	"github.com/pders01/blogify/internal/debuglog"
)

const DefaultArticlesPerPage = 10

type FeedClient interface {
	ListArticles(ctx context.Context, q api.ListQuery) (*api.ArticleList, error)
	FeedArticles(ctx context.Context, limit, offset int) (*api.ArticleList, error)
	Tags(ctx context.Context) ([]string, error)
}

type FeedTab string

const (
	TabGlobal FeedTab = "global"
	TabFeed   FeedTab = "feed"
	TabTag    FeedTab = "tag"
)

// FeedQuery is the home view's fetch parameters after a state change.
// Views forward it to GetGlobalArticles or GetFeedArticles.
type FeedQuery struct {
	Tab    FeedTab
	Tag    string
	Page   int
	Limit  int
	Offset int
}

type HomeState struct {
	Articles        []api.Article
	ArticlesCount   int
	Tags            []string
	Status          Status
	TagsStatus      Status
	Err             *Error
	FeedTab         FeedTab
	CurrentTag      string
	CurrentPage     int
	ArticlesPerPage int
}

// PageCount is the number of pages ArticlesCount spans.
func (s HomeState) PageCount() int {
	return pageCount(s.ArticlesCount, s.ArticlesPerPage)
}

func pageCount(total, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

type HomeStore struct {
	client  FeedClient
	perPage int

	mu           sync.Mutex
	seq          sequencer
	articles     []api.Article
	count        int
	tags         []string
	articlesSlot slot
	tagsSlot     slot
	articlesAxis axis
	tagsAxis     axis
	err          *Error
	tab          FeedTab
	tag          string
	page         int

	listeners listeners
	log       *debuglog.FieldLogger
}

// NewHomeStore returns a store on the global tab. perPage <= 0 means
// DefaultArticlesPerPage.
func NewHomeStore(client FeedClient, perPage int) *HomeStore {
	if perPage <= 0 {
		perPage = DefaultArticlesPerPage
	}
	return &HomeStore{
		client:  client,
		perPage: perPage,
		tab:     TabGlobal,
		log:     debuglog.WithFields(map[string]interface{}{"store": "home"}),
	}
}

func (s *HomeStore) Snapshot() HomeState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := HomeState{
		ArticlesCount:   s.count,
		Status:          s.articlesAxis.status,
		TagsStatus:      s.tagsAxis.status,
		Err:             s.err,
		FeedTab:         s.tab,
		CurrentTag:      s.tag,
		CurrentPage:     s.page,
		ArticlesPerPage: s.perPage,
	}
	st.Articles = cloneArticles(s.articles)
	if s.tags != nil {
		st.Tags = append([]string(nil), s.tags...)
	}
	return st
}

func (s *HomeStore) Subscribe(fn func()) (unsubscribe func()) {
	return s.listeners.add(fn)
}

// query builds the current FeedQuery. Called with s.mu held.
func (s *HomeStore) query() FeedQuery {
	return FeedQuery{
		Tab:    s.tab,
		Tag:    s.tag,
		Page:   s.page,
		Limit:  s.perPage,
		Offset: s.page * s.perPage,
	}
}

func (s *HomeStore) Query() FeedQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query()
}

func (s *HomeStore) transition(fn func()) FeedQuery {
	s.mu.Lock()
	fn()
	q := s.query()
	s.mu.Unlock()
	s.listeners.notify()
	return q
}

// SetFeedTab switches tabs and goes back to the first page. Leaving the tag
// tab drops the current tag.
func (s *HomeStore) SetFeedTab(tab FeedTab) FeedQuery {
	return s.transition(func() {
		s.tab = tab
		if tab != TabTag {
			s.tag = ""
		}
		s.page = 0
	})
}

// SetCurrentTag selects the tag tab filtered by tag, on the first page.
func (s *HomeStore) SetCurrentTag(tag string) FeedQuery {
	return s.transition(func() {
		s.tab = TabTag
		s.tag = tag
		s.page = 0
	})
}

func (s *HomeStore) SetCurrentPage(page int) FeedQuery {
	if page < 0 {
		page = 0
	}
	return s.transition(func() {
		s.page = page
	})
}

func (s *HomeStore) begin(a *axis) uint64 {
	s.mu.Lock()
	seq := s.seq.dispatch()
	a.begin(seq)
	s.err = nil
	s.mu.Unlock()
	s.listeners.notify()
	return seq
}

func (s *HomeStore) fail(a *axis, seq uint64, err error, fallback string) *Error {
	e := FromErr(err, fallback)
	s.mu.Lock()
	if a.finish(seq, Failed) {
		s.err = e
	}
	s.mu.Unlock()
	s.log.Warnf("%s: %v", fallback, err)
	s.listeners.notify()
	return e
}

func (s *HomeStore) setArticles(seq uint64, list *api.ArticleList) {
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
}

// GetGlobalArticles loads one page of all articles, optionally filtered by tag.
func (s *HomeStore) GetGlobalArticles(ctx context.Context, limit, offset int, tag string) (*api.ArticleList, error) {
	seq := s.begin(&s.articlesAxis)
	list, err := s.client.ListArticles(ctx, api.ListQuery{Limit: limit, Offset: offset, Tag: tag})
	if err != nil {
		return nil, s.fail(&s.articlesAxis, seq, err, "Failed to get articles")
	}
	s.setArticles(seq, list)
	return list, nil
}

// GetFeedArticles loads one page of articles by followed authors.
func (s *HomeStore) GetFeedArticles(ctx context.Context, limit, offset int) (*api.ArticleList, error) {
	seq := s.begin(&s.articlesAxis)
	list, err := s.client.FeedArticles(ctx, limit, offset)
	if err != nil {
		return nil, s.fail(&s.articlesAxis, seq, err, "Failed to get feed")
	}
	s.setArticles(seq, list)
	return list, nil
}

func (s *HomeStore) GetTags(ctx context.Context) ([]string, error) {
	seq := s.begin(&s.tagsAxis)
	tags, err := s.client.Tags(ctx)
	if err != nil {
		return nil, s.fail(&s.tagsAxis, seq, err, "Failed to get tags")
	}

	s.mu.Lock()
	if s.tagsSlot.replace(seq) {
		s.tags = append([]string{}, tags...)
	}
	s.tagsAxis.finish(seq, Succeeded)
	s.mu.Unlock()
	s.listeners.notify()
	return tags, nil
}

func cloneArticles(in []api.Article) []api.Article {
	if in == nil {
		return nil
	}
	out := make([]api.Article, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}
