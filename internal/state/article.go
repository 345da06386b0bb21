package state

import (
	"context"
	"sync"

	"github.com/pders01/blogify/internal/api"
	"github.com/pders01/blogify/internal/debuglog"
)

type ArticleClient interface {
	GetArticle(ctx context.Context, slug string) (*api.Article, error)
	CreateArticle(ctx context.Context, draft api.ArticleDraft) (*api.Article, error)
	UpdateArticle(ctx context.Context, slug string, draft api.ArticleDraft) (*api.Article, error)
	DeleteArticle(ctx context.Context, slug string) error
	FavoriteArticle(ctx context.Context, slug string) (*api.Article, error)
	UnfavoriteArticle(ctx context.Context, slug string) (*api.Article, error)
	Comments(ctx context.Context, slug string) ([]api.Comment, error)
	AddComment(ctx context.Context, slug, body string) (*api.Comment, error)
	DeleteComment(ctx context.Context, slug string, id int) error
}

type ArticleState struct {
	Article       *api.Article
	Comments      []api.Comment
	Status        Status
	CommentStatus Status
	Err           *Error
}

// ArticleStore holds the article being viewed and its comments. Article and
// comment requests run on separate status axes.
type ArticleStore struct {
	client ArticleClient

	mu           sync.Mutex
	seq          sequencer
	article      *api.Article
	comments     []api.Comment
	articleSlot  slot
	commentsSlot slot
	articleAxis  axis
	commentAxis  axis
	err          *Error

	listeners listeners
	log       *debuglog.FieldLogger
}

func NewArticleStore(client ArticleClient) *ArticleStore {
	return &ArticleStore{
		client: client,
		log:    debuglog.WithFields(map[string]interface{}{"store": "article"}),
	}
}

func (s *ArticleStore) Snapshot() ArticleState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := ArticleState{
		Status:        s.articleAxis.status,
		CommentStatus: s.commentAxis.status,
		Err:           s.err,
	}
	if s.article != nil {
		a := s.article.Clone()
		st.Article = &a
	}
	if s.comments != nil {
		st.Comments = append([]api.Comment(nil), s.comments...)
	}
	return st
}

func (s *ArticleStore) Subscribe(fn func()) (unsubscribe func()) {
	return s.listeners.add(fn)
}

func (s *ArticleStore) begin(a *axis) uint64 {
	s.mu.Lock()
	seq := s.seq.dispatch()
	a.begin(seq)
	s.err = nil
	s.mu.Unlock()
	s.listeners.notify()
	return seq
}

func (s *ArticleStore) dispatch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq.dispatch()
}

// fail records err. With a nil axis the operation has no lifecycle of its
// own and only sets the error, unless the store was reset meanwhile.
func (s *ArticleStore) fail(a *axis, seq uint64, err error, fallback string) *Error {
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

// setArticle applies a wholesale article write from request seq and settles
// the article axis when a is non-nil.
func (s *ArticleStore) setArticle(a *axis, seq uint64, article *api.Article) {
	s.mu.Lock()
	if s.articleSlot.replace(seq) {
		s.article = article
	} else {
		s.log.Debugf("discarding stale article response (seq %d)", seq)
	}
	if a != nil {
		a.finish(seq, Succeeded)
	}
	s.mu.Unlock()
	s.listeners.notify()
}

func (s *ArticleStore) GetArticle(ctx context.Context, slug string) (*api.Article, error) {
	seq := s.begin(&s.articleAxis)
	article, err := s.client.GetArticle(ctx, slug)
	if err != nil {
		return nil, s.fail(&s.articleAxis, seq, err, "Failed to get article")
	}
	s.setArticle(&s.articleAxis, seq, article)
	return article, nil
}

func (s *ArticleStore) CreateArticle(ctx context.Context, draft api.ArticleDraft) (*api.Article, error) {
	seq := s.begin(&s.articleAxis)
	article, err := s.client.CreateArticle(ctx, draft)
	if err != nil {
		return nil, s.fail(&s.articleAxis, seq, err, "Failed to create article")
	}
	s.setArticle(&s.articleAxis, seq, article)
	return article, nil
}

// UpdateArticle returns the server's article, whose slug differs from slug
// when the title changed.
func (s *ArticleStore) UpdateArticle(ctx context.Context, slug string, draft api.ArticleDraft) (*api.Article, error) {
	seq := s.begin(&s.articleAxis)
	article, err := s.client.UpdateArticle(ctx, slug, draft)
	if err != nil {
		return nil, s.fail(&s.articleAxis, seq, err, "Failed to update article")
	}
	s.setArticle(&s.articleAxis, seq, article)
	return article, nil
}

// DeleteArticle empties the held article on success. Navigation is up to
// the caller.
func (s *ArticleStore) DeleteArticle(ctx context.Context, slug string) error {
	seq := s.begin(&s.articleAxis)
	if err := s.client.DeleteArticle(ctx, slug); err != nil {
		return s.fail(&s.articleAxis, seq, err, "Failed to delete article")
	}
	// A deleted article stays gone, whatever responses for it arrived first.
	s.mu.Lock()
	if s.seq.live(seq) {
		s.articleSlot.touch(seq)
		s.article = nil
	}
	s.articleAxis.finish(seq, Succeeded)
	s.mu.Unlock()
	s.listeners.notify()
	return nil
}

// FavoriteArticle replaces the held article with the response, so the
// favorited flag and count always change together.
func (s *ArticleStore) FavoriteArticle(ctx context.Context, slug string) (*api.Article, error) {
	seq := s.dispatch()
	article, err := s.client.FavoriteArticle(ctx, slug)
	if err != nil {
		return nil, s.fail(nil, seq, err, "Failed to favorite article")
	}
	s.setArticle(nil, seq, article)
	return article, nil
}

func (s *ArticleStore) UnfavoriteArticle(ctx context.Context, slug string) (*api.Article, error) {
	seq := s.dispatch()
	article, err := s.client.UnfavoriteArticle(ctx, slug)
	if err != nil {
		return nil, s.fail(nil, seq, err, "Failed to unfavorite article")
	}
	s.setArticle(nil, seq, article)
	return article, nil
}

func (s *ArticleStore) GetComments(ctx context.Context, slug string) ([]api.Comment, error) {
	seq := s.begin(&s.commentAxis)
	comments, err := s.client.Comments(ctx, slug)
	if err != nil {
		return nil, s.fail(&s.commentAxis, seq, err, "Failed to get comments")
	}
	if comments == nil {
		comments = []api.Comment{}
	}

	s.mu.Lock()
	if s.commentsSlot.replace(seq) {
		s.comments = append([]api.Comment(nil), comments...)
	} else {
		s.log.Debugf("discarding stale comments response (seq %d)", seq)
	}
	s.commentAxis.finish(seq, Succeeded)
	s.mu.Unlock()
	s.listeners.notify()
	return comments, nil
}

// AddComment puts the server's comment at the front of the held list.
func (s *ArticleStore) AddComment(ctx context.Context, slug, body string) (*api.Comment, error) {
	seq := s.begin(&s.commentAxis)
	comment, err := s.client.AddComment(ctx, slug, body)
	if err != nil {
		return nil, s.fail(&s.commentAxis, seq, err, "Failed to add comment")
	}

	s.mu.Lock()
	if s.seq.live(seq) {
		s.commentsSlot.touch(seq)
		comments := make([]api.Comment, 0, len(s.comments)+1)
		comments = append(comments, *comment)
		s.comments = append(comments, s.comments...)
	}
	s.commentAxis.finish(seq, Succeeded)
	s.mu.Unlock()
	s.listeners.notify()
	return comment, nil
}

// DeleteComment always asks the server, then drops id from the held list.
// An id that is not held leaves the list unchanged.
func (s *ArticleStore) DeleteComment(ctx context.Context, slug string, id int) error {
	seq := s.dispatch()
	if err := s.client.DeleteComment(ctx, slug, id); err != nil {
		return s.fail(nil, seq, err, "Failed to delete comment")
	}

	s.mu.Lock()
	if s.seq.live(seq) {
		s.commentsSlot.touch(seq)
		kept := s.comments[:0:0]
		for _, c := range s.comments {
			if c.ID != id {
				kept = append(kept, c)
			}
		}
		if s.comments != nil {
			s.comments = kept
		}
	}
	s.mu.Unlock()
	s.listeners.notify()
	return nil
}

// ResetArticleState returns the store to its initial state. Requests still
// in flight can no longer write into it.
func (s *ArticleStore) ResetArticleState() {
	s.mu.Lock()
	seq := s.seq.reset()
	s.article = nil
	s.comments = nil
	s.articleSlot = slot(seq)
	s.commentsSlot = slot(seq)
	s.articleAxis.reset(seq)
	s.commentAxis.reset(seq)
	s.err = nil
	s.mu.Unlock()
	s.listeners.notify()
}
