package state

import (
	"context"
	"errors"
	"sync"

	"github.com/pders01/blogify/internal/api"
	"github.com/pders01/blogify/internal/storage"
)

var errNotStubbed = errors.New("not stubbed")

// fakeAPI implements every client interface the stores use. Unset hooks
// fail with errNotStubbed.
type fakeAPI struct {
	login         func(ctx context.Context, email, password string) (*api.User, error)
	register      func(ctx context.Context, username, email, password string) (*api.User, error)
	currentUser   func(ctx context.Context) (*api.User, error)
	updateUser    func(ctx context.Context, update api.UserUpdate) (*api.User, error)
	getArticle    func(ctx context.Context, slug string) (*api.Article, error)
	createArticle func(ctx context.Context, draft api.ArticleDraft) (*api.Article, error)
	updateArticle func(ctx context.Context, slug string, draft api.ArticleDraft) (*api.Article, error)
	deleteArticle func(ctx context.Context, slug string) error
	favorite      func(ctx context.Context, slug string) (*api.Article, error)
	unfavorite    func(ctx context.Context, slug string) (*api.Article, error)
	comments      func(ctx context.Context, slug string) ([]api.Comment, error)
	addComment    func(ctx context.Context, slug, body string) (*api.Comment, error)
	deleteComment func(ctx context.Context, slug string, id int) error
	listArticles  func(ctx context.Context, q api.ListQuery) (*api.ArticleList, error)
	feedArticles  func(ctx context.Context, limit, offset int) (*api.ArticleList, error)
	tags          func(ctx context.Context) ([]string, error)
	getProfile    func(ctx context.Context, username string) (*api.Profile, error)
	follow        func(ctx context.Context, username string) (*api.Profile, error)
	unfollow      func(ctx context.Context, username string) (*api.Profile, error)
}

func (f *fakeAPI) Login(ctx context.Context, email, password string) (*api.User, error) {
	if f.login == nil {
		return nil, errNotStubbed
	}
	return f.login(ctx, email, password)
}

func (f *fakeAPI) Register(ctx context.Context, username, email, password string) (*api.User, error) {
	if f.register == nil {
		return nil, errNotStubbed
	}
	return f.register(ctx, username, email, password)
}

func (f *fakeAPI) CurrentUser(ctx context.Context) (*api.User, error) {
	if f.currentUser == nil {
		return nil, errNotStubbed
	}
	return f.currentUser(ctx)
}

func (f *fakeAPI) UpdateUser(ctx context.Context, update api.UserUpdate) (*api.User, error) {
	if f.updateUser == nil {
		return nil, errNotStubbed
	}
	return f.updateUser(ctx, update)
}

func (f *fakeAPI) GetArticle(ctx context.Context, slug string) (*api.Article, error) {
	if f.getArticle == nil {
		return nil, errNotStubbed
	}
	return f.getArticle(ctx, slug)
}

func (f *fakeAPI) CreateArticle(ctx context.Context, draft api.ArticleDraft) (*api.Article, error) {
	if f.createArticle == nil {
		return nil, errNotStubbed
	}
	return f.createArticle(ctx, draft)
}

func (f *fakeAPI) UpdateArticle(ctx context.Context, slug string, draft api.ArticleDraft) (*api.Article, error) {
	if f.updateArticle == nil {
		return nil, errNotStubbed
	}
	return f.updateArticle(ctx, slug, draft)
}

func (f *fakeAPI) DeleteArticle(ctx context.Context, slug string) error {
	if f.deleteArticle == nil {
		return errNotStubbed
	}
	return f.deleteArticle(ctx, slug)
}

func (f *fakeAPI) FavoriteArticle(ctx context.Context, slug string) (*api.Article, error) {
	if f.favorite == nil {
		return nil, errNotStubbed
	}
	return f.favorite(ctx, slug)
}

func (f *fakeAPI) UnfavoriteArticle(ctx context.Context, slug string) (*api.Article, error) {
	if f.unfavorite == nil {
		return nil, errNotStubbed
	}
	return f.unfavorite(ctx, slug)
}

func (f *fakeAPI) Comments(ctx context.Context, slug string) ([]api.Comment, error) {
	if f.comments == nil {
		return nil, errNotStubbed
	}
	return f.comments(ctx, slug)
}

func (f *fakeAPI) AddComment(ctx context.Context, slug, body string) (*api.Comment, error) {
	if f.addComment == nil {
		return nil, errNotStubbed
	}
	return f.addComment(ctx, slug, body)
}

func (f *fakeAPI) DeleteComment(ctx context.Context, slug string, id int) error {
	if f.deleteComment == nil {
		return errNotStubbed
	}
	return f.deleteComment(ctx, slug, id)
}

func (f *fakeAPI) ListArticles(ctx context.Context, q api.ListQuery) (*api.ArticleList, error) {
	if f.listArticles == nil {
		return nil, errNotStubbed
	}
	return f.listArticles(ctx, q)
}

func (f *fakeAPI) FeedArticles(ctx context.Context, limit, offset int) (*api.ArticleList, error) {
	if f.feedArticles == nil {
		return nil, errNotStubbed
	}
	return f.feedArticles(ctx, limit, offset)
}

func (f *fakeAPI) Tags(ctx context.Context) ([]string, error) {
	if f.tags == nil {
		return nil, errNotStubbed
	}
	return f.tags(ctx)
}

func (f *fakeAPI) GetProfile(ctx context.Context, username string) (*api.Profile, error) {
	if f.getProfile == nil {
		return nil, errNotStubbed
	}
	return f.getProfile(ctx, username)
}

func (f *fakeAPI) FollowUser(ctx context.Context, username string) (*api.Profile, error) {
	if f.follow == nil {
		return nil, errNotStubbed
	}
	return f.follow(ctx, username)
}

func (f *fakeAPI) UnfollowUser(ctx context.Context, username string) (*api.Profile, error) {
	if f.unfollow == nil {
		return nil, errNotStubbed
	}
	return f.unfollow(ctx, username)
}

// memCredentials is an in-memory CredentialStore.
type memCredentials struct {
	mu     sync.Mutex
	token  string
	user   *api.User
	saves  int
	clears int
}

func (m *memCredentials) LoadCredentials() (*storage.Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" || m.user == nil {
		return nil, nil
	}
	return &storage.Credentials{Token: m.token, User: *m.user}, nil
}

func (m *memCredentials) SaveCredentials(token string, user api.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.user = &user
	m.saves++
	return nil
}

func (m *memCredentials) ClearCredentials() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.user = nil
	m.clears++
	return nil
}

func (m *memCredentials) stored() (string, *api.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.user
}

// gate lets a test hold a fake response until it calls release.
type gate struct {
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gate) wait() {
	close(g.entered)
	<-g.release
}

func fieldErr(status int, fields map[string][]string) error {
	return &api.Error{Status: status, Fields: fields}
}
