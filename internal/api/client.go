package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid"

	"github.com/pders01/blogify/internal/config"
	"github.com/pders01/blogify/internal/debuglog"
)

const (
	defaultUserAgent  = "blogify/1.0 (https://github.com/pders01/blogify)"
	defaultTimeout    = 30 * time.Second
	defaultAuthScheme = "Token"

	maxErrorBody = 64 << 10
)

// TokenSource supplies the credential attached to every request. An empty
// token sends no Authorization header.
type TokenSource interface {
	Token() string
}

type Client struct {
	baseURL    string
	userAgent  string
	authScheme string
	client     *http.Client

	mu             sync.RWMutex
	tokens         TokenSource
	onUnauthorized func()

	entropyMu sync.Mutex
	entropy   io.Reader

	log *debuglog.FieldLogger
}

func NewClient(cfg *config.Config) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.API.BaseURL, "/"),
		userAgent:  cfg.API.UserAgent,
		authScheme: cfg.API.AuthScheme,
		client: &http.Client{
			Timeout: cfg.API.Timeout,
		},
		entropy: ulid.Monotonic(rand.Reader, 0),
		log:     debuglog.WithFields(map[string]interface{}{"component": "api"}),
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	if c.authScheme == "" {
		c.authScheme = defaultAuthScheme
	}
	if c.client.Timeout <= 0 {
		c.client.Timeout = defaultTimeout
	}
	return c
}

// SetTokenSource sets where request credentials come from.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	c.tokens = ts
	c.mu.Unlock()
}

// OnUnauthorized registers fn to run after any 401 response.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

// BaseURL returns the API root requests are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) requestID() string {
	c.entropyMu.Lock()
	defer c.entropyMu.Unlock()
	return ulid.MustNew(ulid.Now(), c.entropy).String()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	reqID := c.requestID()
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.RLock()
	tokens := c.tokens
	c.mu.RUnlock()
	if tokens != nil {
		if token := tokens.Token(); token != "" {
			req.Header.Set("Authorization", c.authScheme+" "+token)
		}
	}

	log := c.log.With("request_id", reqID)
	log.Debugf("%s %s", method, path)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Warnf("%s %s failed: %v", method, path, err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &Error{
			Status: resp.StatusCode,
			Fields: decodeFieldErrors(raw),
			Body:   string(raw),
		}
		log.Warnf("%s %s: %v", method, path, apiErr)

		if resp.StatusCode == http.StatusUnauthorized {
			c.mu.RLock()
			hook := c.onUnauthorized
			c.mu.RUnlock()
			if hook != nil {
				hook()
			}
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return nil
}

func escape(segment string) string {
	return url.PathEscape(segment)
}

// Users

func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	in := map[string]any{"user": map[string]string{"email": email, "password": password}}
	var out userEnvelope
	if err := c.do(ctx, http.MethodPost, "/users/login", nil, in, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) Register(ctx context.Context, username, email, password string) (*User, error) {
	in := map[string]any{"user": map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}}
	var out userEnvelope
	if err := c.do(ctx, http.MethodPost, "/users", nil, in, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var out userEnvelope
	if err := c.do(ctx, http.MethodGet, "/user", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) UpdateUser(ctx context.Context, update UserUpdate) (*User, error) {
	in := map[string]any{"user": update}
	var out userEnvelope
	if err := c.do(ctx, http.MethodPut, "/user", nil, in, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Articles

func (c *Client) ListArticles(ctx context.Context, q ListQuery) (*ArticleList, error) {
	var out ArticleList
	if err := c.do(ctx, http.MethodGet, "/articles", q.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FeedArticles(ctx context.Context, limit, offset int) (*ArticleList, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	var out ArticleList
	if err := c.do(ctx, http.MethodGet, "/articles/feed", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetArticle(ctx context.Context, slug string) (*Article, error) {
	var out articleEnvelope
	if err := c.do(ctx, http.MethodGet, "/articles/"+escape(slug), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Article, nil
}

func (c *Client) CreateArticle(ctx context.Context, draft ArticleDraft) (*Article, error) {
	in := map[string]any{"article": draft}
	var out articleEnvelope
	if err := c.do(ctx, http.MethodPost, "/articles", nil, in, &out); err != nil {
		return nil, err
	}
	return &out.Article, nil
}

func (c *Client) UpdateArticle(ctx context.Context, slug string, draft ArticleDraft) (*Article, error) {
	in := map[string]any{"article": draft}
	var out articleEnvelope
	if err := c.do(ctx, http.MethodPut, "/articles/"+escape(slug), nil, in, &out); err != nil {
		return nil, err
	}
	return &out.Article, nil
}

func (c *Client) DeleteArticle(ctx context.Context, slug string) error {
	return c.do(ctx, http.MethodDelete, "/articles/"+escape(slug), nil, nil, nil)
}

func (c *Client) FavoriteArticle(ctx context.Context, slug string) (*Article, error) {
	var out articleEnvelope
	if err := c.do(ctx, http.MethodPost, "/articles/"+escape(slug)+"/favorite", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Article, nil
}

func (c *Client) UnfavoriteArticle(ctx context.Context, slug string) (*Article, error) {
	var out articleEnvelope
	if err := c.do(ctx, http.MethodDelete, "/articles/"+escape(slug)+"/favorite", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Article, nil
}

// Comments

func (c *Client) Comments(ctx context.Context, slug string) ([]Comment, error) {
	var out commentsEnvelope
	if err := c.do(ctx, http.MethodGet, "/articles/"+escape(slug)+"/comments", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Comments, nil
}

func (c *Client) AddComment(ctx context.Context, slug, body string) (*Comment, error) {
	in := map[string]any{"comment": map[string]string{"body": body}}
	var out commentEnvelope
	if err := c.do(ctx, http.MethodPost, "/articles/"+escape(slug)+"/comments", nil, in, &out); err != nil {
		return nil, err
	}
	return &out.Comment, nil
}

func (c *Client) DeleteComment(ctx context.Context, slug string, id int) error {
	path := "/articles/" + escape(slug) + "/comments/" + strconv.Itoa(id)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// Profiles

func (c *Client) GetProfile(ctx context.Context, username string) (*Profile, error) {
	var out profileEnvelope
	if err := c.do(ctx, http.MethodGet, "/profiles/"+escape(username), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Profile, nil
}

func (c *Client) FollowUser(ctx context.Context, username string) (*Profile, error) {
	var out profileEnvelope
	if err := c.do(ctx, http.MethodPost, "/profiles/"+escape(username)+"/follow", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Profile, nil
}

func (c *Client) UnfollowUser(ctx context.Context, username string) (*Profile, error) {
	var out profileEnvelope
	if err := c.do(ctx, http.MethodDelete, "/profiles/"+escape(username)+"/follow", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Profile, nil
}

// Tags

func (c *Client) Tags(ctx context.Context) ([]string, error) {
	var out tagsEnvelope
	if err := c.do(ctx, http.MethodGet, "/tags", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Tags, nil
}
