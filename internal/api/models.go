package api

import (
	"net/url"
	"strconv"
	"time"
)

type User struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Bio      string `json:"bio"`
	Image    string `json:"image"`
	Token    string `json:"token,omitempty"`
}

// Profile is a User as seen by the requester.
type Profile struct {
	Username  string `json:"username"`
	Bio       string `json:"bio"`
	Image     string `json:"image"`
	Following bool   `json:"following"`
}

// Article mirrors the server representation. Favorited and FavoritesCount
// are only ever taken together from a response.
type Article struct {
	Slug           string    `json:"slug"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Body           string    `json:"body"`
	TagList        []string  `json:"tagList"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	Author         Profile   `json:"author"`
	Favorited      bool      `json:"favorited"`
	FavoritesCount int       `json:"favoritesCount"`
}

// Clone returns a copy that shares no slices with a.
func (a Article) Clone() Article {
	if a.TagList != nil {
		a.TagList = append([]string(nil), a.TagList...)
	}
	return a
}

type Comment struct {
	ID        int       `json:"id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Author    Profile   `json:"author"`
}

type ArticleList struct {
	Articles      []Article `json:"articles"`
	ArticlesCount int       `json:"articlesCount"`
}

// ArticleDraft is the create/update payload. Empty fields are omitted so an
// update only touches what the caller set.
type ArticleDraft struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Body        string   `json:"body,omitempty"`
	TagList     []string `json:"tagList,omitempty"`
}

// UserUpdate is a partial profile update. Nil fields are not sent.
type UserUpdate struct {
	Email    *string `json:"email,omitempty"`
	Username *string `json:"username,omitempty"`
	Bio      *string `json:"bio,omitempty"`
	Image    *string `json:"image,omitempty"`
	Password *string `json:"password,omitempty"`
}

// String returns a pointer to s, for building a UserUpdate.
func String(s string) *string {
	return &s
}

// ListQuery filters GET /articles.
type ListQuery struct {
	Limit     int
	Offset    int
	Tag       string
	Author    string
	Favorited string
}

func (q ListQuery) values() url.Values {
	v := url.Values{}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.Tag != "" {
		v.Set("tag", q.Tag)
	}
	if q.Author != "" {
		v.Set("author", q.Author)
	}
	if q.Favorited != "" {
		v.Set("favorited", q.Favorited)
	}
	return v
}

// wire envelopes

type userEnvelope struct {
	User User `json:"user"`
}

type profileEnvelope struct {
	Profile Profile `json:"profile"`
}

type articleEnvelope struct {
	Article Article `json:"article"`
}

type commentEnvelope struct {
	Comment Comment `json:"comment"`
}

type commentsEnvelope struct {
	Comments []Comment `json:"comments"`
}

type tagsEnvelope struct {
	Tags []string `json:"tags"`
}
