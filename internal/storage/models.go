package storage

import (
	"time"

	"github.com/pders01/blogify/internal/api"
)

// Credentials is the persisted session: a token and the user it belongs to.
type Credentials struct {
	Token string
	User  api.User
}

// Draft is an unsent editor buffer. Key is the article slug being edited, or
// NewDraftKey for an article that does not exist yet.
type Draft struct {
	Key         string    `json:"key"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Body        string    `json:"body"`
	Tags        []string  `json:"tags"`
	UpdatedAt   time.Time `json:"updated_at"`
}

const NewDraftKey = "_new"
