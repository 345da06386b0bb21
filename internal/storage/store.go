package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/pders01/blogify/internal/api"
)

var (
	sessionBucket = []byte("session")
	draftsBucket  = []byte("drafts")

	tokenKey = []byte("token")
	userKey  = []byte("user")
)

var ErrDraftNotFound = errors.New("draft not found")

type Store struct {
	db *bolt.DB
}

// NewStore opens (or creates) the bbolt file at dbPath. A zero timeout
// defaults to one second.
func NewStore(dbPath string, timeout time.Duration) (*Store, error) {
	if timeout <= 0 {
		timeout = 1 * time.Second
	}
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{sessionBucket, draftsBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveCredentials writes token and user in one transaction.
func (s *Store) SaveCredentials(token string, user api.User) error {
	if token == "" {
		return fmt.Errorf("saving credentials: empty token")
	}
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionBucket)
		if err := b.Put(tokenKey, []byte(token)); err != nil {
			return err
		}
		return b.Put(userKey, data)
	})
}

// LoadCredentials returns the persisted pair, or nil when nothing is stored.
// A half-written pair is treated as absent and removed.
func (s *Store) LoadCredentials() (*Credentials, error) {
	var creds *Credentials
	partial := false

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionBucket)
		token := b.Get(tokenKey)
		data := b.Get(userKey)
		if token == nil && data == nil {
			return nil
		}
		if len(token) == 0 || data == nil {
			partial = true
			return nil
		}

		var user api.User
		if err := json.Unmarshal(data, &user); err != nil {
			partial = true
			return nil
		}
		creds = &Credentials{Token: string(token), User: user}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	if partial {
		if err := s.ClearCredentials(); err != nil {
			return nil, err
		}
	}
	return creds, nil
}

// ClearCredentials removes token and user in one transaction.
func (s *Store) ClearCredentials() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionBucket)
		if err := b.Delete(tokenKey); err != nil {
			return err
		}
		return b.Delete(userKey)
	})
	if err != nil {
		return fmt.Errorf("clearing credentials: %w", err)
	}
	return nil
}

func (s *Store) SaveDraft(draft *Draft) error {
	if draft.Key == "" {
		draft.Key = NewDraftKey
	}
	draft.UpdatedAt = time.Now()
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(draftsBucket)
		data, err := json.Marshal(draft)
		if err != nil {
			return err
		}
		return b.Put([]byte(draft.Key), data)
	})
}

func (s *Store) GetDraft(key string) (*Draft, error) {
	var draft Draft
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(draftsBucket).Get([]byte(key))
		if data == nil {
			return ErrDraftNotFound
		}
		return json.Unmarshal(data, &draft)
	})
	if err != nil {
		return nil, err
	}
	return &draft, nil
}

// GetAllDrafts returns drafts newest first.
func (s *Store) GetAllDrafts() ([]*Draft, error) {
	var drafts []*Draft
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(draftsBucket).ForEach(func(_ []byte, v []byte) error {
			var draft Draft
			if err := json.Unmarshal(v, &draft); err != nil {
				return nil
			}
			drafts = append(drafts, &draft)
			return nil
		})
	})
	sort.Slice(drafts, func(i, j int) bool {
		return drafts[i].UpdatedAt.After(drafts[j].UpdatedAt)
	})
	return drafts, err
}

func (s *Store) DeleteDraft(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(draftsBucket).Delete([]byte(key))
	})
}
