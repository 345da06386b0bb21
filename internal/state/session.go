package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/pders01/blogify/internal/api"
	"github.com/pders01/blogify/internal/debuglog"
	"github.com/pders01/blogify/internal/storage"
)

type SessionClient interface {
	Login(ctx context.Context, email, password string) (*api.User, error)
	Register(ctx context.Context, username, email, password string) (*api.User, error)
	CurrentUser(ctx context.Context) (*api.User, error)
	UpdateUser(ctx context.Context, update api.UserUpdate) (*api.User, error)
}

// CredentialStore is the durable home of the session. Implementations must
// write and clear token and user together.
type CredentialStore interface {
	LoadCredentials() (*storage.Credentials, error)
	SaveCredentials(token string, user api.User) error
	ClearCredentials() error
}

type SessionOp int

const (
	OpUpdateUser SessionOp = iota
)

type Phase int

const (
	Pending Phase = iota
	Fulfilled
	Rejected
)

// Event describes one lifecycle step of a session operation. Seq identifies
// the request so observers can ignore superseded completions.
type Event struct {
	Op    SessionOp
	Phase Phase
	Seq   uint64
	Err   *Error
}

type SessionState struct {
	User            *api.User
	Token           string
	IsAuthenticated bool
	Status          Status
	Err             *Error
}

type SessionStore struct {
	client SessionClient
	creds  CredentialStore

	mu     sync.Mutex
	seq    sequencer
	user   *api.User
	token  string
	auth   bool
	status axis
	err    *Error
	held   slot

	listeners listeners
	eventsMu  sync.Mutex
	events    []func(Event)

	log *debuglog.FieldLogger
}

// NewSessionStore reads persisted credentials once. The session starts
// authenticated when a token was found; call Restore to revalidate it.
func NewSessionStore(client SessionClient, creds CredentialStore) (*SessionStore, error) {
	s := &SessionStore{
		client: client,
		creds:  creds,
		log:    debuglog.WithFields(map[string]interface{}{"store": "session"}),
	}

	stored, err := creds.LoadCredentials()
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if stored != nil {
		user := stored.User
		s.user = &user
		s.token = stored.Token
		s.auth = true
	}
	return s, nil
}

// Token implements api.TokenSource.
func (s *SessionStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *SessionStore) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth
}

func (s *SessionStore) Snapshot() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SessionState{
		Token:           s.token,
		IsAuthenticated: s.auth,
		Status:          s.status.status,
		Err:             s.err,
	}
	if s.user != nil {
		u := *s.user
		st.User = &u
	}
	return st
}

func (s *SessionStore) Subscribe(fn func()) (unsubscribe func()) {
	return s.listeners.add(fn)
}

// OnEvent registers fn for update-user lifecycle events.
func (s *SessionStore) OnEvent(fn func(Event)) {
	s.eventsMu.Lock()
	s.events = append(s.events, fn)
	s.eventsMu.Unlock()
}

func (s *SessionStore) emit(ev Event) {
	s.eventsMu.Lock()
	fns := make([]func(Event), len(s.events))
	copy(fns, s.events)
	s.eventsMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (s *SessionStore) begin() uint64 {
	s.mu.Lock()
	seq := s.seq.dispatch()
	s.status.begin(seq)
	s.err = nil
	s.mu.Unlock()
	s.listeners.notify()
	return seq
}

func (s *SessionStore) fail(seq uint64, err error, fallback string) *Error {
	e := FromErr(err, fallback)
	s.mu.Lock()
	if s.status.finish(seq, Failed) {
		s.err = e
	}
	s.mu.Unlock()
	s.log.Warnf("%s: %v", fallback, err)
	s.listeners.notify()
	return e
}

// authenticate installs user and token and persists them. Called with s.mu held.
func (s *SessionStore) authenticate(token string, user api.User) {
	s.user = &user
	s.token = token
	s.auth = true
	if err := s.creds.SaveCredentials(token, user); err != nil {
		s.log.Errorf("persisting session: %v", err)
	}
}

// clear drops the session from memory and disk. Called with s.mu held.
func (s *SessionStore) clear() {
	s.user = nil
	s.token = ""
	s.auth = false
	if err := s.creds.ClearCredentials(); err != nil {
		s.log.Errorf("clearing session: %v", err)
	}
}

func (s *SessionStore) signIn(ctx context.Context, fallback string, call func(context.Context) (*api.User, error)) (*api.User, error) {
	seq := s.begin()

	user, err := call(ctx)
	if err != nil {
		return nil, s.fail(seq, err, fallback)
	}

	s.mu.Lock()
	if s.held.replace(seq) {
		s.authenticate(user.Token, *user)
	} else {
		s.log.Debugf("discarding stale sign-in response (seq %d)", seq)
	}
	s.status.finish(seq, Succeeded)
	s.mu.Unlock()
	s.listeners.notify()
	return user, nil
}

func (s *SessionStore) Login(ctx context.Context, email, password string) (*api.User, error) {
	return s.signIn(ctx, "Failed to login", func(ctx context.Context) (*api.User, error) {
		return s.client.Login(ctx, email, password)
	})
}

func (s *SessionStore) Register(ctx context.Context, username, email, password string) (*api.User, error) {
	return s.signIn(ctx, "Failed to register", func(ctx context.Context) (*api.User, error) {
		return s.client.Register(ctx, username, email, password)
	})
}

// GetCurrentUser revalidates the held token. Failure is treated as an
// expired session: persisted credentials are removed.
func (s *SessionStore) GetCurrentUser(ctx context.Context) (*api.User, error) {
	seq := s.begin()

	user, err := s.client.CurrentUser(ctx)
	if err != nil {
		s.mu.Lock()
		if s.held.replace(seq) {
			s.clear()
		}
		s.mu.Unlock()
		return nil, s.fail(seq, err, "Failed to get current user")
	}

	s.mu.Lock()
	if s.held.replace(seq) {
		token := user.Token
		if token == "" {
			token = s.token
		}
		if token != "" {
			s.authenticate(token, *user)
		}
	}
	s.status.finish(seq, Succeeded)
	s.mu.Unlock()
	s.listeners.notify()
	return user, nil
}

// Restore revalidates persisted credentials, if there are any.
func (s *SessionStore) Restore(ctx context.Context) error {
	if s.Token() == "" {
		return nil
	}
	_, err := s.GetCurrentUser(ctx)
	return err
}

func (s *SessionStore) UpdateUser(ctx context.Context, update api.UserUpdate) (*api.User, error) {
	seq := s.begin()
	s.emit(Event{Op: OpUpdateUser, Phase: Pending, Seq: seq})

	user, err := s.client.UpdateUser(ctx, update)
	if err != nil {
		e := s.fail(seq, err, "Failed to update user")
		s.emit(Event{Op: OpUpdateUser, Phase: Rejected, Seq: seq, Err: e})
		return nil, e
	}

	s.mu.Lock()
	if s.held.replace(seq) {
		token := user.Token
		if token == "" {
			token = s.token
		}
		if token != "" {
			s.authenticate(token, *user)
		}
	}
	s.status.finish(seq, Succeeded)
	s.mu.Unlock()
	s.listeners.notify()
	s.emit(Event{Op: OpUpdateUser, Phase: Fulfilled, Seq: seq})
	return user, nil
}

// Logout clears the session locally. Responses to requests still in flight
// are discarded.
func (s *SessionStore) Logout() {
	s.mu.Lock()
	seq := s.seq.reset()
	s.held = slot(seq)
	s.status.reset(seq)
	s.err = nil
	s.clear()
	s.mu.Unlock()
	s.log.Infof("logged out")
	s.listeners.notify()
}

// Invalidate drops credentials after the server rejected them. Unlike Logout
// it leaves the status of the operation in flight alone.
func (s *SessionStore) Invalidate() {
	s.mu.Lock()
	wasAuth := s.auth
	s.clear()
	s.mu.Unlock()
	if wasAuth {
		s.log.Warnf("session invalidated by server")
	}
	s.listeners.notify()
}
