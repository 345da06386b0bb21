package state

import "sync"

type SettingsState struct {
	Status Status
	Err    *Error
}

// SettingsStore mirrors the session's update-user lifecycle so the settings
// view does not read the session's shared status.
type SettingsStore struct {
	mu     sync.Mutex
	status Status
	err    *Error
	owner  uint64

	listeners listeners
}

func NewSettingsStore(session *SessionStore) *SettingsStore {
	s := &SettingsStore{}
	session.OnEvent(s.observe)
	return s
}

func (s *SettingsStore) observe(ev Event) {
	if ev.Op != OpUpdateUser {
		return
	}

	s.mu.Lock()
	switch ev.Phase {
	case Pending:
		s.owner = ev.Seq
		s.status = Loading
		s.err = nil
	case Fulfilled:
		if ev.Seq == s.owner {
			s.status = Succeeded
		}
	case Rejected:
		if ev.Seq == s.owner {
			s.status = Failed
			s.err = ev.Err
		}
	}
	s.mu.Unlock()
	s.listeners.notify()
}

func (s *SettingsStore) Snapshot() SettingsState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SettingsState{Status: s.status, Err: s.err}
}

func (s *SettingsStore) Subscribe(fn func()) (unsubscribe func()) {
	return s.listeners.add(fn)
}

// ResetSettingsState returns to Idle and ignores completions of updates
// dispatched before the reset.
func (s *SettingsStore) ResetSettingsState() {
	s.mu.Lock()
	s.status = Idle
	s.err = nil
	s.owner = 0
	s.mu.Unlock()
	s.listeners.notify()
}
