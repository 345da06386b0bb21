// Package state holds the client-side stores. Each store owns one slice of
// application state, issues requests through the API client and applies the
// responses. Views read copies via Snapshot and learn about changes through
// Subscribe.
package state

import "sync"

type Status int

const (
	Idle Status = iota
	Loading
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// sequencer hands out monotonically increasing request numbers. A reset
// consumes a number of its own so every request dispatched before it is older
// than the new watermark.
type sequencer struct {
	last    uint64
	resetAt uint64
}

func (s *sequencer) dispatch() uint64 {
	s.last++
	return s.last
}

func (s *sequencer) reset() uint64 {
	s.last++
	s.resetAt = s.last
	return s.last
}

// live reports whether seq was dispatched after the last reset.
func (s *sequencer) live(seq uint64) bool {
	return seq > s.resetAt
}

// slot records the request number of the last write applied to an entity.
type slot uint64

// replace admits a wholesale write from request seq if nothing newer has
// already been applied.
func (w *slot) replace(seq uint64) bool {
	if seq <= uint64(*w) {
		return false
	}
	*w = slot(seq)
	return true
}

// touch records seq for an incremental write that is applied regardless of
// order, so older wholesale replacements cannot undo it.
func (w *slot) touch(seq uint64) {
	if seq > uint64(*w) {
		*w = slot(seq)
	}
}

// axis is one status lifecycle. Only the most recently dispatched request on
// the axis may move it out of Loading.
type axis struct {
	status Status
	owner  uint64
}

func (a *axis) begin(seq uint64) {
	a.owner = seq
	a.status = Loading
}

func (a *axis) owns(seq uint64) bool {
	return a.owner == seq
}

func (a *axis) finish(seq uint64, status Status) bool {
	if !a.owns(seq) {
		return false
	}
	a.status = status
	return true
}

func (a *axis) reset(seq uint64) {
	a.owner = seq
	a.status = Idle
}

type listeners struct {
	mu   sync.Mutex
	next int
	fns  map[int]func()
}

func (l *listeners) add(fn func()) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func())
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.fns, id)
		l.mu.Unlock()
	}
}

func (l *listeners) notify() {
	l.mu.Lock()
	fns := make([]func(), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
