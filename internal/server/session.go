package server

import (
	"os"
	"sync"
	"time"

	"github.com/richardbrinkman/plagiarism/internal/orchestration"
	"github.com/richardbrinkman/plagiarism/internal/progress"
)

// session is one uploaded input and its detection run.
type session struct {
	id     string
	dir    string
	output string
	units  []string
	hub    *progress.Hub

	mu       sync.Mutex
	released bool
	done     bool
	summary  orchestration.Summary
	err      error
	finished time.Time
}

// finish records the outcome of the run.
func (s *session) finish(summary orchestration.Summary, err error, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	s.summary = summary
	s.err = err
	s.finished = at
}

// result returns whether the run has ended and how.
func (s *session) result() (done bool, summary orchestration.Summary, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done, s.summary, s.err
}

// stream returns the progress hub, or nil once the stream has been
// delivered completely.
func (s *session) stream() *progress.Hub {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil
	}
	return s.hub
}

// release refuses later subscribers.
func (s *session) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
}

// completed reports whether the completed event has been published. It
// can be true shortly before finish is called.
func (s *session) completed() bool {
	if s.hub == nil {
		return false
	}
	history := s.hub.History()
	return len(history) > 0 && history[len(history)-1].Terminal()
}

// expired reports whether the run ended more than ttl before now.
func (s *session) expired(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done && now.Sub(s.finished) > ttl
}

// sessionStore maps session ids to sessions.
type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*session)}
}

func (st *sessionStore) add(s *session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.id] = s
}

func (st *sessionStore) get(id string) (*session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

func (st *sessionStore) len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// sweep removes the sessions that expired and deletes their upload
// directories. It returns the number of removed sessions.
func (st *sessionStore) sweep(now time.Time, ttl time.Duration) int {
	st.mu.Lock()
	var expired []*session
	for id, s := range st.sessions {
		if s.expired(now, ttl) {
			expired = append(expired, s)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	for _, s := range expired {
		_ = os.RemoveAll(s.dir)
	}
	return len(expired)
}
