package booking

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sessions hands out flows keyed by session ID and drops the ones nobody has
// touched for a while.
type Sessions struct {
	deps    Deps
	maxIdle time.Duration

	mu    sync.Mutex
	flows map[string]*session
	now   func() time.Time
}

type session struct {
	flow     *Flow
	lastSeen time.Time
}

func NewSessions(deps Deps, maxIdle time.Duration) *Sessions {
	if maxIdle <= 0 {
		maxIdle = time.Hour
	}
	return &Sessions{
		deps:    deps,
		maxIdle: maxIdle,
		flows:   map[string]*session{},
		now:     time.Now,
	}
}

// Start creates a new flow and returns its session ID.
func (s *Sessions) Start() (string, *Flow) {
	id := uuid.NewString()
	f := NewFlow(s.deps, id)
	s.mu.Lock()
	s.flows[id] = &session{flow: f, lastSeen: s.now()}
	s.mu.Unlock()
	return id, f
}

// Get returns the flow for a session ID, refreshing its idle clock.
func (s *Sessions) Get(id string) (*Flow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.flows[id]
	if !ok {
		return nil, false
	}
	sess.lastSeen = s.now()
	return sess.flow, true
}

// Drop removes a session.
func (s *Sessions) Drop(id string) {
	s.mu.Lock()
	delete(s.flows, id)
	s.mu.Unlock()
}

// Sweep drops sessions idle past the limit and reports how many went.
func (s *Sessions) Sweep() int {
	cutoff := s.now().Add(-s.maxIdle)
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for id, sess := range s.flows {
		if sess.lastSeen.Before(cutoff) {
			delete(s.flows, id)
			dropped++
		}
	}
	return dropped
}

// Len reports the live session count.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.flows)
}
