package liveness

import (
	"sync"
	"time"
)

// Session owns the active challenge state of one client stream. All access
// to the state goes through Do, so frames of one session never interleave.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	state      ActiveState
	override   *bool
	generation int64
}

func NewSession(id string) *Session {
	return &Session{
		ID:        id,
		CreatedAt: time.Now(),
	}
}

func (s *Session) Do(fn func(state *ActiveState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

func (s *Session) State() ActiveState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Reset()
}

// SetActiveCheck overrides the global mode for this session. Turning the
// check on resets the challenge.
func (s *Session) SetActiveCheck(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if enabled {
		s.state.Reset()
	}
	s.override = &enabled
}

// ActiveCheck resolves the effective mode against the global flag. generation
// counts how often the global flag was switched on; a value this session has
// not seen yet resets the challenge, unless an override is in force.
func (s *Session) ActiveCheck(global bool, generation int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := s.generation
	s.generation = generation

	if s.override != nil {
		return *s.override
	}
	if global && generation != seen {
		s.state.Reset()
	}
	return global
}

type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Open returns the session for id, creating it on first use.
func (r *Registry) Open(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		return s
	}
	s := NewSession(id)
	r.sessions[id] = s
	return s
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Close discards the session and its state.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// ResetAll resets the challenge of every open session.
func (r *Registry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		s.Reset()
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
