package sessions

import "sync"

// Store is the session-by-respondent map owned by the engine. Insert happens
// on form start, removal on completion, abort, or return home. It must be
// safe under concurrent access from different respondents' handlers; the
// engine guarantees that handlers for the same respondent never interleave.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Get returns the active session for a respondent, if any.
func (st *Store) Get(respondent string) (*Session, bool) {
	st.mu.RLock()
	s, ok := st.sessions[respondent]
	st.mu.RUnlock()
	return s, ok
}

// Put installs a session, replacing any prior one for the same respondent
// (restart reuses the identity).
func (st *Store) Put(s *Session) {
	st.mu.Lock()
	st.sessions[s.Respondent()] = s
	st.mu.Unlock()
}

// Delete removes a respondent's session. Deleting an absent session is a
// no-op.
func (st *Store) Delete(respondent string) {
	st.mu.Lock()
	delete(st.sessions, respondent)
	st.mu.Unlock()
}

// Len returns the number of active sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	n := len(st.sessions)
	st.mu.RUnlock()
	return n
}
