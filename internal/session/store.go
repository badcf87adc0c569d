package session

import (
	"fmt"
	"sync"
)

// Store holds the ordered table sessions. Index i holds table i+1.
type Store struct {
	mu       sync.RWMutex
	sessions []Session
}

// NewStore creates a store holding a copy of sessions
func NewStore(sessions []Session) *Store {
	s := &Store{}
	s.Replace(sessions)
	return s
}

// Len returns the number of tables
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// All returns a snapshot of every session in table order
func (s *Store) All() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Clone(s.sessions)
}

// Get returns a copy of the session at index
func (s *Store) Get(index int) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkIndex(index); err != nil {
		return Session{}, err
	}
	return s.sessions[index].clone(), nil
}

// Update applies fn to the session at index while holding the store lock.
// If fn returns an error the session is left untouched. The table number
// can never be changed through Update.
func (s *Store) Update(index int, fn func(*Session) error) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIndex(index); err != nil {
		return Session{}, err
	}

	working := s.sessions[index].clone()
	if err := fn(&working); err != nil {
		return s.sessions[index].clone(), err
	}
	working.TableNumber = s.sessions[index].TableNumber
	s.sessions[index] = working

	return working.clone(), nil
}

// Replace swaps the whole session set
func (s *Store) Replace(sessions []Session) {
	next := make([]Session, len(sessions))
	for i, sess := range sessions {
		next[i] = sess.clone()
	}

	s.mu.Lock()
	s.sessions = next
	s.mu.Unlock()
}

func (s *Store) checkIndex(index int) error {
	if index < 0 || index >= len(s.sessions) {
		return fmt.Errorf("%w: %d", ErrUnknownTable, index+1)
	}
	return nil
}
