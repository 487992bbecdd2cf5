package intake

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

// Store keeps sessions in memory for the process lifetime. Conversations are
// deliberately not persisted anywhere else.
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[uuid.UUID]*Session)}
}

func (s *Store) Create() *Session {
	sess := &Session{
		ID:        uuid.New(),
		CreatedAt: time.Now(),
		turns:     make([]Turn, 0, 16),
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

func (s *Store) Get(id uuid.UUID) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Append adds a turn, stamping it if the caller did not.
func (c *Session) Append(t Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now()
	}
	c.turns = append(c.turns, t)
}

// Turns returns a snapshot of the dialog so far.
func (c *Session) Turns() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

func (c *Session) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

func (c *Session) SetReport(r *ReportData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report = r
}

func (c *Session) Report() *ReportData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.report
}
