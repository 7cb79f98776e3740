package session

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Factory builds a session for a freshly issued ID.
type Factory func(id string) *Session

// Store keeps sessions apart: each ID maps to its own Session and ledger.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	factory  Factory
	log      *zap.Logger
}

func NewStore(factory Factory, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		sessions: make(map[string]*Session),
		factory:  factory,
		log:      log,
	}
}

// Create issues a new random ID and stores a session for it.
func (st *Store) Create() *Session {
	id := uuid.NewString()
	s := st.factory(id)

	st.mu.Lock()
	st.sessions[id] = s
	n := len(st.sessions)
	st.mu.Unlock()

	st.log.Info("session created", zap.String("session", id), zap.Int("open", n))
	return s
}

func (st *Store) Get(id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return s, nil
}

func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[id]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	delete(st.sessions, id)
	st.log.Info("session deleted", zap.String("session", id))
	return nil
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// IDs returns the stored session IDs in sorted order.
func (st *Store) IDs() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make([]string, 0, len(st.sessions))
	for id := range st.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Prune drops sessions idle for longer than maxIdle and returns how many
// were removed. It never takes a session lock, so a slow fetch on one
// session does not stall the store.
func (st *Store) Prune(now time.Time, maxIdle time.Duration) int {
	idle := func(s *Session) bool { return now.Sub(s.LastUsed()) > maxIdle }

	st.mu.RLock()
	var stale []string
	for id, s := range st.sessions {
		if idle(s) {
			stale = append(stale, id)
		}
	}
	st.mu.RUnlock()
	if len(stale) == 0 {
		return 0
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	n := 0
	for _, id := range stale {
		// Used again since the scan.
		if s, ok := st.sessions[id]; ok && idle(s) {
			delete(st.sessions, id)
			n++
		}
	}
	if n > 0 {
		st.log.Info("sessions pruned", zap.Int("removed", n), zap.Int("open", len(st.sessions)))
	}
	return n
}
