// Package session keeps per-user build state for the web flow.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tatianab/game-builder/internal/errs"
	"github.com/tatianab/game-builder/internal/models"
)

// Session tracks one user's build across independent requests.
type Session struct {
	ID           string
	Dialogue     models.Dialogue
	Requirements string
	Plan         models.GamePlan
	OutputDir    string
}

type entry struct {
	mu      sync.Mutex // serializes operations on the session
	session *Session
	touched time.Time
}

// Store is an in-memory session map with idle expiry. Operations on the
// same session id are serialized; different sessions proceed in parallel.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	now     func() time.Time
	log     *zap.Logger
}

// NewStore returns a store that evicts sessions idle for longer than ttl.
// A non-positive ttl disables expiry.
func NewStore(ttl time.Duration, log *zap.Logger) *Store {
	return &Store{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
		log:     log.Named("session"),
	}
}

// Create registers a new session and returns its id. init, if non-nil,
// fills in the session before it becomes visible to other callers.
func (s *Store) Create(init func(*Session)) string {
	id := uuid.NewString()
	sess := &Session{ID: id}
	if init != nil {
		init(sess)
	}
	s.mu.Lock()
	s.entries[id] = &entry{session: sess, touched: s.now()}
	s.mu.Unlock()
	s.log.Debug("created", zap.String("session_id", id))
	return id
}

// With runs fn while holding the session's lock. Changes fn makes to the
// session are kept. A session in use by another caller never expires.
func (s *Store) With(id string, fn func(*Session) error) error {
	if id == "" {
		return fmt.Errorf("session id: %w", errs.ErrEmptyInput)
	}

	s.mu.Lock()
	e, ok := s.entries[id]
	if ok && s.expired(e) && e.mu.TryLock() {
		delete(s.entries, id)
		e.mu.Unlock()
		ok = false
	}
	if ok {
		e.touched = s.now()
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%q: %w", id, errs.ErrSessionNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	err := fn(e.session)

	s.mu.Lock()
	e.touched = s.now()
	s.mu.Unlock()
	return err
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) expired(e *entry) bool {
	return s.ttl > 0 && s.now().Sub(e.touched) > s.ttl
}

// Sweep removes expired sessions and returns how many were removed.
// Sessions currently locked by With are skipped.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.entries {
		if !s.expired(e) || !e.mu.TryLock() {
			continue
		}
		delete(s.entries, id)
		e.mu.Unlock()
		n++
	}
	if n > 0 {
		s.log.Info("evicted idle sessions", zap.Int("count", n))
	}
	return n
}

// Run sweeps expired sessions every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
