// Package session keeps one application shell per browser session.
package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/sozercan/disclosure-ui/internal/shell"
)

var ErrNotFound = errors.New("session not found")

// Factory builds and starts a fresh shell for a new session.
type Factory func() *shell.Shell

type Store struct {
	// mu orders TTL refreshes against Reset so a refresh never writes back
	// a shell that Reset has already replaced.
	mu      sync.Mutex
	cache   *cache.Cache
	ttl     time.Duration
	factory Factory
	log     *slog.Logger
}

func New(ttl, cleanupInterval time.Duration, factory Factory, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	s := &Store{
		cache:   cache.New(ttl, cleanupInterval),
		ttl:     ttl,
		factory: factory,
		log:     log.With("component", "session"),
	}
	s.cache.OnEvicted(func(id string, _ interface{}) {
		s.log.Debug("session evicted", "session_id", id)
	})
	return s
}

// Create opens a new session and returns its ID.
func (s *Store) Create() (string, *shell.Shell) {
	id := uuid.NewString()
	sh := s.factory()
	s.cache.SetDefault(id, sh)
	s.log.Info("session created", "session_id", id)
	return id, sh
}

// Get returns the session's shell and extends its lifetime.
func (s *Store) Get(id string) (*shell.Shell, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	sh, ok := v.(*shell.Shell)
	if !ok {
		return nil, ErrNotFound
	}
	s.cache.SetDefault(id, sh)
	return sh, nil
}

// GetOrCreate returns the shell for id, opening a new session when id is
// unknown or expired. The returned ID is the one to hand back to the client.
func (s *Store) GetOrCreate(id string) (string, *shell.Shell) {
	if id != "" {
		if sh, err := s.Get(id); err == nil {
			return id, sh
		}
	}
	return s.Create()
}

// Reset replaces the session's shell with a fresh one, which reloads the
// catalog the way a page reload would.
func (s *Store) Reset(id string) (*shell.Shell, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cache.Get(id); !ok {
		return nil, ErrNotFound
	}
	sh := s.factory()
	s.cache.SetDefault(id, sh)
	s.log.Info("session reset", "session_id", id)
	return sh, nil
}

func (s *Store) Delete(id string) {
	s.cache.Delete(id)
}

func (s *Store) Len() int {
	return s.cache.ItemCount()
}
