// Package credential holds the single process-wide API key and its
// persistence across restarts.
package credential

import (
	"errors"
	"log"
	"os"
	"strings"
	"sync"
)

// Persistence stores a single credential string across restarts. The medium
// is an external concern; FileStore is the default.
type Persistence interface {
	Get() (string, error)
	Set(key string) error
	Clear() error
}

// FileStore persists the credential in a plain file.
type FileStore struct {
	Path string
}

func (f FileStore) Get() (string, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func (f FileStore) Set(key string) error {
	return os.WriteFile(f.Path, []byte(key+"\n"), 0o600)
}

func (f FileStore) Clear() error {
	err := os.Remove(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Store resolves and holds the current credential. Resolution order at
// construction: hardcoded > persisted > none. The key is never validated
// locally; a bad key only surfaces when a live call fails.
type Store struct {
	mu    sync.Mutex
	key   string
	perst Persistence
}

func NewStore(hardcoded string, p Persistence) *Store {
	s := &Store{perst: p}
	if hardcoded != "" {
		s.key = hardcoded
		return s
	}
	if p != nil {
		k, err := p.Get()
		if err != nil {
			log.Printf("credential: load failed: %v", err)
		} else {
			s.key = k
		}
	}
	return s
}

// Get returns the latest credential, or "" when none is set.
func (s *Store) Get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key
}

// Save stores a new credential. An empty key clears instead, switching the
// session back to demo mode. The in-memory value is applied even when
// persisting fails, so the running session keeps working.
func (s *Store) Save(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return s.Clear()
	}
	s.mu.Lock()
	s.key = key
	s.mu.Unlock()
	if s.perst != nil {
		return s.perst.Set(key)
	}
	return nil
}

// Clear removes the credential from memory and from persistence.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.key = ""
	s.mu.Unlock()
	if s.perst != nil {
		return s.perst.Clear()
	}
	return nil
}
