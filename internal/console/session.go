package console

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// TokenStore persists the session token between runs.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Delete() error
}

// Session is the authentication gate: it holds the bearer token and tells
// listeners when the session ends.
type Session struct {
	mu      sync.RWMutex
	token   string
	store   TokenStore
	onClear []func()
}

// NewSession returns a session backed by store. store may be nil.
func NewSession(store TokenStore) *Session {
	return &Session{store: store}
}

// Restore loads a previously saved token.
func (s *Session) Restore() error {
	if s.store == nil {
		return nil
	}
	token, err := s.store.Load()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// Get returns the token, "" when signed out.
func (s *Session) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticated reports whether a token is present.
func (s *Session) Authenticated() bool { return s.Get() != "" }

// Set records a new token.
func (s *Session) Set(token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	if s.store != nil {
		return s.store.Save(token)
	}
	return nil
}

// OnClear registers fn to run when the session is cleared.
func (s *Session) OnClear(fn func()) {
	s.mu.Lock()
	s.onClear = append(s.onClear, fn)
	s.mu.Unlock()
}

// Clear drops the token and runs the clear listeners.
func (s *Session) Clear() error {
	s.mu.Lock()
	s.token = ""
	listeners := append([]func(){}, s.onClear...)
	s.mu.Unlock()

	var err error
	if s.store != nil {
		err = s.store.Delete()
	}
	for _, fn := range listeners {
		fn()
	}
	return err
}

// FileTokenStore keeps the token in a file readable only by its owner.
type FileTokenStore struct {
	Path string
}

// Load returns the saved token, "" when none exists.
func (f FileTokenStore) Load() (string, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes token.
func (f FileTokenStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(f.Path, []byte(token+"\n"), 0o600)
}

// Delete removes the saved token.
func (f FileTokenStore) Delete() error {
	err := os.Remove(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
