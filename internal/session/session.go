// Copyright 2024 The Comunidad Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package session holds the authenticated session for the current user.
//
// The session is an explicit object handed to every component that needs
// the bearer token, instead of an ambient global, so that logout can be
// observed: subscribers registered with OnClear run before the token is
// wiped, giving push channels a chance to tear down without racing a
// cleared token.
package session // import "comunidad.app/comunichat/internal/session"

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const sessionFile = "session.json"

type data struct {
	Token string `json:"token"`
	Role  string `json:"role"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session is the persisted login state: bearer token, role flag, and the
// display profile of the viewer.
type Session struct {
	mu      sync.RWMutex
	path    string
	data    data
	onClear []func()
}

// Open loads the session persisted under dir, if any.
// A missing file is not an error; it simply yields an inactive session.
func Open(dir string) (*Session, error) {
	s := &Session{path: filepath.Join(dir, sessionFile)}
	/* #nosec */
	b, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("error reading session file: %w", err)
	}
	if err := json.Unmarshal(b, &s.data); err != nil {
		return nil, fmt.Errorf("error parsing session file: %w", err)
	}
	return s, nil
}

// Active reports whether a token is present.
func (s *Session) Active() bool {
	return s.Token() != ""
}

// Token returns the current bearer token, or the empty string if logged
// out. It is safe for concurrent use and may be passed around as a token
// source (e.g. s.Token for the transport and channel manager).
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Token
}

// Role returns the role flag of the logged-in user.
func (s *Session) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Role
}

// Name returns the display name of the logged-in user.
func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Name
}

// Email returns the email of the logged-in user.
func (s *Session) Email() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Email
}

// Set replaces the session state and persists it.
func (s *Session) Set(token, role, name, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data{Token: token, Role: role, Name: name, Email: email}
	return s.persist()
}

// persist writes the session file atomically. Callers must hold s.mu.
func (s *Session) persist() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	b, err := json.Marshal(s.data)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// OnClear registers a hook to be run by Clear before the session state is
// wiped. Hooks run in registration order.
func (s *Session) OnClear(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClear = append(s.onClear, f)
}

// Clear logs the session out: hooks first (while the token is still
// readable, so teardown of token-scoped resources cannot race a cleared
// token), then the in-memory state, then the persisted file.
func (s *Session) Clear() error {
	s.mu.RLock()
	hooks := make([]func(), len(s.onClear))
	copy(hooks, s.onClear)
	s.mu.RUnlock()
	for _, f := range hooks {
		f()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data{}
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
