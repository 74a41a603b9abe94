// Copyright 2024 The Comunidad Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package session_test

import (
	"os"
	"path/filepath"
	"testing"

	"comunidad.app/comunichat/internal/session"
)

func TestPersistAndReload(t *testing.T) {
	dir := t.TempDir()

	s, err := session.Open(dir)
	if err != nil {
		t.Fatalf("error opening empty session: %v", err)
	}
	if s.Active() {
		t.Fatalf("fresh session reports active")
	}
	if err := s.Set("tok", "provider", "Ana", "ana@example.net"); err != nil {
		t.Fatalf("error persisting session: %v", err)
	}

	reloaded, err := session.Open(dir)
	if err != nil {
		t.Fatalf("error reloading session: %v", err)
	}
	if !reloaded.Active() || reloaded.Token() != "tok" {
		t.Fatalf("wrong token after reload: %q", reloaded.Token())
	}
	if reloaded.Role() != "provider" || reloaded.Name() != "Ana" || reloaded.Email() != "ana@example.net" {
		t.Fatalf("wrong profile after reload: %q %q %q", reloaded.Role(), reloaded.Name(), reloaded.Email())
	}
}

func TestClearRunsHooksBeforeWipe(t *testing.T) {
	dir := t.TempDir()

	s, err := session.Open(dir)
	if err != nil {
		t.Fatalf("error opening session: %v", err)
	}
	if err := s.Set("tok", "", "", ""); err != nil {
		t.Fatalf("error persisting session: %v", err)
	}

	// Teardown hooks must still see the token so token-scoped resources
	// can shut down cleanly.
	var seen []string
	s.OnClear(func() {
		seen = append(seen, s.Token())
	})
	s.OnClear(func() {
		seen = append(seen, "second")
	})
	if err := s.Clear(); err != nil {
		t.Fatalf("error clearing session: %v", err)
	}
	if len(seen) != 2 || seen[0] != "tok" || seen[1] != "second" {
		t.Fatalf("wrong hook order or token visibility: %v", seen)
	}
	if s.Active() {
		t.Fatalf("session still active after clear")
	}
	if _, err := os.Stat(filepath.Join(dir, "session.json")); !os.IsNotExist(err) {
		t.Fatalf("session file survived clear: %v", err)
	}

	// Clearing an already-cleared session is a no-op.
	if err := s.Clear(); err != nil {
		t.Fatalf("error clearing twice: %v", err)
	}
}
