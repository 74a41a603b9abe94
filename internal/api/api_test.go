// Copyright 2024 The Comunidad Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"comunidad.app/comunichat/internal/api"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *api.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return api.New(srv.URL, func() string { return "tok-123" }, log.New(io.Discard, "", 0))
}

func TestBearerHeader(t *testing.T) {
	var got string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		io.WriteString(w, "[]")
	})
	if _, err := c.Conversations(context.Background()); err != nil {
		t.Fatalf("error fetching conversations: %v", err)
	}
	if got != "Bearer tok-123" {
		t.Fatalf("wrong authorization header: %q", got)
	}
}

func TestGetOrCreateRequest(t *testing.T) {
	var body struct {
		PetitionID int64 `json:"petitionId"`
		ProviderID int64 `json:"providerId"`
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/conversations" {
			t.Errorf("wrong request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("error decoding body: %v", err)
		}
		io.WriteString(w, `{"idConversation": 7, "petitionId": 5}`)
	})
	conv, err := c.GetOrCreateConversation(context.Background(), 5, 9)
	if err != nil {
		t.Fatalf("error opening conversation: %v", err)
	}
	if body.PetitionID != 5 || body.ProviderID != 9 {
		t.Fatalf("wrong request body: %+v", body)
	}
	if conv.ID != 7 {
		t.Fatalf("wrong conversation id: %d", conv.ID)
	}
}

func TestErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such conversation", http.StatusNotFound)
	})
	_, err := c.Messages(context.Background(), 42)
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("wrong error type: %v", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Body != "no such conversation" {
		t.Fatalf("wrong error detail: %+v", apiErr)
	}
}

func TestUnreadCount(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/notifications/unread-count" {
			t.Errorf("wrong path: %s", r.URL.Path)
		}
		io.WriteString(w, "3")
	})
	n, err := c.UnreadCount(context.Background())
	if err != nil {
		t.Fatalf("error fetching unread count: %v", err)
	}
	if n != 3 {
		t.Fatalf("wrong unread count: %d", n)
	}
}

func TestWireNames(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{
			"idMessage": 11,
			"content": "hola",
			"senderName": "Ana",
			"isMine": false,
			"sentAt": "2024-05-01T10:00:00Z"
		}]`)
	})
	msgs, err := c.Messages(context.Background(), 1)
	if err != nil {
		t.Fatalf("error fetching messages: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("wrong number of messages: %d", len(msgs))
	}
	m := msgs[0]
	if m.ID != 11 || m.Content != "hola" || m.Sender != "Ana" || m.Mine {
		t.Fatalf("wrong decoded message: %+v", m)
	}
}
