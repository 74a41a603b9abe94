// Copyright 2024 The Comunidad Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package client_test

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"comunidad.app/comunichat/internal/api"
	"comunidad.app/comunichat/internal/client"
	"comunidad.app/comunichat/internal/session"
)

// fakeBackend implements just enough of the marketplace REST surface for
// the synchronizer tests.
type fakeBackend struct {
	mu        sync.Mutex
	convs     []api.Conversation
	msgs      map[int64][]api.Message
	nextMsgID int64
	failConvs bool
	convDelay time.Duration

	convGets  int
	sends     int
	reads     map[int64]int
	notes     []api.Notification
	unread    int
	noteReads []int64
	readAll   int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		msgs:      make(map[int64][]api.Message),
		reads:     make(map[int64]int),
		nextMsgID: 100,
	}
}

func (b *fakeBackend) setConvs(convs ...api.Conversation) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.convs = convs
}

func (b *fakeBackend) setMsgs(convID int64, msgs ...api.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs[convID] = msgs
}

func (b *fakeBackend) setFailConvs(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failConvs = fail
}

func (b *fakeBackend) setConvDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.convDelay = d
}

func (b *fakeBackend) readCount(convID int64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reads[convID]
}

func (b *fakeBackend) convGetCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.convGets
}

func (b *fakeBackend) sendCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sends
}

func (b *fakeBackend) setNotes(unread int, notes ...api.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notes = notes
	b.unread = unread
}

func (b *fakeBackend) noteReadIDs() []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]int64, len(b.noteReads))
	copy(out, b.noteReads)
	return out
}

func (b *fakeBackend) readAllCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readAll
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Delay outside the lock so a slow conversation fetch does not stall
	// unrelated endpoints.
	if r.URL.Path == "/chat/conversations" && r.Method == http.MethodGet {
		b.mu.Lock()
		d := b.convDelay
		b.mu.Unlock()
		if d > 0 {
			time.Sleep(d)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	writeJSON := func(v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(v); err != nil {
			panic(err)
		}
	}

	switch {
	case r.URL.Path == "/chat/conversations" && r.Method == http.MethodGet:
		b.convGets++
		if b.failConvs {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		writeJSON(b.convs)
	case r.URL.Path == "/chat/conversations" && r.Method == http.MethodPost:
		var req struct {
			PetitionID int64 `json:"petitionId"`
			ProviderID int64 `json:"providerId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, conv := range b.convs {
			if conv.PetitionID == req.PetitionID {
				writeJSON(conv)
				return
			}
		}
		conv := api.Conversation{
			ID:            1000 + req.PetitionID,
			PetitionID:    req.PetitionID,
			PetitionTitle: fmt.Sprintf("Petition %d", req.PetitionID),
			UpdatedAt:     time.Now(),
		}
		b.convs = append(b.convs, conv)
		writeJSON(conv)
	case strings.HasPrefix(r.URL.Path, "/chat/conversations/"):
		rest := strings.TrimPrefix(r.URL.Path, "/chat/conversations/")
		idStr, op, _ := strings.Cut(rest, "/")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		switch {
		case op == "messages" && r.Method == http.MethodGet:
			msgs := b.msgs[id]
			if msgs == nil {
				msgs = []api.Message{}
			}
			writeJSON(msgs)
		case op == "messages" && r.Method == http.MethodPost:
			var req struct {
				Content string `json:"content"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			b.sends++
			msg := api.Message{ID: b.nextMsgID, Content: req.Content, Mine: true, SentAt: time.Now()}
			b.nextMsgID++
			b.msgs[id] = append(b.msgs[id], msg)
			writeJSON(msg)
		case op == "read" && r.Method == http.MethodPut:
			b.reads[id]++
		default:
			http.NotFound(w, r)
		}
	case r.URL.Path == "/notifications" && r.Method == http.MethodGet:
		writeJSON(api.NotificationPage{Content: b.notes, TotalElements: int64(len(b.notes))})
	case r.URL.Path == "/notifications/unread-count":
		writeJSON(b.unread)
	case r.URL.Path == "/notifications/read-all" && r.Method == http.MethodPut:
		b.readAll++
		for i := range b.notes {
			b.notes[i].Read = true
		}
		b.unread = 0
	case strings.HasPrefix(r.URL.Path, "/notifications/") && strings.HasSuffix(r.URL.Path, "/read") && r.Method == http.MethodPut:
		idStr := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/notifications/"), "/read")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b.noteReads = append(b.noteReads, id)
		for i := range b.notes {
			if b.notes[i].ID == id && !b.notes[i].Read {
				b.notes[i].Read = true
				b.unread--
			}
		}
	default:
		http.NotFound(w, r)
	}
}

// recorder collects events emitted by the client under test.
type recorder struct {
	events chan interface{}
}

func newRecorder() *recorder {
	return &recorder{events: make(chan interface{}, 128)}
}

func (r *recorder) handle(ev interface{}) {
	select {
	case r.events <- ev:
	default:
	}
}

// wait blocks until an event matching the predicate arrives or the
// timeout expires.
func (r *recorder) wait(t *testing.T, desc string, match func(interface{}) bool) interface{} {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-r.events:
			if match(ev) {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", desc)
			return nil
		}
	}
}

// drain discards buffered events so later assertions start clean.
func (r *recorder) drain() {
	for {
		select {
		case <-r.events:
		default:
			return
		}
	}
}

func newTestClient(t *testing.T, b *fakeBackend, opts ...client.Option) (*client.Client, *recorder) {
	t.Helper()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	discard := log.New(io.Discard, "", 0)
	sess, err := session.Open(t.TempDir())
	if err != nil {
		t.Fatalf("error opening session: %v", err)
	}
	if err := sess.Set("test-token", "client", "Test", "test@example.net"); err != nil {
		t.Fatalf("error setting session: %v", err)
	}

	rec := newRecorder()
	opts = append([]client.Option{
		client.Handler(rec.handle),
		client.Timeout(5 * time.Second),
	}, opts...)
	c := client.New(api.New(srv.URL, sess.Token, discard), nil, sess, discard, discard, opts...)
	t.Cleanup(c.Stop)
	return c, rec
}
