// Copyright 2024 The Comunidad Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"comunidad.app/comunichat/internal/api"
	"comunidad.app/comunichat/internal/client/event"
	"comunidad.app/comunichat/internal/localerr"
)

var (
	// ErrNotFound is returned when a conversation id does not belong to
	// the viewer. The UI is expected to fall back to the inbox rather than
	// render an error page.
	ErrNotFound = errors.New("conversation not found")

	// ErrReadOnly is returned by Send once the underlying petition has
	// closed. No network call is made.
	ErrReadOnly = errors.New("conversation is read only")

	// ErrEmptyMessage is returned by Send for whitespace-only content.
	// No network call is made.
	ErrEmptyMessage = errors.New("message is empty")
)

// ConversationSession is the synchronizer for one open conversation.
//
// It maintains a single authoritative message sequence, merging the
// initial REST load, fixed-interval poll snapshots, push events, and
// locally confirmed sends. The sequence is de-duplicated by message id
// and ordered by first arrival; concurrent delivery across the input
// paths is resolved purely by the id check, never by sequencing control.
type ConversationSession struct {
	c    *Client
	meta api.Conversation

	mu   sync.Mutex
	msgs []api.Message
	seen map[int64]struct{}

	done      chan struct{}
	closeOnce sync.Once
}

// OpenConversation opens an existing conversation by id.
// The id is verified against the viewer's conversation list (refreshing it
// once if needed); ErrNotFound is returned for ids the viewer does not
// own. The initial history load replaces any cached state wholesale and
// the conversation is marked as read.
func (c *Client) OpenConversation(ctx context.Context, id int64) (*ConversationSession, error) {
	meta, ok := c.conversationMeta(id)
	if !ok {
		if err := c.RefreshInbox(ctx); err != nil {
			return nil, err
		}
		meta, ok = c.conversationMeta(id)
		if !ok {
			return nil, ErrNotFound
		}
	}
	return c.open(ctx, meta)
}

// OpenContact opens a conversation about a petition with a specific
// provider, creating it on the backend if this is the first contact.
// The returned session carries the adopted conversation id, which is also
// announced via a ConversationAdopted event so the UI can update the
// addressable location in place.
func (c *Client) OpenContact(ctx context.Context, petitionID, providerID int64) (*ConversationSession, error) {
	meta, err := c.api.GetOrCreateConversation(ctx, petitionID, providerID)
	if err != nil {
		return nil, localerr.Wrap(c.p, "error opening conversation for petition %d: %v", petitionID, err)
	}
	c.upsertInboxMeta(meta)
	c.handler(event.ConversationAdopted{Conversation: meta})
	return c.open(ctx, meta)
}

func (c *Client) open(ctx context.Context, meta api.Conversation) (*ConversationSession, error) {
	s := &ConversationSession{
		c:    c,
		meta: meta,
		seen: make(map[int64]struct{}),
		done: make(chan struct{}),
	}
	c.setCurrent(s)

	// Show cached history, if any, while the network fetch is in flight.
	if c.db != nil {
		if cached, err := c.db.Messages(ctx, meta.ID); err != nil {
			c.debug.Printf("error loading cached history for conversation %d: %v", meta.ID, err)
		} else if len(cached) > 0 {
			s.replace(cached)
		}
	}

	if err := s.load(ctx); err != nil {
		c.logger.Print(c.p.Sprintf("error loading conversation %d: %v", meta.ID, err))
		c.handler(event.SyncError{Op: "load", Err: err})
	}
	s.markRead()
	go s.poll()
	return s, nil
}

// Meta returns the conversation metadata the session was opened with.
func (s *ConversationSession) Meta() api.Conversation {
	return s.meta
}

// Messages returns a copy of the current message sequence.
func (s *ConversationSession) Messages() []api.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// load fetches the full history and replaces the sequence wholesale.
func (s *ConversationSession) load(ctx context.Context) error {
	msgs, err := s.c.api.Messages(ctx, s.meta.ID)
	if err != nil {
		return err
	}
	if s.closed() {
		return nil
	}
	s.replace(msgs)
	s.cache(msgs...)
	return nil
}

// replace swaps in a new sequence, de-duplicating by id (first occurrence
// wins), and announces the new history.
func (s *ConversationSession) replace(msgs []api.Message) {
	s.mu.Lock()
	snapshot := s.replaceLocked(msgs)
	s.mu.Unlock()
	s.c.handler(event.HistoryLoaded{ConversationID: s.meta.ID, Messages: snapshot})
}

// replaceLocked rebuilds the sequence from msgs and returns a copy of the
// result. The caller must hold s.mu.
func (s *ConversationSession) replaceLocked(msgs []api.Message) []api.Message {
	s.msgs = s.msgs[:0]
	s.seen = make(map[int64]struct{}, len(msgs))
	for _, m := range msgs {
		if _, dup := s.seen[m.ID]; dup {
			continue
		}
		s.seen[m.ID] = struct{}{}
		s.msgs = append(s.msgs, m)
	}
	snapshot := make([]api.Message, len(s.msgs))
	copy(snapshot, s.msgs)
	return snapshot
}

// applySnapshot merges a poll result. The snapshot only wins if it is
// strictly longer than the in-memory sequence: a shorter or equal result
// is assumed stale (or already covered by pushes) and discarded so it
// cannot clobber pushed state. The length check and the swap share one
// critical section, so a concurrent append lands either before the check
// or after the swap, never in between.
func (s *ConversationSession) applySnapshot(msgs []api.Message) bool {
	s.mu.Lock()
	if len(msgs) <= len(s.msgs) {
		s.mu.Unlock()
		return false
	}
	snapshot := s.replaceLocked(msgs)
	s.mu.Unlock()
	s.c.handler(event.HistoryLoaded{ConversationID: s.meta.ID, Messages: snapshot})
	s.cache(msgs...)
	return true
}

// push appends a pushed message. Events for other conversations are
// ignored; duplicate ids are no-ops. A message the viewer did not author
// triggers a mark-as-read for the conversation.
func (s *ConversationSession) push(convID int64, msg api.Message) {
	if convID != s.meta.ID || s.closed() {
		return
	}
	if !s.append(msg) {
		return
	}
	if !msg.Mine {
		s.markRead()
	}
}

// append adds msg to the sequence unless its id was already seen.
// It reports whether the message was actually added.
func (s *ConversationSession) append(msg api.Message) bool {
	s.mu.Lock()
	if _, dup := s.seen[msg.ID]; dup {
		s.mu.Unlock()
		return false
	}
	s.seen[msg.ID] = struct{}{}
	s.msgs = append(s.msgs, msg)
	s.mu.Unlock()
	s.c.handler(event.ChatMessage{ConversationID: s.meta.ID, Message: msg})
	s.cache(msg)
	return true
}

// Send posts a message to the conversation.
// Whitespace-only content and read-only conversations are rejected
// synchronously, before any network call. On success the server-confirmed
// message is appended with the usual duplicate suppression, so a later
// push echo of the same id is a no-op. On failure the caller keeps its
// input; the error is meant for a transient notice, not a crash.
func (s *ConversationSession) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	if s.meta.ReadOnly {
		return ErrReadOnly
	}
	msg, err := s.c.api.SendMessage(ctx, s.meta.ID, text)
	if err != nil {
		return localerr.Wrap(s.c.p, "error sending message: %v", err)
	}
	if s.closed() {
		return nil
	}
	s.append(msg)
	return nil
}

// markRead issues the mark-as-read call in the background. Failures are
// logged and never block message display.
func (s *ConversationSession) markRead() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.c.timeout)
		defer cancel()
		if err := s.c.api.MarkRead(ctx, s.meta.ID); err != nil {
			s.c.debug.Printf("error marking conversation %d as read: %v", s.meta.ID, err)
			return
		}
		if s.closed() {
			return
		}
		s.c.zeroUnread(s.meta.ID)
		s.c.handler(event.ConversationRead(s.meta.ID))
	}()
}

// poll refetches the history on a fixed interval as a liveness fallback
// for missed pushes. The loop stops when the session is closed; a fetch
// that resolves after close is discarded.
func (s *ConversationSession) poll() {
	t := time.NewTicker(s.c.convInterval)
	defer t.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-t.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.c.timeout)
		msgs, err := s.c.api.Messages(ctx, s.meta.ID)
		cancel()
		if err != nil {
			s.c.debug.Printf("error polling conversation %d: %v", s.meta.ID, err)
			continue
		}
		if s.closed() {
			return
		}
		s.applySnapshot(msgs)
	}
}

// cache mirrors messages into the local store, best effort.
func (s *ConversationSession) cache(msgs ...api.Message) {
	if s.c.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for _, m := range msgs {
		if err := s.c.db.InsertMsg(ctx, s.meta.ID, m); err != nil {
			s.c.debug.Printf("error caching message %d: %v", m.ID, err)
			return
		}
	}
}

func (s *ConversationSession) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Close stops the poll loop and detaches the session from the client.
// It is idempotent. In-flight calls that resolve afterwards are ignored.
func (s *ConversationSession) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	s.c.clearCurrent(s)
}
