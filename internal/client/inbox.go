// Copyright 2024 The Comunidad Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package client

import (
	"context"
	"sort"
	"time"

	"comunidad.app/comunichat/internal/api"
	"comunidad.app/comunichat/internal/client/event"
)

// RefreshInbox fetches the full conversation list, sorts it by
// last-update time descending, and replaces the in-memory list.
// On failure the previous list is left intact and a SyncError is emitted;
// an already-populated inbox is never cleared by a failed refresh.
func (c *Client) RefreshInbox(ctx context.Context) error {
	convs, err := c.api.Conversations(ctx)
	if err != nil {
		c.handler(event.SyncError{Op: "inbox", Err: err})
		return err
	}
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})

	c.mu.Lock()
	c.inbox = convs
	c.mu.Unlock()

	if c.db != nil {
		dbCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		if err := c.db.ReplaceConversations(dbCtx, convs); err != nil {
			c.debug.Printf("error caching inbox: %v", err)
		}
		cancel()
	}

	c.handler(event.FetchInbox{Items: convs})
	return nil
}

// Inbox returns a copy of the current conversation list, most recently
// updated first.
func (c *Client) Inbox() []api.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]api.Conversation, len(c.inbox))
	copy(out, c.inbox)
	return out
}

// conversationMeta looks a conversation up in the in-memory inbox.
func (c *Client) conversationMeta(id int64) (api.Conversation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, conv := range c.inbox {
		if conv.ID == id {
			return conv, true
		}
	}
	return api.Conversation{}, false
}

// upsertInboxMeta adds or replaces a single conversation without
// disturbing the rest of the list. Used when a get-or-create resolves
// before the next full refresh.
func (c *Client) upsertInboxMeta(meta api.Conversation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, conv := range c.inbox {
		if conv.ID == meta.ID {
			c.inbox[i] = meta
			return
		}
	}
	c.inbox = append([]api.Conversation{meta}, c.inbox...)
}

// zeroUnread clears the unread badge of a conversation locally after a
// successful mark-as-read. The next refresh takes the backend's count
// verbatim again.
func (c *Client) zeroUnread(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.inbox {
		if c.inbox[i].ID == id {
			c.inbox[i].UnreadCount = 0
			return
		}
	}
}
