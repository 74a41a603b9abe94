// Copyright 2024 The Comunidad Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package client

import (
	"time"

	"golang.org/x/text/message"

	"comunidad.app/comunichat/internal/storage"
)

// Option is used to configure a client.
type Option func(*Client)

// Timeout sets the per-call timeout for backend requests made from the
// client's own loops.
// If no timeout is provided, the default is 30 seconds.
func Timeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// Handler configures a handler function to be used for events emitted by
// the client.
//
// For a list of events that any handler function may handle, see the
// event package.
func Handler(h func(interface{})) Option {
	return func(c *Client) {
		if h == nil {
			h = noopHandler
		}
		c.handler = h
	}
}

// Storage sets the local cache used to mirror conversations and messages
// for offline display. If unset, no caching is performed.
func Storage(db *storage.DB) Option {
	return func(c *Client) {
		c.db = db
	}
}

// ConversationInterval sets the poll interval for the open conversation's
// message history (default 5s).
func ConversationInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.convInterval = d
		}
	}
}

// InboxInterval sets the poll interval for the conversation list
// (default 30s).
func InboxInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.inboxInterval = d
		}
	}
}

// BellInterval sets the poll interval for the notification bell
// (default 30s).
func BellInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.bellInterval = d
		}
	}
}

// Printer sets the message printer used for user-facing strings.
func Printer(p *message.Printer) Option {
	return func(c *Client) {
		if p != nil {
			c.p = p
		}
	}
}
