// Copyright 2024 The Comunidad Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package client synchronizes chat state with the Comunidad backend.
//
// It reconciles three independent arrival paths for every piece of state
// it owns: an initial REST fetch, a fixed-interval poll as a liveness
// fallback, and push events from the realtime channels. Consumers observe
// all changes through a single handler function; see the event package for
// the events it may receive.
package client // import "comunidad.app/comunichat/internal/client"

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"golang.org/x/text/message"

	"comunidad.app/comunichat/internal/api"
	"comunidad.app/comunichat/internal/client/event"
	"comunidad.app/comunichat/internal/realtime"
	"comunidad.app/comunichat/internal/session"
	"comunidad.app/comunichat/internal/storage"
)

// The chat channel carries per-conversation message pushes; its
// new-message event doubles as the "inbox changed" signal.
const (
	chatChannel     = "chat"
	newMessageEvent = "chat.new-message"
)

func noopHandler(interface{}) {}

// Client keeps the viewer's chat state in sync with the backend.
type Client struct {
	api     *api.Client
	rt      *realtime.Manager
	session *session.Session
	db      *storage.DB
	logger  *log.Logger
	debug   *log.Logger
	handler func(interface{})
	p       *message.Printer

	timeout       time.Duration
	convInterval  time.Duration
	inboxInterval time.Duration
	bellInterval  time.Duration
	bellPageSize  int

	mu      sync.Mutex
	inbox   []api.Conversation
	conv    *ConversationSession
	done    chan struct{}
	started bool
}

// New creates a client for the given transport, channel manager, and
// session. The channel manager may be nil, in which case no push events
// are received and the client relies on polling alone.
func New(apiClient *api.Client, rt *realtime.Manager, sess *session.Session, logger, debug *log.Logger, opts ...Option) *Client {
	c := &Client{
		api:           apiClient,
		rt:            rt,
		session:       sess,
		logger:        logger,
		debug:         debug,
		handler:       noopHandler,
		p:             message.NewPrinter(message.MatchLanguage("en")),
		timeout:       30 * time.Second,
		convInterval:  5 * time.Second,
		inboxInterval: 30 * time.Second,
		bellInterval:  30 * time.Second,
		bellPageSize:  20,
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if rt != nil {
		rt.Handler(c.HandleRealtime)
		// Channels must come down before the token goes away.
		sess.OnClear(rt.TeardownAll)
	}
	return c
}

// Handler configures a handler function to be used for events emitted by
// the client.
//
// For a list of events that any handler function may handle, see the
// event package.
func (c *Client) Handler(h func(interface{})) {
	if h == nil {
		h = noopHandler
	}
	c.handler = h
}

// Printer returns the message printer that the client is using for
// translations.
func (c *Client) Printer() *message.Printer {
	return c.p
}

// Timeout is the per-call timeout used for backend requests made from the
// client's own loops.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Start connects the chat push channel and starts the inbox and
// notification poll loops. It may be called once; subsequent calls are
// no-ops.
func (c *Client) Start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	done := c.done
	c.mu.Unlock()

	if c.rt != nil {
		c.rt.Get(chatChannel)
	}
	go c.pollLoop(done, c.inboxInterval, "inbox", c.RefreshInbox)
	go c.pollLoop(done, c.bellInterval, "notifications", c.RefreshNotifications)
}

// Stop cancels the poll loops and closes the open conversation, if any.
// Push channels are left to the session teardown hook.
func (c *Client) Stop() {
	c.mu.Lock()
	started := c.started
	c.started = false
	done := c.done
	c.done = make(chan struct{})
	conv := c.conv
	c.conv = nil
	c.mu.Unlock()

	if started {
		close(done)
	}
	if conv != nil {
		conv.Close()
	}
}

// Logout stops all synchronization and clears the session.
// The session runs its clear hooks (tearing down the push channels) before
// the token is wiped.
func (c *Client) Logout() error {
	c.Stop()
	return c.session.Clear()
}

// pollLoop runs refresh on a fixed interval until done is closed.
// Failures are surfaced by the refresh functions themselves; the loop
// never stops on error.
func (c *Client) pollLoop(done <-chan struct{}, interval time.Duration, name string, refresh func(context.Context) error) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		err := refresh(ctx)
		cancel()
		if err != nil {
			c.debug.Printf("error polling %s: %v", name, err)
		}
		// A refresh may have raced teardown; never let its result leak
		// past Stop.
		select {
		case <-done:
			return
		default:
		}
	}
}

// newMessagePush is the payload of a chat.new-message event.
type newMessagePush struct {
	ConversationID int64       `json:"conversationId"`
	Message        api.Message `json:"message"`
}

// HandleRealtime dispatches events delivered by the channel manager.
func (c *Client) HandleRealtime(ev interface{}) {
	switch e := ev.(type) {
	case realtime.ChannelUp:
		c.handler(event.Connected{Channel: e.Channel})
	case realtime.ChannelDown:
		c.handler(event.Disconnected{Channel: e.Channel})
	case realtime.Raw:
		if e.Channel != chatChannel || e.Event != newMessageEvent {
			c.debug.Printf("unrecognized realtime event: %s on %q", e.Event, e.Channel)
			return
		}
		var push newMessagePush
		if err := json.Unmarshal(e.Data, &push); err != nil {
			c.debug.Printf("error decoding %s payload: %v", newMessageEvent, err)
			return
		}
		if conv := c.current(); conv != nil {
			conv.push(push.ConversationID, push.Message)
		}
		// The push carries no inbox payload, only "something changed":
		// refetch the whole list. The caller is the channel read loop, so
		// the refetch must not block it.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
			defer cancel()
			if err := c.RefreshInbox(ctx); err != nil {
				c.debug.Printf("error refreshing inbox after push: %v", err)
			}
		}()
	default:
		c.debug.Printf("unrecognized realtime event: %T(%[1]q)", e)
	}
}

// Send posts text to the currently open conversation.
// ErrNotFound is returned when no conversation is open or the open
// conversation does not match convID.
func (c *Client) Send(ctx context.Context, convID int64, text string) error {
	conv := c.current()
	if conv == nil || conv.meta.ID != convID {
		return ErrNotFound
	}
	return conv.Send(ctx, text)
}

// CloseConversation closes the open conversation session if its id
// matches convID. A late close for a conversation that is no longer
// current is a no-op.
func (c *Client) CloseConversation(convID int64) {
	if conv := c.current(); conv != nil && conv.meta.ID == convID {
		conv.Close()
	}
}

func (c *Client) current() *ConversationSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv
}

func (c *Client) setCurrent(s *ConversationSession) {
	c.mu.Lock()
	prev := c.conv
	c.conv = s
	c.mu.Unlock()
	if prev != nil && prev != s {
		prev.Close()
	}
}

// clearCurrent detaches s if it is still the open conversation.
func (c *Client) clearCurrent(s *ConversationSession) {
	c.mu.Lock()
	if c.conv == s {
		c.conv = nil
	}
	c.mu.Unlock()
}
