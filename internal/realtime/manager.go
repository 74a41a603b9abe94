// Copyright 2024 The Comunidad Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package realtime manages the named duplex push channels of the
// marketplace backend.
//
// The manager owns at most one live connection per logical channel name
// ("chat", "notifications"). Connections authenticate with the current
// session token on every dial and reconnect on their own with exponential
// backoff (500ms initial, 30s cap, unlimited retries) until torn down.
package realtime // import "comunidad.app/comunichat/internal/realtime"

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrNotConnected is returned by Emit when a channel has no live
// connection.
var ErrNotConnected = errors.New("realtime: channel not connected")

type (
	// Raw is delivered for every server→client event frame.
	// Data is left undecoded; the consumer knows the payload shape for the
	// events it cares about.
	Raw struct {
		Channel string
		Event   string
		Data    json.RawMessage
	}

	// ChannelUp is delivered when a channel (re)connects.
	ChannelUp struct {
		Channel string
	}

	// ChannelDown is delivered when a channel loses its connection.
	// The channel keeps redialing on its own; this event is informational.
	ChannelDown struct {
		Channel string
	}
)

func noopHandler(interface{}) {}

// Manager is a registry of push channels keyed by name.
// It holds no business state: everything observable happens through the
// configured handler.
type Manager struct {
	baseURL string
	token   func() string
	debug   *log.Logger
	dialer  *websocket.Dialer
	recv    io.Writer
	sent    io.Writer

	initialRetry time.Duration
	maxRetry     time.Duration

	mu       sync.Mutex
	handler  func(interface{})
	channels map[string]*Channel
	gen      uint64
}

// Option is used to configure a new manager.
type Option func(*Manager)

// Backoff overrides the reconnect backoff bounds.
// It is primarily useful for tests.
func Backoff(initial, max time.Duration) Option {
	return func(m *Manager) {
		m.initialRetry = initial
		m.maxRetry = max
	}
}

// Tee mirrors raw channel frames to the underlying writers similar to the
// tee(1) command.
// If a nil writer is provided for either argument, that direction is not
// mirrored.
func Tee(recv, sent io.Writer) Option {
	return func(m *Manager) {
		m.recv = recv
		m.sent = sent
	}
}

// NewManager returns a manager that derives channel URLs from baseURL
// (an http or https URL; the scheme is rewritten for websockets) and
// authenticates every dial with the token returned by token.
func NewManager(baseURL string, token func() string, debug *log.Logger, opts ...Option) *Manager {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		baseURL = "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		baseURL = "ws://" + strings.TrimPrefix(baseURL, "http://")
	}
	m := &Manager{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		token:        token,
		debug:        debug,
		dialer:       websocket.DefaultDialer,
		handler:      noopHandler,
		channels:     make(map[string]*Channel),
		initialRetry: 500 * time.Millisecond,
		maxRetry:     30 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handler configures a handler function to be used for events emitted by
// the managed channels.
func (m *Manager) Handler(h func(interface{})) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h == nil {
		h = noopHandler
	}
	m.handler = h
}

// Get returns the channel registered under name, creating and connecting
// it if it does not exist. If the channel exists but is currently
// disconnected, an immediate redial (with fresh credentials) is requested
// before returning.
//
// Connection failures are never returned to the caller; the channel
// retries in the background and failures are visible only as debug logs
// and ChannelDown events.
func (m *Manager) Get(name string) *Channel {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, ok := m.channels[name]
	if ok {
		if ch.State() == Disconnected {
			ch.kick()
		}
		return ch
	}

	ch = &Channel{
		name:         name,
		url:          m.baseURL + "/" + name,
		token:        m.token,
		handler:      m.guarded(m.gen),
		dialer:       m.dialer,
		debug:        m.debug,
		recv:         m.recv,
		sent:         m.sent,
		initialRetry: m.initialRetry,
		maxRetry:     m.maxRetry,
		state:        Connecting,
		redial:       make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
	m.channels[name] = ch
	go ch.run()
	return ch
}

// TeardownAll disconnects and discards every held channel.
// It must be called on logout, before the session token is cleared, so
// that no stale-token reconnect can occur and no further events are
// delivered. A later Get recreates channels from scratch.
func (m *Manager) TeardownAll() {
	m.mu.Lock()
	channels := m.channels
	m.channels = make(map[string]*Channel)
	m.gen++
	m.mu.Unlock()

	for _, ch := range channels {
		ch.teardown()
	}
}

// guarded wraps the current handler so that events from channels created
// before a teardown are dropped instead of delivered: a stale handle must
// never update state bound to a destroyed view.
func (m *Manager) guarded(gen uint64) func(interface{}) {
	return func(ev interface{}) {
		m.mu.Lock()
		h := m.handler
		live := m.gen == gen
		m.mu.Unlock()
		if !live {
			return
		}
		h(ev)
	}
}
