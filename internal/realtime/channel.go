// Copyright 2024 The Comunidad Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
)

// State is the connection state of a channel.
type State int

const (
	// Connecting means a dial is in progress or scheduled.
	Connecting State = iota
	// Connected means the channel has a live connection.
	Connected
	// Disconnected means the last connection was lost and a redial has not
	// succeeded yet.
	Disconnected
	// Destroyed is the terminal state reached by Manager.TeardownAll.
	Destroyed
)

// String implements fmt.Stringer for State.
func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	case Destroyed:
		return "destroyed"
	}
	return "unknown"
}

// envelope is the wire framing for both directions of a channel.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// auth is the connection-time credential frame sent after every dial.
type auth struct {
	Token string `json:"token"`
}

// Channel is one named duplex connection to the backend.
// It holds no business state; everything it learns is surfaced as events
// on the manager's handler.
type Channel struct {
	name    string
	url     string
	token   func() string
	handler func(interface{})
	dialer  *websocket.Dialer
	debug   *log.Logger
	recv    io.Writer
	sent    io.Writer

	initialRetry time.Duration
	maxRetry     time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	state  State
	redial chan struct{}
	done   chan struct{}

	closeOnce sync.Once
}

// Name returns the logical channel name.
func (ch *Channel) Name() string {
	return ch.name
}

// State returns the current connection state.
func (ch *Channel) State() State {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.state
}

// Emit sends a client→server event on the channel.
// It returns an error if the channel is not currently connected; callers
// are expected to fall back to the REST path.
func (ch *Channel) Emit(event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	ch.mu.Lock()
	conn := ch.conn
	ch.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	if ch.sent != nil {
		if b, err := json.Marshal(envelope{Event: event, Data: data}); err == nil {
			_, _ = ch.sent.Write(b)
		}
	}
	return conn.WriteJSON(envelope{Event: event, Data: data})
}

// kick requests an immediate redial, skipping any backoff wait in
// progress. It is a no-op if the channel is connected or destroyed.
func (ch *Channel) kick() {
	select {
	case ch.redial <- struct{}{}:
	default:
	}
}

// teardown permanently shuts the channel down.
func (ch *Channel) teardown() {
	ch.closeOnce.Do(func() {
		ch.mu.Lock()
		ch.state = Destroyed
		conn := ch.conn
		ch.conn = nil
		ch.mu.Unlock()
		close(ch.done)
		if conn != nil {
			if err := conn.Close(); err != nil {
				ch.debug.Printf("error closing %q channel: %v", ch.name, err)
			}
		}
	})
}

// run owns the connection for the life of the channel: dial, authenticate,
// read until failure, back off, redial. Backoff starts at initialRetry and
// grows exponentially (with jitter) to maxRetry; there is no attempt limit,
// the loop only ends at teardown.
func (ch *Channel) run() {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = ch.initialRetry
	policy.MaxInterval = ch.maxRetry
	policy.MaxElapsedTime = 0

	for {
		select {
		case <-ch.done:
			return
		default:
		}

		conn, err := ch.dial()
		if err != nil {
			ch.debug.Printf("error dialing %q channel: %v", ch.name, err)
			ch.setState(Disconnected)
			if !ch.wait(policy.NextBackOff()) {
				return
			}
			continue
		}
		policy.Reset()

		ch.mu.Lock()
		if ch.state == Destroyed {
			ch.mu.Unlock()
			_ = conn.Close()
			return
		}
		ch.conn = conn
		ch.state = Connected
		ch.mu.Unlock()
		ch.handler(ChannelUp{Channel: ch.name})

		ch.readLoop(conn)

		ch.mu.Lock()
		destroyed := ch.state == Destroyed
		if !destroyed {
			ch.state = Disconnected
		}
		ch.conn = nil
		ch.mu.Unlock()
		if err := conn.Close(); err != nil {
			ch.debug.Printf("error closing %q channel connection: %v", ch.name, err)
		}
		if destroyed {
			return
		}
		ch.handler(ChannelDown{Channel: ch.name})
	}
}

func (ch *Channel) dial() (*websocket.Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	conn, _, err := ch.dialer.DialContext(ctx, ch.url, nil)
	if err != nil {
		return nil, err
	}
	// Credentials are re-sent on every dial so that a token rotated while
	// the channel was down is picked up on reconnect.
	data, err := json.Marshal(auth{Token: ch.token()})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := conn.WriteJSON(envelope{Event: "auth", Data: data}); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func (ch *Channel) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-ch.done:
			default:
				ch.debug.Printf("error reading from %q channel: %v", ch.name, err)
			}
			return
		}
		if ch.recv != nil {
			_, _ = ch.recv.Write(data)
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			ch.debug.Printf("error decoding frame from %q channel: %v", ch.name, err)
			continue
		}
		ch.handler(Raw{Channel: ch.name, Event: env.Event, Data: env.Data})
	}
}

func (ch *Channel) setState(s State) {
	ch.mu.Lock()
	if ch.state != Destroyed {
		ch.state = s
	}
	ch.mu.Unlock()
}

// wait sleeps for d or until a redial is requested. It returns false if
// the channel was torn down while waiting.
func (ch *Channel) wait(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ch.done:
		return false
	case <-ch.redial:
		return true
	case <-t.C:
		return true
	}
}
