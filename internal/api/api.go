// Copyright 2024 The Comunidad Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package api implements the REST client for the Comunidad marketplace
// backend.
package api // import "comunidad.app/comunichat/internal/api"

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Error is returned for any response outside the 2xx range.
type Error struct {
	Status int
	Body   string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api: unexpected status %d (%s)", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api: unexpected status %d: %s", e.Status, e.Body)
}

// Client is a thin wrapper around an HTTP client that attaches the current
// session token to every request.
// The token source is called per request so that token rotation between
// calls is picked up automatically.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      func() string
	debug      *log.Logger
}

// New returns a client for the backend rooted at baseURL.
// The token function may return an empty string, in which case no
// Authorization header is attached.
func New(baseURL string, token func() string, debug *log.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		debug:      debug,
	}
}

// HTTPClient replaces the underlying HTTP client.
// It is primarily useful for tuning timeouts.
func (c *Client) HTTPClient(hc *http.Client) {
	if hc != nil {
		c.httpClient = hc
	}
}

const maxErrBody = 2048

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var r io.Reader
	if body != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return fmt.Errorf("api: error encoding request body: %w", err)
		}
		r = buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.debug.Printf("error closing response body for %s %s: %v", method, path, err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		if err != nil {
			c.debug.Printf("error reading error body for %s %s: %v", method, path, err)
		}
		return &Error{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: error decoding response for %s %s: %w", method, path, err)
	}
	return nil
}

// Conversations fetches all of the viewer's conversations.
func (c *Client) Conversations(ctx context.Context) ([]Conversation, error) {
	var convs []Conversation
	err := c.do(ctx, http.MethodGet, "/chat/conversations", nil, &convs)
	return convs, err
}

// GetOrCreateConversation returns the conversation for the given petition
// and provider, creating it on the backend if it does not exist yet.
// The call is idempotent.
func (c *Client) GetOrCreateConversation(ctx context.Context, petitionID, providerID int64) (Conversation, error) {
	req := struct {
		PetitionID int64 `json:"petitionId"`
		ProviderID int64 `json:"providerId"`
	}{PetitionID: petitionID, ProviderID: providerID}
	var conv Conversation
	err := c.do(ctx, http.MethodPost, "/chat/conversations", req, &conv)
	return conv, err
}

// Messages fetches the message history of a conversation in chronological
// order.
func (c *Client) Messages(ctx context.Context, convID int64) ([]Message, error) {
	var msgs []Message
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/chat/conversations/%d/messages", convID), nil, &msgs)
	return msgs, err
}

// SendMessage posts a new message and returns the server-confirmed copy
// (including its assigned id).
func (c *Client) SendMessage(ctx context.Context, convID int64, content string) (Message, error) {
	req := struct {
		Content string `json:"content"`
	}{Content: content}
	var msg Message
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/chat/conversations/%d/messages", convID), req, &msg)
	return msg, err
}

// MarkRead marks every message in the conversation as read by the viewer.
func (c *Client) MarkRead(ctx context.Context, convID int64) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/chat/conversations/%d/read", convID), nil, nil)
}

// Notifications fetches one page of the viewer's notifications.
func (c *Client) Notifications(ctx context.Context, page, size int) (NotificationPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	var p NotificationPage
	err := c.do(ctx, http.MethodGet, "/notifications?"+q.Encode(), nil, &p)
	return p, err
}

// UnreadCount fetches the number of unread notifications.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var n int
	err := c.do(ctx, http.MethodGet, "/notifications/unread-count", nil, &n)
	return n, err
}

// MarkNotificationRead marks a single notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/notifications/%d/read", id), nil, nil)
}

// MarkAllNotificationsRead marks every notification as read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, "/notifications/read-all", nil, nil)
}
