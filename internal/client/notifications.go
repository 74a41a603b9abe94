// Copyright 2024 The Comunidad Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package client

import (
	"context"

	"comunidad.app/comunichat/internal/api"
	"comunidad.app/comunichat/internal/client/event"
	"comunidad.app/comunichat/internal/localerr"
)

// RefreshNotifications fetches the first page of notifications together
// with the unread count. The bell is poll-only: no push channel is wired
// for it.
func (c *Client) RefreshNotifications(ctx context.Context) error {
	page, err := c.api.Notifications(ctx, 0, c.bellPageSize)
	if err != nil {
		c.handler(event.SyncError{Op: "notifications", Err: err})
		return err
	}
	unread, err := c.api.UnreadCount(ctx)
	if err != nil {
		c.handler(event.SyncError{Op: "notifications", Err: err})
		return err
	}
	c.handler(event.FetchNotifications{
		Items:  page.Content,
		Total:  page.TotalElements,
		Unread: unread,
	})
	return nil
}

// ReadNotification marks a notification as read (if it is unread) and
// emits a Navigate event when the notification carries a navigation
// target.
func (c *Client) ReadNotification(ctx context.Context, n api.Notification) error {
	if !n.Read {
		if err := c.api.MarkNotificationRead(ctx, n.ID); err != nil {
			return localerr.Wrap(c.p, "error marking notification %d as read: %v", n.ID, err)
		}
	}
	if n.Target != "" {
		c.handler(event.Navigate(n.Target))
	}
	return nil
}

// ReadAllNotifications marks every notification as read and refreshes the
// bell.
func (c *Client) ReadAllNotifications(ctx context.Context) error {
	if err := c.api.MarkAllNotificationsRead(ctx); err != nil {
		return localerr.Wrap(c.p, "error marking notifications as read: %v", err)
	}
	return c.RefreshNotifications(ctx)
}

// Unread reports the unread badge for a conversation, taken verbatim from
// the backend-provided count of the last inbox refresh.
func (c *Client) Unread(id int64) int {
	meta, ok := c.conversationMeta(id)
	if !ok {
		return 0
	}
	return meta.UnreadCount
}
