// Copyright 2024 The Comunidad Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"log"

	"comunidad.app/comunichat/internal/api"
	"comunidad.app/comunichat/internal/client"
	"comunidad.app/comunichat/internal/ui"
	"comunidad.app/comunichat/internal/ui/event"
)

// newUIHandler returns a handler for events that are emitted by the UI that
// need to modify the client state.
func newUIHandler(pane *ui.UI, c *client.Client, logger, debug *log.Logger) func(interface{}) {
	p := c.Printer()
	return func(ev interface{}) {
		switch e := ev.(type) {
		case event.OpenConversation:
			go func() {
				defer panicHandler()
				ctx, cancel := context.WithTimeout(context.Background(), c.Timeout())
				defer cancel()
				sess, err := c.OpenConversation(ctx, int64(e))
				if errors.Is(err, client.ErrNotFound) {
					// An id the viewer does not own falls back to the inbox,
					// never an error page.
					pane.Notice(p.Sprintf("Conversation not found"))
					pane.ShowInbox()
					pane.Redraw()
					return
				}
				if err != nil {
					logger.Print(p.Sprintf("error opening conversation %d: %v", int64(e), err))
					return
				}
				pane.ShowChat(sess.Meta())
				pane.Redraw()
			}()
		case event.OpenContact:
			go func() {
				defer panicHandler()
				ctx, cancel := context.WithTimeout(context.Background(), c.Timeout())
				defer cancel()
				sess, err := c.OpenContact(ctx, e.PetitionID, e.ProviderID)
				if err != nil {
					logger.Print(p.Sprintf("error contacting provider %d: %v", e.ProviderID, err))
					pane.Notice(p.Sprintf("Could not open conversation"))
					pane.Redraw()
					return
				}
				pane.ShowChat(sess.Meta())
				pane.Redraw()
			}()
		case event.CloseConversation:
			c.CloseConversation(int64(e))
		case event.SendMessage:
			go func() {
				defer panicHandler()
				ctx, cancel := context.WithTimeout(context.Background(), c.Timeout())
				defer cancel()
				err := c.Send(ctx, e.ConversationID, e.Content)
				switch {
				case errors.Is(err, client.ErrEmptyMessage):
					// The input field already rejects blank sends.
					debug.Print(p.Sprintf("dropped empty message for conversation %d", e.ConversationID))
				case errors.Is(err, client.ErrReadOnly):
					pane.Notice(p.Sprintf("This conversation is closed"))
					pane.Redraw()
				case err != nil:
					logger.Print(p.Sprintf("error sending message: %v", err))
					pane.Notice(p.Sprintf("Could not send message"))
					pane.Redraw()
				}
			}()
		case event.RefreshInbox:
			go func() {
				defer panicHandler()
				ctx, cancel := context.WithTimeout(context.Background(), c.Timeout())
				defer cancel()
				if err := c.RefreshInbox(ctx); err != nil {
					debug.Print(p.Sprintf("error refreshing inbox: %v", err))
				}
			}()
		case event.OpenNotifications:
			go func() {
				defer panicHandler()
				ctx, cancel := context.WithTimeout(context.Background(), c.Timeout())
				defer cancel()
				if err := c.RefreshNotifications(ctx); err != nil {
					debug.Print(p.Sprintf("error refreshing notifications: %v", err))
				}
				pane.ShowNotifications()
				pane.Redraw()
			}()
		case event.ReadNotification:
			go func() {
				defer panicHandler()
				ctx, cancel := context.WithTimeout(context.Background(), c.Timeout())
				defer cancel()
				if err := c.ReadNotification(ctx, api.Notification(e)); err != nil {
					logger.Print(p.Sprintf("error marking notification %d as read: %v", e.ID, err))
					return
				}
				if err := c.RefreshNotifications(ctx); err != nil {
					debug.Print(p.Sprintf("error refreshing notifications: %v", err))
				}
			}()
		case event.ReadAllNotifications:
			go func() {
				defer panicHandler()
				ctx, cancel := context.WithTimeout(context.Background(), c.Timeout())
				defer cancel()
				if err := c.ReadAllNotifications(ctx); err != nil {
					logger.Print(p.Sprintf("error marking notifications as read: %v", err))
				}
			}()
		case event.Logout:
			go func() {
				defer panicHandler()
				if err := c.Logout(); err != nil {
					logger.Print(p.Sprintf("error logging out: %v", err))
				}
				pane.Stop()
			}()
		default:
			debug.Print(p.Sprintf("unrecognized ui event: %T(%[1]q)", e))
		}
	}
}
