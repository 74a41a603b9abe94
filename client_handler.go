// Copyright 2024 The Comunidad Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package main

import (
	"log"

	"comunidad.app/comunichat/internal/api"
	"comunidad.app/comunichat/internal/client"
	"comunidad.app/comunichat/internal/client/event"
	"comunidad.app/comunichat/internal/ui"
	uievent "comunidad.app/comunichat/internal/ui/event"
)

// newClientHandler returns a handler for events that are emitted by the
// client that need to modify the UI.
func newClientHandler(c *client.Client, pane *ui.UI, logger, debug *log.Logger) func(interface{}) {
	p := c.Printer()
	return func(ev interface{}) {
		switch e := ev.(type) {
		case event.Connected:
			debug.Print(p.Sprintf("channel %q is up", e.Channel))
			pane.Online()
			pane.Redraw()
		case event.Disconnected:
			debug.Print(p.Sprintf("channel %q is down", e.Channel))
			pane.Offline()
			pane.Redraw()
		case event.FetchInbox:
			pane.Inbox().Set(e.Items, func(conv api.Conversation) {
				pane.Handler()(uievent.OpenConversation(conv.ID))
			})
			pane.Redraw()
		case event.ConversationAdopted:
			debug.Print(p.Sprintf("conversation %d adopted for petition %d", e.Conversation.ID, e.Conversation.PetitionID))
		case event.HistoryLoaded:
			var firstUnread int64
			if item, ok := pane.Inbox().GetItem(e.ConversationID); ok {
				if n := item.UnreadCount; n > 0 && n <= len(e.Messages) {
					firstUnread = e.Messages[len(e.Messages)-n].ID
				}
			}
			loadBuffer(pane, e.Messages, firstUnread)
			pane.Redraw()
		case event.ChatMessage:
			chat, open := pane.CurrentChat()
			if !open || chat.ID != e.ConversationID {
				// The inbox refresh triggered by the push updates the badge.
				return
			}
			if err := writeMessage(pane, e.Message); err != nil {
				logger.Print(p.Sprintf("error writing message to chat: %v", err))
			}
			pane.Redraw()
		case event.ConversationRead:
			pane.Inbox().MarkRead(int64(e))
			pane.Redraw()
		case event.FetchNotifications:
			pane.Notifications().Set(e.Items, e.Unread, func(n api.Notification) {
				pane.Handler()(uievent.ReadNotification(n))
			})
			pane.Redraw()
		case event.Navigate:
			debug.Print(p.Sprintf("navigation requested: %s", string(e)))
			pane.Notice(p.Sprintf("Open %s in the web app", string(e)))
			pane.Redraw()
		case event.SyncError:
			debug.Print(p.Sprintf("sync error during %s: %v", e.Op, e.Err))
			pane.Notice(p.Sprintf("Temporarily out of sync, retrying"))
			pane.Redraw()
		default:
			debug.Print(p.Sprintf("unrecognized client event: %T(%[1]q)", e))
		}
	}
}
