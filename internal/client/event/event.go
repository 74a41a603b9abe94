// Copyright 2024 The Comunidad Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package event contains events that may be emitted by the client.
package event // import "comunidad.app/comunichat/internal/client/event"

import (
	"comunidad.app/comunichat/internal/api"
)

type (
	// Connected is sent when a push channel comes up.
	Connected struct {
		Channel string
	}

	// Disconnected is sent when a push channel goes down.
	// The channel keeps reconnecting on its own; this only drives the
	// status indicator.
	Disconnected struct {
		Channel string
	}

	// FetchInbox is sent when the conversation list has been refreshed.
	// Items are sorted most-recently-updated first.
	FetchInbox struct {
		Items []api.Conversation
	}

	// ConversationAdopted is sent when an intent-to-contact open resolved
	// to a concrete conversation id, so the UI can reflect the new
	// addressable location without a full navigation.
	ConversationAdopted struct {
		Conversation api.Conversation
	}

	// HistoryLoaded is sent when a conversation's message sequence has
	// been replaced wholesale (initial load or an accepted poll snapshot).
	HistoryLoaded struct {
		ConversationID int64
		Messages       []api.Message
	}

	// ChatMessage is sent when a single message is appended to the open
	// conversation, whether it arrived by push or was confirmed by a send.
	ChatMessage struct {
		ConversationID int64
		Message        api.Message
	}

	// ConversationRead is sent after a mark-as-read call succeeded for the
	// given conversation.
	ConversationRead int64

	// FetchNotifications is sent when the notification bell has been
	// refreshed.
	FetchNotifications struct {
		Items  []api.Notification
		Total  int64
		Unread int
	}

	// Navigate is sent when a notification with a navigation target was
	// activated. The value is the opaque client-side target.
	Navigate string

	// SyncError is sent for transient, non-fatal failures that should be
	// surfaced as a dismissible notice. The previous state is always left
	// intact.
	SyncError struct {
		Op  string
		Err error
	}
)
