// Copyright 2024 The Comunidad Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package event contains events that may be emitted by the UI.
package event // import "comunidad.app/comunichat/internal/ui/event"

import (
	"comunidad.app/comunichat/internal/api"
)

type (
	// OpenConversation is sent when an inbox item is selected.
	OpenConversation int64

	// OpenContact is sent when the user initiates contact about a petition
	// with a provider and no conversation exists yet.
	OpenContact struct {
		PetitionID int64
		ProviderID int64
	}

	// CloseConversation is sent when the chat view is closed.
	CloseConversation int64

	// SendMessage is sent when the user submits the input field.
	SendMessage struct {
		ConversationID int64
		Content        string
	}

	// RefreshInbox is sent when the user explicitly refreshes the inbox.
	RefreshInbox struct{}

	// OpenNotifications is sent when the notification bell is opened.
	OpenNotifications struct{}

	// ReadNotification is sent when a notification is activated.
	ReadNotification api.Notification

	// ReadAllNotifications is sent when the user clears the bell.
	ReadAllNotifications struct{}

	// Logout is sent when the user confirms the logout modal.
	Logout struct{}
)
