// Copyright 2024 The Comunidad Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package api

import (
	"time"
)

// Message is a single chat message within a conversation.
// Messages are immutable once created; the backend never edits or deletes
// them, it only reports their existence.
type Message struct {
	ID      int64     `json:"idMessage"`
	Content string    `json:"content"`
	Sender  string    `json:"senderName"`
	Mine    bool      `json:"isMine"`
	SentAt  time.Time `json:"sentAt"`
}

// Conversation is a chat thread scoped to exactly one petition and one
// counterpart participant.
type Conversation struct {
	ID                int64     `json:"idConversation"`
	PetitionID        int64     `json:"petitionId"`
	PetitionTitle     string    `json:"petitionTitle"`
	ParticipantName   string    `json:"participantName"`
	ParticipantAvatar string    `json:"participantAvatar,omitempty"`
	UnreadCount       int       `json:"unreadCount"`
	LastMessage       *string   `json:"lastMessage"`
	UpdatedAt         time.Time `json:"updatedAt"`

	// ReadOnly is set once the underlying petition has been closed,
	// cancelled, or awarded to someone else. No further messages may be
	// sent on a read-only conversation.
	ReadOnly bool `json:"isReadOnly"`
}

// Notification is a generic marketplace notification.
// Target, when present, is an opaque client-side navigation target.
type Notification struct {
	ID        int64     `json:"idNotification"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"isRead"`
	Target    string    `json:"target,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NotificationPage is one page of notifications along with the total
// number of notifications on the server.
type NotificationPage struct {
	Content       []Notification `json:"content"`
	TotalElements int64          `json:"totalElements"`
}
