// Copyright 2024 The Comunidad Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/transform"

	"comunidad.app/comunichat/internal/api"
	"comunidad.app/comunichat/internal/escape"
	"comunidad.app/comunichat/internal/ui"
)

// historyLine renders a single message for the conversation pane.
// Message bodies pass through the escape transformer so user-provided
// text can never inject styling tags.
func historyLine(msg api.Message) string {
	body, _, err := transform.String(escape.Transformer(), msg.Content)
	if err != nil {
		body = strings.Map(func(r rune) rune {
			if r == '[' || r == ']' {
				return -1
			}
			return r
		}, msg.Content)
	}
	arrow := "←"
	color := "silver"
	if msg.Mine {
		arrow = "→"
		color = "green"
	}
	return fmt.Sprintf("[%s]%s %s[-] %s\n", color, msg.SentAt.Local().Format("15:04"), arrow, body)
}

// writeMessage appends a single message to the open conversation pane.
func writeMessage(pane *ui.UI, msg api.Message) error {
	_, err := io.WriteString(pane.History(), historyLine(msg))
	return err
}

// loadBuffer replaces the conversation pane contents with the full
// message sequence, inserting an unread marker before the first message
// the viewer had not seen yet.
func loadBuffer(pane *ui.UI, msgs []api.Message, firstUnread int64) {
	history := pane.History()
	history.SetText("")
	var buf strings.Builder
	for _, msg := range msgs {
		if firstUnread != 0 && msg.ID == firstUnread {
			// This marker is used by the text view UI to draw the unread line.
			buf.WriteString("─\n")
		}
		buf.WriteString(historyLine(msg))
	}
	history.SetText(buf.String())
	history.ScrollToEnd()
}
