// Copyright 2024 The Comunidad Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"golang.org/x/text/message"
)

const cancelButton = "Cancel"

func modalClose(onEsc func()) func(event *tcell.EventKey) *tcell.EventKey {
	return func(event *tcell.EventKey) *tcell.EventKey {
		if event.Rune() == 'q' || event.Key() == tcell.KeyESC {
			onEsc()
		}
		return event
	}
}

func quitModal(p *message.Printer, done func(buttonIndex int, buttonLabel string)) *tview.Modal {
	return tview.NewModal().
		SetText(p.Sprintf("Are you sure you want to quit?")).
		AddButtons([]string{p.Sprintf("Quit"), p.Sprintf(cancelButton)}).
		SetDoneFunc(done).
		SetBackgroundColor(tview.Styles.PrimitiveBackgroundColor)
}

func logoutModal(p *message.Printer, onEsc func(), onLogout func()) *tview.Modal {
	logoutButton := p.Sprintf("Log out")
	mod := tview.NewModal().
		SetText(p.Sprintf("Log out and close all channels?")).
		SetBackgroundColor(tview.Styles.PrimitiveBackgroundColor).
		AddButtons([]string{p.Sprintf(cancelButton), logoutButton}).
		SetDoneFunc(func(_ int, buttonLabel string) {
			if buttonLabel == logoutButton {
				onLogout()
			}
			onEsc()
		})
	mod.SetInputCapture(modalClose(onEsc))
	return mod
}
