// Copyright 2024 The Comunidad Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ui

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"comunidad.app/comunichat/internal/api"
)

// Notifications is a tview.Primitive that draws the notification bell
// contents. Unread notifications are highlighted.
type Notifications struct {
	items    []api.Notification
	itemLock *sync.Mutex
	list     *tview.List
	unread   int
}

// newNotifications creates a new notifications widget.
func newNotifications() *Notifications {
	n := &Notifications{
		itemLock: &sync.Mutex{},
		list:     tview.NewList(),
	}
	n.list.SetTitle("Notifications")
	n.list.SetBorder(true).
		SetBorderPadding(0, 0, 1, 0)
	return n
}

// Set replaces the entire notification list.
func (n *Notifications) Set(items []api.Notification, unread int, action func(api.Notification)) {
	n.itemLock.Lock()
	defer n.itemLock.Unlock()

	n.items = items
	n.unread = unread
	if unread > 0 {
		n.list.SetTitle(fmt.Sprintf("Notifications (%d)", unread))
	} else {
		n.list.SetTitle("Notifications")
	}

	n.list.Clear()
	for _, item := range items {
		item := item
		primary := tview.Escape(item.Title)
		if !item.Read {
			primary = highlightTag + primary
		}
		n.list.AddItem(primary, tview.Escape(item.Body), 0, func() { action(item) })
	}
}

// Unread returns the unread count from the most recent Set.
func (n *Notifications) Unread() int {
	n.itemLock.Lock()
	defer n.itemLock.Unlock()
	return n.unread
}

// Len returns the number of notifications in the list.
func (n *Notifications) Len() int {
	n.itemLock.Lock()
	defer n.itemLock.Unlock()
	return len(n.items)
}

// Draw implements tview.Primitive for Notifications.
func (n *Notifications) Draw(screen tcell.Screen) {
	n.list.Draw(screen)
}

// GetRect implements tview.Primitive for Notifications.
func (n *Notifications) GetRect() (int, int, int, int) {
	return n.list.GetRect()
}

// SetRect implements tview.Primitive for Notifications.
func (n *Notifications) SetRect(x, y, width, height int) {
	n.list.SetRect(x, y, width, height)
}

// InputHandler implements tview.Primitive for Notifications.
func (n *Notifications) InputHandler() func(event *tcell.EventKey, setFocus func(p tview.Primitive)) {
	return n.list.InputHandler()
}

// Focus implements tview.Primitive for Notifications.
func (n *Notifications) Focus(delegate func(p tview.Primitive)) {
	n.list.Focus(delegate)
}

// Blur implements tview.Primitive for Notifications.
func (n *Notifications) Blur() {
	n.list.Blur()
}

// HasFocus implements tview.Primitive for Notifications.
func (n *Notifications) HasFocus() bool {
	return n.list.HasFocus()
}

// MouseHandler implements tview.Primitive for Notifications.
func (n *Notifications) MouseHandler() func(tview.MouseAction, *tcell.EventMouse, func(tview.Primitive)) (bool, tview.Primitive) {
	return n.list.MouseHandler()
}

// SetInputCapture passes calls through to the underlying list.
func (n *Notifications) SetInputCapture(capture func(event *tcell.EventKey) *tcell.EventKey) *tview.Box {
	return n.list.SetInputCapture(capture)
}
