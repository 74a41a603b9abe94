// Copyright 2024 The Comunidad Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ui

import (
	"bytes"
	"fmt"
	"strconv"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"comunidad.app/comunichat/internal/api"
)

// InboxItem represents a conversation in the inbox pane.
type InboxItem struct {
	api.Conversation
	idx int
}

// Inbox is a tview.Primitive that draws the conversation list, most
// recently updated first. Ordering is owned by the synchronizer; the
// widget renders whatever Set is given in the order it is given.
type Inbox struct {
	items    map[int64]InboxItem
	order    []int64
	itemLock *sync.Mutex
	list     *tview.List
}

// newInbox creates a new inbox widget.
func newInbox() *Inbox {
	i := &Inbox{
		items:    make(map[int64]InboxItem),
		itemLock: &sync.Mutex{},
		list:     tview.NewList(),
	}
	i.list.SetTitle("Conversations")
	i.list.SetBorder(true).
		SetBorderPadding(0, 0, 1, 0)

	events := &bytes.Buffer{}
	m := &sync.Mutex{}
	i.list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event == nil || event.Key() != tcell.KeyRune {
			return event
		}

		m.Lock()
		defer m.Unlock()
		/* #nosec */
		events.WriteRune(event.Rune())

		switch event.Rune() {
		case 'i':
			events.Reset()
			return tcell.NewEventKey(tcell.KeyCR, 0, tcell.ModNone)
		case 'k':
			if events.Len() > 1 {
				n, err := strconv.Atoi(events.String()[0 : events.Len()-1])
				if err == nil {
					i.moveBy(-n)
					events.Reset()
					return nil
				}
			}
			events.Reset()
			i.moveBy(-1)
			return nil
		case 'j':
			if events.Len() > 1 {
				n, err := strconv.Atoi(events.String()[0 : events.Len()-1])
				if err == nil {
					i.moveBy(n)
					events.Reset()
					return nil
				}
			}
			events.Reset()
			i.moveBy(1)
			return nil
		case 'G':
			events.Reset()
			i.list.SetCurrentItem(i.list.GetItemCount() - 1)
			return nil
		case 'g':
			if events.String() == "gg" {
				events.Reset()
				i.list.SetCurrentItem(0)
			}
			return nil
		case '1', '2', '3', '4', '5', '6', '7', '8', '9', '0':
			return nil
		}

		return event
	})

	return i
}

func (i *Inbox) moveBy(n int) {
	cur := i.list.GetCurrentItem() + n
	if m := i.list.GetItemCount() - 1; cur > m {
		cur = m
	}
	if cur < 0 {
		cur = 0
	}
	i.list.SetCurrentItem(cur)
}

var highlightTag = fmt.Sprintf("[#%06x::b]", tview.Styles.ContrastSecondaryTextColor.Hex())

func itemText(conv api.Conversation) (primary, secondary string) {
	primary = tview.Escape(conv.ParticipantName)
	switch {
	case conv.UnreadCount > 0:
		primary = fmt.Sprintf("%s%s (%d)", highlightTag, primary, conv.UnreadCount)
	case conv.ReadOnly:
		primary += " ⊘"
	}
	secondary = tview.Escape(conv.PetitionTitle)
	if conv.LastMessage != nil {
		secondary += ": " + tview.Escape(*conv.LastMessage)
	}
	return primary, secondary
}

// Set replaces the entire inbox with the provided conversations,
// preserving the current selection by conversation id where possible.
func (i *Inbox) Set(convs []api.Conversation, action func(api.Conversation)) {
	i.itemLock.Lock()
	defer i.itemLock.Unlock()

	var selected int64 = -1
	if cur := i.list.GetCurrentItem(); cur >= 0 && cur < len(i.order) {
		selected = i.order[cur]
	}

	i.list.Clear()
	i.items = make(map[int64]InboxItem, len(convs))
	i.order = i.order[:0]
	for idx, conv := range convs {
		conv := conv
		primary, secondary := itemText(conv)
		i.list.AddItem(primary, secondary, 0, func() { action(conv) })
		i.items[conv.ID] = InboxItem{Conversation: conv, idx: idx}
		i.order = append(i.order, conv.ID)
		if conv.ID == selected {
			i.list.SetCurrentItem(idx)
		}
	}
}

// MarkRead clears the unread badge of a conversation without waiting for
// the next refresh.
func (i *Inbox) MarkRead(id int64) {
	i.itemLock.Lock()
	defer i.itemLock.Unlock()

	item, ok := i.items[id]
	if !ok {
		return
	}
	item.UnreadCount = 0
	i.items[id] = item
	primary, secondary := itemText(item.Conversation)
	i.list.SetItemText(item.idx, primary, secondary)
}

// Unread returns whether the conversation currently shows an unread badge.
// If no such conversation exists, it returns false.
func (i *Inbox) Unread(id int64) bool {
	i.itemLock.Lock()
	defer i.itemLock.Unlock()

	item, ok := i.items[id]
	if !ok {
		return false
	}
	return item.UnreadCount > 0
}

// GetItem returns the inbox item for the given conversation id.
func (i *Inbox) GetItem(id int64) (InboxItem, bool) {
	i.itemLock.Lock()
	defer i.itemLock.Unlock()

	item, ok := i.items[id]
	return item, ok
}

// GetSelected returns the currently selected conversation.
func (i *Inbox) GetSelected() (InboxItem, bool) {
	i.itemLock.Lock()
	defer i.itemLock.Unlock()

	cur := i.list.GetCurrentItem()
	if cur < 0 || cur >= len(i.order) {
		return InboxItem{}, false
	}
	item, ok := i.items[i.order[cur]]
	return item, ok
}

// Len returns the number of conversations in the inbox.
func (i *Inbox) Len() int {
	i.itemLock.Lock()
	defer i.itemLock.Unlock()
	return len(i.items)
}

// OnChanged sets a callback for when the user navigates to an inbox item.
func (i *Inbox) OnChanged(f func(int, string, string, rune)) {
	i.list.SetChangedFunc(f)
}

// Draw implements tview.Primitive for Inbox.
func (i *Inbox) Draw(screen tcell.Screen) {
	i.list.Draw(screen)
}

// GetRect implements tview.Primitive for Inbox.
func (i *Inbox) GetRect() (int, int, int, int) {
	return i.list.GetRect()
}

// SetRect implements tview.Primitive for Inbox.
func (i *Inbox) SetRect(x, y, width, height int) {
	i.list.SetRect(x, y, width, height)
}

// InputHandler implements tview.Primitive for Inbox.
func (i *Inbox) InputHandler() func(event *tcell.EventKey, setFocus func(p tview.Primitive)) {
	return i.list.InputHandler()
}

// Focus implements tview.Primitive for Inbox.
func (i *Inbox) Focus(delegate func(p tview.Primitive)) {
	i.list.Focus(delegate)
}

// Blur implements tview.Primitive for Inbox.
func (i *Inbox) Blur() {
	i.list.Blur()
}

// HasFocus implements tview.Primitive for Inbox.
func (i *Inbox) HasFocus() bool {
	return i.list.HasFocus()
}

// MouseHandler implements tview.Primitive for Inbox.
func (i *Inbox) MouseHandler() func(tview.MouseAction, *tcell.EventMouse, func(tview.Primitive)) (bool, tview.Primitive) {
	return i.list.MouseHandler()
}
