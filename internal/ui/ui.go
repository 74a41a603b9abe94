// Copyright 2024 The Comunidad Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package ui ties together various widgets to create the main Comunichat UI.
package ui // import "comunidad.app/comunichat/internal/ui"

import (
	"io"
	"log"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"golang.org/x/text/message"

	"comunidad.app/comunichat/internal/api"
	"comunidad.app/comunichat/internal/ui/event"
)

const (
	inboxPageName         = "inbox"
	chatPageName          = "chat"
	notificationsPageName = "notifications"
	logsPageName          = "logs"
	quitPageName          = "quit"
	logoutPageName        = "logout"
)

// UI is a widget that combines other widgets to make the main UI.
type UI struct {
	app           *tview.Application
	flex          *tview.Flex
	pages         *tview.Pages
	inbox         *Inbox
	notifications *Notifications
	history       *tview.TextView
	input         *tview.InputField
	statusBar     *tview.TextView
	logWriter     io.Writer
	handler       func(interface{})
	debug         *log.Logger
	p             *message.Printer
	inboxWidth    int
	defaultLog    string

	chatLock sync.Mutex
	chat     api.Conversation
	chatOpen bool
}

// Option can be used to configure a new UI.
type Option func(*UI)

// InboxWidth returns an option that sets the width of the inbox pane.
// It accepts a minimum of 2 and a max of 50, the default is 25.
func InboxWidth(width int) Option {
	return func(ui *UI) {
		if width == 0 {
			ui.inboxWidth = 25
			return
		}
		if width < 2 {
			ui.inboxWidth = 2
			return
		}
		if width > 50 {
			ui.inboxWidth = 50
			return
		}
		ui.inboxWidth = width
	}
}

// Log returns an option that sets the default string to show in the log
// window on startup.
func Log(s string) Option {
	return func(ui *UI) {
		ui.defaultLog = s
	}
}

// Debug returns an option that sets the debug logger of the UI.
func Debug(l *log.Logger) Option {
	return func(ui *UI) {
		ui.debug = l
	}
}

// Handle returns an option that configures an event handler which will be
// called when the user performs certain actions in the UI.
// Only one handler can be registered, and subsequent calls to Handle will
// replace the handler.
// The function will be called synchronously on the UI goroutine, so don't
// do any intensive work (or, if you must, launch a new goroutine).
func Handle(handler func(interface{})) Option {
	return func(ui *UI) {
		ui.handler = handler
	}
}

// Printer returns an option that sets the message printer used for
// translating strings in the UI.
func Printer(p *message.Printer) Option {
	return func(ui *UI) {
		ui.p = p
	}
}

// New constructs a new UI.
func New(opts ...Option) *UI {
	app := tview.NewApplication()
	pages := tview.NewPages()
	statusBar := tview.NewTextView()
	statusBar.SetBorder(true)

	ui := &UI{
		app:        app,
		pages:      pages,
		statusBar:  statusBar,
		inboxWidth: 25,
		handler:    func(interface{}) {},
		debug:      log.New(io.Discard, "", 0),
		p:          message.NewPrinter(message.MatchLanguage("en")),
	}
	for _, o := range opts {
		o(ui)
	}

	inboxFocus := func(e *tcell.EventKey) *tcell.EventKey {
		if e.Key() == tcell.KeyESC {
			pages.SwitchToPage(inboxPageName)
			app.SetFocus(ui.inbox)
			return nil
		}
		return e
	}

	ui.inbox = newInbox()
	logs := newLogs(app, inboxFocus)
	logs.SetText(ui.defaultLog)
	ui.logWriter = logs
	pages.AddPage(logsPageName, logs, true, false)

	ui.notifications = newNotifications()
	ui.notifications.SetInputCapture(func(e *tcell.EventKey) *tcell.EventKey {
		if e.Key() == tcell.KeyESC {
			pages.SwitchToPage(inboxPageName)
			app.SetFocus(ui.inbox)
			return nil
		}
		if e.Key() == tcell.KeyRune && e.Rune() == 'a' {
			ui.handler(event.ReadAllNotifications{})
			return nil
		}
		return e
	})
	pages.AddPage(notificationsPageName, ui.notifications, true, false)

	ui.history = tview.NewTextView()
	ui.history.SetDynamicColors(true)
	ui.history.SetBorder(true).SetTitle("Conversation")
	ui.history.SetChangedFunc(func() {
		app.Draw()
	})
	ui.input = tview.NewInputField()
	ui.input.SetPlaceholder(ui.p.Sprintf("Type a message"))
	ui.input.SetBorder(true)
	ui.input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		body := strings.TrimSpace(ui.input.GetText())
		if body == "" {
			return
		}
		chat, ok := ui.CurrentChat()
		if !ok || chat.ReadOnly {
			return
		}
		ui.input.SetText("")
		ui.handler(event.SendMessage{
			ConversationID: chat.ID,
			Content:        body,
		})
	})
	chatPane := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(ui.history, 0, 100, false).
		AddItem(ui.input, 3, 1, true)
	chatPane.SetInputCapture(func(e *tcell.EventKey) *tcell.EventKey {
		if e.Key() == tcell.KeyESC {
			ui.closeChat()
			return nil
		}
		return e
	})
	pages.AddPage(chatPageName, chatPane, true, false)

	inboxPane := tview.NewBox().SetBorder(false)
	pages.AddPage(inboxPageName, inboxPane, true, true)

	quitPage := quitModal(ui.p, func(buttonIndex int, _ string) {
		if buttonIndex == 0 {
			app.Stop()
			return
		}
		pages.HidePage(quitPageName)
		app.SetFocus(ui.inbox)
	})
	pages.AddPage(quitPageName, quitPage, true, false)

	logoutPage := logoutModal(ui.p, func() {
		pages.HidePage(logoutPageName)
		app.SetFocus(ui.inbox)
	}, func() {
		ui.handler(event.Logout{})
	})
	pages.AddPage(logoutPageName, logoutPage, true, false)

	ltrFlex := tview.NewFlex().
		AddItem(ui.inbox, ui.inboxWidth, 1, true).
		AddItem(pages, 0, 1, false)
	ui.flex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(ltrFlex, 0, 1, true).
		AddItem(statusBar, 3, 1, false)

	app.SetInputCapture(func(e *tcell.EventKey) *tcell.EventKey {
		// Ctrl-C must not terminate the application out from under the
		// client; quitting goes through the modal (or a real SIGINT, see
		// the signal goroutine in the main package).
		if e.Key() == tcell.KeyCtrlC {
			return nil
		}
		if !ui.inbox.HasFocus() {
			return e
		}
		switch e.Rune() {
		case 'q':
			pages.ShowPage(quitPageName)
			app.SetFocus(pages)
			return nil
		case 'O':
			pages.ShowPage(logoutPageName)
			app.SetFocus(pages)
			return nil
		case 'n':
			ui.handler(event.OpenNotifications{})
			return nil
		case 'r':
			ui.handler(event.RefreshInbox{})
			return nil
		case 'd':
			pages.SwitchToPage(logsPageName)
			app.SetFocus(pages)
			return nil
		}
		return e
	})

	ui.Offline()
	app.SetRoot(ui.flex, true)
	app.SetFocus(ui.inbox)
	return ui
}

// Run starts the application event loop.
func (ui *UI) Run() error {
	return ui.app.Run()
}

// Stop stops the application, causing Run to return.
func (ui *UI) Stop() {
	ui.app.Stop()
}

// Redraw schedules a full redraw of the application.
func (ui *UI) Redraw() {
	ui.app.Draw()
}

// Write writes to the logging text view.
func (ui *UI) Write(p []byte) (n int, err error) {
	return ui.logWriter.Write(p)
}

// Inbox returns the underlying inbox pane widget.
func (ui *UI) Inbox() *Inbox {
	return ui.inbox
}

// Notifications returns the underlying notifications widget.
func (ui *UI) Notifications() *Notifications {
	return ui.notifications
}

// History returns the text view that holds the open conversation.
func (ui *UI) History() *tview.TextView {
	return ui.history
}

// Handler returns the event handler registered with the Handle option.
func (ui *UI) Handler() func(interface{}) {
	return ui.handler
}

// Handle replaces the event handler after construction. It exists so the
// handler can close over the UI itself.
func (ui *UI) Handle(handler func(interface{})) {
	if handler == nil {
		handler = func(interface{}) {}
	}
	ui.handler = handler
}

// Offline sets the status bar to show that realtime channels are down.
func (ui *UI) Offline() {
	ui.statusBar.SetText(ui.p.Sprintf("[silver]○ Offline, polling only"))
	ui.statusBar.SetDynamicColors(true)
}

// Online sets the status bar to show that realtime channels are up.
func (ui *UI) Online() {
	ui.statusBar.SetText(ui.p.Sprintf("[green]● Connected"))
	ui.statusBar.SetDynamicColors(true)
}

// Notice shows a transient message in the status bar.
func (ui *UI) Notice(s string) {
	ui.statusBar.SetText(tview.Escape(s))
}

// ShowChat switches to the chat page for the given conversation.
// If the conversation is read only the input field is disabled.
func (ui *UI) ShowChat(conv api.Conversation) {
	ui.chatLock.Lock()
	ui.chat = conv
	ui.chatOpen = true
	ui.chatLock.Unlock()

	title := conv.ParticipantName
	if conv.PetitionTitle != "" {
		title += " · " + conv.PetitionTitle
	}
	ui.history.SetTitle(tview.Escape(title))
	if conv.ReadOnly {
		ui.input.SetDisabled(true)
		ui.input.SetPlaceholder(ui.p.Sprintf("This conversation is closed"))
	} else {
		ui.input.SetDisabled(false)
		ui.input.SetPlaceholder(ui.p.Sprintf("Type a message"))
	}
	ui.pages.SwitchToPage(chatPageName)
	ui.app.SetFocus(ui.pages)
}

// CurrentChat returns the conversation shown in the chat pane, if any.
func (ui *UI) CurrentChat() (api.Conversation, bool) {
	ui.chatLock.Lock()
	defer ui.chatLock.Unlock()
	return ui.chat, ui.chatOpen
}

// ShowNotifications switches to the notifications page.
func (ui *UI) ShowNotifications() {
	ui.pages.SwitchToPage(notificationsPageName)
	ui.app.SetFocus(ui.notifications)
}

// ShowInbox switches back to the inbox landing page.
func (ui *UI) ShowInbox() {
	ui.pages.SwitchToPage(inboxPageName)
	ui.app.SetFocus(ui.inbox)
}

func (ui *UI) closeChat() {
	ui.chatLock.Lock()
	id := ui.chat.ID
	open := ui.chatOpen
	ui.chatOpen = false
	ui.chatLock.Unlock()

	ui.history.SetText("")
	ui.pages.SwitchToPage(inboxPageName)
	ui.app.SetFocus(ui.inbox)
	if open {
		ui.handler(event.CloseConversation(id))
	}
}
