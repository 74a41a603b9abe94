// Copyright 2024 The Comunidad Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package client_test

import (
	"context"
	"testing"
	"time"

	"comunidad.app/comunichat/internal/api"
	"comunidad.app/comunichat/internal/client/event"
)

func TestRefreshNotifications(t *testing.T) {
	b := newFakeBackend()
	b.setNotes(1,
		api.Notification{ID: 1, Title: "New offer", Read: false, CreatedAt: time.Unix(1700000100, 0)},
		api.Notification{ID: 2, Title: "Petition closed", Read: true, CreatedAt: time.Unix(1700000000, 0)},
	)
	c, rec := newTestClient(t, b)

	if err := c.RefreshNotifications(context.Background()); err != nil {
		t.Fatalf("error refreshing notifications: %v", err)
	}
	got := rec.wait(t, "notifications", func(ev interface{}) bool {
		_, ok := ev.(event.FetchNotifications)
		return ok
	}).(event.FetchNotifications)
	if len(got.Items) != 2 || got.Total != 2 || got.Unread != 1 {
		t.Fatalf("wrong bell state: items=%d, total=%d, unread=%d", len(got.Items), got.Total, got.Unread)
	}
}

func TestReadNotificationNavigates(t *testing.T) {
	b := newFakeBackend()
	fresh := api.Notification{ID: 1, Title: "New offer", Target: "petitions/5", Read: false}
	stale := api.Notification{ID: 2, Title: "Old news", Target: "petitions/6", Read: true}
	b.setNotes(1, fresh, stale)
	c, rec := newTestClient(t, b)
	ctx := context.Background()

	if err := c.ReadNotification(ctx, fresh); err != nil {
		t.Fatalf("error reading notification: %v", err)
	}
	nav := rec.wait(t, "navigation", func(ev interface{}) bool {
		_, ok := ev.(event.Navigate)
		return ok
	}).(event.Navigate)
	if string(nav) != "petitions/5" {
		t.Fatalf("wrong navigation target: %q", nav)
	}
	if reads := b.noteReadIDs(); len(reads) != 1 || reads[0] != 1 {
		t.Fatalf("wrong read receipts: %v", reads)
	}

	// Already-read notifications still navigate but skip the receipt.
	rec.drain()
	if err := c.ReadNotification(ctx, stale); err != nil {
		t.Fatalf("error reading notification: %v", err)
	}
	rec.wait(t, "navigation", func(ev interface{}) bool {
		n, ok := ev.(event.Navigate)
		return ok && string(n) == "petitions/6"
	})
	if reads := b.noteReadIDs(); len(reads) != 1 {
		t.Fatalf("read notification was marked again: %v", reads)
	}
}

func TestReadAllNotifications(t *testing.T) {
	b := newFakeBackend()
	b.setNotes(2,
		api.Notification{ID: 1, Read: false},
		api.Notification{ID: 2, Read: false},
	)
	c, rec := newTestClient(t, b)

	if err := c.ReadAllNotifications(context.Background()); err != nil {
		t.Fatalf("error marking all as read: %v", err)
	}
	got := rec.wait(t, "refreshed bell", func(ev interface{}) bool {
		_, ok := ev.(event.FetchNotifications)
		return ok
	}).(event.FetchNotifications)
	if got.Unread != 0 {
		t.Fatalf("unread count not cleared: %d", got.Unread)
	}
	if got := b.readAllCount(); got != 1 {
		t.Fatalf("wrong number of read-all calls: %d", got)
	}
}
