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

func TestRefreshInboxSortsByUpdate(t *testing.T) {
	b := newFakeBackend()
	base := time.Unix(1700000000, 0)
	// Served out of order on purpose.
	b.setConvs(
		api.Conversation{ID: 1, ParticipantName: "Ana", UpdatedAt: base},
		api.Conversation{ID: 3, ParticipantName: "Luis", UpdatedAt: base.Add(2 * time.Hour)},
		api.Conversation{ID: 2, ParticipantName: "Marta", UpdatedAt: base.Add(time.Hour)},
	)
	c, rec := newTestClient(t, b)

	if err := c.RefreshInbox(context.Background()); err != nil {
		t.Fatalf("error refreshing inbox: %v", err)
	}
	got := rec.wait(t, "inbox", func(ev interface{}) bool {
		_, ok := ev.(event.FetchInbox)
		return ok
	}).(event.FetchInbox)

	for i, want := range []int64{3, 2, 1} {
		if got.Items[i].ID != want {
			t.Fatalf("wrong inbox order: want id %d at %d, got %d", want, i, got.Items[i].ID)
		}
	}
	if inbox := c.Inbox(); len(inbox) != 3 || inbox[0].ID != 3 {
		t.Fatalf("wrong in-memory inbox: %+v", inbox)
	}
}

func TestFailedRefreshKeepsInbox(t *testing.T) {
	b := newFakeBackend()
	b.setConvs(
		api.Conversation{ID: 1, UpdatedAt: time.Unix(1700000000, 0)},
		api.Conversation{ID: 2, UpdatedAt: time.Unix(1700000100, 0)},
	)
	c, rec := newTestClient(t, b)
	ctx := context.Background()

	if err := c.RefreshInbox(ctx); err != nil {
		t.Fatalf("error refreshing inbox: %v", err)
	}
	rec.drain()

	b.setFailConvs(true)
	if err := c.RefreshInbox(ctx); err == nil {
		t.Fatalf("expected an error from the failing refresh")
	}
	se := rec.wait(t, "sync error", func(ev interface{}) bool {
		_, ok := ev.(event.SyncError)
		return ok
	}).(event.SyncError)
	if se.Op != "inbox" {
		t.Fatalf("wrong sync error op: %q", se.Op)
	}

	// The previous list stays visible; a failure never blanks the inbox.
	if inbox := c.Inbox(); len(inbox) != 2 {
		t.Fatalf("failed refresh clobbered the inbox: %+v", inbox)
	}
}
