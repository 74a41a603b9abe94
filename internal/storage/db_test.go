// Copyright 2024 The Comunidad Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package storage_test

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/text/message"

	"comunidad.app/comunichat/internal/api"
	"comunidad.app/comunichat/internal/storage"
)

const testSchema = `
CREATE TABLE conversations (
	id            INTEGER PRIMARY KEY,
	petition      INTEGER NOT NULL,
	petitionTitle TEXT    NOT NULL,
	participant   TEXT    NOT NULL,
	avatar        TEXT    NOT NULL DEFAULT '',
	unread        INTEGER NOT NULL DEFAULT 0,
	lastMessage   TEXT,
	updatedAt     INTEGER NOT NULL,
	readOnly      BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE messages (
	conversation INTEGER NOT NULL,
	id           INTEGER NOT NULL,
	content      TEXT    NOT NULL,
	sender       TEXT    NOT NULL,
	mine         BOOLEAN NOT NULL,
	sentAt       INTEGER NOT NULL,

	PRIMARY KEY (conversation, id)
);`

func openTestDB(t *testing.T) *storage.DB {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	debug := log.New(io.Discard, "", 0)
	db, err := storage.OpenDB(ctx, "comunichat", "test", filepath.Join(t.TempDir(), "test.db"), 1, storage.Migrations{
		{Version: 1, Up: testSchema},
	}, message.NewPrinter(message.MatchLanguage("en")), debug)
	if err != nil {
		t.Fatalf("error opening database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("error closing database: %v", err)
		}
	})
	return db
}

func TestInsertMsgDedup(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	msg := api.Message{ID: 101, Content: "hello", Sender: "me", Mine: true, SentAt: time.Unix(1700000000, 0)}
	for i := 0; i < 3; i++ {
		if err := db.InsertMsg(ctx, 42, msg); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	// The same id in a different conversation is a distinct message.
	if err := db.InsertMsg(ctx, 99, msg); err != nil {
		t.Fatalf("insert into other conversation: %v", err)
	}

	msgs, err := db.Messages(ctx, 42)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("wrong number of messages: want=1, got=%d", len(msgs))
	}
	if msgs[0].ID != 101 || msgs[0].Content != "hello" || !msgs[0].Mine {
		t.Fatalf("wrong message round tripped: %+v", msgs[0])
	}
}

func TestMessagesOrder(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	base := time.Unix(1700000000, 0)
	for _, m := range []api.Message{
		{ID: 3, Content: "third", SentAt: base.Add(2 * time.Minute)},
		{ID: 1, Content: "first", SentAt: base},
		{ID: 2, Content: "second", SentAt: base.Add(time.Minute)},
	} {
		if err := db.InsertMsg(ctx, 7, m); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	msgs, err := db.Messages(ctx, 7)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	var ids []int64
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Fatalf("wrong order: want=[1 2 3], got=%v", ids)
	}
}

func TestReplaceConversations(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	last := "see you"
	first := []api.Conversation{
		{ID: 1, PetitionID: 10, PetitionTitle: "Paint the fence", ParticipantName: "Ana", UpdatedAt: time.Unix(1700000100, 0)},
		{ID: 2, PetitionID: 11, PetitionTitle: "Fix the sink", ParticipantName: "Luis", LastMessage: &last, UpdatedAt: time.Unix(1700000200, 0), ReadOnly: true},
	}
	if err := db.ReplaceConversations(ctx, first); err != nil {
		t.Fatalf("replace: %v", err)
	}
	// A second replace fully supersedes the first.
	if err := db.ReplaceConversations(ctx, first[1:]); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	iter := db.Conversations(ctx)
	var got []api.Conversation
	for iter.Next() {
		got = append(got, iter.Conversation())
	}
	if err := iter.Err(); err != nil {
		t.Fatalf("iter: %v", err)
	}
	if err := iter.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("wrong number of conversations: want=1, got=%d", len(got))
	}
	if got[0].ID != 2 || !got[0].ReadOnly || got[0].LastMessage == nil || *got[0].LastMessage != "see you" {
		t.Fatalf("wrong conversation round tripped: %+v", got[0])
	}
}
