// Copyright 2024 The Comunidad Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package storage implements the local cache layer of the client.
//
// The cache exists so that an already-seen conversation renders instantly
// (and offline) while the authoritative REST fetch is in flight. It is
// never consulted for unread counts or ordering decisions; the backend
// owns those.
package storage // import "comunidad.app/comunichat/internal/storage"

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/text/message"
	_ "modernc.org/sqlite"

	"comunidad.app/comunichat/internal/api"
)

// DB represents a SQL database with common pre-prepared statements.
type DB struct {
	*sql.DB
	txM           sync.Mutex
	truncateConvs *sql.Stmt
	insertConv    *sql.Stmt
	selectConvs   *sql.Stmt
	insertMsg     *sql.Stmt
	queryMsgs     *sql.Stmt
	debug         *log.Logger
}

// OpenDB attempts to open the database at dbFile, creating it if needed,
// and migrates it to the target schema version.
// If dbFile is empty a fallback sequence of names is used starting with
// $XDG_DATA_HOME, then falling back to $HOME/.local/share, then falling
// back to the current working directory.
func OpenDB(ctx context.Context, appName, account, dbFile string, target uint, m Migrations, p *message.Printer, debug *log.Logger) (*DB, error) {
	const (
		dbDriver = "sqlite"
	)
	var fPath string
	var paths []string
	dbFileName := account + ".db"

	if dbFile != "" {
		paths = []string{dbFile}
	} else {
		fPath = os.Getenv("XDG_DATA_HOME")
		if fPath != "" {
			paths = append(paths, filepath.Join(fPath, appName, dbFileName))
		}
		home, err := os.UserHomeDir()
		if err != nil {
			debug.Printf("error finding user home directory: %v", err)
		} else {
			paths = append(paths, filepath.Join(home, ".local", "share", appName, dbFileName))
		}
		fPath, err = os.Getwd()
		if err != nil {
			debug.Printf("error getting current working directory: %v", err)
		} else {
			paths = append(paths, filepath.Join(fPath, dbFileName))
		}
	}

	// Create the path to the db file if it does not exist.
	fPath = ""
	for _, p := range paths {
		err := os.MkdirAll(filepath.Dir(p), 0770)
		if err != nil {
			debug.Printf("error creating db dir, skipping: %v", err)
			continue
		}
		// Create the database file if it does not exist, similar to touch(1).
		fd, err := os.OpenFile(p, os.O_RDWR|os.O_CREATE, 0600)
		if err != nil {
			debug.Printf("error opening or creating db, skipping: %v", err)
			continue
		}
		err = fd.Close()
		if err != nil {
			debug.Printf("error closing db file: %v", err)
		}
		fPath = p
		break
	}
	if fPath == "" {
		return nil, errors.New("could not create or open database for writing")
	}

	db, err := sql.Open(dbDriver, fPath)
	if err != nil {
		return nil, fmt.Errorf("error opening DB: %w", err)
	}
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		/* #nosec */
		db.Close()
		return nil, fmt.Errorf("error enabling foreign keys: %w", err)
	}
	err = runMigrations(ctx, db, target, m, p, debug)
	if err != nil {
		/* #nosec */
		db.Close()
		return nil, fmt.Errorf("error running migrations: %w", err)
	}
	return prepareQueries(ctx, db, debug)
}

func prepareQueries(ctx context.Context, db *sql.DB, debug *log.Logger) (*DB, error) {
	var err error
	wrapDB := &DB{
		DB:    db,
		debug: debug,
	}
	wrapDB.truncateConvs, err = db.PrepareContext(ctx, `
DELETE FROM conversations`)
	if err != nil {
		return nil, err
	}
	wrapDB.insertConv, err = db.PrepareContext(ctx, `
INSERT INTO conversations
	(id, petition, petitionTitle, participant, avatar, unread, lastMessage, updatedAt, readOnly)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT(id) DO UPDATE SET
		petitionTitle=$3, participant=$4, avatar=$5, unread=$6,
		lastMessage=$7, updatedAt=$8, readOnly=$9`)
	if err != nil {
		return nil, err
	}
	wrapDB.selectConvs, err = db.PrepareContext(ctx, `
SELECT id, petition, petitionTitle, participant, avatar, unread, lastMessage, updatedAt, readOnly
	FROM conversations
	ORDER BY updatedAt DESC`)
	if err != nil {
		return nil, err
	}
	wrapDB.insertMsg, err = db.PrepareContext(ctx, `
INSERT INTO messages (conversation, id, content, sender, mine, sentAt)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT(conversation, id) DO NOTHING`)
	if err != nil {
		return nil, err
	}
	wrapDB.queryMsgs, err = db.PrepareContext(ctx, `
SELECT id, content, sender, mine, sentAt
	FROM messages
	WHERE conversation=$1
	ORDER BY sentAt ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	return wrapDB, nil
}

var errRollback = errors.New("rollback")

// execTx creates a transaction and executes f.
// If an error is returned the transaction is rolled back, otherwise it is
// committed.
func execTx(ctx context.Context, db *DB, f func(context.Context, *sql.Tx) error) (e error) {
	db.txM.Lock()
	defer db.txM.Unlock()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	var commit bool
	defer func() {
		if commit {
			return
		}
		switch e {
		case errRollback:
			e = tx.Rollback()
		case nil:
		default:
			/* #nosec */
			tx.Rollback()
		}
	}()
	err = f(ctx, tx)
	if err != nil {
		return err
	}
	commit = true
	return tx.Commit()
}

// InsertMsg adds a message to the cache.
// Inserting the same (conversation, id) pair again is a no-op, matching
// the synchronizer's duplicate suppression.
func (db *DB) InsertMsg(ctx context.Context, convID int64, msg api.Message) error {
	return execTx(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.Stmt(db.insertMsg).ExecContext(ctx, convID, msg.ID, msg.Content, msg.Sender, msg.Mine, msg.SentAt.Unix())
		return err
	})
}

// Messages returns the cached history of a conversation in send order.
func (db *DB) Messages(ctx context.Context, convID int64) ([]api.Message, error) {
	var msgs []api.Message
	err := execTx(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.Stmt(db.queryMsgs).QueryContext(ctx, convID)
		if err != nil {
			return err
		}
		/* #nosec */
		defer rows.Close()
		for rows.Next() {
			var m api.Message
			var sentAt int64
			err = rows.Scan(&m.ID, &m.Content, &m.Sender, &m.Mine, &sentAt)
			if err != nil {
				return err
			}
			m.SentAt = time.Unix(sentAt, 0).UTC()
			msgs = append(msgs, m)
		}
		return rows.Err()
	})
	return msgs, err
}

// ReplaceConversations truncates the cached conversation list and
// replaces it with the provided items.
func (db *DB) ReplaceConversations(ctx context.Context, convs []api.Conversation) error {
	return execTx(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.Stmt(db.truncateConvs).ExecContext(ctx)
		if err != nil {
			return err
		}
		ins := tx.Stmt(db.insertConv)
		for _, conv := range convs {
			var last *string
			if conv.LastMessage != nil {
				last = conv.LastMessage
			}
			_, err = ins.ExecContext(ctx,
				conv.ID, conv.PetitionID, conv.PetitionTitle,
				conv.ParticipantName, conv.ParticipantAvatar,
				conv.UnreadCount, last, conv.UpdatedAt.Unix(), conv.ReadOnly)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ConversationIter is an iterator that can return concrete conversations.
type ConversationIter struct {
	*Iter
}

// Conversation returns the most recent result read from the iter.
func (iter ConversationIter) Conversation() api.Conversation {
	cur := iter.Iter.Current()
	if cur == nil {
		return api.Conversation{}
	}
	return cur.(api.Conversation)
}

// Conversations returns the cached conversation list ordered by
// last-update time descending.
// Any errors encountered while querying are deferred until the iter is
// used.
func (db *DB) Conversations(ctx context.Context) ConversationIter {
	db.txM.Lock()
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		<-ctx.Done()
		defer db.txM.Unlock()
	}()

	rows, err := db.selectConvs.QueryContext(ctx)
	return ConversationIter{
		Iter: &Iter{
			cancel: cancel,
			err:    err,
			rows:   rows,
			f: func(rows *sql.Rows) (interface{}, error) {
				var cur api.Conversation
				var updatedAt int64
				var last sql.NullString
				err := rows.Scan(&cur.ID, &cur.PetitionID, &cur.PetitionTitle,
					&cur.ParticipantName, &cur.ParticipantAvatar,
					&cur.UnreadCount, &last, &updatedAt, &cur.ReadOnly)
				if err != nil {
					return cur, err
				}
				if last.Valid {
					cur.LastMessage = &last.String
				}
				cur.UpdatedAt = time.Unix(updatedAt, 0).UTC()
				return cur, nil
			},
		},
	}
}
