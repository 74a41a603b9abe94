// Copyright 2024 The Comunidad Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package client

import (
	"io"
	"log"
	"sync"
	"testing"

	"comunidad.app/comunichat/internal/api"
)

// A push racing a poll snapshot must never lose the pushed message: the
// snapshot is either rejected because the push landed first and it is no
// longer strictly longer, or applied before the push appends on top of
// it.
func TestSnapshotRacingPushKeepsMessage(t *testing.T) {
	discard := log.New(io.Discard, "", 0)
	for i := 0; i < 200; i++ {
		c := &Client{handler: noopHandler, logger: discard, debug: discard}
		s := &ConversationSession{
			c:    c,
			meta: api.Conversation{ID: 42},
			seen: make(map[int64]struct{}),
			done: make(chan struct{}),
		}
		s.replace([]api.Message{{ID: 1}, {ID: 2}})

		pushed := api.Message{ID: int64(1000 + i), Mine: true}
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.push(42, pushed)
		}()
		go func() {
			defer wg.Done()
			s.applySnapshot([]api.Message{{ID: 1}, {ID: 2}, {ID: 3}})
		}()
		wg.Wait()

		var found bool
		for _, m := range s.Messages() {
			if m.ID == pushed.ID {
				found = true
			}
		}
		if !found {
			t.Fatalf("pushed message %d lost to a concurrent snapshot", pushed.ID)
		}
	}
}
