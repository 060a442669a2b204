package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/chatlog/internal/chat"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// acquireTestConn takes a dedicated connection that is released on cleanup.
func acquireTestConn(t *testing.T, s *Store) *Conn {
	t.Helper()
	c, err := s.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// createTestMessage creates a squad message with minimal required fields.
func createTestMessage(account, text string, ts int64) chat.Message {
	return chat.Message{
		ChannelID:     7,
		Kind:          chat.Squad,
		Subgroup:      1,
		Timestamp:     ts,
		AccountName:   account,
		CharacterName: "Char " + account,
		Text:          text,
	}
}
