package engine

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chatlog/internal/chat"
	"github.com/roach88/chatlog/internal/metrics"
	"github.com/roach88/chatlog/internal/store"
)

const (
	waitFor = 5 * time.Second
	tick    = 5 * time.Millisecond
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestStore opens a migrated store in a temp dir.
func setupTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "chatlog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// newTestEngine starts an engine on a fresh store and closes it at cleanup.
func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, _ := newTestEngineWithStore(t, opts...)
	return e
}

func newTestEngineWithStore(t *testing.T, opts ...Option) (*Engine, *store.Store) {
	t.Helper()

	s := setupTestStore(t)
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	e := NewWithStore(s, Config{BatchSize: 10, SessionStart: 7}, opts...)
	t.Cleanup(func() { e.Close() })
	return e, s
}

// waitWrites blocks until the insert worker has applied n requests of op.
func waitWrites(t *testing.T, m *metrics.Metrics, op string, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return promtest.ToFloat64(m.Writes.WithLabelValues(op)) >= float64(n)
	}, waitFor, tick, "insert worker did not apply %d %s writes", n, op)
}

// waitNote polls the cache until the entry for account leaves Pending.
func waitNote(t *testing.T, e *Engine, account string) chat.QueriedNote {
	t.Helper()
	var q chat.QueriedNote
	require.Eventually(t, func() bool {
		q = e.GetOrQueryNote(account)
		return q.State != chat.NotePending
	}, waitFor, tick, "note lookup for %q did not settle", account)
	return q
}

// waitSearch polls the session until the search with id settles.
func waitSearch(t *testing.T, e *Engine, id uint64) chat.SearchSession {
	t.Helper()
	var s chat.SearchSession
	require.Eventually(t, func() bool {
		s = e.PollSearch()
		return s.ID == id && s.State != chat.SessionSearching
	}, waitFor, tick, "search %d did not settle", id)
	return s
}
