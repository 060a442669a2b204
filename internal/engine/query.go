package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/chatlog/internal/chat"
	"github.com/roach88/chatlog/internal/metrics"
	"github.com/roach88/chatlog/internal/store"
)

const queryWorker = "query"

// runQueryWorker serves note lookups and searches until the query queue is
// closed and drained. Requests still queued when it exits early resolve to
// Error so no caller is left waiting on Pending or Searching.
func (e *Engine) runQueryWorker(ctx context.Context) error {
	defer e.stopQueryWorker()

	conn, err := e.store.Acquire(ctx)
	if err != nil {
		e.log.Error("query worker cannot acquire connection", "error", err)
		return fmt.Errorf("%s worker: %w", queryWorker, err)
	}
	defer conn.Close()

	e.log.Debug("query worker started")
	defer e.log.Debug("query worker stopped")

	return drain(ctx, e.queries, func(req queryRequest) {
		e.setQueueDepth(queryWorker, e.queries.Len())

		switch req.kind {
		case queryNote:
			e.lookupNote(ctx, conn, req.account)
		case querySearch:
			e.runSearch(ctx, conn, req.search)
		default:
			e.log.Error("unknown query request kind", "kind", int(req.kind))
		}
	})
}

func (e *Engine) stopQueryWorker() {
	n := abandon(e.queries, func(req queryRequest) {
		switch req.kind {
		case queryNote:
			e.metrics.NoteLookups.WithLabelValues(chat.NoteError.String()).Inc()
			e.notes.resolve(req.account, chat.ErrorNote())
		case querySearch:
			if e.session.fail(req.search.ID, "query worker stopped") {
				e.metrics.Searches.WithLabelValues(metrics.SearchError).Inc()
			} else {
				e.metrics.Searches.WithLabelValues(metrics.SearchStale).Inc()
			}
		}
	})
	e.setQueueDepth(queryWorker, 0)
	if n > 0 {
		e.log.Error("queued queries dropped", "count", n)
	}
}

func (e *Engine) lookupNote(ctx context.Context, conn *store.Conn, account string) {
	var result chat.QueriedNote
	err := guard(e.log, queryWorker, func() error {
		n, err := conn.ReadNote(ctx, account)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			result = chat.NotFoundNote()
			return nil
		case err != nil:
			return err
		}
		result = chat.FoundNote(n)
		return nil
	})
	if err != nil {
		e.log.Error("note lookup failed", "account", account, "error", err)
		result = chat.ErrorNote()
	}

	e.metrics.NoteLookups.WithLabelValues(result.State.String()).Inc()
	if !e.notes.resolve(account, result) {
		e.log.Debug("note lookup superseded by local write", "account", account)
	}
}

func (e *Engine) runSearch(ctx context.Context, conn *store.Conn, q chat.SearchQuery) {
	// Skip work for a search the caller has already moved past.
	if !e.session.current(q.ID) {
		e.metrics.Searches.WithLabelValues(metrics.SearchStale).Inc()
		return
	}

	var results chat.SearchResults
	err := guard(e.log, queryWorker, func() error {
		var err error
		results, err = conn.SearchMessages(ctx, q)
		return err
	})
	if err != nil {
		e.log.Error("search failed", "search_id", q.ID, "error", err)
		if e.session.fail(q.ID, err.Error()) {
			e.metrics.Searches.WithLabelValues(metrics.SearchError).Inc()
		} else {
			e.metrics.Searches.WithLabelValues(metrics.SearchStale).Inc()
		}
		return
	}

	if !e.session.complete(results) {
		e.log.Debug("stale search results discarded", "search_id", q.ID)
		e.metrics.Searches.WithLabelValues(metrics.SearchStale).Inc()
		return
	}
	e.log.Debug("search complete", "search_id", q.ID, "rows", len(results.Messages), "has_more", results.HasMore)
	e.metrics.Searches.WithLabelValues(metrics.SearchResults).Inc()
}
