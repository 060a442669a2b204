package engine

import (
	"context"
	"fmt"

	"github.com/roach88/chatlog/internal/metrics"
	"github.com/roach88/chatlog/internal/store"
)

const insertWorker = "insert"

// runInsertWorker applies write requests in enqueue order until the insert
// queue is closed and drained. Whatever way it exits, the queue is closed and
// any request left in it is counted as a failed write.
func (e *Engine) runInsertWorker(ctx context.Context) error {
	defer e.stopInsertWorker()

	conn, err := e.store.Acquire(ctx)
	if err != nil {
		e.log.Error("insert worker cannot acquire connection", "error", err)
		return fmt.Errorf("%s worker: %w", insertWorker, err)
	}
	defer conn.Close()

	e.log.Debug("insert worker started")
	defer e.log.Debug("insert worker stopped")

	return drain(ctx, e.inserts, func(req insertRequest) {
		e.setQueueDepth(insertWorker, e.inserts.Len())

		op := req.kind.op()
		err := guard(e.log, insertWorker, func() error {
			return e.applyInsert(ctx, conn, req)
		})
		if err != nil {
			// Writes are fire-and-forget: log, count and move on.
			e.log.Error("write failed", "op", op, "account", req.account, "error", err)
			e.metrics.WriteErrors.WithLabelValues(op).Inc()
			return
		}
		e.metrics.Writes.WithLabelValues(op).Inc()
	})
}

func (e *Engine) stopInsertWorker() {
	n := abandon(e.inserts, func(req insertRequest) {
		e.metrics.WriteErrors.WithLabelValues(req.kind.op()).Inc()
	})
	e.setQueueDepth(insertWorker, 0)
	if n > 0 {
		e.log.Error("queued writes dropped", "count", n)
	}
}

func (e *Engine) applyInsert(ctx context.Context, conn *store.Conn, req insertRequest) error {
	switch req.kind {
	case insertMessage:
		_, err := conn.InsertMessage(ctx, req.message, e.cfg.SessionStart)
		return err

	case insertUpsertNote:
		return conn.UpsertNote(ctx, req.account, req.text, req.now)

	case insertNoteColor:
		found, err := conn.UpdateNoteColor(ctx, req.account, req.color)
		if err == nil && !found {
			e.log.Debug("color update for missing note ignored", "account", req.account)
		}
		return err

	case insertDeleteNote:
		found, err := conn.DeleteNote(ctx, req.account)
		if err == nil && !found {
			e.log.Debug("delete for missing note ignored", "account", req.account)
		}
		return err

	default:
		return fmt.Errorf("unknown insert request kind %d", req.kind)
	}
}

func (k insertKind) op() string {
	switch k {
	case insertMessage:
		return metrics.OpAppendMessage
	case insertUpsertNote:
		return metrics.OpUpsertNote
	case insertNoteColor:
		return metrics.OpUpdateNoteColor
	case insertDeleteNote:
		return metrics.OpDeleteNote
	default:
		return "unknown"
	}
}
