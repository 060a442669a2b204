package engine

import (
	"context"
	"fmt"
	"log/slog"
)

// drain runs handle on every item of q in FIFO order.
//
// It returns nil once the queue is closed and empty, or ctx.Err() if ctx is
// cancelled first. Closing the queue does not drop queued items.
func drain[T any](ctx context.Context, q *requestQueue[T], handle func(T)) error {
	for {
		if item, ok := q.TryDequeue(); ok {
			handle(item)
			continue
		}

		if q.Drained() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.Wait():
		}
	}
}

// abandon closes q and passes every item still queued to drop. It returns
// the number of items dropped. Once q is closed no producer can add to it,
// so nothing is left behind.
func abandon[T any](q *requestQueue[T], drop func(T)) int {
	q.Close()
	n := 0
	for {
		item, ok := q.TryDequeue()
		if !ok {
			return n
		}
		drop(item)
		n++
	}
}

// guard runs fn and converts a panic into an error so one bad request
// cannot kill a worker.
func guard(log *slog.Logger, worker string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("request panicked", "worker", worker, "panic", r)
			err = fmt.Errorf("%s: panic: %v", worker, r)
		}
	}()
	return fn()
}
