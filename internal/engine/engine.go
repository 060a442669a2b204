package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/chatlog/internal/chat"
	"github.com/roach88/chatlog/internal/metrics"
	"github.com/roach88/chatlog/internal/store"
)

// DefaultBatchSize is the page size used when a search does not set one.
const DefaultBatchSize = 50

// Config configures an Engine.
type Config struct {
	// Path is the SQLite file. Used by New only.
	Path string
	// MaxConns bounds the connection pool. Used by New only.
	MaxConns int
	// BatchSize is the default search page size.
	BatchSize int
	// SessionStart is recorded with every appended message.
	SessionStart int64
}

// Engine persists chat messages and notes and answers queries against them.
//
// Two background workers own the store: the insert worker applies writes in
// the order they were enqueued, and the query worker serves note lookups and
// searches. Producer methods never block on I/O; results are published into
// the note cache and the search session, which callers poll.
//
// Thread-safety model:
//   - All exported methods are safe from any goroutine
//   - Each queue is drained by exactly one worker goroutine
//   - Store I/O never happens while the cache or session lock is held
type Engine struct {
	store     *store.Store
	ownsStore bool
	cfg       Config
	id        string

	log     *slog.Logger
	metrics *metrics.Metrics
	wall    WallClock
	ids     *Clock
	idGen   IDGenerator

	inserts *requestQueue[insertRequest]
	queries *requestQueue[queryRequest]
	notes   *noteCache
	session *searchSession

	group     errgroup.Group
	cancel    context.CancelFunc
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Option allows configuration of engine dependencies.
type Option func(*Engine)

// WithLogger sets the logger. The engine adds an engine_id attribute.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithMetrics sets the collectors updated by the workers.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithWallClock sets the clock used for note timestamps.
func WithWallClock(c WallClock) Option {
	return func(e *Engine) {
		e.wall = c
	}
}

// WithIDGenerator sets the generator for the engine instance id.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.idGen = g
	}
}

// New opens the store at cfg.Path and starts both workers.
//
// Open, migration and pragma failures are returned here and no goroutine is
// started. Cancelling ctx stops the workers without draining their queues;
// Close is the orderly shutdown.
func New(ctx context.Context, cfg Config, opts ...Option) (*Engine, error) {
	var storeOpts []store.Option
	if cfg.MaxConns > 0 {
		storeOpts = append(storeOpts, store.WithMaxConns(cfg.MaxConns))
	}

	st, err := store.Open(cfg.Path, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("open engine: %w", err)
	}

	e := newEngine(st, cfg, opts...)
	e.ownsStore = true
	e.start(ctx)
	return e, nil
}

// NewWithStore starts both workers on an already open store. The store is
// not closed by Close.
func NewWithStore(st *store.Store, cfg Config, opts ...Option) *Engine {
	e := newEngine(st, cfg, opts...)
	e.start(context.Background())
	return e
}

func newEngine(st *store.Store, cfg Config, opts ...Option) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	e := &Engine{
		store:   st,
		cfg:     cfg,
		wall:    systemClock{},
		ids:     NewClock(),
		idGen:   UUIDv7Generator{},
		inserts: newRequestQueue[insertRequest](),
		queries: newRequestQueue[queryRequest](),
		notes:   newNoteCache(),
		session: newSearchSession(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.log == nil {
		e.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if e.metrics == nil {
		e.metrics = metrics.New(nil)
	}
	e.id = e.idGen.Generate()
	e.log = e.log.With("engine_id", e.id)
	return e
}

func (e *Engine) start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	e.cancel = cancel

	e.log.Info("engine starting", "session_start", e.cfg.SessionStart, "batch_size", e.cfg.BatchSize)

	e.group.Go(func() error { return e.runInsertWorker(ctx) })
	e.group.Go(func() error { return e.runQueryWorker(ctx) })
}

// ID returns the engine instance id attached to its log records.
func (e *Engine) ID() string {
	return e.id
}

// AppendMessage queues msg for insertion. Text fields are normalized first.
func (e *Engine) AppendMessage(msg chat.Message) error {
	return e.enqueueInsert(insertRequest{kind: insertMessage, message: msg.Normalized()})
}

// UpsertNote creates or replaces the note for account. The cache reflects
// the new text immediately.
func (e *Engine) UpsertNote(account, text string) error {
	now := e.wall.Now().Unix()
	account = chat.NormalizeText(account)
	text = chat.NormalizeText(text)

	if err := e.enqueueInsert(insertRequest{
		kind:    insertUpsertNote,
		account: account,
		text:    text,
		now:     now,
	}); err != nil {
		return err
	}
	e.notes.applyUpsert(account, text, now)
	return nil
}

// UpdateNoteColor sets or, with a nil color, clears the color of an
// existing note. A missing note is left alone.
func (e *Engine) UpdateNoteColor(account string, color *chat.Color) error {
	account = chat.NormalizeText(account)
	var c *chat.Color
	if color != nil {
		if err := color.Validate(); err != nil {
			return err
		}
		cc := *color
		c = &cc
	}

	if err := e.enqueueInsert(insertRequest{kind: insertNoteColor, account: account, color: c}); err != nil {
		return err
	}
	e.notes.applyColor(account, c)
	return nil
}

// DeleteNote removes the note for account. Deleting a missing note is not
// an error.
func (e *Engine) DeleteNote(account string) error {
	account = chat.NormalizeText(account)
	if err := e.enqueueInsert(insertRequest{kind: insertDeleteNote, account: account}); err != nil {
		return err
	}
	e.notes.set(account, chat.NotFoundNote())
	return nil
}

// GetOrQueryNote returns the cached state for account.
//
// On the first call for an account it returns Pending and queues one
// lookup; later calls return Pending until the lookup lands. If the lookup
// cannot be queued the entry becomes Error. Accounts are keyed by their NFC
// form, as they are stored.
func (e *Engine) GetOrQueryNote(account string) chat.QueriedNote {
	account = chat.NormalizeText(account)
	q, reserved := e.notes.getOrReserve(account)
	if !reserved {
		return q
	}

	if err := e.enqueueQuery(queryRequest{kind: queryNote, account: account}); err != nil {
		e.log.Warn("note lookup not queued", "account", account, "error", err)
		e.notes.set(account, chat.ErrorNote())
		return chat.ErrorNote()
	}
	return q
}

// RefreshNote discards the cached state for account and queues a lookup.
func (e *Engine) RefreshNote(account string) error {
	account = chat.NormalizeText(account)
	e.notes.markPending(account)
	if err := e.enqueueQuery(queryRequest{kind: queryNote, account: account}); err != nil {
		e.notes.set(account, chat.ErrorNote())
		return err
	}
	return nil
}

// StartSearch starts q as the current search and returns its id. Any
// search still in flight becomes stale and its results are discarded.
func (e *Engine) StartSearch(q chat.SearchQuery) (uint64, error) {
	if e.closed.Load() {
		return 0, ErrClosed
	}
	if q.BatchSize <= 0 {
		q.BatchSize = e.cfg.BatchSize
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	q.Text = chat.NormalizeText(q.Text)
	q.ID = e.ids.Next()

	e.session.start(q)
	if err := e.enqueueQuery(queryRequest{kind: querySearch, search: q}); err != nil {
		e.session.fail(q.ID, err.Error())
		return q.ID, err
	}
	return q.ID, nil
}

// PollSearch returns a snapshot of the search session.
func (e *Engine) PollSearch() chat.SearchSession {
	return e.session.snapshot()
}

// NextSearchPage starts the page following the current results. It
// reports false when there are no current results or no further rows.
func (e *Engine) NextSearchPage() (uint64, bool, error) {
	q, ok := e.session.nextPage()
	if !ok {
		return 0, false, nil
	}
	id, err := e.StartSearch(q)
	return id, true, err
}

// ClearSearch resets the session to Idle. Results of a running search are
// discarded when they arrive.
func (e *Engine) ClearSearch() {
	e.session.clear()
}

// Close stops accepting requests, waits for both workers to finish their
// queues and closes the store if the engine opened it. It returns any
// worker error. Safe to call more than once.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		e.inserts.Close()
		e.queries.Close()

		err := e.group.Wait()
		e.cancel()

		if e.ownsStore {
			if cerr := e.store.Close(); cerr != nil {
				err = errors.Join(err, fmt.Errorf("close store: %w", cerr))
			}
		}
		e.closeErr = err
		e.log.Info("engine stopped", "error", err)
	})
	return e.closeErr
}

func (e *Engine) enqueueInsert(req insertRequest) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if !e.inserts.Enqueue(req) {
		return e.enqueueError(insertWorker)
	}
	e.setQueueDepth(insertWorker, e.inserts.Len())
	return nil
}

func (e *Engine) enqueueQuery(req queryRequest) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if !e.queries.Enqueue(req) {
		return e.enqueueError(queryWorker)
	}
	e.setQueueDepth(queryWorker, e.queries.Len())
	return nil
}

func (e *Engine) setQueueDepth(queue string, n int) {
	e.metrics.QueueDepth.WithLabelValues(queue).Set(float64(n))
}
