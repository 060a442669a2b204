package engine

import (
	"sync"

	"github.com/roach88/chatlog/internal/chat"
)

// noteCache maps account names to their last known note state.
//
// Entries are never evicted. The lock is held only for map access; store
// I/O never happens under it.
type noteCache struct {
	mu      sync.Mutex
	entries map[string]chat.QueriedNote
}

func newNoteCache() *noteCache {
	return &noteCache{entries: make(map[string]chat.QueriedNote)}
}

// getOrReserve returns the cached entry for account. On a miss it stores a
// Pending placeholder and reports reserved=true; the caller must then
// enqueue exactly one lookup.
func (c *noteCache) getOrReserve(account string) (chat.QueriedNote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if q, ok := c.entries[account]; ok {
		return q, false
	}
	c.entries[account] = chat.PendingNote()
	return chat.PendingNote(), true
}

// markPending forces the entry back to Pending.
func (c *noteCache) markPending(account string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[account] = chat.PendingNote()
}

// resolve publishes a lookup result. It only replaces a Pending entry, so a
// local write made while the lookup was in flight wins.
func (c *noteCache) resolve(account string, q chat.QueriedNote) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.entries[account]
	if ok && cur.State != chat.NotePending {
		return false
	}
	c.entries[account] = q
	return true
}

// set stores q unconditionally.
func (c *noteCache) set(account string, q chat.QueriedNote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[account] = q
}

// applyUpsert mirrors an upsert. An existing note keeps its Added time and
// color; anything else becomes a fresh note.
func (c *noteCache) applyUpsert(account, text string, now int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.entries[account]
	if ok && cur.State == chat.NoteSuccess {
		n := cur.Note
		n.Text = text
		n.Updated = max(now, n.Added)
		c.entries[account] = chat.FoundNote(n)
		return
	}
	c.entries[account] = chat.FoundNote(chat.Note{
		AccountName: account,
		Text:        text,
		Added:       now,
		Updated:     now,
	})
}

// applyColor mirrors a color update. Only a known note changes; the store
// ignores color updates for missing rows too.
func (c *noteCache) applyColor(account string, color *chat.Color) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.entries[account]
	if !ok || cur.State != chat.NoteSuccess {
		return
	}
	n := cur.Note
	if color != nil {
		cc := *color
		n.Color = &cc
	} else {
		n.Color = nil
	}
	c.entries[account] = chat.FoundNote(n)
}

// len returns the number of cached entries.
func (c *noteCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
