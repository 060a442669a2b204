package engine

import (
	"sync"

	"github.com/roach88/chatlog/internal/chat"
)

// searchSession is the single search slot shared by the producer and the
// query worker.
//
// A result is published only if its id equals the tracked id. Starting a
// new search or clearing the slot makes every in-flight result stale.
type searchSession struct {
	mu    sync.Mutex
	slot  chat.SearchSession
	query chat.SearchQuery // last query started, for paging
}

func newSearchSession() *searchSession {
	return &searchSession{}
}

// start moves the slot to Searching for q.
func (s *searchSession) start(q chat.SearchQuery) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slot = chat.SearchSession{State: chat.SessionSearching, ID: q.ID}
	s.query = q
}

// complete publishes results if they are still current.
func (s *searchSession) complete(r chat.SearchResults) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.trackingLocked(r.ID) {
		return false
	}
	s.slot = chat.SearchSession{State: chat.SessionResults, ID: r.ID, Results: r}
	return true
}

// fail publishes an error if id is still current.
func (s *searchSession) fail(id uint64, reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.trackingLocked(id) {
		return false
	}
	s.slot = chat.SearchSession{State: chat.SessionError, ID: id, Err: reason}
	return true
}

// current reports whether id is the search the slot is waiting for.
func (s *searchSession) current(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trackingLocked(id)
}

func (s *searchSession) trackingLocked(id uint64) bool {
	return s.slot.State == chat.SessionSearching && s.slot.ID == id
}

// snapshot returns a copy of the slot.
func (s *searchSession) snapshot() chat.SearchSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.slot
	if out.Results.Messages != nil {
		out.Results.Messages = append([]chat.ArchivedMessage(nil), out.Results.Messages...)
	}
	return out
}

// nextPage returns the query for the page after the current results.
func (s *searchSession) nextPage() (chat.SearchQuery, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slot.State != chat.SessionResults || !s.slot.Results.HasMore {
		return chat.SearchQuery{}, false
	}
	return s.query.NextPage(s.slot.Results), true
}

// clear forces the slot to Idle.
func (s *searchSession) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slot = chat.SearchSession{}
	s.query = chat.SearchQuery{}
}
