package chat

import "fmt"

// MaxBatchSize is the largest page a search may ask for.
const MaxBatchSize = 10000

// SearchQuery describes one page of a historical message search.
//
// Empty or nil filters are ignored. Text is matched as a substring against
// the account name, character name and message body.
type SearchQuery struct {
	ID        uint64
	Text      string
	Kind      *ChannelKind
	Account   string
	Since     *int64
	Until     *int64
	BatchSize int
	Offset    int
}

// NextPage returns the query for the page after r.
func (q SearchQuery) NextPage(r SearchResults) SearchQuery {
	q.Offset = r.Offset + len(r.Messages)
	return q
}

// SearchResults is one page of matches, newest first.
type SearchResults struct {
	ID       uint64
	Messages []ArchivedMessage
	HasMore  bool
	Offset   int
}

// SessionState is the state of the shared search slot.
type SessionState int

const (
	// SessionIdle means no search has been requested.
	SessionIdle SessionState = iota
	// SessionSearching means the search with the tracked ID is running.
	SessionSearching
	// SessionResults means Results holds the answer for the tracked ID.
	SessionResults
	// SessionError means the tracked search failed with Err.
	SessionError
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionSearching:
		return "searching"
	case SessionResults:
		return "results"
	case SessionError:
		return "error"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// SearchSession is a snapshot of the search slot.
type SearchSession struct {
	State   SessionState
	ID      uint64
	Results SearchResults
	Err     string
}
