package engine

import "github.com/roach88/chatlog/internal/chat"

// insertKind distinguishes requests handled by the insert worker.
type insertKind int

const (
	insertMessage insertKind = iota + 1
	insertUpsertNote
	insertNoteColor
	insertDeleteNote
)

// insertRequest is one write, applied as a single statement.
type insertRequest struct {
	kind    insertKind
	message chat.Message
	account string
	text    string
	color   *chat.Color
	now     int64
}

// queryKind distinguishes requests handled by the query worker.
type queryKind int

const (
	queryNote queryKind = iota + 1
	querySearch
)

// queryRequest is one read whose result is published to shared state.
type queryRequest struct {
	kind    queryKind
	account string
	search  chat.SearchQuery
}
