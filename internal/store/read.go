package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/chatlog/internal/chat"
	"github.com/roach88/chatlog/internal/querysql"
)

const readNoteSQL = `
	SELECT account_name, note, note_added, note_updated, color1, color2, color3
	FROM notes
	WHERE account_name = ?
	LIMIT 1`

// searchPrealloc bounds the rows preallocated for one search page.
const searchPrealloc = 256

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// ReadNote returns the note for account.
// Returns sql.ErrNoRows (unwrapped) if the account has no note.
func (c *Conn) ReadNote(ctx context.Context, account string) (chat.Note, error) {
	stmt, err := c.prepare(ctx, readNoteSQL)
	if err != nil {
		return chat.Note{}, fmt.Errorf("read note: %w", err)
	}
	note, err := scanNote(stmt.QueryRowContext(ctx, account))
	if err == sql.ErrNoRows {
		return chat.Note{}, err
	}
	if err != nil {
		return chat.Note{}, fmt.Errorf("read note: %w", err)
	}
	return note, nil
}

// SearchMessages runs one page of q.
//
// The statement fetches one row more than q.BatchSize; if it is present it
// is trimmed and HasMore is set.
func (c *Conn) SearchMessages(ctx context.Context, q chat.SearchQuery) (chat.SearchResults, error) {
	query, params, err := querysql.CompileSearch(q)
	if err != nil {
		return chat.SearchResults{}, fmt.Errorf("search messages: %w", err)
	}

	stmt, err := c.prepare(ctx, query)
	if err != nil {
		return chat.SearchResults{}, fmt.Errorf("search messages: %w", err)
	}

	rows, err := stmt.QueryContext(ctx, params...)
	if err != nil {
		return chat.SearchResults{}, fmt.Errorf("search messages: %w", err)
	}
	defer rows.Close()

	// Size the buffer for a typical page; large pages grow as rows arrive.
	messages := make([]chat.ArchivedMessage, 0, min(q.BatchSize+1, searchPrealloc))
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return chat.SearchResults{}, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return chat.SearchResults{}, fmt.Errorf("iterate search results: %w", err)
	}

	results := chat.SearchResults{ID: q.ID, Offset: q.Offset}
	if len(messages) > q.BatchSize {
		messages = messages[:q.BatchSize]
		results.HasMore = true
	}
	results.Messages = messages
	return results, nil
}

// ReadMessages returns up to limit messages with id > afterID in insertion
// order. Returns an empty slice (not nil) if there are none.
func (s *Store) ReadMessages(ctx context.Context, afterID int64, limit int) ([]chat.ArchivedMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+querysql.MessageColumns+" FROM messages WHERE id > ? ORDER BY id ASC LIMIT ?",
		afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := []chat.ArchivedMessage{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

// CountMessages returns the number of stored messages.
func (s *Store) CountMessages(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages").Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

// scanMessage scans a row selected with querysql.MessageColumns.
func scanMessage(row rowScanner) (chat.ArchivedMessage, error) {
	var m chat.ArchivedMessage
	var kind string
	if err := row.Scan(
		&m.ID, &m.ChannelID, &kind, &m.Subgroup, &m.IsBroadcast, &m.Timestamp,
		&m.AccountName, &m.CharacterName, &m.Text, &m.SessionStart,
	); err != nil {
		return chat.ArchivedMessage{}, fmt.Errorf("scan message: %w", err)
	}

	parsed, err := chat.ParseChannelKind(kind)
	if err != nil {
		// Unknown names from older writers read back as Invalid.
		parsed = chat.Invalid
	}
	m.Kind = parsed
	return m, nil
}

// scanNote scans a row selected by readNoteSQL. The color is present only
// when all three channels are non-NULL.
func scanNote(row rowScanner) (chat.Note, error) {
	var n chat.Note
	var c1, c2, c3 sql.NullFloat64
	if err := row.Scan(&n.AccountName, &n.Text, &n.Added, &n.Updated, &c1, &c2, &c3); err != nil {
		return chat.Note{}, err
	}
	if c1.Valid && c2.Valid && c3.Valid {
		n.Color = &chat.Color{R: float32(c1.Float64), G: float32(c2.Float64), B: float32(c3.Float64)}
	}
	return n, nil
}
