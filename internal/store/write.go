package store

import (
	"context"
	"fmt"

	"github.com/roach88/chatlog/internal/chat"
)

const insertMessageSQL = `
	INSERT INTO messages
	(channel_id, channel_type, subgroup, is_broadcast, timestamp, account_name, character_name, text, game_start)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// note_updated never moves below note_added, even if the wall clock steps back.
const upsertNoteSQL = `
	INSERT INTO notes (account_name, note_added, note_updated, note)
	VALUES (?1, ?2, ?2, ?3)
	ON CONFLICT(account_name) DO UPDATE SET
		note = excluded.note,
		note_updated = MAX(notes.note_added, excluded.note_updated)`

const updateNoteColorSQL = `UPDATE notes SET color1 = ?, color2 = ?, color3 = ? WHERE account_name = ?`

const deleteNoteSQL = `DELETE FROM notes WHERE account_name = ?`

// InsertMessage appends msg to the log, tagged with sessionStart.
// Returns the row id of the new message.
func (c *Conn) InsertMessage(ctx context.Context, msg chat.Message, sessionStart int64) (int64, error) {
	stmt, err := c.prepare(ctx, insertMessageSQL)
	if err != nil {
		return 0, fmt.Errorf("insert message: %w", err)
	}

	result, err := stmt.ExecContext(ctx,
		msg.ChannelID,
		msg.Kind.String(),
		msg.Subgroup,
		msg.IsBroadcast,
		msg.Timestamp,
		msg.AccountName,
		msg.CharacterName,
		msg.Text,
		sessionStart,
	)
	if err != nil {
		return 0, fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert message: last insert id: %w", err)
	}
	return id, nil
}

// UpsertNote writes the note text for account. A new row gets
// note_added = note_updated = now; an existing row keeps note_added and
// its color.
func (c *Conn) UpsertNote(ctx context.Context, account, text string, now int64) error {
	stmt, err := c.prepare(ctx, upsertNoteSQL)
	if err != nil {
		return fmt.Errorf("upsert note: %w", err)
	}
	if _, err := stmt.ExecContext(ctx, account, now, text); err != nil {
		return fmt.Errorf("upsert note: %w", err)
	}
	return nil
}

// UpdateNoteColor sets or, with a nil color, clears the color of an
// existing note. Returns false if account has no note; that is not an error.
func (c *Conn) UpdateNoteColor(ctx context.Context, account string, color *chat.Color) (bool, error) {
	stmt, err := c.prepare(ctx, updateNoteColorSQL)
	if err != nil {
		return false, fmt.Errorf("update note color: %w", err)
	}

	var r, g, b any
	if color != nil {
		r, g, b = float64(color.R), float64(color.G), float64(color.B)
	}

	result, err := stmt.ExecContext(ctx, r, g, b, account)
	if err != nil {
		return false, fmt.Errorf("update note color: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update note color: rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteNote removes the note for account. Returns false if there was none;
// that is not an error.
func (c *Conn) DeleteNote(ctx context.Context, account string) (bool, error) {
	stmt, err := c.prepare(ctx, deleteNoteSQL)
	if err != nil {
		return false, fmt.Errorf("delete note: %w", err)
	}
	result, err := stmt.ExecContext(ctx, account)
	if err != nil {
		return false, fmt.Errorf("delete note: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete note: rows affected: %w", err)
	}
	return n > 0, nil
}
