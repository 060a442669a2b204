package chat

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidColor is returned when a color channel is outside [0, 1].
var ErrInvalidColor = errors.New("invalid color")

// Color is a display color with three normalized channels.
type Color struct {
	R float32 `json:"r"`
	G float32 `json:"g"`
	B float32 `json:"b"`
}

// Validate reports an error if any channel is NaN or outside [0, 1].
func (c Color) Validate() error {
	for _, v := range [3]float32{c.R, c.G, c.B} {
		f := float64(v)
		if math.IsNaN(f) || f < 0 || f > 1 {
			return fmt.Errorf("%w: channel %v not in [0, 1]", ErrInvalidColor, v)
		}
	}
	return nil
}

// Note is a free-text annotation attached to an account.
//
// There is at most one note per account. Added is set when the note is first
// written and never changes; Updated moves forward on every edit.
type Note struct {
	AccountName string `json:"account_name"`
	Text        string `json:"note"`
	Added       int64  `json:"note_added"`
	Updated     int64  `json:"note_updated"`
	Color       *Color `json:"color,omitempty"`
}

// NoteState is the state of a cached note lookup.
type NoteState int

const (
	// NotePending means a lookup is in flight.
	NotePending NoteState = iota
	// NoteSuccess means Note holds the stored annotation.
	NoteSuccess
	// NoteNotFound means the account has no note.
	NoteNotFound
	// NoteError means the lookup failed.
	NoteError
)

func (s NoteState) String() string {
	switch s {
	case NotePending:
		return "pending"
	case NoteSuccess:
		return "success"
	case NoteNotFound:
		return "not_found"
	case NoteError:
		return "error"
	default:
		return fmt.Sprintf("NoteState(%d)", int(s))
	}
}

// QueriedNote is the value held by the note cache for an account.
// Note is only meaningful when State is NoteSuccess.
type QueriedNote struct {
	State NoteState
	Note  Note
}

// PendingNote returns the placeholder stored while a lookup is in flight.
func PendingNote() QueriedNote { return QueriedNote{State: NotePending} }

// NotFoundNote returns the value for an account without a note.
func NotFoundNote() QueriedNote { return QueriedNote{State: NoteNotFound} }

// ErrorNote returns the value for a failed lookup.
func ErrorNote() QueriedNote { return QueriedNote{State: NoteError} }

// FoundNote wraps n in a successful lookup result.
func FoundNote(n Note) QueriedNote { return QueriedNote{State: NoteSuccess, Note: n} }
