package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/chatlog/internal/chat"
)

// noteOutput is the payload printed by note get.
type noteOutput struct {
	State string     `json:"state"`
	Note  *chat.Note `json:"note,omitempty"`
}

func (o noteOutput) RenderText(w io.Writer) error {
	if o.Note == nil {
		_, err := fmt.Fprintf(w, "no note (%s)\n", o.State)
		return err
	}

	n := o.Note
	if _, err := fmt.Fprintf(w, "%s: %s\n", n.AccountName, n.Text); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "added %s, updated %s\n",
		humanize.Time(time.Unix(n.Added, 0)), humanize.Time(time.Unix(n.Updated, 0))); err != nil {
		return err
	}
	if n.Color != nil {
		_, err := fmt.Fprintf(w, "color %.3g %.3g %.3g\n", n.Color.R, n.Color.G, n.Color.B)
		return err
	}
	return nil
}

// noteChange is the payload printed by the note write commands.
type noteChange struct {
	Account string `json:"account"`
	Action  string `json:"action"`
}

func (c noteChange) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "note %s: %s\n", c.Action, c.Account)
	return err
}

// NewNoteCommand creates the note command group.
func NewNoteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Read and edit account notes",
		Long: `Read and edit the free-text note attached to an account.

Example:
  chatlog note set :Tester.1234 "helpful commander"
  chatlog note color :Tester.1234 0.2 0.8 0.2
  chatlog note get :Tester.1234`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <account>",
		Short: "Print the note for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNoteGet(rootOpts, args[0], cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <account> <text>",
		Short: "Create or replace the note for an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNoteWrite(rootOpts, cmd, noteChange{Account: args[0], Action: "set"},
				func(s *session) error { return s.engine.UpsertNote(args[0], args[1]) })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "color <account> <r> <g> <b>",
		Short: "Set the note color (channels in [0, 1])",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			color, err := parseColor(args[1:])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid color", err)
			}
			return runNoteWrite(rootOpts, cmd, noteChange{Account: args[0], Action: "color"},
				func(s *session) error { return s.engine.UpdateNoteColor(args[0], &color) })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear-color <account>",
		Short: "Remove the note color",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNoteWrite(rootOpts, cmd, noteChange{Account: args[0], Action: "clear-color"},
				func(s *session) error { return s.engine.UpdateNoteColor(args[0], nil) })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <account>",
		Short: "Delete the note for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNoteWrite(rootOpts, cmd, noteChange{Account: args[0], Action: "delete"},
				func(s *session) error { return s.engine.DeleteNote(args[0]) })
		},
	})

	return cmd
}

func parseColor(args []string) (chat.Color, error) {
	var ch [3]float32
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 32)
		if err != nil {
			return chat.Color{}, fmt.Errorf("channel %d: %w", i+1, err)
		}
		ch[i] = float32(v)
	}
	c := chat.Color{R: ch[0], G: ch[1], B: ch[2]}
	return c, c.Validate()
}

func runNoteGet(opts *RootOptions, account string, cmd *cobra.Command) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}

	var q chat.QueriedNote
	pollErr := poll(commandContext(cmd), func() bool {
		q = s.engine.GetOrQueryNote(account)
		return q.State != chat.NotePending
	})
	if err := s.close(); err != nil {
		return err
	}
	if pollErr != nil {
		return WrapExitError(ExitFailure, "note lookup interrupted", pollErr)
	}

	switch q.State {
	case chat.NoteError:
		_ = s.out.Error(CodeNote, "note lookup failed", account)
		return NewExitError(ExitFailure, "note lookup failed")
	case chat.NoteSuccess:
		n := q.Note
		return s.out.Success(noteOutput{State: q.State.String(), Note: &n})
	default:
		return s.out.Success(noteOutput{State: q.State.String()})
	}
}

func runNoteWrite(opts *RootOptions, cmd *cobra.Command, change noteChange, write func(*session) error) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}

	writeErr := write(s)
	if err := s.close(); err != nil {
		return err
	}
	if writeErr != nil {
		return WrapExitError(ExitFailure, "note "+change.Action+" failed", writeErr)
	}
	return s.out.Success(change)
}
