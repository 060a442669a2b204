package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/chatlog/internal/chat"
)

// AppendOptions holds flags for the append command.
type AppendOptions struct {
	*RootOptions
	ChannelID uint32
	Kind      string
	Subgroup  uint8
	Broadcast bool
	Timestamp int64
	Account   string
	Character string
	Text      string
}

// appendResult is the payload printed by append and import.
type appendResult struct {
	Appended int `json:"appended"`
}

func (r appendResult) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%d message(s) appended\n", r.Appended)
	return err
}

// NewAppendCommand creates the append command.
func NewAppendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AppendOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "append",
		Short: "Append one chat message",
		Long: `Append one chat message to the log.

The timestamp defaults to now. Text is stored in Unicode NFC form.

Example:
  chatlog append --kind squad --subgroup 1 --account :Tester.1234 \
    --character "Test Character" --text "stack on tag"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAppend(opts, cmd)
		},
	}

	cmd.Flags().Uint32Var(&opts.ChannelID, "channel", 0, "channel id")
	cmd.Flags().StringVar(&opts.Kind, "kind", "squad", "channel kind (party|squad|reserved)")
	cmd.Flags().Uint8Var(&opts.Subgroup, "subgroup", 0, "squad subgroup")
	cmd.Flags().BoolVar(&opts.Broadcast, "broadcast", false, "message was broadcast to the whole squad")
	cmd.Flags().Int64Var(&opts.Timestamp, "timestamp", 0, "unix seconds (default now)")
	cmd.Flags().StringVar(&opts.Account, "account", "", "sender account name (required)")
	cmd.Flags().StringVar(&opts.Character, "character", "", "sender character name")
	cmd.Flags().StringVar(&opts.Text, "text", "", "message text (required)")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("text")

	return cmd
}

func runAppend(opts *AppendOptions, cmd *cobra.Command) error {
	kind, err := chat.ParseChannelKind(opts.Kind)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --kind", err)
	}

	ts := opts.Timestamp
	if ts == 0 {
		ts = time.Now().Unix()
	}

	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	appendErr := s.engine.AppendMessage(chat.Message{
		ChannelID:     opts.ChannelID,
		Kind:          kind,
		Subgroup:      opts.Subgroup,
		IsBroadcast:   opts.Broadcast,
		Timestamp:     ts,
		AccountName:   opts.Account,
		CharacterName: opts.Character,
		Text:          opts.Text,
	})
	if err := s.close(); err != nil {
		return err
	}
	if appendErr != nil {
		return WrapExitError(ExitFailure, "append failed", appendErr)
	}

	return s.out.Success(appendResult{Appended: 1})
}
