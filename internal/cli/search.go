package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/chatlog/internal/chat"
)

// SearchOptions holds flags for the search command.
type SearchOptions struct {
	*RootOptions
	Kind    string
	Account string
	Since   int64
	Until   int64
	Limit   int
	Offset  int
	All     bool
}

// searchOutput is the payload printed by search.
type searchOutput struct {
	Messages   []chat.ArchivedMessage `json:"messages"`
	HasMore    bool                   `json:"has_more"`
	NextOffset int                    `json:"next_offset,omitempty"`
}

// RenderText prints one line per message, newest first.
func (o searchOutput) RenderText(w io.Writer) error {
	for _, m := range o.Messages {
		name := m.CharacterName
		if name == "" {
			name = "-"
		}
		scope := fmt.Sprintf("%s:%d", m.Kind, m.Subgroup)
		if m.IsBroadcast {
			scope += " broadcast"
		}
		if _, err := fmt.Fprintf(w, "%s [%s] %s (%s): %s\n",
			time.Unix(m.Timestamp, 0).UTC().Format(time.DateTime),
			scope, name, m.AccountName, m.Text); err != nil {
			return err
		}
	}

	summary := fmt.Sprintf("%d message(s)", len(o.Messages))
	if o.HasMore {
		summary += fmt.Sprintf(", more with --offset %d", o.NextOffset)
	}
	_, err := fmt.Fprintln(w, summary)
	return err
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SearchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "search [fragment]",
		Short: "Search stored messages",
		Long: `Search stored messages, newest first.

The fragment matches anywhere in the account name, character name or text.
Filters are combined with AND. Results are paged by --limit; --all follows
every page.

Example:
  chatlog search tag --kind squad --since 1700000000 --limit 20`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fragment := ""
			if len(args) == 1 {
				fragment = args[0]
			}
			return runSearch(opts, fragment, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only this channel kind (party|squad|reserved)")
	cmd.Flags().StringVar(&opts.Account, "account", "", "only this sender account")
	cmd.Flags().Int64Var(&opts.Since, "since", 0, "only messages at or after this unix second")
	cmd.Flags().Int64Var(&opts.Until, "until", 0, "only messages at or before this unix second")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "page size (default from config)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "rows to skip")
	cmd.Flags().BoolVar(&opts.All, "all", false, "fetch every page")

	return cmd
}

func buildQuery(opts *SearchOptions, fragment string) (chat.SearchQuery, error) {
	if opts.Limit < 0 {
		return chat.SearchQuery{}, fmt.Errorf("--limit must not be negative")
	}
	if opts.Limit > chat.MaxBatchSize {
		return chat.SearchQuery{}, fmt.Errorf("--limit must be at most %d", chat.MaxBatchSize)
	}
	if opts.Offset < 0 {
		return chat.SearchQuery{}, fmt.Errorf("--offset must not be negative")
	}

	q := chat.SearchQuery{
		Text:      fragment,
		Account:   opts.Account,
		BatchSize: opts.Limit,
		Offset:    opts.Offset,
	}
	if opts.Kind != "" {
		kind, err := chat.ParseChannelKind(opts.Kind)
		if err != nil {
			return chat.SearchQuery{}, err
		}
		q.Kind = &kind
	}
	if opts.Since != 0 {
		since := opts.Since
		q.Since = &since
	}
	if opts.Until != 0 {
		until := opts.Until
		q.Until = &until
	}
	return q, nil
}

func runSearch(opts *SearchOptions, fragment string, cmd *cobra.Command) error {
	q, err := buildQuery(opts, fragment)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid search", err)
	}

	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	out, searchErr := collectSearch(cmd, s, q, opts.All)
	if err := s.close(); err != nil {
		return err
	}
	if searchErr != nil {
		_ = s.out.Error(CodeSearch, "search failed", searchErr.Error())
		return WrapExitError(ExitFailure, "search failed", searchErr)
	}

	return s.out.Success(out)
}

// collectSearch runs q and, with all set, every following page.
func collectSearch(cmd *cobra.Command, s *session, q chat.SearchQuery, all bool) (searchOutput, error) {
	ctx := commandContext(cmd)
	out := searchOutput{Messages: []chat.ArchivedMessage{}}

	id, err := s.engine.StartSearch(q)
	for {
		if err != nil {
			return out, err
		}

		var snap chat.SearchSession
		if err := poll(ctx, func() bool {
			snap = s.engine.PollSearch()
			return snap.ID == id && snap.State != chat.SessionSearching
		}); err != nil {
			return out, err
		}
		if snap.State == chat.SessionError {
			return out, errors.New(snap.Err)
		}

		res := snap.Results
		out.Messages = append(out.Messages, res.Messages...)
		out.HasMore = res.HasMore
		out.NextOffset = 0
		if res.HasMore {
			out.NextOffset = res.Offset + len(res.Messages)
		}

		if !all {
			return out, nil
		}

		var more bool
		id, more, err = s.engine.NextSearchPage()
		if !more {
			return out, err
		}
	}
}
