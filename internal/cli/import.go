package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/chatlog/internal/chat"
)

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Append messages from a YAML stream",
		Long: `Append every message of a YAML stream, in document order.

Each document is one message:

  kind: squad
  subgroup: 1
  timestamp: 1700000000
  account_name: ":Tester.1234"
  character_name: Test Character
  text: stack on tag
  ---
  kind: party
  ...

The whole file is parsed before anything is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runImport(opts *RootOptions, path string, cmd *cobra.Command) error {
	msgs, err := readMessages(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read messages", err)
	}

	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}

	appended := 0
	var appendErr error
	for _, m := range msgs {
		if appendErr = s.engine.AppendMessage(m); appendErr != nil {
			break
		}
		appended++
	}
	slog.Debug("messages queued", "file", path, "count", appended)

	if err := s.close(); err != nil {
		return err
	}
	if appendErr != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("import stopped after %d messages", appended), appendErr)
	}

	return s.out.Success(appendResult{Appended: appended})
}

// readMessages decodes a YAML stream of messages. Empty documents are
// skipped.
func readMessages(path string) ([]chat.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var msgs []chat.Message
	dec := yaml.NewDecoder(f)
	for doc := 1; ; doc++ {
		var node yaml.Node
		if err := dec.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("document %d: %w", doc, err)
		}
		if len(node.Content) == 0 {
			continue
		}

		var m chat.Message
		if err := node.Decode(&m); err != nil {
			return nil, fmt.Errorf("document %d: %w", doc, err)
		}
		if m.AccountName == "" {
			return nil, fmt.Errorf("document %d: account_name is required", doc)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}
