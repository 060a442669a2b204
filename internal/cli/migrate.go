package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/chatlog/internal/store"
)

// migrateOutput lists the migrations recorded in the store.
type migrateOutput struct {
	Path       string                   `json:"path"`
	Migrations []store.AppliedMigration `json:"migrations"`
	Messages   int64                    `json:"messages"`
}

func (o migrateOutput) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "%s: %d migration(s), %s message(s)\n", o.Path, len(o.Migrations), humanize.Comma(o.Messages))
	for _, m := range o.Migrations {
		if _, err := fmt.Fprintf(w, "  %3d  %-40s  %s\n", m.Version, m.Name, humanize.Time(m.AppliedAt)); err != nil {
			return err
		}
	}
	return nil
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database and list applied migrations",
		Long: `Open the database, applying any pending migrations, and list what has
been applied. Running it again applies nothing.

Example:
  chatlog migrate --db ./chatlog.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(rootOpts, cmd)
		},
	}
	return cmd
}

func runMigrate(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	configureLogging(opts, cfg)

	slog.Info("opening database", "path", cfg.Database.Path)
	st, err := store.Open(cfg.Database.Path, store.WithMaxConns(cfg.Database.MaxConns))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	ctx := commandContext(cmd)
	applied, err := st.Migrations(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list migrations", err)
	}
	count, err := st.CountMessages(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to count messages", err)
	}

	out := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}
	return out.Success(migrateOutput{Path: cfg.Database.Path, Migrations: applied, Messages: count})
}
