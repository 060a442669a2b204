package cli

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/chatlog/internal/config"
	"github.com/roach88/chatlog/internal/engine"
	"github.com/roach88/chatlog/internal/metrics"
)

// pollInterval is how often commands poll the note cache and search session.
const pollInterval = 10 * time.Millisecond

// session is an open engine plus what a command needs around it.
type session struct {
	cfg      *config.Config
	engine   *engine.Engine
	registry *prometheus.Registry
	out      *OutputFormatter
}

// loadConfig reads the config file and applies the --db override.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database.Path = opts.Database
	}
	return cfg, nil
}

// configureLogging installs the default slog handler on stderr.
func configureLogging(opts *RootOptions, cfg *config.Config) {
	level, err := cfg.LogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(handler))
}

// openSession loads configuration, sets up logging and starts an engine.
func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	configureLogging(opts, cfg)

	reg := prometheus.NewRegistry()
	slog.Debug("opening database", "path", cfg.Database.Path)
	eng, err := engine.New(commandContext(cmd), cfg.EngineConfig(time.Now().Unix()),
		engine.WithLogger(slog.Default()),
		engine.WithMetrics(metrics.New(reg)),
	)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	return &session{
		cfg:      cfg,
		engine:   eng,
		registry: reg,
		out: &OutputFormatter{
			Format:  opts.Format,
			Writer:  cmd.OutOrStdout(),
			Verbose: opts.Verbose,
		},
	}, nil
}

// close drains the engine and logs worker counters at debug level.
func (s *session) close() error {
	err := s.engine.Close()
	if err != nil {
		slog.Error("engine stopped with error", "error", err)
	}
	logCounters(s.registry)
	if err != nil {
		return WrapExitError(ExitFailure, "engine error", err)
	}
	return nil
}

// logCounters writes every non-zero counter in reg at debug level.
func logCounters(reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		slog.Debug("gather metrics", "error", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil && c.GetValue() > 0 {
				attrs := []any{"metric", mf.GetName(), "value", c.GetValue()}
				for _, lp := range m.GetLabel() {
					attrs = append(attrs, lp.GetName(), lp.GetValue())
				}
				slog.Debug("counter", attrs...)
			}
		}
	}
}

// poll calls done every pollInterval until it returns true or ctx ends.
func poll(ctx context.Context, done func() bool) error {
	if done() {
		return nil
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if done() {
				return nil
			}
		}
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
