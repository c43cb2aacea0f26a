package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reactive/internal/config"
	"github.com/vango-dev/reactive/internal/errors"
	"github.com/vango-dev/reactive/pkg/reactive"
)

// app holds what the persistent pre-run resolved for subcommands.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "reactive",
		Short: "Fine-grained reactive state for Go",
		Long: `reactive tracks which computations read which values and re-runs
exactly those computations when the values change.

The CLI replays scenario files against the engine, runs a demo, and
serves an inspector with the live dependency graph, metrics and an
event stream.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.ConfigFileName, "Path to the config file")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")

	rootCmd.AddCommand(
		runCmd(a),
		demoCmd(a),
		serveCmd(a),
		configCmd(a),
		archiveCmd(a),
		versionCmd(),
	)

	return rootCmd
}

// init loads the config and installs the process logger.
func (a *app) init(stderr io.Writer) error {
	cfg, err := config.LoadOrDefault(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg

	level, err := cfg.SlogLevel()
	if err != nil {
		return errors.New("E202").Wrap(err)
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(stderr, opts)
	} else {
		handler = slog.NewTextHandler(stderr, opts)
	}
	a.logger = slog.New(handler)

	slog.SetDefault(a.logger)
	reactive.SetLogger(a.logger)
	reactive.Debug.LogEffectRuns = cfg.Debug.LogEffectRuns
	return nil
}
