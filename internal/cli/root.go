// Package cli defines the activity-tracker command tree.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"activity-tracker/internal/app"
	"activity-tracker/internal/config"
)

// Options supplies the dependencies commands are built from. Zero fields
// fall back to config.Load and app.New.
type Options struct {
	LoadConfig func() (config.Config, error)
	NewApp     func(*slog.Logger, config.Config) (*app.App, error)
}

type env struct {
	opts    Options
	verbose bool
	log     *slog.Logger
}

// NewRootCmd creates the top-level "activity-tracker" command.
func NewRootCmd(opts Options) *cobra.Command {
	if opts.LoadConfig == nil {
		opts.LoadConfig = config.Load
	}
	if opts.NewApp == nil {
		opts.NewApp = app.New
	}
	e := &env{opts: opts}

	root := &cobra.Command{
		Use:           "activity-tracker",
		Short:         "Track time spent on activities",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if e.verbose {
				level = slog.LevelDebug
			}
			e.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			slog.SetDefault(e.log)
		},
	}
	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		newServeCmd(e),
		newMigrateCmd(e),
		newTrackCmd(e),
		newWatchCmd(e),
		newLogsCmd(e),
		newActivitiesCmd(e),
		newSummaryCmd(e),
		newExportCmd(e),
	)
	return root
}

// open loads configuration and assembles the App. Callers must Close it.
func (e *env) open() (*app.App, config.Config, error) {
	cfg, err := e.opts.LoadConfig()
	if err != nil {
		return nil, cfg, err
	}
	a, err := e.opts.NewApp(e.log, cfg)
	if err != nil {
		return nil, cfg, err
	}
	return a, cfg, nil
}
