// Package cli implements the scoreboard-admin command line tool.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	service "github.com/okian/scoreboard/internal/app"
	"github.com/okian/scoreboard/internal/config"
	"github.com/okian/scoreboard/pkg/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Database   string // overrides sqlite_filename and forces the sqlite driver
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the admin tool.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "scoreboard-admin",
		Short: "Administer the scoreboard database",
		Long: `Inspect and repair the scoreboard record store.

Records can be created from delimited text or the builtin examples, listed,
searched, filtered, flagged as spurious and deleted. The ranked and recent
feeds served over HTTP can be printed with top and recent.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr())); err != nil {
				return WrapExitError(ExitCommandError, "failed to initialize logger", err)
			}
			level := "warn"
			if opts.Verbose {
				level = "debug"
			}
			_ = logger.SetLevelString(level)
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the SQLite database (overrides config)")

	// Add subcommands
	cmd.AddCommand(NewCreateDBCommand(opts))
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewFilterCommand(opts))
	cmd.AddCommand(NewSpuriousCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewTopCommand(opts))
	cmd.AddCommand(NewRecentCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// loadConfig resolves the configuration with the --db override applied.
func (o *RootOptions) loadConfig(ctx context.Context) (*config.Config, error) {
	var loadOpts []config.LoadOption
	if o.ConfigPath != "" {
		loadOpts = append(loadOpts, config.WithFile(o.ConfigPath))
	}
	cfg, err := config.Load(ctx, loadOpts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if o.Database != "" {
		cfg.StorageDriver = config.DriverSQLite
		cfg.SQLiteFilename = o.Database
	}
	return cfg, nil
}

// openService starts a service over the configured store. Callers must Stop it.
func (o *RootOptions) openService(ctx context.Context) (*service.Service, error) {
	cfg, err := o.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	svc := service.New(
		service.WithStorage(cfg.StorageDriver, cfg.SQLiteFilename),
		service.WithMaxTopLimit(cfg.MaxTopLimit),
	)
	if err := svc.Start(ctx); err != nil {
		return nil, failed("failed to open store", err)
	}
	return svc, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
