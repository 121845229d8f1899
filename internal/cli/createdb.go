package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/scoreboard/internal/adapters/repository"
	"github.com/okian/scoreboard/internal/config"
)

// CreateDBOptions holds flags for the createdb command.
type CreateDBOptions struct {
	*RootOptions
	Force bool
}

// NewCreateDBCommand creates the createdb command.
func NewCreateDBCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateDBOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "createdb",
		Short: "Create an empty score database",
		Long: `Create the SQLite database holding the scores table.

An existing database is left untouched unless --force is given, in which
case it is removed and recreated empty.

Examples:
  scoreboard-admin createdb --db ./scores.db
  scoreboard-admin createdb --db ./scores.db --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreateDB(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing database")

	return cmd
}

func runCreateDB(opts *CreateDBOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.StorageDriver != config.DriverSQLite {
		return NewExitError(ExitCommandError, fmt.Sprintf("createdb needs the sqlite driver, configured driver is %q", cfg.StorageDriver))
	}

	st, err := repository.CreateSQLite(ctx, cfg.SQLiteFilename, opts.Force)
	if err != nil {
		return failed("failed to create database", err)
	}
	defer st.Close()

	if formatter.isJSON() {
		return formatter.Success(map[string]interface{}{"path": st.Path(), "created": true})
	}
	return formatter.Success(fmt.Sprintf("created database %s", st.Path()))
}
