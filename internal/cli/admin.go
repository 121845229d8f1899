package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	service "github.com/okian/scoreboard/internal/app"
	"github.com/okian/scoreboard/internal/domain/model"
)

// SpuriousOptions holds flags for the spurious command.
type SpuriousOptions struct {
	*RootOptions
	ID int64
}

// NewSpuriousCommand creates the spurious command.
func NewSpuriousCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SpuriousOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "spurious",
		Short: "Toggle the spurious flag of a record",
		Long: `Flip the spurious flag of a record. Spurious records stay in the
database but are left out of the unique ranking. Running the command twice
restores the original flag.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, err := opts.openService(ctx)
			if err != nil {
				return err
			}
			defer svc.Stop()

			r, err := svc.ToggleSpurious(ctx, opts.ID)
			if err != nil {
				return failed("failed to toggle spurious", err)
			}
			formatter := opts.formatter(cmd)
			if formatter.isJSON() {
				return formatter.Success(r)
			}
			fmt.Fprintf(formatter.Writer, "record %d spurious=%t\n", r.ID, r.Spurious)
			return nil
		},
	}

	cmd.Flags().Int64Var(&opts.ID, "id", 0, "record id (required)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

// DeleteOptions holds flags for the delete command.
type DeleteOptions struct {
	*RootOptions
	ID    int64
	All   bool
	Force bool
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete one record or every record",
		Long: `Delete the record with --id, or every record with --all.

--all only reports how many records would be removed unless --force is
also given.

Examples:
  scoreboard-admin delete --id 12
  scoreboard-admin delete --all --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			req := service.DeleteRequest{All: opts.All, Force: opts.Force}
			if cmd.Flags().Changed("id") {
				id := opts.ID
				req.ID = &id
			}

			svc, err := opts.openService(ctx)
			if err != nil {
				return err
			}
			defer svc.Stop()

			out, err := svc.Delete(ctx, req)
			if err != nil {
				return failed("delete failed", err)
			}

			formatter := opts.formatter(cmd)
			if formatter.isJSON() {
				return formatter.Success(out)
			}
			switch {
			case out.Record != nil:
				fmt.Fprintf(formatter.Writer, "deleted record %d:\n", out.Record.ID)
				return formatter.Records([]model.ScoreRecord{*out.Record})
			case out.All.Deleted:
				fmt.Fprintf(formatter.Writer, "deleted %d record(s)\n", out.All.Count)
			default:
				fmt.Fprintf(formatter.Writer, "would delete %d record(s); re-run with --force to confirm\n", out.All.Count)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&opts.ID, "id", 0, "record id to delete")
	cmd.Flags().BoolVar(&opts.All, "all", false, "delete every record")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "confirm --all")

	return cmd
}
