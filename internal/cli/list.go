package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/okian/scoreboard/internal/domain/query"
)

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "List every record, spurious ones included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, err := rootOpts.openService(ctx)
			if err != nil {
				return err
			}
			defer svc.Stop()

			records, err := svc.Dump(ctx)
			if err != nil {
				return failed("failed to dump records", err)
			}
			return rootOpts.formatter(cmd).Records(records)
		},
	}
}

// SearchOptions holds flags for the search command.
type SearchOptions struct {
	*RootOptions
	Query string
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SearchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find records with any field containing a substring",
		Long: `Find records where any field contains the query, ignoring case.
Numbers are matched against their text form, so "124" finds 124.22.

Examples:
  scoreboard-admin search -q alif
  scoreboard-admin search -q 2024-08-17`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, err := opts.openService(ctx)
			if err != nil {
				return err
			}
			defer svc.Stop()

			records, err := svc.Search(ctx, opts.Query)
			if err != nil {
				return failed("search failed", err)
			}
			return opts.formatter(cmd).Records(records)
		},
	}

	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "substring to look for (required)")
	_ = cmd.MarkFlagRequired("query")

	return cmd
}

// FilterOptions holds flags for the filter command.
type FilterOptions struct {
	*RootOptions
	MinHeight float64
	MaxHeight float64
	After     string
	Before    string
	Spurious  int
}

// NewFilterCommand creates the filter command.
func NewFilterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FilterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "List records inside height and date ranges",
		Long: `List records with min-height <= max_height <= max-height and
after < timestamp < before. --spurious selects -1 (any), 0 (clean only)
or 1 (spurious only).

Examples:
  scoreboard-admin filter --min-height 100
  scoreboard-admin filter --after 2024-08-17 --before 2024-08-18 --spurious 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			q, err := query.NewFilterQuery(opts.MinHeight, opts.MaxHeight, opts.After, opts.Before, opts.Spurious)
			if err != nil {
				return failed("invalid filter", err)
			}

			svc, err := opts.openService(ctx)
			if err != nil {
				return err
			}
			defer svc.Stop()

			records, err := svc.Filter(ctx, q)
			if err != nil {
				return failed("filter failed", err)
			}
			return opts.formatter(cmd).Records(records)
		},
	}

	cmd.Flags().Float64Var(&opts.MinHeight, "min-height", 0, "lowest max_height included")
	cmd.Flags().Float64Var(&opts.MaxHeight, "max-height", 999999, "highest max_height included")
	cmd.Flags().StringVar(&opts.After, "after", "1970-01-01", "only records strictly after this date")
	cmd.Flags().StringVar(&opts.Before, "before", "2500-01-01", "only records strictly before this date")
	cmd.Flags().IntVar(&opts.Spurious, "spurious", -1, "spurious selector: -1 any, 0 clean, 1 spurious")

	return cmd
}
