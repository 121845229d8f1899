package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/okian/scoreboard/internal/domain/timeframe"
)

// TopOptions holds flags for the top command.
type TopOptions struct {
	*RootOptions
	Total     int
	Timeframe string
	Unique    bool
}

// NewTopCommand creates the top command.
func NewTopCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TopOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Print the ranked feed",
		Long: `Print the highest runs in a timeframe, as served by /scoreboard/top.
With --unique each player appears once with their best clean run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, err := opts.openService(ctx)
			if err != nil {
				return err
			}
			defer svc.Stop()

			entries, err := svc.TopScores(ctx, opts.Timeframe, opts.Total, opts.Unique)
			if err != nil {
				return failed("ranked query failed", err)
			}
			return opts.formatter(cmd).Ranked(entries)
		},
	}

	cmd.Flags().IntVar(&opts.Total, "total", 10, "number of entries")
	cmd.Flags().StringVar(&opts.Timeframe, "timeframe", timeframe.TokenAllTime, "daily|weekly|alltime")
	cmd.Flags().BoolVar(&opts.Unique, "unique", false, "one entry per player, spurious runs excluded")

	return cmd
}

// RecentOptions holds flags for the recent command.
type RecentOptions struct {
	*RootOptions
	Total int
}

// NewRecentCommand creates the recent command.
func NewRecentCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecentOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Print the most recently submitted runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, err := opts.openService(ctx)
			if err != nil {
				return err
			}
			defer svc.Stop()

			entries, err := svc.Recent(ctx, opts.Total)
			if err != nil {
				return failed("recent query failed", err)
			}
			return opts.formatter(cmd).Ranked(entries)
		},
	}

	cmd.Flags().IntVar(&opts.Total, "total", 10, "number of entries")

	return cmd
}
