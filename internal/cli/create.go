package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/submission"
	"github.com/okian/scoreboard/internal/errs"
)

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	Data        string
	ExampleData []int
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Insert records",
		Long: `Insert one record from delimited text, or builtin example records.

--data takes the nine submission fields separated by ';':
  timestamp;name;max_height;time_total_s;time_building_s;time_scaling_s;blocks_placed;jumps;distance_fallen

--example-data takes one or more example indexes; each index selects
example (index mod 3).

Examples:
  scoreboard-admin create --data "2024-08-17 16:02:23;alifeee;124.22;120;102.4;17.6;63;78;29.4"
  scoreboard-admin create --example-data 0,1,2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Data, "data", "", "semicolon-delimited record fields")
	cmd.Flags().IntSliceVar(&opts.ExampleData, "example-data", nil, "indexes of builtin example records")

	return cmd
}

func runCreate(opts *CreateOptions, cmd *cobra.Command) error {
	const op = "cli.create"
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	hasData := cmd.Flags().Changed("data")
	hasExamples := cmd.Flags().Changed("example-data")

	var lines []string
	switch {
	case hasData && hasExamples:
		return failed("cannot create records", errs.Newf(op, errs.ErrConflictingArguments, "--data and --example-data are mutually exclusive"))
	case hasData:
		lines = []string{opts.Data}
	case hasExamples:
		for _, i := range opts.ExampleData {
			lines = append(lines, submission.Fixture(i))
		}
	default:
		return failed("cannot create records", errs.MissingField(op, "data"))
	}

	inputs := make([]model.ScoreInput, 0, len(lines))
	for _, line := range lines {
		sub, err := submission.ParseDelimited(line)
		if err != nil {
			return failed("invalid record", err)
		}
		in, err := sub.Input()
		if err != nil {
			return failed("invalid record", err)
		}
		inputs = append(inputs, in)
	}

	svc, err := opts.openService(ctx)
	if err != nil {
		return err
	}
	defer svc.Stop()

	ids := make([]int64, 0, len(inputs))
	for _, in := range inputs {
		id, err := svc.Submit(ctx, in)
		if err != nil {
			return failed("failed to insert record", err)
		}
		formatter.VerboseLog("inserted %s (%v) as id %d", in.Name, in.MaxHeight, id)
		ids = append(ids, id)
	}

	if formatter.isJSON() {
		return formatter.Success(map[string]interface{}{"ids": ids})
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return formatter.Success(fmt.Sprintf("created %d record(s): %s", len(ids), strings.Join(parts, ", ")))
}
