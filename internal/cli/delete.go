package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/toverud/lexivault/internal/engine"
)

// DeleteOptions holds flags for the delete command.
type DeleteOptions struct {
	*RootOptions
	ID            int64
	Field         string
	Value         string
	CascadeParent bool
	StartID       int64
	EndID         int64
	All           bool
}

// DeleteReport is the delete command payload.
type DeleteReport struct {
	Entity string `json:"entity"`
	engine.DeleteResult
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete <entity>",
		Short: "Delete rows and capture an undo snapshot",
		Long: `Delete rows of an entity type together with their dependent rows.

Exactly one selection is required:
  --id N                  one row by primary key
  --field F --value V     every row whose field equals the value
  --start N --end M       rows with ids in the inclusive range
  --all                   every row of the entity

Deleting by id also removes a policy parent left without children.
--cascade-parent extends a --field deletion to the referenced parents.

Every delete stores a snapshot under the printed operation id; restore it
with 'lexivault undo <operation-id>' before the retention window ends.

Exit codes:
  0 - rows deleted
  1 - operation failure (unknown entity, nothing matched, ...)
  2 - command error (bad flags, unreadable config, ...)

Examples:
  lexivault delete french_word --id 42 --db vocab.db
  lexivault delete french_word --field noun_form --value chat
  lexivault delete french_example --field french_word_id --value 42 --cascade-parent
  lexivault delete word --start 100 --end 200
  lexivault delete migration_item --all`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(opts, args[0], cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.ID, "id", 0, "primary key of the row to delete")
	cmd.Flags().StringVar(&opts.Field, "field", "", "field to match")
	cmd.Flags().StringVar(&opts.Value, "value", "", "value the field must equal")
	cmd.Flags().BoolVar(&opts.CascadeParent, "cascade-parent", false, "also delete the parents the matched rows reference")
	cmd.Flags().Int64Var(&opts.StartID, "start", 0, "first id of the range (inclusive)")
	cmd.Flags().Int64Var(&opts.EndID, "end", 0, "last id of the range (inclusive)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "delete every row of the entity")

	return cmd
}

// deleteSelection is the parsed selection mode of a delete invocation.
type deleteSelection int

const (
	selectByID deleteSelection = iota
	selectByField
	selectByRange
	selectAll
)

// pickSelection maps the changed flags to exactly one selection mode.
func pickSelection(flags *pflag.FlagSet) (deleteSelection, error) {
	var (
		modes    int
		selected deleteSelection
	)
	if flags.Changed("id") {
		modes++
		selected = selectByID
	}
	if flags.Changed("field") {
		modes++
		selected = selectByField
	}
	if flags.Changed("start") || flags.Changed("end") {
		modes++
		selected = selectByRange
	}
	if flags.Changed("all") {
		modes++
		selected = selectAll
	}

	if modes != 1 {
		return 0, fmt.Errorf("exactly one of --id, --field, --start/--end, or --all is required")
	}
	switch selected {
	case selectByField:
		if !flags.Changed("value") {
			return 0, fmt.Errorf("--value is required with --field")
		}
	case selectByRange:
		if !flags.Changed("start") || !flags.Changed("end") {
			return 0, fmt.Errorf("--start and --end are required together")
		}
	}
	if flags.Changed("value") && selected != selectByField {
		return 0, fmt.Errorf("--value requires --field")
	}
	if flags.Changed("cascade-parent") && selected != selectByField {
		return 0, fmt.Errorf("--cascade-parent only applies to --field deletion")
	}
	return selected, nil
}

func runDelete(opts *DeleteOptions, entityType string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	selected, err := pickSelection(cmd.Flags())
	if err != nil {
		formatter.Error(ErrCodeUsage, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}

	ctx := cmd.Context()
	env, err := openEnvironment(ctx, opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return setupFailure(formatter, err)
	}
	defer env.Close()

	var res engine.DeleteResult
	switch selected {
	case selectByID:
		formatter.VerboseLog("deleting %s id=%d", entityType, opts.ID)
		res, err = env.eng.DeleteByID(ctx, entityType, opts.ID)
	case selectByField:
		formatter.VerboseLog("deleting %s where %s=%q (cascade-parent=%t)", entityType, opts.Field, opts.Value, opts.CascadeParent)
		res, err = env.eng.DeleteByFieldValue(ctx, entityType, opts.Field, opts.Value, opts.CascadeParent)
	case selectByRange:
		formatter.VerboseLog("deleting %s ids %d..%d", entityType, opts.StartID, opts.EndID)
		res, err = env.eng.DeleteByIDRange(ctx, entityType, opts.StartID, opts.EndID)
	case selectAll:
		formatter.VerboseLog("deleting all rows of %s", entityType)
		res, err = env.eng.DeleteAll(ctx, entityType)
	}
	if err != nil {
		return operationFailure(formatter, err)
	}

	retention := env.eng.Retention()
	return formatter.SuccessText(DeleteReport{Entity: entityType, DeleteResult: res}, func(w io.Writer) {
		fmt.Fprintf(w, "Deleted %d row(s) from %s.\n", res.Count, entityType)
		fmt.Fprintf(w, "Restore with: lexivault undo %s (expires in %s)\n", res.OperationID, retention)
	})
}
