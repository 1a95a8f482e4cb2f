package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/toverud/lexivault/internal/engine"
)

// UndoReport is the undo command payload.
type UndoReport struct {
	OperationID string `json:"operation_id"`
	engine.RestoreResult
}

// NewUndoCommand creates the undo command.
func NewUndoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "undo <operation-id>",
		Short: "Restore the rows removed by a delete operation",
		Long: `Replay the snapshot captured by a delete operation: ancestors first,
then the deleted rows, then their dependent rows. Rows that already exist
again are left untouched.

The operation id is printed by delete. Snapshots expire after the
retention window; an expired or unknown id cannot be restored.

Exit codes:
  0 - rows restored
  1 - operation failure (expired id, row conflict, ...)
  2 - command error (bad flags, unreadable config, ...)

Examples:
  lexivault undo deletion_0195d3e8-6c2a-7c3e-9f41-8a2b44f0c9d1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUndo(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runUndo(opts *RootOptions, operationID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	ctx := cmd.Context()
	env, err := openEnvironment(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return setupFailure(formatter, err)
	}
	defer env.Close()

	formatter.VerboseLog("restoring %s", operationID)

	res, err := env.eng.Undo(ctx, operationID)
	if err != nil {
		return operationFailure(formatter, err)
	}

	return formatter.SuccessText(UndoReport{OperationID: operationID, RestoreResult: res}, func(w io.Writer) {
		fmt.Fprintf(w, "Restored %d row(s).\n", res.Restored)
		if res.Degraded {
			fmt.Fprintln(w, "Warning: some referenced parent rows no longer existed and were recreated as empty stubs.")
		}
	})
}
