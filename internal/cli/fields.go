package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/toverud/lexivault/internal/engine"
)

// FieldList is the fields command payload.
type FieldList struct {
	Entity string             `json:"entity"`
	Fields []engine.FieldInfo `json:"fields"`
}

// NewFieldsCommand creates the fields command.
func NewFieldsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fields <entity>",
		Short: "List the fields of an entity type",
		Long: `List the fields of an entity type, starting with the primary key.

Foreign-key fields name the entity they reference; their values can be
used with 'delete --field' to remove all rows under one parent.

Examples:
  lexivault fields french_word
  lexivault fields french_example --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFields(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runFields(opts *RootOptions, entityType string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := resolveConfig(opts)
	if err != nil {
		return setupFailure(formatter, err)
	}
	reg, err := buildRegistry(cfg)
	if err != nil {
		return setupFailure(formatter, err)
	}

	fields, err := engine.ListFields(reg, entityType)
	if err != nil {
		return operationFailure(formatter, err)
	}

	return formatter.SuccessText(FieldList{Entity: entityType, Fields: fields}, func(w io.Writer) {
		fmt.Fprintf(w, "Fields of %s:\n", entityType)
		for _, f := range fields {
			fmt.Fprintf(w, "  %-24s %s\n", f.Name, f.DisplayName)
		}
	})
}
