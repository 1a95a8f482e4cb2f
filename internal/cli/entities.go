package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/toverud/lexivault/internal/engine"
)

// EntityList is the entities command payload.
type EntityList struct {
	Entities []engine.EntityInfo `json:"entities"`
}

// NewEntitiesCommand creates the entities command.
func NewEntitiesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entities",
		Short: "List the manageable entity types",
		Long: `List every entity type the schema registers, sorted by display name.

Only the schema is consulted; no database is opened.

Examples:
  lexivault entities
  lexivault entities --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEntities(rootOpts, cmd)
		},
	}

	return cmd
}

func runEntities(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := resolveConfig(opts)
	if err != nil {
		return setupFailure(formatter, err)
	}
	reg, err := buildRegistry(cfg)
	if err != nil {
		return setupFailure(formatter, err)
	}

	entities := engine.ListEntities(reg)

	return formatter.SuccessText(EntityList{Entities: entities}, func(w io.Writer) {
		fmt.Fprintf(w, "%d entity type(s):\n", len(entities))
		for _, ent := range entities {
			fmt.Fprintf(w, "  %-24s %s\n", ent.Name, ent.DisplayName)
		}
	})
}
