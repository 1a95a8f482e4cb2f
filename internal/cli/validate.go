package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/toverud/lexivault/internal/schema"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                     `json:"valid"`
	Entities int                      `json:"entities,omitempty"`
	Policies int                      `json:"policies,omitempty"`
	Errors   []schema.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <schema-file>",
		Short: "Validate a schema declaration without opening a database",
		Long: `Compile a CUE schema declaration and check it against the registry rules.

Compile errors are reported one at a time with source positions. Registry
problems (unknown references, link cycles, bad policy rules) are collected
and reported together.

Exit codes:
  0 - declaration is valid
  1 - declaration has errors
  2 - command error (unreadable file, invalid flags)

Examples:
  lexivault validate model.cue
  lexivault validate model.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	model, err := schema.LoadFile(path)
	if err != nil {
		var compileErr *schema.CompileError
		if errors.As(err, &compileErr) {
			// Bad declaration, not a bad invocation.
			formatter.Error(ErrCodeSchema, compileErr.Error(), nil)
			return WrapExitError(ExitFailure, "declaration invalid", err)
		}
		return setupFailure(formatter, err)
	}

	formatter.VerboseLog("Compiled %s: %d entity type(s), %d policy rule(s)",
		path, len(model.Entities), len(model.Policies))

	if _, err := schema.NewRegistry(*model); err != nil {
		var verrs schema.ValidationErrors
		if errors.As(err, &verrs) {
			return outputValidationErrors(formatter, verrs)
		}
		formatter.Error(ErrCodeSchema, err.Error(), nil)
		return WrapExitError(ExitFailure, "declaration invalid", err)
	}

	return outputValidateSuccess(formatter, model)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, model *schema.Model) error {
	result := ValidationResult{
		Valid:    true,
		Entities: len(model.Entities),
		Policies: len(model.Policies),
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Declaration valid: %d entity type(s), %d policy rule(s)\n",
		result.Entities, result.Policies)
	return nil
}

// outputValidationErrors outputs registry validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs schema.ValidationErrors) error {
	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:  false,
			Errors: errs,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    ErrCodeSchema,
				Message: fmt.Sprintf("validation failed with %d error(s)", len(errs)),
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, verr := range errs {
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", verr.Code, verr.Field, verr.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
