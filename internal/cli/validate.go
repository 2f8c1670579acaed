package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/badgify/internal/compiler"
	"github.com/roach88/badgify/internal/config"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool                       `json:"valid"`
	Recipes []string                   `json:"recipes,omitempty"`
	Errors  []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [recipes-dir]",
		Short: "Validate recipes without touching any database",
		Long: `Compile and validate CUE recipes.

Checks syntax, required fields, slug form, membership queries and duplicate
slugs, and reports every problem found. Defaults to the configured recipes
directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := config.DefaultRecipesDir
			if rootOpts.Config != nil {
				dir = rootOpts.Config.RecipesDir
			}
			if len(args) == 1 {
				dir = args[0]
			}
			return runValidate(rootOpts, dir, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	errs, slugs, err := ValidateRecipesDir(dir)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, err.Error(), nil)
	}
	opts.logger().Debug("validated recipes", "count", len(slugs), "dir", dir)

	if len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}
	return outputValidateSuccess(formatter, slugs)
}

// ValidateRecipesDir loads every recipe in dir and validates it.
// Compile failures are reported as validation errors alongside schema
// problems; only a missing or empty directory is returned as err.
func ValidateRecipesDir(dir string) ([]compiler.ValidationError, []string, error) {
	result, loadErrs := LoadRecipes(dir, LoadModeCollectAll)
	if result == nil {
		return nil, nil, loadErrs[0]
	}

	var errs []compiler.ValidationError
	for _, err := range loadErrs {
		ve := compiler.ValidationError{Field: "load", Message: err.Error(), Code: ErrCodeGeneric}
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			ve.Code = loadErr.Code
		}
		errs = append(errs, ve)
	}
	errs = append(errs, compiler.ValidateAll(result.Specs)...)

	slugs := make([]string, len(result.Specs))
	for i, spec := range result.Specs {
		slugs[i] = spec.Slug
	}
	return errs, slugs, nil
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, slugs []string) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Recipes: slugs})
	}

	fmt.Fprintf(formatter.Writer, "✓ %d recipe(s) valid\n", len(slugs))
	return nil
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s\n", err.Error())
	}
	return exitErr
}
