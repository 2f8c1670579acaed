package compiler

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/badgify/internal/badge"
	"github.com/roach88/badgify/internal/queryir"
	"github.com/roach88/badgify/internal/recipe"
)

// Validation error codes (E100-E199)
const (
	ErrRecipeNameEmpty     = "E101" // name is required
	ErrRecipeImageEmpty    = "E102" // image is required
	ErrRecipeInvalidSlug   = "E103" // slug is not in canonical form
	ErrRecipeMembership    = "E104" // membership query is invalid
	ErrRecipeDuplicateSlug = "E105" // slug declared more than once
	ErrRecipeManualQuery   = "E106" // manual recipe also declares membership
	ErrRecipeField         = "E100" // any other struct rule
)

var validate = validator.New()

// ValidationError represents a schema validation error.
type ValidationError struct {
	Slug    string `json:"slug,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Slug != "" {
		return fmt.Sprintf("[%s] %s.%s: %s", e.Code, e.Slug, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled spec against the recipe rules.
// Returns all errors found (does not fail-fast).
func Validate(spec *recipe.Spec) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{
			Slug:    spec.Slug,
			Field:   field,
			Message: fmt.Sprintf(format, args...),
			Code:    code,
		})
	}

	if err := validate.Struct(spec); err != nil {
		var fieldErrs validator.ValidationErrors
		if !stderrors.As(err, &fieldErrs) {
			add("spec", ErrRecipeField, "%v", err)
		}
		for _, fe := range fieldErrs {
			field := strings.ToLower(fe.Field())
			switch field {
			case "name":
				add(field, ErrRecipeNameEmpty, "name is required and must be non-empty")
			case "image":
				add(field, ErrRecipeImageEmpty, "image is required and must be non-empty")
			case "slug":
				add(field, ErrRecipeInvalidSlug, "slug is required")
			default:
				add(field, ErrRecipeField, "failed rule %q", fe.Tag())
			}
		}
	}

	if spec.Slug != "" && !badge.ValidSlug(spec.Slug) {
		add("slug", ErrRecipeInvalidSlug, "slug %q is not canonical (want %q)", spec.Slug, badge.Slugify(spec.Slug))
	}

	if spec.Membership != nil {
		if err := queryir.Validate(spec.Membership); err != nil {
			add("membership", ErrRecipeMembership, "%v", err)
		}
		if spec.Manual {
			add("membership", ErrRecipeManualQuery, "manual recipes are granted by hand and must not declare membership")
		}
	}

	return errs
}

// ValidateAll validates every spec and reports slugs declared more than once.
func ValidateAll(specs []recipe.Spec) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(specs))

	for i := range specs {
		errs = append(errs, Validate(&specs[i])...)

		slug := specs[i].Slug
		if slug == "" {
			continue
		}
		if seen[slug] {
			errs = append(errs, ValidationError{
				Slug:    slug,
				Field:   "slug",
				Message: "slug declared more than once",
				Code:    ErrRecipeDuplicateSlug,
			})
		}
		seen[slug] = true
	}

	return errs
}
