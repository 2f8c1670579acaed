package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/badgify/internal/queryir"
	"github.com/roach88/badgify/internal/recipe"
)

// CompileRecipe parses a CUE value into a recipe.Spec.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the recipe struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`recipe: "python-lover": { ... }`)
//	spec, err := CompileRecipe(v.LookupPath(cue.MakePath(cue.Str("recipe"), cue.Str("python-lover"))))
//
// The slug is the struct label. The returned spec is not yet validated;
// see Validate.
func CompileRecipe(v cue.Value) (*recipe.Spec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &recipe.Spec{}

	labels := v.Path().Selectors()
	if len(labels) > 0 && labels[len(labels)-1].LabelType() == cue.StringLabel {
		spec.Slug = labels[len(labels)-1].Unquoted()
	}

	var err error
	if spec.Name, err = optionalString(v, "name"); err != nil {
		return nil, err
	}
	if spec.Description, err = optionalString(v, "description"); err != nil {
		return nil, err
	}
	if spec.Image, err = optionalString(v, "image"); err != nil {
		return nil, err
	}

	manualVal := v.LookupPath(cue.ParsePath("manual"))
	if manualVal.Exists() {
		manual, err := manualVal.Bool()
		if err != nil {
			return nil, &CompileError{Field: "manual", Message: "must be a boolean", Pos: manualVal.Pos()}
		}
		spec.Manual = manual
	}

	membershipVal := v.LookupPath(cue.ParsePath("membership"))
	if membershipVal.Exists() {
		sel, err := parseMembership(membershipVal)
		if err != nil {
			return nil, err
		}
		spec.Membership = sel
	}

	return spec, nil
}

// optionalString reads a string field, returning "" when absent.
func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", &CompileError{Field: field, Message: "must be a string", Pos: fv.Pos()}
	}
	return s, nil
}

// parseMembership parses the membership block into a queryir.Select.
// The id column defaults to "id"; the where list is a conjunction.
func parseMembership(v cue.Value) (*queryir.Select, error) {
	from, err := optionalString(v, "from")
	if err != nil {
		return nil, err
	}
	if from == "" {
		return nil, &CompileError{Field: "membership.from", Message: "source table is required", Pos: v.Pos()}
	}

	id, err := optionalString(v, "id")
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = "id"
	}

	sel := &queryir.Select{From: from, IDColumn: id}

	whereVal := v.LookupPath(cue.ParsePath("where"))
	if !whereVal.Exists() {
		return sel, nil
	}

	iter, err := whereVal.List()
	if err != nil {
		return nil, &CompileError{Field: "membership.where", Message: "must be a list of conditions", Pos: whereVal.Pos()}
	}

	var preds []queryir.Predicate
	for iter.Next() {
		pred, err := parseCondition(iter.Value())
		if err != nil {
			return nil, err
		}
		preds = append(preds, pred)
	}

	switch len(preds) {
	case 0:
	case 1:
		sel.Filter = preds[0]
	default:
		sel.Filter = queryir.And{Predicates: preds}
	}
	return sel, nil
}

// parseCondition parses {field, op, value} or {field, in: [...]}.
func parseCondition(v cue.Value) (queryir.Predicate, error) {
	field, err := optionalString(v, "field")
	if err != nil {
		return nil, err
	}
	if field == "" {
		return nil, &CompileError{Field: "membership.where.field", Message: "field is required", Pos: v.Pos()}
	}

	inVal := v.LookupPath(cue.ParsePath("in"))
	if inVal.Exists() {
		iter, err := inVal.List()
		if err != nil {
			return nil, &CompileError{Field: "membership.where.in", Message: "must be a list", Pos: inVal.Pos()}
		}
		var values []queryir.Value
		for iter.Next() {
			val, err := extractValue(iter.Value())
			if err != nil {
				return nil, err
			}
			values = append(values, val)
		}
		return queryir.In{Field: field, Values: values}, nil
	}

	op, err := optionalString(v, "op")
	if err != nil {
		return nil, err
	}
	if op == "" {
		op = string(queryir.OpEq)
	}
	if !queryir.Op(op).Valid() {
		return nil, &CompileError{
			Field:   "membership.where.op",
			Message: fmt.Sprintf("unknown operator %q", op),
			Pos:     v.Pos(),
		}
	}

	valueVal := v.LookupPath(cue.ParsePath("value"))
	if !valueVal.Exists() {
		return nil, &CompileError{Field: "membership.where.value", Message: "value is required", Pos: v.Pos()}
	}
	val, err := extractValue(valueVal)
	if err != nil {
		return nil, err
	}

	return queryir.Compare{Field: field, Op: queryir.Op(op), Value: val}, nil
}

// extractValue converts a concrete CUE scalar to a queryir literal.
// Floats are rejected so comparisons stay exact.
func extractValue(v cue.Value) (queryir.Value, error) {
	switch v.Kind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return queryir.String(s), nil
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return queryir.Int(i), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return queryir.Bool(b), nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   "membership.where.value",
			Message: "float values are not supported - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   "membership.where.value",
			Message: fmt.Sprintf("value must be a concrete string, int or bool, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
