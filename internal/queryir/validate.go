package queryir

import (
	"fmt"
	"regexp"
	"strings"
)

// identPattern matches a column or table name, optionally qualified once.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidIdent reports whether s can be used as a table or column name.
func ValidIdent(s string) bool {
	return identPattern.MatchString(s)
}

// ValidationError lists every problem found in a query.
type ValidationError struct {
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "invalid membership query: " + strings.Join(e.Problems, "; ")
}

// Validate checks that a query can be compiled safely.
// Returns nil or a *ValidationError listing all problems.
//
// Validate is a pure function with no side effects.
func Validate(query Query) error {
	v := &validator{}
	v.validateQuery(query)

	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: v.problems}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addProblem("nil query")
	case Select:
		v.validateSelect(query)
	case *Select:
		if query == nil {
			v.addProblem("nil query")
			return
		}
		v.validateSelect(*query)
	default:
		v.addProblem("unknown query type %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	if !ValidIdent(sel.From) {
		v.addProblem("invalid table name %q", sel.From)
	}
	if !ValidIdent(sel.IDColumn) {
		v.addProblem("invalid id column %q", sel.IDColumn)
	}
	if sel.Filter != nil {
		v.validatePredicate(sel.Filter)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
		v.addProblem("nil predicate")
	case Compare:
		v.validateCompare(pred)
	case *Compare:
		v.validateCompare(*pred)
	case In:
		v.validateIn(pred)
	case *In:
		v.validateIn(*pred)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case *And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	default:
		v.addProblem("unknown predicate type %T", p)
	}
}

func (v *validator) validateCompare(c Compare) {
	if !ValidIdent(c.Field) {
		v.addProblem("invalid field name %q", c.Field)
	}
	if !c.Op.Valid() {
		v.addProblem("field %q: unknown operator %q", c.Field, c.Op)
	}
	if c.Value == nil {
		v.addProblem("field %q: missing value", c.Field)
	}
	if _, isBool := c.Value.(Bool); isBool && c.Op != OpEq && c.Op != OpNe {
		v.addProblem("field %q: operator %q not defined for booleans", c.Field, c.Op)
	}
}

func (v *validator) validateIn(in In) {
	if !ValidIdent(in.Field) {
		v.addProblem("invalid field name %q", in.Field)
	}
	if len(in.Values) == 0 {
		v.addProblem("field %q: empty IN list", in.Field)
	}
	for i, val := range in.Values {
		if val == nil {
			v.addProblem("field %q: missing value at index %d", in.Field, i)
		}
	}
}
