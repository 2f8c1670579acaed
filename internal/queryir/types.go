package queryir

// Query is a membership query.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode()
}

// Predicate is a filter condition on rows of a Select.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode()
}

// Value is a literal compared against a column.
//
// This is a sealed interface. Floats and NULL are intentionally not
// representable, so comparisons stay exact.
type Value interface {
	valueNode()
}

// String is a text literal.
type String string

// Int is an integer literal.
type Int int64

// Bool is a boolean literal.
type Bool bool

func (String) valueNode() {}
func (Int) valueNode()    {}
func (Bool) valueNode()   {}

// Select yields the distinct values of IDColumn for rows of From matching Filter.
//
// Semantics:
//
//	SELECT DISTINCT <id> FROM <from> WHERE <filter> ORDER BY <id>
//
// A nil Filter selects every row.
type Select struct {
	From     string    // Table name, optionally schema-qualified
	IDColumn string    // Column holding the user id
	Filter   Predicate // WHERE conditions (nil = no filter)
}

func (Select) queryNode() {}

// Op is a comparison operator.
type Op string

const (
	OpEq  Op = "="
	OpNe  Op = "!="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
)

// Valid reports whether op is a known operator.
func (op Op) Valid() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte:
		return true
	}
	return false
}

// Compare is <field> <op> <value>.
type Compare struct {
	Field string
	Op    Op
	Value Value
}

func (Compare) predicateNode() {}

// Equals is shorthand for Compare{Field, OpEq, Value}.
func Equals(field string, v Value) Compare {
	return Compare{Field: field, Op: OpEq, Value: v}
}

// In is <field> IN (<values>). Values must be non-empty.
type In struct {
	Field  string
	Values []Value
}

func (In) predicateNode() {}

// And is a conjunction. An empty And is vacuously true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}
