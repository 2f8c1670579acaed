package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/badgify/internal/queryir"
)

// Dialect selects the placeholder style of the target database.
type Dialect string

const (
	// SQLite uses "?" placeholders.
	SQLite Dialect = "sqlite3"

	// Postgres uses "$1, $2, ..." placeholders.
	Postgres Dialect = "postgres"
)

// DialectFor maps a database/sql driver name to its Dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite3", "sqlite":
		return SQLite, nil
	case "postgres", "pgx":
		return Postgres, nil
	default:
		return "", fmt.Errorf("unsupported driver %q", driver)
	}
}

// SQLCompiler compiles membership queries to parameterized SQL.
//
// Every query carries ORDER BY on the id column so results are deterministic.
// Values are always bound as parameters, never interpolated.
type SQLCompiler struct {
	Dialect Dialect
}

// NewSQLCompiler creates a compiler for the given dialect.
func NewSQLCompiler(d Dialect) *SQLCompiler {
	return &SQLCompiler{Dialect: d}
}

// Compile converts a query to (sql, params).
// The query is validated first; identifiers are quoted.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if err := queryir.Validate(q); err != nil {
		return "", nil, err
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	b := &builder{dialect: c.Dialect}

	id := quoteIdent(q.IDColumn)
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT DISTINCT %s FROM %s", id, quoteIdent(q.From))

	if q.Filter != nil {
		where, err := b.predicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}

	sb.WriteString(" ORDER BY ")
	sb.WriteString(id)
	sb.WriteString(" ASC")

	return sb.String(), b.params, nil
}

// builder accumulates parameters while rendering predicates, so
// positional placeholders are numbered in emission order.
type builder struct {
	dialect Dialect
	params  []any
}

func (b *builder) bind(v queryir.Value) (string, error) {
	param, err := valueToParam(v)
	if err != nil {
		return "", err
	}
	b.params = append(b.params, param)
	if b.dialect == Postgres {
		return "$" + strconv.Itoa(len(b.params)), nil
	}
	return "?", nil
}

func (b *builder) predicate(p queryir.Predicate) (string, error) {
	switch pred := p.(type) {
	case queryir.Compare:
		return b.compare(pred)
	case *queryir.Compare:
		return b.compare(*pred)
	case queryir.In:
		return b.in(pred)
	case *queryir.In:
		return b.in(*pred)
	case queryir.And:
		return b.and(pred)
	case *queryir.And:
		return b.and(*pred)
	default:
		return "", fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (b *builder) compare(c queryir.Compare) (string, error) {
	ph, err := b.bind(c.Value)
	if err != nil {
		return "", fmt.Errorf("field %s: %w", c.Field, err)
	}
	op := string(c.Op)
	if c.Op == queryir.OpNe {
		op = "<>"
	}
	return fmt.Sprintf("%s %s %s", quoteIdent(c.Field), op, ph), nil
}

func (b *builder) in(in queryir.In) (string, error) {
	phs := make([]string, 0, len(in.Values))
	for _, v := range in.Values {
		ph, err := b.bind(v)
		if err != nil {
			return "", fmt.Errorf("field %s: %w", in.Field, err)
		}
		phs = append(phs, ph)
	}
	return fmt.Sprintf("%s IN (%s)", quoteIdent(in.Field), strings.Join(phs, ", ")), nil
}

func (b *builder) and(and queryir.And) (string, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil // Vacuous truth
	}

	parts := make([]string, 0, len(and.Predicates))
	for _, pred := range and.Predicates {
		sql, err := b.predicate(pred)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, " AND ") + ")", nil
}

// quoteIdent double-quotes each dot-separated part of a validated identifier.
func quoteIdent(ident string) string {
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		parts[i] = `"` + p + `"`
	}
	return strings.Join(parts, ".")
}

// valueToParam converts a literal to a database/sql parameter.
func valueToParam(v queryir.Value) (any, error) {
	switch val := v.(type) {
	case queryir.String:
		return string(val), nil
	case queryir.Int:
		return int64(val), nil
	case queryir.Bool:
		return bool(val), nil
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
}
