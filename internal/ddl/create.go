// Package ddl defines a small, backend-agnostic model for SQL DDL and helpers
// to render CREATE/DROP statements from that model for a given Dialect.
//
// Backends own their Dialect (identifier quoting and the Kind to SQL type
// mapping); this package owns the statement shape.
package ddl

import (
	"fmt"
	"strings"

	"salesload/internal/table"
)

// Dialect captures the per-backend differences needed to render DDL.
type Dialect struct {
	// Name is used in error messages, e.g. "postgres".
	Name string

	// QuoteIdent quotes a single identifier segment.
	QuoteIdent func(string) string

	// Types maps a column Kind to the SQL type used when ColumnDef.SQLType is
	// empty.
	Types map[table.Kind]string
}

// QuoteTable returns the quoted schema-qualified name of t.
func (d Dialect) QuoteTable(schema, name string) string {
	if schema == "" {
		return d.QuoteIdent(name)
	}
	return d.QuoteIdent(schema) + "." + d.QuoteIdent(name)
}

// QuoteColumns quotes every name in cols.
func (d Dialect) QuoteColumns(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = d.QuoteIdent(c)
	}
	return out
}

// DoubleQuote quotes an identifier with ANSI double quotes, escaping embedded
// quotes. Postgres and SQLite use it.
func DoubleQuote(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// BuildCreateTableSQL renders a CREATE TABLE statement for t in dialect d.
//
// Rules:
//
//   - t.Name must be non-empty and t must have at least one column.
//
//   - Each column must have a non-empty Name; its type is SQLType, or
//     d.Types[Kind] when SQLType is empty.
//
//   - A column is rendered as:
//
//     <quoted name> <type> [NOT NULL] [DEFAULT <Default>]
func BuildCreateTableSQL(d Dialect, t TableDef) (string, error) {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return "", fmt.Errorf("%s ddl: table name must not be empty", d.Name)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s ddl: at least one column is required", d.Name)
	}

	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		cname := strings.TrimSpace(c.Name)
		if cname == "" {
			return "", fmt.Errorf("%s ddl: column with empty name in table %s", d.Name, t.FQN())
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			typ = d.Types[c.Kind]
		}
		if typ == "" {
			return "", fmt.Errorf("%s ddl: column %s has no SQL type for kind %s", d.Name, cname, c.Kind)
		}

		var sb strings.Builder
		sb.WriteString(d.QuoteIdent(cname))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())
	}

	return fmt.Sprintf(
		"CREATE TABLE %s (\n  %s\n)",
		d.QuoteTable(t.Schema, name),
		strings.Join(cols, ",\n  "),
	), nil
}

// BuildDropTableSQL renders DROP TABLE IF EXISTS for t in dialect d.
func BuildDropTableSQL(d Dialect, t TableDef) string {
	return "DROP TABLE IF EXISTS " + d.QuoteTable(t.Schema, t.Name)
}

// BuildInsertSQL renders a multi-row INSERT for n rows of t using the
// placeholder function ph, which receives the 1-based argument index.
func BuildInsertSQL(d Dialect, t TableDef, n int, ph func(int) string) string {
	cols := t.ColumnNames()
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ",
		d.QuoteTable(t.Schema, t.Name), strings.Join(d.QuoteColumns(cols), ", "))
	arg := 1
	for r := 0; r < n; r++ {
		if r > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for c := range cols {
			if c > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(ph(arg))
			arg++
		}
		sb.WriteByte(')')
	}
	return sb.String()
}

// QuestionMark is the positional placeholder used by MySQL and SQLite.
func QuestionMark(int) string { return "?" }
