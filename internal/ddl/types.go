package ddl

import "salesload/internal/table"

// ColumnDef describes a single column in a table definition.
//
// Fields:
//   - Name: logical column name (unquoted; quoting happens at render time)
//   - Kind: the batch kind the column was inferred from
//   - SQLType: explicit target SQL type; when empty the dialect maps Kind
//   - Nullable: whether NULL is allowed
//   - Default: raw default expression (e.g., CURRENT_TIMESTAMP)
type ColumnDef struct {
	Name     string
	Kind     table.Kind
	SQLType  string
	Nullable bool
	Default  string
}

// TableDef holds the schema, the table name and an ordered list of columns.
type TableDef struct {
	Schema  string
	Name    string
	Columns []ColumnDef
}

// FQN returns the dotted "schema.table" form used in log lines. It is never
// used as SQL; dialects quote each segment themselves.
func (t TableDef) FQN() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// ColumnNames returns the column names in definition order.
func (t TableDef) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// FromBatch derives a table definition from a batch: one nullable column per
// batch column, in batch order, typed by its Kind.
func FromBatch(schema, name string, b *table.Batch) TableDef {
	cols := make([]ColumnDef, len(b.Columns))
	for i, c := range b.Columns {
		cols[i] = ColumnDef{Name: c.Name, Kind: c.Kind, Nullable: true}
	}
	return TableDef{Schema: schema, Name: name, Columns: cols}
}
