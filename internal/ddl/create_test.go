package ddl

import (
	"strings"
	"testing"

	"salesload/internal/table"
)

var testDialect = Dialect{
	Name:       "test",
	QuoteIdent: DoubleQuote,
	Types: map[table.Kind]string{
		table.KindInt:   "BIGINT",
		table.KindFloat: "DOUBLE PRECISION",
		table.KindDate:  "TIMESTAMP",
		table.KindText:  "TEXT",
	},
}

// TestBuildCreateTableSQL verifies the rendered statement and the errors for
// invalid definitions.
func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		def         TableDef
		wantSQL     string
		errContains string
	}{
		{
			name:        "empty name returns error",
			def:         TableDef{Columns: []ColumnDef{{Name: "id", Kind: table.KindInt}}},
			errContains: "table name must not be empty",
		},
		{
			name:        "no columns returns error",
			def:         TableDef{Name: "t"},
			errContains: "at least one column is required",
		},
		{
			name:        "column with empty name returns error",
			def:         TableDef{Name: "t", Columns: []ColumnDef{{Name: " "}}},
			errContains: "column with empty name",
		},
		{
			name:        "unmapped kind returns error",
			def:         TableDef{Name: "t", Columns: []ColumnDef{{Name: "x", Kind: table.Kind(99)}}},
			errContains: "has no SQL type",
		},
		{
			name: "kinds mapped and schema quoted",
			def: TableDef{Schema: "retail_db", Name: "best_buy_sales", Columns: []ColumnDef{
				{Name: "store_number", Kind: table.KindInt, Nullable: true},
				{Name: "date", Kind: table.KindDate, Nullable: true},
				{Name: "weekly_sales", Kind: table.KindFloat, Nullable: true},
				{Name: "source_file", Kind: table.KindText, Nullable: true},
			}},
			wantSQL: "CREATE TABLE \"retail_db\".\"best_buy_sales\" (\n" +
				"  \"store_number\" BIGINT,\n" +
				"  \"date\" TIMESTAMP,\n" +
				"  \"weekly_sales\" DOUBLE PRECISION,\n" +
				"  \"source_file\" TEXT\n)",
		},
		{
			name: "explicit type, not null and default",
			def: TableDef{Name: "t", Columns: []ColumnDef{
				{Name: "id", SQLType: "INTEGER", Default: "0"},
			}},
			wantSQL: "CREATE TABLE \"t\" (\n  \"id\" INTEGER NOT NULL DEFAULT 0\n)",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := BuildCreateTableSQL(testDialect, tt.def)
			if tt.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errContains) {
					t.Fatalf("err = %v, want containing %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.wantSQL {
				t.Fatalf("SQL mismatch\n got: %q\nwant: %q", got, tt.wantSQL)
			}
		})
	}
}

func TestBuildInsertSQL(t *testing.T) {
	t.Parallel()

	def := TableDef{Schema: "s", Name: "t", Columns: []ColumnDef{{Name: "a"}, {Name: "b"}}}
	got := BuildInsertSQL(testDialect, def, 2, QuestionMark)
	want := `INSERT INTO "s"."t" ("a", "b") VALUES (?, ?), (?, ?)`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	dollar := func(i int) string { return "$" + string(rune('0'+i)) }
	got = BuildInsertSQL(testDialect, def, 1, dollar)
	if want := `INSERT INTO "s"."t" ("a", "b") VALUES ($1, $2)`; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFromBatch(t *testing.T) {
	t.Parallel()

	b := table.New()
	_ = b.Add(&table.Column{Name: "store_number", Kind: table.KindInt, Values: []any{int64(1)}})
	_ = b.Add(&table.Column{Name: "note", Kind: table.KindText, Values: []any{"x"}})

	def := FromBatch("retail_db", "best_buy_sales", b)
	if def.FQN() != "retail_db.best_buy_sales" {
		t.Fatalf("FQN = %q", def.FQN())
	}
	if got := strings.Join(def.ColumnNames(), ","); got != "store_number,note" {
		t.Fatalf("columns = %q", got)
	}
	for _, c := range def.Columns {
		if !c.Nullable {
			t.Fatalf("column %s not nullable", c.Name)
		}
	}
	if def.Columns[0].Kind != table.KindInt || def.Columns[1].Kind != table.KindText {
		t.Fatalf("kinds = %v, %v", def.Columns[0].Kind, def.Columns[1].Kind)
	}
	if (TableDef{Name: "t"}).FQN() != "t" {
		t.Fatalf("FQN without schema should be bare name")
	}
}

func TestBuildDropTableSQL(t *testing.T) {
	t.Parallel()

	got := BuildDropTableSQL(testDialect, TableDef{Schema: "s", Name: `we"ird`})
	if want := `DROP TABLE IF EXISTS "s"."we""ird"`; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
