package table

import (
	"testing"
	"time"
)

// TestInferColumn covers the kind inference rules for raw CSV cells.
func TestInferColumn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raw      []string
		wantKind Kind
		wantVals []any
	}{
		{name: "ints", raw: []string{"1", "2", "-3"}, wantKind: KindInt, wantVals: []any{int64(1), int64(2), int64(-3)}},
		{name: "ints with hole", raw: []string{"1", "", "3"}, wantKind: KindInt, wantVals: []any{int64(1), nil, int64(3)}},
		{name: "floats", raw: []string{"1.5", "2", "NaN"}, wantKind: KindFloat, wantVals: []any{1.5, 2.0, nil}},
		{name: "all missing", raw: []string{"", "NA"}, wantKind: KindFloat, wantVals: []any{nil, nil}},
		{name: "text", raw: []string{"a", "1", ""}, wantKind: KindText, wantVals: []any{"a", "1", nil}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := InferColumn("c", tt.raw)
			if c.Kind != tt.wantKind {
				t.Fatalf("kind = %v, want %v", c.Kind, tt.wantKind)
			}
			if len(c.Values) != len(tt.wantVals) {
				t.Fatalf("len = %d, want %d", len(c.Values), len(tt.wantVals))
			}
			for i := range tt.wantVals {
				if c.Values[i] != tt.wantVals[i] {
					t.Fatalf("value[%d] = %#v, want %#v", i, c.Values[i], tt.wantVals[i])
				}
			}
		})
	}
}

// TestBatchFilterAndRows verifies that Filter keeps columns aligned and Rows
// returns row-major values in column order.
func TestBatchFilterAndRows(t *testing.T) {
	t.Parallel()

	b := New()
	if err := b.Add(&Column{Name: "id", Kind: KindInt, Values: []any{int64(1), int64(2), int64(3)}}); err != nil {
		t.Fatalf("Add id: %v", err)
	}
	if err := b.Add(&Column{Name: "s", Kind: KindText, Values: []any{"a", "b", "c"}}); err != nil {
		t.Fatalf("Add s: %v", err)
	}

	dropped := b.Filter(func(i int) bool { return i != 1 })
	if dropped != 1 {
		t.Fatalf("dropped = %d, want 1", dropped)
	}
	rows := b.Rows()
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[1][0] != int64(3) || rows[1][1] != "c" {
		t.Fatalf("row 1 = %#v", rows[1])
	}
}

// TestBatchAddErrors checks duplicate names and mismatched lengths.
func TestBatchAddErrors(t *testing.T) {
	t.Parallel()

	b := New()
	_ = b.Add(&Column{Name: "a", Values: []any{1, 2}})
	if err := b.Add(&Column{Name: "a", Values: []any{1, 2}}); err == nil {
		t.Fatalf("expected duplicate column error")
	}
	if err := b.Add(&Column{Name: "b", Values: []any{1}}); err == nil {
		t.Fatalf("expected length mismatch error")
	}
}

func TestSet(t *testing.T) {
	t.Parallel()

	b := New()
	_ = b.Add(&Column{Name: "a", Values: []any{1, 2}})
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if err := b.Set("loaded_at", KindDate, now); err != nil {
		t.Fatalf("Set: %v", err)
	}
	c, ok := b.Column("loaded_at")
	if !ok || c.Kind != KindDate || len(c.Values) != 2 || c.Values[1] != now {
		t.Fatalf("loaded_at column = %#v", c)
	}
}

// TestSet_Overwrites checks an existing column is replaced in place rather
// than duplicated.
func TestSet_Overwrites(t *testing.T) {
	t.Parallel()

	b := New()
	_ = b.Add(&Column{Name: "source_file", Kind: KindInt, Values: []any{int64(7), nil}})
	_ = b.Add(&Column{Name: "a", Values: []any{1, 2}})

	if err := b.Set("source_file", KindText, "in.csv"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := b.Names(); len(got) != 2 || got[0] != "source_file" || got[1] != "a" {
		t.Fatalf("names = %v, want [source_file a]", got)
	}
	c, _ := b.Column("source_file")
	if c.Kind != KindText || c.Values[0] != "in.csv" || c.Values[1] != "in.csv" {
		t.Fatalf("source_file column = %#v", c)
	}
}
