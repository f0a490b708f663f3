package builtin

import (
	"bytes"
	"log"
	"strings"
	"testing"
	"time"

	"salesload/internal/table"
)

func day(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }

// newSalesBatch builds a batch with the three required columns plus a text
// and a float passthrough column.
func newSalesBatch(t *testing.T, stores, dates, sales []any) *table.Batch {
	t.Helper()

	b := table.New()
	n := len(stores)
	notes := make([]any, n)
	temps := make([]any, n)
	for i := range notes {
		notes[i] = "n"
		if i%2 == 0 {
			temps[i] = nil
		} else {
			temps[i] = 21.5
		}
	}
	cols := []*table.Column{
		{Name: ColStoreNumber, Kind: table.KindInt, Values: stores},
		{Name: ColDate, Kind: table.KindDate, Values: dates},
		{Name: ColWeeklySales, Kind: table.KindFloat, Values: sales},
		{Name: "note", Kind: table.KindText, Values: notes},
		{Name: "temperature", Kind: table.KindFloat, Values: temps},
	}
	for _, c := range cols {
		if err := b.Add(c); err != nil {
			t.Fatalf("Add %s: %v", c.Name, err)
		}
	}
	return b
}

// TestClean_FillsNumericAndDropsMissingDates checks both cleaner invariants:
// no numeric column keeps a missing value and no row keeps a missing date.
func TestClean_FillsNumericAndDropsMissingDates(t *testing.T) {
	t.Parallel()

	b := newSalesBatch(t,
		[]any{int64(1), nil, int64(3), int64(4)},
		[]any{day(1), day(2), nil, day(4)},
		[]any{10.0, nil, 30.0, -1.0},
	)

	var logs bytes.Buffer
	c := &Clean{Logger: log.New(&logs, "", 0)}
	out, err := c.Apply(b)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if out.Len() != 3 {
		t.Fatalf("Len = %d, want 3", out.Len())
	}
	if c.Stats.Dropped != 1 {
		t.Fatalf("Dropped = %d, want 1", c.Stats.Dropped)
	}
	// store_number nil, weekly_sales nil, temperature nil x2.
	if c.Stats.Filled != 4 {
		t.Fatalf("Filled = %d, want 4", c.Stats.Filled)
	}

	for _, col := range out.Columns {
		if col.Kind.Numeric() && col.Missing() != 0 {
			t.Fatalf("numeric column %q still has %d missing", col.Name, col.Missing())
		}
	}
	dates, _ := out.Column(ColDate)
	if dates.Missing() != 0 {
		t.Fatalf("date column still has missing values")
	}

	stores, _ := out.Column(ColStoreNumber)
	if stores.Values[1] != int64(0) {
		t.Fatalf("store_number[1] = %#v, want int64(0)", stores.Values[1])
	}
	sales, _ := out.Column(ColWeeklySales)
	if sales.Values[1] != 0.0 {
		t.Fatalf("weekly_sales[1] = %#v, want 0.0", sales.Values[1])
	}
	if !strings.Contains(logs.String(), "removing 1 rows") {
		t.Fatalf("missing drop warning, logs=%q", logs.String())
	}
}

// TestClean_LeavesTextAlone ensures text columns keep their missing values.
func TestClean_LeavesTextAlone(t *testing.T) {
	t.Parallel()

	b := table.New()
	_ = b.Add(&table.Column{Name: "label", Kind: table.KindText, Values: []any{nil, "x"}})

	c := &Clean{Logger: log.New(&bytes.Buffer{}, "", 0)}
	out, err := c.Apply(b)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	col, _ := out.Column("label")
	if col.Values[0] != nil {
		t.Fatalf("text cell was filled: %#v", col.Values[0])
	}
	if c.Stats != (CleanStats{}) {
		t.Fatalf("Stats = %+v, want zero", c.Stats)
	}
}
