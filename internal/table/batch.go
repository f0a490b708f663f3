// Package table defines the in-memory record batch that flows through the
// pipeline: an ordered set of named, typed columns of equal length. A nil
// cell is a missing value.
package table

import (
	"fmt"
	"time"
)

// Kind is the inferred type of a column.
type Kind int

const (
	KindText Kind = iota
	KindInt
	KindFloat
	KindDate
)

// String returns the lower-case kind name used in logs and errors.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDate:
		return "date"
	default:
		return "text"
	}
}

// Numeric reports whether values of this kind are int64 or float64.
func (k Kind) Numeric() bool { return k == KindInt || k == KindFloat }

// Column is a single named column. Values holds int64, float64, time.Time,
// string, or nil depending on Kind.
type Column struct {
	Name   string
	Kind   Kind
	Values []any
}

// Missing returns the number of nil cells in the column.
func (c *Column) Missing() int {
	n := 0
	for _, v := range c.Values {
		if v == nil {
			n++
		}
	}
	return n
}

// Batch is a column-oriented table. The zero value is an empty batch; use
// Add to append columns.
type Batch struct {
	Columns []*Column
	index   map[string]int
}

// New returns an empty batch.
func New() *Batch { return &Batch{index: map[string]int{}} }

// Add appends c to the batch. Every column must have the same number of rows
// and names must be unique.
func (b *Batch) Add(c *Column) error {
	if b.index == nil {
		b.index = map[string]int{}
	}
	if _, dup := b.index[c.Name]; dup {
		return fmt.Errorf("table: duplicate column %q", c.Name)
	}
	if len(b.Columns) > 0 && len(c.Values) != b.Len() {
		return fmt.Errorf("table: column %q has %d rows, batch has %d", c.Name, len(c.Values), b.Len())
	}
	b.index[c.Name] = len(b.Columns)
	b.Columns = append(b.Columns, c)
	return nil
}

// Set fills the column name with v on every row. An existing column keeps
// its position and takes the new kind; otherwise the column is appended.
func (b *Batch) Set(name string, kind Kind, v any) error {
	vals := make([]any, b.Len())
	for i := range vals {
		vals[i] = v
	}
	if c, ok := b.Column(name); ok {
		c.Kind, c.Values = kind, vals
		return nil
	}
	return b.Add(&Column{Name: name, Kind: kind, Values: vals})
}

// Column returns the column named name.
func (b *Batch) Column(name string) (*Column, bool) {
	i, ok := b.index[name]
	if !ok {
		return nil, false
	}
	return b.Columns[i], true
}

// Has reports whether the batch has a column named name.
func (b *Batch) Has(name string) bool {
	_, ok := b.index[name]
	return ok
}

// Len returns the number of rows.
func (b *Batch) Len() int {
	if len(b.Columns) == 0 {
		return 0
	}
	return len(b.Columns[0].Values)
}

// Names returns the column names in order.
func (b *Batch) Names() []string {
	out := make([]string, len(b.Columns))
	for i, c := range b.Columns {
		out[i] = c.Name
	}
	return out
}

// Filter keeps only rows for which keep returns true, preserving order, and
// returns the number of rows removed.
func (b *Batch) Filter(keep func(row int) bool) int {
	n := b.Len()
	kept := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if keep(i) {
			kept = append(kept, i)
		}
	}
	if len(kept) == n {
		return 0
	}
	for _, c := range b.Columns {
		vals := make([]any, len(kept))
		for j, i := range kept {
			vals[j] = c.Values[i]
		}
		c.Values = vals
	}
	return n - len(kept)
}

// Rows returns the batch in row-major order, aligned to Names().
func (b *Batch) Rows() [][]any {
	n := b.Len()
	rows := make([][]any, n)
	for i := 0; i < n; i++ {
		row := make([]any, len(b.Columns))
		for j, c := range b.Columns {
			row[j] = c.Values[i]
		}
		rows[i] = row
	}
	return rows
}

// DateAt returns the time stored in column c at row i.
func DateAt(c *Column, i int) (time.Time, bool) {
	t, ok := c.Values[i].(time.Time)
	return t, ok
}

// FloatAt returns the numeric value stored in column c at row i as float64.
func FloatAt(c *Column, i int) (float64, bool) {
	switch v := c.Values[i].(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}
