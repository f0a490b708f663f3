package csv

import (
	"testing"
	"time"
)

// TestParseDates_BothPathsAgree checks that a day-month-year value resolves
// to the same calendar date whether the strict or the lenient path parses it.
func TestParseDates_BothPathsAgree(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	strictVals, strict := ParseDates([]string{"01-03-2024"})
	if !strict {
		t.Fatalf("expected strict path for a single well-formed value")
	}
	if strictVals[0] != want {
		t.Fatalf("strict = %v, want %v", strictVals[0], want)
	}

	lenientVals, strict := ParseDates([]string{"01-03-2024", "garbage"})
	if strict {
		t.Fatalf("expected lenient path when a value does not match")
	}
	if lenientVals[0] != want {
		t.Fatalf("lenient = %v, want %v", lenientVals[0], want)
	}
	if lenientVals[1] != nil {
		t.Fatalf("unparseable value = %v, want nil", lenientVals[1])
	}
}

func TestParseDates_Layouts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Time
	}{
		{"1/3/2024", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"01.03.2024", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"1 Mar 2024", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"01/03/2024 13:45", time.Date(2024, 3, 1, 13, 45, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			// A leading non-strict value forces the lenient path.
			vals, _ := ParseDates([]string{"x", tt.in})
			if vals[1] != tt.want {
				t.Fatalf("ParseDates(%q) = %v, want %v", tt.in, vals[1], tt.want)
			}
		})
	}
}

func TestParseDates_MissingStaysNil(t *testing.T) {
	t.Parallel()

	vals, strict := ParseDates([]string{"", "05-02-2010", "NA"})
	if !strict {
		t.Fatalf("missing cells must not force the lenient path")
	}
	if vals[0] != nil || vals[2] != nil {
		t.Fatalf("missing cells parsed: %v", vals)
	}
}
