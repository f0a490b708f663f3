package builtin

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/montanaflynn/stats"

	"salesload/internal/table"
	"salesload/internal/transformer"
)

// ErrValidation is matched by every fatal data-shape failure.
var ErrValidation = errors.New("data validation failed")

// ValidationError describes a fatal data-shape failure.
type ValidationError struct {
	Column string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("%v: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%v: %s: %s", ErrValidation, e.Column, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) true for every *ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Column names checked by Validate.
const (
	ColStoreNumber = "store_number"
	ColDate        = "date"
	ColWeeklySales = "weekly_sales"
)

// RequiredColumns must all be present after loading.
var RequiredColumns = []string{ColStoreNumber, ColDate, ColWeeklySales}

var _ transformer.Transformer = (*Validate)(nil)

// ValidateStats counts the soft findings of the most recent Apply.
type ValidateStats struct {
	NegativeSales int
	FutureDates   int

	// Sales summarizes the non-missing weekly_sales values.
	Sales SalesSummary
}

// SalesSummary is logged as a data-quality line; it never fails a run.
type SalesSummary struct {
	Count            int
	Min, Median, Max float64
	Mean             float64
}

// Validate checks a cleaned batch. It never mutates the batch.
//
// Fatal: a required column is absent, date is not a date column,
// store_number is not an integer column or holds a value <= 0, weekly_sales
// is not numeric. Logged only: negative weekly_sales, dates after now.
type Validate struct {
	// Now returns the reference time for the future-date check. Defaults to
	// time.Now.
	Now func() time.Time

	// Logger receives warnings. Defaults to log.Default().
	Logger *log.Logger

	// Stats holds the counts from the most recent Apply.
	Stats ValidateStats
}

// Apply returns b unchanged, or a *ValidationError.
func (v *Validate) Apply(b *table.Batch) (*table.Batch, error) {
	v.Stats = ValidateStats{}
	logger := v.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := time.Now
	if v.Now != nil {
		now = v.Now
	}

	var missing []string
	for _, name := range RequiredColumns {
		if !b.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Reason: fmt.Sprintf("missing required columns: [%s]", strings.Join(missing, ", "))}
	}

	dates, _ := b.Column(ColDate)
	stores, _ := b.Column(ColStoreNumber)
	sales, _ := b.Column(ColWeeklySales)

	if dates.Kind != table.KindDate {
		return nil, &ValidationError{Column: ColDate, Reason: fmt.Sprintf("not in datetime format (kind %s)", dates.Kind)}
	}
	if stores.Kind != table.KindInt {
		return nil, &ValidationError{Column: ColStoreNumber, Reason: fmt.Sprintf("store numbers must be integers (kind %s)", stores.Kind)}
	}
	for i, val := range stores.Values {
		n, ok := val.(int64)
		if !ok || n <= 0 {
			return nil, &ValidationError{Column: ColStoreNumber, Reason: fmt.Sprintf("store numbers must be positive (row %d: %v)", i, val)}
		}
	}
	if !sales.Kind.Numeric() {
		return nil, &ValidationError{Column: ColWeeklySales, Reason: fmt.Sprintf("weekly sales must be numeric (kind %s)", sales.Kind)}
	}

	amounts := make(stats.Float64Data, 0, len(sales.Values))
	for i := range sales.Values {
		f, ok := table.FloatAt(sales, i)
		if !ok {
			continue
		}
		amounts = append(amounts, f)
		if f < 0 {
			v.Stats.NegativeSales++
		}
	}
	if v.Stats.NegativeSales > 0 {
		logger.Printf("validate: found %d negative sales values", v.Stats.NegativeSales)
	}
	if s, ok := summarize(amounts); ok {
		v.Stats.Sales = s
		logger.Printf("validate: weekly_sales count=%d min=%.2f median=%.2f mean=%.2f max=%.2f",
			s.Count, s.Min, s.Median, s.Mean, s.Max)
	}

	ref := now()
	for i := range dates.Values {
		if t, ok := table.DateAt(dates, i); ok && t.After(ref) {
			v.Stats.FutureDates++
		}
	}
	if v.Stats.FutureDates > 0 {
		logger.Printf("validate: found %d future dates in the dataset", v.Stats.FutureDates)
	}

	return b, nil
}

func summarize(data stats.Float64Data) (SalesSummary, bool) {
	if len(data) == 0 {
		return SalesSummary{}, false
	}
	out := SalesSummary{Count: len(data)}
	var err error
	if out.Min, err = data.Min(); err != nil {
		return SalesSummary{}, false
	}
	if out.Max, err = data.Max(); err != nil {
		return SalesSummary{}, false
	}
	if out.Mean, err = data.Mean(); err != nil {
		return SalesSummary{}, false
	}
	if out.Median, err = data.Median(); err != nil {
		return SalesSummary{}, false
	}
	return out, true
}
