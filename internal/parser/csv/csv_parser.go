// Package csv loads a delimited text file with a header row into a
// table.Batch: it normalizes column names, infers column kinds, and parses
// the date column.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"salesload/internal/datasource"
	"salesload/internal/table"
)

// ErrRead marks failures to read or decode the input file.
var ErrRead = errors.New("read input")

// Options configures the CSV parser. All fields are optional.
type Options struct {
	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing spaces from each field value.
	TrimSpace bool

	// HeaderMap maps raw (trimmed) header names to canonical keys. Unmapped
	// headers are normalized: lower-case, spaces replaced by underscores.
	HeaderMap map[string]string

	// DateColumn names the (normalized) column parsed as dates. Defaults to
	// "date".
	DateColumn string

	// Logger receives warnings. Defaults to log.Default().
	Logger *log.Logger
}

// Parser parses CSV input according to Options.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser {
	if opt.DateColumn == "" {
		opt.DateColumn = "date"
	}
	if opt.Logger == nil {
		opt.Logger = log.Default()
	}
	return &Parser{opt: opt}
}

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// Load opens src and parses it.
func (p *Parser) Load(ctx context.Context, src datasource.Source) (*table.Batch, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer rc.Close()
	return p.Parse(rc)
}

// Parse reads the whole input and returns a typed batch.
//
// Input is decoded as UTF-8, or UTF-16 when a UTF-16 BOM is present. Rows
// shorter than the header are padded with missing values; rows longer than
// the header, or input the CSV reader rejects, fail the load.
func (p *Parser) Parse(r io.Reader) (*table.Batch, error) {
	dec := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	cr := csv.NewReader(dec)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	h, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty input, no header row", ErrRead)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrRead, err)
	}
	headers := normalizeHeaders(h, p.opt)

	cells := make([][]string, len(headers))
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrRead, line, err)
		}
		if len(row) > len(headers) {
			return nil, fmt.Errorf("%w: line %d: expected %d fields, saw %d", ErrRead, line, len(headers), len(row))
		}
		for i := range headers {
			var v string
			if i < len(row) {
				v = row[i]
			}
			if p.opt.TrimSpace {
				v = strings.TrimSpace(v)
			}
			cells[i] = append(cells[i], v)
		}
	}

	b := table.New()
	for i, name := range headers {
		var col *table.Column
		if name == p.opt.DateColumn {
			col = p.dateColumn(name, cells[i])
		} else {
			col = table.InferColumn(name, cells[i])
		}
		if err := b.Add(col); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRead, err)
		}
	}
	return b, nil
}

func (p *Parser) dateColumn(name string, raw []string) *table.Column {
	vals, strict := ParseDates(raw)
	if !strict {
		p.opt.Logger.Printf("loader: column %q does not match %s; falling back to day-first parsing", name, StrictDateLayout)
	}
	return &table.Column{Name: name, Kind: table.KindDate, Values: vals}
}

// normalizeHeaders produces canonical, unique header keys. Duplicates get a
// ".N" suffix in order of appearance ("a", "a.1", "a.2").
func normalizeHeaders(h []string, opt Options) []string {
	res := make([]string, len(h))
	seen := make(map[string]int, len(h))
	for i, col := range h {
		c := strings.TrimSpace(col)
		if i == 0 {
			c = strings.TrimSpace(strings.TrimPrefix(c, utf8BOM))
		}
		name, ok := opt.HeaderMap[c]
		if !ok {
			name = NormalizeName(c)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		res[i] = name
	}
	return res
}

// NormalizeName lower-cases a column name and replaces spaces with
// underscores.
func NormalizeName(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "_")
}
