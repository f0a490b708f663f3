package table

import (
	"strconv"
	"strings"
)

// missingTokens are raw cell values treated as missing, in addition to the
// empty string.
var missingTokens = map[string]struct{}{
	"NA": {}, "N/A": {}, "NaN": {}, "nan": {}, "null": {}, "NULL": {}, "#N/A": {}, "<NA>": {},
}

// IsMissing reports whether a raw cell value should be treated as missing.
func IsMissing(s string) bool {
	if s == "" {
		return true
	}
	_, ok := missingTokens[s]
	return ok
}

// InferColumn builds a typed column from raw string cells.
//
// Rules:
//   - every present cell parses as a base-10 integer → KindInt (int64);
//   - every present cell parses as a float, or no cell is present → KindFloat;
//   - anything else → KindText, with present cells kept as strings.
//
// Missing cells (see IsMissing) are nil in every kind.
func InferColumn(name string, raw []string) *Column {
	present := 0
	allInt, allFloat := true, true
	for _, s := range raw {
		if IsMissing(s) {
			continue
		}
		present++
		if allInt {
			if _, err := strconv.ParseInt(s, 10, 64); err != nil {
				allInt = false
			}
		}
		if !allInt && allFloat {
			if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
				allFloat = false
				break
			}
		}
	}

	col := &Column{Name: name, Values: make([]any, len(raw))}
	switch {
	case present > 0 && allInt:
		col.Kind = KindInt
		for i, s := range raw {
			if IsMissing(s) {
				continue
			}
			n, _ := strconv.ParseInt(s, 10, 64)
			col.Values[i] = n
		}
	case allFloat:
		col.Kind = KindFloat
		for i, s := range raw {
			if IsMissing(s) {
				continue
			}
			f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
			col.Values[i] = f
		}
	default:
		col.Kind = KindText
		for i, s := range raw {
			if IsMissing(s) {
				continue
			}
			col.Values[i] = s
		}
	}
	return col
}
