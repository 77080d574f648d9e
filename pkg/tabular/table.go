// Package tabular reads spreadsheet-like input (CSV and XLSX) into rows keyed
// by canonical column names.
package tabular

import (
	"fmt"
	"strings"
)

// Row is one data row. Line is the 1-based line or spreadsheet row number
// the values came from.
type Row struct {
	Line   int
	Values map[string]string
}

// Get returns the trimmed value of a canonical column.
func (r Row) Get(column string) string {
	return strings.TrimSpace(r.Values[column])
}

// Table is a decoded sheet.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// Has reports whether the table carries a canonical column.
func (t *Table) Has(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// Require checks that every column is present and names all missing ones.
func (t *Table) Require(columns ...string) error {
	missing := make([]string, 0)
	for _, column := range columns {
		if !t.Has(column) {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Table: t.Name, Columns: missing}
	}
	return nil
}

// RequireOneOf checks that at least one of the columns is present.
func (t *Table) RequireOneOf(columns ...string) error {
	for _, column := range columns {
		if t.Has(column) {
			return nil
		}
	}
	return &MissingColumnsError{Table: t.Name, Columns: []string{strings.Join(columns, "|")}}
}

// MissingColumnsError reports required columns absent from a table.
type MissingColumnsError struct {
	Table   string
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: missing required columns: %s", e.Table, strings.Join(e.Columns, ", "))
}

// Aliases maps header spellings to canonical column names.
type Aliases map[string]string

// NewAliases builds an alias table from canonical name to accepted spellings.
// Canonical names always map to themselves.
func NewAliases(spellings map[string][]string) Aliases {
	aliases := make(Aliases)
	for canonical, variants := range spellings {
		aliases[headerKey(canonical)] = canonical
		for _, variant := range variants {
			aliases[headerKey(variant)] = canonical
		}
	}
	return aliases
}

// With returns a copy extended with extra spelling -> canonical pairs.
func (a Aliases) With(extra map[string]string) Aliases {
	out := make(Aliases, len(a)+len(extra))
	for k, v := range a {
		out[k] = v
	}
	for spelling, canonical := range extra {
		out[headerKey(spelling)] = canonical
	}
	return out
}

// Canonical resolves a header. Unknown headers keep their normalised form.
func (a Aliases) Canonical(header string) string {
	key := headerKey(header)
	if canonical, ok := a[key]; ok {
		return canonical
	}
	return key
}

func headerKey(header string) string {
	value := strings.TrimPrefix(header, "\ufeff")
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.Join(strings.Fields(value), "_")
	return strings.ReplaceAll(value, "-", "_")
}
