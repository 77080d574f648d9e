package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for file extensions other than csv/xlsx.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Read decodes a file by extension.
func Read(filename string, r io.Reader, name string, aliases Aliases) (*Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return ReadCSV(r, name, aliases)
	case ".xlsx", ".xlsm":
		return ReadXLSX(r, name, "", aliases)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// ReadCSV decodes comma separated input. Rows may have fewer or more fields
// than the header.
func ReadCSV(r io.Reader, name string, aliases Aliases) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s csv: %w", name, err)
	}
	return fromRecords(records, name, aliases), nil
}

// ReadXLSX decodes a workbook sheet. An empty sheet name selects the first.
// Cells are read unformatted, so date and time cells arrive as spreadsheet
// serials rather than locale text such as "1/15/25 00:00".
func ReadXLSX(r io.Reader, name, sheet string, aliases Aliases) (*Table, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open %s workbook: %w", name, err)
	}
	defer book.Close()

	if sheet == "" {
		sheets := book.GetSheetList()
		if len(sheets) == 0 {
			return &Table{Name: name}, nil
		}
		sheet = sheets[0]
	}
	records, err := book.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read %s sheet %q: %w", name, sheet, err)
	}
	return fromRecords(records, name, aliases), nil
}

// fromRecords treats the first non-blank record as the header and skips
// blank data rows.
func fromRecords(records [][]string, name string, aliases Aliases) *Table {
	table := &Table{Name: name, Rows: make([]Row, 0, len(records))}
	headerAt := -1
	for i, record := range records {
		if !blank(record) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return table
	}

	columns := make([]string, len(records[headerAt]))
	for i, header := range records[headerAt] {
		columns[i] = aliases.Canonical(header)
		if columns[i] != "" && !table.Has(columns[i]) {
			table.Columns = append(table.Columns, columns[i])
		}
	}

	for i := headerAt + 1; i < len(records); i++ {
		record := records[i]
		if blank(record) {
			continue
		}
		values := make(map[string]string, len(columns))
		for j, column := range columns {
			if column == "" || j >= len(record) {
				continue
			}
			if _, seen := values[column]; seen {
				continue
			}
			values[column] = strings.TrimSpace(record[j])
		}
		table.Rows = append(table.Rows, Row{Line: i + 1, Values: values})
	}
	return table
}

func blank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
