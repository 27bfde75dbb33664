// Package tabular reads delimited and spreadsheet files into a
// row-oriented table and renders tables as an HTML fragment for
// embedding in message bodies.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is a header row plus data rows. Rows may be ragged; rendering
// pads short rows with empty cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// ReadCSV parses comma-separated data. The first record is the header.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // tolerate ragged rows

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}
	return fromRecords(records), nil
}

// ReadXLSX parses the first sheet of a spreadsheet file. The first row
// is the header.
func ReadXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening spreadsheet %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Table{}, nil
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	return fromRecords(records), nil
}

// ReadFile dispatches on the file extension: .csv is read as
// comma-separated data, .xlsx as a spreadsheet.
func ReadFile(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
		return ReadCSV(f)
	case ".xlsx":
		return ReadXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported table format %q", filepath.Ext(path))
	}
}

// fromRecords splits raw records into header and rows.
func fromRecords(records [][]string) *Table {
	t := &Table{}
	if len(records) == 0 {
		return t
	}
	t.Header = records[0]
	t.Rows = records[1:]
	return t
}

// Column returns the values of the named header column, one per row.
// Missing cells in ragged rows are skipped. The name match is
// case-insensitive.
func (t *Table) Column(name string) ([]string, error) {
	idx := -1
	for i, h := range t.Header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("no column %q in header %v", name, t.Header)
	}

	var out []string
	for _, row := range t.Rows {
		if idx >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[idx]); v != "" {
			out = append(out, v)
		}
	}
	return out, nil
}

// WriteCSV renders the table back out as comma-separated data.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if len(t.Header) > 0 {
		if err := cw.Write(t.Header); err != nil {
			return fmt.Errorf("writing csv header: %w", err)
		}
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
