package gradebook

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	extCSV  = ".csv"
	extXLSX = ".xlsx"
)

var (
	// ErrEmptyTable is returned when an input has no header row.
	ErrEmptyTable = errors.New("table has no header row")

	// ErrUnsupportedFormat is returned for file extensions other than csv and xlsx.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// Table is the raw shape of a spreadsheet export: a header and string rows.
// Rows shorter than the header are padded with empty cells on read.
type Table struct {
	Header []string
	Rows   [][]string
}

// Index returns the position of the named column or -1.
func (t *Table) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// ReadCSV reads a comma separated table with a header row.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	return newTable(records)
}

// ReadXLSX reads a worksheet from an Excel workbook. When sheet is empty the
// first sheet is used.
func ReadXLSX(r io.Reader, sheet string) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmptyTable
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	slog.Debug("read worksheet", "sheet", sheet, "rows", len(rows))
	return newTable(rows)
}

// ReadFile loads a table from a csv or xlsx file based on its extension.
func ReadFile(path, sheet string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case extCSV:
		return ReadCSV(f)
	case extXLSX:
		return ReadXLSX(f, sheet)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

func newTable(records [][]string) (*Table, error) {
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, ErrEmptyTable
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		row := make([]string, len(header))
		copy(row, rec)
		rows = append(rows, row)
	}

	return &Table{Header: header, Rows: rows}, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
