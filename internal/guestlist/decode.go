package guestlist

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// Format identifies how a guest list payload is encoded.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ErrUnparseable is returned when a payload is not a guest list at all: empty, HTML, binary or missing rows.
var ErrUnparseable = errors.New("guest list is not parseable")

const utf8BOM = "\ufeff"

// Table is a decoded guest list: the header row followed by data rows, blank rows removed.
type Table struct {
	Rows [][]string
	// Degraded counts lines that ended inside an unterminated quote.
	Degraded int
}

// FormatFromName infers the format from a file name or URL path. Unknown extensions are CSV.
func FormatFromName(name string) Format {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// FormatFromContentType maps a response media type to a format. ok is false for unknown types.
func FormatFromContentType(contentType string) (Format, bool) {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "spreadsheetml"):
		return FormatXLSX, true
	case strings.Contains(ct, "text/csv"), strings.Contains(ct, "text/plain"):
		return FormatCSV, true
	}
	return "", false
}

// Decode turns a payload into a Table. sheet selects the XLSX worksheet; empty means the first one.
func Decode(format Format, data []byte, sheet string) (*Table, error) {
	switch format {
	case FormatXLSX:
		return decodeXLSX(data, sheet)
	case FormatCSV, "":
		return decodeCSV(data)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

func decodeCSV(data []byte) (*Table, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: invalid UTF-8", ErrUnparseable)
	}
	content := strings.TrimPrefix(string(data), utf8BOM)
	if looksLikeHTML(content) {
		return nil, fmt.Errorf("%w: received an HTML page", ErrUnparseable)
	}
	lines := SplitLines(content)
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrUnparseable)
	}
	table := &Table{Rows: make([][]string, 0, len(lines))}
	for _, line := range lines {
		fields, open := parseLine(line)
		if blankRow(fields) {
			continue
		}
		if open {
			table.Degraded++
		}
		table.Rows = append(table.Rows, fields)
	}
	if len(table.Rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrUnparseable)
	}
	return table, nil
}

func decodeXLSX(data []byte, sheet string) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: open Excel: %v", ErrUnparseable, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook has no sheets", ErrUnparseable)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: get rows for sheet %q: %v", ErrUnparseable, sheet, err)
	}
	table := &Table{Rows: make([][]string, 0, len(rows))}
	for _, row := range rows {
		if blankRow(row) {
			continue
		}
		for len(row) < MinFields {
			row = append(row, "")
		}
		table.Rows = append(table.Rows, row)
	}
	if len(table.Rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q is empty", ErrUnparseable, sheet)
	}
	return table, nil
}

func looksLikeHTML(content string) bool {
	head := strings.ToLower(strings.TrimSpace(content))
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html") ||
		strings.Contains(head, "<head>") || strings.Contains(head, "<body")
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
