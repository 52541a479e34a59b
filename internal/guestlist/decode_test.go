package guestlist

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestDecode_csv(t *testing.T) {
	data := []byte("\ufeffEnglish,Family,Arabic,Table\r\nSarah,Smith,سارة,4\r\n,,,\r\n\"Ali, Jr\",Smith,علي,4\r\n")
	table, err := Decode(FormatCSV, data, "")
	require.NoError(t, err)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, "English", table.Rows[0][0])
	assert.Equal(t, "Ali, Jr", table.Rows[2][0])
	assert.Zero(t, table.Degraded)
}

func TestDecode_countsDegradedLines(t *testing.T) {
	table, err := Decode(FormatCSV, []byte("h1,h2\n\"broken,row\nok,row\n"), "")
	require.NoError(t, err)
	assert.Equal(t, 1, table.Degraded)
	assert.Len(t, table.Rows, 3)
}

func TestDecode_unparseable(t *testing.T) {
	tests := map[string][]byte{
		"empty":          {},
		"blank lines":    []byte("\n\n  \n"),
		"html":           []byte("<!DOCTYPE html><html><head><title>Sign in</title></head></html>"),
		"invalid utf8":   {0xff, 0xfe, 0x00, 0x41},
		"not a workbook": []byte("plain text"),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			format := FormatCSV
			if name == "not a workbook" {
				format = FormatXLSX
			}
			_, err := Decode(format, data, "")
			assert.ErrorIs(t, err, ErrUnparseable)
		})
	}
}

func TestDecode_xlsx(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "English")
	f.SetCellValue("Sheet1", "B1", "Family")
	f.SetCellValue("Sheet1", "A2", "Sarah")
	f.SetCellValue("Sheet1", "B2", "Smith Family")
	f.SetCellValue("Sheet1", "C2", "سارة")
	f.SetCellValue("Sheet1", "D2", 12)
	f.SetCellValue("Sheet1", "A4", "Omar")
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	table, err := Decode(FormatXLSX, buf.Bytes(), "")
	require.NoError(t, err)
	require.Len(t, table.Rows, 3, "blank row 3 is dropped")
	assert.Equal(t, []string{"Sarah", "Smith Family", "سارة", "12"}, table.Rows[1])
	assert.Equal(t, []string{"Omar", ""}, table.Rows[2])

	_, err = Decode(FormatXLSX, buf.Bytes(), "Missing")
	assert.ErrorIs(t, err, ErrUnparseable)
}

func TestFormatInference(t *testing.T) {
	assert.Equal(t, FormatXLSX, FormatFromName("/srv/guests.XLSX"))
	assert.Equal(t, FormatCSV, FormatFromName("guests.csv"))
	assert.Equal(t, FormatCSV, FormatFromName("https://docs.google.com/spreadsheets/d/x/export?format=xlsx"))
	assert.Equal(t, FormatXLSX, FormatFromName("https://example.com/list.xlsx?dl=1"))

	f, ok := FormatFromContentType("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	assert.True(t, ok)
	assert.Equal(t, FormatXLSX, f)
	f, ok = FormatFromContentType("text/csv; charset=utf-8")
	assert.True(t, ok)
	assert.Equal(t, FormatCSV, f)
	_, ok = FormatFromContentType("application/octet-stream")
	assert.False(t, ok)
}
