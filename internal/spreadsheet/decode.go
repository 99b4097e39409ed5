// Package spreadsheet turns uploaded workbook bytes into header-keyed rows.
//
// Supported formats are .xlsx (excelize), legacy .xls (extrame/xls) and .csv.
// Only the first sheet of a workbook is read. The first non-blank line is the
// header; every later line with at least one cell becomes a Row keyed by the
// header text.
package spreadsheet

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies a supported spreadsheet encoding.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatCSV  Format = "csv"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyFile         = errors.New("empty file")
	ErrNoSheet           = errors.New("workbook has no sheets")
)

var (
	zipMagic = []byte("PK\x03\x04")
	cfbMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// Row is one data line of the first sheet.
type Row struct {
	// Line is the 1-based line number in the sheet, header included.
	Line  int
	Cells map[string]any
	// Columns lists the keys of Cells in sheet column order.
	Columns []string
}

// Decoder decodes uploads by file name and content.
type Decoder struct{}

// Decode implements the ingestion decoder contract.
func (Decoder) Decode(filename string, data []byte) ([]Row, error) {
	return Decode(filename, data)
}

// Decode parses data as a spreadsheet. The format is taken from the file
// extension and, when the extension is missing or unknown, from the content.
func Decode(filename string, data []byte) ([]Row, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	format, err := DetectFormat(filename, data)
	if err != nil {
		return nil, err
	}

	var matrix [][]string
	switch format {
	case FormatXLSX:
		matrix, err = readXLSX(data)
	case FormatXLS:
		matrix, err = readXLS(data)
	case FormatCSV:
		matrix, err = readCSV(data)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", format, err)
	}

	return rowsFromMatrix(matrix), nil
}

// DetectFormat resolves the spreadsheet format of an upload.
func DetectFormat(filename string, data []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".xls":
		return FormatXLS, nil
	case ".csv":
		return FormatCSV, nil
	case "":
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}

	switch {
	case bytes.HasPrefix(data, zipMagic):
		return FormatXLSX, nil
	case bytes.HasPrefix(data, cfbMagic):
		return FormatXLS, nil
	default:
		return FormatCSV, nil
	}
}

// rowsFromMatrix keys each line by the header line. Header cells are trimmed;
// blank header cells drop their column and repeated names get a numeric
// suffix.
func rowsFromMatrix(matrix [][]string) []Row {
	headerIdx := -1
	for i, line := range matrix {
		if !isEmptyRow(line) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil
	}

	header := uniqueHeader(matrix[headerIdx])

	var rows []Row
	for i := headerIdx + 1; i < len(matrix); i++ {
		line := matrix[i]
		cells := make(map[string]any, len(header))
		var columns []string
		for j, v := range line {
			if j >= len(header) || header[j] == "" || v == "" {
				continue
			}
			cells[header[j]] = v
			columns = append(columns, header[j])
		}
		if len(cells) == 0 {
			continue
		}
		rows = append(rows, Row{Line: i + 1, Cells: cells, Columns: columns})
	}
	return rows
}

func uniqueHeader(line []string) []string {
	header := make([]string, len(line))
	seen := make(map[string]int, len(line))
	for i, h := range line {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if n, ok := seen[h]; ok {
			seen[h] = n + 1
			h = fmt.Sprintf("%s_%d", h, n)
		} else {
			seen[h] = 1
		}
		header[i] = h
	}
	return header
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
