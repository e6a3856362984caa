package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hri/hri/internal/domain/mapping"
)

var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrEmptyFile           = errors.New("file is empty")
	ErrNoHeaders           = errors.New("no headers found")
)

// Table is a parsed source file: the literal header row and every data
// row as a header-to-value map. All cells are strings; type coercion is
// the loader's concern.
type Table struct {
	Headers []string
	Rows    []mapping.Row
}

// DetectFileType derives the source type from the filename extension.
// Unknown extensions are rejected before any mapping or loading begins.
func DetectFileType(filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return "csv", nil
	case ".tsv":
		return "tsv", nil
	case ".xlsx":
		return "xlsx", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, filename)
	}
}

// ParseTable reads the whole file into memory. Short rows are padded with
// empty cells so every row exposes every header.
func ParseTable(fileType string, r io.Reader) (*Table, error) {
	switch fileType {
	case "csv":
		return parseDelimited(r, ',')
	case "tsv":
		return parseDelimited(r, '\t')
	case "xlsx":
		return parseExcel(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, fileType)
	}
}

func parseDelimited(r io.Reader, comma rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse delimited file: %w", err)
	}
	return fromRecords(records)
}

func parseExcel(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return fromRecords(records)
}

func fromRecords(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	headers := records[0]
	nonBlank := false
	for _, h := range headers {
		if strings.TrimSpace(h) != "" {
			nonBlank = true
			break
		}
	}
	if !nonBlank {
		return nil, ErrNoHeaders
	}

	rows := make([]mapping.Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(mapping.Row, len(headers))
		for i, h := range headers {
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}

	return &Table{Headers: headers, Rows: rows}, nil
}
