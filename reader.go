package labeler

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ReadRows decodes an uploaded spreadsheet into input rows. No header row is assumed:
// column 0 is the ID, column 1 the comment text, and later columns are ignored.
// Fully blank rows are skipped, so len(rows) can be lower than the sheet's row count;
// an empty comment cell yields Text "".
func ReadRows(f File) ([]InputRow, error) {
	records, err := readRecords(f)
	if err != nil {
		return nil, &ParseError{Name: f.Name, Err: err}
	}

	return rowsFromRecords(records)
}

// readRecords routes to the decoder for the file's extension
func readRecords(f File) ([][]string, error) {
	switch ext := strings.ToLower(filepath.Ext(f.Name)); ext {
	case ".xlsx", ".xlsm":
		return readWorkbook(f.Data, f.Sheet)
	case ".csv":
		return readDelimited(f.Data, ',')
	case ".tsv":
		return readDelimited(f.Data, '\t')
	default:
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
}

// readWorkbook reads every row of the selected worksheet
func readWorkbook(data []byte, sheet string) ([][]string, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	if sheet == "" {
		sheet = sheets[0]
	} else if !slices.Contains(sheets, sheet) {
		return nil, fmt.Errorf("sheet %q not found (have %v)", sheet, sheets)
	}

	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of sheet %q: %w", sheet, err)
	}

	return rows, nil
}

// readDelimited reads CSV or TSV content, dropping a leading UTF-8 BOM
func readDelimited(data []byte, comma rune) ([][]string, error) {
	decoded := transform.NewReader(bytes.NewReader(data), unicode.UTF8BOM.NewDecoder())

	reader := csv.NewReader(decoded)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse delimited text: %w", err)
	}

	return records, nil
}

// rowsFromRecords checks the column count and maps records to rows, skipping blank lines
func rowsFromRecords(records [][]string) ([]InputRow, error) {
	width := 0
	for _, record := range records {
		width = max(width, len(record))
	}
	if width < MinColumns {
		return nil, &SchemaError{Columns: width}
	}

	rows := make([]InputRow, 0, len(records))
	for _, record := range records {
		if isBlank(record) {
			continue
		}

		row := InputRow{ID: record[0]}
		if len(record) > 1 {
			row.Text = record[1]
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
