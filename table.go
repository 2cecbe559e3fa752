package labeler

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CSVHeader is the first record of every exported table
var CSVHeader = []string{"ID", "Comment", "Sentiment"}

// OutputTable collects results in processing order
type OutputTable struct {
	results []ClassificationResult
	failed  int
}

// NewOutputTable creates an empty table sized for n rows
func NewOutputTable(n int) *OutputTable {
	return &OutputTable{results: make([]ClassificationResult, 0, n)}
}

// Append records the outcome for row. Failed outcomes become ErrorLabel.
func (t *OutputTable) Append(row InputRow, outcome Outcome) {
	result := ClassificationResult{ID: row.ID, Text: row.Text}

	switch {
	case outcome.Failed():
		result.Label = ErrorLabel
		t.failed++
	default:
		result.Label = outcome.Label
	}

	t.results = append(t.results, result)
}

// Len returns the number of results
func (t *OutputTable) Len() int {
	return len(t.results)
}

// Failed returns how many rows were labeled ErrorLabel because their call failed
func (t *OutputTable) Failed() int {
	return t.failed
}

// Results returns a copy of the results in order
func (t *OutputTable) Results() []ClassificationResult {
	return slices.Clone(t.results)
}

// WriteCSV writes the table as UTF-8 CSV with a byte order mark
func (t *OutputTable) WriteCSV(w io.Writer) error {
	bom := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	cw := csv.NewWriter(bom)

	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range t.results {
		if err := cw.Write([]string{r.ID, r.Text, r.Label}); err != nil {
			return fmt.Errorf("failed to write CSV row %s: %w", r.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}

	return bom.Close()
}

// CSV returns the serialized table for download
func (t *OutputTable) CSV() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.WriteCSV(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseCSV reads a table written by WriteCSV back into results
func ParseCSV(r io.Reader) ([]ClassificationResult, error) {
	reader := csv.NewReader(transform.NewReader(r, unicode.UTF8BOM.NewDecoder()))
	reader.FieldsPerRecord = len(CSVHeader)

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty results file")
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if !slices.Equal(header, CSVHeader) {
		return nil, fmt.Errorf("unexpected CSV header %v", header)
	}

	var results []ClassificationResult
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		results = append(results, ClassificationResult{ID: record[0], Text: record[1], Label: record[2]})
	}

	return results, nil
}
