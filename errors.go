package labeler

import (
	"errors"
	"fmt"
)

// ErrRunInProgress is returned when Run is called on a Labeler that is still processing
var ErrRunInProgress = errors.New("labeling run already in progress")

// Missing inputs checked before a run starts
const (
	InputAPIKey = "api key"
	InputFile   = "file"
	InputPrompt = "prompt"
)

// MissingInputError means a required input was absent or blank; no rows were processed
type MissingInputError struct {
	Input string
}

func (e *MissingInputError) Error() string {
	return "missing required input: " + e.Input
}

// ParseError means the uploaded file could not be decoded as tabular data
type ParseError struct {
	Name string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to read %q: %v", e.Name, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SchemaError means the file decoded but has fewer than MinColumns columns
type SchemaError struct {
	Columns int
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("file must have at least %d columns [ID, Comment], found %d", MinColumns, e.Columns)
}

// RowClassificationError is reported for a row whose classification call failed.
// It never aborts a run; the row is labeled ErrorLabel.
type RowClassificationError struct {
	Index int
	ID    string
	Err   error
}

func (e *RowClassificationError) Error() string {
	return fmt.Sprintf("error processing row %d (id %s): %v", e.Index, e.ID, e.Err)
}

func (e *RowClassificationError) Unwrap() error {
	return e.Err
}

// IsInputError reports whether err blocked a run before processing started
func IsInputError(err error) bool {
	var missing *MissingInputError
	var parse *ParseError
	var schema *SchemaError
	return errors.As(err, &missing) || errors.As(err, &parse) || errors.As(err, &schema)
}
