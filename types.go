package labeler

// InputRow is one (ID, Comment) pair read from the uploaded spreadsheet
type InputRow struct {
	// ID is the displayed value of column 0, kept opaque
	ID string

	// Text is the string form of column 1
	Text string
}

// Outcome is the result of classifying one row: a label on success, an error on failure
type Outcome struct {
	Label string
	Err   error
}

// Labeled returns a successful outcome
func Labeled(label string) Outcome {
	return Outcome{Label: label}
}

// FailedWith returns a failed outcome
func FailedWith(err error) Outcome {
	return Outcome{Err: err}
}

// Failed reports whether the classification call failed
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// ClassificationResult is one row of the output table
type ClassificationResult struct {
	ID    string
	Text  string
	Label string
}

// File is an uploaded spreadsheet held in memory
type File struct {
	// Name is used to pick the decoder by extension (.xlsx, .xlsm, .csv, .tsv)
	Name string

	Data []byte

	// Sheet selects a worksheet in workbook files. Empty means the first sheet.
	Sheet string
}

// Phase is a state of a labeling run
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseProcessing
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseValidating:
		return "validating"
	case PhaseProcessing:
		return "processing"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}
