package testutil

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"

	labeler "github.com/FrenchMajesty/comment-labeler"
	"github.com/FrenchMajesty/comment-labeler/adapters"
	"github.com/xuri/excelize/v2"
)

// MockClassifier is a mock implementation of labeler.Classifier for testing
type MockClassifier struct {
	ClassifyFunc func(ctx context.Context, prompt string) (string, error)

	mu        sync.Mutex
	CallCount int
	Prompts   []string
}

func (m *MockClassifier) Classify(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.CallCount++
	m.Prompts = append(m.Prompts, prompt)
	m.mu.Unlock()

	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, prompt)
	}

	// Default: every comment is neutral
	return "neutral", nil
}

// Calls returns the number of Classify calls so far
func (m *MockClassifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// Factory returns a labeler.ClientFactory that hands out m and records the credential it was given
func (m *MockClassifier) Factory(gotKey *string) labeler.ClientFactory {
	return func(apiKey string, _ adapters.ClientOptions) (labeler.Classifier, error) {
		if gotKey != nil {
			*gotKey = apiKey
		}
		return m, nil
	}
}

// ErrStubFailure is returned by StubClassifier for texts listed in fail
var ErrStubFailure = errors.New("stub classification failure")

// StubClassifier maps the comment text (the part after "Text: ") to a fixed reply
func StubClassifier(labels map[string]string, fail ...string) *MockClassifier {
	return &MockClassifier{
		ClassifyFunc: func(ctx context.Context, prompt string) (string, error) {
			text := TextOf(prompt)
			for _, f := range fail {
				if f == text {
					return "", ErrStubFailure
				}
			}
			label, ok := labels[text]
			if !ok {
				return "", errors.New("no stub label for " + text)
			}
			return label, nil
		},
	}
}

// TextOf extracts the comment text from a composed prompt
func TextOf(prompt string) string {
	_, text, _ := strings.Cut(prompt, "\nText: ")
	return text
}

// MockReporter records every notification of a run
type MockReporter struct {
	mu     sync.Mutex
	Phases [][2]labeler.Phase
	Events []labeler.RowEvent
}

func (m *MockReporter) PhaseChanged(from, to labeler.Phase) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Phases = append(m.Phases, [2]labeler.Phase{from, to})
}

func (m *MockReporter) RowProcessed(ev labeler.RowEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, ev)
}

// Failures returns the events whose outcome failed
func (m *MockReporter) Failures() []labeler.RowEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	var failed []labeler.RowEvent
	for _, ev := range m.Events {
		if ev.Outcome.Failed() {
			failed = append(failed, ev)
		}
	}
	return failed
}

// Workbook builds an .xlsx file in memory with rows written from A1 on the first sheet
func Workbook(rows ...[]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
