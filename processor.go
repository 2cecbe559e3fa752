package labeler

import (
	"context"
	"strings"
	"time"
)

// Processor classifies rows one at a time, in input order
type Processor struct {
	client   Classifier
	template string
	reporter Reporter
}

// NewProcessor creates a Processor sending every row through client with the given template
func NewProcessor(client Classifier, template string, reporter Reporter) *Processor {
	if reporter == nil {
		reporter = nopReporter{}
	}
	return &Processor{
		client:   client,
		template: template,
		reporter: reporter,
	}
}

// Process classifies every row and returns one result per row, in order.
// A failing row is labeled ErrorLabel and processing moves on to the next one.
func (p *Processor) Process(ctx context.Context, rows []InputRow) *OutputTable {
	table := NewOutputTable(len(rows))

	for i, row := range rows {
		start := time.Now()
		outcome := p.classifyRow(ctx, i, row)
		table.Append(row, outcome)

		p.reporter.RowProcessed(RowEvent{
			Index:    i,
			Total:    len(rows),
			Row:      row,
			Outcome:  outcome,
			Duration: time.Since(start),
		})
	}

	return table
}

// classifyRow makes exactly one client call for the row
func (p *Processor) classifyRow(ctx context.Context, index int, row InputRow) Outcome {
	reply, err := p.client.Classify(ctx, Compose(p.template, row.Text))
	if err != nil {
		return FailedWith(&RowClassificationError{Index: index, ID: row.ID, Err: err})
	}

	return Labeled(strings.TrimSpace(reply))
}
