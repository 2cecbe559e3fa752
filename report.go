package labeler

import (
	"time"

	"go.uber.org/zap"
)

// RowEvent describes one processed row
type RowEvent struct {
	Index    int
	Total    int
	Row      InputRow
	Outcome  Outcome
	Duration time.Duration
}

// Reporter is the user-visible surface of a run: phase changes and per-row notifications
type Reporter interface {
	PhaseChanged(from, to Phase)
	RowProcessed(ev RowEvent)
}

type nopReporter struct{}

func (nopReporter) PhaseChanged(from, to Phase) {}
func (nopReporter) RowProcessed(ev RowEvent)    {}

// Reporters fans every notification out to each reporter in order
type Reporters []Reporter

func (rs Reporters) PhaseChanged(from, to Phase) {
	for _, r := range rs {
		r.PhaseChanged(from, to)
	}
}

func (rs Reporters) RowProcessed(ev RowEvent) {
	for _, r := range rs {
		r.RowProcessed(ev)
	}
}

// LogReporter writes run notifications to a zap logger.
// Failed rows are logged at error level, successful ones at debug.
type LogReporter struct {
	logger *zap.Logger
}

// NewLogReporter creates a LogReporter. A nil logger discards everything.
func NewLogReporter(logger *zap.Logger) *LogReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogReporter{logger: logger}
}

func (r *LogReporter) PhaseChanged(from, to Phase) {
	r.logger.Info("labeling phase changed",
		zap.Stringer("from", from),
		zap.Stringer("to", to),
	)
}

func (r *LogReporter) RowProcessed(ev RowEvent) {
	fields := []zap.Field{
		zap.Int("row", ev.Index),
		zap.Int("total", ev.Total),
		zap.String("id", ev.Row.ID),
		zap.Duration("duration", ev.Duration),
	}

	if ev.Outcome.Failed() {
		r.logger.Error("row classification failed", append(fields, zap.Error(ev.Outcome.Err))...)
		return
	}

	r.logger.Debug("row labeled", append(fields, zap.String("label", ev.Outcome.Label))...)
}
