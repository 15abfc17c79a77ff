package pipeline

import "go.uber.org/zap"

// Summary is the operational result of one batch run. Processed is the
// total number of work units; the other three partition it.
type Summary struct {
	Processed int
	Succeeded int
	Skipped   int
	Failed    int
}

func (s Summary) fields() []zap.Field {
	return []zap.Field{
		zap.Int("processed", s.Processed),
		zap.Int("succeeded", s.Succeeded),
		zap.Int("skipped", s.Skipped),
		zap.Int("failed", s.Failed),
	}
}

// outcome is what one per-user work unit reports back.
type outcome int

const (
	outcomeSucceeded outcome = iota
	outcomeSkipped
	outcomeFailed
)

func (s *Summary) count(o outcome) {
	s.Processed++
	switch o {
	case outcomeSucceeded:
		s.Succeeded++
	case outcomeSkipped:
		s.Skipped++
	case outcomeFailed:
		s.Failed++
	}
}
