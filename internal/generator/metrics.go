package generator

import (
	"sync"

	"github.com/pavelanni/lessonforge/internal/model"
)

// Tracker collects per-section quality records for one or more lesson
// runs. Safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	records []model.QualityRecord
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Record appends one section's quality record.
func (t *Tracker) Record(r model.QualityRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, r)
}

// Records returns a copy of all recorded entries in insertion order.
func (t *Tracker) Records() []model.QualityRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.QualityRecord, len(t.records))
	copy(out, t.records)
	return out
}

// Summary aggregates the recorded entries.
type Summary struct {
	Sections      int     `json:"sections"`
	AverageScore  float64 `json:"average_score"`
	TotalAttempts int     `json:"total_attempts"`
	TotalIssues   int     `json:"total_issues"`
	TotalWarnings int     `json:"total_warnings"`
}

// Summary computes aggregate quality over all recorded sections.
func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	var s Summary
	s.Sections = len(t.records)
	if s.Sections == 0 {
		return s
	}
	total := 0
	for _, r := range t.records {
		total += r.Score
		s.TotalAttempts += r.Attempts
		s.TotalIssues += r.IssueCount
		s.TotalWarnings += r.WarningCount
	}
	s.AverageScore = float64(total) / float64(s.Sections)
	return s
}

// Reset clears all records.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = nil
}
