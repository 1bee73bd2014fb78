package generator

import (
	"testing"

	"github.com/pavelanni/lessonforge/internal/model"
)

func TestDefaultScheduleValid(t *testing.T) {
	if err := DefaultSchedule().Validate(); err != nil {
		t.Fatalf("default schedule invalid: %v", err)
	}
}

func TestScheduleValidateForwardDependency(t *testing.T) {
	s := Schedule{
		{Name: "a", Dependencies: []string{"b"}},
		{Name: "b"},
	}
	if err := s.Validate(); err == nil {
		t.Error("forward dependency should be rejected")
	}
}

func TestScheduleValidateDuplicate(t *testing.T) {
	s := Schedule{{Name: "a"}, {Name: "a"}}
	if err := s.Validate(); err == nil {
		t.Error("duplicate section should be rejected")
	}
}

func TestDefaultScheduleFallbackFlags(t *testing.T) {
	noFallback := map[string]bool{
		model.SectionPronunciation:    true,
		model.SectionDialoguePractice: true,
		model.SectionDialogueFillGap:  true,
	}
	for _, section := range DefaultSchedule() {
		if section.HasFallback == noFallback[section.Name] {
			t.Errorf("section %q HasFallback = %v", section.Name, section.HasFallback)
		}
	}
}

func TestTrackerSummary(t *testing.T) {
	tr := NewTracker()
	tr.Record(model.QualityRecord{SectionName: "a", Score: 100, Attempts: 1})
	tr.Record(model.QualityRecord{SectionName: "b", Score: 50, Attempts: 2, IssueCount: 3, WarningCount: 1})

	s := tr.Summary()
	if s.Sections != 2 || s.AverageScore != 75 {
		t.Errorf("summary = %+v", s)
	}
	if s.TotalAttempts != 3 || s.TotalIssues != 3 || s.TotalWarnings != 1 {
		t.Errorf("summary = %+v", s)
	}

	tr.Reset()
	if s := tr.Summary(); s.Sections != 0 {
		t.Errorf("summary after reset = %+v", s)
	}
}

func TestResultScoring(t *testing.T) {
	if r := result(nil, nil); !r.IsValid || r.Score != 100 {
		t.Errorf("clean result = %+v", r)
	}
	if r := result([]string{"x"}, []string{"y"}); r.IsValid || r.Score != 65 {
		t.Errorf("result = %+v", r)
	}
	if r := result([]string{"a", "b", "c", "d", "e"}, nil); r.Score != 0 {
		t.Errorf("score should clamp at zero, got %+v", r)
	}
}
