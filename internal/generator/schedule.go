package generator

import (
	"fmt"

	"github.com/pavelanni/lessonforge/internal/model"
)

// Schedule is the ordered list of sections to generate. The order is fixed
// and encodes real pedagogical dependencies; it is validated once at
// startup, so a cycle or forward reference is a configuration error rather
// than a runtime condition.
type Schedule []model.LessonSection

// DefaultSchedule returns the standard lesson layout. Reading depends on
// vocabulary so the passage can reuse the chosen words; comprehension and
// grammar build on the passage; discussion follows comprehension; the
// dialogues draw on vocabulary and reading; wrap-up closes the discussion.
func DefaultSchedule() Schedule {
	return Schedule{
		{Name: model.SectionWarmUp, Priority: 1, HasFallback: true},
		{Name: model.SectionVocabulary, Priority: 2, HasFallback: true},
		{Name: model.SectionReading, Priority: 3, Dependencies: []string{model.SectionVocabulary}, HasFallback: true},
		{Name: model.SectionComprehension, Priority: 4, Dependencies: []string{model.SectionReading}, HasFallback: true},
		{Name: model.SectionGrammar, Priority: 5, Dependencies: []string{model.SectionReading}, HasFallback: true},
		{Name: model.SectionDiscussion, Priority: 6, Dependencies: []string{model.SectionReading, model.SectionComprehension}, HasFallback: true},
		{Name: model.SectionPronunciation, Priority: 7, Dependencies: []string{model.SectionVocabulary}, HasFallback: false},
		{Name: model.SectionDialoguePractice, Priority: 8, Dependencies: []string{model.SectionVocabulary, model.SectionReading}, HasFallback: false},
		{Name: model.SectionDialogueFillGap, Priority: 9, Dependencies: []string{model.SectionVocabulary, model.SectionReading}, HasFallback: false},
		{Name: model.SectionWrapUp, Priority: 10, Dependencies: []string{model.SectionDiscussion}, HasFallback: true},
	}
}

// Validate checks that section names are unique and every dependency
// references a section that appears earlier in the order.
func (s Schedule) Validate() error {
	seen := make(map[string]bool, len(s))
	for i, section := range s {
		if section.Name == "" {
			return fmt.Errorf("schedule entry %d has no name", i)
		}
		if seen[section.Name] {
			return fmt.Errorf("duplicate schedule entry %q", section.Name)
		}
		for _, dep := range section.Dependencies {
			if !seen[dep] {
				return fmt.Errorf("section %q depends on %q which does not appear earlier in the schedule", section.Name, dep)
			}
		}
		seen[section.Name] = true
	}
	return nil
}
