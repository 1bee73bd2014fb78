// Package generator implements the progressive lesson generation pipeline:
// a fixed dependency-ordered schedule of section generators sharing an
// evolving context, each protected by heuristic output validation, bounded
// retry and quality-score tracking.
package generator

import (
	"context"

	"github.com/pavelanni/lessonforge/internal/model"
)

// Generation strategies recorded on completed sections.
const (
	StrategyModel    = "model"
	StrategyFallback = "fallback"
)

// Generator produces and validates one kind of lesson section. Generators
// are pure with respect to the shared context: they read it and the prior
// results but never mutate either; the pipeline owns all mutation.
type Generator interface {
	Name() string

	// Generate builds a level-calibrated prompt from the shared context
	// and prior sections, calls the model and parses the result into the
	// section's typed payload. The int is the token count consumed.
	Generate(ctx context.Context, sc *model.SharedContext, prior []model.GeneratedSection) (model.SectionContent, int, error)

	// Validate scores a payload for structural and pedagogical
	// correctness. Issues are fatal and force a retry; warnings are
	// logged and accepted.
	Validate(sc *model.SharedContext, content model.SectionContent) model.ValidationResult

	// Fallback returns a safe deterministic payload, or nil when the
	// section has none and a final validation failure must abort the
	// whole lesson.
	Fallback(sc *model.SharedContext) model.SectionContent
}

// priorSection finds a completed section's payload by name.
func priorSection(prior []model.GeneratedSection, name string) (model.SectionContent, bool) {
	for _, s := range prior {
		if s.SectionName == name {
			return s.Content, true
		}
	}
	return nil, false
}

// readingPassage extracts the reading text from prior sections, or "".
func readingPassage(prior []model.GeneratedSection) string {
	if c, ok := priorSection(prior, model.SectionReading); ok {
		if r, ok := c.(model.ReadingContent); ok {
			return r.Passage
		}
	}
	return ""
}
